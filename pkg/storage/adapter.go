// Package storage provides the scoped key-value adapter the session
// controller persists through. A persistent scope outlives restarts while the
// session scope lives for a single process. Every public operation returns a
// defined result: quota failures trigger eviction, retry, and a per-key
// in-memory shadow; backend outages swap the whole scope to memory.
package storage

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Scope selects between the persistent and session-lived partitions.
type Scope string

const (
	ScopePersistent Scope = "persistent"
	ScopeSession    Scope = "session"
)

// Option configures the adapter.
type Option func(*Adapter)

// WithBackend installs a backend for a scope. Unconfigured scopes use
// unbounded in-memory backends.
func WithBackend(scope Scope, backend Backend) Option {
	return func(a *Adapter) {
		if backend != nil {
			a.backends[scope] = backend
		}
	}
}

// WithEvictPrefixes overrides the key prefixes considered disposable when a
// quota write fails. Defaults cover temporary and autosave markers.
func WithEvictPrefixes(prefixes ...string) Option {
	return func(a *Adapter) {
		a.evictPrefixes = append([]string(nil), prefixes...)
	}
}

// WithLogger attaches a logger for soft-failure diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Adapter) {
		a.log = log
	}
}

// Adapter is the scoped store. Values round-trip through JSON except plain
// strings, which pass through untouched; unparseable stored text comes back
// as the raw string rather than failing.
type Adapter struct {
	mu            sync.Mutex
	backends      map[Scope]Backend
	overlays      map[Scope]map[string]string
	degraded      map[Scope]bool
	evictPrefixes []string
	log           zerolog.Logger
}

// New constructs an Adapter. Without options both scopes are in-memory.
func New(options ...Option) *Adapter {
	a := &Adapter{
		backends:      make(map[Scope]Backend),
		overlays:      make(map[Scope]map[string]string),
		degraded:      make(map[Scope]bool),
		evictPrefixes: []string{"tmp:", "autosave:"},
		log:           zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	if a.backends[ScopePersistent] == nil {
		a.backends[ScopePersistent] = NewMemoryBackend(0)
	}
	if a.backends[ScopeSession] == nil {
		a.backends[ScopeSession] = NewMemoryBackend(0)
	}
	return a
}

// Set serializes value under key. When the backend rejects the write for
// capacity, disposable entries are evicted and the write retried once. A
// quota failure that survives eviction shadows just this key in memory,
// leaving the backend and its existing entries readable; any other failure
// degrades the whole scope to memory so the write still lands.
func (a *Adapter) Set(scope Scope, key string, value any) {
	text := encode(value)

	a.mu.Lock()
	defer a.mu.Unlock()

	backend := a.backend(scope)
	err := backend.Store(key, text)
	if err == ErrQuotaExceeded {
		a.evictDisposable(backend)
		err = backend.Store(key, text)
	}
	switch {
	case err == nil:
		delete(a.overlay(scope), key)
	case err == ErrQuotaExceeded:
		// Quota is a per-write condition, not a backend outage.
		a.overlay(scope)[key] = text
		a.log.Warn().Str("scope", string(scope)).Str("key", key).
			Msg("quota exceeded after eviction, value held in memory")
	default:
		a.degrade(scope, key, err)
		_ = a.backend(scope).Store(key, text)
	}
}

// Get returns the decoded value and whether the key was present.
func (a *Adapter) Get(scope Scope, key string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if text, shadowed := a.overlay(scope)[key]; shadowed {
		return decode(text), true
	}

	text, ok, err := a.backend(scope).Load(key)
	if err != nil {
		a.degrade(scope, key, err)
		text, ok, _ = a.backend(scope).Load(key)
	}
	if !ok {
		return nil, false
	}
	return decode(text), true
}

// GetString returns the stored value as text, decoding JSON-encoded strings.
func (a *Adapter) GetString(scope Scope, key string) (string, bool) {
	value, ok := a.Get(scope, key)
	if !ok {
		return "", false
	}
	if s, isString := value.(string); isString {
		return s, true
	}
	return encode(value), true
}

// Remove deletes the key. Missing keys are a no-op.
func (a *Adapter) Remove(scope Scope, key string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.overlay(scope), key)
	if err := a.backend(scope).Delete(key); err != nil {
		a.degrade(scope, key, err)
		_ = a.backend(scope).Delete(key)
	}
}

// Clear drops every entry in the scope.
func (a *Adapter) Clear(scope Scope) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.overlays[scope] = nil
	if err := a.backend(scope).Clear(); err != nil {
		a.degrade(scope, "", err)
		_ = a.backend(scope).Clear()
	}
}

// Has reports whether the key exists in the scope.
func (a *Adapter) Has(scope Scope, key string) bool {
	_, ok := a.Get(scope, key)
	return ok
}

// Keys lists the keys stored in the scope, sorted.
func (a *Adapter) Keys(scope Scope) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys, err := a.backend(scope).Keys()
	if err != nil {
		a.degrade(scope, "", err)
		keys, _ = a.backend(scope).Keys()
	}

	overlay := a.overlay(scope)
	if len(overlay) == 0 {
		return keys
	}
	seen := make(map[string]struct{}, len(keys)+len(overlay))
	for _, key := range keys {
		seen[key] = struct{}{}
	}
	for key := range overlay {
		if _, dup := seen[key]; !dup {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Size approximates the stored byte count for the scope at two bytes per
// character, matching the UTF-16 accounting of browser storage.
func (a *Adapter) Size(scope Scope) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	backend := a.backend(scope)
	keys, err := backend.Keys()
	if err != nil {
		a.degrade(scope, "", err)
		return 0
	}

	overlay := a.overlay(scope)
	total := 0
	for _, key := range keys {
		if _, shadowed := overlay[key]; shadowed {
			continue
		}
		value, ok, err := backend.Load(key)
		if err != nil || !ok {
			continue
		}
		total += 2 * (utf8.RuneCountInString(key) + utf8.RuneCountInString(value))
	}
	for key, value := range overlay {
		total += 2 * (utf8.RuneCountInString(key) + utf8.RuneCountInString(value))
	}
	return total
}

func (a *Adapter) overlay(scope Scope) map[string]string {
	m := a.overlays[scope]
	if m == nil {
		m = make(map[string]string)
		a.overlays[scope] = m
	}
	return m
}

func (a *Adapter) backend(scope Scope) Backend {
	if b, ok := a.backends[scope]; ok {
		return b
	}
	b := NewMemoryBackend(0)
	a.backends[scope] = b
	return b
}

// degrade swaps the scope's backend for a fresh in-memory one. Data written
// after this point lives only for the current process.
func (a *Adapter) degrade(scope Scope, key string, err error) {
	if a.degraded[scope] {
		return
	}
	a.degraded[scope] = true
	a.backends[scope] = NewMemoryBackend(0)
	a.log.Warn().Err(err).Str("scope", string(scope)).Str("key", key).
		Msg("storage backend failed, falling back to memory")
}

func (a *Adapter) evictDisposable(backend Backend) {
	keys, err := backend.Keys()
	if err != nil {
		return
	}
	for _, key := range keys {
		for _, prefix := range a.evictPrefixes {
			if strings.HasPrefix(key, prefix) {
				if err := backend.Delete(key); err == nil {
					a.log.Debug().Str("key", key).Msg("evicted disposable entry")
				}
				break
			}
		}
	}
}
