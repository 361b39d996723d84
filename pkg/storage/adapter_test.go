package storage

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAdapter_RoundTrip(t *testing.T) {
	adapter := New()

	adapter.Set(ScopePersistent, "greeting", "hello")
	got, ok := adapter.Get(ScopePersistent, "greeting")
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if got != "hello" {
		t.Fatalf("expected raw string round trip, got %#v", got)
	}

	adapter.Set(ScopePersistent, "answers", map[string]any{"name": "Ada", "count": 2})
	value, ok := adapter.Get(ScopePersistent, "answers")
	if !ok {
		t.Fatalf("expected structured value to exist")
	}
	want := map[string]any{"name": "Ada", "count": float64(2)}
	if diff := cmp.Diff(want, value); diff != "" {
		t.Fatalf("unexpected decoded value (-want +got):\n%s", diff)
	}
}

func TestAdapter_SetIsIdempotent(t *testing.T) {
	adapter := New()
	adapter.Set(ScopeSession, "key", "one")
	adapter.Set(ScopeSession, "key", "two")

	if got, _ := adapter.GetString(ScopeSession, "key"); got != "two" {
		t.Fatalf("expected latest write to win, got %q", got)
	}
	if keys := adapter.Keys(ScopeSession); len(keys) != 1 {
		t.Fatalf("expected a single key, got %v", keys)
	}
}

func TestAdapter_RawStringSurvivesDecode(t *testing.T) {
	backend := NewMemoryBackend(0)
	if err := backend.Store("legacy", "{not json at all"); err != nil {
		t.Fatalf("store: %v", err)
	}
	adapter := New(WithBackend(ScopePersistent, backend))

	got, ok := adapter.Get(ScopePersistent, "legacy")
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if got != "{not json at all" {
		t.Fatalf("expected unparseable text back verbatim, got %#v", got)
	}
}

func TestAdapter_ScopesAreIsolated(t *testing.T) {
	adapter := New()
	adapter.Set(ScopePersistent, "key", "durable")
	adapter.Set(ScopeSession, "key", "ephemeral")

	if got, _ := adapter.GetString(ScopePersistent, "key"); got != "durable" {
		t.Fatalf("persistent scope: got %q", got)
	}
	if got, _ := adapter.GetString(ScopeSession, "key"); got != "ephemeral" {
		t.Fatalf("session scope: got %q", got)
	}

	adapter.Clear(ScopeSession)
	if adapter.Has(ScopeSession, "key") {
		t.Fatalf("expected session scope cleared")
	}
	if !adapter.Has(ScopePersistent, "key") {
		t.Fatalf("expected persistent scope untouched")
	}
}

func TestAdapter_QuotaEvictsDisposableEntries(t *testing.T) {
	backend := NewMemoryBackend(120)
	adapter := New(WithBackend(ScopePersistent, backend))

	adapter.Set(ScopePersistent, "drafts:list", "keep me")
	adapter.Set(ScopePersistent, "autosave:form", strings.Repeat("x", 80))

	// The next write exceeds the quota; the autosave entry is disposable and
	// should be evicted to make room.
	adapter.Set(ScopePersistent, "reference:form", strings.Repeat("y", 40))

	if adapter.Has(ScopePersistent, "autosave:form") {
		t.Fatalf("expected disposable autosave entry to be evicted")
	}
	if !adapter.Has(ScopePersistent, "reference:form") {
		t.Fatalf("expected new write to land after eviction")
	}
	if !adapter.Has(ScopePersistent, "drafts:list") {
		t.Fatalf("expected non-disposable entry to survive")
	}
}

func TestAdapter_OversizedWriteShadowsOnlyItsKey(t *testing.T) {
	backend := NewMemoryBackend(100)
	adapter := New(WithBackend(ScopePersistent, backend))

	adapter.Set(ScopePersistent, "drafts:form", "kept")

	// This write can never fit, even after eviction. It must still be
	// readable, without touching what the backend already holds.
	oversized := strings.Repeat("x", 250)
	adapter.Set(ScopePersistent, "autosave:form", oversized)

	if got, _ := adapter.GetString(ScopePersistent, "drafts:form"); got != "kept" {
		t.Fatalf("expected existing entry to stay readable, got %q", got)
	}
	if _, ok, _ := backend.Load("drafts:form"); !ok {
		t.Fatalf("expected existing entry to stay in the backend")
	}
	if got, _ := adapter.GetString(ScopePersistent, "autosave:form"); got != oversized {
		t.Fatalf("expected oversized write to be readable from memory")
	}
	if diff := cmp.Diff([]string{"autosave:form", "drafts:form"}, adapter.Keys(ScopePersistent)); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}

	// The backend is still healthy, so later fitting writes stay durable.
	adapter.Set(ScopePersistent, "reference:form", "RARE-202501-0001")
	if _, ok, _ := backend.Load("reference:form"); !ok {
		t.Fatalf("expected fitting write to land in the backend")
	}
}

func TestAdapter_ShadowClearsWhenWriteFits(t *testing.T) {
	backend := NewMemoryBackend(100)
	adapter := New(WithBackend(ScopePersistent, backend))

	adapter.Set(ScopePersistent, "autosave:form", strings.Repeat("x", 250))
	adapter.Set(ScopePersistent, "autosave:form", "small")

	if _, ok, _ := backend.Load("autosave:form"); !ok {
		t.Fatalf("expected fitting overwrite to land in the backend")
	}
	if got, _ := adapter.GetString(ScopePersistent, "autosave:form"); got != "small" {
		t.Fatalf("expected latest write to win, got %q", got)
	}

	adapter.Set(ScopePersistent, "tmp:scratch", strings.Repeat("y", 250))
	adapter.Remove(ScopePersistent, "tmp:scratch")
	if adapter.Has(ScopePersistent, "tmp:scratch") {
		t.Fatalf("expected removed shadow entry to be gone")
	}
}

type failingBackend struct {
	err error
}

func (f *failingBackend) Store(string, string) error        { return f.err }
func (f *failingBackend) Load(string) (string, bool, error) { return "", false, f.err }
func (f *failingBackend) Delete(string) error               { return f.err }
func (f *failingBackend) Clear() error                      { return f.err }
func (f *failingBackend) Keys() ([]string, error)           { return nil, f.err }

func TestAdapter_DegradesToMemoryOnBackendFailure(t *testing.T) {
	broken := &failingBackend{err: errors.New("disk on fire")}
	adapter := New(WithBackend(ScopePersistent, broken))

	// The write must still land even though the backend fails every call.
	adapter.Set(ScopePersistent, "key", "value")
	got, ok := adapter.Get(ScopePersistent, "key")
	if !ok || got != "value" {
		t.Fatalf("expected fallback write to be readable, got %#v ok=%v", got, ok)
	}

	// Subsequent operations keep using the memory fallback.
	adapter.Set(ScopePersistent, "second", "entry")
	keys := adapter.Keys(ScopePersistent)
	sort.Strings(keys)
	if diff := cmp.Diff([]string{"key", "second"}, keys); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}
}

func TestAdapter_RemoveMissingKeyIsNoOp(t *testing.T) {
	adapter := New()
	adapter.Remove(ScopeSession, "never-set")
	if adapter.Has(ScopeSession, "never-set") {
		t.Fatalf("expected key to stay absent")
	}
}

func TestAdapter_SizeCountsTwoBytesPerCharacter(t *testing.T) {
	adapter := New()
	adapter.Set(ScopeSession, "ab", "cd")

	if got := adapter.Size(ScopeSession); got != 8 {
		t.Fatalf("expected 8 bytes for four characters, got %d", got)
	}
	if got := adapter.Size(ScopePersistent); got != 0 {
		t.Fatalf("expected empty persistent scope, got %d", got)
	}
}

func TestMemoryBackend_Quota(t *testing.T) {
	backend := NewMemoryBackend(10)
	if err := backend.Store("k", "12345"); err != nil {
		t.Fatalf("store within quota: %v", err)
	}
	if err := backend.Store("big", "1234567890"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	// Overwriting an existing key re-counts it instead of double counting.
	if err := backend.Store("k", "123456789"); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
}
