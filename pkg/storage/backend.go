package storage

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded signals a write rejected for capacity. The adapter reacts
// by evicting low-value entries and retrying before degrading to memory.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Backend is a raw text store. Backends hold already-serialized values; the
// adapter owns encoding, eviction, and fallback policy.
type Backend interface {
	Store(key, value string) error
	Load(key string) (string, bool, error)
	Delete(key string) error
	Clear() error
	Keys() ([]string, error)
}

// memoryBackend is a process-lived map. It backs the session scope and every
// fallback path. A zero maxBytes means unbounded.
type memoryBackend struct {
	mu       sync.RWMutex
	entries  map[string]string
	maxBytes int
}

// NewMemoryBackend returns an in-memory Backend. maxBytes bounds the total
// stored byte count when greater than zero, mirroring a storage quota.
func NewMemoryBackend(maxBytes int) Backend {
	return &memoryBackend{
		entries:  make(map[string]string),
		maxBytes: maxBytes,
	}
}

func (m *memoryBackend) Store(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 {
		total := len(key) + len(value)
		for k, v := range m.entries {
			if k == key {
				continue
			}
			total += len(k) + len(v)
		}
		if total > m.maxBytes {
			return ErrQuotaExceeded
		}
	}
	m.entries[key] = value
	return nil
}

func (m *memoryBackend) Load(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	return value, ok, nil
}

func (m *memoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]string)
	return nil
}

func (m *memoryBackend) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys, nil
}
