// Package memory provides an in-memory implementation of the overlay
// key-value store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"shelterdb/internal/persistence/core"
)

// Compile-time contract assertion.
var _ core.Store = (*Store)(nil)

// Store keeps entries in process memory. A positive quota caps the total size
// of keys plus values the way browser storage does; writes that would exceed
// it fail with core.ErrQuotaExceeded and leave the previous value in place.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
	quota   int64
	used    int64
}

// Option configures a memory Store.
type Option func(*Store)

// WithQuota caps the stored bytes (keys plus values). Zero disables the cap.
func WithQuota(bytes int64) Option {
	return func(s *Store) { s.quota = bytes }
}

// NewStore returns an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{entries: make(map[string][]byte)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver returns the backend identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, core.ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

// Put overwrites the value stored under key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return core.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.used
	if prev, ok := s.entries[key]; ok {
		used -= int64(len(key) + len(prev))
	}
	used += int64(len(key) + len(value))
	if s.quota > 0 && used > s.quota {
		return fmt.Errorf("put %s (%d bytes, quota %d): %w", key, len(value), s.quota, core.ErrQuotaExceeded)
	}
	s.entries[key] = cloneBytes(value)
	s.used = used
	return nil
}

// Delete removes key, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	s.used -= int64(len(key) + len(prev))
	delete(s.entries, key)
	return true, nil
}

// Keys lists stored keys in ascending order.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Used reports the bytes currently counted against the quota.
func (s *Store) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
