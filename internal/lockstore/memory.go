package lockstore

import (
	"context"
	"sync"
	"time"
)

// lease is a stored entry with an explicit expiry timestamp.  Expiry
// is checked on every read rather than scheduled as a callback, so
// correctness does not depend on a timer surviving for the hold
// duration.
type lease struct {
	value     string
	expiresAt time.Time
}

func (l lease) live(now time.Time) bool {
	return l.expiresAt.IsZero() || now.Before(l.expiresAt)
}

// MemoryStore is a single-process Store backed by a map.  It is used
// in tests and for single-node development without Redis.  All
// operations take the same mutex, which makes SetNX atomic within
// the process.
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]lease
	now func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]lease), now: time.Now}
}

// SetNX stores key=value with the given TTL unless a live entry
// already exists.  A ttl of zero means the entry never expires.
func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if l, ok := s.m[key]; ok && l.live(now) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	s.m[key] = lease{value: value, expiresAt: exp}
	return true, nil
}

// Get returns the value of a live entry.  Lapsed entries are removed
// lazily and reported as absent.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.m[key]
	if !ok {
		return "", ErrNotFound
	}
	if !l.live(s.now()) {
		delete(s.m, key)
		return "", ErrNotFound
	}
	return l.value, nil
}

// Del removes key and reports whether a live entry existed.
func (s *MemoryStore) Del(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.m[key]
	delete(s.m, key)
	return ok && l.live(s.now()), nil
}
