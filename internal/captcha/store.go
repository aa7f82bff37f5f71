// Package captcha stores single-use challenge codes issued before login and registration.
package captcha

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a challenge is unknown, expired or already used.
var ErrNotFound = errors.New("captcha challenge not found")

// Store keeps challenge codes until they expire or are taken.
type Store interface {
	Put(ctx context.Context, id, code string, ttl time.Duration) error
	// Take returns the code and removes it so it can be used once.
	Take(ctx context.Context, id string) (string, error)
}

type entry struct {
	code    string
	expires time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, id, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[id] = entry{code: code, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return "", ErrNotFound
	}
	delete(s.entries, id)
	if s.now().After(e.expires) {
		return "", ErrNotFound
	}
	return e.code, nil
}
