// Package memory is a process-local session store. Nothing survives a
// restart, which makes it suitable for tests and throwaway sessions.
package memory

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
)

type Store struct {
	mu     sync.RWMutex
	values map[sessionstore.Key]string
}

func New() *Store {
	return &Store{values: make(map[sessionstore.Key]string, len(sessionstore.Keys))}
}

func (s *Store) Get(_ context.Context, key sessionstore.Key) (string, error) {
	if err := sessionstore.CheckKey(key); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", sessionstore.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key sessionstore.Key, value string) error {
	if err := sessionstore.CheckKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Clear(_ context.Context, key sessionstore.Key) error {
	if err := sessionstore.CheckKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *Store) Close() error { return nil }

// Len reports how many keys are currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
