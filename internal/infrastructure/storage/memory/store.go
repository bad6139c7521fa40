// Package memory provides a process-local KeyValueStore. Data is lost when
// the process exits; it backs tests and the "memory" storage backend.
package memory

import (
	"bytes"
	"context"
	"sync"

	"pagesmith.dev/engine/internal/application/ports"
)

// Store is an in-memory key/value backend.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ports.ErrBackendClosed
	}
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(value), true, nil
}

// Put stores every entry under one lock so readers never see a partial write.
func (s *Store) Put(ctx context.Context, entries ...ports.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.ErrBackendClosed
	}
	for _, e := range entries {
		s.data[e.Key] = bytes.Clone(e.Value)
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
