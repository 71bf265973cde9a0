package memory

import (
	"sync"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Ensure SecureStore implements the interface.
var _ driven.SecureStore = (*SecureStore)(nil)

// SecureStore is an in-memory implementation of driven.SecureStore.
// Failure fields let tests inject errors.
type SecureStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	SetErr    error
	DeleteErr error
}

// NewSecureStore creates an empty in-memory secure store.
func NewSecureStore() *SecureStore {
	return &SecureStore{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (s *SecureStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (s *SecureStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (s *SecureStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *SecureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
