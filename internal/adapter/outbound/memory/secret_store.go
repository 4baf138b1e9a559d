// Package memory provides in-memory implementations of outbound ports.
// For development and testing only.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSecretNotFound is returned when the named secret does not exist.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore implements outbound.SecretStore with an in-memory map.
// Thread-safe for concurrent access. It counts Fetch calls per key so tests
// can assert coalescing behavior.
type SecretStore struct {
	mu      sync.RWMutex
	secrets map[string]string
	fetches map[string]*atomic.Int64
}

// NewSecretStore creates an empty in-memory secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{
		secrets: make(map[string]string),
		fetches: make(map[string]*atomic.Int64),
	}
}

// Put stores a secret value under (name, region).
func (s *SecretStore) Put(name, region, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name+"\x00"+region] = value
}

// Fetch returns the stored value or ErrSecretNotFound.
func (s *SecretStore) Fetch(ctx context.Context, name, region string) (string, error) {
	key := name + "\x00" + region

	s.mu.Lock()
	counter, ok := s.fetches[key]
	if !ok {
		counter = &atomic.Int64{}
		s.fetches[key] = counter
	}
	value, found := s.secrets[key]
	s.mu.Unlock()

	counter.Add(1)
	if !found {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// FetchCount reports how many times Fetch was called for (name, region).
func (s *SecretStore) FetchCount(name, region string) int64 {
	s.mu.RLock()
	counter, ok := s.fetches[name+"\x00"+region]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return counter.Load()
}
