package securestore

import "sync"

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMem creates an empty in-memory store.
func NewMem() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

// Save stores a key-value pair.
func (s *MemStore) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Read returns the value for a key and whether it exists.
func (s *MemStore) Read(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Delete removes a key.
func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
