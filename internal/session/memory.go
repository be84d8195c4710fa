package session

import (
	"context"
	"sync"
)

// MemoryStorage keeps records in a map. State does not survive a
// restart; meant for tests and throwaway environments.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStorage) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[key] = stored
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
