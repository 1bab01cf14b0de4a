package storage

import (
	"context"
	"sync"

	"github.com/itory/itory/internal/ports"
)

// MemoryStore is a process-local SnapshotStore
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ ports.SnapshotStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), payload...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
