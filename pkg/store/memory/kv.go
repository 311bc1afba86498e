package memory

import (
	"context"
	"sync"
)

// KVStorage is an in-process store.KVStorage.
type KVStorage struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewKVStorage creates an empty in-memory key-value store.
func NewKVStorage() *KVStorage {
	return &KVStorage{data: make(map[string]map[string][]byte)}
}

// Get returns the value for (namespace, id), or (nil, nil) when absent.
func (s *KVStorage) Get(ctx context.Context, namespace, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[namespace][id]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, value...), nil
}

// Upsert stores the value under (namespace, id).
func (s *KVStorage) Upsert(ctx context.Context, namespace, id string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[namespace] == nil {
		s.data[namespace] = make(map[string][]byte)
	}
	s.data[namespace][id] = append([]byte{}, value...)
	return nil
}

// Delete removes (namespace, id). Deleting an absent key is not an error.
func (s *KVStorage) Delete(ctx context.Context, namespace, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[namespace], id)
	return nil
}

// List returns a copy of every record in the namespace.
func (s *KVStorage) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.data[namespace]))
	for id, value := range s.data[namespace] {
		out[id] = append([]byte{}, value...)
	}
	return out, nil
}
