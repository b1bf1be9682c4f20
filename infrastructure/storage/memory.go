package storage

import (
	"context"
	"io"
	"sync"

	"songarchive-backend/application/ports"
)

// MemoryStore keeps blobs in memory. It backs tests and local runs where
// no writable directory is available.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

var _ ports.ObjectStore = (*MemoryStore)(nil)

func (s *MemoryStore) Put(ctx context.Context, entityID, ext string, body io.Reader) (string, error) {
	name, err := objectName(entityID, ext)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[name] = data
	s.mu.Unlock()
	return name, nil
}

func (s *MemoryStore) Delete(ctx context.Context, entityID, ext string) error {
	name, err := objectName(entityID, ext)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()
	return nil
}

// Get returns a stored blob. Test helper.
func (s *MemoryStore) Get(entityID, ext string) ([]byte, bool) {
	name, err := objectName(entityID, ext)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[name]
	return data, ok
}
