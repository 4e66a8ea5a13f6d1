package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type memoryObject struct {
	data      []byte
	mediaType string
}

// MemoryStore is the default preview store for single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64, mediaType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("short object: want %d bytes, got %d", size, len(data))
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, mediaType: mediaType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Object{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), Object{
		Key:       key,
		MediaType: obj.mediaType,
		Size:      int64(len(obj.data)),
	}, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Len reports how many previews are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
