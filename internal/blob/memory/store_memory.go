package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/cheya01/facial-recog-poc-server/internal/blob"
)

const refPrefix = "mem://"

// InMemory keeps blobs in a map. Used in development and tests.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string][]byte)}
}

func (s *InMemory) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return refPrefix + key, nil
}

func (s *InMemory) Get(_ context.Context, ref string) ([]byte, error) {
	key, ok := strings.CutPrefix(ref, refPrefix)
	if !ok || key == "" {
		return nil, blob.ErrBlobNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, blob.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes a blob; tests use it to simulate a vanished reference image.
func (s *InMemory) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
}

// Keys lists stored keys.
func (s *InMemory) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys
}
