package tagpoll

import (
	"errors"
	"sync"
)

// MemoryStore is an in-memory tag store. Seeded tags form the browsable
// hierarchy; writes may add bookkeeping tags next to seeded ones, as
// runtime tag providers do.
type MemoryStore struct {
	mu   sync.RWMutex
	tags map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tags: make(map[string]any)}
}

// Seed declares a tag with its default value.
func (s *MemoryStore) Seed(path string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[path] = value
}

var _ TagWriter = (*MemoryStore)(nil)
var _ TagIndex = (*MemoryStore)(nil)

func (s *MemoryStore) WriteTags(paths []string, values []any) error {
	if len(paths) != len(values) {
		return errors.New("tag paths and values length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, path := range paths {
		s.tags[path] = values[i]
	}
	return nil
}

func (s *MemoryStore) HasTag(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tags[path]
	return ok
}

func (s *MemoryStore) Read(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tags[path]
	return v, ok
}

// Len reports the number of known tags.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}
