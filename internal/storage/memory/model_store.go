package memory

import (
	"bytes"
	"context"
	"sync"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// ModelStore is an in-memory implementation of storage.ModelStore.
// It keeps only the current generation.
type ModelStore struct {
	mu      sync.RWMutex
	current *domain.ArtifactBundle
}

// NewModelStore creates a new in-memory model store.
func NewModelStore() *ModelStore {
	return &ModelStore{}
}

// Save validates bundle and replaces the current generation.
func (s *ModelStore) Save(_ context.Context, bundle *domain.ArtifactBundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	c := copyBundle(bundle)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = c
	return nil
}

// Load retrieves a copy of the current generation.
func (s *ModelStore) Load(_ context.Context) (*domain.ArtifactBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, storage.NoGenerationError()
	}
	if err := s.current.Validate(); err != nil {
		return nil, err
	}
	return copyBundle(s.current), nil
}

// Remove deletes one artifact from the current generation. Tests use it
// to simulate a damaged store.
func (s *ModelStore) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		delete(s.current.Artifacts, name)
	}
}

func copyBundle(b *domain.ArtifactBundle) *domain.ArtifactBundle {
	c := &domain.ArtifactBundle{
		Manifest:  b.Manifest,
		Artifacts: make(map[string]*domain.Artifact, len(b.Artifacts)),
	}
	for name, a := range b.Artifacts {
		ac := *a
		ac.Payload = bytes.Clone(a.Payload)
		c.Artifacts[name] = &ac
	}
	return c
}

var _ storage.ModelStore = (*ModelStore)(nil)
