package memory

import (
	"context"
	"sync"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// PredictionStore is an in-memory implementation of storage.PredictionStore.
type PredictionStore struct {
	mu   sync.RWMutex
	data map[string][][]domain.PredictionRow // runs keyed by generation, oldest first
}

// NewPredictionStore creates a new in-memory prediction store.
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{data: make(map[string][][]domain.PredictionRow)}
}

// InsertBulk stores rows as a new run for generation.
func (s *PredictionStore) InsertBulk(_ context.Context, generation string, rows []*domain.PredictionRow) error {
	if generation == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	stored := make([]domain.PredictionRow, len(rows))
	for i, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
		stored[i] = *r
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[generation] = append(s.data[generation], stored)
	return nil
}

// GetByGeneration retrieves the latest run in insertion order. Returns ErrNotFound if none exist.
func (s *PredictionStore) GetByGeneration(_ context.Context, generation string) ([]*domain.PredictionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.data[generation]
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	stored := runs[len(runs)-1]

	result := make([]*domain.PredictionRow, len(stored))
	for i := range stored {
		c := stored[i]
		result[i] = &c
	}
	return result, nil
}

var _ storage.PredictionStore = (*PredictionStore)(nil)
