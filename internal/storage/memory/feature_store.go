package memory

import (
	"context"
	"sort"
	"sync"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

type featureKey struct {
	team   string
	date   int64
	isHome bool
}

// FeatureStore is an in-memory implementation of storage.FeatureStore.
type FeatureStore struct {
	mu   sync.RWMutex
	rows []*domain.FeatureRow
	keys map[featureKey]struct{}
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{keys: make(map[featureKey]struct{})}
}

func featureKeyOf(r *domain.FeatureRow) featureKey {
	return featureKey{team: r.TeamName, date: r.Date.UTC().UnixNano(), isHome: r.IsHome}
}

// InsertBulk appends rows atomically. Fails entire batch on any duplicate.
func (s *FeatureStore) InsertBulk(_ context.Context, rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[featureKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TeamName == "" {
			return storage.ErrInvalidInput
		}
		k := featureKeyOf(r)
		if _, exists := s.keys[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[k]; exists {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, r := range rows {
		c := *r
		s.keys[featureKeyOf(r)] = struct{}{}
		s.rows = append(s.rows, &c)
	}
	return nil
}

// ReplaceAll swaps in rows as the whole table.
func (s *FeatureStore) ReplaceAll(_ context.Context, rows []*domain.FeatureRow) error {
	fresh := make([]*domain.FeatureRow, 0, len(rows))
	keys := make(map[featureKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TeamName == "" {
			return storage.ErrInvalidInput
		}
		k := featureKeyOf(r)
		if _, exists := keys[k]; exists {
			return storage.ErrDuplicateKey
		}
		keys[k] = struct{}{}
		c := *r
		fresh = append(fresh, &c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = fresh
	s.keys = keys
	return nil
}

// GetAll retrieves every row in stored order.
func (s *FeatureStore) GetAll(_ context.Context) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FeatureRow, len(s.rows))
	for i, r := range s.rows {
		c := *r
		result[i] = &c
	}
	return result, nil
}

// GetByTeam retrieves a team's rows ordered by date ASC.
func (s *FeatureStore) GetByTeam(_ context.Context, team string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.rows {
		if r.TeamName == team {
			c := *r
			result = append(result, &c)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

var _ storage.FeatureStore = (*FeatureStore)(nil)
