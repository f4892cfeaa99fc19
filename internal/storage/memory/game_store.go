package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

type gameKey struct {
	date int64
	home string
	away string
}

// GameStore is an in-memory implementation of storage.GameStore.
type GameStore struct {
	mu    sync.RWMutex
	games []*domain.GameRecord // insertion order
	keys  map[gameKey]struct{}
}

// NewGameStore creates a new in-memory game store.
func NewGameStore() *GameStore {
	return &GameStore{keys: make(map[gameKey]struct{})}
}

func keyOf(g *domain.GameRecord) gameKey {
	return gameKey{date: g.Date.UTC().UnixNano(), home: g.HomeTeam, away: g.AwayTeam}
}

// InsertBulk adds games atomically. Fails entire batch on any duplicate.
func (s *GameStore) InsertBulk(_ context.Context, games []*domain.GameRecord) error {
	if len(games) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[gameKey]struct{}, len(games))
	for _, g := range games {
		if g == nil || g.HomeTeam == "" || g.AwayTeam == "" {
			return storage.ErrInvalidInput
		}
		k := keyOf(g)
		if _, exists := s.keys[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[k]; exists {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, g := range games {
		s.keys[keyOf(g)] = struct{}{}
		s.games = append(s.games, copyGame(g))
	}
	return nil
}

// GetAll retrieves every game ordered by date ASC, insertion order within a date.
func (s *GameStore) GetAll(_ context.Context) ([]*domain.GameRecord, error) {
	return s.filter(func(*domain.GameRecord) bool { return true }), nil
}

// GetBefore retrieves games dated strictly before t.
func (s *GameStore) GetBefore(_ context.Context, t time.Time) ([]*domain.GameRecord, error) {
	return s.filter(func(g *domain.GameRecord) bool { return g.Date.Before(t) }), nil
}

func (s *GameStore) filter(keep func(*domain.GameRecord) bool) []*domain.GameRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.GameRecord
	for _, g := range s.games {
		if keep(g) {
			result = append(result, copyGame(g))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func copyGame(g *domain.GameRecord) *domain.GameRecord {
	c := *g
	if g.HomeScore != nil {
		v := *g.HomeScore
		c.HomeScore = &v
	}
	if g.AwayScore != nil {
		v := *g.AwayScore
		c.AwayScore = &v
	}
	return &c
}

var _ storage.GameStore = (*GameStore)(nil)
