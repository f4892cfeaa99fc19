package storage

import (
	"context"
	"time"

	"matchup-forecast/internal/domain"
)

// GameStore provides access to the raw game table.
type GameStore interface {
	// InsertBulk adds games atomically. Fails entire batch if any
	// (date, home_team, away_team) already exists.
	InsertBulk(ctx context.Context, games []*domain.GameRecord) error

	// GetAll retrieves every game ordered by date ASC, insertion order within a date.
	GetAll(ctx context.Context) ([]*domain.GameRecord, error)

	// GetBefore retrieves games dated strictly before t, ordered by date ASC.
	GetBefore(ctx context.Context, t time.Time) ([]*domain.GameRecord, error)
}

// FeatureStore provides access to the feature table.
type FeatureStore interface {
	// InsertBulk appends rows atomically. Fails entire batch on a duplicate
	// (team_name, date, is_home).
	InsertBulk(ctx context.Context, rows []*domain.FeatureRow) error

	// ReplaceAll discards the current table and stores rows in their given order.
	ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error

	// GetAll retrieves every row in stored order (date ASC).
	GetAll(ctx context.Context) ([]*domain.FeatureRow, error)

	// GetByTeam retrieves a team's rows ordered by date ASC.
	GetByTeam(ctx context.Context, team string) ([]*domain.FeatureRow, error)
}

// PredictionStore provides access to prediction tables. Every InsertBulk
// is a separate run under the generation that served it; earlier runs are
// kept.
type PredictionStore interface {
	// InsertBulk stores rows as a new run for generation.
	InsertBulk(ctx context.Context, generation string, rows []*domain.PredictionRow) error

	// GetByGeneration retrieves the latest run for generation in the order
	// its rows were inserted. Returns ErrNotFound if the generation has no
	// predictions.
	GetByGeneration(ctx context.Context, generation string) ([]*domain.PredictionRow, error)
}

// ModelStore persists trained artifact generations.
//
// Save makes a bundle visible all at once: a concurrent Load sees
// either the previous generation or the new one, never a mix.
type ModelStore interface {
	// Save validates and stores bundle as the current generation.
	Save(ctx context.Context, bundle *domain.ArtifactBundle) error

	// Load retrieves the current generation. Returns an error wrapping
	// domain.ErrMissingArtifact if no generation exists or a blob is absent.
	Load(ctx context.Context) (*domain.ArtifactBundle, error)
}
