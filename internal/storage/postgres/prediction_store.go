package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// PredictionStore implements storage.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *Pool
}

// NewPredictionStore creates a new PredictionStore.
func NewPredictionStore(pool *Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

var _ storage.PredictionStore = (*PredictionStore)(nil)

// InsertBulk stores rows for a generation in one transaction.
// Each call opens a new prediction run; earlier runs are kept.
func (s *PredictionStore) InsertBulk(ctx context.Context, generation string, rows []*domain.PredictionRow) error {
	if generation == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO predictions (
			run_id, position, home_team, away_team,
			predicted_winner, home_win_probability, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return s.pool.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var run int64
		err := tx.QueryRow(ctx,
			`INSERT INTO prediction_runs (generation) VALUES ($1) RETURNING id`, generation,
		).Scan(&run)
		if err != nil {
			return fmt.Errorf("open prediction run: %w", err)
		}

		for i, r := range rows {
			if r == nil {
				return storage.ErrInvalidInput
			}
			_, err := tx.Exec(ctx, query,
				run, i, r.HomeTeam, r.AwayTeam,
				r.PredictedWinner, r.HomeWinProbability, r.Confidence,
			)
			if err != nil {
				return writeErr("insert prediction in bulk", err)
			}
		}
		return nil
	})
}

// GetByGeneration retrieves the latest run in insertion order. Returns ErrNotFound if none exist.
func (s *PredictionStore) GetByGeneration(ctx context.Context, generation string) ([]*domain.PredictionRow, error) {
	query := `
		SELECT home_team, away_team, predicted_winner, home_win_probability, confidence
		FROM predictions
		WHERE run_id = (SELECT max(id) FROM prediction_runs WHERE generation = $1)
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query, generation)
	if err != nil {
		return nil, fmt.Errorf("get predictions by generation: %w", err)
	}
	defer rows.Close()

	var result []*domain.PredictionRow
	for rows.Next() {
		var r domain.PredictionRow
		if err := rows.Scan(&r.HomeTeam, &r.AwayTeam, &r.PredictedWinner, &r.HomeWinProbability, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prediction rows: %w", err)
	}

	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result, nil
}
