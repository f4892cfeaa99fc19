package migrations

import (
	"context"
	"fmt"

	"matchup-forecast/internal/storage/postgres"
)

// RunPostgresMigrations creates the games, predictions and model tables.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	list, err := scripts(dialectPostgres)
	if err != nil {
		return err
	}
	for _, s := range list {
		if _, err := pool.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", s.name, err)
		}
	}
	return nil
}
