package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// GameStore implements storage.GameStore using PostgreSQL.
type GameStore struct {
	pool *Pool
}

// NewGameStore creates a new GameStore.
func NewGameStore(pool *Pool) *GameStore {
	return &GameStore{pool: pool}
}

var _ storage.GameStore = (*GameStore)(nil)

const gameColumns = `game_date, home_team, away_team, home_score, away_score, status`

// InsertBulk adds games atomically. Fails entire batch on any duplicate.
func (s *GameStore) InsertBulk(ctx context.Context, games []*domain.GameRecord) error {
	if len(games) == 0 {
		return nil
	}

	query := `INSERT INTO games (` + gameColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	return s.pool.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, g := range games {
			if g == nil || g.HomeTeam == "" || g.AwayTeam == "" {
				return storage.ErrInvalidInput
			}
			_, err := tx.Exec(ctx, query,
				g.Date.UTC(), g.HomeTeam, g.AwayTeam, g.HomeScore, g.AwayScore, g.Status,
			)
			if err != nil {
				return writeErr("insert game in bulk", err)
			}
		}
		return nil
	})
}

// GetAll retrieves every game ordered by date ASC, insertion order within a date.
func (s *GameStore) GetAll(ctx context.Context) ([]*domain.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY game_date ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GetBefore retrieves games dated strictly before t.
func (s *GameStore) GetBefore(ctx context.Context, t time.Time) ([]*domain.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_date < $1 ORDER BY game_date ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, t.UTC())
	if err != nil {
		return nil, fmt.Errorf("get games before %s: %w", t.Format(time.DateOnly), err)
	}
	defer rows.Close()

	return scanGames(rows)
}

func scanGames(rows pgx.Rows) ([]*domain.GameRecord, error) {
	var games []*domain.GameRecord

	for rows.Next() {
		var g domain.GameRecord
		if err := rows.Scan(&g.Date, &g.HomeTeam, &g.AwayTeam, &g.HomeScore, &g.AwayScore, &g.Status); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		g.Date = g.Date.UTC()
		games = append(games, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game rows: %w", err)
	}
	return games, nil
}
