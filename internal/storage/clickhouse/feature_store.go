package clickhouse

import (
	"context"
	"fmt"
	"time"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// FeatureStore implements storage.FeatureStore using ClickHouse.
// Rows carry a seq column so reads return them in the order they were written.
type FeatureStore struct {
	conn *Conn
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn) *FeatureStore {
	return &FeatureStore{conn: conn}
}

var _ storage.FeatureStore = (*FeatureStore)(nil)

const featureColumns = `
	game_date, team_name, is_home,
	avg_pts_5, avg_pa_5, win_rate_5,
	avg_pts_10, avg_pa_10, win_rate_10,
	points_for, points_against, win_flag`

type featureKey struct {
	team   string
	date   int64
	isHome bool
}

// InsertBulk appends rows. Fails entire batch on duplicate (team_name, date, is_home).
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
func (s *FeatureStore) InsertBulk(ctx context.Context, rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[featureKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TeamName == "" {
			return storage.ErrInvalidInput
		}
		k := featureKey{r.TeamName, r.Date.UnixMilli(), r.IsHome}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, r := range rows {
		exists, err := s.exists(ctx, r)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	next, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}
	return s.send(ctx, rows, next)
}

// ReplaceAll truncates the table and writes rows with seq starting at zero.
// The table is briefly empty between the two steps.
func (s *FeatureStore) ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error {
	for _, r := range rows {
		if r == nil || r.TeamName == "" {
			return storage.ErrInvalidInput
		}
	}
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE IF EXISTS feature_rows`); err != nil {
		return fmt.Errorf("truncate feature rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return s.send(ctx, rows, 0)
}

// GetAll retrieves every row in stored order.
func (s *FeatureStore) GetAll(ctx context.Context) ([]*domain.FeatureRow, error) {
	query := `SELECT ` + featureColumns + ` FROM feature_rows ORDER BY seq ASC`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query feature rows: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetByTeam retrieves a team's rows ordered by date ASC.
func (s *FeatureStore) GetByTeam(ctx context.Context, team string) ([]*domain.FeatureRow, error) {
	query := `SELECT ` + featureColumns + ` FROM feature_rows WHERE team_name = ? ORDER BY game_date ASC, seq ASC`

	rows, err := s.conn.Query(ctx, query, team)
	if err != nil {
		return nil, fmt.Errorf("query feature rows by team: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

func (s *FeatureStore) send(ctx context.Context, rows []*domain.FeatureRow, seq uint64) error {
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO feature_rows (seq, `+featureColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, r := range rows {
		err = batch.Append(
			seq+uint64(i), r.Date.UTC(), r.TeamName, boolToUint8(r.IsHome),
			r.Short.AvgPts, r.Short.AvgPA, r.Short.WinRate,
			r.Long.AvgPts, r.Long.AvgPA, r.Long.WinRate,
			r.PointsFor, r.PointsAgainst, boolToUint8(r.WinFlag),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *FeatureStore) exists(ctx context.Context, r *domain.FeatureRow) (bool, error) {
	query := `
		SELECT count() FROM feature_rows
		WHERE team_name = ? AND game_date = ? AND is_home = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, r.TeamName, r.Date.UTC(), boolToUint8(r.IsHome)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *FeatureStore) nextSeq(ctx context.Context) (uint64, error) {
	var count, maxSeq uint64
	err := s.conn.QueryRow(ctx, `SELECT count(), max(seq) FROM feature_rows`).Scan(&count, &maxSeq)
	if err != nil {
		return 0, fmt.Errorf("read next seq: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	return maxSeq + 1, nil
}

func scanFeatureRows(rows chRows) ([]*domain.FeatureRow, error) {
	var result []*domain.FeatureRow

	for rows.Next() {
		var (
			r               domain.FeatureRow
			date            time.Time
			isHome, winFlag uint8
		)
		err := rows.Scan(
			&date, &r.TeamName, &isHome,
			&r.Short.AvgPts, &r.Short.AvgPA, &r.Short.WinRate,
			&r.Long.AvgPts, &r.Long.AvgPA, &r.Long.WinRate,
			&r.PointsFor, &r.PointsAgainst, &winFlag,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		r.Date = date.UTC()
		r.IsHome = isHome == 1
		r.WinFlag = winFlag == 1
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return result, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
