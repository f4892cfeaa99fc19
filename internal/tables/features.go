package tables

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"matchup-forecast/internal/domain"
)

// FeatureColumns is the feature table header.
var FeatureColumns = []string{
	"date", "team_name", "is_home",
	"avg_pts_5", "avg_pa_5", "win_rate_5",
	"avg_pts_10", "avg_pa_10", "win_rate_10",
	"points_for", "points_against", "win_flag",
}

// WriteFeatures writes the feature table. Floats use the shortest exact
// representation so ReadFeatures reproduces them bit for bit.
func WriteFeatures(w io.Writer, rows []*domain.FeatureRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Date.Format(DateLayout),
			r.TeamName,
			formatBool(r.IsHome),
			formatFloat(r.Short.AvgPts),
			formatFloat(r.Short.AvgPA),
			formatFloat(r.Short.WinRate),
			formatFloat(r.Long.AvgPts),
			formatFloat(r.Long.AvgPA),
			formatFloat(r.Long.WinRate),
			formatFloat(r.PointsFor),
			formatFloat(r.PointsAgainst),
			formatBool(r.WinFlag),
		})
	}
	return writeAll(w, FeatureColumns, records)
}

// ReadFeatures parses a feature table. Every cell is required.
func ReadFeatures(r io.Reader) ([]*domain.FeatureRow, error) {
	t, err := openTable(r, FeatureColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]*domain.FeatureRow, 0)
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row, err := featureRow(rec)
		if err != nil {
			return nil, t.fail(err)
		}
		rows = append(rows, row)
	}
}

func featureRow(rec map[string]string) (*domain.FeatureRow, error) {
	date, err := parseDate(rec["date"])
	if err != nil {
		return nil, err
	}
	isHome, err := parseBool(rec["is_home"])
	if err != nil {
		return nil, fmt.Errorf("is_home: %w", err)
	}
	win, err := parseBool(rec["win_flag"])
	if err != nil {
		return nil, fmt.Errorf("win_flag: %w", err)
	}

	var vals [8]float64
	for i, col := range FeatureColumns[3:11] {
		if vals[i], err = parseFloat(rec[col]); err != nil {
			return nil, fmt.Errorf("%s: %w", col, err)
		}
	}

	return &domain.FeatureRow{
		Date:          date,
		TeamName:      strings.TrimSpace(rec["team_name"]),
		IsHome:        isHome,
		Short:         domain.WindowStats{AvgPts: vals[0], AvgPA: vals[1], WinRate: vals[2]},
		Long:          domain.WindowStats{AvgPts: vals[3], AvgPA: vals[4], WinRate: vals[5]},
		PointsFor:     vals[6],
		PointsAgainst: vals[7],
		WinFlag:       win,
	}, nil
}
