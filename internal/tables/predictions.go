package tables

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"matchup-forecast/internal/domain"
)

// PredictionColumns is the prediction table header.
var PredictionColumns = []string{"home_team", "away_team", "predicted_winner", "home_win_probability", "confidence"}

// MatchupColumns is the upcoming matchup table header. date is optional.
var MatchupColumns = []string{"date", "home_team", "away_team"}

// WritePredictions writes the prediction table in row order.
func WritePredictions(w io.Writer, rows []domain.PredictionRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.HomeTeam,
			r.AwayTeam,
			r.PredictedWinner,
			strconv.FormatFloat(r.HomeWinProbability, 'f', 2, 64),
			strconv.FormatFloat(r.Confidence, 'f', 1, 64),
		})
	}
	return writeAll(w, PredictionColumns, records)
}

// ReadMatchups parses upcoming matchups. A blank or absent date column
// yields a zero Date.
func ReadMatchups(r io.Reader) ([]domain.Matchup, error) {
	t, err := openTable(r, MatchupColumns[1:])
	if err != nil {
		return nil, err
	}

	out := make([]domain.Matchup, 0)
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		m := domain.Matchup{
			HomeTeam: strings.TrimSpace(rec["home_team"]),
			AwayTeam: strings.TrimSpace(rec["away_team"]),
		}
		if s := strings.TrimSpace(rec["date"]); s != "" {
			if m.Date, err = parseDate(s); err != nil {
				return nil, t.fail(err)
			}
		}
		out = append(out, m)
	}
}
