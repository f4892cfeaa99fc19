package tables

import (
	"errors"
	"io"
	"strings"

	"matchup-forecast/internal/domain"
)

// GameColumns is the raw game table header.
var GameColumns = []string{"date", "home_team", "away_team", "home_score", "away_score", "status"}

// ReadGames parses the raw game table. Blank or non-numeric scores are
// kept as nil; the feature builder drops those games. status is optional.
func ReadGames(r io.Reader) ([]*domain.GameRecord, error) {
	t, err := openTable(r, GameColumns[:5])
	if err != nil {
		return nil, err
	}

	games := make([]*domain.GameRecord, 0)
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return games, nil
		}
		if err != nil {
			return nil, err
		}

		date, err := parseDate(rec["date"])
		if err != nil {
			return nil, t.fail(err)
		}
		games = append(games, &domain.GameRecord{
			Date:      date,
			HomeTeam:  strings.TrimSpace(rec["home_team"]),
			AwayTeam:  strings.TrimSpace(rec["away_team"]),
			HomeScore: parseScore(rec["home_score"]),
			AwayScore: parseScore(rec["away_score"]),
			Status:    strings.TrimSpace(rec["status"]),
		})
	}
}

// WriteGames writes the raw game table. Missing scores are written blank.
func WriteGames(w io.Writer, games []*domain.GameRecord) error {
	records := make([][]string, 0, len(games))
	for _, g := range games {
		records = append(records, []string{
			g.Date.Format(DateLayout),
			g.HomeTeam,
			g.AwayTeam,
			formatScore(g.HomeScore),
			formatScore(g.AwayScore),
			g.Status,
		})
	}
	return writeAll(w, GameColumns, records)
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
