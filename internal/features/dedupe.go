package features

import (
	"time"

	"matchup-forecast/internal/domain"
)

type gameKey struct {
	date time.Time
	home string
	away string
}

// Dedupe drops repeated (date, home_team, away_team) games, keeping the
// first occurrence. Feeds occasionally replay the same game.
func Dedupe(games []*domain.GameRecord) []*domain.GameRecord {
	seen := make(map[gameKey]struct{}, len(games))
	out := make([]*domain.GameRecord, 0, len(games))
	for _, g := range games {
		if g == nil {
			continue
		}
		k := gameKey{date: g.Date.UTC(), home: g.HomeTeam, away: g.AwayTeam}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, g)
	}
	return out
}
