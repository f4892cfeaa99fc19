// Package fixtures generates deterministic synthetic game data for
// demos and tests.
package fixtures

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// DefaultTeams is the league used when no team list is given.
var DefaultTeams = []string{
	"Hawks", "Celtics", "Nets", "Hornets", "Bulls", "Cavaliers",
	"Mavericks", "Nuggets", "Pistons", "Warriors",
}

// SeasonStart is the first game day of a generated season.
var SeasonStart = time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC)

// Season generates rounds of games where each team plays once per day.
// Every team has a fixed strength, so outcomes carry signal. Pairings
// rotate with the circle method; home and away alternate by round.
// teams must have an even length of at least 2.
func Season(teams []string, rounds int, seed uint64) ([]*domain.GameRecord, error) {
	if len(teams) < 2 || len(teams)%2 != 0 {
		return nil, fmt.Errorf("%w: need an even number of teams, got %d", domain.ErrInvalidInput, len(teams))
	}
	if rounds <= 0 {
		return nil, fmt.Errorf("%w: rounds must be positive", domain.ErrInvalidInput)
	}

	rng := rand.New(rand.NewPCG(seed, 0x5eed))
	strength := make(map[string]float64, len(teams))
	for i, t := range teams {
		strength[t] = 8 * (float64(i)/float64(len(teams)-1) - 0.5)
	}

	order := append([]string(nil), teams...)
	n := len(order)
	games := make([]*domain.GameRecord, 0, rounds*n/2)

	for r := 0; r < rounds; r++ {
		date := SeasonStart.AddDate(0, 0, r)
		for i := 0; i < n/2; i++ {
			home, away := order[i], order[n-1-i]
			if r%2 == 1 {
				home, away = away, home
			}
			hs := score(rng, 110+strength[home]-strength[away]/2+2)
			as := score(rng, 110+strength[away]-strength[home]/2)
			games = append(games, &domain.GameRecord{
				Date:      date,
				HomeTeam:  home,
				AwayTeam:  away,
				HomeScore: &hs,
				AwayScore: &as,
				Status:    domain.GameStatusFinal,
			})
		}
		// Rotate all but the first slot.
		last := order[n-1]
		copy(order[2:], order[1:n-1])
		order[1] = last
	}
	return games, nil
}

// Upcoming returns the next round of unplayed matchups after a season
// of the given length.
func Upcoming(teams []string, rounds int) []domain.Matchup {
	date := SeasonStart.AddDate(0, 0, rounds)
	out := make([]domain.Matchup, 0, len(teams)/2)
	for i := 0; i+1 < len(teams); i += 2 {
		out = append(out, domain.Matchup{Date: date, HomeTeam: teams[i], AwayTeam: teams[i+1]})
	}
	return out
}

// Load inserts games into store.
func Load(ctx context.Context, store storage.GameStore, games []*domain.GameRecord) error {
	if err := store.InsertBulk(ctx, games); err != nil {
		return fmt.Errorf("load fixture games: %w", err)
	}
	return nil
}

func score(rng *rand.Rand, mean float64) float64 {
	return math.Round(mean + 11*rng.NormFloat64())
}
