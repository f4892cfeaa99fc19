package features

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchup-forecast/internal/domain"
)

var day0 = time.Date(2024, 10, 22, 0, 0, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

func game(day int, home, away string, hs, as float64) *domain.GameRecord {
	return &domain.GameRecord{
		Date:      day0.AddDate(0, 0, day),
		HomeTeam:  home,
		AwayTeam:  away,
		HomeScore: score(hs),
		AwayScore: score(as),
		Status:    domain.GameStatusFinal,
	}
}

// singleTeamSeason gives "Hawks" 12 home games scoring 100+2i against 101.
func singleTeamSeason() []*domain.GameRecord {
	games := make([]*domain.GameRecord, 0, 12)
	for i := 0; i < 12; i++ {
		games = append(games, game(i, "Hawks", fmt.Sprintf("Opp%02d", i), float64(100+2*i), 101))
	}
	return games
}

// threeTeamSeason plays A-B, B-C, C-A six times: 12 games per team with
// alternating scores.
func threeTeamSeason() []*domain.GameRecord {
	pairs := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}
	var games []*domain.GameRecord
	for i := 0; i < 18; i++ {
		p := pairs[i%3]
		hs := 100.0 + float64(10*(i%2))
		as := 104.0 - float64(8*(i%2))
		games = append(games, game(i, p[0], p[1], hs, as))
	}
	return games
}

func rowsFor(rows []*domain.FeatureRow, team string) []*domain.FeatureRow {
	var out []*domain.FeatureRow
	for _, r := range rows {
		if r.TeamName == team {
			out = append(out, r)
		}
	}
	return out
}

func TestBuildFeatures_NilInput(t *testing.T) {
	_, err := BuildFeatures(nil)
	require.True(t, errors.Is(err, domain.ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
}

func TestBuildFeatures_EmptyAfterFiltering(t *testing.T) {
	games := []*domain.GameRecord{
		{Date: day0, HomeTeam: "A", AwayTeam: "B", Status: domain.GameStatusScheduled},
		{Date: day0, HomeTeam: "A", AwayTeam: "B", HomeScore: score(99)},
		nil,
	}

	rows, err := BuildFeatures(games)
	require.NoError(t, err)
	require.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestBuildFeatures_ExactRollingMeans(t *testing.T) {
	rows, err := BuildFeatures(singleTeamSeason())
	require.NoError(t, err)

	hawks := rowsFor(rows, "Hawks")
	require.Len(t, hawks, 11, "first game has no history and must be dropped")

	// hawks[k] is game k+1.
	assert.Equal(t, 100.0, hawks[0].Short.AvgPts, "2nd game sees only the 1st")
	assert.Equal(t, 101.0, hawks[0].Short.AvgPA)
	assert.Equal(t, 0.0, hawks[0].Short.WinRate, "100 < 101 is a loss")

	assert.Equal(t, 0.5, hawks[1].Short.WinRate)

	// Game 6: window holds games 1..5 -> 102..110.
	assert.Equal(t, 106.0, hawks[5].Short.AvgPts)
	assert.Equal(t, 1.0, hawks[5].Short.WinRate)
	// Game 6 long window holds games 0..5 -> 100..110.
	assert.Equal(t, 105.0, hawks[5].Long.AvgPts)

	// Game 11: short games 6..10 -> 112..120, long games 1..10 -> 102..120.
	assert.Equal(t, 116.0, hawks[10].Short.AvgPts)
	assert.Equal(t, 111.0, hawks[10].Long.AvgPts)
	assert.Equal(t, 1.0, hawks[10].Long.WinRate)

	// Outcome columns describe the row's own game.
	assert.Equal(t, 122.0, hawks[10].PointsFor)
	assert.True(t, hawks[10].WinFlag)
}

func TestBuildFeatures_DropsNonFiniteScores(t *testing.T) {
	clean := singleTeamSeason()
	want, err := BuildFeatures(clean)
	require.NoError(t, err)

	dirty := singleTeamSeason()
	bad := game(3, "Hawks", "Ghosts", math.NaN(), 101)
	inf := game(7, "Hawks", "Ghosts", 100, math.Inf(1))
	dirty = append(dirty, bad, inf)

	got, err := BuildFeatures(dirty)
	require.NoError(t, err)
	assert.Equal(t, want, got, "non-finite scores must be dropped like missing ones")
	for _, r := range got {
		for _, v := range r.Predictors() {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s %s", r.TeamName, r.Date)
		}
	}
}

func TestBuildFeatures_OpponentsWithSingleGameAreAbsent(t *testing.T) {
	rows, err := BuildFeatures(singleTeamSeason())
	require.NoError(t, err)

	for _, r := range rows {
		assert.Equal(t, "Hawks", r.TeamName, "one-game opponents have no history")
	}
}

func TestBuildFeatures_ThreeTeamScenario(t *testing.T) {
	games := threeTeamSeason()
	rows, err := BuildFeatures(games)
	require.NoError(t, err)

	for _, team := range []string{"A", "B", "C"} {
		teamRows := rowsFor(rows, team)
		require.Len(t, teamRows, 11, "team %s", team)

		// First game points for the team, looked up from the raw table.
		var first float64
		for _, g := range games {
			if g.HomeTeam == team {
				first = *g.HomeScore
				break
			}
			if g.AwayTeam == team {
				first = *g.AwayScore
				break
			}
		}
		assert.Equal(t, first, teamRows[0].Short.AvgPts, "team %s 2nd game", team)
	}
}

func TestBuildFeatures_NoLeakageFromCurrentOrLaterGames(t *testing.T) {
	base := singleTeamSeason()
	baseline, err := BuildFeatures(base)
	require.NoError(t, err)

	// Change game 7's score: rows for games <= 7 must not move.
	mutated := singleTeamSeason()
	mutated[7].HomeScore = score(200)
	changed, err := BuildFeatures(mutated)
	require.NoError(t, err)

	b := rowsFor(baseline, "Hawks")
	c := rowsFor(changed, "Hawks")
	require.Len(t, c, len(b))

	for k := range b {
		gameIdx := k + 1
		if gameIdx <= 7 {
			assert.Equal(t, b[k].Short, c[k].Short, "game %d features must not see game 7", gameIdx)
			assert.Equal(t, b[k].Long, c[k].Long, "game %d features must not see game 7", gameIdx)
		} else {
			assert.NotEqual(t, b[k].Long, c[k].Long, "game %d should see game 7", gameIdx)
		}
	}
}

func TestBuildFeatures_SortsUnorderedInput(t *testing.T) {
	ordered := singleTeamSeason()
	shuffled := []*domain.GameRecord{
		ordered[5], ordered[0], ordered[11], ordered[3], ordered[1], ordered[8],
		ordered[2], ordered[10], ordered[4], ordered[6], ordered[9], ordered[7],
	}

	want, err := BuildFeatures(ordered)
	require.NoError(t, err)
	got, err := BuildFeatures(shuffled)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Date.Before(got[i-1].Date), "rows out of order at %d", i)
	}
}

func TestBuildFeatures_Idempotent(t *testing.T) {
	games := threeTeamSeason()

	first, err := BuildFeatures(games)
	require.NoError(t, err)
	second, err := BuildFeatures(games)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildFeatures_DoesNotMutateInput(t *testing.T) {
	games := threeTeamSeason()
	firstDate := games[0].Date
	lastDate := games[len(games)-1].Date

	_, err := BuildFeatures(games)
	require.NoError(t, err)

	assert.Equal(t, firstDate, games[0].Date)
	assert.Equal(t, lastDate, games[len(games)-1].Date)
}

func TestBuildFeatures_TieIsLossForBoth(t *testing.T) {
	games := []*domain.GameRecord{
		game(0, "A", "B", 100, 100),
		game(1, "A", "B", 90, 80),
	}

	rows, err := BuildFeatures(games)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, r := range rows {
		assert.Equal(t, 0.0, r.Short.WinRate, "team %s", r.TeamName)
	}
}
