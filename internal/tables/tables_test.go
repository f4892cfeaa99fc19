package tables

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/features"
	"matchup-forecast/internal/fixtures"
)

func TestReadGames(t *testing.T) {
	input := `date,home_team,away_team,home_score,away_score,status
2023-10-24,Hawks,Bulls,110,101,Final
20231025,Bulls,Nets,,,Scheduled
2023-10-26T19:30:00Z,Nets,Hawks,N/A,99,Final
"2023-10-27 20:00:00",Hawks,Nets,98.5,97,Final
`
	games, err := ReadGames(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, games, 4)

	assert.Equal(t, time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC), games[0].Date)
	assert.Equal(t, "Hawks", games[0].HomeTeam)
	require.NotNil(t, games[0].HomeScore)
	assert.Equal(t, 110.0, *games[0].HomeScore)
	assert.Equal(t, "Final", games[0].Status)

	assert.Equal(t, time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC), games[1].Date)
	assert.Nil(t, games[1].HomeScore)
	assert.Nil(t, games[1].AwayScore)

	assert.Nil(t, games[2].HomeScore, "non-numeric score should be nil")
	require.NotNil(t, games[2].AwayScore)
	assert.Equal(t, time.Date(2023, 10, 26, 19, 30, 0, 0, time.UTC), games[2].Date)

	assert.Equal(t, 98.5, *games[3].HomeScore)
}

func TestReadGames_NonFiniteScoresAreMissing(t *testing.T) {
	input := `date,home_team,away_team,home_score,away_score
2024-01-01,A,B,NaN,90
2024-01-02,B,A,Inf,90
2024-01-03,A,B,95,-Inf
2024-01-04,B,A,nan,+infinity
`
	games, err := ReadGames(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, games, 4)

	assert.Nil(t, games[0].HomeScore)
	assert.Equal(t, 90.0, *games[0].AwayScore)
	assert.Nil(t, games[1].HomeScore)
	assert.Nil(t, games[2].AwayScore)
	assert.Nil(t, games[3].HomeScore)
	assert.Nil(t, games[3].AwayScore)
	for _, g := range games {
		assert.False(t, g.HasScores(), g.Date)
	}
}

func TestReadGames_NaNScoreDoesNotReachFeatures(t *testing.T) {
	input := `date,home_team,away_team,home_score,away_score
2024-01-01,A,B,90,85
2024-01-02,B,A,88,95
2024-01-03,A,B,NaN,92.5
2024-01-04,B,A,80,99
`
	games, err := ReadGames(strings.NewReader(input))
	require.NoError(t, err)

	rows, err := features.BuildFeatures(games)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		for _, v := range r.Predictors() {
			assert.False(t, math.IsNaN(v), "team=%s date=%s predictors=%v", r.TeamName, r.Date, r.Predictors())
		}
		assert.False(t, math.IsNaN(r.PointsFor))
		assert.False(t, math.IsNaN(r.PointsAgainst))
	}
}

func TestReadGames_StatusOptional(t *testing.T) {
	games, err := ReadGames(strings.NewReader("home_team,away_team,date,home_score,away_score\nA,B,2024-01-01,1,2\n"))
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "A", games[0].HomeTeam)
	assert.Empty(t, games[0].Status)
}

func TestReadGames_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "date,home_team,away_team,home_score\n"},
		{"bad date", "date,home_team,away_team,home_score,away_score\nyesterday,A,B,1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGames(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestGames_RoundTrip(t *testing.T) {
	games, err := fixtures.Season(fixtures.DefaultTeams[:4], 3, 1)
	require.NoError(t, err)
	games[0].HomeScore = nil

	var buf bytes.Buffer
	require.NoError(t, WriteGames(&buf, games))

	got, err := ReadGames(&buf)
	require.NoError(t, err)
	assert.Equal(t, games, got)
}

func TestFeatures_RoundTrip(t *testing.T) {
	games, err := fixtures.Season(fixtures.DefaultTeams, 12, 9)
	require.NoError(t, err)
	rows, err := features.BuildFeatures(games)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var buf bytes.Buffer
	require.NoError(t, WriteFeatures(&buf, rows))

	header, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, strings.Join(FeatureColumns, ","), header)

	got, err := ReadFeatures(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadFeatures_BadCell(t *testing.T) {
	input := strings.Join(FeatureColumns, ",") + "\n2024-01-01,A,yes,1,1,1,1,1,1,1,1,0\n"
	_, err := ReadFeatures(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "is_home")
}

func TestWritePredictions(t *testing.T) {
	rows := []domain.PredictionRow{
		{HomeTeam: "Hawks", AwayTeam: "Bulls", PredictedWinner: domain.WinnerHome, HomeWinProbability: 61.5, Confidence: 23},
		{HomeTeam: "Nets", AwayTeam: "Suns", PredictedWinner: domain.WinnerAway, HomeWinProbability: 40.12, Confidence: 19.8},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePredictions(&buf, rows))

	want := "home_team,away_team,predicted_winner,home_win_probability,confidence\n" +
		"Hawks,Bulls,HOME,61.50,23.0\n" +
		"Nets,Suns,AWAY,40.12,19.8\n"
	assert.Equal(t, want, buf.String())
}

func TestReadMatchups(t *testing.T) {
	input := "home_team,away_team,date\nHawks,Bulls,2024-02-01\nNets,Suns,\n"
	got, err := ReadMatchups(strings.NewReader(input))
	require.NoError(t, err)

	want := []domain.Matchup{
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), HomeTeam: "Hawks", AwayTeam: "Bulls"},
		{HomeTeam: "Nets", AwayTeam: "Suns"},
	}
	assert.Equal(t, want, got)
}
