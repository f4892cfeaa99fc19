package prediction

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/features"
	"matchup-forecast/internal/fixtures"
	"matchup-forecast/internal/ml"
	"matchup-forecast/internal/storage/memory"
	"matchup-forecast/internal/training"
)

const testRounds = 20

type trainedEnv struct {
	models *memory.ModelStore
	games  *memory.GameStore
}

func setupTrained(t *testing.T) trainedEnv {
	t.Helper()
	ctx := context.Background()

	games, err := fixtures.Season(fixtures.DefaultTeams, testRounds, 5)
	require.NoError(t, err)
	gameStore := memory.NewGameStore()
	require.NoError(t, fixtures.Load(ctx, gameStore, games))

	rows, err := features.BuildFeatures(games)
	require.NoError(t, err)

	h := ml.DefaultHyperparameters(training.DefaultSeed)
	h.BoostRounds = 15
	h.ForestTrees = 10
	h.ForestMaxDepth = 5

	models := memory.NewModelStore()
	_, err = training.New(models).
		WithHyperparameters(h).
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }).
		Train(ctx, rows)
	require.NoError(t, err)

	return trainedEnv{models: models, games: gameStore}
}

func TestPredictor_EmptyMatchups(t *testing.T) {
	env := setupTrained(t)
	p := New(env.models, NewHistoryResolver(env.games))

	rows, err := p.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestPredictor_ForecastReportsServingGeneration(t *testing.T) {
	env := setupTrained(t)
	bundle, err := env.models.Load(context.Background())
	require.NoError(t, err)

	p := New(env.models, NewHistoryResolver(env.games))
	matchups := fixtures.Upcoming(fixtures.DefaultTeams, testRounds)
	f, err := p.Forecast(context.Background(), matchups)
	require.NoError(t, err)
	assert.Equal(t, bundle.Manifest.Generation, f.Generation)
	assert.Len(t, f.Rows, len(matchups))

	empty, err := p.Forecast(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, bundle.Manifest.Generation, empty.Generation)
	assert.Empty(t, empty.Rows)
}

func TestPredictor_NoGeneration(t *testing.T) {
	p := New(memory.NewModelStore(), PlaceholderResolver{})

	_, err := p.Predict(context.Background(), nil)
	assert.True(t, errors.Is(err, domain.ErrMissingArtifact))
}

func TestPredictor_MissingScaler(t *testing.T) {
	env := setupTrained(t)
	env.models.Remove(domain.ArtifactScaler)

	p := New(env.models, NewHistoryResolver(env.games))
	_, err := p.Predict(context.Background(), fixtures.Upcoming(fixtures.DefaultTeams, testRounds))

	var missing *domain.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, domain.ArtifactScaler, missing.Name)
	assert.True(t, errors.Is(err, domain.ErrMissingArtifact))
}

func TestPredictor_HistoryResolver(t *testing.T) {
	env := setupTrained(t)
	p := New(env.models, NewHistoryResolver(env.games))

	matchups := fixtures.Upcoming(fixtures.DefaultTeams, testRounds)
	rows, err := p.Predict(context.Background(), matchups)
	require.NoError(t, err)
	require.Len(t, rows, len(matchups))

	distinct := make(map[float64]struct{})
	for i, r := range rows {
		assert.Equal(t, matchups[i].HomeTeam, r.HomeTeam)
		assert.Equal(t, matchups[i].AwayTeam, r.AwayTeam)
		assert.GreaterOrEqual(t, r.HomeWinProbability, 0.0)
		assert.LessOrEqual(t, r.HomeWinProbability, 100.0)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 100.0)
		if r.HomeWinProbability > 50 {
			assert.Equal(t, domain.WinnerHome, r.PredictedWinner)
		} else if r.HomeWinProbability < 50 {
			assert.Equal(t, domain.WinnerAway, r.PredictedWinner)
		}
		distinct[r.HomeWinProbability] = struct{}{}
	}
	assert.Greater(t, len(distinct), 1, "history features should differ between home teams")
}

func TestPredictor_UnknownHomeTeam(t *testing.T) {
	env := setupTrained(t)
	p := New(env.models, NewHistoryResolver(env.games))

	_, err := p.Predict(context.Background(), []domain.Matchup{{HomeTeam: "Expansion", AwayTeam: "Hawks"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientData))
	assert.Contains(t, err.Error(), "Expansion")
}

func TestPredictor_EmptyTeamName(t *testing.T) {
	env := setupTrained(t)
	p := New(env.models, PlaceholderResolver{})

	_, err := p.Predict(context.Background(), []domain.Matchup{{HomeTeam: "Hawks"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPredictor_PlaceholderGivesSameForecastForAll(t *testing.T) {
	env := setupTrained(t)
	p := New(env.models, PlaceholderResolver{})

	rows, err := p.Predict(context.Background(), fixtures.Upcoming(fixtures.DefaultTeams, testRounds))
	require.NoError(t, err)
	for _, r := range rows[1:] {
		assert.Equal(t, rows[0].HomeWinProbability, r.HomeWinProbability)
	}
}

func TestPredictor_ConcurrentCalls(t *testing.T) {
	env := setupTrained(t)
	p := New(env.models, NewHistoryResolver(env.games))
	matchups := fixtures.Upcoming(fixtures.DefaultTeams, testRounds)

	want, err := p.Predict(context.Background(), matchups)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]domain.PredictionRow, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Predict(context.Background(), matchups)
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
}

func TestDerive(t *testing.T) {
	cases := []struct {
		p          float64
		winner     string
		prob, conf float64
	}{
		{0.5, domain.WinnerAway, 50, 0},
		{0.75, domain.WinnerHome, 75, 50},
		{0.25, domain.WinnerAway, 25, 50},
		{1, domain.WinnerHome, 100, 100},
		{0, domain.WinnerAway, 0, 100},
		{0.123456, domain.WinnerAway, 12.35, 75.3},
		{0.5000001, domain.WinnerHome, 50, 0},
	}
	for _, tc := range cases {
		got := Derive("H", "A", tc.p)
		assert.Equal(t, tc.winner, got.PredictedWinner, "p=%v", tc.p)
		assert.InDelta(t, tc.prob, got.HomeWinProbability, 1e-9, "p=%v", tc.p)
		assert.InDelta(t, tc.conf, got.Confidence, 1e-9, "p=%v", tc.p)
	}
}

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, 2.0, roundHalfEven(2.5, 0))
	assert.Equal(t, 4.0, roundHalfEven(3.5, 0))
	assert.Equal(t, 0.12, roundHalfEven(0.125, 2))
}

func TestDerive_ConfidenceMonotoneAndBounded(t *testing.T) {
	type point struct{ dist, conf float64 }
	var pts []point
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000
		r := Derive("H", "A", p)
		require.GreaterOrEqual(t, r.Confidence, 0.0)
		require.LessOrEqual(t, r.Confidence, 100.0)
		pts = append(pts, point{math.Abs(p - 0.5), r.Confidence})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].dist < pts[j].dist })
	for i := 1; i < len(pts); i++ {
		assert.GreaterOrEqual(t, pts[i].conf, pts[i-1].conf, "confidence decreased at distance %v", pts[i].dist)
	}
}
