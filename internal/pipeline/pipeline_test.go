package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/fixtures"
	"matchup-forecast/internal/ml"
	"matchup-forecast/internal/observability"
	"matchup-forecast/internal/prediction"
	"matchup-forecast/internal/storage/memory"
	"matchup-forecast/internal/tables"
	"matchup-forecast/internal/training"
)

const testRounds = 20

var testNow = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	games       *memory.GameStore
	feats       *memory.FeatureStore
	models      *memory.ModelStore
	predictions *memory.PredictionStore
	metrics     *observability.Metrics
	pipeline    *Pipeline
}

func newTestEnv(t *testing.T, outputDir string) *testEnv {
	t.Helper()
	env := &testEnv{
		games:       memory.NewGameStore(),
		feats:       memory.NewFeatureStore(),
		models:      memory.NewModelStore(),
		predictions: memory.NewPredictionStore(),
		metrics:     observability.NewMetrics("test", prometheus.NewRegistry()),
	}

	h := ml.DefaultHyperparameters(training.DefaultSeed)
	h.BoostRounds = 15
	h.ForestTrees = 10
	h.ForestMaxDepth = 5
	clock := func() time.Time { return testNow }
	trainer := training.New(env.models).
		WithHyperparameters(h).
		WithClock(clock).
		WithGenerationFunc(func() string { return "gen-test" })

	env.pipeline = New(env.games, env.feats, env.models).
		WithPredictionStore(env.predictions).
		WithTrainer(trainer).
		WithOutputDir(outputDir).
		WithClock(clock).
		WithMetrics(env.metrics)
	return env
}

func season(t *testing.T) []*domain.GameRecord {
	t.Helper()
	games, err := fixtures.Season(fixtures.DefaultTeams, testRounds, 3)
	require.NoError(t, err)
	return games
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir)
	games := season(t)
	matchups := fixtures.Upcoming(fixtures.DefaultTeams, testRounds)

	res, err := env.pipeline.Run(context.Background(), games, matchups)
	require.NoError(t, err)

	assert.Equal(t, len(games), res.GamesIngested)
	// Every team loses its first game to undefined trailing stats.
	assert.Equal(t, 2*len(games)-len(fixtures.DefaultTeams), res.FeatureRows)
	assert.Len(t, res.FeatureDigest, 64)
	assert.Equal(t, "gen-test", res.Generation)
	require.Len(t, res.Predictions, len(matchups))

	stored, err := env.predictions.GetByGeneration(context.Background(), "gen-test")
	require.NoError(t, err)
	assert.Len(t, stored, len(matchups))

	for _, name := range []string{FeaturesFile, PredictionsFile, ReportFile, MetricsFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(filepath.Join(dir, FeaturesFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := tables.ReadFeatures(f)
	require.NoError(t, err)
	assert.Len(t, rows, res.FeatureRows)

	md, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(md), "Generation: `gen-test`")
	assert.Contains(t, string(md), "## Predictions")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PipelineRunsTotal.WithLabelValues(StageTrain, "success")))
	assert.Equal(t, float64(len(matchups)), testutil.ToFloat64(env.metrics.PredictionsServed.WithLabelValues(domain.WinnerHome))+
		testutil.ToFloat64(env.metrics.PredictionsServed.WithLabelValues(domain.WinnerAway)))
}

func TestPipeline_IngestSkipsKnownGames(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	games := season(t)

	n, err := env.pipeline.Ingest(ctx, games[:10])
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	// Overlapping batch with an in-batch repeat.
	batch := append(append([]*domain.GameRecord{}, games[5:15]...), games[12])
	n, err = env.pipeline.Ingest(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	stored, err := env.games.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 15)

	n, err = env.pipeline.Ingest(ctx, games[:15])
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPipeline_BuildFeaturesIdempotent(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	_, err := env.pipeline.Ingest(ctx, season(t))
	require.NoError(t, err)

	rows1, digest1, err := env.pipeline.BuildFeatures(ctx)
	require.NoError(t, err)
	rows2, digest2, err := env.pipeline.BuildFeatures(ctx)
	require.NoError(t, err)

	assert.Equal(t, rows1, rows2)
	assert.Equal(t, digest1, digest2)

	stored, err := env.feats.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, len(rows1), "rebuild replaces rather than appends")
}

func TestPipeline_PredictRepeatedlyOnOneGeneration(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	matchups := fixtures.Upcoming(fixtures.DefaultTeams, testRounds)

	_, err := env.pipeline.Run(ctx, season(t), matchups)
	require.NoError(t, err)

	first, err := env.pipeline.Predict(ctx, matchups)
	require.NoError(t, err)
	require.Len(t, first, len(matchups))

	second, err := env.pipeline.Predict(ctx, matchups[:1])
	require.NoError(t, err, "a second run against the same generation must succeed")
	require.Len(t, second, 1)

	stored, err := env.predictions.GetByGeneration(ctx, "gen-test")
	require.NoError(t, err)
	require.Len(t, stored, 1, "the latest run is served")
	assert.Equal(t, second[0], *stored[0])
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.PipelineRunsTotal.WithLabelValues(StagePredict, "success")))
}

func TestPipeline_TrainWithoutFeatures(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.pipeline.Train(context.Background())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PipelineRunsTotal.WithLabelValues(StageTrain, "failure")))
}

func TestPipeline_PredictWithoutGeneration(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.pipeline.Predict(context.Background(), fixtures.Upcoming(fixtures.DefaultTeams, 1))
	assert.ErrorIs(t, err, domain.ErrMissingArtifact)
}

func TestPipeline_PlaceholderResolver(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir)
	env.pipeline.WithResolver(prediction.PlaceholderResolver{})

	res, err := env.pipeline.Run(context.Background(), season(t), fixtures.Upcoming(fixtures.DefaultTeams, testRounds))
	require.NoError(t, err)
	for _, r := range res.Predictions {
		assert.Equal(t, res.Predictions[0].HomeWinProbability, r.HomeWinProbability)
	}

	out, err := os.ReadFile(filepath.Join(dir, PredictionsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, strings.Join(tables.PredictionColumns, ","), lines[0])
	assert.Len(t, lines, len(res.Predictions)+1)
}

func TestPipeline_NoOutputDir(t *testing.T) {
	env := newTestEnv(t, "")

	res, err := env.pipeline.Run(context.Background(), season(t), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Predictions)
	assert.NotNil(t, res.Report)
}
