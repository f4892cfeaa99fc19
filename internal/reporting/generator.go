package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	gameStore       storage.GameStore
	featureStore    storage.FeatureStore
	modelStore      storage.ModelStore
	predictionStore storage.PredictionStore
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. predictionStore may be nil.
func NewGenerator(
	gameStore storage.GameStore,
	featureStore storage.FeatureStore,
	modelStore storage.ModelStore,
	predictionStore storage.PredictionStore,
) *Generator {
	return &Generator{
		gameStore:       gameStore,
		featureStore:    featureStore,
		modelStore:      modelStore,
		predictionStore: predictionStore,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for the current model generation.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	bundle, err := g.modelStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current generation: %w", err)
	}
	m := bundle.Manifest

	summary, err := g.generateDataSummary(ctx)
	if err != nil {
		return nil, err
	}

	predictions, err := g.generatePredictions(ctx, m.Generation)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Generation:  m.Generation,
		TrainedAt:   m.TrainedAt,
		Seed:        m.Seed,
		Folds:       m.Folds,
		ScalerFit:   m.ScalerFit,
		DataSummary: *summary,
		DataQuality: CheckSufficiency(m.Split, m.Folds),
		Split: SplitRow{
			TrainRows:  m.Split.TrainRows,
			TestRows:   m.Split.TestRows,
			TrainStart: m.Split.TrainStart,
			TrainEnd:   m.Split.TrainEnd,
			TestStart:  m.Split.TestStart,
			TestEnd:    m.Split.TestEnd,
		},
		Metrics: []MetricRow{
			{Name: "accuracy", Value: m.Metrics.Accuracy},
			{Name: "auc", Value: m.Metrics.AUC},
			{Name: "f1", Value: m.Metrics.F1},
		},
		Predictions: predictions,
	}, nil
}

// generateDataSummary counts stored games and feature rows.
func (g *Generator) generateDataSummary(ctx context.Context) (*DataSummary, error) {
	games, err := g.gameStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	rows, err := g.featureStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}

	s := &DataSummary{TotalGames: len(games), FeatureRows: len(rows)}
	teams := make(map[string]struct{})
	for _, game := range games {
		teams[game.HomeTeam] = struct{}{}
		teams[game.AwayTeam] = struct{}{}
		if game.HasScores() {
			s.ScoredGames++
		}
	}
	s.Teams = len(teams)

	// GetAll returns games in date order.
	if len(games) > 0 {
		s.DateRangeStart = games[0].Date
		s.DateRangeEnd = games[len(games)-1].Date
	}
	return s, nil
}

func (g *Generator) generatePredictions(ctx context.Context, generation string) ([]PredictionRow, error) {
	if g.predictionStore == nil {
		return nil, nil
	}
	stored, err := g.predictionStore.GetByGeneration(ctx, generation)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}

	out := make([]PredictionRow, len(stored))
	for i, p := range stored {
		out[i] = fromPrediction(p)
	}
	return out, nil
}

func fromPrediction(p *domain.PredictionRow) PredictionRow {
	return PredictionRow{
		HomeTeam:           p.HomeTeam,
		AwayTeam:           p.AwayTeam,
		PredictedWinner:    p.PredictedWinner,
		HomeWinProbability: p.HomeWinProbability,
		Confidence:         p.Confidence,
	}
}

// CheckSufficiency evaluates whether a split could support a trustworthy
// evaluation.
func CheckSufficiency(split domain.SplitSummary, folds int) DataQualitySection {
	checks := []SufficiencyCheckRow{
		{
			Name:      "Training rows",
			Threshold: fmt.Sprintf(">= %d (folds)", folds),
			Actual:    fmt.Sprintf("%d", split.TrainRows),
			Pass:      split.TrainRows >= folds,
		},
		{
			Name:      "Test rows",
			Threshold: "> 0",
			Actual:    fmt.Sprintf("%d", split.TestRows),
			Pass:      split.TestRows > 0,
		},
		{
			Name:      "Chronological split",
			Threshold: "train end <= test start",
			Actual:    fmt.Sprintf("%s / %s", formatDate(split.TrainEnd), formatDate(split.TestStart)),
			Pass:      !split.TrainEnd.After(split.TestStart),
		},
	}

	all := true
	for _, c := range checks {
		all = all && c.Pass
	}
	return DataQualitySection{SufficiencyChecks: checks, AllChecksPassed: all}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
