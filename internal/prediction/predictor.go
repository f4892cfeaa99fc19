// Package prediction serves forecasts from the current model generation.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/logging"
	"matchup-forecast/internal/ml"
	"matchup-forecast/internal/observability"
	"matchup-forecast/internal/storage"
)

// Predictor turns matchups into prediction rows. It only reads from the
// model store and is safe for concurrent use.
type Predictor struct {
	store    storage.ModelStore
	resolver FeatureResolver
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New creates a Predictor.
func New(store storage.ModelStore, resolver FeatureResolver) *Predictor {
	return &Predictor{
		store:    store,
		resolver: resolver,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger.
func (p *Predictor) WithLogger(l *zap.Logger) *Predictor {
	p.logger = logging.OrNop(l)
	return p
}

// WithMetrics sets the metrics sink.
func (p *Predictor) WithMetrics(m *observability.Metrics) *Predictor {
	p.metrics = m
	return p
}

// Forecast is one prediction run together with the generation that served it.
type Forecast struct {
	Generation string
	Rows       []domain.PredictionRow
}

// Predict loads the current generation and forecasts every matchup, in
// input order. Artifacts are loaded even for empty input so a broken
// store is reported early.
func (p *Predictor) Predict(ctx context.Context, matchups []domain.Matchup) ([]domain.PredictionRow, error) {
	f, err := p.Forecast(ctx, matchups)
	if err != nil {
		return nil, err
	}
	return f.Rows, nil
}

// Forecast is Predict that also reports the generation the rows came from.
// The artifacts are loaded once, so the generation always matches the rows
// even when a newer generation is saved concurrently.
func (p *Predictor) Forecast(ctx context.Context, matchups []domain.Matchup) (*Forecast, error) {
	set, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(matchups) == 0 {
		return &Forecast{Generation: set.Generation, Rows: []domain.PredictionRow{}}, nil
	}

	for i, m := range matchups {
		if m.HomeTeam == "" || m.AwayTeam == "" {
			return nil, fmt.Errorf("%w: matchup %d has an empty team name", domain.ErrInvalidInput, i)
		}
	}

	X, err := p.resolver.Resolve(ctx, matchups)
	if err != nil {
		return nil, fmt.Errorf("resolve features: %w", err)
	}
	proba, err := set.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	rows := make([]domain.PredictionRow, len(matchups))
	for i, m := range matchups {
		rows[i] = Derive(m.HomeTeam, m.AwayTeam, proba[i])
	}

	p.metrics.RecordPredictions(rows)
	p.logger.Info("predictions served",
		zap.String("generation", set.Generation),
		zap.Int("matchups", len(rows)),
	)
	return &Forecast{Generation: set.Generation, Rows: rows}, nil
}

func (p *Predictor) load(ctx context.Context) (*ml.ArtifactSet, error) {
	bundle, err := p.store.Load(ctx)
	if err == nil {
		var set *ml.ArtifactSet
		if set, err = ml.DecodeArtifacts(bundle); err == nil {
			return set, nil
		}
	}

	reason := "other"
	switch {
	case errors.Is(err, domain.ErrMissingArtifact):
		reason = "missing_artifact"
	case errors.Is(err, domain.ErrGenerationMismatch):
		reason = "generation_mismatch"
	}
	p.metrics.RecordArtifactLoadError(reason)
	p.logger.Error("artifact load failed", zap.String("reason", reason), zap.Error(err))
	return nil, fmt.Errorf("load artifacts: %w", err)
}

// Derive maps a home-win probability to a prediction row. Probabilities
// are rounded half-to-even: home_win_probability to 2 decimals of a
// percentage, confidence (distance from a coin flip, 0..100) to 1.
func Derive(home, away string, p float64) domain.PredictionRow {
	winner := domain.WinnerAway
	if p > 0.5 {
		winner = domain.WinnerHome
	}
	return domain.PredictionRow{
		HomeTeam:           home,
		AwayTeam:           away,
		PredictedWinner:    winner,
		HomeWinProbability: roundHalfEven(p*100, 2),
		Confidence:         roundHalfEven(math.Abs(p-0.5)*200, 1),
	}
}

func roundHalfEven(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.RoundToEven(x*scale) / scale
}
