package prediction

import (
	"context"
	"fmt"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/features"
	"matchup-forecast/internal/storage"
)

// FeatureResolver produces one raw predictor vector per matchup, in
// domain.PredictorNames order.
type FeatureResolver interface {
	Resolve(ctx context.Context, matchups []domain.Matchup) ([][]float64, error)
}

// HistoryResolver derives each matchup's vector from the home team's
// completed games dated strictly before the matchup, using the same
// rolling windows as training.
type HistoryResolver struct {
	games storage.GameStore
}

// NewHistoryResolver creates a resolver reading history from games.
func NewHistoryResolver(games storage.GameStore) *HistoryResolver {
	return &HistoryResolver{games: games}
}

// Resolve returns ErrInsufficientData naming the first home team with no history.
func (r *HistoryResolver) Resolve(ctx context.Context, matchups []domain.Matchup) ([][]float64, error) {
	games, err := r.games.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load game history: %w", err)
	}

	out := make([][]float64, len(matchups))
	for i, m := range matchups {
		row, ok := features.Snapshot(games, m.HomeTeam, m.Date, true)
		if !ok {
			return nil, fmt.Errorf("%w: no completed games for team %q before matchup %d",
				domain.ErrInsufficientData, m.HomeTeam, i)
		}
		out[i] = row.Predictors()
	}
	return out, nil
}

// PlaceholderVector is the fixed league-average feature vector served by
// PlaceholderResolver.
var PlaceholderVector = []float64{1, 111, 108, 0.55, 112, 109, 0.56}

// PlaceholderResolver returns PlaceholderVector for every matchup. It
// ignores the teams entirely, so every matchup gets the same forecast;
// it exists for comparing against the legacy serving path only.
type PlaceholderResolver struct{}

// Resolve returns a copy of PlaceholderVector per matchup.
func (PlaceholderResolver) Resolve(_ context.Context, matchups []domain.Matchup) ([][]float64, error) {
	out := make([][]float64, len(matchups))
	for i := range out {
		out[i] = append([]float64(nil), PlaceholderVector...)
	}
	return out, nil
}
