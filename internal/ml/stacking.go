package ml

import (
	"fmt"

	"matchup-forecast/internal/domain"
)

// OutOfFold fits a fresh model per fold on the remaining rows and
// predicts the held-out rows. The result is aligned with X, so no
// entry comes from a model that saw that row.
func OutOfFold(newModel Factory, X [][]float64, y []float64, folds [][]int) ([]float64, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("row count mismatch: %d rows, %d labels", len(X), len(y))
	}
	oof := make([]float64, len(X))
	seen := make([]bool, len(X))

	for f, held := range folds {
		trainX, trainY := Subset(X, y, complement(len(X), held))
		heldX, _ := Subset(X, y, held)

		m := newModel()
		if err := m.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		proba, err := m.PredictProba(heldX)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		for j, i := range held {
			oof[i] = proba[j]
			seen[i] = true
		}
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("row %d not covered by any fold", i)
		}
	}
	return oof, nil
}

// Stack is a fitted two-level ensemble without its scaler.
type Stack struct {
	Boosting *GradientBoosting
	Forest   *RandomForest
	Logistic *LogisticRegression
	Meta     *LogisticRegression
}

// FitStack produces out-of-fold meta-features for each base learner,
// refits every base learner on all of X, then fits the meta-learner on
// the out-of-fold columns. X is expected to be scaled already.
func FitStack(X [][]float64, y []float64, folds [][]int, h Hyperparameters) (*Stack, error) {
	learners := h.BaseLearners()
	columns := make([][]float64, len(learners))
	fitted := make([]Classifier, len(learners))

	for j, l := range learners {
		oof, err := OutOfFold(l.New, X, y, folds)
		if err != nil {
			return nil, &domain.ModelFitError{Learner: l.Name, Err: err}
		}
		columns[j] = oof

		m := l.New()
		if err := m.Fit(X, y); err != nil {
			return nil, &domain.ModelFitError{Learner: l.Name, Err: err}
		}
		fitted[j] = m
	}

	meta := h.NewMeta()
	if err := meta.Fit(transpose(columns), y); err != nil {
		return nil, &domain.ModelFitError{Learner: domain.ArtifactMeta, Err: err}
	}

	return &Stack{
		Boosting: fitted[0].(*GradientBoosting),
		Forest:   fitted[1].(*RandomForest),
		Logistic: fitted[2].(*LogisticRegression),
		Meta:     meta,
	}, nil
}

// MetaFeatures returns one row per input row holding the base learner
// probabilities in xgb, rf, lr order.
func (s *Stack) MetaFeatures(X [][]float64) ([][]float64, error) {
	bases := []struct {
		name string
		m    Classifier
	}{
		{domain.ArtifactXGB, s.Boosting},
		{domain.ArtifactRF, s.Forest},
		{domain.ArtifactLR, s.Logistic},
	}
	columns := make([][]float64, len(bases))
	for j, b := range bases {
		p, err := b.m.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}
		columns[j] = p
	}
	return transpose(columns), nil
}

// PredictProba runs the base learners and feeds their output to the meta-learner.
func (s *Stack) PredictProba(X [][]float64) ([]float64, error) {
	meta, err := s.MetaFeatures(X)
	if err != nil {
		return nil, err
	}
	p, err := s.Meta.PredictProba(meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", domain.ArtifactMeta, err)
	}
	return p, nil
}

// transpose turns column slices into rows.
func transpose(columns [][]float64) [][]float64 {
	if len(columns) == 0 {
		return nil
	}
	rows := make([][]float64, len(columns[0]))
	for i := range rows {
		row := make([]float64, len(columns))
		for j, c := range columns {
			row[j] = c[i]
		}
		rows[i] = row
	}
	return rows
}
