// Package verification retrains the current generation from the stored
// feature table and checks that the run reproduces the stored model.
package verification

import (
	"context"
	"fmt"
	"math"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/ml"
	"matchup-forecast/internal/storage"
	"matchup-forecast/internal/training"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // stored value
	Actual   any    // replayed value
}

// Report is the outcome of one verification.
type Report struct {
	Generation  string
	Rows        int
	Match       bool
	Divergences []FieldDivergence

	// Largest absolute difference between stored and replayed home-win
	// probabilities over every feature row.
	MaxProbabilityDelta float64
}

// Verifier replays training for the current generation.
type Verifier struct {
	features storage.FeatureStore
	models   storage.ModelStore
	hyper    *ml.Hyperparameters
}

// New creates a Verifier. Without WithHyperparameters the replay uses the
// learner settings recorded in the manifest, or ml.DefaultHyperparameters
// for the stored seed when the manifest predates them.
func New(features storage.FeatureStore, models storage.ModelStore) *Verifier {
	return &Verifier{features: features, models: models}
}

// WithHyperparameters sets the learner settings the generation was trained with.
func (v *Verifier) WithHyperparameters(h ml.Hyperparameters) *Verifier {
	v.hyper = &h
	return v
}

// Verify retrains with the stored manifest's settings, without
// persisting, and compares split, metrics and predicted probabilities.
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	bundle, err := v.models.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current generation: %w", err)
	}
	stored, err := ml.DecodeArtifacts(bundle)
	if err != nil {
		return nil, err
	}
	m := bundle.Manifest

	rows, err := v.features.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}

	mode, err := training.ParseScalerFit(m.ScalerFit)
	if err != nil {
		return nil, err
	}
	hyper := ml.DefaultHyperparameters(m.Seed)
	switch {
	case v.hyper != nil:
		hyper = *v.hyper
	case m.Learners != nil:
		hyper = ml.HyperparametersFromSettings(*m.Learners)
	}
	replayed, err := training.New(v.models).
		WithFolds(m.Folds).
		WithTestFraction(m.TestFraction).
		WithSeed(m.Seed).
		WithScalerFit(mode).
		WithHyperparameters(hyper).
		Fit(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("replay training: %w", err)
	}

	report := &Report{Generation: m.Generation, Rows: len(rows)}
	report.Divergences = CompareManifests(m, replayed.Manifest)

	X := make([][]float64, len(rows))
	for i, r := range rows {
		X[i] = r.Predictors()
	}
	want, err := stored.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("stored model: %w", err)
	}
	got, err := replayed.Set.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("replayed model: %w", err)
	}
	for i := range want {
		report.MaxProbabilityDelta = math.Max(report.MaxProbabilityDelta, math.Abs(want[i]-got[i]))
	}
	if report.MaxProbabilityDelta > FloatTolerance {
		report.Divergences = append(report.Divergences, FieldDivergence{
			Field:    "Probabilities",
			Expected: 0.0,
			Actual:   report.MaxProbabilityDelta,
		})
	}

	report.Match = len(report.Divergences) == 0
	return report, nil
}

// CompareManifests compares the reproducible parts of two manifests.
// Generation and TrainedAt always differ between runs and are ignored.
func CompareManifests(stored, replayed domain.ArtifactManifest) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.Split.TrainRows != replayed.Split.TrainRows {
		divergences = append(divergences, FieldDivergence{"TrainRows", stored.Split.TrainRows, replayed.Split.TrainRows})
	}
	if stored.Split.TestRows != replayed.Split.TestRows {
		divergences = append(divergences, FieldDivergence{"TestRows", stored.Split.TestRows, replayed.Split.TestRows})
	}

	scores := []struct {
		field    string
		expected float64
		actual   float64
	}{
		{"Accuracy", stored.Metrics.Accuracy, replayed.Metrics.Accuracy},
		{"AUC", stored.Metrics.AUC, replayed.Metrics.AUC},
		{"F1", stored.Metrics.F1, replayed.Metrics.F1},
	}
	for _, s := range scores {
		if !floatEqual(s.expected, s.actual) {
			divergences = append(divergences, FieldDivergence{s.field, s.expected, s.actual})
		}
	}
	return divergences
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
