// Package ml implements the learners used by the stacked ensemble:
// gradient-boosted trees, a random forest, L2 logistic regression,
// a standard scaler, and the out-of-fold stacking protocol.
package ml

import (
	"errors"
	"fmt"
	"math"
)

// Learner kinds, recorded with each serialized artifact.
const (
	KindGradientBoosting = "gradient_boosting"
	KindRandomForest     = "random_forest"
	KindLogistic         = "logistic_regression"
	KindStandardScaler   = "standard_scaler"
)

var (
	errEmptyTrainingSet = errors.New("empty training set")
	errNotFitted        = errors.New("model not fitted")
)

// Classifier is a binary classifier producing P(y=1).
type Classifier interface {
	Fit(X [][]float64, y []float64) error
	PredictProba(X [][]float64) ([]float64, error)
	Kind() string
}

// Factory creates a fresh, unfitted classifier.
type Factory func() Classifier

// NamedFactory pairs a learner name with its factory.
type NamedFactory struct {
	Name string
	New  Factory
}

// validateTrainingSet checks shape, finiteness and 0/1 labels.
func validateTrainingSet(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errEmptyTrainingSet
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("row count mismatch: %d rows, %d labels", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return 0, errors.New("zero-width feature matrix")
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("row %d: width %d, expected %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("row %d col %d: non-finite value", i, j)
			}
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("row %d: label %v is not 0/1", i, y[i])
		}
	}
	return width, nil
}

// validatePredictInput checks prediction rows against the fitted width.
func validatePredictInput(X [][]float64, width int) error {
	if width == 0 {
		return errNotFitted
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d: width %d, expected %d", i, len(row), width)
		}
	}
	return nil
}

// sigmoid is the logistic function, clamped to avoid overflow.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Subset returns the rows of X and y at idx.
func Subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, k := range idx {
		xs[i] = X[k]
		ys[i] = y[k]
	}
	return xs, ys
}
