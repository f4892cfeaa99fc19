package training

import (
	"fmt"
	"math"
	"sort"

	"matchup-forecast/internal/domain"
)

// ChronologicalSplit orders rows by date (stable) and holds out the
// last ceil(testFraction*n) of them. No shuffling.
func ChronologicalSplit(rows []*domain.FeatureRow, testFraction float64) (train, test []*domain.FeatureRow, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction %v outside (0, 1)", domain.ErrInvalidInput, testFraction)
	}

	ordered := make([]*domain.FeatureRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	n := len(ordered)
	nTest := int(math.Ceil(testFraction * float64(n)))
	return ordered[:n-nTest], ordered[n-nTest:], nil
}

// Summarize describes a split for the manifest and report.
func Summarize(train, test []*domain.FeatureRow) domain.SplitSummary {
	s := domain.SplitSummary{TrainRows: len(train), TestRows: len(test)}
	if len(train) > 0 {
		s.TrainStart = train[0].Date
		s.TrainEnd = train[len(train)-1].Date
	}
	if len(test) > 0 {
		s.TestStart = test[0].Date
		s.TestEnd = test[len(test)-1].Date
	}
	return s
}

func matrix(rows []*domain.FeatureRow) ([][]float64, []float64) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		X[i] = r.Predictors()
		y[i] = r.Label()
	}
	return X, y
}
