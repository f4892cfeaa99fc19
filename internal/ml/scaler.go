package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler maps each column to zero mean and unit (population) variance.
// Constant columns keep a scale of 1 so they map to zero.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes per-column mean and standard deviation.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errEmptyTrainingSet
	}
	width := len(X[0])
	s.Mean = make([]float64, width)
	s.Scale = make([]float64, width)

	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		for i, row := range X {
			if len(row) != width {
				return fmt.Errorf("row %d: width %d, expected %d", i, len(row), width)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Transform returns a scaled copy of X.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if err := validatePredictInput(X, len(s.Mean)); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// Kind returns the artifact kind.
func (s *StandardScaler) Kind() string { return KindStandardScaler }
