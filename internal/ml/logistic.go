package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Logistic regression defaults.
const (
	defaultLogisticC       = 1.0
	defaultLogisticMaxIter = 100
	defaultLogisticTol     = 1e-8

	minIRLSWeight  = 1e-10
	interceptRidge = 1e-8
)

// LogisticRegression is L2-regularised logistic regression fitted by
// Newton-Raphson (IRLS). The intercept is not penalised.
type LogisticRegression struct {
	C       float64 `json:"c"` // inverse regularisation strength
	MaxIter int     `json:"max_iter"`
	Tol     float64 `json:"tol"`

	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// NewLogisticRegression returns an unfitted model with default settings.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		C:       defaultLogisticC,
		MaxIter: defaultLogisticMaxIter,
		Tol:     defaultLogisticTol,
	}
}

// Kind returns the artifact kind.
func (m *LogisticRegression) Kind() string { return KindLogistic }

// Fit minimises sum(logloss) + ||w||^2 / (2C).
func (m *LogisticRegression) Fit(X [][]float64, y []float64) error {
	width, err := validateTrainingSet(X, y)
	if err != nil {
		return err
	}
	if m.C <= 0 {
		return fmt.Errorf("C must be positive, got %v", m.C)
	}
	lambda := 1 / m.C
	n, d := len(X), width+1

	// Design matrix with a leading intercept column.
	design := mat.NewDense(n, d, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	beta := mat.NewVecDense(d, nil)
	var (
		eta   mat.VecDense
		grad  = mat.NewVecDense(d, nil)
		hess  = mat.NewDense(d, d, nil)
		wx    = mat.NewDense(n, d, nil)
		delta mat.VecDense
	)

	for iter := 0; iter < m.MaxIter; iter++ {
		eta.MulVec(design, beta)
		grad.Zero()

		// wx = diag(w) * design; grad = design^T (y - p) - lambda*beta
		for i := 0; i < n; i++ {
			p := sigmoid(eta.AtVec(i))
			w := math.Max(p*(1-p), minIRLSWeight)
			r := y[i] - p
			for j := 0; j < d; j++ {
				x := design.At(i, j)
				wx.Set(i, j, w*x)
				grad.SetVec(j, grad.AtVec(j)+r*x)
			}
		}
		hess.Mul(design.T(), wx)
		hess.Set(0, 0, hess.At(0, 0)+interceptRidge)
		for j := 1; j < d; j++ {
			grad.SetVec(j, grad.AtVec(j)-lambda*beta.AtVec(j))
			hess.Set(j, j, hess.At(j, j)+lambda)
		}

		if err := delta.SolveVec(hess, grad); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return fmt.Errorf("newton step %d: %w", iter, err)
			}
		}
		beta.AddVec(beta, &delta)

		if mat.Norm(&delta, math.Inf(1)) < m.Tol {
			break
		}
	}

	m.Intercept = beta.AtVec(0)
	m.Coef = make([]float64, width)
	for j := range m.Coef {
		m.Coef[j] = beta.AtVec(j + 1)
	}
	for _, v := range append([]float64{m.Intercept}, m.Coef...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("diverged: non-finite coefficient")
		}
	}
	return nil
}

// PredictProba returns P(y=1) per row.
func (m *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if err := validatePredictInput(X, len(m.Coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		z := m.Intercept
		for j, v := range row {
			z += m.Coef[j] * v
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}
