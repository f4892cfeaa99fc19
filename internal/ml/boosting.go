package ml

import (
	"fmt"
	"math"
)

// Gradient boosting defaults.
const (
	defaultBoostRounds         = 100
	defaultBoostLearningRate   = 0.1
	defaultBoostMaxDepth       = 3
	defaultBoostLambda         = 1.0
	defaultBoostMinChildWeight = 1.0

	minBaseProbability = 1e-6
	minHessian         = 1e-16
	minSplitGain       = 1e-12
)

// GradientBoosting is a binary logistic gradient-boosted tree ensemble.
// Trees are fitted to first and second order gradients of the log loss
// with exact greedy splits and L2-regularised leaf weights.
type GradientBoosting struct {
	Rounds         int     `json:"rounds"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	Lambda         float64 `json:"lambda"`
	MinChildWeight float64 `json:"min_child_weight"`

	Width     int     `json:"width"`
	BaseScore float64 `json:"base_score"` // log-odds of the training prior
	Trees     []*Tree `json:"trees"`
}

// NewGradientBoosting returns an unfitted model with default settings.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		Rounds:         defaultBoostRounds,
		LearningRate:   defaultBoostLearningRate,
		MaxDepth:       defaultBoostMaxDepth,
		Lambda:         defaultBoostLambda,
		MinChildWeight: defaultBoostMinChildWeight,
	}
}

// Kind returns the artifact kind.
func (m *GradientBoosting) Kind() string { return KindGradientBoosting }

// Fit grows Rounds trees on the log-loss gradients.
func (m *GradientBoosting) Fit(X [][]float64, y []float64) error {
	width, err := validateTrainingSet(X, y)
	if err != nil {
		return err
	}
	if m.Rounds <= 0 || m.LearningRate <= 0 || m.MaxDepth <= 0 {
		return fmt.Errorf("invalid boosting parameters: rounds=%d lr=%v depth=%d", m.Rounds, m.LearningRate, m.MaxDepth)
	}

	n := len(X)
	prior := 0.0
	for _, v := range y {
		prior += v
	}
	prior /= float64(n)
	prior = math.Min(math.Max(prior, minBaseProbability), 1-minBaseProbability)

	m.Width = width
	m.BaseScore = math.Log(prior / (1 - prior))
	m.Trees = make([]*Tree, 0, m.Rounds)

	margin := make([]float64, n)
	for i := range margin {
		margin[i] = m.BaseScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for round := 0; round < m.Rounds; round++ {
		for i := range margin {
			p := sigmoid(margin[i])
			grad[i] = p - y[i]
			hess[i] = math.Max(p*(1-p), minHessian)
		}

		g := &boostGrower{
			X: X, grad: grad, hess: hess,
			maxDepth: m.MaxDepth, lambda: m.Lambda, minChildWeight: m.MinChildWeight,
			tree: &Tree{},
		}
		g.grow(all, 0)
		m.Trees = append(m.Trees, g.tree)

		for i, row := range X {
			margin[i] += m.LearningRate * g.tree.Predict(row)
		}
	}
	return nil
}

// PredictProba returns P(y=1) per row.
func (m *GradientBoosting) PredictProba(X [][]float64) ([]float64, error) {
	if err := validatePredictInput(X, m.Width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		z := m.BaseScore
		for _, t := range m.Trees {
			z += m.LearningRate * t.Predict(row)
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

type boostGrower struct {
	X              [][]float64
	grad, hess     []float64
	maxDepth       int
	lambda         float64
	minChildWeight float64
	tree           *Tree
}

// grow builds the subtree for idx and returns its node index.
func (g *boostGrower) grow(idx []int, depth int) int {
	var G, H float64
	for _, i := range idx {
		G += g.grad[i]
		H += g.hess[i]
	}
	weight := -G / (H + g.lambda)

	if depth >= g.maxDepth || len(idx) < 2 {
		return g.tree.addLeaf(weight)
	}

	parent := G * G / (H + g.lambda)
	bestFeature, bestThreshold, bestGain := -1, 0.0, minSplitGain

	width := len(g.X[idx[0]])
	for f := 0; f < width; f++ {
		order := sortedByFeature(g.X, idx, f)
		var gl, hl float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			gl += g.grad[i]
			hl += g.hess[i]

			cur, next := g.X[i][f], g.X[order[k+1]][f]
			if cur == next {
				continue
			}
			gr, hr := G-gl, H-hl
			if hl < g.minChildWeight || hr < g.minChildWeight {
				continue
			}
			gain := 0.5 * (gl*gl/(hl+g.lambda) + gr*gr/(hr+g.lambda) - parent)
			if gain > bestGain {
				bestFeature, bestThreshold, bestGain = f, midpoint(cur, next), gain
			}
		}
	}

	if bestFeature < 0 {
		return g.tree.addLeaf(weight)
	}

	left, right := partition(g.X, idx, bestFeature, bestThreshold)
	node := g.tree.addSplit(bestFeature, bestThreshold, weight)
	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.tree.link(node, l, r)
	return node
}
