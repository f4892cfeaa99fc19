package ml

import "math/rand/v2"

// separable returns n rows of width d labelled by the sign of x0 + 0.5*x1.
func separable(n, d int, seed uint64) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(seed, 7))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		row := make([]float64, d)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		X[i] = row
		if row[0]+0.5*row[1] > 0 {
			y[i] = 1
		}
	}
	return X, y
}

func accuracy(p, y []float64) float64 {
	var hit float64
	for i := range p {
		if (p[i] > 0.5) == (y[i] == 1) {
			hit++
		}
	}
	return hit / float64(len(p))
}

func smallHyperparameters() Hyperparameters {
	h := DefaultHyperparameters(42)
	h.BoostRounds = 20
	h.ForestTrees = 15
	h.ForestMaxDepth = 6
	return h
}
