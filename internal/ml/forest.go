package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Random forest defaults.
const (
	defaultForestTrees          = 100
	defaultForestMaxDepth       = 10
	defaultForestMinSamplesLeaf = 1

	minImpurityDecrease = 1e-12
)

// RandomForest is a bagged ensemble of Gini classification trees with
// per-split feature subsampling. Probabilities are the mean leaf class
// fraction across trees.
type RandomForest struct {
	NTrees         int    `json:"n_trees"`
	MaxDepth       int    `json:"max_depth"`
	MinSamplesLeaf int    `json:"min_samples_leaf"`
	MaxFeatures    int    `json:"max_features"` // 0 means floor(sqrt(width))
	Seed           uint64 `json:"seed"`

	Width int     `json:"width"`
	Trees []*Tree `json:"trees"`
}

// NewRandomForest returns an unfitted forest seeded for reproducibility.
func NewRandomForest(seed uint64) *RandomForest {
	return &RandomForest{
		NTrees:         defaultForestTrees,
		MaxDepth:       defaultForestMaxDepth,
		MinSamplesLeaf: defaultForestMinSamplesLeaf,
		Seed:           seed,
	}
}

// Kind returns the artifact kind.
func (m *RandomForest) Kind() string { return KindRandomForest }

// Fit grows NTrees trees concurrently. Each tree draws from its own
// seeded source, so the result does not depend on scheduling.
func (m *RandomForest) Fit(X [][]float64, y []float64) error {
	width, err := validateTrainingSet(X, y)
	if err != nil {
		return err
	}
	if m.NTrees <= 0 || m.MaxDepth <= 0 || m.MinSamplesLeaf <= 0 {
		return fmt.Errorf("invalid forest parameters: trees=%d depth=%d leaf=%d", m.NTrees, m.MaxDepth, m.MinSamplesLeaf)
	}

	maxFeatures := m.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(width))))
	}
	maxFeatures = min(maxFeatures, width)

	trees := make([]*Tree, m.NTrees)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(m.Seed, uint64(t)+1))
			n := len(X)
			sample := make([]int, n)
			for i := range sample {
				sample[i] = rng.IntN(n)
			}
			fg := &forestGrower{
				X: X, y: y,
				maxDepth:       m.MaxDepth,
				minSamplesLeaf: m.MinSamplesLeaf,
				maxFeatures:    maxFeatures,
				rng:            rng,
				tree:           &Tree{},
			}
			fg.grow(sample, 0)
			trees[t] = fg.tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.Width = width
	m.Trees = trees
	return nil
}

// PredictProba returns the mean positive-class fraction across trees.
func (m *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if err := validatePredictInput(X, m.Width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		var sum float64
		for _, t := range m.Trees {
			sum += t.Predict(row)
		}
		out[i] = sum / float64(len(m.Trees))
	}
	return out, nil
}

type forestGrower struct {
	X              [][]float64
	y              []float64
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int
	rng            *rand.Rand
	tree           *Tree
}

func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}

// grow builds the subtree for idx (which may repeat rows) and returns its node index.
func (g *forestGrower) grow(idx []int, depth int) int {
	n := float64(len(idx))
	var pos float64
	for _, i := range idx {
		pos += g.y[i]
	}
	value := pos / n

	if pos == 0 || pos == n || depth >= g.maxDepth || len(idx) < 2*g.minSamplesLeaf {
		return g.tree.addLeaf(value)
	}

	parent := gini(pos, n)
	bestFeature, bestThreshold, bestDecrease := -1, 0.0, minImpurityDecrease

	width := len(g.X[idx[0]])
	features := g.rng.Perm(width)[:g.maxFeatures]
	for _, f := range features {
		order := sortedByFeature(g.X, idx, f)
		var lp, ln float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			ln++
			lp += g.y[i]

			cur, next := g.X[i][f], g.X[order[k+1]][f]
			if cur == next {
				continue
			}
			rn, rp := n-ln, pos-lp
			if int(ln) < g.minSamplesLeaf || int(rn) < g.minSamplesLeaf {
				continue
			}
			weighted := (ln*gini(lp, ln) + rn*gini(rp, rn)) / n
			if dec := parent - weighted; dec > bestDecrease {
				bestFeature, bestThreshold, bestDecrease = f, midpoint(cur, next), dec
			}
		}
	}

	if bestFeature < 0 {
		return g.tree.addLeaf(value)
	}

	left, right := partition(g.X, idx, bestFeature, bestThreshold)
	node := g.tree.addSplit(bestFeature, bestThreshold, value)
	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.tree.link(node, l, r)
	return node
}
