package ml

import (
	"fmt"
	"math/rand/v2"
)

// KFold shuffles 0..n-1 with a seeded source and cuts it into k
// contiguous folds. The first n%k folds get one extra row.
// Each returned slice holds the held-out row indices of one fold.
func KFold(n, k int, seed uint64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold: need at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("k-fold: %d rows cannot fill %d folds", n, k)
	}

	perm := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n)

	folds := make([][]int, k)
	start := 0
	for f := range folds {
		size := n / k
		if f < n%k {
			size++
		}
		folds[f] = perm[start : start+size]
		start += size
	}
	return folds, nil
}

// complement returns the indices of 0..n-1 not present in held.
func complement(n int, held []int) []int {
	skip := make([]bool, n)
	for _, i := range held {
		skip[i] = true
	}
	out := make([]int, 0, n-len(held))
	for i := 0; i < n; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}
