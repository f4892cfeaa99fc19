package ml

import (
	"cmp"
	"slices"
)

// TreeNode is one node of a flattened binary decision tree.
// Rows with x[Feature] <= Threshold go Left.
type TreeNode struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

// Tree is a decision tree stored as a node array rooted at index 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Predict walks the tree for one row and returns the leaf value.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := &t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

func (t *Tree) addLeaf(value float64) int {
	t.Nodes = append(t.Nodes, TreeNode{Leaf: true, Value: value})
	return len(t.Nodes) - 1
}

func (t *Tree) addSplit(feature int, threshold, value float64) int {
	t.Nodes = append(t.Nodes, TreeNode{Feature: feature, Threshold: threshold, Value: value})
	return len(t.Nodes) - 1
}

func (t *Tree) link(node, left, right int) {
	t.Nodes[node].Left = left
	t.Nodes[node].Right = right
}

// sortedByFeature returns a copy of idx ordered by X[i][f] ASC.
func sortedByFeature(X [][]float64, idx []int, f int) []int {
	order := slices.Clone(idx)
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(X[a][f], X[b][f])
	})
	return order
}

// midpoint returns a threshold separating lo from hi (lo < hi).
func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m >= hi {
		return lo
	}
	return m
}

// partition splits idx by X[i][f] <= threshold.
func partition(X [][]float64, idx []int, f int, threshold float64) (left, right []int) {
	for _, i := range idx {
		if X[i][f] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}
