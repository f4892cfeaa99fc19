// Package metrics computes held-out classification metrics for the
// meta-learner: accuracy, ROC AUC and F1 at a 0.5 threshold.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"matchup-forecast/internal/domain"
)

// DecisionThreshold is the probability above which a row is predicted positive.
const DecisionThreshold = 0.5

// Evaluate computes accuracy, AUC and F1 of proba against 0/1 labels.
func Evaluate(proba, labels []float64) (domain.TrainingMetrics, error) {
	if len(proba) != len(labels) {
		return domain.TrainingMetrics{}, fmt.Errorf("%w: %d probabilities, %d labels",
			domain.ErrInvalidInput, len(proba), len(labels))
	}
	if len(proba) == 0 {
		return domain.TrainingMetrics{}, fmt.Errorf("%w: nothing to evaluate", domain.ErrInsufficientData)
	}

	return domain.TrainingMetrics{
		Accuracy: computeAccuracy(proba, labels),
		AUC:      computeAUC(proba, labels),
		F1:       computeF1(proba, labels),
	}, nil
}

// computeAccuracy is the fraction of rows whose thresholded prediction matches the label.
func computeAccuracy(proba, labels []float64) float64 {
	if len(proba) == 0 {
		return 0
	}
	hits := 0
	for i, p := range proba {
		if predictPositive(p) == (labels[i] == 1) {
			hits++
		}
	}
	return float64(hits) / float64(len(proba))
}

// computeF1 is 2TP / (2TP + FP + FN). Returns 0 when there are no
// positive predictions and no positive labels.
func computeF1(proba, labels []float64) float64 {
	var tp, fp, fn int
	for i, p := range proba {
		pred, actual := predictPositive(p), labels[i] == 1
		switch {
		case pred && actual:
			tp++
		case pred && !actual:
			fp++
		case !pred && actual:
			fn++
		}
	}
	denom := 2*tp + fp + fn
	if denom == 0 {
		return 0
	}
	return float64(2*tp) / float64(denom)
}

// computeAUC integrates the ROC curve with the trapezoidal rule.
// A single-class label set has no ROC curve; it scores 0.5.
func computeAUC(proba, labels []float64) float64 {
	var pos int
	for _, l := range labels {
		if l == 1 {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return 0.5
	}

	y := make([]float64, len(proba))
	copy(y, proba)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

func predictPositive(p float64) bool {
	return p > DecisionThreshold
}
