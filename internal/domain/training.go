package domain

import "time"

// TrainingMetrics is the held-out evaluation of a meta-learner.
type TrainingMetrics struct {
	Accuracy float64 `json:"accuracy"`
	AUC      float64 `json:"auc"`
	F1       float64 `json:"f1"`
}

// SplitSummary describes the chronological train/test partition of a run.
type SplitSummary struct {
	TrainRows  int       `json:"train_rows"`
	TestRows   int       `json:"test_rows"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`
}
