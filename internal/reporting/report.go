package reporting

import "time"

// Report describes one training generation and the forecasts served from it.
type Report struct {
	GeneratedAt time.Time

	// Model
	Generation string
	TrainedAt  time.Time
	Seed       uint64
	Folds      int
	ScalerFit  string

	DataSummary DataSummary
	DataQuality DataQualitySection

	Split   SplitRow
	Metrics []MetricRow // accuracy, auc, f1

	// Predictions in served order. Empty if none were stored for Generation.
	Predictions []PredictionRow
}

// DataSummary describes the stored input and feature tables.
type DataSummary struct {
	TotalGames     int
	ScoredGames    int
	Teams          int
	FeatureRows    int
	DateRangeStart time.Time
	DateRangeEnd   time.Time
}

// DataQualitySection contains data sufficiency checks.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SplitRow is the chronological train/test partition.
type SplitRow struct {
	TrainRows  int
	TestRows   int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// MetricRow is one held-out evaluation score.
type MetricRow struct {
	Name  string
	Value float64
}

// PredictionRow is one served forecast.
type PredictionRow struct {
	HomeTeam           string
	AwayTeam           string
	PredictedWinner    string
	HomeWinProbability float64
	Confidence         float64
}
