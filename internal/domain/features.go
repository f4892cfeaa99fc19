package domain

import "time"

// Rolling window sizes used for trailing team statistics.
const (
	ShortWindow = 5
	LongWindow  = 10
)

// PredictorNames lists the model input columns in matrix order.
var PredictorNames = []string{
	"is_home",
	"avg_pts_5", "avg_pa_5", "win_rate_5",
	"avg_pts_10", "avg_pa_10", "win_rate_10",
}

// NumPredictors is the width of the model input vector.
const NumPredictors = 7

// WindowStats holds trailing statistics over one rolling window.
type WindowStats struct {
	AvgPts  float64 // mean points scored
	AvgPA   float64 // mean points allowed
	WinRate float64 // fraction of games won
}

// FeatureRow is one team-game with trailing statistics computed only
// from strictly earlier games of the same team.
type FeatureRow struct {
	Date     time.Time
	TeamName string
	IsHome   bool

	Short WindowStats // last 5 prior games
	Long  WindowStats // last 10 prior games

	// Outcome of this game. Never used as a predictor.
	PointsFor     float64
	PointsAgainst float64
	WinFlag       bool
}

// Predictors returns the 7-column input vector in PredictorNames order.
func (r *FeatureRow) Predictors() []float64 {
	return []float64{
		boolToFloat(r.IsHome),
		r.Short.AvgPts, r.Short.AvgPA, r.Short.WinRate,
		r.Long.AvgPts, r.Long.AvgPA, r.Long.WinRate,
	}
}

// Label returns the win flag as a 0/1 target.
func (r *FeatureRow) Label() float64 {
	return boolToFloat(r.WinFlag)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
