package domain

// Predicted winner values.
const (
	WinnerHome = "HOME"
	WinnerAway = "AWAY"
)

// PredictionRow is the forecast for one upcoming matchup.
type PredictionRow struct {
	HomeTeam           string
	AwayTeam           string
	PredictedWinner    string  // HOME or AWAY
	HomeWinProbability float64 // percent, [0,100], 2 decimals
	Confidence         float64 // percent, [0,100], 1 decimal
}
