package features

import "matchup-forecast/internal/domain"

// trailingStats returns, for each position i, the statistics over
// views[max(0,i-window):i]. Position 0 has no history and is left zero;
// callers must not emit it.
func trailingStats(views []domain.TeamGameView, window int) []domain.WindowStats {
	out := make([]domain.WindowStats, len(views))
	for i := 1; i < len(views); i++ {
		out[i] = windowStats(views[max(0, i-window):i])
	}
	return out
}

// windowStats averages a non-empty slice of team views.
func windowStats(views []domain.TeamGameView) domain.WindowStats {
	var pts, pa, wins float64
	for _, v := range views {
		pts += v.PointsFor
		pa += v.PointsAgainst
		if v.WinFlag {
			wins++
		}
	}
	n := float64(len(views))
	return domain.WindowStats{
		AvgPts:  pts / n,
		AvgPA:   pa / n,
		WinRate: wins / n,
	}
}
