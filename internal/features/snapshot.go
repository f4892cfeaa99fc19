package features

import (
	"time"

	"matchup-forecast/internal/domain"
)

// Snapshot computes the trailing statistics a team would carry into its
// next game, using only scored games dated strictly before asOf. A zero
// asOf uses every game. The returned row has IsHome set as requested and
// zero outcome fields.
//
// Returns false if the team has no prior game.
func Snapshot(games []*domain.GameRecord, team string, asOf time.Time, isHome bool) (*domain.FeatureRow, bool) {
	var history []*domain.GameRecord
	for _, g := range games {
		if g == nil || (g.HomeTeam != team && g.AwayTeam != team) {
			continue
		}
		if !asOf.IsZero() && !g.Date.Before(asOf) {
			continue
		}
		history = append(history, g)
	}

	var views []domain.TeamGameView
	for _, tl := range PartitionByTeam(history) {
		if tl.Team == team {
			views = tl.Views
			break
		}
	}
	if len(views) == 0 {
		return nil, false
	}

	n := len(views)
	return &domain.FeatureRow{
		Date:     asOf,
		TeamName: team,
		IsHome:   isHome,
		Short:    windowStats(views[max(0, n-domain.ShortWindow):]),
		Long:     windowStats(views[max(0, n-domain.LongWindow):]),
	}, true
}
