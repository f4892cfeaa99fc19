// Package features turns completed games into leakage-free per-team
// feature rows with trailing rolling statistics.
package features

import (
	"sort"

	"matchup-forecast/internal/domain"
)

// BuildFeatures computes one FeatureRow per team-game.
//
// Rules:
//   - games lacking a valid score pair are dropped
//   - each team's games are ordered by date ASC (ties keep input order)
//   - avg_pts_W, avg_pa_W, win_rate_W are means over at most W strictly
//     preceding games of the same team (fewer early in the sequence)
//   - rows without any prior game are dropped, never zero-filled
//   - output is ordered by date ASC, ties by team first appearance then
//     within-team order
//
// Returns domain.ErrInvalidInput if games is nil. An input with no valid
// games yields an empty, non-nil slice.
func BuildFeatures(games []*domain.GameRecord) ([]*domain.FeatureRow, error) {
	if games == nil {
		return nil, domain.ErrInvalidInput
	}

	timelines := PartitionByTeam(games)

	result := make([]*domain.FeatureRow, 0, 2*len(games))
	for _, tl := range timelines {
		result = append(result, tl.featureRows()...)
	}

	// Global chronological order; stable so same-date rows keep team order.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// featureRows emits rows for every game after the team's first.
func (tl *TeamTimeline) featureRows() []*domain.FeatureRow {
	n := len(tl.Views)
	if n < 2 {
		return nil
	}

	short := trailingStats(tl.Views, domain.ShortWindow)
	long := trailingStats(tl.Views, domain.LongWindow)

	rows := make([]*domain.FeatureRow, 0, n-1)
	for i := 1; i < n; i++ {
		v := tl.Views[i]
		rows = append(rows, &domain.FeatureRow{
			Date:          v.Date,
			TeamName:      v.TeamName,
			IsHome:        v.IsHome,
			Short:         short[i],
			Long:          long[i],
			PointsFor:     v.PointsFor,
			PointsAgainst: v.PointsAgainst,
			WinFlag:       v.WinFlag,
		})
	}
	return rows
}
