package features

import (
	"sort"

	"matchup-forecast/internal/domain"
)

// TeamTimeline is one team's games in chronological order.
type TeamTimeline struct {
	Team  string
	Views []domain.TeamGameView
}

// PartitionByTeam splits scored games into per-team timelines.
// Timelines are returned in order of each team's first appearance
// (home before away within a game); games without scores are skipped.
func PartitionByTeam(games []*domain.GameRecord) []*TeamTimeline {
	index := make(map[string]*TeamTimeline)
	var order []*TeamTimeline

	for _, g := range games {
		for _, v := range g.Views() {
			tl, ok := index[v.TeamName]
			if !ok {
				tl = &TeamTimeline{Team: v.TeamName}
				index[v.TeamName] = tl
				order = append(order, tl)
			}
			tl.Views = append(tl.Views, v)
		}
	}

	for _, tl := range order {
		sort.SliceStable(tl.Views, func(i, j int) bool {
			return tl.Views[i].Date.Before(tl.Views[j].Date)
		})
	}

	return order
}
