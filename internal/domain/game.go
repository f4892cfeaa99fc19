package domain

import (
	"math"
	"time"
)

// Game status values as reported by the schedule feed.
const (
	GameStatusFinal     = "Final"
	GameStatusScheduled = "Scheduled"
)

// GameRecord is one completed (or scheduled) game from the input table.
// Scores are nil when the feed did not report a numeric value.
type GameRecord struct {
	Date      time.Time
	HomeTeam  string
	AwayTeam  string
	HomeScore *float64
	AwayScore *float64
	Status    string
}

// HasScores reports whether both scores are present and finite.
func (g *GameRecord) HasScores() bool {
	return g != nil && finite(g.HomeScore) && finite(g.AwayScore)
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// TeamGameView is a GameRecord reprojected onto one participating team.
type TeamGameView struct {
	Date          time.Time
	TeamName      string
	IsHome        bool
	PointsFor     float64
	PointsAgainst float64
	WinFlag       bool
}

// Views returns the home and away projections of a scored game.
// Returns nil if the game has no valid score pair.
func (g *GameRecord) Views() []TeamGameView {
	if !g.HasScores() {
		return nil
	}
	home, away := *g.HomeScore, *g.AwayScore
	return []TeamGameView{
		{
			Date:          g.Date,
			TeamName:      g.HomeTeam,
			IsHome:        true,
			PointsFor:     home,
			PointsAgainst: away,
			WinFlag:       home > away,
		},
		{
			Date:          g.Date,
			TeamName:      g.AwayTeam,
			IsHome:        false,
			PointsFor:     away,
			PointsAgainst: home,
			WinFlag:       away > home,
		},
	}
}

// Matchup is an upcoming game to be forecast.
// A zero Date means "as of now": all known history may be used.
type Matchup struct {
	Date     time.Time
	HomeTeam string
	AwayTeam string
}
