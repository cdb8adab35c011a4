// Package betting turns windowed team history into a predicted goal differential
// and turns a prediction into a stake and a settled profit.
package betting

import (
	"fmt"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

// History supplies the windowed context a prediction is built from
type History interface {
	LastN(isHome bool, m history.Match, n int) ([]history.Match, error)
	SeasonAverage(isHome bool, m history.Match) (float64, error)
}

// Model predicts goal differentials from attack and defense strengths
// relative to the league season averages
type Model struct {
	history History
}

// NewModel creates a prediction model over the given history
func NewModel(h History) *Model {
	return &Model{history: h}
}

// TeamForm holds a team's scoring record over its window
type TeamForm struct {
	ScoredAvg   float64
	ConcededAvg float64
}

// Form computes the mean goals scored and conceded by team across window
func Form(team string, window []history.Match) (TeamForm, error) {
	if len(window) == 0 {
		return TeamForm{}, fmt.Errorf("%w: empty window for %s", history.ErrInsufficientData, team)
	}
	var scored, conceded int
	for _, m := range window {
		s, ok := m.Scored(team)
		if !ok {
			return TeamForm{}, fmt.Errorf("%s did not play in %s", team, m)
		}
		c, _ := m.Conceded(team)
		scored += s
		conceded += c
	}
	n := float64(len(window))
	return TeamForm{ScoredAvg: float64(scored) / n, ConcededAvg: float64(conceded) / n}, nil
}

// Predict returns the expected home goals minus the expected away goals for m,
// using windows of sampleSize matches. Any missing history is reported as
// history.ErrInsufficientData; no defaults are substituted.
func (md *Model) Predict(m history.Match, sampleSize int) (float64, error) {
	homeWindow, err := md.history.LastN(true, m, sampleSize)
	if err != nil {
		return 0, err
	}
	awayWindow, err := md.history.LastN(false, m, sampleSize)
	if err != nil {
		return 0, err
	}
	leagueHome, err := md.history.SeasonAverage(true, m)
	if err != nil {
		return 0, err
	}
	leagueAway, err := md.history.SeasonAverage(false, m)
	if err != nil {
		return 0, err
	}
	if leagueHome <= 0 || leagueAway <= 0 {
		return 0, fmt.Errorf("%w: zero league scoring average for %s %s", history.ErrInsufficientData, m.League, m.Season)
	}

	home, err := Form(m.HomeTeam, homeWindow)
	if err != nil {
		return 0, err
	}
	away, err := Form(m.AwayTeam, awayWindow)
	if err != nil {
		return 0, err
	}

	homeAttack := home.ScoredAvg / leagueHome
	homeDefense := home.ConcededAvg / leagueAway
	awayAttack := away.ScoredAvg / leagueAway
	awayDefense := away.ConcededAvg / leagueHome

	homeGoals := homeAttack * awayDefense * leagueHome
	awayGoals := awayAttack * homeDefense * leagueAway

	return homeGoals - awayGoals, nil
}
