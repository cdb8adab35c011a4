// Package history holds historical match data and the per-generation window index
// that supplies fitness evaluation with "last N matches" context for each team.
package history

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrInsufficientData is returned when a match cannot be predicted because its
	// historical window or season average is unavailable.
	ErrInsufficientData = errors.New("insufficient historical data")

	// ErrSampling is returned when a requested sample cannot be drawn.
	ErrSampling = errors.New("sampling error")
)

// Outcome is a full-time result in 1X2 notation
type Outcome string

const (
	OutcomeHome Outcome = "1"
	OutcomeDraw Outcome = "X"
	OutcomeAway Outcome = "2"
)

// Valid reports whether o is one of the three 1X2 outcomes
func (o Outcome) Valid() bool {
	return o == OutcomeHome || o == OutcomeDraw || o == OutcomeAway
}

// Match is a single historical fixture with its closing odds
type Match struct {
	HomeTeam        string    `json:"hometeam"`
	AwayTeam        string    `json:"awayteam"`
	League          string    `json:"league"`
	Season          string    `json:"season"`
	Date            time.Time `json:"date"`
	HomeScore       int       `json:"homescore"`
	AwayScore       int       `json:"awayscore"`
	HomeOdd         float64   `json:"home_odd"`
	DrawOdd         float64   `json:"draw_odd"`
	AwayOdd         float64   `json:"away_odd"`
	SimulatedResult Outcome   `json:"simulated_result,omitempty"`
}

const secondsPerDay = 24 * 60 * 60

// Key identifies a match. Two matches with the same key are the same match
// regardless of scores or odds.
type Key struct {
	HomeTeam string
	AwayTeam string
	Day      int64 // days since the Unix epoch, UTC
}

// Key returns the identity of the match. Only the calendar day of Date counts.
func (m Match) Key() Key {
	y, mo, d := m.Date.UTC().Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
	return Key{HomeTeam: m.HomeTeam, AwayTeam: m.AwayTeam, Day: day}
}

// Same reports whether m and other share the same identity
func (m Match) Same(other Match) bool {
	return m.Key() == other.Key()
}

// GoalDifference returns home goals minus away goals
func (m Match) GoalDifference() int {
	return m.HomeScore - m.AwayScore
}

// Result returns the actual full-time outcome
func (m Match) Result() Outcome {
	switch diff := m.GoalDifference(); {
	case diff > 0:
		return OutcomeHome
	case diff < 0:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// Odd returns the decimal odd offered for the given outcome
func (m Match) Odd(o Outcome) float64 {
	switch o {
	case OutcomeHome:
		return m.HomeOdd
	case OutcomeDraw:
		return m.DrawOdd
	case OutcomeAway:
		return m.AwayOdd
	default:
		return 0
	}
}

// Scored returns the goals team scored in m, and whether team played in m
func (m Match) Scored(team string) (int, bool) {
	switch team {
	case m.HomeTeam:
		return m.HomeScore, true
	case m.AwayTeam:
		return m.AwayScore, true
	default:
		return 0, false
	}
}

// Conceded returns the goals team conceded in m, and whether team played in m
func (m Match) Conceded(team string) (int, bool) {
	switch team {
	case m.HomeTeam:
		return m.AwayScore, true
	case m.AwayTeam:
		return m.HomeScore, true
	default:
		return 0, false
	}
}

func (m Match) String() string {
	return fmt.Sprintf("%s %s-%s %d:%d", m.Date.Format("2006-01-02"), m.HomeTeam, m.AwayTeam, m.HomeScore, m.AwayScore)
}

// Validate checks the fields a simulation depends on
func (m Match) Validate() error {
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return fmt.Errorf("match on %s: team names are required", m.Date.Format("2006-01-02"))
	}
	if m.Date.IsZero() {
		return fmt.Errorf("match %s-%s: date is required", m.HomeTeam, m.AwayTeam)
	}
	if m.HomeScore < 0 || m.AwayScore < 0 {
		return fmt.Errorf("match %s: negative score", m)
	}
	if m.HomeOdd <= 0 || m.DrawOdd <= 0 || m.AwayOdd <= 0 {
		return fmt.Errorf("match %s: odds must be positive", m)
	}
	return nil
}

// less orders matches by date, then home team, then away team
func less(a, b Match) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.HomeTeam != b.HomeTeam {
		return a.HomeTeam < b.HomeTeam
	}
	return a.AwayTeam < b.AwayTeam
}

// SortByDate sorts matches in place, oldest first, with a deterministic tie-break
func SortByDate(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return less(matches[i], matches[j])
	})
}

// Dedupe returns matches with duplicate identities removed, keeping the first occurrence
func Dedupe(matches []Match) []Match {
	seen := make(map[Key]struct{}, len(matches))
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		k := m.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

// SeasonOf derives a "2019-2020" style season label from a match date.
// Seasons roll over in July.
func SeasonOf(date time.Time) string {
	year := date.Year()
	if date.Month() < time.July {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}
