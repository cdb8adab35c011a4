package history

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// NoSeasonData is stored as a season average when no league match precedes the date
const NoSeasonData = -1.0

// Window is the cached history of one indexed match
type Window struct {
	HomeSeasonAvg    float64
	AwaySeasonAvg    float64
	HomeTeamPrevious []Match
	AwayTeamPrevious []Match
}

// Index precomputes, for every match of a generation's sample, the last
// maxSampleSize prior matches of both teams and the league season averages.
// An Index is read-only once built and safe for concurrent use.
type Index struct {
	maxSampleSize int
	windows       map[Key]*Window
}

type seasonKey struct {
	league string
	season string
}

// seasonTable holds league matches ordered by date with cumulative goal sums
type seasonTable struct {
	dates   []time.Time
	homeCum []int
	awayCum []int
}

// catalog groups the full match history for lookups during a build
type catalog struct {
	byTeam   map[string][]Match
	bySeason map[seasonKey]*seasonTable
}

func newCatalog(all []Match) *catalog {
	sorted := make([]Match, len(all))
	copy(sorted, all)
	SortByDate(sorted)

	c := &catalog{
		byTeam:   make(map[string][]Match),
		bySeason: make(map[seasonKey]*seasonTable),
	}
	for _, m := range sorted {
		c.byTeam[m.HomeTeam] = append(c.byTeam[m.HomeTeam], m)
		if m.AwayTeam != m.HomeTeam {
			c.byTeam[m.AwayTeam] = append(c.byTeam[m.AwayTeam], m)
		}

		sk := seasonKey{league: m.League, season: m.Season}
		t, ok := c.bySeason[sk]
		if !ok {
			t = &seasonTable{homeCum: []int{0}, awayCum: []int{0}}
			c.bySeason[sk] = t
		}
		t.dates = append(t.dates, m.Date)
		t.homeCum = append(t.homeCum, t.homeCum[len(t.homeCum)-1]+m.HomeScore)
		t.awayCum = append(t.awayCum, t.awayCum[len(t.awayCum)-1]+m.AwayScore)
	}
	return c
}

// seasonAverage returns the mean goals scored by the home (or away) side across
// the league season before date, or NoSeasonData
func (c *catalog) seasonAverage(isHome bool, m Match) float64 {
	t, ok := c.bySeason[seasonKey{league: m.League, season: m.Season}]
	if !ok {
		return NoSeasonData
	}
	n := sort.Search(len(t.dates), func(i int) bool {
		return !t.dates[i].Before(m.Date)
	})
	if n == 0 {
		return NoSeasonData
	}
	if isHome {
		return float64(t.homeCum[n]) / float64(n)
	}
	return float64(t.awayCum[n]) / float64(n)
}

// previous returns up to max matches of team strictly before date, newest first.
// Role-restricted matches are preferred; when fewer than max exist the whole
// attempt is discarded in favour of all of the team's matches.
func (c *catalog) previous(team string, isHome bool, date time.Time, max int) []Match {
	list := c.byTeam[team]
	cut := sort.Search(len(list), func(i int) bool {
		return !list[i].Date.Before(date)
	})

	role := make([]Match, 0, max)
	for i := cut - 1; i >= 0 && len(role) < max; i-- {
		if playsRole(list[i], team, isHome) {
			role = append(role, list[i])
		}
	}
	if len(role) == max {
		return role
	}

	start := cut - max
	if start < 0 {
		start = 0
	}
	all := make([]Match, 0, cut-start)
	for i := cut - 1; i >= start; i-- {
		all = append(all, list[i])
	}
	return all
}

func playsRole(m Match, team string, isHome bool) bool {
	if isHome {
		return m.HomeTeam == team
	}
	return m.AwayTeam == team
}

// BuildIndex builds the window index for sample, searching history in all.
// maxSampleSize is the largest window any caller will request.
func BuildIndex(all, sample []Match, maxSampleSize int) (*Index, error) {
	if maxSampleSize < 1 {
		return nil, fmt.Errorf("max sample size must be at least 1, got %d", maxSampleSize)
	}

	c := newCatalog(all)
	windows := make([]*Window, len(sample))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range sample {
		g.Go(func() error {
			m := sample[i]
			windows[i] = &Window{
				HomeSeasonAvg:    c.seasonAverage(true, m),
				AwaySeasonAvg:    c.seasonAverage(false, m),
				HomeTeamPrevious: c.previous(m.HomeTeam, true, m.Date, maxSampleSize),
				AwayTeamPrevious: c.previous(m.AwayTeam, false, m.Date, maxSampleSize),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{
		maxSampleSize: maxSampleSize,
		windows:       make(map[Key]*Window, len(sample)),
	}
	for i, m := range sample {
		idx.windows[m.Key()] = windows[i]
	}
	return idx, nil
}

// MaxSampleSize returns the window size the index was built for
func (idx *Index) MaxSampleSize() int {
	return idx.maxSampleSize
}

// Len returns the number of indexed matches
func (idx *Index) Len() int {
	return len(idx.windows)
}

// Window returns the cached window for m
func (idx *Index) Window(m Match) (*Window, bool) {
	w, ok := idx.windows[m.Key()]
	return w, ok
}

// LastN returns the n most recent matches of the home (or away) team of m
// before m's date. Exactly n role-restricted matches are returned when the
// cached pool holds that many; otherwise the first n of the whole pool.
func (idx *Index) LastN(isHome bool, m Match, n int) ([]Match, error) {
	if n < 1 {
		return nil, fmt.Errorf("window size must be at least 1, got %d", n)
	}
	w, ok := idx.windows[m.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: match %s is not indexed", ErrInsufficientData, m)
	}

	team, pool := m.AwayTeam, w.AwayTeamPrevious
	if isHome {
		team, pool = m.HomeTeam, w.HomeTeamPrevious
	}
	if len(pool) < n {
		return nil, fmt.Errorf("%w: %s has %d prior matches, need %d", ErrInsufficientData, team, len(pool), n)
	}

	role := make([]Match, 0, n)
	for _, prev := range pool {
		if playsRole(prev, team, isHome) {
			role = append(role, prev)
			if len(role) == n {
				return role, nil
			}
		}
	}

	out := make([]Match, n)
	copy(out, pool[:n])
	return out, nil
}

// SeasonAverage returns the cached league season average for the home (or away) side of m
func (idx *Index) SeasonAverage(isHome bool, m Match) (float64, error) {
	w, ok := idx.windows[m.Key()]
	if !ok {
		return 0, fmt.Errorf("%w: match %s is not indexed", ErrInsufficientData, m)
	}
	avg := w.AwaySeasonAvg
	if isHome {
		avg = w.HomeSeasonAvg
	}
	if avg == NoSeasonData {
		return 0, fmt.Errorf("%w: no %s season history before %s", ErrInsufficientData, m.League, m.Date.Format("2006-01-02"))
	}
	return avg, nil
}
