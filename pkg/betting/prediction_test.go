package betting

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixture(date, home, away string, hs, as int) history.Match {
	return history.Match{
		HomeTeam:  home,
		AwayTeam:  away,
		League:    "E0",
		Season:    "2019-2020",
		Date:      day(date),
		HomeScore: hs,
		AwayScore: as,
		HomeOdd:   2.40,
		DrawOdd:   3.15,
		AwayOdd:   2.70,
	}
}

// leagueFixture: H scores 4 and concedes 2 over 3 home games, A scores 6 and
// concedes 2 over 3 away games; the league has 10 home and 8 away goals in 7 games
func leagueFixture() ([]history.Match, history.Match) {
	all := []history.Match{
		fixture("2020-02-01", "H", "X1", 2, 0),
		fixture("2020-02-02", "Y1", "A", 0, 2),
		fixture("2020-02-08", "H", "X2", 1, 1),
		fixture("2020-02-09", "Y2", "A", 1, 3),
		fixture("2020-02-15", "H", "X3", 1, 1),
		fixture("2020-02-16", "Y3", "A", 1, 1),
		fixture("2020-02-20", "Z1", "Z2", 4, 0),
	}
	target := fixture("2020-03-01", "H", "A", 1, 1)
	return append(all, target), target
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func TestModel_Predict(t *testing.T) {
	all, target := leagueFixture()
	idx, err := history.BuildIndex(all, []history.Match{target}, 3)
	require.NoError(t, err)

	got, err := NewModel(idx).Predict(target, 3)
	require.NoError(t, err)
	assert.Equal(t, -0.54, round2(got))
}

func TestForm(t *testing.T) {
	all, _ := leagueFixture()
	f, err := Form("H", []history.Match{all[0], all[2], all[4]})
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, f.ScoredAvg, 1e-9)
	assert.InDelta(t, 2.0/3.0, f.ConcededAvg, 1e-9)

	_, err = Form("H", nil)
	assert.ErrorIs(t, err, history.ErrInsufficientData)

	_, err = Form("Nobody", all[:1])
	assert.Error(t, err)
}

func TestModel_Predict_InsufficientData(t *testing.T) {
	all, target := leagueFixture()

	tests := []struct {
		name       string
		sampleSize int
		match      history.Match
	}{
		{"window larger than history", 4, target},
		{"first match of the season", 1, all[0]},
	}

	idx, err := history.BuildIndex(all, []history.Match{target, all[0]}, 4)
	require.NoError(t, err)
	model := NewModel(idx)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.Predict(tt.match, tt.sampleSize)
			require.Error(t, err)
			assert.True(t, errors.Is(err, history.ErrInsufficientData))
		})
	}
}

type zeroLeague struct{ history.Match }

func (z zeroLeague) LastN(isHome bool, m history.Match, n int) ([]history.Match, error) {
	return []history.Match{z.Match}, nil
}

func (z zeroLeague) SeasonAverage(isHome bool, m history.Match) (float64, error) {
	return 0, nil
}

func TestModel_Predict_ZeroLeagueAverage(t *testing.T) {
	m := fixture("2020-03-01", "H", "A", 0, 0)
	_, err := NewModel(zeroLeague{m}).Predict(m, 1)
	assert.ErrorIs(t, err, history.ErrInsufficientData)
}
