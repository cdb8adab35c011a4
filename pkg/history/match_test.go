package history

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Result(t *testing.T) {
	tests := []struct {
		name   string
		hs, as int
		want   Outcome
	}{
		{"home win", 2, 1, OutcomeHome},
		{"draw", 1, 1, OutcomeDraw},
		{"away win", 0, 3, OutcomeAway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := match("2020-01-01", "H", "A", tt.hs, tt.as)
			assert.Equal(t, tt.want, m.Result())
			assert.True(t, m.Result().Valid())
		})
	}
	assert.False(t, Outcome("Z").Valid())
}

func TestMatch_ScoredConceded(t *testing.T) {
	m := match("2020-01-01", "H", "A", 3, 1)

	s, ok := m.Scored("H")
	assert.True(t, ok)
	assert.Equal(t, 3, s)
	c, _ := m.Conceded("H")
	assert.Equal(t, 1, c)

	s, _ = m.Scored("A")
	assert.Equal(t, 1, s)
	c, _ = m.Conceded("A")
	assert.Equal(t, 3, c)

	_, ok = m.Scored("Nobody")
	assert.False(t, ok)
}

func TestMatch_Odd(t *testing.T) {
	m := match("2020-01-01", "H", "A", 0, 0)
	assert.Equal(t, 2.5, m.Odd(OutcomeHome))
	assert.Equal(t, 3.15, m.Odd(OutcomeDraw))
	assert.Equal(t, 2.70, m.Odd(OutcomeAway))
	assert.Equal(t, 0.0, m.Odd("?"))
}

func TestMatch_Validate(t *testing.T) {
	valid := match("2020-01-01", "H", "A", 0, 0)
	require.NoError(t, valid.Validate())

	noTeam := valid
	noTeam.HomeTeam = ""
	assert.Error(t, noTeam.Validate())

	badOdd := valid
	badOdd.DrawOdd = 0
	assert.Error(t, badOdd.Validate())

	negative := valid
	negative.AwayScore = -1
	assert.Error(t, negative.Validate())
}

func TestDedupeAndSort(t *testing.T) {
	a := match("2020-01-02", "B", "C", 1, 0)
	b := match("2020-01-01", "A", "C", 1, 0)
	dup := a
	dup.HomeScore = 4

	out := Dedupe([]Match{a, b, dup})
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].HomeScore)
	assert.True(t, a.Same(dup))

	SortByDate(out)
	assert.Equal(t, "A", out[0].HomeTeam)
}

func TestMatch_Key(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int64
	}{
		{"epoch", time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), 0},
		{"second day", time.Date(1970, time.January, 2, 0, 0, 0, 0, time.UTC), 1},
		{"evening kick-off", time.Date(2020, time.January, 2, 20, 45, 0, 0, time.UTC), 18263},
		{"before epoch", time.Date(1969, time.December, 31, 15, 0, 0, 0, time.UTC), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Match{HomeTeam: "A", AwayTeam: "B", Date: tt.date}
			assert.Equal(t, tt.want, m.Key().Day)
		})
	}

	kickoff := match("2020-01-02", "A", "B", 1, 0)
	late := kickoff
	late.Date = kickoff.Date.Add(21 * time.Hour)
	assert.True(t, kickoff.Same(late), "same calendar day")

	next := kickoff
	next.Date = kickoff.Date.AddDate(0, 0, 1)
	assert.False(t, kickoff.Same(next))
}

func TestSeasonOf(t *testing.T) {
	assert.Equal(t, "2019-2020", SeasonOf(day("2020-03-01")))
	assert.Equal(t, "2020-2021", SeasonOf(day("2020-08-15")))
	assert.Equal(t, "2019-2020", SeasonOf(day("2019-07-01")))
}

func TestSampler_DrawWithoutReplacement(t *testing.T) {
	s := NewSampler(rand.New(rand.NewSource(7))) // #nosec G404 -- deterministic test randomness

	for trial := 0; trial < 50; trial++ {
		idx, err := s.DrawWithoutReplacement(20, 10)
		require.NoError(t, err)
		require.Len(t, idx, 10)
		seen := map[int]bool{}
		for _, i := range idx {
			assert.GreaterOrEqual(t, i, 0)
			assert.Less(t, i, 20)
			assert.False(t, seen[i], "index %d drawn twice", i)
			seen[i] = true
		}
	}

	all, err := s.DrawWithoutReplacement(5, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, all)

	empty, err := s.DrawWithoutReplacement(5, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.DrawWithoutReplacement(3, 4)
	assert.ErrorIs(t, err, ErrSampling)

	_, err = s.DrawWithoutReplacement(3, -1)
	assert.ErrorIs(t, err, ErrSampling)
}
