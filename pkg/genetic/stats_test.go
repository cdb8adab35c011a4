package genetic

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSummary(t *testing.T) {
	pop := population(t, 2, 4, 4, 4, 5, 5, 7, 9)
	for i, n := range pop {
		n.Generation = 3
		n.BetsWon = i
		n.BetsSkipped = 1
	}

	s := ComputeSummary("save", pop)
	assert.Equal(t, "save", s.Save)
	assert.Equal(t, 3, s.Generation)
	assert.Equal(t, 8, s.Size)
	assert.Equal(t, 9.0, s.BestFitness)
	assert.Equal(t, 2.0, s.WorstFitness)
	assert.InDelta(t, 5.0, s.MeanFitness, 1e-12)
	// unbiased sample standard deviation
	assert.InDelta(t, 2.138, s.StdDevFitness, 1e-3)
	assert.Equal(t, 28, s.BetsWon)
	assert.Equal(t, 8, s.BetsSkipped)
	require.NotNil(t, s.Best)
	assert.Equal(t, 9.0, s.Best.Fitness)
	assert.NotSame(t, pop[7], s.Best)
}

func TestComputeSummary_Small(t *testing.T) {
	empty := ComputeSummary("save", nil)
	assert.Zero(t, empty.Size)
	assert.Nil(t, empty.Best)

	single := ComputeSummary("save", population(t, 3))
	assert.Equal(t, 3.0, single.MeanFitness)
	assert.Zero(t, single.StdDevFitness)
}

func TestSummary_MarshalZerologObject(t *testing.T) {
	var buf writer
	logger := zerolog.New(&buf)
	logger.Info().EmbedObject(ComputeSummary("s1", population(t, 1, 3))).Msg("x")

	assert.Contains(t, buf.String(), `"save":"s1"`)
	assert.Contains(t, buf.String(), `"best_fitness":3`)
	assert.Contains(t, buf.String(), `"mean_fitness":2`)
}

type writer struct{ data []byte }

func (w *writer) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *writer) String() string { return string(w.data) }
