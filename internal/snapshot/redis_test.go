package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

func setupMirror(t *testing.T) (*Mirror, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewMirror(client, "betevolve:", time.Hour), mr
}

func summary(t *testing.T, generation int, best float64) genetic.Summary {
	t.Helper()
	pop := nodes(t, generation, best, best/2)
	return genetic.ComputeSummary("s1", pop)
}

func TestNewMirror_NilClient(t *testing.T) {
	m := NewMirror(nil, "x", 0)
	assert.Nil(t, m)

	// a nil mirror is a silent observer
	assert.NoError(t, m.OnGeneration(context.Background(), genetic.Summary{}))
	_, ok := m.Latest(context.Background(), "s1")
	assert.False(t, ok)
	_, err := m.History(context.Background(), "s1", 5)
	assert.Error(t, err)
}

func TestMirror_OnGeneration(t *testing.T) {
	m, mr := setupMirror(t)
	ctx := context.Background()

	_, ok := m.Latest(ctx, "s1")
	assert.False(t, ok)

	for g := 0; g < 3; g++ {
		require.NoError(t, m.OnGeneration(ctx, summary(t, g, float64(10*(g+1)))))
	}

	latest, ok := m.Latest(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, 2, latest.Generation)
	assert.Equal(t, 30.0, latest.BestFitness)
	require.NotNil(t, latest.Best)
	assert.Equal(t, 30.0, latest.Best.Fitness)

	history, err := m.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int{2, 1, 0}, []int{history[0].Generation, history[1].Generation, history[2].Generation})

	assert.True(t, mr.Exists("betevolve:save:s1:latest"))
	assert.Equal(t, time.Hour, mr.TTL("betevolve:save:s1:latest"))
	assert.Equal(t, time.Hour, mr.TTL("betevolve:save:s1:history"))
}

func TestMirror_HistoryIsBounded(t *testing.T) {
	m, mr := setupMirror(t)
	ctx := context.Background()

	for g := 0; g < HistoryLength+5; g++ {
		require.NoError(t, m.OnGeneration(ctx, summary(t, g, 1)))
	}

	items, err := mr.List("betevolve:save:s1:history")
	require.NoError(t, err)
	assert.Len(t, items, HistoryLength)

	history, err := m.History(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, HistoryLength+4, history[0].Generation)
}

func TestMirror_Unavailable(t *testing.T) {
	m, mr := setupMirror(t)
	mr.Close()

	err := m.OnGeneration(context.Background(), summary(t, 0, 1))
	assert.Error(t, err)
	_, ok := m.Latest(context.Background(), "s1")
	assert.False(t, ok)
}
