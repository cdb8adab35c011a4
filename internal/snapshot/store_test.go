package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

func nodes(t *testing.T, generation int, fitness ...float64) []*genetic.Node {
	t.Helper()
	out := make([]*genetic.Node, len(fitness))
	for i, f := range fitness {
		n, err := genetic.NewNode(0.5+float64(i)/10, 1.5, 5, 10+i, generation)
		require.NoError(t, err)
		n.Fitness = f
		n.BetsWon = i
		out[i] = n
	}
	return out
}

func TestStore_WriteAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())
	_, err := uuid.Parse(store.RunID())
	require.NoError(t, err)

	latest, err := store.LoadLatestGeneration(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, latest, "missing save has no generation")

	require.NoError(t, store.WriteGeneration(ctx, "s1", nodes(t, 0, 1, 2), 0))
	before, err := store.LoadGenerationBefore(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, before, "one generation has nothing before it")

	written := nodes(t, 1, 3.5, -2, 0)
	require.NoError(t, store.WriteGeneration(ctx, "s1", written, 1))
	require.NoError(t, store.WriteGeneration(ctx, "s1", nodes(t, 12, 0, 0), 12))

	numbers, err := store.Generations("s1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 12}, numbers)

	latest, err = store.LoadLatestGeneration(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 12, latest.Number)

	before, err = store.LoadGenerationBefore(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, before)
	assert.Equal(t, 1, before.Number)
	require.Len(t, before.Nodes, 3)
	for i := range written {
		assert.True(t, written[i].Equal(before.Nodes[i]), "node %d differs", i)
	}

	_, err = os.Stat(filepath.Join(store.Dir("s1"), "generation_000012.json"))
	assert.NoError(t, err)

	saves, err := store.Saves()
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, saves)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	require.NoError(t, store.WriteGeneration(ctx, "s", nodes(t, 3, 1, 1), 3))
	require.NoError(t, store.WriteGeneration(ctx, "s", nodes(t, 3, 9, 9, 9), 3))

	g, err := store.LoadGeneration("s", 3)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)

	entries, err := os.ReadDir(store.Dir("s"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"))
	}
}

func TestStore_Decode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr error
	}{
		{
			name:    "legacy node array",
			content: `[{"play_limit":0.4,"draw_limit":1.2,"minimum_stake":5,"simulation_sample_size":8,"generation":2}]`,
			want:    1,
		},
		{
			name:    "current version",
			content: `{"schema_version":"1.0.0","nodes":[{"play_limit":0.4,"draw_limit":1.2,"minimum_stake":5,"simulation_sample_size":8}]}`,
			want:    1,
		},
		{
			name:    "newer major version",
			content: `{"schema_version":"2.0.0","nodes":[]}`,
			wantErr: ErrIncompatibleSchema,
		},
		{
			name:    "newer minor version",
			content: `{"schema_version":"1.4.0","nodes":[]}`,
			wantErr: ErrIncompatibleSchema,
		},
		{
			name:    "missing version",
			content: `{"nodes":[]}`,
			wantErr: ErrIncompatibleSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			require.NoError(t, os.MkdirAll(store.Dir("s"), 0o750))
			require.NoError(t, os.WriteFile(store.generationPath("s", 2), []byte(tt.content), 0o600))

			g, err := store.LoadLatestGeneration(context.Background(), "s")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, g.Number)
			assert.Len(t, g.Nodes, tt.want)
		})
	}
}

func TestStore_IgnoresUnrelatedFiles(t *testing.T) {
	store := NewStore(t.TempDir())
	dir := store.Dir("s")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "generation_000009.json"), 0o750))
	for _, name := range []string{"generation_1.json.tmp", "notes.json", LogFileName} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, store.WriteGeneration(context.Background(), "s", nodes(t, 4, 1, 2), 4))

	numbers, err := store.Generations("s")
	require.NoError(t, err)
	assert.Equal(t, []int{4}, numbers)
}

func TestStore_WriteGenerationRejectsNegative(t *testing.T) {
	err := NewStore(t.TempDir()).WriteGeneration(context.Background(), "s", nil, -1)
	assert.ErrorIs(t, err, genetic.ErrValidation)
}

func TestStore_AppendLog(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	require.NoError(t, store.AppendLog(ctx, "s", []string{"generation=0", "  best: a"}))
	require.NoError(t, store.AppendLog(ctx, "s", nil))
	require.NoError(t, store.AppendLog(ctx, "s", []string{"generation=1"}))

	data, err := os.ReadFile(filepath.Join(store.Dir("s"), LogFileName))
	require.NoError(t, err)
	assert.Equal(t, "generation=0\n  best: a\ngeneration=1\n", string(data))
}

func TestStore_Configuration(t *testing.T) {
	store := NewStore(t.TempDir())

	cfg, err := store.LoadConfiguration("s")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	dir := t.TempDir()
	t.Chdir(dir)
	original, err := config.Load("")
	require.NoError(t, err)
	original.Alpha = 0.3
	original.CrossoverMethod = genetic.CrossoverUniformAlpha

	require.NoError(t, store.WriteConfiguration("s", original))
	loaded, err := store.LoadConfiguration("s")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 0.3, loaded.Alpha)
	assert.Equal(t, original.CrossoverMethod, loaded.CrossoverMethod)
	assert.Equal(t, original.NumberOfNodes, loaded.NumberOfNodes)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir("s"), config.ConfigFileName), []byte("alpha: -4\n"), 0o600))
	_, err = store.LoadConfiguration("s")
	var verrs config.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestStore_ImplementsPersistence(t *testing.T) {
	var _ genetic.Persistence = NewStore(t.TempDir())
	var _ genetic.Observer = (*Mirror)(nil)
}
