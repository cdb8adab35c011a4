package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

const laterRound = "Div,Date,HomeTeam,AwayTeam,FTHG,FTAG,B365H,B365D,B365A\n" +
	"E0,17/08/2019,Arsenal,Burnley,2,1,1.4,5,7.5\n" +
	"E0,10/08/2019,Burnley,Southampton,3,0,2.62,3.2,2.75\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileStore_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "E0_1920.csv"), premierLeague)
	writeFile(t, filepath.Join(dir, "E0_1920b.CSV"), laterRound)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a csv")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o750))

	ctx := context.Background()
	store := NewFileStore(dir)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	// four from the first file, one new from the second
	assert.Equal(t, 5, n)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Date.Before(all[i-1].Date), "matches out of order at %d", i)
	}
	assert.Equal(t, "Liverpool", all[0].HomeTeam)
	assert.Equal(t, "Bournemouth", all[1].HomeTeam)
	assert.Equal(t, "Burnley", all[2].HomeTeam)
	assert.Equal(t, "West Ham", all[3].HomeTeam)
	assert.Equal(t, "Arsenal", all[4].HomeTeam)

	picked, err := store.SelectByIndex(ctx, []int{4, 0, 4})
	require.NoError(t, err)
	assert.Equal(t, []history.Match{all[4], all[0], all[4]}, picked)

	_, err = store.SelectByIndex(ctx, []int{5})
	assert.ErrorIs(t, err, history.ErrSampling)
	_, err = store.SelectByIndex(ctx, []int{-1})
	assert.ErrorIs(t, err, history.ErrSampling)
}

func TestFileStore_LoadAllReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "E0.csv")
	writeFile(t, path, premierLeague)

	ctx := context.Background()
	store := NewFileStore(path)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	all[0].HomeTeam = "changed"

	again, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Liverpool", again[0].HomeTeam)
}

func TestFileStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "E0.csv")
	writeFile(t, path, laterRound)

	ctx := context.Background()
	store := NewFileStore(path)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	writeFile(t, path, premierLeague)
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "cached until reload")

	store.Reload()
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestFileStore_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewFileStore(filepath.Join(t.TempDir(), "missing.csv")).Count(ctx)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	writeFile(t, bad, "Div,Date\nE0,01/01/2020\n")
	_, err = NewFileStore(bad).LoadAll(ctx)
	assert.ErrorIs(t, err, ErrMissingColumn)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewFileStore(bad).LoadAll(canceled)
	assert.ErrorIs(t, err, context.Canceled)
}
