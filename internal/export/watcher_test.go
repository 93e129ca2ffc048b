package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/storage"
	"github.com/Benny93/reactome-sbml/internal/testutil"
)

type watchRun struct {
	result *Result
	err    error
}

func writeDump(t *testing.T, path string, insts []*graph.Instance) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, storage.WriteJSON(f, storage.DBInfo{Name: "reactome", Version: testutil.Release}, insts))
	require.NoError(t, f.Close())
}

func nextRun(t *testing.T, runs <-chan watchRun) watchRun {
	t.Helper()
	select {
	case run := <-runs:
		return run
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for export")
		return watchRun{}
	}
}

func TestWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dump := filepath.Join(dir, "dump.json")
	writeDump(t, dump, testutil.Instances())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan watchRun, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dump, WatchOptions{
			Options:  Options{ID: testutil.HydrolysisStID, Output: filepath.Join(dir, "out.xml")},
			Debounce: 100 * time.Millisecond,
			OnExport: func(r *Result, err error) { runs <- watchRun{r, err} },
		})
	}()

	first := nextRun(t, runs)
	require.NoError(t, first.err)
	assert.Equal(t, 2, first.result.Compartments)

	// Rename the reaction and re-export.
	insts := testutil.Instances()
	for _, inst := range insts {
		if inst.DBID == testutil.Hydrolysis {
			inst.DisplayName = "ATP hydrolysis (renamed)"
		}
	}
	writeDump(t, dump, insts)

	second := nextRun(t, runs)
	require.NoError(t, second.err)
	assert.Equal(t, "ATP hydrolysis (renamed)", second.result.Document.Model.Name)

	t.Run("BrokenDumpKeepsWatching", func(t *testing.T) {
		require.NoError(t, os.WriteFile(dump, []byte("{not json"), 0o644))
		broken := nextRun(t, runs)
		assert.Error(t, broken.err)

		writeDump(t, dump, testutil.Instances())
		recovered := nextRun(t, runs)
		require.NoError(t, recovered.err)
		assert.Equal(t, "ATP hydrolysis", recovered.result.Document.Model.Name)
	})

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	t.Parallel()

	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing", "dump.json"), WatchOptions{
		OnExport: func(*Result, error) {},
	})
	assert.Error(t, err)
}
