package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/reactome-sbml/internal/graph"
)

func TestWriteJSON_ReadJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteJSON(&buf, DBInfo{Name: "reactome", Version: 75}, sampleInstances())
	require.NoError(t, err)

	m, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Count())

	info, _ := m.Info(context.Background())
	assert.Equal(t, DBInfo{Name: "reactome", Version: 75}, info)

	rxn, err := m.FetchByID(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, rxn.Refs(graph.AttrInput))
	assert.Equal(t, "R-HSA-20", rxn.StID)
}

func TestReadJSON_Errors(t *testing.T) {
	t.Parallel()

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		_, err := ReadJSON(strings.NewReader("{"))
		assert.Error(t, err)
	})

	t.Run("MissingDBID", func(t *testing.T) {
		t.Parallel()
		_, err := ReadJSON(strings.NewReader(`{"instances":[{"schemaClass":"Pathway"}]}`))
		assert.ErrorContains(t, err, "without dbId")
	})
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dump.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteJSON(f, DBInfo{}, sampleInstances()))
	require.NoError(t, f.Close())

	m, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Count())

	_, err = LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := NewRecorder(NewMemoryBackend().Add(sampleInstances()...))

	_, err := rec.FetchByID(ctx, 20)
	require.NoError(t, err)
	_, err = rec.FetchByAttribute(ctx, graph.ClassEvent, graph.AttrStID, "R-HSA-30")
	require.NoError(t, err)
	missing, err := rec.FetchByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	recorded := rec.Recorded()
	assert.Equal(t, 2, recorded.Count())
	assert.NotNil(t, recorded.Get(20))
	assert.NotNil(t, recorded.Get(30))
	assert.Nil(t, recorded.Get(10))
}
