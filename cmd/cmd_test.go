package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/collect"
	"github.com/Benny93/reactome-sbml/internal/config"
	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/storage"
	"github.com/Benny93/reactome-sbml/internal/testutil"
)

type testGlobals struct {
	*Globals
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestGlobals() testGlobals {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return testGlobals{
		Globals: &Globals{
			Source: config.SourceJSON,
			Host:   config.DefaultHost,
			stdout: stdout,
			stderr: stderr,
			logger: zap.NewNop(),
			open: func(context.Context, config.Config) (storage.Source, error) {
				return testutil.NewSource(), nil
			},
		},
		stdout: stdout,
		stderr: stderr,
	}
}

func writeDump(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, storage.WriteJSON(f, storage.DBInfo{Name: "reactome", Version: testutil.Release}, testutil.Instances()))
	require.NoError(t, f.Close())
	return path
}

func TestGlobals_SourceConfig(t *testing.T) {
	t.Parallel()

	t.Run("Defaults", func(t *testing.T) {
		g := &Globals{Source: config.SourceNeo4j, Host: "localhost"}
		cfg := g.SourceConfig()
		assert.Equal(t, config.Default(), cfg)
		assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI())
	})

	t.Run("Overrides", func(t *testing.T) {
		g := &Globals{Source: config.SourceMySQL, Host: "db.example.org", Port: 3307, User: "curator", Password: "pw", Database: "test_slice"}
		cfg := g.SourceConfig()
		assert.Equal(t, config.Database{Host: "db.example.org", Port: 3307, User: "curator", Password: "pw", Database: "test_slice"}, cfg.MySQL)
		assert.Equal(t, 3307, cfg.Neo4j.Port)
	})
}

func TestExportCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("EchoesDocument", func(t *testing.T) {
		g := newTestGlobals()
		out := filepath.Join(t.TempDir(), "out.xml")

		cmd := &ExportCmd{ID: testutil.GlycolysisStID, Output: out}
		require.NoError(t, cmd.Run(g.Globals))

		stdout := g.stdout.String()
		assert.True(t, strings.HasPrefix(stdout, "Database name: reactome\nDatabase version: 75\n<?xml"))
		assert.Contains(t, stdout, `id="pathway_2000"`)
		assert.Contains(t, g.stderr.String(), "Reactions:      3")

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(stdout, string(data)))
	})

	t.Run("Quiet", func(t *testing.T) {
		g := newTestGlobals()
		cmd := &ExportCmd{ID: "1001", Output: filepath.Join(t.TempDir(), "out.xml"), Quiet: true, NoAnnotations: true}
		require.NoError(t, cmd.Run(g.Globals))
		assert.Equal(t, "Database name: reactome\nDatabase version: 75\n", g.stdout.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		g := newTestGlobals()
		cmd := &ExportCmd{ID: "R-HSA-31337", Output: filepath.Join(t.TempDir(), "out.xml")}
		err := cmd.Run(g.Globals)
		require.ErrorIs(t, err, collect.ErrNotFound)
		assert.Contains(t, err.Error(), "exporting R-HSA-31337")
	})
}

func TestSnapshotCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("Badger", func(t *testing.T) {
		g := newTestGlobals()
		dir := filepath.Join(t.TempDir(), "snap")

		cmd := &SnapshotCmd{ID: testutil.HydrolysisStID, To: dir, Format: "badger"}
		require.NoError(t, cmd.Run(g.Globals))
		assert.Contains(t, g.stdout.String(), "from reactome release 75 in "+dir)

		// Search the snapshot just written.
		search := newTestGlobals()
		search.Source = config.SourceSnapshot
		search.Snapshot = dir
		search.open = config.Open
		require.NoError(t, (&SearchCmd{Query: "hydrolysis", Limit: 5}).Run(search.Globals))
		assert.Contains(t, search.stdout.String(), "1. ATP hydrolysis (Reaction)")
		assert.Contains(t, search.stdout.String(), "StID:  R-HSA-1001")
	})

	t.Run("JSON", func(t *testing.T) {
		g := newTestGlobals()
		path := filepath.Join(t.TempDir(), "dump.json")

		cmd := &SnapshotCmd{ID: testutil.HydrolysisStID, To: path, Format: "json"}
		require.NoError(t, cmd.Run(g.Globals))

		src, err := storage.LoadJSON(path)
		require.NoError(t, err)
		assert.NotNil(t, src.Graph().Get(testutil.Hydrolysis))
	})
}

func TestSearchCmd_NeedsSnapshot(t *testing.T) {
	t.Parallel()

	g := newTestGlobals()
	err := (&SearchCmd{Query: "ATP", Limit: 5}).Run(g.Globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search needs a snapshot source")
}

func TestClassifyCmd_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{"SimpleEntity", "SimpleEntity: SBO:0000247\n"},
		{"ProteinDrug", "ProteinDrug: SBO:0000298\n"},
		{"neg_regulator", "neg_regulator: SBO:0000020\n"},
		{"OpenSet", "OpenSet: no SBO term\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newTestGlobals()
			require.NoError(t, (&ClassifyCmd{Name: tt.name}).Run(g.Globals))
			assert.Equal(t, tt.want, g.stdout.String())
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		g := newTestGlobals()
		assert.Error(t, (&ClassifyCmd{Name: "Cell"}).Run(g.Globals))
	})
}

func TestLookupCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("NoSpeciesRecords", func(t *testing.T) {
		t.Parallel()
		g := newTestGlobals()
		require.NoError(t, (&LookupCmd{Species: collect.HomoSapiens}).Run(g.Globals))
		assert.Equal(t, "Pathway 2005 matches (Polymer handling)\nFound 1 of 6\n", g.stdout.String())
	})

	t.Run("Species", func(t *testing.T) {
		t.Parallel()
		g := newTestGlobals()
		g.open = func(context.Context, config.Config) (storage.Source, error) {
			src := testutil.NewSource()
			src.Graph().Get(testutil.PolyPathway).AddRef(graph.AttrSpecies, collect.HomoSapiens)
			src.Graph().Get(testutil.Glycolysis).AddRef(graph.AttrSpecies, collect.HomoSapiens)
			src.Add(graph.NewInstance(collect.HomoSapiens, graph.ClassSpecies, "Homo sapiens"))
			return src, nil
		}
		require.NoError(t, (&LookupCmd{Species: collect.HomoSapiens}).Run(g.Globals))
		assert.Equal(t, "Pathway 2005 matches (Polymer handling)\nFound 1 of 2\n", g.stdout.String())
	})
}

func TestActivitiesCmd_Run(t *testing.T) {
	t.Parallel()

	g := newTestGlobals()
	g.open = func(context.Context, config.Config) (storage.Source, error) {
		src := testutil.NewSource()
		src.Add(graph.NewInstance(3400, graph.ClassPathway, "ATP hydrolysis pathway").AddRef(graph.AttrHasEvent, testutil.Hydrolysis))
		return src, nil
	}
	require.NoError(t, (&ActivitiesCmd{Species: collect.HomoSapiens}).Run(g.Globals))
	assert.Equal(t, "Pathway 3400 catalyst activity has no GO molecular function\nFound 1 of 7\n", g.stdout.String())
}

func TestInfoCmd_Run(t *testing.T) {
	t.Parallel()

	g := newTestGlobals()
	require.NoError(t, (&InfoCmd{}).Run(g.Globals))
	assert.Equal(t, "Database name: reactome\nDatabase version: 75\n", g.stdout.String())
}

func TestSetupCmd_Run(t *testing.T) {
	t.Run("Stdout", func(t *testing.T) {
		g := newTestGlobals()
		g.JSON = "/data/reactome.json"
		require.NoError(t, (&SetupCmd{Format: "json"}).Run(g.Globals))

		var cfg map[string]any
		require.NoError(t, json.Unmarshal(g.stdout.Bytes(), &cfg))
		server := cfg["mcpServers"].(map[string]any)["reactome-sbml"].(map[string]any)
		assert.Equal(t, "reactome-sbml", server["command"])
		assert.Equal(t, []any{"mcp", "--source", "json", "--json", "/data/reactome.json"}, server["args"])
	})

	t.Run("FilePath", func(t *testing.T) {
		g := newTestGlobals()
		dir := t.TempDir()
		require.NoError(t, (&SetupCmd{Cursor: true, Format: "json", FilePath: dir}).Run(g.Globals))

		_, err := os.Stat(filepath.Join(dir, "mcp.json"))
		assert.NoError(t, err)
	})

	t.Run("Global", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		g := newTestGlobals()
		require.NoError(t, (&SetupCmd{Cursor: true, Global: true, Format: "text"}).Run(g.Globals))

		data, err := os.ReadFile(filepath.Join(home, ".cursor", "global", "mcp.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "# MCP Configuration for reactome-sbml")
		assert.Contains(t, g.stdout.String(), "Created cursor MCP config")
	})

	t.Run("Local", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		g := newTestGlobals()
		require.NoError(t, (&SetupCmd{Qwen: true, Format: "json"}).Run(g.Globals))

		_, err := os.Stat(filepath.Join(dir, ".qwen", "mcp.json"))
		assert.NoError(t, err)
	})
}

func TestCLI_Execute(t *testing.T) {
	dump := writeDump(t)
	out := filepath.Join(t.TempDir(), "model.xml")

	t.Run("Export", func(t *testing.T) {
		err := NewCLI().Execute([]string{"--source", "json", "--json", dump, "export", "-q", "-o", out, "1001"})
		require.NoError(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), `id="reaction_1001"`)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(cfgPath, []byte(`{"source": "json", "json": "`+dump+`"}`), 0o644))

		cli := NewCLI()
		require.NoError(t, cli.Execute([]string{"--config", cfgPath, "info"}))
		assert.Equal(t, config.SourceJSON, cli.Source)
		assert.Equal(t, dump, cli.JSON)
	})

	t.Run("MissingSource", func(t *testing.T) {
		err := NewCLI().Execute([]string{"--source", "json", "info"})
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrInvalid)
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		assert.Error(t, NewCLI().Execute([]string{"frobnicate"}))
	})
}
