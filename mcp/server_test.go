package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/reactome-sbml/internal/storage"
	"github.com/Benny93/reactome-sbml/internal/testutil"
)

func newSnapshotStore(t *testing.T) *storage.BadgerBackend {
	t.Helper()
	store := storage.NewBadgerBackend()
	require.NoError(t, store.Initialize(filepath.Join(t.TempDir(), "snap"), false))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.BulkLoad(context.Background(), testutil.NewSource().Graph(),
		storage.DBInfo{Name: "reactome", Version: testutil.Release}))
	return store
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("CreatesServer", func(t *testing.T) {
		server := NewServer(testutil.NewSource(), nil)

		assert.NotNil(t, server)
		assert.NotNil(t, server.source)
		assert.NotNil(t, server.SDKServer())
	})
}

func TestServer_Tools(t *testing.T) {
	t.Parallel()

	t.Run("ListTools", func(t *testing.T) {
		tools := NewServer(testutil.NewSource(), nil).ListTools()

		names := make([]string, 0, len(tools))
		for _, tool := range tools {
			names = append(names, tool.Name)
			assert.NotEmpty(t, tool.Description)
			assert.NotNil(t, tool.InputSchema)
		}
		assert.Equal(t, []string{"sbml_export", "sbml_reactions", "sbo_term"}, names)
	})

	t.Run("SearchNeedsIndex", func(t *testing.T) {
		tools := NewServer(newSnapshotStore(t), nil).ListTools()
		assert.Len(t, tools, 4)
		assert.Equal(t, "reactome_search", tools[3].Name)
	})
}

func TestServer_HandleToolCalls(t *testing.T) {
	t.Parallel()

	server := NewServer(testutil.NewSource(), nil)
	ctx := context.Background()

	t.Run("Export", func(t *testing.T) {
		result, err := server.CallTool(ctx, "sbml_export", map[string]any{"id": testutil.HydrolysisStID})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(result, "<?xml"))
		assert.Contains(t, result, `<model metaid="metaid_0" id="reaction_1001" name="ATP hydrolysis">`)
		assert.Contains(t, result, "identifiers.org/reactome/R-HSA-1001")
	})

	t.Run("ExportWithoutAnnotations", func(t *testing.T) {
		result, err := server.CallTool(ctx, "sbml_export", map[string]any{"id": "1001", "annotations": false})
		require.NoError(t, err)
		assert.NotContains(t, result, "identifiers.org")
	})

	t.Run("ExportMissingID", func(t *testing.T) {
		result, err := server.CallTool(ctx, "sbml_export", map[string]any{})
		assert.NoError(t, err)
		assert.Equal(t, "No id provided", result)
	})

	t.Run("ExportNotFound", func(t *testing.T) {
		_, err := server.CallTool(ctx, "sbml_export", map[string]any{"id": "R-HSA-42"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot find an Event with id R-HSA-42")
	})

	t.Run("Reactions", func(t *testing.T) {
		result, err := server.CallTool(ctx, "sbml_reactions", map[string]any{"id": testutil.GlycolysisStID})
		require.NoError(t, err)
		assert.Contains(t, result, "Found 3 reactions in pathway_2000")
		assert.Contains(t, result, "1. **glucose phosphorylation** (reaction_1002, R-HSA-1002)")
		assert.Contains(t, result, "product: ADP [cytosol] x2")
		assert.Contains(t, result, "catalyst: HK1:Mg2+ [cytosol]")
		assert.Contains(t, result, "neg_regulator: imatinib")
	})

	t.Run("ReactionsEmptyPathway", func(t *testing.T) {
		result, err := server.CallTool(ctx, "sbml_reactions", map[string]any{"id": "2002"})
		require.NoError(t, err)
		assert.Equal(t, "No reactions found under 2002", result)
	})

	t.Run("Term", func(t *testing.T) {
		tests := []struct {
			name string
			want string
		}{
			{"Complex", "Complex -> SBO:0000253"},
			{"catalyst", "catalyst -> SBO:0000013"},
			{"DefinedSet", "DefinedSet carries no SBO term"},
			{"Cell", "'Cell' is not a known schema class or role"},
			{"", "No name provided"},
		}
		for _, tt := range tests {
			result, err := server.CallTool(ctx, "sbo_term", map[string]any{"name": tt.name})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		}
	})

	t.Run("SearchWithoutIndex", func(t *testing.T) {
		_, err := server.CallTool(ctx, "reactome_search", map[string]any{"query": "ATP"})
		assert.Error(t, err)
	})

	t.Run("UnknownTool", func(t *testing.T) {
		result, err := server.CallTool(ctx, "unknown_tool", map[string]any{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
		assert.Empty(t, result)
	})
}

func TestServer_Search(t *testing.T) {
	t.Parallel()

	server := NewServer(newSnapshotStore(t), nil)
	ctx := context.Background()

	result, err := server.CallTool(ctx, "reactome_search", map[string]any{"query": "hydrolysis"})
	require.NoError(t, err)
	assert.Contains(t, result, "**ATP hydrolysis** (Reaction)")
	assert.Contains(t, result, "StID: R-HSA-1001")

	result, err = server.CallTool(ctx, "reactome_search", map[string]any{"query": "zzzz"})
	require.NoError(t, err)
	assert.Equal(t, "No results found", result)
}

func TestServer_HandleResourceReads(t *testing.T) {
	t.Parallel()

	server := NewServer(testutil.NewSource(), nil)
	ctx := context.Background()

	t.Run("ListResources", func(t *testing.T) {
		uris := make([]string, 0)
		for _, res := range server.ListResources() {
			uris = append(uris, res.URI)
			assert.NotEmpty(t, res.Name)
			assert.NotEmpty(t, res.MimeType)
		}
		assert.Equal(t, []string{"sbml://schema", "sbml://sbo", "sbml://source"}, uris)
	})

	t.Run("ReadSchema", func(t *testing.T) {
		content, err := server.ReadResource(ctx, "sbml://schema")
		require.NoError(t, err)
		assert.Contains(t, content, "| `Pathway` | Event | model |")
		assert.Contains(t, content, "| `Complex` | PhysicalEntity | species |")
	})

	t.Run("ReadTerms", func(t *testing.T) {
		content, err := server.ReadResource(ctx, "sbml://sbo")
		require.NoError(t, err)
		assert.Contains(t, content, "| `SimpleEntity` | SBO:0000247 |")
		assert.Contains(t, content, "| `CandidateSet` | - |")
		assert.Contains(t, content, "| `pos_regulator` | SBO:0000459 |")
		assert.Contains(t, content, "Compartments: SBO:0000290")
	})

	t.Run("ReadSource", func(t *testing.T) {
		content, err := server.ReadResource(ctx, "sbml://source")
		require.NoError(t, err)
		assert.Contains(t, content, "**Database name:** reactome")
		assert.Contains(t, content, "**Database version:** 75")
	})

	t.Run("ReadUnknownResource", func(t *testing.T) {
		content, err := server.ReadResource(ctx, "sbml://unknown")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown resource")
		assert.Empty(t, content)
	})
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	t.Run("RunWithNilStreams", func(t *testing.T) {
		err := NewServer(testutil.NewSource(), nil).Run(context.Background(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("Session", func(t *testing.T) {
		requests := strings.Join([]string{
			`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
			`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			`not json`,
			`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sbo_term","arguments":{"name":"Polymer"}}}`,
			`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"sbml://source"}}`,
			`{"jsonrpc":"2.0","id":4,"method":"bogus"}`,
		}, "\n") + "\n"

		var out bytes.Buffer
		err := NewServer(testutil.NewSource(), nil).Run(context.Background(), strings.NewReader(requests), &out)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)

		var responses []map[string]any
		for _, line := range lines {
			var resp map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &resp))
			responses = append(responses, resp)
		}

		info := responses[0]["result"].(map[string]any)["serverInfo"].(map[string]any)
		assert.Equal(t, "reactome-sbml", info["name"])

		content := responses[1]["result"].(map[string]any)["content"].([]any)[0].(map[string]any)
		assert.Equal(t, "Polymer -> SBO:0000240", content["text"])

		contents := responses[2]["result"].(map[string]any)["contents"].([]any)[0].(map[string]any)
		assert.Contains(t, contents["text"], "Database version:** 75")

		rpcErr := responses[3]["error"].(map[string]any)
		assert.Equal(t, float64(-32601), rpcErr["code"])
	})
}

func TestServer_SDK(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewServer(testutil.NewSource(), nil)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.SDKServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	t.Run("CallTool", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "sbo_term",
			Arguments: map[string]any{"name": "ChemicalDrug"},
		})
		require.NoError(t, err)
		require.Len(t, res.Content, 1)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "ChemicalDrug -> SBO:0000298", text.Text)
	})

	t.Run("ReadResource", func(t *testing.T) {
		res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "sbml://sbo"})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Contains(t, res.Contents[0].Text, "SBO:0000253")
	})
}
