// Package mcp provides the MCP (Model Context Protocol) server for the
// Reactome SBML exporter.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/collect"
	"github.com/Benny93/reactome-sbml/internal/export"
	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/model"
	"github.com/Benny93/reactome-sbml/internal/sbml"
	"github.com/Benny93/reactome-sbml/internal/sbo"
	"github.com/Benny93/reactome-sbml/internal/storage"
)

const (
	serverName    = "reactome-sbml"
	serverVersion = "0.1.0"
)

// Server represents the MCP server.
type Server struct {
	source storage.Source
	logger *zap.Logger
	server *mcp.Server
}

// Searcher is implemented by sources with a name index.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server reading from source.
func NewServer(source storage.Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		source: source,
		logger: logger,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	tools := []Tool{
		{
			Name:        "sbml_export",
			Description: "Export a Reactome pathway or reaction as an SBML Level 3 Version 1 document.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id":          {Type: "string", Description: "DB_ID or stable identifier (R-HSA-...) of the event"},
					"annotations": {Type: "boolean", Description: "Add identifiers.org links to Reactome (default true)"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "sbml_reactions",
			Description: "List the reactions an export would contain, with each participant and its role.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id": {Type: "string", Description: "DB_ID or stable identifier of the event"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "sbo_term",
			Description: "Look up the SBO term assigned to a schema class or participant role.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name": {Type: "string", Description: "Schema class (e.g. Complex) or role (e.g. catalyst)"},
				},
				Required: []string{"name"},
			},
		},
	}

	if _, ok := s.source.(Searcher); ok {
		tools = append(tools, Tool{
			Name:        "reactome_search",
			Description: "Search records in the snapshot by display name.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search query text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		})
	}
	return tools
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "sbml://schema",
			Name:        "Reactome Schema",
			Description: "Schema classes the exporter understands and how they map onto SBML",
			MimeType:    "text/plain",
		},
		{
			URI:         "sbml://sbo",
			Name:        "SBO Terms",
			Description: "SBO terms assigned to species, species references and compartments",
			MimeType:    "text/plain",
		},
		{
			URI:         "sbml://source",
			Name:        "Source Database",
			Description: "Name and release of the database being exported",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "sbml_export":
		id, _ := args["id"].(string)
		annotations, ok := args["annotations"].(bool)
		if !ok {
			annotations = true
		}
		return handleExport(ctx, s.source, s.logger, id, annotations)
	case "sbml_reactions":
		id, _ := args["id"].(string)
		return handleReactions(ctx, s.source, s.logger, id)
	case "sbo_term":
		termName, _ := args["name"].(string)
		return handleTerm(termName), nil
	case "reactome_search":
		searcher, ok := s.source.(Searcher)
		if !ok {
			return "", fmt.Errorf("unknown tool: %s", name)
		}
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return handleSearch(ctx, searcher, query, int(limit))
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "sbml://schema":
		return getSchema(), nil
	case "sbml://sbo":
		return getTerms(), nil
	case "sbml://source":
		return getSource(ctx, s.source)
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Parse JSON-RPC request
		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Debug("dropping malformed request", zap.Error(err))
			continue
		}

		// Notifications carry no id and get no response.
		if _, ok := req["id"]; !ok {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

// RunSDK serves the same tools and resources through the SDK transport.
func (s *Server) RunSDK(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// SDKServer exposes the underlying SDK server.
func (s *Server) SDKServer() *mcp.Server {
	return s.server
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "ping":
		return map[string]any{"jsonrpc": "2.0", "id": id, "result": map[string]any{}}
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    serverName,
				"version": serverVersion,
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		_ = json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Tool Handlers

func handleExport(ctx context.Context, src storage.Source, logger *zap.Logger, id string, annotations bool) (string, error) {
	if id == "" {
		return "No id provided", nil
	}

	result, err := export.Run(ctx, src, export.Options{
		ID:          id,
		Annotations: annotations,
		Logger:      logger,
	})
	if err != nil {
		return "", err
	}

	data, err := result.Document.Marshal()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func handleReactions(ctx context.Context, src storage.Source, logger *zap.Logger, id string) (string, error) {
	if id == "" {
		return "No id provided", nil
	}

	c, err := collect.NewCollector(src, logger).Collect(ctx, id)
	if err != nil {
		return "", err
	}

	if len(c.Reactions) == 0 {
		return fmt.Sprintf("No reactions found under %s", id), nil
	}

	// Group participations by reaction, in participant order.
	byReaction := make(map[int64][]string)
	for _, p := range c.Participants {
		for _, part := range p.Participations {
			line := fmt.Sprintf("%s: %s", part.Role, p.Entity.Name)
			if !part.Role.IsModifier() && part.Stoichiometry > 1 {
				line += fmt.Sprintf(" x%d", part.Stoichiometry)
			}
			byReaction[part.ReactionDBID] = append(byReaction[part.ReactionDBID], line)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d reactions in %s:\n\n", len(c.Reactions), sbml.ModelID(c.Root)))
	for i, rxn := range c.Reactions {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s, %s)\n", i+1, rxn.Name, sbml.ReactionID(rxn.DBID), rxn.StID))
		for _, line := range byReaction[rxn.DBID] {
			sb.WriteString(fmt.Sprintf("   - %s\n", line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Next: Use `sbml_export` to produce the document.")

	return sb.String(), nil
}

func handleTerm(name string) string {
	if name == "" {
		return "No name provided"
	}
	term, ok := sbo.Lookup(name)
	if !ok {
		return fmt.Sprintf("'%s' is not a known schema class or role", name)
	}
	if !term.IsSet() {
		return fmt.Sprintf("%s carries no SBO term", name)
	}
	return fmt.Sprintf("%s -> %s", name, term)
}

func handleSearch(ctx context.Context, searcher Searcher, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	results, err := searcher.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results for '%s':\n\n", len(results), query))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s)\n", i+1, r.Name, r.Class))
		sb.WriteString(fmt.Sprintf("   DB_ID: %d", r.DBID))
		if r.StID != "" {
			sb.WriteString(fmt.Sprintf("  StID: %s", r.StID))
		}
		sb.WriteString(fmt.Sprintf("\n   Score: %.3f\n\n", r.Score))
	}
	sb.WriteString("Next: Use `sbml_reactions` on an event to see what an export contains.")

	return sb.String(), nil
}

// Resource Handlers

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# Reactome Schema\n\n")
	sb.WriteString("| Class | Parent | SBML element |\n")
	sb.WriteString("|-------|--------|--------------|\n")
	for _, c := range graph.Classes() {
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", c, c.Parent(), sbmlElement(c)))
	}
	return sb.String()
}

func sbmlElement(c graph.Class) string {
	switch {
	case c.IsA(graph.ClassPathway):
		return "model"
	case c.IsA(graph.ClassReactionLikeEvent):
		return "reaction"
	case c.IsA(graph.ClassPhysicalEntity):
		return "species"
	case c.IsA(graph.ClassCompartment):
		return "compartment"
	default:
		return "-"
	}
}

func getTerms() string {
	var sb strings.Builder
	sb.WriteString("# SBO Terms\n\n")
	sb.WriteString("## Species\n\n")
	sb.WriteString("| Class | Term |\n")
	sb.WriteString("|-------|------|\n")

	var classes []graph.Class
	for _, c := range graph.Classes() {
		if c.IsA(graph.ClassPhysicalEntity) && c != graph.ClassPhysicalEntity {
			classes = append(classes, c)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	for _, c := range classes {
		term, _ := sbo.ClassTerm(c)
		sb.WriteString(fmt.Sprintf("| `%s` | %s |\n", c, termCell(term)))
	}

	sb.WriteString("\n## Species references\n\n")
	sb.WriteString("| Role | Term |\n")
	sb.WriteString("|------|------|\n")
	for _, role := range []model.Role{
		model.RoleReactant,
		model.RoleProduct,
		model.RoleCatalyst,
		model.RolePositiveRegulator,
		model.RoleNegativeRegulator,
	} {
		sb.WriteString(fmt.Sprintf("| `%s` | %s |\n", role, termCell(sbo.RoleTerm(role))))
	}

	sb.WriteString(fmt.Sprintf("\nCompartments: %s\n", sbo.CompartmentTerm()))
	return sb.String()
}

func termCell(t sbo.Term) string {
	if !t.IsSet() {
		return "-"
	}
	return t.String()
}

func getSource(ctx context.Context, src storage.Source) (string, error) {
	info, err := src.Info(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("# Source Database\n\n")
	sb.WriteString(fmt.Sprintf("**Database name:** %s\n", info.Name))
	sb.WriteString(fmt.Sprintf("**Database version:** %d\n", info.Version))
	return sb.String(), nil
}

// Helper functions

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
