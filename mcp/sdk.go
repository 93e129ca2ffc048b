package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type exportArgs struct {
	ID          string `json:"id" jsonschema:"DB_ID or stable identifier (R-HSA-...) of the event"`
	Annotations *bool  `json:"annotations,omitempty" jsonschema:"add identifiers.org links to Reactome (default true)"`
}

type reactionsArgs struct {
	ID string `json:"id" jsonschema:"DB_ID or stable identifier of the event"`
}

type termArgs struct {
	Name string `json:"name" jsonschema:"schema class (e.g. Complex) or role (e.g. catalyst)"`
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"search query text"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

func textResult(text string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// registerTools registers the tools with the SDK server. Descriptions
// match ListTools; input schemas are inferred from the argument structs.
func (s *Server) registerTools() {
	descriptions := make(map[string]string)
	for _, tool := range s.ListTools() {
		descriptions[tool.Name] = tool.Description
	}

	mcp.AddTool(s.server, &mcp.Tool{Name: "sbml_export", Description: descriptions["sbml_export"]},
		func(ctx context.Context, _ *mcp.CallToolRequest, in exportArgs) (*mcp.CallToolResult, any, error) {
			annotations := in.Annotations == nil || *in.Annotations
			return textResult(handleExport(ctx, s.source, s.logger, in.ID, annotations))
		})

	mcp.AddTool(s.server, &mcp.Tool{Name: "sbml_reactions", Description: descriptions["sbml_reactions"]},
		func(ctx context.Context, _ *mcp.CallToolRequest, in reactionsArgs) (*mcp.CallToolResult, any, error) {
			return textResult(handleReactions(ctx, s.source, s.logger, in.ID))
		})

	mcp.AddTool(s.server, &mcp.Tool{Name: "sbo_term", Description: descriptions["sbo_term"]},
		func(_ context.Context, _ *mcp.CallToolRequest, in termArgs) (*mcp.CallToolResult, any, error) {
			return textResult(handleTerm(in.Name), nil)
		})

	searcher, ok := s.source.(Searcher)
	if !ok {
		return
	}
	mcp.AddTool(s.server, &mcp.Tool{Name: "reactome_search", Description: descriptions["reactome_search"]},
		func(ctx context.Context, _ *mcp.CallToolRequest, in searchArgs) (*mcp.CallToolResult, any, error) {
			limit := in.Limit
			if limit == 0 {
				limit = 20
			}
			return textResult(handleSearch(ctx, searcher, in.Query, limit))
		})
}

// registerResources registers the resources with the SDK server.
func (s *Server) registerResources() {
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.ReadResource(ctx, res.URI)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: res.URI, MIMEType: res.MimeType, Text: text}},
			}, nil
		})
	}
}
