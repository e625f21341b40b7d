package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// NoArgs is the input of tools without parameters.
type NoArgs struct{}

// NameArgs is the input of tools that take a required name.
type NameArgs struct {
	Name string `json:"name" jsonschema:"The name as shown by the listing tool"`
}

// OptionalNameArgs is the input of get_tool_manifest.
type OptionalNameArgs struct {
	Name string `json:"name,omitempty" jsonschema:"Optional tool spec name. When omitted, returns the entire manifest."`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "content_generation_best_practice",
		Description: "ALWAYS CALL THIS FIRST when generating any documentation, README, release notes, reports, or content. " +
			"Returns the best practices and system prompts for spec-driven content generation: workflow rules, input validation, " +
			"task planning, quality checklist criteria and output formatting standards.",
	}, s.handleBestPractice)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "list_specs",
		Description: "List all available content specification templates (SDK README, Revision History, Product Status Report, etc.) " +
			"with descriptions. Call this after content_generation_best_practice and before fetch_spec.",
	}, s.handleListSpecs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "fetch_spec",
		Description: "Fetch a complete specification template defining structure, sections, inputs, and quality criteria for content generation. " +
			"Use this after list_specs; name is the spec name as shown there.",
	}, s.handleFetchSpec)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_tool_manifest",
		Description: "Return machine-readable metadata describing reusable tool specs: which MCP servers/toolsets are documented, " +
			"their capabilities, fallback plans and example sequences. Call this before planning cross-server automation.",
	}, s.handleGetToolManifest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fetch_tool_spec",
		Description: "Fetch the markdown tool spec referenced by content specs. name is a tool spec name from the tool manifest (e.g. 'github_mcp').",
	}, s.handleFetchToolSpec)
}

func (s *Server) handleBestPractice(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, any, error) {
	return s.text("content_generation_best_practice", s.engine.BestPractice(ctx)), nil, nil
}

func (s *Server) handleListSpecs(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, any, error) {
	return s.text("list_specs", s.engine.ListSpecs(ctx)), nil, nil
}

func (s *Server) handleFetchSpec(ctx context.Context, _ *mcp.CallToolRequest, args NameArgs) (*mcp.CallToolResult, any, error) {
	return s.text("fetch_spec", s.engine.FetchSpec(ctx, args.Name)), nil, nil
}

func (s *Server) handleGetToolManifest(ctx context.Context, _ *mcp.CallToolRequest, args OptionalNameArgs) (*mcp.CallToolResult, any, error) {
	return s.text("get_tool_manifest", s.engine.GetToolManifest(ctx, args.Name)), nil, nil
}

func (s *Server) handleFetchToolSpec(ctx context.Context, _ *mcp.CallToolRequest, args NameArgs) (*mcp.CallToolResult, any, error) {
	return s.text("fetch_tool_spec", s.engine.FetchToolSpec(ctx, args.Name)), nil, nil
}

// text wraps an engine answer. Engine failures are answers too, so IsError
// stays false.
func (s *Server) text(tool, body string) *mcp.CallToolResult {
	s.logger.Debug("tool call", zap.String("tool", tool), zap.Int("bytes", len(body)))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: body}},
	}
}
