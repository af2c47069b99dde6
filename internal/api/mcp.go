package api

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/raglab/arxrag/internal/agent"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Tools *agent.Toolset
}

// NewMCPServer creates an MCP server exposing the agent's two retrieval tools
// so MCP clients can use the knowledge base directly, without the agent loop.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"arxrag",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("arxrag — arXiv research assistant: semantic search over ingested papers plus live arXiv lookup."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool(agent.ToolRagQuery,
			mcp.WithDescription("Semantically search the ingested arXiv knowledge base and return matching paper chunks."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
		),
		mcpRagQuery(deps),
	)

	s.AddTool(
		mcp.NewTool(agent.ToolArxivSearch,
			mcp.WithDescription("Search arXiv directly via API for research papers, including ones not yet ingested."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("max_results", mcp.Description("Maximum number of papers to return")),
		),
		mcpArxivSearch(deps),
	)

	return s
}

func mcpRagQuery(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		return mcpText(deps.Tools.RagQuery(ctx, query)), nil
	}
}

func mcpArxivSearch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		maxResults := req.GetInt("max_results", 0)
		return mcpText(deps.Tools.ArxivSearch(ctx, query, maxResults)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
