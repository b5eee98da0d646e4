// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault graph to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/graphservice"
	"github.com/starford/vaultgraph/internal/render"
	"github.com/starford/vaultgraph/internal/storage"
)

const (
	graphImageURI = "vaultgraph://graph.svg"
	imageWidth    = 1280
	imageHeight   = 800
)

// Server wraps the MCP server with graph tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *graphservice.Service
	store storage.Provider
}

// New creates a new MCP server. search_content is registered only when
// withSearch is set, i.e. when a content index backs svc.
func New(svc *graphservice.Service, store storage.Provider, withSearch bool) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"vaultgraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("graph_stats",
		mcp.WithDescription("Counts of nodes by kind, edges, orphans and connected components of the vault graph."),
	), s.graphStats)

	s.mcp.AddTool(mcp.NewTool("find_nodes",
		mcp.WithDescription("Find graph nodes whose label contains the query, case-insensitively."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Label substring")),
	), s.findNodes)

	s.mcp.AddTool(mcp.NewTool("node_neighbors",
		mcp.WithDescription("List the nodes linked to or from a node, in either direction."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Node label, e.g. a document name without .md")),
	), s.nodeNeighbors)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full Markdown text of a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path (e.g. folder/note.md)")),
	), s.readDocument)

	if withSearch {
		s.mcp.AddTool(mcp.NewTool("search_content",
			mcp.WithDescription("Full-text search through document contents and tags."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		), s.searchContent)
	}

	s.mcp.AddResource(
		mcp.NewResource(graphImageURI, "Graph layout",
			mcp.WithResourceDescription("The current force-directed layout rendered as SVG."),
			mcp.WithMIMEType(render.FormatSVG.ContentType()),
		),
		s.readGraphImage,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) graphStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Stats(ctx))
}

func (s *Server) findNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.svc.Find(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("no nodes found"), nil
	}
	return jsonResult(nodes)
}

func (s *Server) nodeNeighbors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, nbrs, err := s.svc.Neighbors(ctx, label)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no node labelled %q", label)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"node": node, "neighbors": nbrs})
}

func (s *Server) readDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !storage.IsDocument(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a document: %s", path)), nil
	}
	data, err := s.store.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", graphservice.DefaultSearchLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) readGraphImage(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.svc.Render(ctx, render.FormatSVG, imageWidth, imageHeight)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: render graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphImageURI,
			MIMEType: render.FormatSVG.ContentType(),
			Text:     string(data),
		},
	}, nil
}
