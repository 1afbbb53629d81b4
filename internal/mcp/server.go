// Package mcp exposes link resolution to AI agents over the Model Context
// Protocol.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/reference"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Fetcher retrieves the content a reference points to.
type Fetcher interface {
	Fetch(ctx context.Context, ref reference.PageReference) (*fetch.Content, error)
}

// Deps are the components behind the tools. Fetcher is optional; without it
// show_revision is not offered.
type Deps struct {
	Resolver *reference.Resolver
	Builder  *reference.HrefBuilder
	Fetcher  Fetcher
	Scan     links.ScanOptions
	// Href is the default output shape of build_href.
	Href reference.HrefOptions
}

// Server wraps an MCP server that exposes the revlens tools.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(deps Deps) *Server {
	if deps.Builder == nil {
		deps.Builder = reference.NewHrefBuilder(deps.Resolver.Site())
	}
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"revlens",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(resolveLinkTool, s.handleResolveLink)
	s.mcp.AddTool(buildHrefTool, s.handleBuildHref)
	s.mcp.AddTool(scanPageTool, s.handleScanPage)
	if s.deps.Fetcher != nil {
		s.mcp.AddTool(showRevisionTool, s.handleShowRevision)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
