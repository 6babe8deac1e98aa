// ABOUTME: MCP server initialization and configuration
// ABOUTME: Sets up server with tools and resources for AI agents

package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/api"
	"github.com/harper/civic/internal/geocode"
	"github.com/harper/civic/internal/location"
	"github.com/harper/civic/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Deps are the collaborators the tools call.
type Deps struct {
	Issues  api.IssueService
	Places  *geocode.PlaceSearch
	Store   storage.Repository
	Locator *location.Adapter
	Logger  *log.Logger
}

// Server wraps the MCP server with the civic services.
type Server struct {
	mcp     *mcp.Server
	issues  api.IssueService
	places  *geocode.PlaceSearch
	store   storage.Repository
	locator *location.Adapter
	logger  *log.Logger
}

// NewServer creates MCP server with all capabilities.
func NewServer(deps Deps) (*Server, error) {
	if deps.Issues == nil {
		return nil, fmt.Errorf("issue service is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "civic",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		issues:  deps.Issues,
		places:  deps.Places,
		store:   deps.Store,
		locator: deps.Locator,
		logger:  deps.Logger,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
