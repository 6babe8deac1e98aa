// ABOUTME: MCP resource definitions
// ABOUTME: Provides read-only views of the cached issue list

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const issuesURI = "civic://issues"

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        issuesURI,
		Description: "Civic issues from the last successful fetch",
		URI:         issuesURI,
		MIMEType:    "application/json",
	}, s.handleIssuesResource)
}

func (s *Server) handleIssuesResource(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	issues, err := s.store.CachedIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached issues: %w", err)
	}

	output := ListIssuesOutput{
		Issues:    toIssueOutputs(issues),
		Count:     len(issues),
		FromCache: true,
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      issuesURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		},
	}, nil
}
