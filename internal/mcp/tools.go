// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Lets AI agents browse, search and report civic issues

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names as registered on the server. Clients see them prefixed with
// the server name, e.g. mcp__civic__list_issues.
const (
	ToolListIssues      = "list_issues"
	ToolGetIssue        = "get_issue"
	ToolSearchPlaces    = "search_places"
	ToolReportIssue     = "report_issue"
	ToolCurrentLocation = "current_location"
	ToolRecordLocation  = "record_location"
)

// ToolNames lists every registered tool in registration order.
var ToolNames = []string{
	ToolListIssues,
	ToolGetIssue,
	ToolSearchPlaces,
	ToolReportIssue,
	ToolCurrentLocation,
	ToolRecordLocation,
}

func (s *Server) registerTools() {
	s.registerListIssuesTool()
	s.registerGetIssueTool()
	s.registerSearchPlacesTool()
	s.registerReportIssueTool()
	s.registerCurrentLocationTool()
	s.registerRecordLocationTool()
}

// textResult wraps output as indented JSON text content.
func textResult(output any) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}
}

// IssueOutput defines output for issue tools.
type IssueOutput struct {
	ID          string  `json:"id"`
	IssueType   string  `json:"issue_type"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Locality    *string `json:"local_city,omitempty"`
	ImageURL    *string `json:"img_url,omitempty"`
}

func toIssueOutput(i models.Issue) IssueOutput {
	return IssueOutput{
		ID:          string(i.ID),
		IssueType:   string(i.IssueType),
		Label:       i.IssueType.Label(),
		Description: i.Description,
		Latitude:    i.Coordinate.Latitude,
		Longitude:   i.Coordinate.Longitude,
		Locality:    i.Locality,
		ImageURL:    i.ImageURL,
	}
}

func toIssueOutputs(issues []models.Issue) []IssueOutput {
	out := make([]IssueOutput, len(issues))
	for i, issue := range issues {
		out[i] = toIssueOutput(issue)
	}
	return out
}

// ListIssuesInput defines input for list_issues tool.
type ListIssuesInput struct {
	IssueType *string `json:"issue_type,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

// ListIssuesOutput defines output for list_issues tool.
type ListIssuesOutput struct {
	Issues    []IssueOutput `json:"issues"`
	Count     int           `json:"count"`
	FromCache bool          `json:"from_cache"`
	Warning   string        `json:"warning,omitempty"`
}

func (s *Server) registerListIssuesTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolListIssues,
		Description: "List reported civic issues from the backend. Falls back to the last fetched list when the backend is unreachable.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"issue_type": map[string]interface{}{
					"type":        "string",
					"description": "Optional filter: POTHOLE, STREET_LIGHT_NOT_WORKING, GARBAGE_DUMP, WATER_LEAKAGE, SEWAGE_OVERFLOW or OTHER",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of issues to return (0 for all)",
				},
			},
		},
	}, s.handleListIssues)
}

func (s *Server) handleListIssues(ctx context.Context, _ *mcp.CallToolRequest, input ListIssuesInput) (*mcp.CallToolResult, ListIssuesOutput, error) {
	var filter models.IssueType
	if input.IssueType != nil && *input.IssueType != "" {
		t, err := models.ParseIssueType(*input.IssueType)
		if err != nil {
			return nil, ListIssuesOutput{}, err
		}
		filter = t
	}

	output := ListIssuesOutput{}
	issues, err := s.issues.ListIssues(ctx)
	if err != nil {
		s.logger.Warn("error fetching issues, using cache", "err", err)
		cached, cerr := s.store.CachedIssues(ctx)
		if cerr != nil {
			return nil, ListIssuesOutput{}, fmt.Errorf("failed to fetch issues: %w", err)
		}
		issues = cached
		output.FromCache = true
		output.Warning = err.Error()
	} else if cerr := s.store.ReplaceIssues(ctx, issues, time.Now()); cerr != nil {
		s.logger.Warn("error caching issues", "err", cerr)
	}

	for _, issue := range issues {
		if filter != "" && issue.IssueType != filter {
			continue
		}
		output.Issues = append(output.Issues, toIssueOutput(issue))
		if input.Limit > 0 && len(output.Issues) >= input.Limit {
			break
		}
	}
	if output.Issues == nil {
		output.Issues = []IssueOutput{}
	}
	output.Count = len(output.Issues)

	return textResult(output), output, nil
}

// GetIssueInput defines input for get_issue tool.
type GetIssueInput struct {
	ID string `json:"id"`
}

func (s *Server) registerGetIssueTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGetIssue,
		Description: "Get the full details of one issue by its ID.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Issue ID",
				},
			},
			"required": []string{"id"},
		},
	}, s.handleGetIssue)
}

func (s *Server) handleGetIssue(ctx context.Context, _ *mcp.CallToolRequest, input GetIssueInput) (*mcp.CallToolResult, IssueOutput, error) {
	id := models.IssueID(strings.TrimSpace(input.ID))
	if id == "" {
		return nil, IssueOutput{}, fmt.Errorf("id is required")
	}

	issue, err := s.store.GetIssue(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Not cached yet; the backend may know it.
		issues, ferr := s.issues.ListIssues(ctx)
		if ferr != nil {
			return nil, IssueOutput{}, fmt.Errorf("issue '%s' not found: %w", id, ferr)
		}
		if cerr := s.store.ReplaceIssues(ctx, issues, time.Now()); cerr != nil {
			s.logger.Warn("error caching issues", "err", cerr)
		}
		for i := range issues {
			if issues[i].ID == id {
				issue = &issues[i]
				err = nil
				break
			}
		}
	}
	if err != nil || issue == nil {
		return nil, IssueOutput{}, fmt.Errorf("issue '%s' not found", id)
	}

	output := toIssueOutput(*issue)
	return textResult(output), output, nil
}

// SearchPlacesInput defines input for search_places tool.
type SearchPlacesInput struct {
	Query string `json:"query"`
}

// PlaceOutput is one place search result.
type PlaceOutput struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Kind      string  `json:"kind,omitempty"`
}

// SearchPlacesOutput defines output for search_places tool.
type SearchPlacesOutput struct {
	Places []PlaceOutput `json:"places"`
	Count  int           `json:"count"`
}

func (s *Server) registerSearchPlacesTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSearchPlaces,
		Description: "Search for a place by name and get up to five candidate coordinates.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text place name (e.g., 'Shivajinagar, Pune')",
				},
			},
			"required": []string{"query"},
		},
	}, s.handleSearchPlaces)
}

func (s *Server) handleSearchPlaces(ctx context.Context, _ *mcp.CallToolRequest, input SearchPlacesInput) (*mcp.CallToolResult, SearchPlacesOutput, error) {
	if s.places == nil {
		return nil, SearchPlacesOutput{}, fmt.Errorf("place search is not configured")
	}

	places := s.places.Search(ctx, input.Query)
	output := SearchPlacesOutput{Places: make([]PlaceOutput, len(places)), Count: len(places)}
	for i, p := range places {
		output.Places[i] = PlaceOutput{
			Name:      p.Name,
			Latitude:  p.Coordinate.Latitude,
			Longitude: p.Coordinate.Longitude,
			Kind:      p.Kind,
		}
	}
	return textResult(output), output, nil
}

// ReportIssueInput defines input for report_issue tool.
type ReportIssueInput struct {
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	Locality    string   `json:"locality"`
	ImagePath   string   `json:"image_path"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Place       *string  `json:"place,omitempty"`
}

func (s *Server) registerReportIssueTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolReportIssue,
		Description: "Report a new civic issue with a photo. The location is taken from latitude/longitude, else the first match for place, else the current location.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"issue_type": map[string]interface{}{
					"type":        "string",
					"description": "POTHOLE, STREET_LIGHT_NOT_WORKING, GARBAGE_DUMP, WATER_LEAKAGE, SEWAGE_OVERFLOW or OTHER",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "What is wrong (10 to 500 characters)",
				},
				"locality": map[string]interface{}{
					"type":        "string",
					"description": "Village or city name",
				},
				"image_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to a JPEG, PNG or WebP photo under 5MB",
				},
				"latitude": map[string]interface{}{
					"type":        "number",
					"description": "Optional latitude (-90 to 90)",
				},
				"longitude": map[string]interface{}{
					"type":        "number",
					"description": "Optional longitude (-180 to 180)",
				},
				"place": map[string]interface{}{
					"type":        "string",
					"description": "Optional place name to geocode",
				},
			},
			"required": []string{"issue_type", "description", "locality", "image_path"},
		},
	}, s.handleReportIssue)
}

func (s *Server) handleReportIssue(ctx context.Context, _ *mcp.CallToolRequest, input ReportIssueInput) (*mcp.CallToolResult, IssueOutput, error) {
	issueType, err := models.ParseIssueType(input.IssueType)
	if err != nil {
		return nil, IssueOutput{}, err
	}

	loc, err := s.resolveLocation(ctx, input)
	if err != nil {
		return nil, IssueOutput{}, err
	}

	draft := models.NewDraft()
	draft.IssueType = issueType
	draft.Description = input.Description
	draft.Locality = input.Locality
	draft.Coordinate = &loc
	if input.ImagePath != "" {
		img, err := models.LoadImageFile(input.ImagePath)
		if err != nil {
			return nil, IssueOutput{}, err
		}
		draft.Image = img
	}

	if errs := draft.Validate(); !errs.Empty() {
		return nil, IssueOutput{}, errs
	}

	issue, err := s.issues.SubmitIssue(ctx, draft)
	if err != nil {
		return nil, IssueOutput{}, err
	}

	output := toIssueOutput(*issue)
	return textResult(output), output, nil
}

func (s *Server) resolveLocation(ctx context.Context, input ReportIssueInput) (models.Coordinate, error) {
	switch {
	case input.Latitude != nil || input.Longitude != nil:
		if input.Latitude == nil || input.Longitude == nil {
			return models.Coordinate{}, fmt.Errorf("latitude and longitude must be given together")
		}
		return models.NewCoordinate(*input.Latitude, *input.Longitude)
	case input.Place != nil && strings.TrimSpace(*input.Place) != "":
		if s.places == nil {
			return models.Coordinate{}, fmt.Errorf("place search is not configured")
		}
		places := s.places.Search(ctx, *input.Place)
		if len(places) == 0 {
			return models.Coordinate{}, fmt.Errorf("no place found for '%s'", *input.Place)
		}
		return places[0].Coordinate, nil
	case s.locator != nil:
		c, fallback := s.locator.CurrentCoordinate(ctx)
		if fallback {
			return models.Coordinate{}, fmt.Errorf("current location is unavailable; give latitude/longitude or a place")
		}
		return c, nil
	default:
		return models.Coordinate{}, fmt.Errorf("no location given")
	}
}

// CurrentLocationInput is empty but required for type.
type CurrentLocationInput struct{}

// LocationOutput defines output for location tools.
type LocationOutput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Fallback  bool    `json:"fallback"`
	Label     *string `json:"label,omitempty"`
}

func (s *Server) registerCurrentLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCurrentLocation,
		Description: "Get the user's current location. fallback is true when no fix is available and the default point is returned.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}, s.handleCurrentLocation)
}

func (s *Server) handleCurrentLocation(ctx context.Context, _ *mcp.CallToolRequest, _ CurrentLocationInput) (*mcp.CallToolResult, LocationOutput, error) {
	if s.locator == nil {
		return nil, LocationOutput{}, fmt.Errorf("location is not configured")
	}
	c, fallback := s.locator.CurrentCoordinate(ctx)
	output := LocationOutput{Latitude: c.Latitude, Longitude: c.Longitude, Fallback: fallback}
	return textResult(output), output, nil
}

// RecordLocationInput defines input for record_location tool.
type RecordLocationInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     *string `json:"label,omitempty"`
}

func (s *Server) registerRecordLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolRecordLocation,
		Description: "Record the user's current location so later reports and the map use it.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"latitude": map[string]interface{}{
					"type":        "number",
					"description": "Latitude coordinate (-90 to 90)",
				},
				"longitude": map[string]interface{}{
					"type":        "number",
					"description": "Longitude coordinate (-180 to 180)",
				},
				"label": map[string]interface{}{
					"type":        "string",
					"description": "Optional label (e.g., 'home')",
				},
			},
			"required": []string{"latitude", "longitude"},
		},
	}, s.handleRecordLocation)
}

func (s *Server) handleRecordLocation(ctx context.Context, _ *mcp.CallToolRequest, input RecordLocationInput) (*mcp.CallToolResult, LocationOutput, error) {
	c, err := models.NewCoordinate(input.Latitude, input.Longitude)
	if err != nil {
		return nil, LocationOutput{}, err
	}
	fix := models.NewFix(c, input.Label)
	if err := s.store.CreateFix(ctx, fix); err != nil {
		return nil, LocationOutput{}, fmt.Errorf("failed to record location: %w", err)
	}
	output := LocationOutput{Latitude: c.Latitude, Longitude: c.Longitude, Label: input.Label}
	return textResult(output), output, nil
}
