// ABOUTME: HTTP client for the civic issues backend
// ABOUTME: Lists issues and submits new reports as multipart uploads

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/config"
	"github.com/harper/civic/internal/models"
	"github.com/oklog/ulid/v2"
)

// Endpoint paths relative to the base URL.
const (
	PathIssues     = "/issues"
	PathSubmit     = "/save/issue"
	HeaderRequest  = "X-Request-ID"
	defaultTimeout = 30 * time.Second
)

// IssueService is the backend contract used by the app shell and CLI.
type IssueService interface {
	ListIssues(ctx context.Context) ([]models.Issue, error)
	SubmitIssue(ctx context.Context, draft models.DraftReport) (*models.Issue, error)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Production bool
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to the civic backend.
type Client struct {
	base        string
	placeholder bool
	production  bool
	http        *http.Client
	logger      *log.Logger
}

var _ IssueService = (*Client)(nil)

// NewClient creates a client. An empty base URL is accepted; every call
// then fails with KindConfigMissing without touching the network.
func NewClient(opts Options) *Client {
	base := config.NormalizeBaseURL(opts.BaseURL)
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Client{
		base:        base,
		placeholder: base != "" && config.IsPlaceholder(base, opts.Production),
		production:  opts.Production,
		http:        httpClient,
		logger:      logger,
	}
	if c.placeholder {
		logger.Warn("API base URL appears to be a placeholder value", "base_url", base)
	}
	return c
}

// NewClientFromConfig creates a client from loaded configuration.
func NewClientFromConfig(cfg *config.Config, logger *log.Logger) *Client {
	return NewClient(Options{
		BaseURL:    cfg.APIBaseURL,
		Production: cfg.IsProduction(),
		Logger:     logger,
	})
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base
}

// ListIssues fetches every issue.
func (c *Client) ListIssues(ctx context.Context) ([]models.Issue, error) {
	if c.base == "" {
		return nil, configMissingError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+PathIssues, nil)
	if err != nil {
		return nil, requestError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := statusError(resp, body)
		c.logger.Error("error fetching issues", "status", resp.StatusCode, "err", apiErr.Message)
		return nil, apiErr
	}

	issues := []models.Issue{}
	if len(bytes.TrimSpace(body)) == 0 {
		return issues, nil
	}
	if err := json.Unmarshal(body, &issues); err != nil {
		c.logger.Error("error decoding issues", "err", err)
		return nil, decodeError(err)
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return issues, nil
}

// SubmitIssue validates the draft and posts it. Validation failures are
// returned as models.ValidationErrors and no request is made.
func (c *Client) SubmitIssue(ctx context.Context, draft models.DraftReport) (*models.Issue, error) {
	if errs := draft.Validate(); !errs.Empty() {
		return nil, errs
	}
	if c.base == "" {
		return nil, configMissingError()
	}

	body, contentType, err := encodeDraft(draft)
	if err != nil {
		return nil, requestError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+PathSubmit, body)
	if err != nil {
		return nil, requestError(err)
	}
	requestID := ulid.Make().String()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequest, requestID)

	c.logger.Debug("submitting issue", "request_id", requestID, "type", draft.IssueType, "coordinate", draft.Coordinate.String())

	resp, respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		var apiErr *Error
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			apiErr = &Error{
				Kind:    KindServerRejected,
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("Unexpected response from server: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			}
		} else {
			apiErr = statusError(resp, respBody)
		}
		c.logger.Error("submission error", "request_id", requestID, "status", resp.StatusCode, "err", apiErr.Message)
		return nil, apiErr
	}

	created := issueFromDraft(draft)
	if trimmed := bytes.TrimSpace(respBody); len(trimmed) > 0 && trimmed[0] == '{' {
		var decoded models.Issue
		if err := json.Unmarshal(trimmed, &decoded); err != nil {
			c.logger.Debug("created issue body not decodable", "request_id", requestID, "err", err)
		} else {
			created = mergeCreated(decoded, created)
		}
	}
	c.logger.Debug("issue created", "request_id", requestID, "id", created.ID)
	return created, nil
}

// do sends the request and reads the whole body. Transport failures are
// mapped to the configuration-aware messages.
func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := transportError(c.base, c.placeholder, c.production, err)
		c.logger.Error("no response from server", "url", req.URL.String(), "err", err)
		return nil, nil, apiErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, decodeError(err)
	}
	return resp, body, nil
}

// encodeDraft writes the multipart form the backend expects.
func encodeDraft(d models.DraftReport) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"issueType", string(d.IssueType)},
		{"description", d.Description},
		{"latitude", strconv.FormatFloat(d.Coordinate.Latitude, 'f', -1, 64)},
		{"longitude", strconv.FormatFloat(d.Coordinate.Longitude, 'f', -1, 64)},
		{"village", d.Locality},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(imageName(d.Image))))
	h.Set("Content-Type", d.Image.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(d.Image.Data); err != nil {
		return nil, "", fmt.Errorf("write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func imageName(img *models.ImageFile) string {
	if img.Name != "" {
		return img.Name
	}
	return "image"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// issueFromDraft builds the created issue when the server returns no body.
func issueFromDraft(d models.DraftReport) *models.Issue {
	locality := strings.TrimSpace(d.Locality)
	return &models.Issue{
		IssueType:   d.IssueType,
		Description: d.Description,
		Coordinate:  *d.Coordinate,
		Locality:    &locality,
	}
}

// mergeCreated fills fields the server omitted from the draft.
func mergeCreated(decoded models.Issue, fallback *models.Issue) *models.Issue {
	if decoded.IssueType == "" {
		decoded.IssueType = fallback.IssueType
	}
	if decoded.Description == "" {
		decoded.Description = fallback.Description
	}
	if decoded.Coordinate == (models.Coordinate{}) {
		decoded.Coordinate = fallback.Coordinate
	}
	if decoded.Locality == nil {
		decoded.Locality = fallback.Locality
	}
	return &decoded
}
