// ABOUTME: Error kinds returned by the civic backend client
// ABOUTME: Each error carries the message shown to the person reporting

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a client failure.
type Kind int

const (
	// KindConfigMissing means no base URL is configured; no request was made.
	KindConfigMissing Kind = iota + 1
	// KindConfigPlaceholder means the request failed and the base URL looks
	// like a template value.
	KindConfigPlaceholder
	// KindNetworkUnreachable means the request produced no response.
	KindNetworkUnreachable
	// KindServerRejected means the server answered with a non-success status.
	KindServerRejected
	// KindRequest means the request could not be built.
	KindRequest
	// KindDecode means the response body could not be parsed.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindConfigPlaceholder:
		return "config_placeholder"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindServerRejected:
		return "server_rejected"
	case KindRequest:
		return "request"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Messages for configuration problems.
const (
	MsgConfigMissing     = "Backend API is not configured. Set CIVIC_API_BASE_URL or api_base_url in the config file."
	MsgConfigPlaceholder = "Backend API URL is set to a placeholder value. Set CIVIC_API_BASE_URL to your actual backend URL."
)

// Error is a failed backend call.
type Error struct {
	Kind Kind
	// Message is the human-readable text for display.
	Message string
	// Status is the HTTP status code for KindServerRejected.
	Status int
	Err    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func configMissingError() *Error {
	return &Error{Kind: KindConfigMissing, Message: MsgConfigMissing}
}

// transportError picks the message for a request that got no response.
func transportError(base string, placeholder, production bool, err error) *Error {
	switch {
	case placeholder:
		return &Error{Kind: KindConfigPlaceholder, Message: MsgConfigPlaceholder, Err: err}
	case production:
		return &Error{
			Kind:    KindNetworkUnreachable,
			Message: fmt.Sprintf("Cannot connect to backend API at %s. Please check if the backend is running and accessible.", base),
			Err:     err,
		}
	default:
		return &Error{
			Kind:    KindNetworkUnreachable,
			Message: fmt.Sprintf("No response from server. Please check if the backend is running at %s.", base),
			Err:     err,
		}
	}
}

func requestError(err error) *Error {
	return &Error{Kind: KindRequest, Message: fmt.Sprintf("Request error: %v", err), Err: err}
}

func decodeError(err error) *Error {
	return &Error{Kind: KindDecode, Message: fmt.Sprintf("Unexpected response from server: %v", err), Err: err}
}

// statusError builds the message for an error response. A plain string body
// wins, then a JSON "message", then a JSON "error", then the status line.
func statusError(resp *http.Response, body []byte) *Error {
	return &Error{
		Kind:    KindServerRejected,
		Status:  resp.StatusCode,
		Message: rejectionMessage(resp.StatusCode, body),
	}
}

func rejectionMessage(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	fallback := fmt.Sprintf("Server error: %d %s", status, http.StatusText(status))
	if trimmed == "" {
		return fallback
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return trimmed
	}
	switch v := payload.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := v["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return fallback
}
