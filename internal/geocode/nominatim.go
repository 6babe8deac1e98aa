// ABOUTME: OpenStreetMap Nominatim search provider
// ABOUTME: Issues free-form JSON searches with an identifying User-Agent

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harper/civic/internal/models"
)

// UserAgent identifies civic to Nominatim, which rejects anonymous clients.
const UserAgent = "civic/1.0 (+https://github.com/harper/civic)"

// Nominatim searches a Nominatim instance.
type Nominatim struct {
	baseURL string
	client  *http.Client
}

// NewNominatim creates a provider for the given endpoint.
func NewNominatim(baseURL string, client *http.Client) *Nominatim {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Nominatim{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Name implements Provider.
func (n *Nominatim) Name() string {
	return "nominatim"
}

type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
}

// Search implements Provider.
func (n *Nominatim) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim: %s, body: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lng, lngErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		coord, err := models.NewCoordinate(lat, lng)
		if err != nil {
			continue
		}
		places = append(places, Place{Name: r.DisplayName, Coordinate: coord, Kind: r.Type})
	}
	return places, nil
}
