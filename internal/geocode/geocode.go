// ABOUTME: Place search over a pluggable geocoding provider
// ABOUTME: Blank queries short-circuit and provider failures yield no results

package geocode

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/config"
	"github.com/harper/civic/internal/models"
)

// DefaultLimit caps the number of results returned per search.
const DefaultLimit = 5

// Place is a single search result.
type Place struct {
	Name       string            `json:"name"`
	Coordinate models.Coordinate `json:"coordinate"`
	// Kind is the provider's category for the place, e.g. "city".
	Kind string `json:"kind,omitempty"`
}

// Provider resolves free text to places.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Place, error)
}

// PlaceSearch wraps a provider with the behavior the UI relies on.
type PlaceSearch struct {
	provider Provider
	limit    int
	logger   *log.Logger
}

// NewPlaceSearch creates a search over the given provider.
func NewPlaceSearch(p Provider, logger *log.Logger) *PlaceSearch {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PlaceSearch{provider: p, limit: DefaultLimit, logger: logger}
}

// Provider returns the underlying provider.
func (s *PlaceSearch) Provider() Provider {
	return s.provider
}

// Search returns places for text in provider order. Blank text returns an
// empty result without a request. Provider errors are logged and produce
// an empty result.
func (s *PlaceSearch) Search(ctx context.Context, text string) []Place {
	query := strings.TrimSpace(text)
	if query == "" {
		return []Place{}
	}

	places, err := s.provider.Search(ctx, query, s.limit)
	if err != nil {
		s.logger.Warn("place search failed", "provider", s.provider.Name(), "query", query, "err", err)
		return []Place{}
	}
	if len(places) > s.limit {
		places = places[:s.limit]
	}
	if places == nil {
		places = []Place{}
	}
	return places
}

// NewProvider picks the provider named by the configuration.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.GetGeocoder() {
	case config.GeocoderNominatim:
		return NewNominatim(cfg.GetNominatimURL(), nil), nil
	case config.GeocoderGoogle:
		if cfg.GoogleMapsKey == "" {
			return nil, fmt.Errorf("geocoder %q requires %s", config.GeocoderGoogle, config.EnvGoogleMaps)
		}
		return NewGoogle(cfg.GoogleMapsKey)
	default:
		return nil, fmt.Errorf("unknown geocoder %q (use %s or %s)", cfg.Geocoder, config.GeocoderNominatim, config.GeocoderGoogle)
	}
}
