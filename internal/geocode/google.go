// ABOUTME: Google Maps geocoding provider
// ABOUTME: Used instead of Nominatim when an API key is configured

package geocode

import (
	"context"
	"fmt"

	"github.com/harper/civic/internal/models"
	"googlemaps.github.io/maps"
)

// Google searches with the Google Maps Geocoding API.
type Google struct {
	client *maps.Client
}

// NewGoogle creates a provider authenticated with apiKey. Extra client
// options (such as maps.WithBaseURL) are passed through.
func NewGoogle(apiKey string, opts ...maps.ClientOption) (*Google, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Google Maps client: %w", err)
	}
	return &Google{client: client}, nil
}

// Name implements Provider.
func (g *Google) Name() string {
	return "google"
}

// Search implements Provider.
func (g *Google) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	resp, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		return nil, fmt.Errorf("error requesting geocode from google: %w", err)
	}

	places := make([]Place, 0, len(resp))
	for _, r := range resp {
		if len(places) == limit {
			break
		}
		coord, err := models.NewCoordinate(r.Geometry.Location.Lat, r.Geometry.Location.Lng)
		if err != nil {
			continue
		}
		kind := ""
		if len(r.Types) > 0 {
			kind = r.Types[0]
		}
		places = append(places, Place{Name: r.FormattedAddress, Coordinate: coord, Kind: kind})
	}
	return places, nil
}
