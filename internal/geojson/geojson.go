// ABOUTME: GeoJSON generation utilities
// ABOUTME: Converts issues and location fixes to GeoJSON FeatureCollections

package geojson

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/harper/civic/internal/mapview"
	"github.com/harper/civic/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// PointCoordinates represents [longitude, latitude] for a Point.
type PointCoordinates [2]float64

// LineCoordinates represents [[lng, lat], [lng, lat], ...] for a LineString.
type LineCoordinates []PointCoordinates

func point(c models.Coordinate) PointCoordinates {
	return PointCoordinates{c.Longitude, c.Latitude}
}

// FromIssues converts issues to Point features in list order. Each feature
// carries the marker colour the map uses for its type.
func FromIssues(issues []models.Issue) *FeatureCollection {
	features := make([]Feature, 0, len(issues))

	for _, issue := range issues {
		props := map[string]interface{}{
			"id":           string(issue.ID),
			"issue_type":   string(issue.IssueType),
			"title":        issue.IssueType.Label(),
			"description":  issue.Description,
			"marker-color": mapview.MarkerColor(issue.IssueType),
		}
		if issue.Locality != nil {
			props["local_city"] = *issue.Locality
		}
		if issue.ImageURL != nil {
			props["img_url"] = *issue.ImageURL
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: point(issue.Coordinate),
			},
			Properties: props,
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// WithUser appends the user position as a Point feature.
func (fc *FeatureCollection) WithUser(c models.Coordinate, fallback bool) *FeatureCollection {
	fc.Features = append(fc.Features, Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: point(c),
		},
		Properties: map[string]interface{}{
			"title":        "You are here",
			"marker-color": mapview.UserColor,
			"radius_m":     mapview.AccuracyRadius,
			"fallback":     fallback,
		},
	})
	return fc
}

// FromFixes converts fixes to Point features plus, when there are at least
// two, a LineString trail in chronological order.
func FromFixes(fixes []*models.Fix) *FeatureCollection {
	sorted := make([]*models.Fix, len(fixes))
	copy(sorted, fixes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	features := make([]Feature, 0, len(sorted)+1)
	for _, fix := range sorted {
		props := map[string]interface{}{
			"recorded_at": fix.RecordedAt.Format(time.RFC3339),
		}
		if fix.Label != nil {
			props["label"] = *fix.Label
		}
		if fix.Accuracy > 0 {
			props["accuracy"] = fix.Accuracy
		}
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: point(fix.Coordinate),
			},
			Properties: props,
		})
	}

	if len(sorted) >= 2 {
		coords := make(LineCoordinates, len(sorted))
		for i, fix := range sorted {
			coords[i] = point(fix.Coordinate)
		}
		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: map[string]interface{}{
				"point_count": len(sorted),
			},
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
