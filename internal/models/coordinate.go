// ABOUTME: Geographic coordinate value type and range validation
// ABOUTME: Coordinates are immutable values compared with a small epsilon

package models

import (
	"fmt"
	"math"
)

// coordEpsilon defines the threshold for considering coordinates equal.
// 0.0000001 degrees is roughly 1.1cm at the equator.
const coordEpsilon = 0.0000001

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// NewCoordinate validates lat/lng and returns the coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{Latitude: lat, Longitude: lng}, nil
}

// ValidateCoordinates checks if latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// Validate checks the coordinate against the valid ranges.
func (c Coordinate) Validate() error {
	return ValidateCoordinates(c.Latitude, c.Longitude)
}

// Equal compares two coordinates by value.
func (c Coordinate) Equal(other Coordinate) bool {
	return math.Abs(c.Latitude-other.Latitude) < coordEpsilon &&
		math.Abs(c.Longitude-other.Longitude) < coordEpsilon
}

// String formats the coordinate with six decimals, matching what the map shows.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}
