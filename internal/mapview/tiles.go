// ABOUTME: Web-mercator tile maths for the headless map camera
// ABOUTME: Converts coordinates to tiles and world pixels and back

package mapview

import (
	"fmt"
	"image"
	"math"

	"github.com/harper/civic/internal/models"
)

const (
	TileSize           = 256
	earthCircumference = 40075016.686 // meters at equator

	// maxMercatorLat is where the projection is clipped.
	maxMercatorLat = 85.05112878
)

// Tile represents a map tile coordinates
type Tile struct {
	X, Y, Zoom int
}

// URL returns the OpenStreetMap URL for the tile.
func (t Tile) URL() string {
	return fmt.Sprintf("https://tile.openstreetmap.org/%d/%d/%d.png", t.Zoom, t.X, t.Y)
}

func clampLat(lat float64) float64 {
	return math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
}

// CoordinateToTile converts geographical coordinates to tile coordinates
func CoordinateToTile(c models.Coordinate, zoom int) Tile {
	latRad := clampLat(c.Latitude) * math.Pi / 180
	n := math.Pow(2, float64(zoom))
	x := int((c.Longitude + 180.0) / 360.0 * n)
	y := int((1.0 - math.Log(math.Tan(latRad)+(1/math.Cos(latRad)))/math.Pi) / 2.0 * n)
	return ConstrainTile(Tile{X: x, Y: y, Zoom: zoom})
}

// TileToCoordinate returns the north-west corner of a tile.
func TileToCoordinate(tile Tile) models.Coordinate {
	n := math.Pow(2, float64(tile.Zoom))
	lng := float64(tile.X)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(tile.Y)/n)))
	return models.Coordinate{Latitude: latRad * 180.0 / math.Pi, Longitude: lng}
}

// WorldCoordinates converts geographical coordinates to world pixel coordinates at given zoom level
func WorldCoordinates(c models.Coordinate, zoom int) (float64, float64) {
	n := math.Pow(2, float64(zoom))
	latRad := clampLat(c.Latitude) * math.Pi / 180.0
	worldX := float64(TileSize) * n * (c.Longitude + 180) / 360
	worldY := float64(TileSize) * n * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return worldX, worldY
}

// WorldToCoordinate converts world pixel coordinates back to geographical coordinates
func WorldToCoordinate(worldX, worldY float64, zoom int) models.Coordinate {
	n := math.Pow(2, float64(zoom))
	lng := (worldX/(float64(TileSize)*n))*360 - 180
	latRad := math.Pi * (1 - 2*worldY/(float64(TileSize)*n))
	lat := 180 / math.Pi * math.Atan(math.Sinh(latRad))
	return models.Coordinate{Latitude: lat, Longitude: lng}
}

// MetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func MetersPerPixel(latitude float64, zoom int) float64 {
	return earthCircumference * math.Cos(latitude*math.Pi/180) / (math.Pow(2, float64(zoom)) * TileSize)
}

// ConstrainTile ensures tile coordinates are within valid bounds for the zoom level
func ConstrainTile(tile Tile) Tile {
	maxTile := int(math.Pow(2, float64(tile.Zoom))) - 1
	tile.X = max(0, min(tile.X, maxTile))
	tile.Y = max(0, min(tile.Y, maxTile))
	return tile
}

// VisibleTiles lists the tiles covering a screen of the given size
// centred on center, with one tile of buffer on each axis. Tiles clamped at
// the world edge are reported once.
func VisibleTiles(center models.Coordinate, zoom int, screen image.Point) []Tile {
	centerTile := CoordinateToTile(center, zoom)
	tilesX := (screen.X / TileSize) + 2
	tilesY := (screen.Y / TileSize) + 2

	startX := centerTile.X - tilesX/2
	startY := centerTile.Y - tilesY/2

	seen := make(map[Tile]bool, tilesX*tilesY)
	visible := make([]Tile, 0, tilesX*tilesY)
	for x := startX; x < startX+tilesX; x++ {
		for y := startY; y < startY+tilesY; y++ {
			tile := ConstrainTile(Tile{X: x, Y: y, Zoom: zoom})
			if seen[tile] {
				continue
			}
			seen[tile] = true
			visible = append(visible, tile)
		}
	}
	return visible
}
