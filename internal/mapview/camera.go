// ABOUTME: Camera contract and the headless Viewport implementation
// ABOUTME: Viewport tracks centre, zoom, screen size and cached bounds

package mapview

import (
	"image"
	"math"
	"sync"
	"time"

	"github.com/harper/civic/internal/models"
)

// Zoom levels used by the app.
const (
	MinZoom    = 2
	MaxZoom    = 19
	MapZoom    = 13
	PickerZoom = 15
	FlyToZoom  = 18
)

// DefaultFlyDuration is the length of a fly-to transition.
const DefaultFlyDuration = 1500 * time.Millisecond

// Camera is the programmable view onto the map.
type Camera interface {
	// InvalidateSize recomputes viewport bounds from the current drawable size.
	InvalidateSize()
	SetView(center models.Coordinate, zoom int)
	FlyTo(target models.Coordinate, zoom int, duration time.Duration)
	// Stop cancels any in-flight transition.
	Stop()
	Center() models.Coordinate
	Zoom() int
}

// Projector maps screen points to coordinates.
type Projector interface {
	ScreenToCoordinate(p image.Point) models.Coordinate
}

// Bounds is the visible area of the map.
type Bounds struct {
	NorthWest models.Coordinate
	SouthEast models.Coordinate
}

// Contains reports whether c is inside the bounds.
func (b Bounds) Contains(c models.Coordinate) bool {
	return c.Latitude <= b.NorthWest.Latitude && c.Latitude >= b.SouthEast.Latitude &&
		c.Longitude >= b.NorthWest.Longitude && c.Longitude <= b.SouthEast.Longitude
}

// Transition is an in-flight fly-to.
type Transition struct {
	From     models.Coordinate
	To       models.Coordinate
	Zoom     int
	Duration time.Duration
}

// Viewport is a camera without a renderer. It keeps the camera position
// exactly as a widget would and answers projection queries against it.
type Viewport struct {
	mu sync.Mutex

	center models.Coordinate
	zoom   int
	size   image.Point
	hidden bool

	bounds     Bounds
	stale      bool
	transition *Transition
}

var (
	_ Camera    = (*Viewport)(nil)
	_ Projector = (*Viewport)(nil)
)

// NewViewport creates a viewport of the given screen size in pixels.
func NewViewport(center models.Coordinate, zoom int, size image.Point) *Viewport {
	v := &Viewport{center: center, zoom: clampZoom(zoom), size: size}
	v.recomputeBounds()
	return v
}

func clampZoom(z int) int {
	return max(MinZoom, min(z, MaxZoom))
}

// Resize changes the drawable size. Bounds stay stale until InvalidateSize.
func (v *Viewport) Resize(size image.Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if size != v.size {
		v.size = size
		v.stale = true
	}
}

// SetHidden marks the drawable area hidden or shown. Showing it again
// leaves the bounds stale until InvalidateSize.
func (v *Viewport) SetHidden(hidden bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.hidden != hidden {
		v.hidden = hidden
		v.stale = true
	}
}

// Stale reports whether the cached bounds predate a resize or visibility change.
func (v *Viewport) Stale() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stale
}

// InvalidateSize implements Camera.
func (v *Viewport) InvalidateSize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recomputeBounds()
}

// SetView implements Camera.
func (v *Viewport) SetView(center models.Coordinate, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transition = nil
	v.center = center
	v.zoom = clampZoom(zoom)
	v.recomputeBounds()
}

// FlyTo implements Camera. The headless camera lands on the target at once
// and records the transition until Stop or the next move.
func (v *Viewport) FlyTo(target models.Coordinate, zoom int, duration time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transition = &Transition{From: v.center, To: target, Zoom: clampZoom(zoom), Duration: duration}
	v.center = target
	v.zoom = clampZoom(zoom)
	v.recomputeBounds()
}

// Stop implements Camera.
func (v *Viewport) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transition = nil
}

// Transition returns the in-flight transition, if any.
func (v *Viewport) Transition() *Transition {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.transition == nil {
		return nil
	}
	t := *v.transition
	return &t
}

// Center implements Camera.
func (v *Viewport) Center() models.Coordinate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.center
}

// Zoom implements Camera.
func (v *Viewport) Zoom() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

// Size returns the drawable size in pixels.
func (v *Viewport) Size() image.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

// Bounds returns the bounds computed at the last InvalidateSize or move.
func (v *Viewport) Bounds() Bounds {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds
}

// MetersPerPixel returns the ground resolution at the centre.
func (v *Viewport) MetersPerPixel() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return MetersPerPixel(v.center.Latitude, v.zoom)
}

// VisibleTiles returns the tiles needed to draw the current view.
func (v *Viewport) VisibleTiles() []Tile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VisibleTiles(v.center, v.zoom, v.size)
}

// ScreenToCoordinate implements Projector. (0,0) is the top-left corner.
func (v *Viewport) ScreenToCoordinate(p image.Point) models.Coordinate {
	v.mu.Lock()
	defer v.mu.Unlock()
	cx, cy := WorldCoordinates(v.center, v.zoom)
	wx := cx + float64(p.X-v.size.X/2)
	wy := cy + float64(p.Y-v.size.Y/2)
	return WorldToCoordinate(wx, wy, v.zoom)
}

// CoordinateToScreen returns the screen point of c and whether it is
// within the drawable area.
func (v *Viewport) CoordinateToScreen(c models.Coordinate) (image.Point, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cx, cy := WorldCoordinates(v.center, v.zoom)
	wx, wy := WorldCoordinates(c, v.zoom)
	p := image.Point{
		X: v.size.X/2 + int(math.Round(wx-cx)),
		Y: v.size.Y/2 + int(math.Round(wy-cy)),
	}
	return p, p.In(image.Rectangle{Max: v.size})
}

// recomputeBounds must be called with mu held.
func (v *Viewport) recomputeBounds() {
	cx, cy := WorldCoordinates(v.center, v.zoom)
	halfW, halfH := float64(v.size.X)/2, float64(v.size.Y)/2
	v.bounds = Bounds{
		NorthWest: WorldToCoordinate(cx-halfW, cy-halfH, v.zoom),
		SouthEast: WorldToCoordinate(cx+halfW, cy+halfH, v.zoom),
	}
	v.stale = false
}
