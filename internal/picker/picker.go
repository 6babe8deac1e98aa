// ABOUTME: Single-pin location picker over a map camera
// ABOUTME: Tags each change with its origin so own changes never recenter

package picker

import (
	"errors"
	"image"
	"sync"

	"github.com/harper/civic/internal/mapview"
	"github.com/harper/civic/internal/models"
)

// Origin says who caused a location change.
type Origin int

const (
	// Internal changes come from dragging the pin or tapping the map.
	Internal Origin = iota + 1
	// External changes come from reset-to-current or a new seed.
	External
)

func (o Origin) String() string {
	switch o {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// Change is a selected-location update.
type Change struct {
	Coordinate models.Coordinate
	Origin     Origin
}

// ErrNoProjector is returned by the screen-point helpers when the picker
// was built without a projector.
var ErrNoProjector = errors.New("picker has no projector")

// Options configure a Picker.
type Options struct {
	// OnChange receives every change of the selected location.
	OnChange func(Change)
	// Projector resolves screen points for DragEndAt and TapAt.
	Projector mapview.Projector
	// Zoom used when recentering; defaults to mapview.PickerZoom.
	Zoom int
}

// Picker holds one draggable pin.
type Picker struct {
	mu sync.Mutex

	camera    mapview.Camera
	projector mapview.Projector
	onChange  func(Change)
	zoom      int

	seed     models.Coordinate
	selected models.Coordinate
	// ownLast is the selection produced by the last internal change.
	ownLast *models.Coordinate
}

// New creates a picker seeded at initial and centres the camera on it.
func New(camera mapview.Camera, initial models.Coordinate, opts Options) *Picker {
	if opts.Zoom == 0 {
		opts.Zoom = mapview.PickerZoom
	}
	p := &Picker{
		camera:    camera,
		projector: opts.Projector,
		onChange:  opts.OnChange,
		zoom:      opts.Zoom,
		seed:      initial,
		selected:  initial,
	}
	p.recenterLocked(initial)
	return p
}

// Selected returns the pin position.
func (p *Picker) Selected() models.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Seed returns the coordinate reset-to-current restores.
func (p *Picker) Seed() models.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seed
}

// DragEnd moves the pin to where the user dropped it.
func (p *Picker) DragEnd(c models.Coordinate) error {
	return p.internal(c)
}

// Tap moves the pin to a tapped map position.
func (p *Picker) Tap(c models.Coordinate) error {
	return p.internal(c)
}

// DragEndAt is DragEnd for a screen point.
func (p *Picker) DragEndAt(pt image.Point) error {
	if p.projector == nil {
		return ErrNoProjector
	}
	return p.internal(p.projector.ScreenToCoordinate(pt))
}

// TapAt is Tap for a screen point.
func (p *Picker) TapAt(pt image.Point) error {
	if p.projector == nil {
		return ErrNoProjector
	}
	return p.internal(p.projector.ScreenToCoordinate(pt))
}

// internal records a user-driven change. The camera is left alone.
func (p *Picker) internal(c models.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.selected = c
	own := c
	p.ownLast = &own
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(Change{Coordinate: c, Origin: Internal})
	}
	return nil
}

// ResetToCurrent restores the seed, recenters the camera and notifies.
func (p *Picker) ResetToCurrent() {
	p.mu.Lock()
	p.selected = p.seed
	p.ownLast = nil
	p.recenterLocked(p.seed)
	c := p.seed
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(Change{Coordinate: c, Origin: External})
	}
}

// SetInitial accepts a coordinate from the parent. A value equal to the
// seed is ignored, as is the echo of the picker's own last change.
// Anything else becomes the new seed and selection and recenters the camera.
// It reports whether the picker moved.
func (p *Picker) SetInitial(c models.Coordinate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Equal(p.seed) {
		return false
	}
	if p.ownLast != nil && c.Equal(*p.ownLast) {
		return false
	}
	p.seed = c
	p.selected = c
	p.ownLast = nil
	p.recenterLocked(c)
	return true
}

func (p *Picker) recenterLocked(c models.Coordinate) {
	p.camera.InvalidateSize()
	p.camera.SetView(c, p.zoom)
}
