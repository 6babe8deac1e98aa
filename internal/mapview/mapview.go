// ABOUTME: Map view controller with issue markers and fly-to animation
// ABOUTME: Runs the Idle/Animating state machine guarded by a generation counter

package mapview

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/models"
)

// State is the animation state.
type State int

const (
	Idle State = iota
	Animating
)

func (s State) String() string {
	if s == Animating {
		return "animating"
	}
	return "idle"
}

// AccuracyRadius is the radius in meters of the circle drawn around the user.
const AccuracyRadius = 100.0

// UserColor is the colour of the user marker and its accuracy circle.
const UserColor = "#0066ff"

// FallbackColor is used for issue types without a dedicated colour.
const FallbackColor = "#95a5a6"

var markerColors = map[models.IssueType]string{
	models.IssueTypePothole:        "#ff6b6b",
	models.IssueTypeStreetLight:    "#ffd93d",
	models.IssueTypeGarbageDump:    "#6bcf7f",
	models.IssueTypeWaterLeakage:   "#4d96ff",
	models.IssueTypeSewageOverflow: "#9b59b6",
	models.IssueTypeOther:          "#95a5a6",
}

// MarkerColor returns the marker colour for an issue type.
func MarkerColor(t models.IssueType) string {
	if c, ok := markerColors[t]; ok {
		return c
	}
	return FallbackColor
}

// Marker is a rendered issue marker.
type Marker struct {
	Issue models.Issue
	Color string
}

// UserMarker is the rendered user position.
type UserMarker struct {
	Coordinate models.Coordinate
	// Radius of the accuracy circle in meters.
	Radius float64
	Color  string
}

// Events are the callbacks raised by the view. Any may be nil.
type Events struct {
	OnMarkerTapped      func(models.Issue)
	OnReportRequested   func()
	OnRecenterRequested func()
	OnAnimationComplete func()
}

// Options configure a MapView.
type Options struct {
	Clock       Clock
	FlyDuration time.Duration
	FlyZoom     int
	Logger      *log.Logger
}

// MapView renders the user, issue markers and fly-to transitions onto a
// camera.
type MapView struct {
	mu sync.Mutex

	camera   Camera
	events   Events
	clock    Clock
	duration time.Duration
	zoom     int
	logger   *log.Logger

	user    *UserMarker
	markers []Marker

	state      State
	generation uint64
	target     *models.Coordinate
	// lastSeen is the last non-nil target passed to Render.
	lastSeen *models.Coordinate
	timer    Timer
	closed   bool
}

// New creates a view over camera.
func New(camera Camera, events Events, opts Options) *MapView {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.FlyDuration <= 0 {
		opts.FlyDuration = DefaultFlyDuration
	}
	if opts.FlyZoom == 0 {
		opts.FlyZoom = FlyToZoom
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &MapView{
		camera:   camera,
		events:   events,
		clock:    opts.Clock,
		duration: opts.FlyDuration,
		zoom:     opts.FlyZoom,
		logger:   opts.Logger,
	}
}

// Render updates the user marker and issue markers and, when flyTo is a
// target not seen on the previous render, starts a transition to it. A
// transition already in flight is canceled and replaced unless it is
// heading to the same target.
func (m *MapView) Render(user models.Coordinate, flyTo *models.Coordinate, issues []models.Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.user = &UserMarker{Coordinate: user, Radius: AccuracyRadius, Color: UserColor}
	m.markers = make([]Marker, 0, len(issues))
	for _, issue := range issues {
		m.markers = append(m.markers, Marker{Issue: issue, Color: MarkerColor(issue.IssueType)})
	}

	if flyTo == nil {
		m.lastSeen = nil
		return
	}
	if m.lastSeen != nil && m.lastSeen.Equal(*flyTo) {
		return
	}
	target := *flyTo
	m.lastSeen = &target
	if m.state == Animating && m.target != nil && m.target.Equal(target) {
		return
	}
	m.startLocked(target)
}

// startLocked cancels any in-flight transition and begins a new one.
func (m *MapView) startLocked(target models.Coordinate) {
	m.generation++
	gen := m.generation

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.state == Animating {
		m.logger.Debug("fly-to preempted", "generation", gen)
		m.camera.Stop()
	}

	m.camera.InvalidateSize()
	m.camera.FlyTo(target, m.zoom, m.duration)
	m.state = Animating
	m.target = &target
	m.timer = m.clock.AfterFunc(m.duration, func() { m.complete(gen) })
}

// complete finishes the transition of generation gen if it is still current.
func (m *MapView) complete(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.generation || m.state != Animating {
		m.mu.Unlock()
		return
	}
	m.state = Idle
	m.target = nil
	m.timer = nil
	cb := m.events.OnAnimationComplete
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// State returns the animation state.
func (m *MapView) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Target returns the in-flight target, or nil when idle.
func (m *MapView) Target() *models.Coordinate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.target == nil {
		return nil
	}
	t := *m.target
	return &t
}

// Generation returns the number of transitions started.
func (m *MapView) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Markers returns the issue markers from the last render.
func (m *MapView) Markers() []Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

// User returns the user marker, or nil before the first render.
func (m *MapView) User() *UserMarker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// TapMarker raises marker-tapped for the issue with the given id and
// reports whether a marker matched.
func (m *MapView) TapMarker(id models.IssueID) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	var found *models.Issue
	for i := range m.markers {
		if m.markers[i].Issue.ID == id {
			issue := m.markers[i].Issue
			found = &issue
			break
		}
	}
	cb := m.events.OnMarkerTapped
	m.mu.Unlock()

	if found == nil {
		return false
	}
	if cb != nil {
		cb(*found)
	}
	return true
}

// RequestReport raises report-requested.
func (m *MapView) RequestReport() {
	m.raise(func(e Events) func() { return e.OnReportRequested })
}

// RequestRecenter raises recenter-requested.
func (m *MapView) RequestRecenter() {
	m.raise(func(e Events) func() { return e.OnRecenterRequested })
}

func (m *MapView) raise(pick func(Events) func()) {
	m.mu.Lock()
	closed := m.closed
	cb := pick(m.events)
	m.mu.Unlock()
	if !closed && cb != nil {
		cb()
	}
}

// Close tears the view down. Pending timers are invalidated and no event
// fires afterwards.
func (m *MapView) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.state == Animating {
		m.camera.Stop()
	}
	m.state = Idle
	m.target = nil
}
