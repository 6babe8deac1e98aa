// ABOUTME: Top-level app shell owning location, issue list and modal state
// ABOUTME: Wires the sensor adapter, issue service, map view and report flow

package app

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/api"
	"github.com/harper/civic/internal/location"
	"github.com/harper/civic/internal/mapview"
	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/report"
)

var (
	// ErrStarted is returned by a second call to Start.
	ErrStarted = errors.New("app shell already started")
	// ErrShellClosed is returned once the shell has been closed.
	ErrShellClosed = errors.New("app shell is closed")
)

// PickerSize is the default viewport size of the report modal's map.
var PickerSize = image.Pt(600, 300)

// IssueCache keeps the last fetched list between runs.
type IssueCache interface {
	ReplaceIssues(ctx context.Context, issues []models.Issue, fetchedAt time.Time) error
	CachedIssues(ctx context.Context) ([]models.Issue, error)
}

// State is what the shell renders.
type State struct {
	UserLocation models.Coordinate
	// LocationFallback is set while UserLocation is the fallback point.
	LocationFallback bool
	// MapCenter is the pending fly-to target, nil when none.
	MapCenter  *models.Coordinate
	Issues     []models.Issue
	Selected   *models.Issue
	ReportOpen bool
	Loading    bool
	// FromCache is set when Issues came from the local cache.
	FromCache bool
	// FetchErr is the last failed fetch, cleared on success.
	FetchErr error
}

// Options configure a Shell.
type Options struct {
	// Cache is optional.
	Cache IssueCache
	Clock mapview.Clock
	// Watch overrides location.WatchOptions.
	Watch *location.Options
	// PickerCamera builds the camera for a report modal; a headless
	// viewport is used when nil.
	PickerCamera func(center models.Coordinate) (mapview.Camera, mapview.Projector)
	// OnChange receives every rendered state. It must not call back into
	// the Shell.
	OnChange func(State)
	Logger   *log.Logger
}

// Shell is the application root.
type Shell struct {
	mu       sync.Mutex
	renderMu sync.Mutex

	adapter      *location.Adapter
	service      api.IssueService
	camera       mapview.Camera
	view         *mapview.MapView
	cache        IssueCache
	watchOpts    location.Options
	pickerCamera func(models.Coordinate) (mapview.Camera, mapview.Projector)
	onChange     func(State)
	logger       *log.Logger

	// ctx is the Start context, reused for the refresh after a report.
	ctx      context.Context
	state    State
	watch    *location.Subscription
	flow     *report.Flow
	rendered bool
	started  bool
	closed   bool
}

// New builds a shell. Nothing happens until Start.
func New(adapter *location.Adapter, service api.IssueService, camera mapview.Camera, opts Options) *Shell {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	watch := location.WatchOptions
	if opts.Watch != nil {
		watch = *opts.Watch
	}
	if opts.PickerCamera == nil {
		opts.PickerCamera = func(c models.Coordinate) (mapview.Camera, mapview.Projector) {
			vp := mapview.NewViewport(c, mapview.PickerZoom, PickerSize)
			return vp, vp
		}
	}

	s := &Shell{
		adapter:      adapter,
		service:      service,
		camera:       camera,
		cache:        opts.Cache,
		watchOpts:    watch,
		pickerCamera: opts.PickerCamera,
		onChange:     opts.OnChange,
		logger:       opts.Logger,
		ctx:          context.Background(),
		state:        State{Issues: []models.Issue{}},
	}
	s.view = mapview.New(camera, mapview.Events{
		OnMarkerTapped:      s.SelectIssue,
		OnReportRequested:   func() { _, _ = s.OpenReport() },
		OnRecenterRequested: s.CenterOnLocation,
		OnAnimationComplete: s.AnimationComplete,
	}, mapview.Options{Clock: opts.Clock, Logger: opts.Logger})
	return s
}

// View returns the map view.
func (s *Shell) View() *mapview.MapView {
	return s.view
}

// State returns a copy of the current state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Shell) snapshotLocked() State {
	st := s.state
	st.Issues = make([]models.Issue, len(s.state.Issues))
	copy(st.Issues, s.state.Issues)
	if s.state.MapCenter != nil {
		c := *s.state.MapCenter
		st.MapCenter = &c
	}
	if s.state.Selected != nil {
		i := *s.state.Selected
		st.Selected = &i
	}
	return st
}

// Start resolves the user location, centres the map, begins watching the
// sensor and fetches issues. It never fails on location or network trouble.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShellClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	s.ctx = ctx
	s.mu.Unlock()

	c, fallback := s.adapter.CurrentCoordinate(ctx)
	if fallback {
		s.logger.Warn("using fallback location", "lat", c.Latitude, "lng", c.Longitude)
	}

	s.mu.Lock()
	s.state.UserLocation = c
	s.state.LocationFallback = fallback
	s.mu.Unlock()

	s.camera.InvalidateSize()
	s.camera.SetView(c, mapview.MapZoom)

	sub := s.adapter.Watch(ctx, s.watchOpts, s.locationUpdated)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Cancel()
		return ErrShellClosed
	}
	s.watch = sub
	s.mu.Unlock()

	s.render()
	s.Refresh(ctx)
	return nil
}

func (s *Shell) locationUpdated(c models.Coordinate) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.UserLocation = c
	s.state.LocationFallback = false
	flow := s.flow
	s.mu.Unlock()

	if flow != nil {
		flow.UpdateUserLocation(c)
	}
	s.render()
}

// Refresh fetches the issue list and replaces the rendered one. On failure
// the previous list stays; before anything was rendered the cached list is
// shown instead.
func (s *Shell) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Loading = true
	s.mu.Unlock()
	s.render()

	issues, err := s.service.ListIssues(ctx)

	var cached []models.Issue
	if err != nil {
		s.logger.Error("error fetching issues", "err", err)
		s.mu.Lock()
		rendered := s.rendered
		s.mu.Unlock()
		if !rendered && s.cache != nil {
			var cerr error
			cached, cerr = s.cache.CachedIssues(ctx)
			if cerr != nil {
				s.logger.Warn("error reading issue cache", "err", cerr)
				cached = nil
			}
		}
	} else if s.cache != nil {
		if cerr := s.cache.ReplaceIssues(ctx, issues, time.Now()); cerr != nil {
			s.logger.Warn("error caching issues", "err", cerr)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Loading = false
	switch {
	case err == nil:
		s.state.Issues = issues
		s.state.FromCache = false
		s.state.FetchErr = nil
		s.rendered = true
	case len(cached) > 0:
		s.state.Issues = cached
		s.state.FromCache = true
		s.state.FetchErr = err
		s.rendered = true
	default:
		s.state.FetchErr = err
	}
	s.mu.Unlock()
	s.render()
}

// SelectIssue opens the details sheet for an issue.
func (s *Shell) SelectIssue(issue models.Issue) {
	s.mu.Lock()
	s.state.Selected = &issue
	s.mu.Unlock()
	s.render()
}

// TapMarker selects the rendered issue with the given id.
func (s *Shell) TapMarker(id models.IssueID) bool {
	return s.view.TapMarker(id)
}

// CloseDetails closes the details sheet.
func (s *Shell) CloseDetails() {
	s.mu.Lock()
	s.state.Selected = nil
	s.mu.Unlock()
	s.render()
}

// OpenReport opens the report modal seeded at the user location. An
// already open modal is returned as is.
func (s *Shell) OpenReport() (*report.Flow, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShellClosed
	}
	if s.flow != nil {
		f := s.flow
		s.mu.Unlock()
		return f, nil
	}
	user := s.state.UserLocation
	s.mu.Unlock()

	camera, projector := s.pickerCamera(user)
	var flow *report.Flow
	flow = report.New(s.service, camera, user, report.Options{
		Projector: projector,
		Logger:    s.logger,
		OnSuccess: func(*models.Issue) { s.reportSubmitted(flow) },
	})

	s.mu.Lock()
	if s.flow != nil {
		existing := s.flow
		s.mu.Unlock()
		_ = flow.Cancel()
		return existing, nil
	}
	s.flow = flow
	s.state.ReportOpen = true
	s.mu.Unlock()
	s.render()
	return flow, nil
}

// Report returns the open report flow, or nil.
func (s *Shell) Report() *report.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow
}

func (s *Shell) reportSubmitted(flow *report.Flow) {
	s.mu.Lock()
	if s.flow == flow {
		s.flow = nil
		s.state.ReportOpen = false
	}
	ctx := s.ctx
	s.mu.Unlock()

	_ = flow.Cancel()
	s.Refresh(ctx)
}

// CloseReport discards the open report.
func (s *Shell) CloseReport() {
	s.mu.Lock()
	flow := s.flow
	s.flow = nil
	s.state.ReportOpen = false
	s.mu.Unlock()

	if flow != nil {
		_ = flow.Cancel()
	}
	s.render()
}

// CenterOnLocation flies the map to the user location.
func (s *Shell) CenterOnLocation() {
	s.mu.Lock()
	c := s.state.UserLocation
	s.state.MapCenter = &c
	s.mu.Unlock()
	s.render()
}

// AnimationComplete clears the fly-to target.
func (s *Shell) AnimationComplete() {
	s.mu.Lock()
	s.state.MapCenter = nil
	s.mu.Unlock()
	s.render()
}

// Close stops the location watch, the map view and any open report.
func (s *Shell) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	watch := s.watch
	flow := s.flow
	s.watch = nil
	s.flow = nil
	s.mu.Unlock()

	if watch != nil {
		watch.Cancel()
	}
	if flow != nil {
		_ = flow.Cancel()
	}
	s.view.Close()
}

// render pushes the current state to the map view and the listener.
func (s *Shell) render() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.view.Render(st.UserLocation, st.MapCenter, st.Issues)
	if s.onChange != nil {
		s.onChange(st)
	}
}
