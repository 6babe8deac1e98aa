// ABOUTME: Location sensor adapter with fallback and continuous watch
// ABOUTME: One-shot reads never fail; watches poll until canceled

package location

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/models"
)

var (
	// ErrUnavailable means the platform has no position capability or no fix.
	ErrUnavailable = errors.New("location unavailable")
	// ErrPermissionDenied means the user refused location access.
	ErrPermissionDenied = errors.New("location permission denied")
)

// Options tune a single position request.
type Options struct {
	HighAccuracy bool
	// MaxAge is the oldest cached fix that may be reused; zero accepts any.
	MaxAge time.Duration
	// Timeout bounds the request; zero means no bound.
	Timeout time.Duration
}

// WatchOptions are the options used for continuous tracking.
var WatchOptions = Options{
	HighAccuracy: true,
	MaxAge:       10 * time.Second,
	Timeout:      5 * time.Second,
}

// DefaultPollInterval is how often a watch asks the sensor for a fix.
const DefaultPollInterval = 5 * time.Second

// Sensor is a source of position fixes.
type Sensor interface {
	CurrentPosition(ctx context.Context, opts Options) (*models.Fix, error)
}

// Adapter wraps a sensor with the fallback and watch behavior the app needs.
type Adapter struct {
	sensor   Sensor
	fallback models.Coordinate
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewAdapter creates an adapter. A nil sensor behaves as permanently
// unavailable.
func NewAdapter(sensor Sensor, fallback models.Coordinate, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Adapter{
		sensor:   sensor,
		fallback: fallback,
		interval: DefaultPollInterval,
		logger:   logger,
		now:      time.Now,
	}
}

// SetPollInterval changes the watch polling interval.
func (a *Adapter) SetPollInterval(d time.Duration) {
	if d > 0 {
		a.interval = d
	}
}

// Fallback returns the coordinate used when no fix is available.
func (a *Adapter) Fallback() models.Coordinate {
	return a.fallback
}

// CurrentCoordinate returns the current position. When the sensor is
// missing, denied or failing, it returns the fallback coordinate and true.
func (a *Adapter) CurrentCoordinate(ctx context.Context) (models.Coordinate, bool) {
	if a.sensor == nil {
		a.logger.Warn("no location sensor, using fallback", "fallback", a.fallback.String())
		return a.fallback, true
	}
	fix, err := a.sensor.CurrentPosition(ctx, Options{HighAccuracy: true})
	if err == nil && fix == nil {
		err = ErrUnavailable
	}
	if err != nil {
		a.logger.Warn("error getting location, using fallback", "err", err, "fallback", a.fallback.String())
		return a.fallback, true
	}
	if err := fix.Coordinate.Validate(); err != nil {
		a.logger.Warn("sensor returned invalid coordinate, using fallback", "err", err)
		return a.fallback, true
	}
	return fix.Coordinate, false
}

// Subscription is a running watch.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops the watch and waits for it to exit. After Cancel returns no
// further updates are delivered. It is safe to call more than once, but
// must not be called from inside the update callback.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the watch has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Watch polls the sensor until ctx is canceled or the subscription is
// canceled. Each poll is bounded by opts.Timeout and skipped on expiry;
// fixes older than opts.MaxAge are skipped; an unchanged coordinate is not
// delivered twice in a row.
func (a *Adapter) Watch(ctx context.Context, opts Options, onUpdate func(models.Coordinate)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		if a.sensor == nil {
			a.logger.Warn("no location sensor, watch idle")
			<-ctx.Done()
			return
		}

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		var last *models.Coordinate
		for {
			if c, ok := a.poll(ctx, opts); ok && (last == nil || !last.Equal(c)) {
				if ctx.Err() != nil {
					return
				}
				last = &c
				onUpdate(c)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return sub
}

type pollResult struct {
	fix *models.Fix
	err error
}

// poll runs one bounded sensor request.
func (a *Adapter) poll(ctx context.Context, opts Options) (models.Coordinate, bool) {
	pctx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// Buffered so a sensor that ignores its context does not leak the sender.
	ch := make(chan pollResult, 1)
	go func() {
		fix, err := a.sensor.CurrentPosition(pctx, opts)
		ch <- pollResult{fix: fix, err: err}
	}()

	var res pollResult
	select {
	case res = <-ch:
	case <-pctx.Done():
		if ctx.Err() == nil {
			a.logger.Debug("location poll timed out, skipping", "timeout", opts.Timeout)
		}
		return models.Coordinate{}, false
	}

	if res.err != nil || res.fix == nil {
		a.logger.Debug("error watching location", "err", res.err)
		return models.Coordinate{}, false
	}
	if opts.MaxAge > 0 && res.fix.Age(a.now()) > opts.MaxAge {
		a.logger.Debug("stale fix skipped", "age", res.fix.Age(a.now()))
		return models.Coordinate{}, false
	}
	if err := res.fix.Coordinate.Validate(); err != nil {
		return models.Coordinate{}, false
	}
	return res.fix.Coordinate, true
}
