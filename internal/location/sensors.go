// ABOUTME: Concrete sensors for the command line
// ABOUTME: Static reports a fixed point; StoreSensor reads the latest recorded fix

package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harper/civic/internal/models"
)

// Static always reports the same coordinate with a fresh timestamp.
type Static struct {
	Coordinate models.Coordinate
}

// CurrentPosition implements Sensor.
func (s Static) CurrentPosition(ctx context.Context, _ Options) (*models.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return models.NewFix(s.Coordinate, nil), nil
}

// Denied is a sensor whose permission has been refused.
type Denied struct{}

// CurrentPosition implements Sensor.
func (Denied) CurrentPosition(context.Context, Options) (*models.Fix, error) {
	return nil, ErrPermissionDenied
}

// FixSource is the read side of a fix log.
type FixSource interface {
	LatestFix(ctx context.Context) (*models.Fix, error)
}

// StoreSensor reports the most recent fix recorded in a local log.
type StoreSensor struct {
	Source FixSource
	// IsNotFound reports whether an error means the log is empty.
	IsNotFound func(error) bool
}

// CurrentPosition implements Sensor. An empty log is ErrUnavailable, and a
// fix older than opts.MaxAge is rejected as stale.
func (s StoreSensor) CurrentPosition(ctx context.Context, opts Options) (*models.Fix, error) {
	fix, err := s.Source.LatestFix(ctx)
	if err != nil {
		if s.IsNotFound != nil && s.IsNotFound(err) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("read latest fix: %w", err)
	}
	if opts.MaxAge > 0 && fix.Age(time.Now()) > opts.MaxAge {
		return nil, fmt.Errorf("latest fix is %s old: %w", fix.Age(time.Now()).Round(time.Second), ErrUnavailable)
	}
	return fix, nil
}

// IsUnavailable reports whether err means no position could be obtained.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrPermissionDenied)
}
