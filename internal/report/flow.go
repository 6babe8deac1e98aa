// ABOUTME: Report flow owning the draft, its validation and submission state
// ABOUTME: Embeds a location picker seeded at the user's position

package report

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/api"
	"github.com/harper/civic/internal/mapview"
	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/picker"
)

var (
	// ErrSubmitting is returned when a submission is already in flight.
	ErrSubmitting = errors.New("a submission is already in progress")
	// ErrClosed is returned once the flow has been canceled.
	ErrClosed = errors.New("report flow is closed")
	// ErrNotImage is returned when a non-image file is attached.
	ErrNotImage = errors.New("not an image file")
)

// Form-level messages.
const (
	MsgSubmitFailed = "Failed to report issue. Please try again."
	MsgNotImage     = "Please select a valid image file"
)

// DescriptionWarnAt is the length at which the character counter warns.
const DescriptionWarnAt = 450

// Submitter sends a validated draft to the backend.
type Submitter interface {
	SubmitIssue(ctx context.Context, draft models.DraftReport) (*models.Issue, error)
}

// Options configure a Flow.
type Options struct {
	// OnSuccess runs after the server confirms creation.
	OnSuccess func(*models.Issue)
	// Projector lets the embedded picker resolve screen points.
	Projector mapview.Projector
	Logger    *log.Logger
}

// Flow is an open report form.
type Flow struct {
	mu sync.Mutex

	submitter Submitter
	onSuccess func(*models.Issue)
	logger    *log.Logger
	picker    *picker.Picker

	draft      models.DraftReport
	errs       models.ValidationErrors
	formErr    string
	submitting bool
	closed     bool
}

// New opens a report flow with the picker seeded at userLocation.
func New(submitter Submitter, camera mapview.Camera, userLocation models.Coordinate, opts Options) *Flow {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	f := &Flow{
		submitter: submitter,
		onSuccess: opts.OnSuccess,
		logger:    opts.Logger,
		draft:     models.NewDraft(),
		errs:      models.ValidationErrors{},
	}
	loc := userLocation
	f.draft.Coordinate = &loc
	f.picker = picker.New(camera, userLocation, picker.Options{
		OnChange:  f.locationChanged,
		Projector: opts.Projector,
	})
	return f
}

// Picker returns the embedded location picker.
func (f *Flow) Picker() *picker.Picker {
	return f.picker
}

func (f *Flow) locationChanged(c picker.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	loc := c.Coordinate
	f.draft.Coordinate = &loc
	delete(f.errs, models.FieldLocation)
}

// SetIssueType selects the issue category.
func (f *Flow) SetIssueType(t models.IssueType) error {
	if !t.Known() {
		_, err := models.ParseIssueType(string(t))
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.draft.IssueType = t
	return nil
}

// SetDescription sets the description, truncated to the maximum length.
func (f *Flow) SetDescription(s string) error {
	if utf8.RuneCountInString(s) > models.MaxDescriptionLength {
		s = string([]rune(s)[:models.MaxDescriptionLength])
	}
	return f.update(models.FieldDescription, func(d *models.DraftReport) { d.Description = s })
}

// SetLocality sets the village or city name.
func (f *Flow) SetLocality(s string) error {
	return f.update(models.FieldLocality, func(d *models.DraftReport) { d.Locality = s })
}

// SetImage attaches a photo. Files that are not images at all are refused
// outright; size and format are checked on submit.
func (f *Flow) SetImage(img *models.ImageFile) error {
	if img == nil || !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
		return ErrNotImage
	}
	return f.update(models.FieldImage, func(d *models.DraftReport) { d.Image = img })
}

// SetLocation places the pin as if the user had tapped the map.
func (f *Flow) SetLocation(c models.Coordinate) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return f.picker.Tap(c)
}

// UpdateUserLocation passes a new user position to the picker. Echoes of
// the picker's own changes are ignored.
func (f *Flow) UpdateUserLocation(c models.Coordinate) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	if f.picker.SetInitial(c) {
		f.mu.Lock()
		loc := c
		f.draft.Coordinate = &loc
		delete(f.errs, models.FieldLocation)
		f.mu.Unlock()
	}
}

// ResetLocation restores the pin to the user's position.
func (f *Flow) ResetLocation() {
	f.picker.ResetToCurrent()
}

// update applies a field edit and clears that field's error.
func (f *Flow) update(field string, apply func(*models.DraftReport)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	apply(&f.draft)
	delete(f.errs, field)
	return nil
}

// Draft returns a copy of the draft.
func (f *Flow) Draft() models.DraftReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	if d.Coordinate != nil {
		c := *d.Coordinate
		d.Coordinate = &c
	}
	return d
}

// Errors returns a copy of the current field errors.
func (f *Flow) Errors() models.ValidationErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(models.ValidationErrors, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// FormError returns the form-level error from the last failed submission.
func (f *Flow) FormError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.formErr
}

// Submitting reports whether a submission is in flight.
func (f *Flow) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Closed reports whether the flow was canceled.
func (f *Flow) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// DescriptionCount returns the description length and whether the counter
// should warn.
func (f *Flow) DescriptionCount() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := utf8.RuneCountInString(f.draft.Description)
	return n, n > DescriptionWarnAt
}

// Validate recomputes the full error set.
func (f *Flow) Validate() models.ValidationErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = f.draft.Validate()
	out := make(models.ValidationErrors, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// Submit validates the draft and sends it. Field errors are returned as
// models.ValidationErrors without a network call. On success the draft is
// reset and OnSuccess runs.
func (f *Flow) Submit(ctx context.Context) (*models.Issue, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.errs = f.draft.Validate()
	if !f.errs.Empty() {
		errs := f.draft.Validate()
		f.mu.Unlock()
		return nil, errs
	}
	f.submitting = true
	f.formErr = ""
	draft := f.draft
	f.mu.Unlock()

	issue, err := f.submitter.SubmitIssue(ctx, draft)

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			f.errs = verrs
		} else {
			f.formErr = formMessage(err)
		}
		f.mu.Unlock()
		f.logger.Error("submission error", "err", err)
		return nil, err
	}

	closed := f.closed
	if !closed {
		f.draft = models.NewDraft()
		seed := f.picker.Seed()
		f.draft.Coordinate = &seed
		f.errs = models.ValidationErrors{}
	}
	cb := f.onSuccess
	f.mu.Unlock()

	if !closed && cb != nil {
		cb(issue)
	}
	return issue, nil
}

// Cancel discards the draft. Later calls return ErrClosed.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	f.draft = models.NewDraft()
	f.errs = models.ValidationErrors{}
	f.formErr = ""
	return nil
}

// formMessage picks the human-readable text for a failed submission.
func formMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgSubmitFailed
}
