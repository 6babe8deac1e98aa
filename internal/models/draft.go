// ABOUTME: In-progress issue report and its field validation
// ABOUTME: Validation recomputes the full error set on every pass

package models

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Field names used as keys in ValidationErrors.
const (
	FieldLocation    = "location"
	FieldDescription = "description"
	FieldLocality    = "locality"
	FieldImage       = "image"
)

const (
	// MinDescriptionLength is the minimum trimmed description length.
	MinDescriptionLength = 10
	// MaxDescriptionLength is the maximum description length.
	MaxDescriptionLength = 500
	// MaxImageSize is the largest accepted upload (5 MiB).
	MaxImageSize = 5 * 1024 * 1024
)

// Validation messages.
const (
	MsgSelectLocation     = "Please select a location on the map"
	MsgLocationRange      = "Location is out of range"
	MsgDescriptionMissing = "Description is required"
	MsgDescriptionShort   = "Description must be at least 10 characters"
	MsgDescriptionLong    = "Description must be 500 characters or fewer"
	MsgLocalityMissing    = "Village/City is required"
	MsgImageMissing       = "Please upload an image"
	MsgImageTooLarge      = "Image size must be less than 5MB"
	MsgImageType          = "Please upload a valid image (JPEG, PNG, or WebP)"
)

var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// AcceptedImageType reports whether the MIME type may be uploaded.
func AcceptedImageType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return acceptedImageTypes[mediaType]
}

// ImageFile is a photo attached to a draft.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the image size in bytes.
func (f *ImageFile) Size() int64 {
	return int64(len(f.Data))
}

// LoadImageFile reads an image from disk and sniffs its MIME type.
func LoadImageFile(path string) (*ImageFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-supplied on purpose
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &ImageFile{
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// DraftReport is an unsubmitted issue report.
type DraftReport struct {
	IssueType   IssueType
	Description string
	Locality    string
	Coordinate  *Coordinate
	Image       *ImageFile
}

// NewDraft returns an empty draft with the default issue type selected.
func NewDraft() DraftReport {
	return DraftReport{IssueType: DefaultIssueType}
}

// ValidationErrors maps a field name to a human-readable message.
type ValidationErrors map[string]string

// Error lists the messages in field order so output is stable.
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Empty reports whether there are no errors.
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

// Validate checks every field and returns the complete error set.
// An empty set means the draft may be submitted.
func (d DraftReport) Validate() ValidationErrors {
	errs := ValidationErrors{}

	if d.Coordinate == nil {
		errs[FieldLocation] = MsgSelectLocation
	} else if d.Coordinate.Validate() != nil {
		errs[FieldLocation] = MsgLocationRange
	}

	desc := strings.TrimSpace(d.Description)
	switch {
	case desc == "":
		errs[FieldDescription] = MsgDescriptionMissing
	case utf8.RuneCountInString(desc) < MinDescriptionLength:
		errs[FieldDescription] = MsgDescriptionShort
	case utf8.RuneCountInString(d.Description) > MaxDescriptionLength:
		errs[FieldDescription] = MsgDescriptionLong
	}

	if strings.TrimSpace(d.Locality) == "" {
		errs[FieldLocality] = MsgLocalityMissing
	}

	if d.Image == nil {
		errs[FieldImage] = MsgImageMissing
	} else {
		if d.Image.Size() > MaxImageSize {
			errs[FieldImage] = MsgImageTooLarge
		}
		// A bad type overrides a size complaint.
		if !AcceptedImageType(d.Image.ContentType) {
			errs[FieldImage] = MsgImageType
		}
	}

	return errs
}
