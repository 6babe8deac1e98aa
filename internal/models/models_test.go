// ABOUTME: Unit tests for data models
// ABOUTME: Tests coordinates, issue types, JSON shape, fixes, and draft validation

package models

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// jpegHeader is enough for http.DetectContentType to report image/jpeg.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func jpegOfSize(n int) *ImageFile {
	data := make([]byte, n)
	copy(data, jpegHeader)
	return &ImageFile{Name: "photo.jpg", ContentType: "image/jpeg", Data: data}
}

func validDraft() DraftReport {
	c := Coordinate{Latitude: 12.9716, Longitude: 77.5946}
	return DraftReport{
		IssueType:   IssueTypePothole,
		Description: "Large pothole near the bus stop",
		Locality:    "Bengaluru",
		Coordinate:  &c,
		Image:       jpegOfSize(1024),
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{"valid_bengaluru", 12.9716, 77.5946, false},
		{"valid_origin", 0, 0, false},
		{"valid_north_pole", 90, 0, false},
		{"valid_south_pole", -90, 0, false},
		{"valid_antimeridian_east", 0, 180, false},
		{"valid_antimeridian_west", 0, -180, false},
		{"invalid_lat_too_high", 91, 0, true},
		{"invalid_lat_too_low", -91, 0, true},
		{"invalid_lng_too_high", 0, 181, true},
		{"invalid_lng_too_low", 0, -181, true},
		{"invalid_lat_nan", math.NaN(), 0, true},
		{"invalid_lng_nan", 0, math.NaN(), true},
		{"invalid_lat_inf", math.Inf(1), 0, true},
		{"invalid_lng_inf", 0, math.Inf(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lng)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinates(%f, %f) error = %v, wantErr %v", tt.lat, tt.lng, err, tt.wantErr)
			}
		})
	}
}

func TestNewCoordinate(t *testing.T) {
	c, err := NewCoordinate(20.5937, 78.9629)
	if err != nil {
		t.Fatalf("NewCoordinate failed: %v", err)
	}
	if c.Latitude != 20.5937 || c.Longitude != 78.9629 {
		t.Errorf("unexpected coordinate %+v", c)
	}

	if _, err := NewCoordinate(100, 0); err == nil || !strings.Contains(err.Error(), "latitude") {
		t.Errorf("expected latitude error, got %v", err)
	}
}

func TestCoordinateEqual(t *testing.T) {
	a := Coordinate{Latitude: 1.2345678, Longitude: 2.3456789}
	b := Coordinate{Latitude: 1.2345678, Longitude: 2.3456789}
	if !a.Equal(b) {
		t.Error("identical coordinates should be equal")
	}

	nearly := Coordinate{Latitude: a.Latitude + 0.00000001, Longitude: a.Longitude}
	if !a.Equal(nearly) {
		t.Error("coordinates within epsilon should be equal")
	}

	moved := Coordinate{Latitude: a.Latitude + 0.001, Longitude: a.Longitude}
	if a.Equal(moved) {
		t.Error("coordinates 0.001 degrees apart should differ")
	}
}

func TestCoordinateString(t *testing.T) {
	c := Coordinate{Latitude: 20.5937, Longitude: 78.9629}
	if got := c.String(); got != "20.593700, 78.962900" {
		t.Errorf("unexpected String(): %q", got)
	}
}

func TestIssueTypeLabel(t *testing.T) {
	tests := []struct {
		in   IssueType
		want string
	}{
		{IssueTypePothole, "Pothole"},
		{IssueTypeStreetLight, "Street Light Not Working"},
		{IssueTypeSewageOverflow, "Sewage Overflow"},
		{IssueType("BROKEN_BENCH"), "Broken Bench"},
	}
	for _, tt := range tests {
		if got := tt.in.Label(); got != tt.want {
			t.Errorf("%s.Label() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseIssueType(t *testing.T) {
	tests := []struct {
		in      string
		want    IssueType
		wantErr bool
	}{
		{"POTHOLE", IssueTypePothole, false},
		{"pothole", IssueTypePothole, false},
		{"garbage dump", IssueTypeGarbageDump, false},
		{"water-leakage", IssueTypeWaterLeakage, false},
		{" other ", IssueTypeOther, false},
		{"STREET_LIGHT_NOT_WORKING", IssueTypeStreetLight, false},
		{"STREET_LIGHT", IssueTypeStreetLight, false},
		{"street-light", IssueTypeStreetLight, false},
		{"streetlight", IssueTypeStreetLight, false},
		{"volcano", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseIssueType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIssueType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseIssueType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIssueTypesAreKnown(t *testing.T) {
	if len(IssueTypes) != 6 {
		t.Fatalf("expected 6 issue types, got %d", len(IssueTypes))
	}
	for _, it := range IssueTypes {
		if !it.Known() {
			t.Errorf("%s should be known", it)
		}
	}
	if IssueType("NOPE").Known() {
		t.Error("NOPE should not be known")
	}
}

func TestIssueUnmarshal_NumericID(t *testing.T) {
	body := `{"id": 42, "issueType": "POTHOLE", "description": "deep hole",
		"latitude": 12.5, "longitude": 77.25, "imgUrl": "https://img/1.jpg", "localCity": "Mysuru"}`

	var issue Issue
	if err := json.Unmarshal([]byte(body), &issue); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if issue.ID != "42" {
		t.Errorf("expected id '42', got %q", issue.ID)
	}
	if issue.Coordinate.Latitude != 12.5 || issue.Coordinate.Longitude != 77.25 {
		t.Errorf("unexpected coordinate %+v", issue.Coordinate)
	}
	if issue.ImageURLOrEmpty() != "https://img/1.jpg" {
		t.Errorf("unexpected image url %q", issue.ImageURLOrEmpty())
	}
	if issue.LocalityOrEmpty() != "Mysuru" {
		t.Errorf("unexpected locality %q", issue.LocalityOrEmpty())
	}
}

func TestIssueUnmarshal_StringIDAndOptionalFields(t *testing.T) {
	body := `{"id": "abc-1", "issueType": "OTHER", "description": "x", "latitude": 1, "longitude": 2}`

	var issue Issue
	if err := json.Unmarshal([]byte(body), &issue); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if issue.ID != "abc-1" {
		t.Errorf("expected id 'abc-1', got %q", issue.ID)
	}
	if issue.ImageURL != nil || issue.Locality != nil {
		t.Error("expected optional fields to be nil")
	}
	if issue.ImageURLOrEmpty() != "" || issue.LocalityOrEmpty() != "" {
		t.Error("expected empty optional accessors")
	}
}

func TestIssueMarshal_WireShape(t *testing.T) {
	city := "Pune"
	issue := Issue{
		ID:          "7",
		IssueType:   IssueTypeWaterLeakage,
		Description: "pipe burst",
		Coordinate:  Coordinate{Latitude: 18.52, Longitude: 73.85},
		Locality:    &city,
	}
	data, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw failed: %v", err)
	}
	if raw["latitude"] != 18.52 || raw["longitude"] != 73.85 {
		t.Errorf("expected flat latitude/longitude, got %v", raw)
	}
	if raw["localCity"] != "Pune" {
		t.Errorf("expected localCity 'Pune', got %v", raw["localCity"])
	}
	if _, ok := raw["imgUrl"]; ok {
		t.Error("expected imgUrl to be omitted")
	}
}

func TestNewFix(t *testing.T) {
	label := "home"
	c := Coordinate{Latitude: 1, Longitude: 2}
	before := time.Now()
	fix := NewFix(c, &label)
	after := time.Now()

	if fix.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}
	if !fix.Coordinate.Equal(c) {
		t.Errorf("unexpected coordinate %+v", fix.Coordinate)
	}
	if fix.RecordedAt.Before(before) || fix.RecordedAt.After(after) {
		t.Error("RecordedAt should be between before and after test times")
	}
	if fix.Label == nil || *fix.Label != "home" {
		t.Error("expected label 'home'")
	}
}

func TestNewFixWithRecordedAt(t *testing.T) {
	at := time.Date(2024, 12, 14, 15, 0, 0, 0, time.UTC)
	fix := NewFixWithRecordedAt(Coordinate{}, nil, at)
	if !fix.RecordedAt.Equal(at) {
		t.Errorf("expected recordedAt %v, got %v", at, fix.RecordedAt)
	}
	if got := fix.Age(at.Add(3 * time.Second)); got != 3*time.Second {
		t.Errorf("expected age 3s, got %v", got)
	}
}

func TestValidate_ValidDraft(t *testing.T) {
	errs := validDraft().Validate()
	if !errs.Empty() {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_ValidDraftVariants(t *testing.T) {
	variants := []func(d *DraftReport){
		func(d *DraftReport) { d.Description = "  exactly10!  " },
		func(d *DraftReport) { d.Image.ContentType = "image/png" },
		func(d *DraftReport) { d.Image.ContentType = "image/webp" },
		func(d *DraftReport) { d.Image.ContentType = "image/jpg" },
		func(d *DraftReport) { d.Image = jpegOfSize(MaxImageSize) },
		func(d *DraftReport) { d.Description = strings.Repeat("a", MaxDescriptionLength) },
		func(d *DraftReport) { d.IssueType = IssueTypeOther },
	}
	for i, mutate := range variants {
		d := validDraft()
		mutate(&d)
		if errs := d.Validate(); !errs.Empty() {
			t.Errorf("variant %d: expected no errors, got %v", i, errs)
		}
	}
}

func TestValidate_MissingImageOnlyFlagsImage(t *testing.T) {
	d := validDraft()
	d.Image = nil

	errs := d.Validate()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	if errs[FieldImage] != MsgImageMissing {
		t.Errorf("expected %q, got %q", MsgImageMissing, errs[FieldImage])
	}
}

func TestValidate_FieldMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *DraftReport)
		field  string
		want   string
	}{
		{"no_location", func(d *DraftReport) { d.Coordinate = nil }, FieldLocation, MsgSelectLocation},
		{"bad_location", func(d *DraftReport) { d.Coordinate = &Coordinate{Latitude: 95} }, FieldLocation, MsgLocationRange},
		{"empty_description", func(d *DraftReport) { d.Description = "   " }, FieldDescription, MsgDescriptionMissing},
		{"short_description", func(d *DraftReport) { d.Description = "  too short " }, FieldDescription, MsgDescriptionShort},
		{"long_description", func(d *DraftReport) { d.Description = strings.Repeat("b", 501) }, FieldDescription, MsgDescriptionLong},
		{"empty_locality", func(d *DraftReport) { d.Locality = " \t" }, FieldLocality, MsgLocalityMissing},
		{"big_image", func(d *DraftReport) { d.Image = jpegOfSize(6 * 1024 * 1024) }, FieldImage, MsgImageTooLarge},
		{"gif_image", func(d *DraftReport) { d.Image.ContentType = "image/gif" }, FieldImage, MsgImageType},
		{"big_gif_prefers_type", func(d *DraftReport) {
			d.Image = jpegOfSize(6 * 1024 * 1024)
			d.Image.ContentType = "image/gif"
		}, FieldImage, MsgImageType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			errs := d.Validate()
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			if errs[tt.field] != tt.want {
				t.Errorf("expected %s=%q, got %v", tt.field, tt.want, errs)
			}
		})
	}
}

func TestValidate_EmptyDraft(t *testing.T) {
	errs := NewDraft().Validate()
	for _, f := range []string{FieldLocation, FieldDescription, FieldLocality, FieldImage} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected error for %s", f)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		FieldLocality: MsgLocalityMissing,
		FieldImage:    MsgImageMissing,
	}
	msg := errs.Error()
	if !strings.HasPrefix(msg, "validation failed") {
		t.Errorf("unexpected message %q", msg)
	}
	if strings.Index(msg, "image") > strings.Index(msg, "locality") {
		t.Errorf("expected fields in sorted order, got %q", msg)
	}
}

func TestAcceptedImageType(t *testing.T) {
	tests := map[string]bool{
		"image/jpeg":               true,
		"IMAGE/PNG":                true,
		"image/webp":               true,
		"image/jpeg; charset=x":    true,
		"image/gif":                false,
		"application/octet-stream": false,
		"":                         false,
	}
	for in, want := range tests {
		if got := AcceptedImageType(in); got != want {
			t.Errorf("AcceptedImageType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadImageFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pothole.jpg")
	data := make([]byte, 2048)
	copy(data, jpegHeader)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write image: %v", err)
	}

	img, err := LoadImageFile(path)
	if err != nil {
		t.Fatalf("LoadImageFile failed: %v", err)
	}
	if img.Name != "pothole.jpg" {
		t.Errorf("expected name 'pothole.jpg', got %q", img.Name)
	}
	if img.ContentType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", img.ContentType)
	}
	if img.Size() != 2048 {
		t.Errorf("expected size 2048, got %d", img.Size())
	}

	if _, err := LoadImageFile(filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}
}
