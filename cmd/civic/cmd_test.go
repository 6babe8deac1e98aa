// ABOUTME: Tests for CLI commands
// ABOUTME: Runs issues, show, report, locate, map, export, backup and config against fakes

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/api"
	"github.com/harper/civic/internal/config"
	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/storage"
	"github.com/spf13/cobra"
)

type fakeService struct {
	mu        sync.Mutex
	issues    []models.Issue
	err       error
	submitted []models.DraftReport
}

func (f *fakeService) ListIssues(context.Context) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Issue, len(f.issues))
	copy(out, f.issues)
	return out, nil
}

func (f *fakeService) SubmitIssue(_ context.Context, d models.DraftReport) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, d)
	issue := models.Issue{
		ID:          models.IssueID(fmt.Sprintf("%d", 100+len(f.submitted))),
		IssueType:   d.IssueType,
		Description: d.Description,
		Coordinate:  *d.Coordinate,
	}
	f.issues = append(f.issues, issue)
	return &issue, nil
}

func (f *fakeService) drafts() []models.DraftReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DraftReport(nil), f.submitted...)
}

func strPtr(s string) *string { return &s }

func sampleIssues() []models.Issue {
	return []models.Issue{
		{
			ID:          "1",
			IssueType:   models.IssueTypePothole,
			Description: "Deep pothole near the bus stop",
			Coordinate:  models.Coordinate{Latitude: 18.5204, Longitude: 73.8567},
			Locality:    strPtr("Pune"),
		},
		{
			ID:          "2",
			IssueType:   models.IssueTypeGarbageDump,
			Description: "Garbage not collected for a week",
			Coordinate:  models.Coordinate{Latitude: 18.5310, Longitude: 73.8446},
			ImageURL:    strPtr("https://cdn.example/2.jpg"),
		},
	}
}

// testEnv opens a temporary cache, installs a fake backend and isolates
// config from the real home directory.
func testEnv(t *testing.T) *fakeService {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("XDG_DATA_HOME", tmpDir)

	prevNoColor := color.NoColor
	color.NoColor = true

	var err error
	store, err = storage.NewSQLiteDB(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	cfg = &config.Config{}

	fake := &fakeService{issues: sampleIssues()}
	prevService := issueService
	issueService = func() api.IssueService { return fake }

	t.Cleanup(func() {
		issueService = prevService
		color.NoColor = prevNoColor
		if store != nil {
			_ = store.Close()
			store = nil
		}
		cfg = nil
	})
	return fake
}

// run executes a command's RunE with flags applied and captures stdout.
// Flags are restored afterwards.
func run(t *testing.T, cmd *cobra.Command, flags map[string]string, args ...string) (string, error) {
	t.Helper()
	for name, value := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("flag %q not found on %s", name, cmd.Name())
		}
		prev := f.Value.String()
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
		t.Cleanup(func() {
			_ = f.Value.Set(prev)
			f.Changed = false
		})
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})

	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func writePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return path
}

// Tests for rootCmd

func TestRootCmd_Metadata(t *testing.T) {
	if rootCmd.Use != "civic" {
		t.Errorf("expected Use 'civic', got %q", rootCmd.Use)
	}
	if rootCmd.Short != "Report and browse civic issues on a map" {
		t.Errorf("unexpected Short: %q", rootCmd.Short)
	}
	if !strings.Contains(rootCmd.Long, "Report potholes") {
		t.Error("expected description in Long")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"issues", "show", "report", "search", "locate", "map", "export", "backup", "import", "reset", "config", "mcp", "install-skill"} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"db", "api", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %q not found", name)
		}
	}
}

// Tests for issuesCmd

func TestIssuesCmd_Metadata(t *testing.T) {
	if !contains(issuesCmd.Aliases, "ls") {
		t.Error("expected alias 'ls'")
	}
}

func TestIssuesCmd_Integration(t *testing.T) {
	testEnv(t)

	out, err := run(t, issuesCmd, nil)
	if err != nil {
		t.Fatalf("issuesCmd failed: %v", err)
	}
	for _, want := range []string{"#1", "[Pothole]", "Pune", "#2", "[Garbage Dump]", "using default"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	cached, err := store.CachedIssues(context.Background())
	if err != nil {
		t.Fatalf("CachedIssues failed: %v", err)
	}
	if len(cached) != 2 {
		t.Errorf("expected the fetched list to be cached, got %d", len(cached))
	}
}

func TestIssuesCmd_TypeFilterAndLimit(t *testing.T) {
	testEnv(t)

	out, err := run(t, issuesCmd, map[string]string{"type": "garbage_dump"})
	if err != nil {
		t.Fatalf("issuesCmd failed: %v", err)
	}
	if strings.Contains(out, "#1") || !strings.Contains(out, "#2") {
		t.Errorf("filter not applied:\n%s", out)
	}

	if _, err := run(t, issuesCmd, map[string]string{"type": "volcano"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestIssuesCmd_BackendDownUsesCache(t *testing.T) {
	fake := testEnv(t)
	if err := store.ReplaceIssues(context.Background(), sampleIssues()[:1], time.Now()); err != nil {
		t.Fatal(err)
	}
	fake.err = errors.New("connection refused")

	out, err := run(t, issuesCmd, nil)
	if err != nil {
		t.Fatalf("a fetch failure must not fail the command: %v", err)
	}
	if !strings.Contains(out, "#1") || strings.Contains(out, "#2") {
		t.Errorf("expected the cached list:\n%s", out)
	}
}

func TestIssuesCmd_Empty(t *testing.T) {
	fake := testEnv(t)
	fake.issues = nil

	out, err := run(t, issuesCmd, nil)
	if err != nil {
		t.Fatalf("issuesCmd failed: %v", err)
	}
	if !strings.Contains(out, "No issues reported yet") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestIssuesCmd_UsesRecordedLocation(t *testing.T) {
	testEnv(t)
	fix := models.NewFix(models.Coordinate{Latitude: 12.9716, Longitude: 77.5946}, nil)
	if err := store.CreateFix(context.Background(), fix); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, issuesCmd, nil)
	if err != nil {
		t.Fatalf("issuesCmd failed: %v", err)
	}
	if !strings.Contains(out, "(12.9716, 77.5946)") || strings.Contains(out, "using default") {
		t.Errorf("recorded location not used:\n%s", out)
	}
}

func TestFilterIssues(t *testing.T) {
	issues := append(sampleIssues(), models.Issue{ID: "3", IssueType: models.IssueTypePothole})
	tests := []struct {
		name  string
		t     models.IssueType
		limit int
		want  []models.IssueID
	}{
		{"all", "", 0, []models.IssueID{"1", "2", "3"}},
		{"type", models.IssueTypePothole, 0, []models.IssueID{"1", "3"}},
		{"limit", "", 2, []models.IssueID{"1", "2"}},
		{"type and limit", models.IssueTypePothole, 1, []models.IssueID{"1"}},
		{"no match", models.IssueTypeWaterLeakage, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterIssues(issues, tt.t, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d issues, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("issue %d = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

// Tests for showCmd

func TestShowCmd_Success(t *testing.T) {
	testEnv(t)

	out, err := run(t, showCmd, nil, "2")
	if err != nil {
		t.Fatalf("showCmd failed: %v", err)
	}
	for _, want := range []string{"[Garbage Dump]", "#2", "Garbage not collected", "Image: https://cdn.example/2.jpg"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestShowCmd_NotFound(t *testing.T) {
	testEnv(t)

	_, err := run(t, showCmd, nil, "404")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

// Tests for reportCmd

func TestReportCmd_Flags(t *testing.T) {
	for _, name := range []string{"type", "description", "locality", "image", "lat", "lng", "place", "here"} {
		if reportCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %q not found", name)
		}
	}
	if reportCmd.Flags().Lookup("type").DefValue != "pothole" {
		t.Error("expected pothole as default type")
	}
}

func TestReportCmd_Success(t *testing.T) {
	fake := testEnv(t)

	out, err := run(t, reportCmd, map[string]string{
		"type":        "garbage_dump",
		"description": "Bins overflowing on FC Road",
		"locality":    "Pune",
		"image":       writePNG(t),
		"lat":         "18.5236",
		"lng":         "73.8478",
	})
	if err != nil {
		t.Fatalf("reportCmd failed: %v\n%s", err, out)
	}

	drafts := fake.drafts()
	if len(drafts) != 1 {
		t.Fatalf("expected one submission, got %d", len(drafts))
	}
	d := drafts[0]
	if d.IssueType != models.IssueTypeGarbageDump || d.Locality != "Pune" {
		t.Errorf("unexpected draft: %+v", d)
	}
	if d.Coordinate == nil || !d.Coordinate.Equal(models.Coordinate{Latitude: 18.5236, Longitude: 73.8478}) {
		t.Errorf("pin not placed: %v", d.Coordinate)
	}
	if d.Image == nil || d.Image.ContentType != "image/png" {
		t.Errorf("image not attached: %+v", d.Image)
	}
	if !strings.Contains(out, "27/500") {
		t.Errorf("expected description counter in:\n%s", out)
	}
	if !strings.Contains(out, "3 issue(s) on the map") {
		t.Errorf("expected refetch after submit:\n%s", out)
	}
}

func TestReportCmd_DefaultsToRecordedLocation(t *testing.T) {
	fake := testEnv(t)
	here := models.Coordinate{Latitude: 19.076, Longitude: 72.8777}
	if err := store.CreateFix(context.Background(), models.NewFix(here, nil)); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, reportCmd, map[string]string{
		"description": "Street light out",
		"locality":    "Mumbai",
		"image":       writePNG(t),
		"here":        "true",
	})
	if err != nil {
		t.Fatalf("reportCmd failed: %v", err)
	}
	drafts := fake.drafts()
	if len(drafts) != 1 || !drafts[0].Coordinate.Equal(here) {
		t.Errorf("expected submission at %v, got %+v", here, drafts)
	}
}

func TestReportCmd_DocumentedTypesParse(t *testing.T) {
	_, list, ok := strings.Cut(reportCmd.Long, "Issue types:")
	if !ok {
		t.Fatal("report help does not list issue types")
	}
	names := strings.FieldsFunc(list, func(r rune) bool {
		return !(r == '_' || (r >= 'A' && r <= 'Z'))
	})
	seen := map[models.IssueType]bool{}
	for _, name := range names {
		it, err := models.ParseIssueType(name)
		if err != nil {
			t.Errorf("help advertises %q: %v", name, err)
			continue
		}
		seen[it] = true
	}
	for _, it := range models.IssueTypes {
		if !seen[it] {
			t.Errorf("help does not mention %s", it)
		}
	}
}

func TestReportCmd_StreetLightAlias(t *testing.T) {
	fake := testEnv(t)

	_, err := run(t, reportCmd, map[string]string{
		"type":        "STREET_LIGHT",
		"description": "Street light out since Monday",
		"locality":    "Pune",
		"image":       writePNG(t),
		"lat":         "18.5204",
		"lng":         "73.8567",
	})
	if err != nil {
		t.Fatalf("reportCmd failed: %v", err)
	}
	drafts := fake.drafts()
	if len(drafts) != 1 || drafts[0].IssueType != models.IssueTypeStreetLight {
		t.Errorf("expected a street light report, got %+v", drafts)
	}
}

func TestReportCmd_ValidationStopsSubmission(t *testing.T) {
	fake := testEnv(t)

	out, err := run(t, reportCmd, map[string]string{
		"description": "No locality and no photo",
	})
	if err == nil || !strings.Contains(err.Error(), "report not submitted") {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(fake.drafts()) != 0 {
		t.Error("validation failure must not reach the backend")
	}
	for _, want := range []string{"Village/City is required", "image"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestReportCmd_FlagConflicts(t *testing.T) {
	testEnv(t)

	if _, err := run(t, reportCmd, map[string]string{"lat": "18.5"}); err == nil {
		t.Error("expected error for --lat without --lng")
	}
	if _, err := run(t, reportCmd, map[string]string{"here": "true", "place": "Pune"}); err == nil {
		t.Error("expected error for --here with --place")
	}
}

func TestReportCmd_NotAnImage(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just text"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, reportCmd, map[string]string{"image": path})
	if err == nil || err.Error() != "Please select a valid image file" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReportCmd_Place(t *testing.T) {
	fake := testEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"display_name":"Kothrud, Pune","lat":"18.5074","lon":"73.8077","type":"suburb"}]`))
	}))
	defer srv.Close()
	cfg.NominatimURL = srv.URL

	out, err := run(t, reportCmd, map[string]string{
		"description": "Water main leaking",
		"locality":    "Pune",
		"image":       writePNG(t),
		"type":        "water_leakage",
		"place":       "Kothrud",
	})
	if err != nil {
		t.Fatalf("reportCmd failed: %v", err)
	}
	if !strings.Contains(out, "Kothrud, Pune") {
		t.Errorf("selected place not shown:\n%s", out)
	}
	drafts := fake.drafts()
	if len(drafts) != 1 || !drafts[0].Coordinate.Equal(models.Coordinate{Latitude: 18.5074, Longitude: 73.8077}) {
		t.Errorf("place not used: %+v", drafts)
	}
}

// Tests for searchCmd

func TestSearchCmd(t *testing.T) {
	testEnv(t)
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[
			{"display_name":"Shivajinagar, Pune","lat":"18.5308","lon":"73.8475","type":"suburb"},
			{"display_name":"Shivajinagar, Bengaluru","lat":"12.9857","lon":"77.6057","type":"suburb"}
		]`))
	}))
	defer srv.Close()
	cfg.NominatimURL = srv.URL

	out, err := run(t, searchCmd, nil, "Shivajinagar", "Pune")
	if err != nil {
		t.Fatalf("searchCmd failed: %v", err)
	}
	if query != "Shivajinagar Pune" {
		t.Errorf("query = %q", query)
	}
	if !strings.Contains(out, "1. Shivajinagar, Pune") || !strings.Contains(out, "2. Shivajinagar, Bengaluru") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSearchCmd_NoResults(t *testing.T) {
	testEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	cfg.NominatimURL = srv.URL

	out, err := run(t, searchCmd, nil, "Nowhere")
	if err != nil {
		t.Fatalf("search errors are swallowed, got %v", err)
	}
	if !strings.Contains(out, "No places found") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

// Tests for locate commands

func TestLocateSetAndHistory(t *testing.T) {
	testEnv(t)

	if _, err := run(t, locateSetCmd, map[string]string{"label": "home"}, "18.5204,73.8567"); err != nil {
		t.Fatalf("locate set failed: %v", err)
	}
	fix, err := store.LatestFix(context.Background())
	if err != nil {
		t.Fatalf("fix not stored: %v", err)
	}
	if fix.Label == nil || *fix.Label != "home" {
		t.Errorf("label not stored: %v", fix.Label)
	}

	out, err := run(t, locateHistoryCmd, nil)
	if err != nil {
		t.Fatalf("locate history failed: %v", err)
	}
	if !strings.Contains(out, "home") || !strings.Contains(out, "(18.5204, 73.8567)") {
		t.Errorf("unexpected history:\n%s", out)
	}

	out, err = run(t, locateCmd, nil)
	if err != nil {
		t.Fatalf("locate failed: %v", err)
	}
	if !strings.Contains(out, "(18.5204, 73.8567)") || !strings.Contains(out, "just now") {
		t.Errorf("unexpected locate output:\n%s", out)
	}
}

func TestLocateSet_Invalid(t *testing.T) {
	testEnv(t)

	for _, arg := range []string{"91,0", "not-a-coordinate", "1,2,3"} {
		if _, err := run(t, locateSetCmd, nil, arg); err == nil {
			t.Errorf("expected error for %q", arg)
		}
	}
	if _, err := run(t, locateSetCmd, map[string]string{"at": "yesterday"}, "1,2"); err == nil {
		t.Error("expected error for invalid --at")
	}
}

func TestLocateSet_WithTimestamp(t *testing.T) {
	testEnv(t)

	if _, err := run(t, locateSetCmd, map[string]string{"at": "2024-12-15T10:00:00Z"}, "1,2"); err != nil {
		t.Fatalf("locate set failed: %v", err)
	}
	fix, err := store.LatestFix(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !fix.RecordedAt.Equal(time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("RecordedAt = %v", fix.RecordedAt)
	}
}

func TestLocateHistory_Empty(t *testing.T) {
	testEnv(t)

	out, err := run(t, locateHistoryCmd, nil)
	if err != nil {
		t.Fatalf("locate history failed: %v", err)
	}
	if !strings.Contains(out, "No locations recorded yet") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestLocateHistory_Since(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	old := models.NewFixWithRecordedAt(models.Coordinate{Latitude: 1, Longitude: 1}, strPtr("old"), time.Now().Add(-72*time.Hour))
	recent := models.NewFixWithRecordedAt(models.Coordinate{Latitude: 2, Longitude: 2}, strPtr("recent"), time.Now().Add(-time.Hour))
	for _, f := range []*models.Fix{old, recent} {
		if err := store.CreateFix(ctx, f); err != nil {
			t.Fatal(err)
		}
	}

	out, err := run(t, locateHistoryCmd, map[string]string{"since": "24h"})
	if err != nil {
		t.Fatalf("locate history failed: %v", err)
	}
	if strings.Contains(out, "old") || !strings.Contains(out, "recent") {
		t.Errorf("since filter not applied:\n%s", out)
	}
}

func TestLocateRemove_WithConfirm(t *testing.T) {
	testEnv(t)
	fix := models.NewFix(models.Coordinate{Latitude: 1, Longitude: 2}, nil)
	if err := store.CreateFix(context.Background(), fix); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, locateRemoveCmd, map[string]string{"confirm": "true"}, fix.ID.String()); err != nil {
		t.Fatalf("locate remove failed: %v", err)
	}
	if _, err := store.GetFix(context.Background(), fix.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("fix not removed: %v", err)
	}

	if _, err := run(t, locateRemoveCmd, map[string]string{"confirm": "true"}, fix.ID.String()); err == nil {
		t.Error("expected error removing a missing fix")
	}
	if _, err := run(t, locateRemoveCmd, map[string]string{"confirm": "true"}, "nope"); err == nil {
		t.Error("expected error for invalid ID")
	}
}

func TestLocateWatch_StopsWithContext(t *testing.T) {
	testEnv(t)
	if err := store.CreateFix(context.Background(), models.NewFix(models.Coordinate{Latitude: 3, Longitude: 4}, nil)); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	locateWatchCmd.SetOut(&out)
	defer locateWatchCmd.SetOut(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	locateWatchCmd.SetContext(ctx)

	if err := locateWatchCmd.RunE(locateWatchCmd, nil); err != nil {
		t.Fatalf("locate watch failed: %v", err)
	}
	if !strings.Contains(out.String(), "(3.0000, 4.0000)") {
		t.Errorf("expected the recorded fix in:\n%s", out.String())
	}
}

// Tests for mapCmd

func TestMapCmd(t *testing.T) {
	testEnv(t)

	out, err := run(t, mapCmd, map[string]string{"legend": "true", "list": "true"})
	if err != nil {
		t.Fatalf("mapCmd failed: %v", err)
	}
	for _, want := range []string{"zoom 13", "@ you", "#1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestMapCmd_Recenter(t *testing.T) {
	testEnv(t)
	here := models.Coordinate{Latitude: 18.5204, Longitude: 73.8567}
	if err := store.CreateFix(context.Background(), models.NewFix(here, nil)); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, mapCmd, map[string]string{"recenter": "true", "cols": "21", "rows": "11"})
	if err != nil {
		t.Fatalf("mapCmd failed: %v", err)
	}
	if !strings.Contains(out, "zoom 18, centre (18.5204, 73.8567)") {
		t.Errorf("map not recentred:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	// 11 rows plus the top border; the centre row is index 6.
	if len(lines) < 13 || !strings.Contains(lines[6], "@") {
		t.Errorf("user not drawn in the centre row:\n%s", out)
	}
}

// Tests for exportCmd

func TestExportCmd_GeoJSON(t *testing.T) {
	testEnv(t)

	out, err := run(t, exportCmd, map[string]string{"with-user": "true"})
	if err != nil {
		t.Fatalf("exportCmd failed: %v", err)
	}
	for _, want := range []string{`"FeatureCollection"`, `"issue_type": "POTHOLE"`, `"You are here"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in:\n%s", want, out)
		}
	}
}

func TestExportCmd_MarkdownCached(t *testing.T) {
	fake := testEnv(t)
	if err := store.ReplaceIssues(context.Background(), sampleIssues(), time.Now()); err != nil {
		t.Fatal(err)
	}
	fake.err = errors.New("must not be called")

	outFile := filepath.Join(t.TempDir(), "issues.md")
	if _, err := run(t, exportCmd, map[string]string{"format": "markdown", "cached": "true", "output": outFile}); err != nil {
		t.Fatalf("exportCmd failed: %v", err)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(data), "# Civic Issues") || !strings.Contains(string(data), "Deep pothole") {
		t.Errorf("unexpected markdown:\n%s", data)
	}
}

func TestExportCmd_YAML(t *testing.T) {
	testEnv(t)

	out, err := run(t, exportCmd, map[string]string{"format": "yaml"})
	if err != nil {
		t.Fatalf("exportCmd failed: %v", err)
	}
	if !strings.Contains(out, "tool: civic") {
		t.Errorf("unexpected YAML:\n%s", out)
	}
}

func TestExportCmd_Fixes(t *testing.T) {
	testEnv(t)
	ctx := context.Background()

	if _, err := run(t, exportCmd, map[string]string{"fixes": "true"}); err == nil {
		t.Error("expected error with no locations")
	}

	for i, c := range []models.Coordinate{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}} {
		f := models.NewFixWithRecordedAt(c, nil, time.Now().Add(time.Duration(i-2)*time.Hour))
		if err := store.CreateFix(ctx, f); err != nil {
			t.Fatal(err)
		}
	}
	out, err := run(t, exportCmd, map[string]string{"fixes": "true"})
	if err != nil {
		t.Fatalf("exportCmd failed: %v", err)
	}
	if !strings.Contains(out, `"LineString"`) {
		t.Errorf("expected a track:\n%s", out)
	}
}

func TestExportCmd_InvalidInput(t *testing.T) {
	testEnv(t)

	tests := []map[string]string{
		{"format": "csv"},
		{"fixes": "true", "format": "markdown"},
		{"fixes": "true", "since": "yesterday"},
	}
	for _, flags := range tests {
		if _, err := run(t, exportCmd, flags); err == nil {
			t.Errorf("expected error for %v", flags)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"24h", false},
		{"7d", false},
		{"1w", false},
		{"2m", false},
		{"invalid", true},
		{"h", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseDuration(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseDuration_Week(t *testing.T) {
	result, err := parseDuration("1w")
	if err != nil {
		t.Fatalf("parseDuration failed for '1w': %v", err)
	}
	expected := time.Now().Add(-7 * 24 * time.Hour)
	if diff := result.Sub(expected); diff < -time.Hour || diff > time.Hour {
		t.Errorf("parseDuration('1w') result off by too much: %v", diff)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"2024-12-15", false},
		{"2024-12-15T10:00:00Z", false},
		{"invalid", true},
		{"", true},
		{"12-15-2024", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// Tests for backup, import and reset

func TestBackupImportFlow(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	if err := store.ReplaceIssues(ctx, sampleIssues(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateFix(ctx, models.NewFix(models.Coordinate{Latitude: 5, Longitude: 6}, strPtr("work"))); err != nil {
		t.Fatal(err)
	}

	backupFile := filepath.Join(t.TempDir(), "civic.yaml")
	if _, err := run(t, backupCmd, map[string]string{"output": backupFile}); err != nil {
		t.Fatalf("backupCmd failed: %v", err)
	}

	if _, err := run(t, resetCmd, map[string]string{"confirm": "true"}); err != nil {
		t.Fatalf("resetCmd failed: %v", err)
	}
	if issues, fixes := cacheCounts(resetCmd); issues != 0 || fixes != 0 {
		t.Fatalf("reset left %d issues, %d fixes", issues, fixes)
	}

	if _, err := run(t, importCmd, map[string]string{"confirm": "true"}, backupFile); err != nil {
		t.Fatalf("importCmd failed: %v", err)
	}
	if issues, fixes := cacheCounts(importCmd); issues != 2 || fixes != 1 {
		t.Errorf("after import: %d issues, %d fixes", issues, fixes)
	}
}

func TestImportCmd_FileNotFound(t *testing.T) {
	testEnv(t)

	_, err := run(t, importCmd, map[string]string{"confirm": "true"}, "/nonexistent/civic.yaml")
	if err == nil || !strings.Contains(err.Error(), "failed to read file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBackupCmd_WriteError(t *testing.T) {
	testEnv(t)

	_, err := run(t, backupCmd, map[string]string{"output": "/nonexistent/dir/civic.yaml"})
	if err == nil || !strings.Contains(err.Error(), "failed to write backup") {
		t.Errorf("unexpected error: %v", err)
	}
}

// Tests for configCmd

func TestConfigCmd_Show(t *testing.T) {
	testEnv(t)
	cfg.APIBaseURL = "https://your-backend.example.com/api"

	out, err := run(t, configCmd, nil)
	if err != nil {
		t.Fatalf("configCmd failed: %v", err)
	}
	for _, want := range []string{"placeholder", "development", "nominatim", "20.5937,78.9629"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestConfigSetCmd(t *testing.T) {
	testEnv(t)
	t.Setenv(config.EnvGoogleMaps, "from-env")

	if _, err := run(t, configSetCmd, nil, "geocoder", "Google"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := run(t, configSetCmd, nil, "fallback", "18.52,73.85"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	saved, err := config.LoadFile()
	if err != nil {
		t.Fatal(err)
	}
	if saved.Geocoder != config.GeocoderGoogle {
		t.Errorf("Geocoder = %q", saved.Geocoder)
	}
	if saved.Fallback == nil || saved.Fallback.Latitude != 18.52 {
		t.Errorf("Fallback = %v", saved.Fallback)
	}
	if saved.GoogleMapsKey != "" {
		t.Error("environment override was written to the config file")
	}

	if _, err := run(t, configSetCmd, nil, "colour", "blue"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := run(t, configSetCmd, nil, "geocoder", "bing"); err == nil {
		t.Error("expected error for unknown geocoder")
	}
}

// Tests for mcpCmd

func TestMcpCmd_Metadata(t *testing.T) {
	if mcpCmd.Use != "mcp" {
		t.Errorf("expected Use 'mcp', got %q", mcpCmd.Use)
	}
	if mcpCmd.Short != "Start MCP server for AI agents" {
		t.Errorf("unexpected Short: %q", mcpCmd.Short)
	}
}

// Helper function

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
