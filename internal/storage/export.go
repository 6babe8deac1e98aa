// ABOUTME: Export and import functionality for the local cache
// ABOUTME: Supports YAML backup format and markdown export of issues

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/civic/internal/models"
	"gopkg.in/yaml.v3"
)

// BackupVersion is the current backup format version.
const BackupVersion = "1.0"

// backupTool identifies civic backups.
const backupTool = "civic"

// Backup represents the YAML backup format.
type Backup struct {
	Version    string        `yaml:"version"`
	ExportedAt time.Time     `yaml:"exported_at"`
	Tool       string        `yaml:"tool"`
	FetchedAt  *time.Time    `yaml:"fetched_at,omitempty"`
	Issues     []IssueBackup `yaml:"issues"`
	Fixes      []FixBackup   `yaml:"fixes"`
}

// IssueBackup represents a cached issue in the backup format.
type IssueBackup struct {
	ID          string  `yaml:"id"`
	IssueType   string  `yaml:"issue_type"`
	Description string  `yaml:"description"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	ImageURL    string  `yaml:"img_url,omitempty"`
	Locality    string  `yaml:"local_city,omitempty"`
}

// FixBackup represents a location fix in the backup format.
type FixBackup struct {
	ID         string    `yaml:"id"`
	Latitude   float64   `yaml:"latitude"`
	Longitude  float64   `yaml:"longitude"`
	Accuracy   float64   `yaml:"accuracy,omitempty"`
	Label      string    `yaml:"label,omitempty"`
	RecordedAt time.Time `yaml:"recorded_at"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// ExportToYAML exports the cache and fix log to YAML format.
func ExportToYAML(ctx context.Context, repo Repository) ([]byte, error) {
	issues, err := repo.CachedIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	fixes, err := repo.ListFixes(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list fixes: %w", err)
	}

	backup := Backup{
		Version:    BackupVersion,
		ExportedAt: time.Now().UTC(),
		Tool:       backupTool,
		Issues:     make([]IssueBackup, len(issues)),
		Fixes:      make([]FixBackup, len(fixes)),
	}

	if fetched, err := repo.LastFetched(ctx); err == nil {
		backup.FetchedAt = &fetched
	}

	for i, issue := range issues {
		backup.Issues[i] = IssueBackup{
			ID:          string(issue.ID),
			IssueType:   string(issue.IssueType),
			Description: issue.Description,
			Latitude:    issue.Coordinate.Latitude,
			Longitude:   issue.Coordinate.Longitude,
			ImageURL:    issue.ImageURLOrEmpty(),
			Locality:    issue.LocalityOrEmpty(),
		}
	}

	for i, fix := range fixes {
		backup.Fixes[i] = FixBackup{
			ID:         fix.ID.String(),
			Latitude:   fix.Coordinate.Latitude,
			Longitude:  fix.Coordinate.Longitude,
			Accuracy:   fix.Accuracy,
			RecordedAt: fix.RecordedAt,
			CreatedAt:  fix.CreatedAt,
		}
		if fix.Label != nil {
			backup.Fixes[i].Label = *fix.Label
		}
	}

	return yaml.Marshal(backup)
}

// ImportFromYAML restores a YAML backup. The cached issue list is replaced
// and fixes are inserted without deduplication.
func ImportFromYAML(ctx context.Context, repo Repository, data []byte) error {
	var backup Backup
	if err := yaml.Unmarshal(data, &backup); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version: %s (expected %s)", backup.Version, BackupVersion)
	}

	if backup.Tool != backupTool {
		return fmt.Errorf("wrong tool: %s (expected %s)", backup.Tool, backupTool)
	}

	sqliteDB, ok := repo.(*SQLiteDB)
	if !ok {
		return fmt.Errorf("import requires SQLiteDB")
	}

	issues := make([]models.Issue, 0, len(backup.Issues))
	for _, ib := range backup.Issues {
		c, err := models.NewCoordinate(ib.Latitude, ib.Longitude)
		if err != nil {
			return fmt.Errorf("issue %s: %w", ib.ID, err)
		}
		issue := models.Issue{
			ID:          models.IssueID(ib.ID),
			IssueType:   models.IssueType(ib.IssueType),
			Description: ib.Description,
			Coordinate:  c,
		}
		if ib.ImageURL != "" {
			img := ib.ImageURL
			issue.ImageURL = &img
		}
		if ib.Locality != "" {
			city := ib.Locality
			issue.Locality = &city
		}
		issues = append(issues, issue)
	}

	fetchedAt := backup.ExportedAt
	if backup.FetchedAt != nil {
		fetchedAt = *backup.FetchedAt
	}
	if len(issues) > 0 {
		if err := repo.ReplaceIssues(ctx, issues, fetchedAt); err != nil {
			return fmt.Errorf("restore issues: %w", err)
		}
	}

	for _, fb := range backup.Fixes {
		id, err := uuid.Parse(fb.ID)
		if err != nil {
			return fmt.Errorf("invalid fix ID %s: %w", fb.ID, err)
		}
		c, err := models.NewCoordinate(fb.Latitude, fb.Longitude)
		if err != nil {
			return fmt.Errorf("fix %s: %w", fb.ID, err)
		}

		var label *string
		if fb.Label != "" {
			label = &fb.Label
		}

		fix := &models.Fix{
			ID:         id,
			Coordinate: c,
			Accuracy:   fb.Accuracy,
			Label:      label,
			RecordedAt: fb.RecordedAt,
			CreatedAt:  fb.CreatedAt,
		}
		if err := sqliteDB.insertFix(ctx, fix); err != nil {
			return fmt.Errorf("create fix: %w", err)
		}
	}

	return nil
}

// ExportToMarkdown renders an issue list as a markdown table.
func ExportToMarkdown(issues []models.Issue, now time.Time) []byte {
	var sb strings.Builder

	now = now.UTC()
	sb.WriteString(fmt.Sprintf("# Civic Issues - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	if len(issues) == 0 {
		sb.WriteString("No issues reported.\n")
		return []byte(sb.String())
	}

	sb.WriteString("| ID | Type | Description | Village/City | Coordinates |\n")
	sb.WriteString("|----|------|-------------|--------------|-------------|\n")

	for _, issue := range issues {
		locality := issue.LocalityOrEmpty()
		if locality == "" {
			locality = "-"
		}
		coords := fmt.Sprintf("(%.4f, %.4f)", issue.Coordinate.Latitude, issue.Coordinate.Longitude)
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			issue.ID, issue.IssueType.Label(), markdownCell(issue.Description), markdownCell(locality), coords))
	}

	return []byte(sb.String())
}

// markdownCell keeps a value on one table row.
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// ExportBackup creates a YAML backup (alias for ExportToYAML).
func ExportBackup(ctx context.Context, repo Repository) ([]byte, error) {
	return ExportToYAML(ctx, repo)
}

// ImportBackup restores from a YAML backup (alias for ImportFromYAML).
func ImportBackup(ctx context.Context, repo Repository, data []byte) error {
	return ImportFromYAML(ctx, repo, data)
}
