// ABOUTME: SQLite storage for the issue cache and the location fix log
// ABOUTME: Provides local-only persistence using pure Go SQLite driver

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harper/civic/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements Repository with a local SQLite database.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// Compile-time check that SQLiteDB implements Repository.
var _ Repository = (*SQLiteDB)(nil)

// NewSQLiteDB opens the database at path, creating the directory and
// schema if needed.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteDB{db: db, path: path}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file location.
func (s *SQLiteDB) Path() string {
	return s.path
}

func (s *SQLiteDB) migrate() error {
	// Caches written before the list was keyed by position collapse
	// duplicate IDs. The table only mirrors the backend, so drop it.
	var keyedByID int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('issues') WHERE name = 'id' AND pk = 1",
	).Scan(&keyedByID)
	if err != nil {
		return fmt.Errorf("inspect issues table: %w", err)
	}
	if keyedByID > 0 {
		if _, err := s.db.Exec("DROP TABLE issues"); err != nil {
			return fmt.Errorf("drop old issues table: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS issues (
			ord INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			issue_type TEXT NOT NULL,
			description TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			img_url TEXT,
			local_city TEXT,
			fetched_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS fixes (
			id TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			accuracy REAL NOT NULL DEFAULT 0,
			label TEXT,
			recorded_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_issues_id ON issues(id);
		CREATE INDEX IF NOT EXISTS idx_fixes_recorded_at ON fixes(recorded_at);
	`
	_, err = s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Reset clears all data from the database.
func (s *SQLiteDB) Reset() error {
	_, err := s.db.Exec("DELETE FROM fixes; DELETE FROM issues;")
	return err
}

// ReplaceIssues swaps the cached list for issues, keeping server order.
// Rows are keyed by position, so issues with empty or repeated IDs are
// all kept.
func (s *SQLiteDB) ReplaceIssues(ctx context.Context, issues []models.Issue, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM issues"); err != nil {
		return fmt.Errorf("clear issues: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO issues (id, ord, issue_type, description, latitude, longitude, img_url, local_city, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, issue := range issues {
		_, err := stmt.ExecContext(ctx,
			string(issue.ID), i, string(issue.IssueType), issue.Description,
			issue.Coordinate.Latitude, issue.Coordinate.Longitude,
			issue.ImageURL, issue.Locality, fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert issue %s: %w", issue.ID, err)
		}
	}

	return tx.Commit()
}

// CachedIssues returns the cached list in server order.
func (s *SQLiteDB) CachedIssues(ctx context.Context) ([]models.Issue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, issue_type, description, latitude, longitude, img_url, local_city
		 FROM issues ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	issues := []models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}
	return issues, rows.Err()
}

// GetIssue returns a cached issue by ID. The first match in list order wins.
func (s *SQLiteDB) GetIssue(ctx context.Context, id models.IssueID) (*models.Issue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, issue_type, description, latitude, longitude, img_url, local_city
		 FROM issues WHERE id = ? ORDER BY ord LIMIT 1`, string(id))
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return issue, err
}

// LastFetched returns when the cached list was stored.
func (s *SQLiteDB) LastFetched(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT MAX(fetched_at) FROM issues").Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("query fetched_at: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, ErrNotFound
	}
	return parseTime(raw.String)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(r rowScanner) (*models.Issue, error) {
	var (
		issue     models.Issue
		id, typ   string
		img, city sql.NullString
	)
	err := r.Scan(&id, &typ, &issue.Description,
		&issue.Coordinate.Latitude, &issue.Coordinate.Longitude, &img, &city)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan issue: %w", err)
	}
	issue.ID = models.IssueID(id)
	issue.IssueType = models.IssueType(typ)
	if img.Valid {
		issue.ImageURL = &img.String
	}
	if city.Valid {
		issue.Locality = &city.String
	}
	return &issue, nil
}

// CreateFix records a fix. A fix at the same coordinate as the latest one
// is silently skipped.
func (s *SQLiteDB) CreateFix(ctx context.Context, fix *models.Fix) error {
	current, err := s.LatestFix(ctx)
	if err == nil && current.Coordinate.Equal(fix.Coordinate) {
		return nil
	}
	return s.insertFix(ctx, fix)
}

// insertFix writes a fix without deduplication.
func (s *SQLiteDB) insertFix(ctx context.Context, fix *models.Fix) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fixes (id, latitude, longitude, accuracy, label, recorded_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fix.ID.String(), fix.Coordinate.Latitude, fix.Coordinate.Longitude,
		fix.Accuracy, fix.Label, fix.RecordedAt.UTC(), fix.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert fix: %w", err)
	}
	return nil
}

// GetFix retrieves a fix by its UUID.
func (s *SQLiteDB) GetFix(ctx context.Context, id uuid.UUID) (*models.Fix, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, latitude, longitude, accuracy, label, recorded_at, created_at
		 FROM fixes WHERE id = ?`, id.String())
	return scanFix(row)
}

// LatestFix returns the most recently recorded fix.
func (s *SQLiteDB) LatestFix(ctx context.Context) (*models.Fix, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, latitude, longitude, accuracy, label, recorded_at, created_at
		 FROM fixes ORDER BY recorded_at DESC LIMIT 1`)
	return scanFix(row)
}

// ListFixes returns fixes newest first. A limit of zero or less returns all.
func (s *SQLiteDB) ListFixes(ctx context.Context, limit int) ([]*models.Fix, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, accuracy, label, recorded_at, created_at
		 FROM fixes ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query fixes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanFixes(rows)
}

// FixesSince returns fixes recorded after since, newest first.
func (s *SQLiteDB) FixesSince(ctx context.Context, since time.Time) ([]*models.Fix, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, accuracy, label, recorded_at, created_at
		 FROM fixes WHERE recorded_at > ? ORDER BY recorded_at DESC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query fixes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanFixes(rows)
}

// DeleteFix removes a single fix.
func (s *SQLiteDB) DeleteFix(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM fixes WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete fix: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFix(r rowScanner) (*models.Fix, error) {
	var (
		idStr string
		fix   models.Fix
	)
	err := r.Scan(&idStr, &fix.Coordinate.Latitude, &fix.Coordinate.Longitude,
		&fix.Accuracy, &fix.Label, &fix.RecordedAt, &fix.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan fix: %w", err)
	}
	fix.ID, _ = uuid.Parse(idStr)
	return &fix, nil
}

func scanFixes(rows *sql.Rows) ([]*models.Fix, error) {
	var fixes []*models.Fix
	for rows.Next() {
		fix, err := scanFix(rows)
		if err != nil {
			return nil, err
		}
		fixes = append(fixes, fix)
	}
	return fixes, rows.Err()
}

// timeLayouts are the forms the driver may hand back for DATETIME text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q", s)
}
