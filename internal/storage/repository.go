// ABOUTME: Repository interfaces for the local civic cache
// ABOUTME: Enables testability and storage backend swapping

package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harper/civic/internal/models"
)

// IssueCache holds the last issue list fetched from the backend.
type IssueCache interface {
	ReplaceIssues(ctx context.Context, issues []models.Issue, fetchedAt time.Time) error
	CachedIssues(ctx context.Context) ([]models.Issue, error)
	GetIssue(ctx context.Context, id models.IssueID) (*models.Issue, error)
	LastFetched(ctx context.Context) (time.Time, error)
}

// FixRepository records location readings.
type FixRepository interface {
	CreateFix(ctx context.Context, fix *models.Fix) error
	GetFix(ctx context.Context, id uuid.UUID) (*models.Fix, error)
	LatestFix(ctx context.Context) (*models.Fix, error)
	ListFixes(ctx context.Context, limit int) ([]*models.Fix, error)
	FixesSince(ctx context.Context, since time.Time) ([]*models.Fix, error)
	DeleteFix(ctx context.Context, id uuid.UUID) error
}

// Repository combines all repository operations with lifecycle management.
type Repository interface {
	IssueCache
	FixRepository
	Close() error
	Reset() error
}
