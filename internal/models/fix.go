// ABOUTME: Recorded location readings used by the location sensor
// ABOUTME: Provides constructor functions for creating new fixes

package models

import (
	"time"

	"github.com/google/uuid"
)

// Fix is a single location reading.
type Fix struct {
	ID         uuid.UUID  `json:"id"`
	Coordinate Coordinate `json:"coordinate"`
	// Accuracy is the radius of uncertainty in meters, 0 when unknown.
	Accuracy   float64   `json:"accuracy,omitempty"`
	Label      *string   `json:"label,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewFix creates a fix with generated UUID and current timestamps.
func NewFix(c Coordinate, label *string) *Fix {
	now := time.Now()
	return &Fix{
		ID:         uuid.New(),
		Coordinate: c,
		Label:      label,
		RecordedAt: now,
		CreatedAt:  now,
	}
}

// NewFixWithRecordedAt creates a fix with a specific recorded time.
func NewFixWithRecordedAt(c Coordinate, label *string, recordedAt time.Time) *Fix {
	return &Fix{
		ID:         uuid.New(),
		Coordinate: c,
		Label:      label,
		RecordedAt: recordedAt,
		CreatedAt:  time.Now(),
	}
}

// Age returns how old the fix is relative to now.
func (f *Fix) Age(now time.Time) time.Duration {
	return now.Sub(f.RecordedAt)
}
