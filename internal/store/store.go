// Package store provides the record, event, insight and profile storage
// interfaces and their SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/rcliao/continuity/internal/model"
)

// RecordQuery bounds a windowed read of one record type.
type RecordQuery struct {
	UserID string
	Since  time.Time // zero means unbounded
	Until  time.Time // zero means unbounded
	Kind   string    // claims only: identity, goal, belief, fact
	Limit  int       // most recent N inside the window; <= 0 means no cap
}

// RecordStore is read-only access to a user's records. Results are the most
// recent Limit rows of the window, returned oldest first.
type RecordStore interface {
	Memories(ctx context.Context, q RecordQuery) ([]model.MemoryEvent, error)
	Claims(ctx context.Context, q RecordQuery) ([]model.Claim, error)
	Decisions(ctx context.Context, q RecordQuery) ([]model.Decision, error)
	Emotions(ctx context.Context, q RecordQuery) ([]model.EmotionEvent, error)
	WillEvents(ctx context.Context, q RecordQuery) ([]model.WillEvent, error)
}

// EventQuery holds parameters for listing continuity events.
type EventQuery struct {
	UserID string
	Type   model.EventType // empty means all types
	Limit  int
}

// EventStore persists continuity events.
type EventStore interface {
	// InsertEvents stores a batch in one transaction and returns the stored
	// rows with generated ids.
	InsertEvents(ctx context.Context, events []model.ContinuityEvent) ([]model.ContinuityEvent, error)

	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, q EventQuery) ([]model.ContinuityEvent, error)
}

// InsightQuery holds parameters for listing insights.
type InsightQuery struct {
	UserID string
	Type   string
	Limit  int
}

// InsightStore persists insights.
type InsightStore interface {
	InsertInsight(ctx context.Context, in model.Insight) (*model.Insight, error)
	ListInsights(ctx context.Context, q InsightQuery) ([]model.Insight, error)
}

// ProfileStore is append-only versioned storage of continuity profiles.
type ProfileStore interface {
	// SaveProfile stores p as version max+1 (starting at 1) and returns the
	// stored copy.
	SaveProfile(ctx context.Context, userID string, p *model.ContinuityProfile) (*model.ContinuityProfile, error)

	// LatestProfile returns the highest version, or nil when none exists.
	LatestProfile(ctx context.Context, userID string) (*model.ContinuityProfile, error)

	// ProfileHistory returns up to limit profiles, newest first.
	ProfileHistory(ctx context.Context, userID string, limit int) ([]model.ContinuityProfile, error)
}
