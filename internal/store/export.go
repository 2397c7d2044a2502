package store

import (
	"context"
	"fmt"

	"github.com/rcliao/continuity/internal/model"
)

// Bundle is a user's records in export form.
type Bundle struct {
	UserID     string               `json:"user_id"`
	Memories   []model.MemoryEvent  `json:"memories"`
	Claims     []model.Claim        `json:"claims"`
	Decisions  []model.Decision     `json:"decisions"`
	Emotions   []model.EmotionEvent `json:"emotions"`
	WillEvents []model.WillEvent    `json:"will_events"`
}

// ExportUser returns every record owned by userID, oldest first.
func (s *SQLiteStore) ExportUser(ctx context.Context, userID string) (*Bundle, error) {
	q := RecordQuery{UserID: userID}
	b := &Bundle{UserID: userID}
	var err error
	if b.Memories, err = s.Memories(ctx, q); err != nil {
		return nil, err
	}
	if b.Claims, err = s.Claims(ctx, q); err != nil {
		return nil, err
	}
	if b.Decisions, err = s.Decisions(ctx, q); err != nil {
		return nil, err
	}
	if b.Emotions, err = s.Emotions(ctx, q); err != nil {
		return nil, err
	}
	if b.WillEvents, err = s.WillEvents(ctx, q); err != nil {
		return nil, err
	}
	return b, nil
}

// Import stores the records of a bundle. Records whose id already exists are
// skipped. Records without a user_id inherit the bundle's. Returns the
// number of rows written.
func (s *SQLiteStore) Import(ctx context.Context, b *Bundle) (int, error) {
	imported := 0
	count := func(ok bool, err error) error {
		if err != nil {
			return fmt.Errorf("import after %d records: %w", imported, err)
		}
		if ok {
			imported++
		}
		return nil
	}
	owner := func(id *string) {
		if *id == "" {
			*id = b.UserID
		}
	}

	for i := range b.Memories {
		owner(&b.Memories[i].UserID)
		if err := count(s.insertMemory(ctx, &b.Memories[i])); err != nil {
			return imported, err
		}
	}
	for i := range b.Claims {
		owner(&b.Claims[i].UserID)
		if err := count(s.insertClaim(ctx, &b.Claims[i])); err != nil {
			return imported, err
		}
	}
	for i := range b.Decisions {
		owner(&b.Decisions[i].UserID)
		if err := count(s.insertDecision(ctx, &b.Decisions[i])); err != nil {
			return imported, err
		}
	}
	for i := range b.Emotions {
		owner(&b.Emotions[i].UserID)
		if err := count(s.insertEmotion(ctx, &b.Emotions[i])); err != nil {
			return imported, err
		}
	}
	for i := range b.WillEvents {
		owner(&b.WillEvents[i].UserID)
		if err := count(s.insertWillEvent(ctx, &b.WillEvents[i])); err != nil {
			return imported, err
		}
	}
	return imported, nil
}
