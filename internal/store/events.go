package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcliao/continuity/internal/model"
)

// InsertEvents stores a batch of events in one transaction. Either every
// event is stored or none is.
func (s *SQLiteStore) InsertEvents(ctx context.Context, events []model.ContinuityEvent) ([]model.ContinuityEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stored := make([]model.ContinuityEvent, 0, len(events))
	for _, e := range events {
		if e.UserID == "" {
			return nil, fmt.Errorf("insert event: user_id is required")
		}
		if !model.ValidEventType(e.EventType) {
			return nil, fmt.Errorf("insert event: invalid event type %q", e.EventType)
		}
		e.ID = s.newID()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.CreatedAt = e.CreatedAt.UTC()
		if e.SourceComponentIDs == nil {
			e.SourceComponentIDs = []string{}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO continuity_events (id, user_id, event_type, description, source_ids, severity, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.UserID, string(e.EventType), e.Description, encodeJSON(e.SourceComponentIDs),
			e.Severity, encodeJSON(e.Metadata), formatTS(e.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// ListEvents returns a user's events newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, q EventQuery) ([]model.ContinuityEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, user_id, event_type, description, source_ids, severity, metadata, created_at
	          FROM continuity_events WHERE user_id = ?`
	args := []interface{}{q.UserID}
	if q.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, string(q.Type))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ContinuityEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row scanner) (model.ContinuityEvent, error) {
	var e model.ContinuityEvent
	var eventType, createdAt string
	var sources, meta sql.NullString
	err := row.Scan(&e.ID, &e.UserID, &eventType, &e.Description, &sources, &e.Severity, &meta, &createdAt)
	if err != nil {
		return e, err
	}
	e.EventType = model.EventType(eventType)
	e.CreatedAt = parseTS(createdAt)
	e.SourceComponentIDs = []string{}
	decodeJSON(sources, &e.SourceComponentIDs)
	decodeJSON(meta, &e.Metadata)
	return e, nil
}
