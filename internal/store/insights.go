package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcliao/continuity/internal/model"
)

// InsertInsight stores one insight and returns it with its id.
func (s *SQLiteStore) InsertInsight(ctx context.Context, in model.Insight) (*model.Insight, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("insert insight: user_id is required")
	}
	in.ID = s.newID()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	in.CreatedAt = in.CreatedAt.UTC()
	if in.SourceComponentIDs == nil {
		in.SourceComponentIDs = []string{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO insights (id, user_id, insight_type, text, confidence, source_ids, tags, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.InsightType, in.Text, in.Confidence,
		encodeJSON(in.SourceComponentIDs), encodeJSON(in.Tags), encodeJSON(in.Metadata), formatTS(in.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert insight: %w", err)
	}
	return &in, nil
}

// ListInsights returns a user's insights newest first.
func (s *SQLiteStore) ListInsights(ctx context.Context, q InsightQuery) ([]model.Insight, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, user_id, insight_type, text, confidence, source_ids, tags, metadata, created_at
	          FROM insights WHERE user_id = ?`
	args := []interface{}{q.UserID}
	if q.Type != "" {
		query += ` AND insight_type = ?`
		args = append(args, q.Type)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Insight
	for rows.Next() {
		var in model.Insight
		var createdAt string
		var sources, tags, meta sql.NullString
		if err := rows.Scan(&in.ID, &in.UserID, &in.InsightType, &in.Text, &in.Confidence,
			&sources, &tags, &meta, &createdAt); err != nil {
			return nil, err
		}
		in.CreatedAt = parseTS(createdAt)
		in.SourceComponentIDs = []string{}
		decodeJSON(sources, &in.SourceComponentIDs)
		decodeJSON(tags, &in.Tags)
		decodeJSON(meta, &in.Metadata)
		out = append(out, in)
	}
	return out, rows.Err()
}
