package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcliao/continuity/internal/model"
)

// SaveProfile appends p as the user's next version. Existing versions are
// never updated.
func (s *SQLiteStore) SaveProfile(ctx context.Context, userID string, p *model.ContinuityProfile) (*model.ContinuityProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("save profile: user_id is required")
	}
	if p == nil {
		return nil, fmt.Errorf("save profile: nil profile")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM continuity_profiles WHERE user_id = ?`, userID).Scan(&prevVersion)
	if err != nil {
		return nil, fmt.Errorf("read profile version: %w", err)
	}

	saved := *p
	saved.UserID = userID
	saved.Version = prevVersion + 1
	saved.ComputedAt = saved.ComputedAt.UTC()

	payload, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO continuity_profiles (id, user_id, version, profile, computed_at) VALUES (?, ?, ?, ?, ?)`,
		s.newID(), userID, saved.Version, string(payload), formatTS(saved.ComputedAt))
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.cacheLatest(userID, saved.Version, payload)
	return &saved, nil
}

// cacheLatest stores payload unless a newer version is already cached.
func (s *SQLiteStore) cacheLatest(userID string, version int, payload []byte) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if cur, ok := s.latest.Peek(userID); ok && cur.version >= version {
		return
	}
	s.latest.Add(userID, cachedProfile{version: version, payload: payload})
}

// LatestProfile returns the user's highest profile version, or nil when no
// profile has been saved. Reads are served from an LRU of encoded profiles so
// repeated reads decode the same bytes.
func (s *SQLiteStore) LatestProfile(ctx context.Context, userID string) (*model.ContinuityProfile, error) {
	if cached, ok := s.latest.Get(userID); ok {
		return decodeProfile(cached.payload)
	}

	var raw string
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT version, profile FROM continuity_profiles WHERE user_id = ? ORDER BY version DESC LIMIT 1`, userID).Scan(&version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest profile: %w", err)
	}

	payload := []byte(raw)
	s.cacheLatest(userID, version, payload)
	return decodeProfile(payload)
}

// ProfileHistory returns up to limit profiles, newest first.
func (s *SQLiteStore) ProfileHistory(ctx context.Context, userID string, limit int) ([]model.ContinuityProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT profile FROM continuity_profiles WHERE user_id = ? ORDER BY version DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ContinuityProfile
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		p, err := decodeProfile([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func decodeProfile(payload []byte) (*model.ContinuityProfile, error) {
	var p model.ContinuityProfile
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
