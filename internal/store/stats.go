package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string       `json:"db_path"`
	DBSizeBytes int64        `json:"db_size_bytes"`
	Users       int          `json:"users"`
	Tables      []TableStats `json:"tables"`
}

// TableStats holds per-table counts, optionally scoped to one user.
type TableStats struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

var statTables = []string{
	"memories", "claims", "decisions", "emotions", "will_events",
	"continuity_events", "insights", "continuity_profiles",
}

// Stats returns database statistics. A non-empty userID scopes the counts.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath, userID string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id) FROM memories`).Scan(&st.Users)

	for _, table := range statTables {
		ts := TableStats{Table: table}
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
		args := []interface{}{}
		if userID != "" {
			query += ` WHERE user_id = ?`
			args = append(args, userID)
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ts.Count); err != nil {
			return st, fmt.Errorf("count %s: %w", table, err)
		}
		st.Tables = append(st.Tables, ts)
	}

	return st, nil
}
