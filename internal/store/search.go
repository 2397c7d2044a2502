package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/continuity/internal/model"
)

// SearchParams holds parameters for searching journal entries.
type SearchParams struct {
	UserID string
	Query  string // substring of the entry text, case-insensitive for ASCII
	Tag    string
	Limit  int
}

// Search finds a user's journal entries whose text contains the query,
// optionally restricted to a tag. Results are newest first.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.MemoryEvent, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("search: user_id is required")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"user_id = ?"}
	args := []interface{}{p.UserID}
	if q := strings.TrimSpace(p.Query); q != "" {
		where = append(where, "text LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(q)+"%")
	}
	if p.Tag != "" {
		where = append(where, "tags LIKE ? ESCAPE '\\'")
		args = append(args, `%"`+escapeLike(p.Tag)+`"%`)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM memories WHERE %s ORDER BY ts DESC, id DESC LIMIT ?`,
		memoryCols, strings.Join(where, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	var results []model.MemoryEvent
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memories: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
