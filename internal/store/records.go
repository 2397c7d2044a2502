package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/continuity/internal/chunker"
	"github.com/rcliao/continuity/internal/embedding"
	"github.com/rcliao/continuity/internal/model"
)

// embedText embeds text best-effort. Long entries are chunked and the
// chunk embeddings averaged.
func (s *SQLiteStore) embedText(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	chunks := chunker.Chunk(text, chunker.DefaultOptions())
	vecs, err := s.embedChunks(ctx, chunks)
	if err != nil {
		s.logger.Warn("embed failed, storing without embedding",
			zap.Int("chunks", len(chunks)), zap.Error(err))
		return nil
	}
	return embedding.Centroid(vecs)
}

func (s *SQLiteStore) embedChunks(ctx context.Context, chunks []string) ([]embedding.Vector, error) {
	if b, ok := s.embedder.(embedding.BatchEmbedder); ok && len(chunks) > 1 {
		return b.EmbedBatch(ctx, chunks)
	}
	vecs := make([]embedding.Vector, 0, len(chunks))
	for _, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}

func (s *SQLiteStore) prepare(id *string, ts *time.Time) {
	if *id == "" {
		*id = s.newID()
	}
	*ts = ts.UTC()
}

// exec runs an insert and reports whether a row was written. Duplicate ids
// are ignored.
func (s *SQLiteStore) exec(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// PutMemory validates and stores a journal entry.
func (s *SQLiteStore) PutMemory(ctx context.Context, m model.MemoryEvent) (*model.MemoryEvent, error) {
	if _, err := s.insertMemory(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) insertMemory(ctx context.Context, m *model.MemoryEvent) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	s.prepare(&m.ID, &m.Timestamp)
	if len(m.Embedding) == 0 {
		m.Embedding = s.embedText(ctx, m.Text)
	}
	ok, err := s.exec(ctx,
		`INSERT OR IGNORE INTO memories (id, user_id, text, ts, tags, people, embedding, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Text, formatTS(m.Timestamp),
		encodeJSON(m.Tags), encodeJSON(m.People), encodeJSON(m.Embedding), encodeJSON(m.Metadata))
	if err != nil {
		return false, fmt.Errorf("insert memory: %w", err)
	}
	return ok, nil
}

// PutClaim validates and stores a claim.
func (s *SQLiteStore) PutClaim(ctx context.Context, c model.Claim) (*model.Claim, error) {
	if _, err := s.insertClaim(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) insertClaim(ctx context.Context, c *model.Claim) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	s.prepare(&c.ID, &c.Timestamp)
	if c.Kind == "identity" && len(c.Embedding) == 0 {
		c.Embedding = s.embedText(ctx, c.Text)
	}
	ok, err := s.exec(ctx,
		`INSERT OR IGNORE INTO claims (id, user_id, kind, subject, text, polarity, confidence, tags, source_id, embedding, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Kind, c.Subject, c.Text, c.Polarity, c.Confidence,
		encodeJSON(c.Tags), nullable(c.SourceID), encodeJSON(c.Embedding), formatTS(c.Timestamp))
	if err != nil {
		return false, fmt.Errorf("insert claim: %w", err)
	}
	return ok, nil
}

// PutDecision validates and stores a decision.
func (s *SQLiteStore) PutDecision(ctx context.Context, d model.Decision) (*model.Decision, error) {
	if _, err := s.insertDecision(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLiteStore) insertDecision(ctx context.Context, d *model.Decision) (bool, error) {
	if err := d.Validate(); err != nil {
		return false, err
	}
	s.prepare(&d.ID, &d.Timestamp)
	ok, err := s.exec(ctx,
		`INSERT OR IGNORE INTO decisions (id, user_id, description, rationale, outcome, tags, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Description, nullable(d.Rationale), nullable(d.Outcome),
		encodeJSON(d.Tags), formatTS(d.Timestamp))
	if err != nil {
		return false, fmt.Errorf("insert decision: %w", err)
	}
	return ok, nil
}

// PutEmotion validates and stores an emotion event.
func (s *SQLiteStore) PutEmotion(ctx context.Context, e model.EmotionEvent) (*model.EmotionEvent, error) {
	if _, err := s.insertEmotion(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) insertEmotion(ctx context.Context, e *model.EmotionEvent) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	s.prepare(&e.ID, &e.Timestamp)
	e.Emotion = strings.ToLower(strings.TrimSpace(e.Emotion))
	ok, err := s.exec(ctx,
		`INSERT OR IGNORE INTO emotions (id, user_id, emotion, polarity, intensity, source_id, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Emotion, e.Polarity, e.Intensity, nullable(e.SourceID), formatTS(e.Timestamp))
	if err != nil {
		return false, fmt.Errorf("insert emotion: %w", err)
	}
	return ok, nil
}

// PutWillEvent validates and stores a will event.
func (s *SQLiteStore) PutWillEvent(ctx context.Context, w model.WillEvent) (*model.WillEvent, error) {
	if _, err := s.insertWillEvent(ctx, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *SQLiteStore) insertWillEvent(ctx context.Context, w *model.WillEvent) (bool, error) {
	if err := w.Validate(); err != nil {
		return false, err
	}
	s.prepare(&w.ID, &w.Timestamp)
	ok, err := s.exec(ctx,
		`INSERT OR IGNORE INTO will_events (id, user_id, situation, action, rationale, ts)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, nullable(w.Situation), w.Action, nullable(w.Rationale), formatTS(w.Timestamp))
	if err != nil {
		return false, fmt.Errorf("insert will event: %w", err)
	}
	return ok, nil
}

// queryWindow runs a windowed select and scans each row with scan. Rows are
// fetched newest first to apply the limit, then reversed.
func queryWindow[T any](ctx context.Context, db *sql.DB, table, cols string, q RecordQuery, extra []string, extraArgs []interface{}, scan func(scanner) (T, error)) ([]T, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("query %s: user_id is required", table)
	}
	where, args := windowClause(q, extra...)
	args = append(args, extraArgs...)
	args = append(args, limitOf(q.Limit))

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY ts DESC, id DESC LIMIT ?`, cols, table, where)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	slices.Reverse(out)
	return out, nil
}

const memoryCols = `id, user_id, text, ts, tags, people, embedding, metadata`

func scanMemory(row scanner) (model.MemoryEvent, error) {
	var m model.MemoryEvent
	var ts string
	var tags, people, emb, meta sql.NullString
	if err := row.Scan(&m.ID, &m.UserID, &m.Text, &ts, &tags, &people, &emb, &meta); err != nil {
		return m, err
	}
	m.Timestamp = parseTS(ts)
	decodeJSON(tags, &m.Tags)
	decodeJSON(people, &m.People)
	decodeJSON(emb, &m.Embedding)
	decodeJSON(meta, &m.Metadata)
	return m, nil
}

// Memories returns journal entries in the window.
func (s *SQLiteStore) Memories(ctx context.Context, q RecordQuery) ([]model.MemoryEvent, error) {
	return queryWindow(ctx, s.db, "memories", memoryCols, q, nil, nil, scanMemory)
}

const claimCols = `id, user_id, kind, subject, text, polarity, confidence, tags, source_id, embedding, ts`

func scanClaim(row scanner) (model.Claim, error) {
	var c model.Claim
	var ts string
	var tags, source, emb sql.NullString
	if err := row.Scan(&c.ID, &c.UserID, &c.Kind, &c.Subject, &c.Text, &c.Polarity, &c.Confidence,
		&tags, &source, &emb, &ts); err != nil {
		return c, err
	}
	c.Timestamp = parseTS(ts)
	c.SourceID = source.String
	decodeJSON(tags, &c.Tags)
	decodeJSON(emb, &c.Embedding)
	return c, nil
}

// Claims returns claims in the window, optionally filtered by kind.
func (s *SQLiteStore) Claims(ctx context.Context, q RecordQuery) ([]model.Claim, error) {
	var extra []string
	var extraArgs []interface{}
	if q.Kind != "" {
		extra = append(extra, "kind = ?")
		extraArgs = append(extraArgs, q.Kind)
	}
	return queryWindow(ctx, s.db, "claims", claimCols, q, extra, extraArgs, scanClaim)
}

const decisionCols = `id, user_id, description, rationale, outcome, tags, ts`

func scanDecision(row scanner) (model.Decision, error) {
	var d model.Decision
	var ts string
	var rationale, outcome, tags sql.NullString
	if err := row.Scan(&d.ID, &d.UserID, &d.Description, &rationale, &outcome, &tags, &ts); err != nil {
		return d, err
	}
	d.Timestamp = parseTS(ts)
	d.Rationale = rationale.String
	d.Outcome = outcome.String
	decodeJSON(tags, &d.Tags)
	return d, nil
}

// Decisions returns decisions in the window.
func (s *SQLiteStore) Decisions(ctx context.Context, q RecordQuery) ([]model.Decision, error) {
	return queryWindow(ctx, s.db, "decisions", decisionCols, q, nil, nil, scanDecision)
}

const emotionCols = `id, user_id, emotion, polarity, intensity, source_id, ts`

func scanEmotion(row scanner) (model.EmotionEvent, error) {
	var e model.EmotionEvent
	var ts string
	var source sql.NullString
	if err := row.Scan(&e.ID, &e.UserID, &e.Emotion, &e.Polarity, &e.Intensity, &source, &ts); err != nil {
		return e, err
	}
	e.Timestamp = parseTS(ts)
	e.SourceID = source.String
	return e, nil
}

// Emotions returns emotion events in the window.
func (s *SQLiteStore) Emotions(ctx context.Context, q RecordQuery) ([]model.EmotionEvent, error) {
	return queryWindow(ctx, s.db, "emotions", emotionCols, q, nil, nil, scanEmotion)
}

const willCols = `id, user_id, situation, action, rationale, ts`

func scanWillEvent(row scanner) (model.WillEvent, error) {
	var w model.WillEvent
	var ts string
	var situation, rationale sql.NullString
	if err := row.Scan(&w.ID, &w.UserID, &situation, &w.Action, &rationale, &ts); err != nil {
		return w, err
	}
	w.Timestamp = parseTS(ts)
	w.Situation = situation.String
	w.Rationale = rationale.String
	return w, nil
}

// WillEvents returns will events in the window.
func (s *SQLiteStore) WillEvents(ctx context.Context, q RecordQuery) ([]model.WillEvent, error) {
	return queryWindow(ctx, s.db, "will_events", willCols, q, nil, nil, scanWillEvent)
}
