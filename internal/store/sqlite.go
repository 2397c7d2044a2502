package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rcliao/continuity/internal/embedding"
)

// tsLayout is fixed width for UTC so text comparison orders timestamps.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}

// SQLiteStore implements RecordStore, EventStore, InsightStore and
// ProfileStore using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	mu       sync.Mutex
	entropy  *rand.Rand
	embedder embedding.Embedder
	logger   *zap.Logger
	cacheMu  sync.Mutex
	latest   *lru.Cache[string, cachedProfile]
}

// cachedProfile is an encoded profile and its version.
type cachedProfile struct {
	version int
	payload []byte
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithEmbedder embeds memory and claim text on insert when no embedding is
// supplied.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *SQLiteStore) { s.embedder = e }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l.Named("store")
		}
	}
}

const defaultProfileCacheSize = 256

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	cache, err := lru.New[string, cachedProfile](defaultProfileCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("profile cache: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  zap.NewNop(),
		latest:  cache,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		text        TEXT NOT NULL,
		ts          TEXT NOT NULL,
		tags        TEXT,
		people      TEXT,
		embedding   TEXT,
		metadata    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user_ts ON memories(user_id, ts DESC);

	CREATE TABLE IF NOT EXISTS claims (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		subject     TEXT NOT NULL DEFAULT '',
		text        TEXT NOT NULL,
		polarity    REAL NOT NULL DEFAULT 0,
		confidence  REAL NOT NULL DEFAULT 0,
		tags        TEXT,
		source_id   TEXT,
		embedding   TEXT,
		ts          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_claims_user_ts ON claims(user_id, ts DESC);
	CREATE INDEX IF NOT EXISTS idx_claims_user_kind ON claims(user_id, kind);

	CREATE TABLE IF NOT EXISTS decisions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		description TEXT NOT NULL,
		rationale   TEXT,
		outcome     TEXT,
		tags        TEXT,
		ts          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_user_ts ON decisions(user_id, ts DESC);

	CREATE TABLE IF NOT EXISTS emotions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		emotion     TEXT NOT NULL,
		polarity    REAL NOT NULL,
		intensity   REAL NOT NULL,
		source_id   TEXT,
		ts          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_emotions_user_ts ON emotions(user_id, ts DESC);

	CREATE TABLE IF NOT EXISTS will_events (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		situation   TEXT,
		action      TEXT NOT NULL,
		rationale   TEXT,
		ts          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_will_user_ts ON will_events(user_id, ts DESC);

	CREATE TABLE IF NOT EXISTS continuity_events (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		event_type  TEXT NOT NULL,
		description TEXT NOT NULL,
		source_ids  TEXT,
		severity    REAL NOT NULL,
		metadata    TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_user_type ON continuity_events(user_id, event_type, created_at DESC);

	CREATE TABLE IF NOT EXISTS insights (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		insight_type TEXT NOT NULL,
		text         TEXT NOT NULL,
		confidence   REAL NOT NULL,
		source_ids   TEXT,
		tags         TEXT,
		metadata     TEXT,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_insights_user_type ON insights(user_id, insight_type, created_at DESC);

	CREATE TABLE IF NOT EXISTS continuity_profiles (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		version     INTEGER NOT NULL,
		profile     TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		UNIQUE (user_id, version)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// encodeJSON returns nil for empty values so the column stays NULL.
func encodeJSON(v any) *string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		if len(x) == 0 {
			return nil
		}
	case []float32:
		if len(x) == 0 {
			return nil
		}
	case map[string]string:
		if len(x) == 0 {
			return nil
		}
	case map[string]any:
		if len(x) == 0 {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	str := string(b)
	return &str
}

func decodeJSON(ns sql.NullString, dst any) {
	if ns.Valid && ns.String != "" {
		json.Unmarshal([]byte(ns.String), dst)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// windowClause builds the WHERE clause and args for a record query.
func windowClause(q RecordQuery, extra ...string) (string, []interface{}) {
	where := []string{"user_id = ?"}
	args := []interface{}{q.UserID}
	if !q.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, formatTS(q.Since))
	}
	if !q.Until.IsZero() {
		where = append(where, "ts < ?")
		args = append(args, formatTS(q.Until))
	}
	where = append(where, extra...)
	return strings.Join(where, " AND "), args
}

func limitOf(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
