package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/continuity/internal/embedding"
	"github.com/rcliao/continuity/internal/model"
)

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), opts...)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().Add(-time.Duration(n) * 24 * time.Hour)
}

func TestPutAndQueryMemories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, err := s.PutMemory(ctx, model.MemoryEvent{
		UserID: "u1", Text: "Long walk by the river", Timestamp: daysAgo(2),
		Tags: []string{"walk"}, People: []string{"sam"}, Metadata: map[string]string{"mood": "calm"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if mem.ID == "" {
		t.Error("expected non-empty ID")
	}

	got, err := s.Memories(ctx, RecordQuery{UserID: "u1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(got))
	}
	if got[0].Text != "Long walk by the river" || got[0].People[0] != "sam" || got[0].Metadata["mood"] != "calm" {
		t.Errorf("memory not round-tripped: %+v", got[0])
	}
}

func TestWindowAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, d := range []int{40, 20, 10, 5, 1} {
		if _, err := s.PutEmotion(ctx, model.EmotionEvent{
			UserID: "u1", Emotion: "joy", Polarity: 0.5, Intensity: 0.5, Timestamp: daysAgo(d),
		}); err != nil {
			t.Fatalf("put emotion: %v", err)
		}
	}

	month, _ := s.Emotions(ctx, RecordQuery{UserID: "u1", Since: daysAgo(30)})
	if len(month) != 4 {
		t.Fatalf("expected 4 in 30-day window, got %d", len(month))
	}
	for i := 1; i < len(month); i++ {
		if month[i].Timestamp.Before(month[i-1].Timestamp) {
			t.Error("expected oldest-first ordering")
		}
	}

	// Limit keeps the most recent rows of the window.
	recent, _ := s.Emotions(ctx, RecordQuery{UserID: "u1", Since: daysAgo(30), Limit: 2})
	if len(recent) != 2 {
		t.Fatalf("expected 2, got %d", len(recent))
	}
	if recent[1].Timestamp.Before(daysAgo(2)) {
		t.Errorf("expected newest record last, got %v", recent[1].Timestamp)
	}

	until, _ := s.Emotions(ctx, RecordQuery{UserID: "u1", Until: daysAgo(7)})
	if len(until) != 3 {
		t.Errorf("expected 3 before 7 days ago, got %d", len(until))
	}
}

func TestClaimsKindFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.PutClaim(ctx, model.Claim{UserID: "u1", Kind: "identity", Subject: "self", Text: "I am patient", Timestamp: daysAgo(1)})
	s.PutClaim(ctx, model.Claim{UserID: "u1", Kind: "goal", Subject: "running", Text: "Run a marathon", Timestamp: daysAgo(1)})
	s.PutClaim(ctx, model.Claim{UserID: "u2", Kind: "identity", Subject: "self", Text: "I am loud", Timestamp: daysAgo(1)})

	identity, _ := s.Claims(ctx, RecordQuery{UserID: "u1", Kind: "identity"})
	if len(identity) != 1 || identity[0].Text != "I am patient" {
		t.Errorf("expected only u1 identity claim, got %+v", identity)
	}
	all, _ := s.Claims(ctx, RecordQuery{UserID: "u1"})
	if len(all) != 2 {
		t.Errorf("expected 2 claims for u1, got %d", len(all))
	}
}

func TestPutRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.PutEmotion(ctx, model.EmotionEvent{UserID: "u1", Emotion: "joy", Intensity: 3, Timestamp: time.Now()})
	if !errors.Is(err, model.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
	_, err = s.PutWillEvent(ctx, model.WillEvent{UserID: "u1", Timestamp: time.Now()})
	if !errors.Is(err, model.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestQueryRequiresUser(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Decisions(context.Background(), RecordQuery{}); err == nil {
		t.Error("expected error without user_id")
	}
}

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	f.calls++
	return embedding.Vector{1, 0, 0}, nil
}

func (f *fakeEmbedder) Dims() int { return 3 }

func TestEmbedOnPut(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	s := newTestStore(t, WithEmbedder(emb))

	s.PutMemory(ctx, model.MemoryEvent{UserID: "u1", Text: "new job", Timestamp: daysAgo(1)})
	s.PutMemory(ctx, model.MemoryEvent{UserID: "u1", Text: "given", Timestamp: daysAgo(1), Embedding: []float32{0, 1, 0}})

	got, _ := s.Memories(ctx, RecordQuery{UserID: "u1"})
	if emb.calls != 1 {
		t.Errorf("expected 1 embed call, got %d", emb.calls)
	}
	for _, m := range got {
		if len(m.Embedding) != 3 {
			t.Errorf("expected embedding stored for %q", m.Text)
		}
	}
}

type chunkEmbedder struct{ texts []string }

func (f *chunkEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	f.texts = append(f.texts, text)
	if len(f.texts)%2 == 1 {
		return embedding.Vector{1, 0}, nil
	}
	return embedding.Vector{0, 1}, nil
}

func (f *chunkEmbedder) Dims() int { return 2 }

func TestEmbedLongEntryAveragesChunks(t *testing.T) {
	ctx := context.Background()
	emb := &chunkEmbedder{}
	s := newTestStore(t, WithEmbedder(emb))

	para := strings.Repeat("Long day at the studio again. ", 30)
	m, err := s.PutMemory(ctx, model.MemoryEvent{UserID: "u1", Text: para + "\n\n" + para, Timestamp: daysAgo(1)})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(emb.texts) != 2 {
		t.Fatalf("expected 2 chunk embeds, got %d", len(emb.texts))
	}
	if len(m.Embedding) != 2 || m.Embedding[0] != 0.5 || m.Embedding[1] != 0.5 {
		t.Errorf("expected averaged embedding [0.5 0.5], got %v", m.Embedding)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	src.PutMemory(ctx, model.MemoryEvent{UserID: "u1", Text: "entry", Timestamp: daysAgo(3)})
	src.PutClaim(ctx, model.Claim{UserID: "u1", Kind: "identity", Text: "I value freedom", Timestamp: daysAgo(3)})
	src.PutDecision(ctx, model.Decision{UserID: "u1", Description: "move north", Timestamp: daysAgo(2)})
	src.PutEmotion(ctx, model.EmotionEvent{UserID: "u1", Emotion: "calm", Polarity: 0.4, Intensity: 0.3, Timestamp: daysAgo(2)})
	src.PutWillEvent(ctx, model.WillEvent{UserID: "u1", Action: "declined offer", Timestamp: daysAgo(1)})

	bundle, err := src.ExportUser(ctx, "u1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, bundle)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 imported, got %d", n)
	}

	// Re-importing the same bundle skips existing ids.
	n, _ = dst.Import(ctx, bundle)
	if n != 0 {
		t.Errorf("expected 0 on re-import, got %d", n)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()

	s.PutMemory(ctx, model.MemoryEvent{UserID: "u1", Text: "a", Timestamp: daysAgo(1)})
	s.PutMemory(ctx, model.MemoryEvent{UserID: "u2", Text: "b", Timestamp: daysAgo(1)})

	st, err := s.Stats(ctx, path, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Users != 2 {
		t.Errorf("expected 2 users, got %d", st.Users)
	}
	if st.Tables[0].Table != "memories" || st.Tables[0].Count != 1 {
		t.Errorf("expected 1 memory for u1, got %+v", st.Tables[0])
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}
