package continuity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rcliao/continuity/internal/detector"
	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/store"
)

type fakeRecords struct {
	mu      sync.Mutex
	queries []store.RecordQuery
	fail    func(q store.RecordQuery) error
}

func (f *fakeRecords) check(q store.RecordQuery) error {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.fail != nil {
		return f.fail(q)
	}
	return nil
}

func (f *fakeRecords) Memories(ctx context.Context, q store.RecordQuery) ([]model.MemoryEvent, error) {
	return nil, f.check(q)
}

func (f *fakeRecords) Claims(ctx context.Context, q store.RecordQuery) ([]model.Claim, error) {
	return nil, f.check(q)
}

func (f *fakeRecords) Decisions(ctx context.Context, q store.RecordQuery) ([]model.Decision, error) {
	return nil, f.check(q)
}

func (f *fakeRecords) Emotions(ctx context.Context, q store.RecordQuery) ([]model.EmotionEvent, error) {
	return nil, f.check(q)
}

func (f *fakeRecords) WillEvents(ctx context.Context, q store.RecordQuery) ([]model.WillEvent, error) {
	return nil, f.check(q)
}

type fakeEvents struct {
	mu     sync.Mutex
	seq    int
	stored []model.ContinuityEvent
	failOn model.EventType
}

func (f *fakeEvents) InsertEvents(ctx context.Context, events []model.ContinuityEvent) ([]model.ContinuityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ContinuityEvent, 0, len(events))
	for _, e := range events {
		if e.EventType == f.failOn {
			return nil, errors.New("disk full")
		}
		f.seq++
		e.ID = fmt.Sprintf("ev%d", f.seq)
		out = append(out, e)
	}
	f.stored = append(f.stored, out...)
	return out, nil
}

func (f *fakeEvents) ListEvents(ctx context.Context, q store.EventQuery) ([]model.ContinuityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ContinuityEvent
	for i := len(f.stored) - 1; i >= 0; i-- {
		e := f.stored[i]
		if e.UserID == q.UserID && (q.Type == "" || e.EventType == q.Type) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeInsights struct {
	mu       sync.Mutex
	seq      int
	stored   []model.Insight
	failures map[string]int // insight type -> remaining failures
}

func (f *fakeInsights) InsertInsight(ctx context.Context, in model.Insight) (*model.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[in.InsightType] > 0 {
		f.failures[in.InsightType]--
		return nil, errors.New("locked")
	}
	f.seq++
	in.ID = fmt.Sprintf("in%d", f.seq)
	f.stored = append(f.stored, in)
	return &in, nil
}

func (f *fakeInsights) ListInsights(ctx context.Context, q store.InsightQuery) ([]model.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Insight
	for _, in := range f.stored {
		if in.UserID == q.UserID && (q.Type == "" || in.InsightType == q.Type) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeInsights) all() []model.Insight {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Insight(nil), f.stored...)
}

// stubDetector emits n events of its type, or fails.
type stubDetector struct {
	typ   model.EventType
	n     int
	err   error
	panic bool
	seen  *detector.Input
}

func (d *stubDetector) Name() string          { return string(d.typ) }
func (d *stubDetector) Type() model.EventType { return d.typ }

func (d *stubDetector) Detect(ctx context.Context, in detector.Input) ([]model.ContinuityEvent, error) {
	d.seen = &in
	if d.panic {
		panic("boom")
	}
	if d.err != nil {
		return nil, d.err
	}
	var out []model.ContinuityEvent
	for i := 0; i < d.n; i++ {
		out = append(out, model.ContinuityEvent{
			UserID:      in.UserID,
			EventType:   d.typ,
			Description: fmt.Sprintf("%s #%d", d.typ, i),
			Severity:    0.5,
			CreatedAt:   in.Now,
		})
	}
	return out, nil
}
