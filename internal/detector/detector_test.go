package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/continuity/internal/labeler"
	"github.com/rcliao/continuity/internal/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ago(days int) time.Time { return now.AddDate(0, 0, -days) }

func newWindow(days int) *Window {
	return &Window{Days: days, Start: ago(days), End: now}
}

func newInput() Input {
	return Input{
		UserID: "u1",
		Now:    now,
		Windows: Windows{
			Week:    newWindow(7),
			Month:   newWindow(30),
			Quarter: newWindow(90),
		},
	}
}

func memory(id, text string, daysAgo int, tags ...string) model.MemoryEvent {
	return model.MemoryEvent{ID: id, UserID: "u1", Text: text, Timestamp: ago(daysAgo), Tags: tags}
}

// addMemories puts each memory into every window that covers it.
func addMemories(in Input, ms ...model.MemoryEvent) {
	for _, w := range []*Window{in.Week, in.Month, in.Quarter} {
		for _, m := range ms {
			if !m.Timestamp.Before(w.Start) {
				w.Memories = append(w.Memories, m)
			}
		}
	}
}

func addClaims(in Input, cs ...model.Claim) {
	for _, w := range []*Window{in.Week, in.Month, in.Quarter} {
		for _, c := range cs {
			if !c.Timestamp.Before(w.Start) {
				w.Claims = append(w.Claims, c)
			}
		}
	}
}

func TestAll(t *testing.T) {
	ds := All(Options{})
	require.Len(t, ds, 7)
	seen := make(map[model.EventType]bool)
	for _, d := range ds {
		assert.NotEmpty(t, d.Name())
		assert.False(t, seen[d.Type()], "duplicate type %s", d.Type())
		seen[d.Type()] = true
	}
	for _, et := range model.EventTypes {
		assert.True(t, seen[et], "no detector for %s", et)
	}
}

func TestMissingWindowIsAnError(t *testing.T) {
	in := Input{UserID: "u1", Now: now}
	for _, d := range All(Options{}) {
		_, err := d.Detect(context.Background(), in)
		assert.ErrorIs(t, err, model.ErrUpstreamUnavailable, d.Name())
	}
}

func TestContradiction_Polarity(t *testing.T) {
	in := newInput()
	addClaims(in,
		model.Claim{ID: "c1", Kind: "belief", Subject: "Running", Text: "I love running", Polarity: 0.8, Timestamp: ago(20)},
		model.Claim{ID: "c2", Kind: "belief", Subject: "running", Text: "Running is miserable", Polarity: -0.6, Timestamp: ago(3)},
		model.Claim{ID: "c3", Kind: "belief", Subject: "cooking", Text: "Cooking relaxes me", Polarity: 0.5, Timestamp: ago(3)},
	)

	events, err := (&Contradiction{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, model.EventContradiction, ev.EventType)
	assert.Equal(t, "u1", ev.UserID)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ev.SourceComponentIDs)
	assert.InDelta(t, 0.7, ev.Severity, 1e-9)
	assert.Equal(t, "running", ev.Metadata["subject"])
}

func TestContradiction_Negation(t *testing.T) {
	in := newInput()
	addClaims(in,
		model.Claim{ID: "c1", Kind: "belief", Subject: "job", Text: "I love my job", Timestamp: ago(20)},
		model.Claim{ID: "c2", Kind: "belief", Subject: "job", Text: "I don't love my job", Timestamp: ago(2)},
	)

	events, err := (&Contradiction{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.InDelta(t, 0.5, events[0].Severity, 1e-9)
}

func TestContradiction_NeedsTwoClaims(t *testing.T) {
	in := newInput()
	addClaims(in, model.Claim{ID: "c1", Kind: "belief", Subject: "job", Text: "I love my job", Polarity: 0.9, Timestamp: ago(2)})

	events, err := (&Contradiction{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestContradiction_LabelerFailureLowersSeverity(t *testing.T) {
	in := newInput()
	addClaims(in,
		model.Claim{ID: "c1", Kind: "belief", Subject: "running", Text: "I love running", Polarity: 0.8, Timestamp: ago(20)},
		model.Claim{ID: "c2", Kind: "belief", Subject: "running", Text: "Running is miserable", Polarity: -0.6, Timestamp: ago(3)},
	)
	failing := labeler.Func(func(ctx context.Context, system, user string, opts labeler.Options) (string, error) {
		return "", errors.New("service down")
	})

	events, err := (&Contradiction{Labeler: failing}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.InDelta(t, 0.56, events[0].Severity, 1e-9)
	assert.Equal(t, "unavailable", events[0].Metadata["labeler"])
}

func TestContradiction_LabelerRejects(t *testing.T) {
	in := newInput()
	addClaims(in,
		model.Claim{ID: "c1", Kind: "belief", Subject: "running", Text: "I love running", Polarity: 0.8, Timestamp: ago(20)},
		model.Claim{ID: "c2", Kind: "belief", Subject: "running", Text: "Running is miserable", Polarity: -0.6, Timestamp: ago(3)},
	)
	rejecting := labeler.Func(func(ctx context.Context, system, user string, opts labeler.Options) (string, error) {
		return "```json\n{\"contradiction\": false, \"confidence\": 0.9}\n```", nil
	})

	events, err := (&Contradiction{Labeler: rejecting}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAbandonedGoal(t *testing.T) {
	in := newInput()
	in.Quarter.Claims = []model.Claim{
		{ID: "g1", Kind: "goal", Text: "Run a marathon", Timestamp: ago(30)},
		{ID: "g2", Kind: "goal", Text: "Learn the guitar", Timestamp: ago(40)},
		{ID: "g3", Kind: "goal", Text: "Write a novel", Timestamp: ago(5)},
	}
	addMemories(in,
		memory("m0", "Thinking about a marathon someday", 50),
		memory("m1", "Practiced guitar chords for an hour", 10),
	)

	events, err := (&AbandonedGoal{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, []string{"g1"}, ev.SourceComponentIDs)
	assert.InDelta(t, 0.6, ev.Severity, 1e-9)
	assert.Equal(t, 30, ev.Metadata["days_since"])
}

func TestAbandonedGoal_TaggedMemory(t *testing.T) {
	in := newInput()
	addMemories(in,
		memory("m1", "I want to start meditating every morning", 60, "goal"),
		memory("m2", "Ten minutes of meditating before work", 20),
		memory("m3", "Decided to finally repaint the kitchen", 45, "goal"),
	)

	events, err := (&AbandonedGoal{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"m3"}, events[0].SourceComponentIDs)
}

func TestArcShift_Terms(t *testing.T) {
	in := newInput()
	addMemories(in,
		memory("p1", "Spreadsheet budget review for quarterly planning", 8),
		memory("p2", "Quarterly budget meeting ran long", 9),
		memory("p3", "Fixed the spreadsheet formulas", 10),
		memory("r1", "Guitar practice, learned three chords", 1),
		memory("r2", "Played guitar at the open mic", 2),
		memory("r3", "Chords are getting easier with practice", 3),
	)

	events, err := (&ArcShift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, model.EventArcShift, ev.EventType)
	assert.InDelta(t, 1.0, ev.Severity, 1e-9)
	assert.Equal(t, "terms", ev.Metadata["method"])
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, ev.SourceComponentIDs)
	assert.Contains(t, ev.Description, "guitar")
}

func TestArcShift_SimilarWeeks(t *testing.T) {
	in := newInput()
	addMemories(in,
		memory("p1", "Guitar practice after dinner", 8),
		memory("p2", "Guitar chords before bed", 9),
		memory("p3", "Practice guitar scales", 10),
		memory("r1", "Guitar practice, new chords", 1),
		memory("r2", "Guitar scales again", 2),
		memory("r3", "Practice makes guitar easier", 3),
	)

	events, err := (&ArcShift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestArcShift_EmbeddingsAndLabel(t *testing.T) {
	in := newInput()
	var ms []model.MemoryEvent
	for i, id := range []string{"p1", "p2", "p3"} {
		m := memory(id, "same words", 8+i)
		m.Embedding = []float32{0, 1}
		ms = append(ms, m)
	}
	for i, id := range []string{"r1", "r2", "r3"} {
		m := memory(id, "same words", 1+i)
		m.Embedding = []float32{1, 0}
		ms = append(ms, m)
	}
	addMemories(in, ms...)
	lab := labeler.Func(func(ctx context.Context, system, user string, opts labeler.Options) (string, error) {
		return `{"label": "Learning music"}`, nil
	})

	events, err := (&ArcShift{Labeler: lab}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "embedding", events[0].Metadata["method"])
	assert.Equal(t, "Arc shift: Learning music", events[0].Description)
}

func TestArcShift_TooFewEntries(t *testing.T) {
	in := newInput()
	addMemories(in,
		memory("p1", "Budget review", 8),
		memory("r1", "Guitar practice", 1),
		memory("r2", "Guitar chords", 2),
		memory("r3", "Guitar scales", 3),
	)
	events, err := (&ArcShift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func identity(id, text string, daysAgo int) model.Claim {
	return model.Claim{ID: id, Kind: "identity", Text: text, Timestamp: ago(daysAgo)}
}

func TestIdentityDrift(t *testing.T) {
	in := newInput()
	addClaims(in,
		identity("c1", "I am patient and calm", 20),
		identity("c2", "I am a patient person", 15),
		identity("c3", "I am ambitious and restless", 2),
	)

	events, err := (&IdentityDrift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.InDelta(t, 0.8, ev.Severity, 1e-9)
	assert.Equal(t, []string{"c3"}, ev.SourceComponentIDs)
	assert.Equal(t, "descriptors", ev.Metadata["method"])
}

func TestIdentityDrift_Stable(t *testing.T) {
	in := newInput()
	addClaims(in,
		identity("c1", "I am patient and calm", 20),
		identity("c2", "I am a patient person", 15),
		identity("c3", "I am patient", 2),
	)

	events, err := (&IdentityDrift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestIdentityDrift_NeedsHistory(t *testing.T) {
	in := newInput()
	addClaims(in,
		identity("c1", "I am patient and calm", 20),
		identity("c3", "I am ambitious and restless", 2),
	)

	events, err := (&IdentityDrift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func emotions(polarities ...float64) []model.EmotionEvent {
	out := make([]model.EmotionEvent, len(polarities))
	for i, p := range polarities {
		out[i] = model.EmotionEvent{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			Emotion:   "mood",
			Polarity:  p,
			Intensity: 0.5,
			Timestamp: ago(len(polarities) - i),
		}
	}
	return out
}

func TestEmotionalArc_Transition(t *testing.T) {
	in := newInput()
	in.Month.Emotions = emotions(0.6, 0.5, -0.5, -0.6)

	events, err := (&EmotionalArc{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "transition", events[0].Metadata["kind"])
	assert.InDelta(t, 0.55, events[0].Severity, 1e-9)
	assert.Contains(t, events[0].Description, "from positive to negative")
	assert.Equal(t, "spiral", events[1].Metadata["kind"])
	assert.InDelta(t, 0.6, events[1].Severity, 1e-9)
}

func TestEmotionalArc_SpiralOnly(t *testing.T) {
	in := newInput()
	in.Month.Emotions = emotions(0.2, 0.9, 0.4, -0.3)

	events, err := (&EmotionalArc{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "spiral", events[0].Metadata["kind"])
	assert.Equal(t, []string{"b", "c", "d"}, events[0].SourceComponentIDs)
}

func TestEmotionalArc_Steady(t *testing.T) {
	in := newInput()
	in.Month.Emotions = emotions(0.4, 0.5, 0.4, 0.5, 0.6)

	events, err := (&EmotionalArc{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEmotionalArc_TooFew(t *testing.T) {
	in := newInput()
	in.Month.Emotions = emotions(0.9, -0.9, -0.95)

	events, err := (&EmotionalArc{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestThematicDrift(t *testing.T) {
	in := newInput()
	addMemories(in,
		memory("b1", "Another deadline at work", 12),
		memory("b2", "My boss moved the project deadline", 15),
		memory("b3", "Long day at work", 20),
		memory("r1", "Called my family", 1),
		memory("r2", "Dinner with my partner and family", 2),
		memory("r3", "My partner and I talked about the relationship", 4),
	)

	events, err := (&ThematicDrift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.InDelta(t, 1.0, ev.Severity, 1e-9)
	assert.Contains(t, ev.Metadata["emerging"], "family")
	assert.Contains(t, ev.Metadata["fading"], "work")
}

func TestThematicDrift_SameMix(t *testing.T) {
	in := newInput()
	addMemories(in,
		memory("b1", "Deadline at work", 12),
		memory("b2", "Family dinner", 15),
		memory("b3", "Work again", 20),
		memory("r1", "Work work work", 1),
		memory("r2", "Family call", 2),
		memory("r3", "Deadline moved", 4),
	)

	events, err := (&ThematicDrift{}).Detect(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAgencyDrift(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		want     bool
		severity float64
	}{
		{"none", 0, true, 0.8},
		{"one", 1, true, 0.8},
		{"two", 2, true, 0.6},
		{"three", 3, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInput()
			for i := 0; i < tt.count; i++ {
				in.Month.WillEvents = append(in.Month.WillEvents, model.WillEvent{
					ID: string(rune('a' + i)), UserID: "u1", Action: "said no", Timestamp: ago(i + 1),
				})
			}
			events, err := (&AgencyDrift{WindowDays: 30}).Detect(context.Background(), in)
			require.NoError(t, err)
			if !tt.want {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, model.EventAgencyDrift, events[0].EventType)
			assert.InDelta(t, tt.severity, events[0].Severity, 1e-9)
			assert.Len(t, events[0].SourceComponentIDs, tt.count)
		})
	}
}

func TestAgencyDrift_WindowLimitedToMonth(t *testing.T) {
	in := newInput()
	in.Month.WillEvents = []model.WillEvent{
		{ID: "a", UserID: "u1", Action: "said no", Timestamp: ago(3)},
		{ID: "b", UserID: "u1", Action: "took the call", Timestamp: ago(10)},
	}

	events, err := (&AgencyDrift{WindowDays: 60}).Detect(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.InDelta(t, 0.6, events[0].Severity, 1e-9)
	assert.Equal(t, 30, events[0].Metadata["window_days"])
}
