// Package detector turns windowed records into candidate continuity events.
//
// Detectors are heuristic. Each one declines to guess below its own minimum
// evidence and returns no events. Calls to the labeling service are optional
// and a failed call only lowers confidence or falls back to a template.
package detector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/continuity/internal/labeler"
	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/vocab"
)

// Window is the set of records observed over one time range.
type Window struct {
	Days       int                  `json:"days"`
	Start      time.Time            `json:"start"`
	End        time.Time            `json:"end"`
	Memories   []model.MemoryEvent  `json:"memories"`
	Claims     []model.Claim        `json:"claims"`
	Decisions  []model.Decision     `json:"decisions"`
	Emotions   []model.EmotionEvent `json:"emotions"`
	WillEvents []model.WillEvent    `json:"will_events"`
}

// Windows holds the independently fetched windows of one run. A nil window
// could not be loaded.
type Windows struct {
	Week    *Window
	Month   *Window
	Quarter *Window
}

// Input is what every detector receives.
type Input struct {
	UserID string
	Now    time.Time
	Windows
}

// Detector produces candidate events from windowed records.
type Detector interface {
	Name() string
	Type() model.EventType
	Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error)
}

// Options carries the shared collaborators of the detectors.
type Options struct {
	Labeler          labeler.Labeler // optional
	Logger           *zap.Logger
	AgencyWindowDays int
}

// All returns every detector in run order.
func All(opts Options) []Detector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("detector")
	return []Detector{
		&Contradiction{Labeler: opts.Labeler, Logger: logger},
		&AbandonedGoal{},
		&ArcShift{Labeler: opts.Labeler, Logger: logger},
		&IdentityDrift{},
		&EmotionalArc{},
		&ThematicDrift{},
		&AgencyDrift{WindowDays: opts.AgencyWindowDays},
	}
}

func windowUnavailable(name string) error {
	return fmt.Errorf("%w: %s window not loaded", model.ErrUpstreamUnavailable, name)
}

func newEvent(in Input, t model.EventType, desc string, severity float64, sources []string, meta map[string]any) model.ContinuityEvent {
	if sources == nil {
		sources = []string{}
	}
	return model.ContinuityEvent{
		UserID:             in.UserID,
		EventType:          t,
		Description:        desc,
		SourceComponentIDs: sources,
		Severity:           clamp01(severity),
		Metadata:           meta,
		CreatedAt:          in.Now,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// termCounts counts significant keywords and tags across texts.
func termCounts(texts []string, tags [][]string) map[string]float64 {
	counts := make(map[string]float64)
	for _, t := range texts {
		for _, kw := range vocab.Keywords(t) {
			counts[kw]++
		}
	}
	for _, ts := range tags {
		for _, tag := range ts {
			if n := vocab.Normalize(tag); n != "" {
				counts[n]++
			}
		}
	}
	return counts
}

func mapCosine(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for k, x := range a {
		na += x * x
		if y, ok := b[k]; ok {
			dot += x * y
		}
	}
	for _, y := range b {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// topNovel returns up to n keys of a that are absent from b, by count then
// name.
func topNovel(a, b map[string]float64, n int) []string {
	var keys []string
	for k := range a {
		if _, ok := b[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if a[keys[i]] != a[keys[j]] {
			return a[keys[i]] > a[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func memoriesBetween(ms []model.MemoryEvent, from, to time.Time) []model.MemoryEvent {
	var out []model.MemoryEvent
	for _, m := range ms {
		if !m.Timestamp.Before(from) && m.Timestamp.Before(to) {
			out = append(out, m)
		}
	}
	return out
}

func memoryTexts(ms []model.MemoryEvent) ([]string, [][]string) {
	texts := make([]string, len(ms))
	tags := make([][]string, len(ms))
	for i, m := range ms {
		texts[i] = m.Text
		tags[i] = m.Tags
	}
	return texts, tags
}

func abs(x float64) float64 { return math.Abs(x) }
