package continuity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/store"
	"github.com/rcliao/continuity/internal/worker"
)

const (
	insightConfidence = 0.7
	maxExamples       = 3
)

// Insight types.
const (
	InsightPattern       = "pattern"
	InsightTrend         = "trend"
	InsightIdentityShift = "identity_shift"
	InsightEmotional     = "emotional"
)

var insightTypes = map[model.EventType]string{
	model.EventContradiction:       InsightPattern,
	model.EventAbandonedGoal:       InsightPattern,
	model.EventArcShift:            InsightTrend,
	model.EventIdentityDrift:       InsightIdentityShift,
	model.EventEmotionalTransition: InsightEmotional,
	model.EventThematicDrift:       InsightTrend,
}

// InsightType maps an event type to the insight type it produces.
func InsightType(t model.EventType) string {
	if it, ok := insightTypes[t]; ok {
		return it
	}
	return InsightPattern
}

// Synthesizer turns one run's events into one insight per event type.
type Synthesizer struct {
	insights store.InsightStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewSynthesizer creates a synthesizer that stores into insights.
func NewSynthesizer(insights store.InsightStore, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{insights: insights, logger: logger.Named("insights"), now: time.Now}
}

// Build groups events by type and returns one unsaved insight per non-empty
// group, in event type order.
func (s *Synthesizer) Build(userID, runID string, events []model.ContinuityEvent) []model.Insight {
	groups := make(map[model.EventType][]model.ContinuityEvent)
	for _, e := range events {
		groups[e.EventType] = append(groups[e.EventType], e)
	}

	order := make([]model.EventType, 0, len(groups))
	for _, t := range model.EventTypes {
		if len(groups[t]) > 0 {
			order = append(order, t)
		}
	}
	var extra []model.EventType
	for t := range groups {
		if !model.ValidEventType(t) {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order = append(order, extra...)

	now := s.now().UTC()
	out := make([]model.Insight, 0, len(order))
	for _, t := range order {
		group := groups[t]
		ids := make([]string, 0, len(group))
		var examples []string
		seen := make(map[string]bool)
		maxSeverity := 0.0
		for _, e := range group {
			ids = append(ids, e.ID)
			if e.Severity > maxSeverity {
				maxSeverity = e.Severity
			}
			if len(examples) < maxExamples && e.Description != "" && !seen[e.Description] {
				seen[e.Description] = true
				examples = append(examples, e.Description)
			}
		}
		out = append(out, model.Insight{
			UserID:             userID,
			InsightType:        InsightType(t),
			Text:               insightText(t, len(group), examples),
			Confidence:         insightConfidence,
			SourceComponentIDs: ids,
			Tags:               []string{string(t)},
			Metadata: map[string]any{
				"run_id":       runID,
				"event_type":   string(t),
				"event_count":  len(group),
				"max_severity": maxSeverity,
			},
			CreatedAt: now,
		})
	}
	return out
}

func insightText(t model.EventType, n int, examples []string) string {
	name := strings.ReplaceAll(string(t), "_", " ")
	times := "times"
	if n == 1 {
		times = "time"
	}
	text := fmt.Sprintf("Noticed %s %d %s in recent entries.", name, n, times)
	if len(examples) > 0 {
		text += " For example: " + strings.Join(examples, "; ")
	}
	return text
}

// Synthesize builds and stores the insights for events. A failed insert is
// logged and skipped; the returned error joins every failure.
func (s *Synthesizer) Synthesize(ctx context.Context, userID, runID string, events []model.ContinuityEvent) ([]model.Insight, error) {
	_, stored, err := s.store(ctx, s.Build(userID, runID, events))
	return stored, err
}

// Task returns a queue task storing the insights for events. A retried task
// only stores the insights that failed before.
func (s *Synthesizer) Task(userID, runID string, events []model.ContinuityEvent) worker.Task {
	pending := s.Build(userID, runID, events)
	return worker.Task{
		Name: "insights/" + runID,
		Run: func(ctx context.Context) error {
			var err error
			pending, _, err = s.store(ctx, pending)
			return err
		},
	}
}

// List returns stored insights newest first.
func (s *Synthesizer) List(ctx context.Context, userID, insightType string, limit int) ([]model.Insight, error) {
	return s.insights.ListInsights(ctx, store.InsightQuery{UserID: userID, Type: insightType, Limit: limit})
}

func (s *Synthesizer) store(ctx context.Context, pending []model.Insight) (failed, stored []model.Insight, err error) {
	var errs []error
	for _, in := range pending {
		saved, err := s.insights.InsertInsight(ctx, in)
		if err != nil {
			s.logger.Warn("insight insert failed",
				zap.String("user_id", in.UserID),
				zap.String("insight_type", in.InsightType),
				zap.Error(err))
			failed = append(failed, in)
			errs = append(errs, fmt.Errorf("insert %s insight: %w: %w", in.InsightType, model.ErrPersistence, err))
			continue
		}
		stored = append(stored, *saved)
	}
	return failed, stored, errors.Join(errs...)
}
