package detector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/continuity/internal/embedding"
	"github.com/rcliao/continuity/internal/labeler"
	"github.com/rcliao/continuity/internal/model"
)

const (
	arcMinEntries         = 3
	arcEmbeddingThreshold = 0.6
	arcTermThreshold      = 0.3
	arcPromptMaxChars     = 4000
)

const arcPrompt = `You name the narrative arc of a week of personal journal entries.
Reply with JSON only: {"label": "<at most six words>"}`

// ArcShift flags an abrupt topical shift of the last week against the week
// before it. Window: week, with the prior week taken from the month window.
type ArcShift struct {
	Labeler labeler.Labeler
	Logger  *zap.Logger
}

func (d *ArcShift) Name() string          { return "arc_shift" }
func (d *ArcShift) Type() model.EventType { return model.EventArcShift }

func (d *ArcShift) Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error) {
	if in.Week == nil {
		return nil, windowUnavailable("week")
	}
	if in.Month == nil {
		return nil, windowUnavailable("month")
	}

	recent := in.Week.Memories
	period := in.Week.End.Sub(in.Week.Start)
	previous := memoriesBetween(in.Month.Memories, in.Week.Start.Add(-period), in.Week.Start)
	if len(recent) < arcMinEntries || len(previous) < arcMinEntries {
		return nil, nil
	}

	rt, rtags := memoryTexts(recent)
	pt, ptags := memoryTexts(previous)
	recentTerms := termCounts(rt, rtags)
	previousTerms := termCounts(pt, ptags)

	method := "terms"
	threshold := arcTermThreshold
	similarity := mapCosine(recentTerms, previousTerms)
	if rv, pv := embeddings(recent), embeddings(previous); len(rv) >= arcMinEntries && len(pv) >= arcMinEntries {
		rc, pc := embedding.Centroid(rv), embedding.Centroid(pv)
		if len(rc) > 0 && len(rc) == len(pc) {
			method = "embedding"
			threshold = arcEmbeddingThreshold
			similarity = embedding.CosineSimilarity(rc, pc)
		}
	}
	if similarity >= threshold {
		return nil, nil
	}

	emerging := topNovel(recentTerms, previousTerms, 5)
	desc := "This week's entries move away from the week before"
	if len(emerging) > 0 {
		desc += fmt.Sprintf(" (new focus: %s)", strings.Join(emerging, ", "))
	}
	if label := d.label(ctx, rt); label != "" {
		desc = fmt.Sprintf("Arc shift: %s", label)
	}

	ids := make([]string, len(recent))
	for i, m := range recent {
		ids[i] = m.ID
	}
	meta := map[string]any{
		"similarity":     similarity,
		"method":         method,
		"emerging_terms": emerging,
		"recent_count":   len(recent),
		"previous_count": len(previous),
	}
	return []model.ContinuityEvent{newEvent(in, d.Type(), desc, 1-similarity, ids, meta)}, nil
}

type arcLabel struct {
	Label string `json:"label"`
}

// label names the new arc, or returns "" when no labeler is set or the call
// fails.
func (d *ArcShift) label(ctx context.Context, texts []string) string {
	if d.Labeler == nil {
		return ""
	}
	var b strings.Builder
	for _, t := range texts {
		if b.Len()+len(t) > arcPromptMaxChars {
			break
		}
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	raw, err := d.Labeler.Label(ctx, arcPrompt, b.String(), labeler.Options{Temperature: 0.2, MaxTokens: 32, JSON: true})
	if err == nil {
		var out arcLabel
		if out, err = labeler.ParseJSON[arcLabel](raw); err == nil {
			return strings.TrimSpace(out.Label)
		}
	}
	if d.Logger != nil {
		d.Logger.Debug("arc label failed", zap.Error(err))
	}
	return ""
}

func embeddings(ms []model.MemoryEvent) []embedding.Vector {
	var out []embedding.Vector
	for _, m := range ms {
		if len(m.Embedding) > 0 {
			out = append(out, m.Embedding)
		}
	}
	return out
}

