package detector

import (
	"context"
	"fmt"
	"sort"

	"github.com/rcliao/continuity/internal/model"
)

const (
	arcMinEmotions      = 4
	arcFlipDelta        = 0.4
	spiralLength        = 3
	spiralMinDecline    = 0.3
	spiralSevereDecline = 0.5
)

// EmotionalArc flags sustained polarity changes and declining spirals over
// the month window.
type EmotionalArc struct{}

func (d *EmotionalArc) Name() string          { return "emotional_arc" }
func (d *EmotionalArc) Type() model.EventType { return model.EventEmotionalTransition }

func (d *EmotionalArc) Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error) {
	w := in.Month
	if w == nil {
		return nil, windowUnavailable("month")
	}
	evs := append([]model.EmotionEvent(nil), w.Emotions...)
	if len(evs) < arcMinEmotions {
		return nil, nil
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Timestamp.Before(evs[j].Timestamp) })

	var events []model.ContinuityEvent

	half := len(evs) / 2
	before, after := weightedPolarity(evs[:half]), weightedPolarity(evs[half:])
	delta := after - before
	if before*after < 0 && abs(delta) >= arcFlipDelta {
		desc := fmt.Sprintf("Emotional tone moved from %s to %s over the last %d days",
			tone(before), tone(after), w.Days)
		meta := map[string]any{
			"kind":            "transition",
			"polarity_before": before,
			"polarity_after":  after,
		}
		events = append(events, newEvent(in, d.Type(), desc, abs(delta)/2, emotionIDs(evs), meta))
	}

	last := evs[len(evs)-spiralLength:]
	declining := true
	for i := 1; i < len(last); i++ {
		if last[i].Polarity >= last[i-1].Polarity {
			declining = false
			break
		}
	}
	if declining {
		avg := (last[0].Polarity - last[len(last)-1].Polarity) / float64(len(last))
		if avg > spiralMinDecline {
			severity := 0.6
			if avg > spiralSevereDecline {
				severity = 0.8
			}
			desc := fmt.Sprintf("Mood has declined across the last %d emotion entries", len(last))
			meta := map[string]any{
				"kind":            "spiral",
				"average_decline": avg,
			}
			events = append(events, newEvent(in, d.Type(), desc, severity, emotionIDs(last), meta))
		}
	}
	return events, nil
}

// weightedPolarity is the intensity-weighted mean polarity, or the plain
// mean when every intensity is zero.
func weightedPolarity(evs []model.EmotionEvent) float64 {
	var sum, weight, plain float64
	for _, e := range evs {
		sum += e.Polarity * e.Intensity
		weight += e.Intensity
		plain += e.Polarity
	}
	if weight == 0 {
		return plain / float64(len(evs))
	}
	return sum / weight
}

func tone(p float64) string {
	switch {
	case p > 0:
		return "positive"
	case p < 0:
		return "negative"
	}
	return "neutral"
}

func emotionIDs(evs []model.EmotionEvent) []string {
	ids := make([]string, len(evs))
	for i, e := range evs {
		ids[i] = e.ID
	}
	return ids
}
