package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/vocab"
)

const (
	themeMinEntries     = 3
	themeDriftThreshold = 0.5
	themeShareDelta     = 0.1
)

// ThematicDrift compares the theme mix of the last week with the rest of the
// month.
type ThematicDrift struct{}

func (d *ThematicDrift) Name() string          { return "thematic_drift" }
func (d *ThematicDrift) Type() model.EventType { return model.EventThematicDrift }

func (d *ThematicDrift) Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error) {
	if in.Week == nil {
		return nil, windowUnavailable("week")
	}
	if in.Month == nil {
		return nil, windowUnavailable("month")
	}

	recent := in.Week.Memories
	baseline := memoriesBetween(in.Month.Memories, in.Month.Start, in.Week.Start)
	if len(recent) < themeMinEntries || len(baseline) < themeMinEntries {
		return nil, nil
	}

	p, q := themeShares(recent), themeShares(baseline)
	if len(p) == 0 || len(q) == 0 {
		return nil, nil
	}

	keys := make(map[string]bool)
	for k := range p {
		keys[k] = true
	}
	for k := range q {
		keys[k] = true
	}
	var distance float64
	var emerging, fading []string
	for k := range keys {
		diff := p[k] - q[k]
		distance += abs(diff)
		switch {
		case diff > themeShareDelta:
			emerging = append(emerging, k)
		case -diff > themeShareDelta:
			fading = append(fading, k)
		}
	}
	distance /= 2
	if distance < themeDriftThreshold {
		return nil, nil
	}

	byShift := func(list []string) {
		sort.Slice(list, func(i, j int) bool {
			di, dj := abs(p[list[i]]-q[list[i]]), abs(p[list[j]]-q[list[j]])
			if di != dj {
				return di > dj
			}
			return list[i] < list[j]
		})
	}
	byShift(emerging)
	byShift(fading)

	desc := fmt.Sprintf("Themes this week diverge from the rest of the month (emerging: %s; fading: %s)",
		listOrNone(emerging), listOrNone(fading))
	ids := make([]string, len(recent))
	for i, m := range recent {
		ids[i] = m.ID
	}
	meta := map[string]any{
		"distance": distance,
		"emerging": emerging,
		"fading":   fading,
	}
	return []model.ContinuityEvent{newEvent(in, d.Type(), desc, distance, ids, meta)}, nil
}

// themeShares is the normalised distribution of vocabulary themes and tags.
func themeShares(ms []model.MemoryEvent) map[string]float64 {
	counts := make(map[string]float64)
	var total float64
	for _, m := range ms {
		seen := make(map[string]bool)
		for _, t := range vocab.Match(m.Text, m.Tags, vocab.Themes) {
			seen[t] = true
		}
		for _, tag := range m.Tags {
			if n := vocab.Normalize(tag); n != "" && n != "goal" {
				seen[n] = true
			}
		}
		for t := range seen {
			counts[t]++
			total++
		}
	}
	for k := range counts {
		counts[k] /= total
	}
	return counts
}

func listOrNone(xs []string) string {
	if len(xs) == 0 {
		return "none"
	}
	return strings.Join(xs, ", ")
}
