package profile

import (
	"sort"
	"time"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/vocab"
)

const (
	stressIntensity   = 0.7
	stressMergeGap    = 7 * 24 * time.Hour
	stressMemorySlack = 24 * time.Hour
	minThemeFrequency = 2
	maxThemes         = 10
	trendTolerance    = 0.05
)

// StressPeriod is a run of stress emotions with gaps of at most 7 days.
type StressPeriod struct {
	Start     time.Time
	End       time.Time
	Events    []model.EmotionEvent
	Intensity float64 // mean
}

// IsStress reports whether e counts toward a stress period.
func IsStress(e model.EmotionEvent) bool {
	return e.Intensity > stressIntensity && (e.Polarity < 0 || vocab.StressEmotions[vocab.Normalize(e.Emotion)])
}

// StressPeriods groups stress emotions into periods, oldest first.
func StressPeriods(emotions []model.EmotionEvent) []StressPeriod {
	var stress []model.EmotionEvent
	for _, e := range emotions {
		if IsStress(e) {
			stress = append(stress, e)
		}
	}
	sort.SliceStable(stress, func(i, j int) bool { return stress[i].Timestamp.Before(stress[j].Timestamp) })

	var periods []StressPeriod
	for _, e := range stress {
		n := len(periods)
		if n > 0 && e.Timestamp.Sub(periods[n-1].End) <= stressMergeGap {
			periods[n-1].End = e.Timestamp
			periods[n-1].Events = append(periods[n-1].Events, e)
			continue
		}
		periods = append(periods, StressPeriod{Start: e.Timestamp, End: e.Timestamp, Events: []model.EmotionEvent{e}})
	}
	for i := range periods {
		var sum float64
		for _, e := range periods[i].Events {
			sum += e.Intensity
		}
		periods[i].Intensity = sum / float64(len(periods[i].Events))
	}
	return periods
}

type themeStats struct {
	frequency   int
	intensities []float64 // per period the theme appeared in, oldest first
	contexts    map[string]bool
}

// ExtractThemes returns the themes mentioned at least twice in memories
// written during stress periods, by frequency, capped at 10.
func ExtractThemes(emotions []model.EmotionEvent, memories []model.MemoryEvent) []model.RecurringTheme {
	stats := make(map[string]*themeStats)
	for _, p := range StressPeriods(emotions) {
		from, to := p.Start.Add(-stressMemorySlack), p.End.Add(stressMemorySlack)
		inPeriod := make(map[string]bool)
		for _, m := range memories {
			if m.Timestamp.Before(from) || m.Timestamp.After(to) {
				continue
			}
			for _, theme := range vocab.Match(m.Text, m.Tags, vocab.Themes) {
				st, ok := stats[theme]
				if !ok {
					st = &themeStats{contexts: make(map[string]bool)}
					stats[theme] = st
				}
				st.frequency++
				if !inPeriod[theme] {
					inPeriod[theme] = true
					st.intensities = append(st.intensities, p.Intensity)
					for _, e := range p.Events {
						st.contexts[vocab.Normalize(e.Emotion)] = true
					}
				}
			}
		}
	}

	out := []model.RecurringTheme{}
	for theme, st := range stats {
		if st.frequency < minThemeFrequency {
			continue
		}
		contexts := make([]string, 0, len(st.contexts))
		for c := range st.contexts {
			contexts = append(contexts, c)
		}
		sort.Strings(contexts)
		out = append(out, model.RecurringTheme{
			Theme:          theme,
			Frequency:      st.frequency,
			IntensityTrend: intensityTrend(st.intensities),
			Contexts:       contexts,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Theme < out[j].Theme
	})
	if len(out) > maxThemes {
		out = out[:maxThemes]
	}
	return out
}

func intensityTrend(xs []float64) string {
	if len(xs) < 2 {
		return model.TrendStable
	}
	d := xs[len(xs)-1] - xs[0]
	switch {
	case d > trendTolerance:
		return model.TrendIncreasing
	case d < -trendTolerance:
		return model.TrendDecreasing
	}
	return model.TrendStable
}
