package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/vocab"
)

const defaultGoalGrace = 14 * 24 * time.Hour

// AbandonedGoal flags stated goals with no later supporting activity.
// Window: quarter.
type AbandonedGoal struct {
	// Grace is how old a goal must be before silence counts. Zero means 14
	// days.
	Grace time.Duration
}

func (d *AbandonedGoal) Name() string          { return "abandoned_goal" }
func (d *AbandonedGoal) Type() model.EventType { return model.EventAbandonedGoal }

type goal struct {
	id    string
	text  string
	at    time.Time
	terms map[string]bool
}

type activity struct {
	id    string
	at    time.Time
	terms []string
}

func (d *AbandonedGoal) Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error) {
	w := in.Quarter
	if w == nil {
		return nil, windowUnavailable("quarter")
	}
	grace := d.Grace
	if grace <= 0 {
		grace = defaultGoalGrace
	}

	var goals []goal
	for _, c := range w.Claims {
		if c.Kind == "goal" {
			goals = append(goals, newGoal(c.ID, c.Text, c.Tags, c.Timestamp))
		}
	}
	for _, m := range w.Memories {
		if hasTag(m.Tags, "goal") {
			goals = append(goals, newGoal(m.ID, m.Text, m.Tags, m.Timestamp))
		}
	}
	if len(goals) == 0 {
		return nil, nil
	}

	var acts []activity
	for _, m := range w.Memories {
		acts = append(acts, activity{m.ID, m.Timestamp, terms(m.Text, m.Tags)})
	}
	for _, dc := range w.Decisions {
		acts = append(acts, activity{dc.ID, dc.Timestamp, terms(dc.Description+" "+dc.Rationale, dc.Tags)})
	}
	for _, we := range w.WillEvents {
		acts = append(acts, activity{we.ID, we.Timestamp, terms(we.Situation+" "+we.Action+" "+we.Rationale, nil)})
	}

	var events []model.ContinuityEvent
	for _, g := range goals {
		if len(g.terms) == 0 || in.Now.Sub(g.at) < grace {
			continue
		}
		if supported(g, acts) {
			continue
		}
		age := daysBetween(g.at, in.Now)
		desc := fmt.Sprintf("Goal %q has had no follow-up in %d days", g.text, age)
		meta := map[string]any{
			"stated_at":  g.at,
			"days_since": age,
		}
		events = append(events, newEvent(in, d.Type(), desc, 0.4+0.6*float64(age)/90, []string{g.id}, meta))
	}
	return events, nil
}

func newGoal(id, text string, tags []string, at time.Time) goal {
	g := goal{id: id, text: text, at: at, terms: make(map[string]bool)}
	for _, t := range terms(text, tags) {
		if t != "goal" {
			g.terms[t] = true
		}
	}
	return g
}

func supported(g goal, acts []activity) bool {
	for _, a := range acts {
		if a.id == g.id || !a.at.After(g.at) {
			continue
		}
		for _, t := range a.terms {
			if g.terms[t] {
				return true
			}
		}
	}
	return false
}

func terms(text string, tags []string) []string {
	out := vocab.Keywords(text)
	for _, t := range tags {
		if n := vocab.Normalize(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if vocab.Normalize(t) == want {
			return true
		}
	}
	return false
}
