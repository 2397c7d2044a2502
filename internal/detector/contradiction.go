package detector

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rcliao/continuity/internal/labeler"
	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/vocab"
)

const contradictionPrompt = `You check whether two statements a person wrote about the same subject contradict each other.
Reply with JSON only: {"contradiction": true|false, "confidence": 0.0-1.0}`

// Contradiction flags claims about the same subject whose polarity or
// content conflict. Window: month.
type Contradiction struct {
	Labeler labeler.Labeler
	Logger  *zap.Logger
}

func (d *Contradiction) Name() string          { return "contradiction" }
func (d *Contradiction) Type() model.EventType { return model.EventContradiction }

type verdict struct {
	Contradiction bool    `json:"contradiction"`
	Confidence    float64 `json:"confidence"`
}

type conflict struct {
	a, b         model.Claim
	delta        float64
	negationOnly bool
}

func (d *Contradiction) Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error) {
	w := in.Month
	if w == nil {
		return nil, windowUnavailable("month")
	}

	groups := make(map[string][]model.Claim)
	for _, c := range w.Claims {
		key := subjectKey(c)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], c)
	}
	subjects := make([]string, 0, len(groups))
	for k, g := range groups {
		if len(g) >= 2 {
			subjects = append(subjects, k)
		}
	}
	sort.Strings(subjects)

	var events []model.ContinuityEvent
	for _, subject := range subjects {
		conflicts := findConflicts(groups[subject])
		if len(conflicts) == 0 {
			continue
		}

		var ids []string
		seen := make(map[string]bool)
		severity := 0.0
		for _, cf := range conflicts {
			s := cf.delta / 2
			if cf.negationOnly {
				s = 0.5
			}
			if s > severity {
				severity = s
			}
			for _, id := range []string{cf.a.ID, cf.b.ID} {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}

		first := conflicts[0]
		meta := map[string]any{
			"subject":   subject,
			"conflicts": len(conflicts),
		}
		if d.Labeler != nil {
			v, err := d.confirm(ctx, subject, first.a, first.b)
			switch {
			case err != nil:
				d.logger().Debug("contradiction label failed", zap.String("subject", subject), zap.Error(err))
				severity *= 0.8
				meta["labeler"] = "unavailable"
			case !v.Contradiction && v.Confidence >= 0.5:
				continue
			default:
				meta["labeler"] = "confirmed"
				meta["labeler_confidence"] = v.Confidence
			}
		}

		desc := fmt.Sprintf("Conflicting statements about %s: %q vs %q", subject, first.a.Text, first.b.Text)
		events = append(events, newEvent(in, d.Type(), desc, severity, ids, meta))
	}
	return events, nil
}

func (d *Contradiction) confirm(ctx context.Context, subject string, a, b model.Claim) (verdict, error) {
	user := fmt.Sprintf("Subject: %s\nStatement A (%s): %s\nStatement B (%s): %s",
		subject, a.Timestamp.Format("2006-01-02"), a.Text, b.Timestamp.Format("2006-01-02"), b.Text)
	raw, err := d.Labeler.Label(ctx, contradictionPrompt, user, labeler.Options{Temperature: 0, MaxTokens: 64, JSON: true})
	if err != nil {
		return verdict{}, err
	}
	return labeler.ParseJSON[verdict](raw)
}

func (d *Contradiction) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// subjectKey groups claims. Identity claims without a subject are about the
// writer.
func subjectKey(c model.Claim) string {
	key := vocab.Normalize(c.Subject)
	if key == "" && c.Kind == "identity" {
		return "self"
	}
	return key
}

func findConflicts(claims []model.Claim) []conflict {
	var out []conflict
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			a, b := claims[i], claims[j]
			delta := abs(a.Polarity - b.Polarity)
			if a.Polarity*b.Polarity < 0 && delta >= 1.0 {
				out = append(out, conflict{a: a, b: b, delta: delta})
				continue
			}
			if vocab.HasNegation(a.Text) != vocab.HasNegation(b.Text) && sharesKeyword(a.Text, b.Text) {
				out = append(out, conflict{a: a, b: b, delta: delta, negationOnly: true})
			}
		}
	}
	return out
}

func sharesKeyword(a, b string) bool {
	kw := make(map[string]bool)
	for _, k := range vocab.Keywords(a) {
		kw[k] = true
	}
	for _, k := range vocab.Keywords(b) {
		if kw[k] {
			return true
		}
	}
	return false
}

