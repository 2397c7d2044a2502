package profile

import (
	"sort"
	"time"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/vocab"
)

const (
	maxPersistentValues = 20
	minValueContexts    = 2
	minValueEvidence    = 2
	minValueSpan        = 30 * 24 * time.Hour
)

var contextOrder = []string{model.ContextIdentity, model.ContextWill, model.ContextDecision}

// Evidence is one record mentioning a value.
type Evidence struct {
	Context   string
	Timestamp time.Time
}

// Candidate collects the evidence for one value term.
type Candidate struct {
	Value    string
	Evidence []Evidence
}

// Contexts returns the distinct contexts of the evidence in fixed order.
func (c Candidate) Contexts() []string {
	seen := make(map[string]bool)
	for _, e := range c.Evidence {
		seen[e.Context] = true
	}
	var out []string
	for _, ctx := range contextOrder {
		if seen[ctx] {
			out = append(out, ctx)
		}
	}
	return out
}

// Span is the time between the earliest and latest evidence.
func (c Candidate) Span() time.Duration {
	first, last := c.bounds()
	return last.Sub(first)
}

func (c Candidate) bounds() (first, last time.Time) {
	for i, e := range c.Evidence {
		if i == 0 || e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if i == 0 || e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	return first, last
}

// Persistent reports whether the candidate passes the persistence test: at
// least two contexts, at least two pieces of evidence, spread over at least
// 30 days.
func (c Candidate) Persistent() bool {
	if len(c.Contexts()) < minValueContexts || len(c.Evidence) < minValueEvidence {
		return false
	}
	return c.Span() >= minValueSpan
}

// CollectCandidates scans identity claims, will events and decisions for
// value vocabulary.
func CollectCandidates(identity []model.Claim, willEvents []model.WillEvent, decisions []model.Decision) map[string]*Candidate {
	cands := make(map[string]*Candidate)
	add := func(terms []string, context string, ts time.Time) {
		for _, v := range terms {
			c, ok := cands[v]
			if !ok {
				c = &Candidate{Value: v}
				cands[v] = c
			}
			c.Evidence = append(c.Evidence, Evidence{Context: context, Timestamp: ts})
		}
	}
	for _, c := range identity {
		add(vocab.Match(c.Text, c.Tags, vocab.Values), model.ContextIdentity, c.Timestamp)
	}
	for _, w := range willEvents {
		add(vocab.Match(w.Action+" "+w.Rationale, nil, vocab.Values), model.ContextWill, w.Timestamp)
	}
	for _, d := range decisions {
		add(vocab.Match(d.Description+" "+d.Rationale, d.Tags, vocab.Values), model.ContextDecision, d.Timestamp)
	}
	return cands
}

// ExtractValues returns the values passing the persistence test, by
// confidence then evidence, capped at 20.
func ExtractValues(identity []model.Claim, willEvents []model.WillEvent, decisions []model.Decision) []model.PersistentValue {
	out := []model.PersistentValue{}
	for _, c := range CollectCandidates(identity, willEvents, decisions) {
		if !c.Persistent() {
			continue
		}
		first, last := c.bounds()
		n := len(c.Evidence)
		out = append(out, model.PersistentValue{
			Value:         c.Value,
			EvidenceCount: n,
			FirstSeen:     first,
			LastSeen:      last,
			Contexts:      c.Contexts(),
			Confidence:    min(1, float64(n)/3),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].EvidenceCount != out[j].EvidenceCount {
			return out[i].EvidenceCount > out[j].EvidenceCount
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > maxPersistentValues {
		out = out[:maxPersistentValues]
	}
	return out
}
