package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/continuity/internal/embedding"
	"github.com/rcliao/continuity/internal/model"
)

const (
	identityNoveltyThreshold = 0.6
	identityCosineThreshold  = 0.6
	identityMinEmbedded      = 5
)

// IdentityDrift flags a change in self-descriptions this week against the
// identity claims earlier in the month.
type IdentityDrift struct{}

func (d *IdentityDrift) Name() string          { return "identity_drift" }
func (d *IdentityDrift) Type() model.EventType { return model.EventIdentityDrift }

func (d *IdentityDrift) Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error) {
	if in.Week == nil {
		return nil, windowUnavailable("week")
	}
	if in.Month == nil {
		return nil, windowUnavailable("month")
	}

	recent := identityClaims(in.Week.Claims)
	var prior []model.Claim
	for _, c := range identityClaims(in.Month.Claims) {
		if c.Timestamp.Before(in.Week.Start) {
			prior = append(prior, c)
		}
	}
	if len(recent) < 1 || len(prior) < 2 {
		return nil, nil
	}

	recentTerms := claimTerms(recent)
	priorTerms := claimTerms(prior)
	if len(recentTerms) == 0 {
		return nil, nil
	}
	novel := topNovel(recentTerms, priorTerms, len(recentTerms))
	novelty := float64(len(novel)) / float64(len(recentTerms))

	severity := 0.0
	method := ""
	if novelty >= identityNoveltyThreshold {
		severity = 0.8 * novelty
		method = "descriptors"
	}

	cosine := -1.0
	all := append(append([]model.Claim{}, prior...), recent...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	var vecs []embedding.Vector
	for _, c := range all {
		if len(c.Embedding) > 0 {
			vecs = append(vecs, c.Embedding)
		}
	}
	if len(vecs) >= identityMinEmbedded {
		half := len(vecs) / 2
		cosine = embedding.CosineSimilarity(embedding.Centroid(vecs[:half]), embedding.Centroid(vecs[half:]))
		if cosine < identityCosineThreshold && 1-cosine > severity {
			severity = 1 - cosine
			method = "embedding"
		}
	}
	if method == "" {
		return nil, nil
	}

	if len(novel) > 5 {
		novel = novel[:5]
	}
	desc := "Recent self-descriptions differ from earlier ones"
	if len(novel) > 0 {
		desc += fmt.Sprintf(" (new: %s)", strings.Join(novel, ", "))
	}
	ids := make([]string, len(recent))
	for i, c := range recent {
		ids[i] = c.ID
	}
	meta := map[string]any{
		"method":        method,
		"novelty":       novelty,
		"new_terms":     novel,
		"recent_claims": len(recent),
		"prior_claims":  len(prior),
	}
	if cosine >= 0 {
		meta["cosine"] = cosine
	}
	return []model.ContinuityEvent{newEvent(in, d.Type(), desc, severity, ids, meta)}, nil
}

func identityClaims(cs []model.Claim) []model.Claim {
	var out []model.Claim
	for _, c := range cs {
		if c.Kind == "identity" {
			out = append(out, c)
		}
	}
	return out
}

func claimTerms(cs []model.Claim) map[string]float64 {
	texts := make([]string, len(cs))
	tags := make([][]string, len(cs))
	for i, c := range cs {
		texts[i] = c.Text
		tags[i] = c.Tags
	}
	return termCounts(texts, tags)
}
