package profile

import (
	"sort"
	"time"

	"github.com/rcliao/continuity/internal/model"
)

const (
	// A gap of exactly 90 days stays in the same version: the data model
	// says ">= 90" but the aggregator rule says "exceeds 90", and the rule wins.
	identityVersionGap = 90 * 24 * time.Hour
	neutralStability   = 0.5
	stabilityPenalty   = 0.2
)

// IdentityVersions partitions identity claims into versions, starting a new
// one whenever consecutive claims are more than 90 days apart.
func IdentityVersions(claims []model.Claim) []model.IdentityVersion {
	sorted := append([]model.Claim(nil), claims...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	versions := []model.IdentityVersion{}
	var confSum float64
	for i, c := range sorted {
		if i == 0 || c.Timestamp.Sub(sorted[i-1].Timestamp) > identityVersionGap {
			versions = append(versions, model.IdentityVersion{
				Version:   len(versions) + 1,
				Timestamp: c.Timestamp,
				Claims:    []string{},
			})
			confSum = 0
		}
		v := &versions[len(versions)-1]
		v.Claims = append(v.Claims, c.Text)
		confSum += c.Confidence
		v.Confidence = confSum / float64(len(v.Claims))
	}
	return versions
}

// StabilityScore is 1 for a single version and drops 0.2 per extra version.
// No versions yields the neutral 0.5.
func StabilityScore(versionCount int) float64 {
	if versionCount <= 0 {
		return neutralStability
	}
	return max(0, min(1, 1-float64(versionCount-1)*stabilityPenalty))
}
