package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/continuity/internal/model"
)

func TestLatestProfileEmpty(t *testing.T) {
	s := newTestStore(t)
	p, err := s.LatestProfile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil profile, got %+v", p)
	}
}

func TestProfileVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const n = 4
	for i := 1; i <= n; i++ {
		saved, err := s.SaveProfile(ctx, "u1", &model.ContinuityProfile{
			IdentityStabilityScore: float64(i) / 10,
			ComputedAt:             time.Now(),
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if saved.Version != i {
			t.Errorf("expected version %d, got %d", i, saved.Version)
		}
	}
	// Another user's versions start over.
	other, _ := s.SaveProfile(ctx, "u2", &model.ContinuityProfile{ComputedAt: time.Now()})
	if other.Version != 1 {
		t.Errorf("expected version 1 for u2, got %d", other.Version)
	}

	hist, err := s.ProfileHistory(ctx, "u1", n)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != n {
		t.Fatalf("expected %d profiles, got %d", n, len(hist))
	}
	for i, p := range hist {
		if want := n - i; p.Version != want {
			t.Errorf("history[%d]: expected version %d, got %d", i, want, p.Version)
		}
	}

	latest, _ := s.LatestProfile(ctx, "u1")
	if latest.Version != n || latest.UserID != "u1" {
		t.Errorf("expected latest version %d for u1, got %+v", n, latest)
	}
}

func TestLatestProfileReadsAreIdentical(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	last := time.Now().Add(-48 * time.Hour)
	s.SaveProfile(ctx, "u1", &model.ContinuityProfile{
		PersistentValues: []model.PersistentValue{{Value: "freedom", EvidenceCount: 3, Contexts: []string{"identity", "will"}, Confidence: 1}},
		AgencyTrend:      model.TrendStable,
		LastWillEvent:    &last,
		ComputedAt:       time.Now(),
	})

	first, _ := s.LatestProfile(ctx, "u1")
	second, _ := s.LatestProfile(ctx, "u1")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("latest profile changed between reads (-first +second):\n%s", diff)
	}

	// A cold read from the database matches the cached one.
	s.latest.Purge()
	cold, _ := s.LatestProfile(ctx, "u1")
	if diff := cmp.Diff(first, cold); diff != "" {
		t.Errorf("cold read differs (-cached +cold):\n%s", diff)
	}
}

func TestLatestProfileCacheKeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var saved []*model.ContinuityProfile
	for i := 0; i < 2; i++ {
		p, err := s.SaveProfile(ctx, "u1", &model.ContinuityProfile{AgencyTrend: model.TrendStable, ComputedAt: time.Now()})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		saved = append(saved, p)
	}

	// A slower writer or reader finishing late must not replace version 2.
	older, err := json.Marshal(saved[0])
	if err != nil {
		t.Fatal(err)
	}
	s.cacheLatest("u1", saved[0].Version, older)

	latest, err := s.LatestProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Version != 2 {
		t.Errorf("expected cached version 2, got %d", latest.Version)
	}
}
