// Package will tracks agency: recorded moments of deliberate choice.
package will

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/store"
)

// Metrics summarises will events over a window.
type Metrics struct {
	Density   float64    `json:"density"` // events per day
	Trend     string     `json:"trend"`
	LastEvent *time.Time `json:"last_event,omitempty"`
	Count     int        `json:"count"`
}

// Filter narrows a will-event read.
type Filter struct {
	Since time.Time
	Until time.Time
	Limit int
}

// Subsystem is the agency source consumed by the profile aggregator.
type Subsystem interface {
	AgencyMetrics(ctx context.Context, userID string, windowDays int) (Metrics, error)
	WillEvents(ctx context.Context, userID string, f Filter) ([]model.WillEvent, error)
}

// trendBand is the relative change between window halves treated as stable.
const trendBand = 0.2

// Service implements Subsystem over a record store.
type Service struct {
	records store.RecordStore
	now     func() time.Time
}

// NewService creates a will service reading from records.
func NewService(records store.RecordStore) *Service {
	return &Service{records: records, now: time.Now}
}

// WillEvents returns will events matching f, oldest first.
func (s *Service) WillEvents(ctx context.Context, userID string, f Filter) ([]model.WillEvent, error) {
	events, err := s.records.WillEvents(ctx, store.RecordQuery{
		UserID: userID, Since: f.Since, Until: f.Until, Limit: f.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("will events: %w", err)
	}
	return events, nil
}

// AgencyMetrics computes density, trend and the most recent event over the
// last windowDays days.
func (s *Service) AgencyMetrics(ctx context.Context, userID string, windowDays int) (Metrics, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	now := s.now()
	since := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	events, err := s.WillEvents(ctx, userID, Filter{Since: since})
	if err != nil {
		return Metrics{}, err
	}
	return ComputeMetrics(events, since, now), nil
}

// ComputeMetrics derives Metrics from events inside [since, now).
func ComputeMetrics(events []model.WillEvent, since, now time.Time) Metrics {
	days := now.Sub(since).Hours() / 24
	m := Metrics{Trend: model.TrendStable, Count: len(events)}
	if days <= 0 {
		return m
	}
	m.Density = float64(len(events)) / days

	mid := since.Add(now.Sub(since) / 2)
	var first, second int
	for i := range events {
		ts := events[i].Timestamp
		if ts.Before(mid) {
			first++
		} else {
			second++
		}
		if m.LastEvent == nil || ts.After(*m.LastEvent) {
			t := ts
			m.LastEvent = &t
		}
	}
	m.Trend = trend(first, second)
	return m
}

func trend(first, second int) string {
	if first == 0 && second == 0 {
		return model.TrendStable
	}
	if first == 0 {
		return model.TrendIncreasing
	}
	ratio := float64(second-first) / float64(first)
	switch {
	case ratio > trendBand:
		return model.TrendIncreasing
	case ratio < -trendBand:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}
