package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/continuity/internal/model"
)

const (
	defaultAgencyWindowDays = 30
	agencyLowFrequency      = 0.1
	agencyVeryLowFrequency  = 0.05
)

// AgencyDrift flags a low rate of recorded deliberate choices.
type AgencyDrift struct {
	WindowDays int // zero means 30
}

func (d *AgencyDrift) Name() string          { return "agency" }
func (d *AgencyDrift) Type() model.EventType { return model.EventAgencyDrift }

func (d *AgencyDrift) Detect(ctx context.Context, in Input) ([]model.ContinuityEvent, error) {
	w := in.Month
	if w == nil {
		return nil, windowUnavailable("month")
	}
	days := d.WindowDays
	if days <= 0 {
		days = defaultAgencyWindowDays
	}
	// Only the month window's will events are loaded.
	if w.Days > 0 && days > w.Days {
		days = w.Days
	}
	since := in.Now.Add(-time.Duration(days) * 24 * time.Hour)

	var ids []string
	for _, we := range w.WillEvents {
		if !we.Timestamp.Before(since) {
			ids = append(ids, we.ID)
		}
	}
	freq := float64(len(ids)) / float64(days)
	if freq >= agencyLowFrequency {
		return nil, nil
	}

	severity := 0.6
	if freq < agencyVeryLowFrequency {
		severity = 0.8
	}
	desc := fmt.Sprintf("Only %d deliberate choices recorded in the last %d days (%.2f per day)", len(ids), days, freq)
	meta := map[string]any{
		"frequency":   freq,
		"window_days": days,
	}
	return []model.ContinuityEvent{newEvent(in, d.Type(), desc, severity, ids, meta)}, nil
}
