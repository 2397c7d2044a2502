package cli

import (
	"context"
	"fmt"

	"github.com/rcliao/continuity/internal/continuity"
	"github.com/rcliao/continuity/internal/detector"
	"github.com/rcliao/continuity/internal/labeler"
	"github.com/rcliao/continuity/internal/profile"
	"github.com/rcliao/continuity/internal/store"
	"github.com/rcliao/continuity/internal/will"
	"github.com/rcliao/continuity/internal/worker"
)

// app holds the wired engine for one command invocation.
type app struct {
	store        *store.SQLiteStore
	queue        *worker.Queue
	orchestrator *continuity.Orchestrator
	insights     *continuity.Synthesizer
	profiles     *profile.Aggregator
}

func openApp(ctx context.Context) (*app, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}

	lab, err := labeler.New(ctx, labeler.Config{
		Provider: cfg.Labeler.Provider,
		Model:    cfg.Labeler.Model,
		BaseURL:  cfg.Labeler.BaseURL,
		APIKey:   cfg.Labeler.APIKey,
		Timeout:  cfg.LabelerTimeout(),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("labeler: %w", err)
	}

	q := worker.NewQueue(worker.Options{
		Workers:     cfg.Worker.Workers,
		Buffer:      cfg.Worker.Buffer,
		MaxAttempts: cfg.Worker.MaxAttempts,
		Backoff:     cfg.WorkerBackoff(),
		TaskTimeout: cfg.WorkerTaskTimeout(),
	}, logger)

	synth := continuity.NewSynthesizer(s, logger)
	detectors := detector.All(detector.Options{
		Labeler:          lab,
		Logger:           logger,
		AgencyWindowDays: cfg.Analysis.AgencyWindowDays,
	})
	orch := continuity.NewOrchestrator(s, s, detectors, synth,
		continuity.WithQueue(q),
		continuity.WithLogger(logger),
		continuity.WithConfig(continuity.Config{
			WeekDays:          cfg.Analysis.WeekDays,
			MonthDays:         cfg.Analysis.MonthDays,
			QuarterDays:       cfg.Analysis.QuarterDays,
			MaxSourceEntries:  cfg.Analysis.MaxSourceEntries,
			MaxDerivedRecords: cfg.Analysis.MaxDerivedRecords,
		}))
	agg := profile.NewAggregator(s, will.NewService(s), s,
		profile.WithQueue(q),
		profile.WithLogger(logger),
		profile.WithConfig(profile.Config{
			WindowDays:   cfg.Profile.WindowDays,
			RowCap:       cfg.Profile.RowCap,
			RefreshAfter: cfg.ProfileRefreshAfter(),
		}))

	return &app{store: s, queue: q, orchestrator: orch, insights: synth, profiles: agg}, nil
}

// Close drains queued background work, then closes the store.
func (a *app) Close() {
	a.queue.Close()
	a.store.Close()
}

func mustOpenApp(ctx context.Context) *app {
	a, err := openApp(ctx)
	if err != nil {
		exitErr("open", err)
	}
	return a
}
