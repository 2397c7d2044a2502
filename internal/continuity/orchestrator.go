// Package continuity runs the detectors over a user's recent records,
// persists what they find and summarises it into insights.
package continuity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/continuity/internal/detector"
	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/store"
	"github.com/rcliao/continuity/internal/worker"
)

// Config sizes the analysis windows and bounds each fetch.
type Config struct {
	WeekDays          int
	MonthDays         int
	QuarterDays       int
	MaxSourceEntries  int // memories per window
	MaxDerivedRecords int // claims, decisions, emotions, will events per window
}

// DefaultConfig returns the 7/30/90 day windows with 500/1000 row caps.
func DefaultConfig() Config {
	return Config{
		WeekDays:          7,
		MonthDays:         30,
		QuarterDays:       90,
		MaxSourceEntries:  500,
		MaxDerivedRecords: 1000,
	}
}

// RunResult is the outcome of one analysis run.
type RunResult struct {
	RunID   string                  `json:"run_id"`
	Events  []model.ContinuityEvent `json:"events"`
	Summary map[model.EventType]int `json:"summary"`
	Failed  []string                `json:"failed_detectors,omitempty"`
}

// Orchestrator runs every detector for a user and persists the results.
// Concurrent runs for one user are not excluded and may store overlapping
// events.
type Orchestrator struct {
	records   store.RecordStore
	events    store.EventStore
	detectors []detector.Detector
	synth     *Synthesizer
	queue     *worker.Queue
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithQueue hands insight synthesis to q instead of running it inline.
func WithQueue(q *worker.Queue) Option {
	return func(o *Orchestrator) { o.queue = q }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l.Named("orchestrator")
		}
	}
}

// WithConfig overrides the window configuration. Zero fields keep their
// defaults.
func WithConfig(c Config) Option {
	return func(o *Orchestrator) {
		def := o.cfg
		if c.WeekDays > 0 {
			def.WeekDays = c.WeekDays
		}
		if c.MonthDays > 0 {
			def.MonthDays = c.MonthDays
		}
		if c.QuarterDays > 0 {
			def.QuarterDays = c.QuarterDays
		}
		if c.MaxSourceEntries > 0 {
			def.MaxSourceEntries = c.MaxSourceEntries
		}
		if c.MaxDerivedRecords > 0 {
			def.MaxDerivedRecords = c.MaxDerivedRecords
		}
		o.cfg = def
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires an orchestrator. synth may be nil to skip insights.
func NewOrchestrator(records store.RecordStore, events store.EventStore, detectors []detector.Detector, synth *Synthesizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		records:   records,
		events:    events,
		detectors: detectors,
		synth:     synth,
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run fetches the week, month and quarter windows, runs every detector and
// stores each detector's events as one batch. A failing detector contributes
// nothing. A failed batch insert fails the run.
func (o *Orchestrator) Run(ctx context.Context, userID string) (*RunResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("run continuity: user_id is required")
	}
	now := o.now().UTC()
	res := &RunResult{
		RunID:   uuid.NewString(),
		Events:  []model.ContinuityEvent{},
		Summary: make(map[model.EventType]int),
	}
	log := o.logger.With(zap.String("user_id", userID), zap.String("run_id", res.RunID))

	wins, err := o.fetchWindows(ctx, log, userID, now)
	if err != nil {
		return nil, err
	}
	in := detector.Input{UserID: userID, Now: now, Windows: wins}

	for _, d := range o.detectors {
		found, err := safeDetect(ctx, d, in)
		if err != nil {
			log.Warn("detector failed", zap.String("detector", d.Name()), zap.Error(err))
			res.Failed = append(res.Failed, d.Name())
			continue
		}
		if len(found) == 0 {
			continue
		}
		stored, err := o.events.InsertEvents(ctx, found)
		if err != nil {
			return nil, fmt.Errorf("persist %s events: %w: %w", d.Name(), model.ErrPersistence, err)
		}
		log.Debug("detector events stored", zap.String("detector", d.Name()), zap.Int("count", len(stored)))
		res.Events = append(res.Events, stored...)
		for _, e := range stored {
			res.Summary[e.EventType]++
		}
	}

	o.synthesize(ctx, log, userID, res)
	log.Info("continuity run complete",
		zap.Int("events", len(res.Events)),
		zap.Strings("failed_detectors", res.Failed))
	return res, nil
}

// ListEvents returns stored events newest first, optionally of one type.
func (o *Orchestrator) ListEvents(ctx context.Context, userID string, eventType model.EventType, limit int) ([]model.ContinuityEvent, error) {
	if eventType != "" && !model.ValidEventType(eventType) {
		return nil, fmt.Errorf("list events: unknown event type %q", eventType)
	}
	return o.events.ListEvents(ctx, store.EventQuery{UserID: userID, Type: eventType, Limit: limit})
}

func safeDetect(ctx context.Context, d detector.Detector, in detector.Input) (events []model.ContinuityEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("detector %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Detect(ctx, in)
}

// fetchWindows loads the three windows in parallel. A window that fails to
// load is left nil; the run fails only when none loads.
func (o *Orchestrator) fetchWindows(ctx context.Context, log *zap.Logger, userID string, now time.Time) (detector.Windows, error) {
	var wins detector.Windows
	specs := []struct {
		name string
		days int
		dst  **detector.Window
	}{
		{"week", o.cfg.WeekDays, &wins.Week},
		{"month", o.cfg.MonthDays, &wins.Month},
		{"quarter", o.cfg.QuarterDays, &wins.Quarter},
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	for _, s := range specs {
		g.Go(func() error {
			w, err := o.fetchWindow(ctx, userID, s.days, now)
			if err != nil {
				log.Warn("window fetch failed", zap.String("window", s.name), zap.Error(err))
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			}
			*s.dst = w
			return nil
		})
	}
	g.Wait()

	if len(failed) == len(specs) {
		return wins, fmt.Errorf("fetch windows: %w: %w", model.ErrUpstreamUnavailable, failed[0])
	}
	return wins, nil
}

func (o *Orchestrator) fetchWindow(ctx context.Context, userID string, days int, now time.Time) (*detector.Window, error) {
	since := now.AddDate(0, 0, -days)
	w := &detector.Window{Days: days, Start: since, End: now}
	src := store.RecordQuery{UserID: userID, Since: since, Limit: o.cfg.MaxSourceEntries}
	derived := store.RecordQuery{UserID: userID, Since: since, Limit: o.cfg.MaxDerivedRecords}

	var err error
	if w.Memories, err = o.records.Memories(ctx, src); err != nil {
		return nil, fmt.Errorf("memories: %w", err)
	}
	if w.Claims, err = o.records.Claims(ctx, derived); err != nil {
		return nil, fmt.Errorf("claims: %w", err)
	}
	if w.Decisions, err = o.records.Decisions(ctx, derived); err != nil {
		return nil, fmt.Errorf("decisions: %w", err)
	}
	if w.Emotions, err = o.records.Emotions(ctx, derived); err != nil {
		return nil, fmt.Errorf("emotions: %w", err)
	}
	if w.WillEvents, err = o.records.WillEvents(ctx, derived); err != nil {
		return nil, fmt.Errorf("will events: %w", err)
	}
	return w, nil
}

// synthesize hands the run's events to the synthesizer. It never fails the
// run.
func (o *Orchestrator) synthesize(ctx context.Context, log *zap.Logger, userID string, res *RunResult) {
	if o.synth == nil || len(res.Events) == 0 {
		return
	}
	task := o.synth.Task(userID, res.RunID, res.Events)
	if o.queue != nil {
		err := o.queue.Submit(task)
		if err == nil {
			return
		}
		log.Warn("insight task not queued, running inline", zap.Error(err))
	}
	if err := task.Run(ctx); err != nil {
		log.Warn("insight synthesis incomplete", zap.Error(err))
	}
}
