// Package profile computes the long-horizon continuity profile: persistent
// values, recurring stress themes, identity stability, agency and drift
// flags.
package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/store"
	"github.com/rcliao/continuity/internal/will"
	"github.com/rcliao/continuity/internal/worker"
)

// Config bounds a profile computation.
type Config struct {
	WindowDays int
	RowCap     int
	// RefreshAfter makes Latest queue a recompute when the stored profile
	// is older than this. Zero disables it.
	RefreshAfter time.Duration
}

// DefaultConfig returns a 365 day window with a 1000 row cap.
func DefaultConfig() Config {
	return Config{WindowDays: 365, RowCap: 1000}
}

// Aggregator computes and stores continuity profiles.
type Aggregator struct {
	records  store.RecordStore
	will     will.Subsystem
	profiles store.ProfileStore
	queue    *worker.Queue
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l.Named("profile")
		}
	}
}

// WithConfig overrides the defaults. Zero fields keep their defaults.
func WithConfig(c Config) Option {
	return func(a *Aggregator) {
		if c.WindowDays > 0 {
			a.cfg.WindowDays = c.WindowDays
		}
		if c.RowCap > 0 {
			a.cfg.RowCap = c.RowCap
		}
		a.cfg.RefreshAfter = c.RefreshAfter
	}
}

// WithQueue sets the queue used for background refreshes.
func WithQueue(q *worker.Queue) Option {
	return func(a *Aggregator) { a.queue = q }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator wires an aggregator.
func NewAggregator(records store.RecordStore, willSvc will.Subsystem, profiles store.ProfileStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		records:  records,
		will:     willSvc,
		profiles: profiles,
		logger:   zap.NewNop(),
		cfg:      DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type sources struct {
	memories  []model.MemoryEvent
	identity  []model.Claim
	will      []model.WillEvent
	emotions  []model.EmotionEvent
	decisions []model.Decision
	agency    *will.Metrics
}

// Compute builds a profile over the last windowDays days and stores it as a
// new version. It fails only when every record fetch fails. A failed save is
// logged and the unsaved profile, with version 0, is returned.
func (a *Aggregator) Compute(ctx context.Context, userID string, windowDays int) (*model.ContinuityProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("compute profile: user_id is required")
	}
	if windowDays <= 0 {
		windowDays = a.cfg.WindowDays
	}
	now := a.now().UTC()
	log := a.logger.With(zap.String("user_id", userID))

	src, err := a.fetch(ctx, log, userID, now.AddDate(0, 0, -windowDays), windowDays)
	if err != nil {
		return nil, err
	}

	p := &model.ContinuityProfile{
		UserID:           userID,
		WindowDays:       windowDays,
		PersistentValues: ExtractValues(src.identity, src.will, src.decisions),
		RecurringThemes:  ExtractThemes(src.emotions, src.memories),
		IdentityVersions: IdentityVersions(src.identity),
		AgencyTrend:      model.TrendStable,
		ComputedAt:       now,
	}
	p.IdentityStabilityScore = StabilityScore(len(p.IdentityVersions))
	if src.agency != nil {
		p.AgencyDensity = src.agency.Density
		p.AgencyTrend = src.agency.Trend
		p.LastWillEvent = src.agency.LastEvent
	}

	prev, err := a.profiles.LatestProfile(ctx, userID)
	if err != nil {
		log.Warn("previous profile unavailable", zap.Error(err))
		prev = nil
	}
	p.DriftFlags = DriftFlags(DriftInput{
		Now:             now,
		WindowDays:      windowDays,
		Agency:          src.agency,
		IdentityClaims:  len(src.identity),
		WillEvents:      len(src.will),
		Values:          p.PersistentValues,
		PreviousProfile: prev,
	})

	saved, err := a.profiles.SaveProfile(ctx, userID, p)
	if err != nil {
		log.Error("profile save failed", zap.Error(fmt.Errorf("%w: %w", model.ErrPersistence, err)))
		return p, nil
	}
	log.Info("profile computed",
		zap.Int("version", saved.Version),
		zap.Int("values", len(saved.PersistentValues)),
		zap.Int("themes", len(saved.RecurringThemes)),
		zap.Int("drift_flags", len(saved.DriftFlags)))
	return saved, nil
}

// fetch loads the five record sources and the agency metrics in parallel.
// A failed source contributes nothing.
func (a *Aggregator) fetch(ctx context.Context, log *zap.Logger, userID string, since time.Time, windowDays int) (*sources, error) {
	src := &sources{}
	q := store.RecordQuery{UserID: userID, Since: since, Limit: a.cfg.RowCap}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	try := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				log.Warn("profile source failed", zap.String("source", name), zap.Error(err))
				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}

	try("memories", func() (err error) {
		src.memories, err = a.records.Memories(ctx, q)
		return err
	})
	try("identity", func() (err error) {
		iq := q
		iq.Kind = "identity"
		src.identity, err = a.records.Claims(ctx, iq)
		return err
	})
	try("will", func() (err error) {
		src.will, err = a.will.WillEvents(ctx, userID, will.Filter{Since: since, Limit: a.cfg.RowCap})
		return err
	})
	try("emotions", func() (err error) {
		src.emotions, err = a.records.Emotions(ctx, q)
		return err
	})
	try("decisions", func() (err error) {
		src.decisions, err = a.records.Decisions(ctx, q)
		return err
	})
	g.Wait()

	if len(failed) == 5 {
		return nil, fmt.Errorf("compute profile: %w: %w", model.ErrUpstreamUnavailable, failed[0])
	}

	m, err := a.will.AgencyMetrics(ctx, userID, windowDays)
	if err != nil {
		log.Warn("agency metrics unavailable", zap.Error(err))
	} else {
		src.agency = &m
	}
	return src, nil
}

// Latest returns the most recent stored profile, or nil. With a refresh age
// configured, a stale or missing profile queues a recompute without
// affecting the result.
func (a *Aggregator) Latest(ctx context.Context, userID string) (*model.ContinuityProfile, error) {
	p, err := a.profiles.LatestProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest profile: %w", err)
	}
	a.maybeRefresh(userID, p)
	return p, nil
}

// History returns up to limit stored profiles, newest first.
func (a *Aggregator) History(ctx context.Context, userID string, limit int) ([]model.ContinuityProfile, error) {
	out, err := a.profiles.ProfileHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("profile history: %w", err)
	}
	return out, nil
}

func (a *Aggregator) maybeRefresh(userID string, p *model.ContinuityProfile) {
	if a.queue == nil || a.cfg.RefreshAfter <= 0 {
		return
	}
	if p != nil && a.now().Sub(p.ComputedAt) < a.cfg.RefreshAfter {
		return
	}
	err := a.queue.Submit(worker.Task{
		Name: "profile-refresh/" + userID,
		Run: func(ctx context.Context) error {
			_, err := a.Compute(ctx, userID, a.cfg.WindowDays)
			return err
		},
	})
	if err != nil {
		a.logger.Warn("profile refresh not queued", zap.String("user_id", userID), zap.Error(err))
	}
}
