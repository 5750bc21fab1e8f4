// Package jobs runs periodic background work against the planner.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
)

// Optimizer is the part of the planner the scheduler drives.
type Optimizer interface {
	Optimize(ctx context.Context, owner string, from, to time.Time) (planner.Result, error)
}

type Config struct {
	// Spec is a standard five-field cron expression or a descriptor such as
	// "@daily".
	Spec     string
	Owner    string
	Days     int
	Location *time.Location
	// Timeout bounds a single run. Zero means one minute.
	Timeout time.Duration
}

// Scheduler re-optimizes the owner's next Days days on every cron tick.
type Scheduler struct {
	cfg   Config
	opt   Optimizer
	cron  *cron.Cron
	log   *zap.Logger
	clock func() time.Time

	mu      sync.Mutex
	runs    int
	lastErr error
}

type Option func(*Scheduler)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.clock = now
		}
	}
}

func New(opt Optimizer, cfg Config, opts ...Option) (*Scheduler, error) {
	if opt == nil {
		return nil, errors.New("jobs: nil optimizer")
	}
	if cfg.Owner == "" {
		return nil, errors.New("jobs: owner is required")
	}
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("jobs: cron spec %q: %w", cfg.Spec, err)
	}

	s := &Scheduler{
		cfg:   cfg,
		opt:   opt,
		log:   zap.NewNop(),
		clock: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.cron = cron.New(cron.WithLocation(cfg.Location))
	if _, err := s.cron.AddFunc(cfg.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("jobs: register %q: %w", cfg.Spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("optimize job scheduled", zap.String("spec", s.cfg.Spec), zap.Int("days", s.cfg.Days))
}

// Stop halts the schedule and waits for a running job or ctx, whichever
// finishes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Runs reports how many ticks have completed and the last tick's error.
func (s *Scheduler) Runs() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastErr
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	_, err := s.RunOnce(ctx)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.mu.Unlock()
}

// RunOnce optimizes from the start of today, in the configured location,
// through the following Days days. An impossible schedule is logged and
// returned but is not treated as a job failure by the cron loop.
func (s *Scheduler) RunOnce(ctx context.Context) (planner.Result, error) {
	from, to := s.Window()
	res, err := s.opt.Optimize(ctx, s.cfg.Owner, from, to)
	var impossible *model.ImpossibleScheduleError
	switch {
	case errors.As(err, &impossible):
		s.log.Warn("scheduled optimize left conflicts",
			zap.String("owner", s.cfg.Owner),
			zap.Int("unresolved", len(impossible.Conflicts)),
		)
	case err != nil:
		s.log.Error("scheduled optimize failed", zap.String("owner", s.cfg.Owner), zap.Error(err))
	default:
		s.log.Info("scheduled optimize finished",
			zap.String("owner", s.cfg.Owner),
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Int("updated", len(res.Updated)),
			zap.Int("deleted", len(res.Deleted)),
		)
	}
	return res, err
}

// Window is the range the next run will optimize.
func (s *Scheduler) Window() (time.Time, time.Time) {
	now := s.clock().In(s.cfg.Location)
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)
	return from, from.AddDate(0, 0, s.cfg.Days)
}
