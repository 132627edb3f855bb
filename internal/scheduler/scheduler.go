// Package scheduler drives the acquisition, delivery and retention loops.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/amishk599/jobalert/internal/acquisition"
	"github.com/amishk599/jobalert/internal/delivery"
)

const (
	DefaultDeliveryPoll = 30 * time.Second
	DefaultCleanupPoll  = 5 * time.Minute
)

// Acquirer runs one acquisition cycle.
type Acquirer interface {
	Run(ctx context.Context) (acquisition.Result, error)
}

// Deliverer runs one delivery cycle.
type Deliverer interface {
	Run(ctx context.Context) (delivery.Report, error)
}

// Cleaner removes records older than days.
type Cleaner interface {
	Cleanup(ctx context.Context, days int) (int64, error)
}

// Config holds loop timings.
type Config struct {
	AcquisitionInterval time.Duration
	Delivery            DailySchedule
	Cleanup             DailySchedule
	RetentionDays       int
	// DeliveryPoll and CleanupPoll cap how long a daily loop sleeps before
	// re-reading the wall clock.
	DeliveryPoll time.Duration
	CleanupPoll  time.Duration
}

// Scheduler owns the three component loops.
type Scheduler struct {
	acquirer  Acquirer
	deliverer Deliverer
	cleaner   Cleaner
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New validates cfg and returns a scheduler. Any component may be nil, which
// disables its loop.
func New(acquirer Acquirer, deliverer Deliverer, cleaner Cleaner, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if acquirer != nil && cfg.AcquisitionInterval <= 0 {
		return nil, fmt.Errorf("scheduler: acquisition interval must be positive")
	}
	if deliverer != nil && len(cfg.Delivery.Times) == 0 {
		return nil, fmt.Errorf("scheduler: delivery needs at least one time")
	}
	if cleaner != nil {
		if len(cfg.Cleanup.Times) == 0 {
			return nil, fmt.Errorf("scheduler: cleanup needs a time")
		}
		if cfg.RetentionDays <= 0 {
			return nil, fmt.Errorf("scheduler: retention days must be positive")
		}
	}
	if cfg.DeliveryPoll <= 0 {
		cfg.DeliveryPoll = DefaultDeliveryPoll
	}
	if cfg.CleanupPoll <= 0 {
		cfg.CleanupPoll = DefaultCleanupPoll
	}
	return &Scheduler{
		acquirer:  acquirer,
		deliverer: deliverer,
		cleaner:   cleaner,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run starts every loop and blocks until ctx is cancelled and all loops have
// returned. It always returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"acquisition_interval", s.cfg.AcquisitionInterval.String(),
		"delivery_times", fmt.Sprint(s.cfg.Delivery.Times),
		"cleanup_times", fmt.Sprint(s.cfg.Cleanup.Times),
		"retention_days", s.cfg.RetentionDays,
	)

	var wg sync.WaitGroup
	start := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}
	if s.acquirer != nil {
		start(s.acquisitionLoop)
	}
	if s.deliverer != nil {
		start(func(ctx context.Context) {
			s.dailyLoop(ctx, "delivery", s.cfg.Delivery, s.cfg.DeliveryPoll, s.deliver)
		})
	}
	if s.cleaner != nil {
		start(func(ctx context.Context) {
			s.dailyLoop(ctx, "cleanup", s.cfg.Cleanup, s.cfg.CleanupPoll, s.cleanup)
		})
	}

	wg.Wait()
	s.logger.Info("shutting down scheduler")
	return nil
}

// acquisitionLoop runs one cycle immediately, then waits the full interval
// after each cycle returns.
func (s *Scheduler) acquisitionLoop(ctx context.Context) {
	for ctx.Err() == nil {
		s.safely("acquisition", func() {
			res, err := s.acquirer.Run(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error("acquisition failed", "error", err)
				}
				return
			}
			if res.Skipped {
				s.logger.Info("acquisition skipped")
			}
		})
		if !sleep(ctx, s.cfg.AcquisitionInterval) {
			return
		}
	}
}

// dailyLoop fires run once per schedule target. It never sleeps longer than
// pollCap, so clock jumps and suspended processes are noticed on the next
// wake-up. A late wake-up fires once and then moves on to the first target
// after the current time.
func (s *Scheduler) dailyLoop(ctx context.Context, name string, sched DailySchedule, pollCap time.Duration, run func(context.Context)) {
	next := sched.Next(s.now())
	s.logger.Info("next run scheduled", "loop", name, "at", next.Format(time.RFC3339))

	for ctx.Err() == nil {
		now := s.now()
		if !now.Before(next) {
			s.safely(name, func() { run(ctx) })
			next = sched.Next(maxTime(now, next))
			s.logger.Info("next run scheduled", "loop", name, "at", next.Format(time.RFC3339))
			continue
		}
		if !sleep(ctx, min(next.Sub(now), pollCap)) {
			return
		}
	}
}

func (s *Scheduler) deliver(ctx context.Context) {
	if _, err := s.deliverer.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("delivery failed", "error", err)
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	if _, err := s.cleaner.Cleanup(ctx, s.cfg.RetentionDays); err != nil && ctx.Err() == nil {
		s.logger.Error("cleanup failed", "error", err)
	}
}

// safely runs f and logs a panic instead of letting it kill the loop.
func (s *Scheduler) safely(name string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("loop recovered from panic",
				"loop", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	f()
}

// sleep waits d and reports whether the loop should continue.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
