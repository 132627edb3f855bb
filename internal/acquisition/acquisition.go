// Package acquisition runs the harvest cycle: for every preference
// combination of active subscribers, fetch postings per topic, validate them
// and upsert them into the ledger.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobalert/internal/lock"
	"github.com/amishk599/jobalert/internal/metrics"
	"github.com/amishk599/jobalert/internal/model"
)

// DefaultCombinationDelay is the pause between two combinations.
const DefaultCombinationDelay = 5 * time.Second

// CombinationSource lists what to harvest.
type CombinationSource interface {
	DistinctCombinations(ctx context.Context) ([]model.Combination, error)
}

// PostingWriter persists harvested postings.
type PostingWriter interface {
	UpsertPostings(ctx context.Context, postings []model.Posting, at time.Time) (int, error)
}

// Result summarizes one acquisition cycle.
type Result struct {
	RunID        string
	Combinations int
	Fetched      int
	Invalid      int
	Saved        int
	Failed       int // topics whose harvest failed
	Skipped      bool
	Duration     time.Duration
}

// Options tune the pacing of a cycle.
type Options struct {
	CombinationDelay time.Duration
	TopicDelay       time.Duration
	// Lease, when set, must be acquired before the cycle starts. It is
	// checked after the in-process flag.
	Lease   lock.Lease
	Metrics *metrics.Metrics
}

// Trigger owns the harvest pipeline. At most one cycle runs at a time.
type Trigger struct {
	combos    CombinationSource
	harvester model.Harvester
	store     PostingWriter
	opts      Options
	logger    *slog.Logger
	now       func() time.Time

	running atomic.Bool
}

// NewTrigger creates a trigger wired with all its dependencies.
func NewTrigger(
	combos CombinationSource,
	harvester model.Harvester,
	store PostingWriter,
	opts Options,
	logger *slog.Logger,
) *Trigger {
	return &Trigger{
		combos:    combos,
		harvester: harvester,
		store:     store,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Running reports whether a cycle is in progress.
func (t *Trigger) Running() bool {
	return t.running.Load()
}

// Run executes one cycle. When a cycle is already in progress it returns
// immediately with Result.Skipped set and a nil error.
func (t *Trigger) Run(ctx context.Context) (res Result, err error) {
	if !t.running.CompareAndSwap(false, true) {
		t.logger.Info("acquisition already in progress, skipping")
		t.opts.Metrics.AcquisitionSkipped(metrics.SkipInProgress)
		return Result{Skipped: true}, nil
	}
	defer t.running.Store(false)

	if t.opts.Lease != nil {
		token, err := t.opts.Lease.Acquire(ctx)
		if errors.Is(err, lock.ErrHeld) {
			t.logger.Info("acquisition lease held by another instance, skipping")
			t.opts.Metrics.AcquisitionSkipped(metrics.SkipLeaseHeld)
			return Result{Skipped: true}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("acquisition: %w", err)
		}
		defer func() {
			// ctx may already be cancelled here.
			if err := t.opts.Lease.Release(context.WithoutCancel(ctx), token); err != nil {
				t.logger.Warn("releasing acquisition lease", "error", err)
			}
		}()
	}

	start := t.now()
	res.RunID = uuid.NewString()
	logger := t.logger.With("run", res.RunID)

	defer func() {
		res.Duration = t.now().Sub(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		t.opts.Metrics.Acquisition(outcome, res.Fetched, res.Invalid, res.Saved, res.Failed, res.Duration)
	}()

	combos, err := t.combos.DistinctCombinations(ctx)
	if err != nil {
		return res, fmt.Errorf("acquisition: loading combinations: %w", err)
	}
	res.Combinations = len(combos)
	if len(combos) == 0 {
		logger.Info("no active subscribers, nothing to acquire")
		return res, nil
	}

	logger.Info("acquisition started", "combinations", len(combos))

	for i, c := range combos {
		if i > 0 {
			if err := sleep(ctx, t.opts.CombinationDelay); err != nil {
				return res, err
			}
		}
		if err := t.acquireCombination(ctx, logger, c, &res); err != nil {
			return res, err
		}
	}

	logger.Info("acquisition finished",
		"combinations", res.Combinations,
		"fetched", res.Fetched,
		"invalid", res.Invalid,
		"saved", res.Saved,
		"failed_topics", res.Failed,
		"took", t.now().Sub(start).Round(time.Millisecond),
	)
	return res, nil
}

// acquireCombination harvests every topic of one combination. Only store
// failures and cancellation are returned.
func (t *Trigger) acquireCombination(ctx context.Context, logger *slog.Logger, c model.Combination, res *Result) error {
	for j, topic := range c.Topics {
		if j > 0 {
			if err := sleep(ctx, t.opts.TopicDelay); err != nil {
				return err
			}
		}

		postings, err := t.harvester.Fetch(ctx, c.Category, c.Mode, topic)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			logger.Warn("harvest failed",
				"category", c.Category, "mode", c.Mode, "topic", topic, "error", err)
			continue
		}
		res.Fetched += len(postings)

		valid := postings[:0:0]
		for _, p := range postings {
			if err := p.Validate(); err != nil {
				res.Invalid++
				logger.Debug("skipping posting", "title", p.Title, "source", p.Source, "error", err)
				continue
			}
			valid = append(valid, p)
		}
		if len(valid) == 0 {
			continue
		}

		n, err := t.store.UpsertPostings(ctx, valid, t.now())
		if err != nil {
			return fmt.Errorf("acquisition: saving %s/%s %q: %w", c.Category, c.Mode, topic, err)
		}
		res.Saved += n
		logger.Debug("topic harvested",
			"category", c.Category, "mode", c.Mode, "topic", topic,
			"fetched", len(postings), "saved", n)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
