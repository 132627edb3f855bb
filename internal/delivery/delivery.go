// Package delivery sends each active subscriber the postings they have not
// seen yet and records what was sent.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobalert/internal/metrics"
	"github.com/amishk599/jobalert/internal/model"
)

const (
	DefaultBatchSize          = 10
	DefaultPerSubscriberLimit = 3
	DefaultSendDelay          = 500 * time.Millisecond
	DefaultBatchDelay         = time.Second
)

// Subscribers lists who to deliver to.
type Subscribers interface {
	ActiveSubscriberIDs(ctx context.Context) ([]int64, error)
}

// Matcher returns the unseen postings for a subscriber, newest first.
type Matcher interface {
	EligiblePostings(ctx context.Context, subscriberID int64, limit int) ([]model.Posting, error)
}

// Ledger records delivered (subscriber, posting) pairs.
type Ledger interface {
	MarkSent(ctx context.Context, keys []model.DeliveryKey, at time.Time) error
}

// Options tune batching and pacing. Zero values take the defaults.
type Options struct {
	BatchSize          int
	PerSubscriberLimit int
	SendDelay          time.Duration
	BatchDelay         time.Duration
	Metrics            *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.PerSubscriberLimit <= 0 {
		o.PerSubscriberLimit = DefaultPerSubscriberLimit
	}
	return o
}

// Report summarizes one delivery cycle.
type Report struct {
	RunID       string
	Subscribers int // processed
	Notified    int // received at least one posting message
	Batches     int
	Sent        int
	Failed      int
	Duration    time.Duration
}

// Engine runs delivery cycles.
type Engine struct {
	subs    Subscribers
	matcher Matcher
	ledger  Ledger
	gateway model.Gateway
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates an engine wired with all its dependencies.
func NewEngine(subs Subscribers, matcher Matcher, ledger Ledger, gateway model.Gateway, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		subs:    subs,
		matcher: matcher,
		ledger:  ledger,
		gateway: gateway,
		opts:    opts.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one delivery cycle. A posting is recorded as sent only after
// the gateway accepted it, and records are committed once per batch.
func (e *Engine) Run(ctx context.Context) (rep Report, err error) {
	start := e.now()
	rep.RunID = uuid.NewString()
	logger := e.logger.With("run", rep.RunID)

	defer func() {
		rep.Duration = e.now().Sub(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.opts.Metrics.Delivery(outcome, rep.Sent, rep.Failed, rep.Duration)
	}()

	ids, err := e.subs.ActiveSubscriberIDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("delivery: loading subscribers: %w", err)
	}
	if len(ids) == 0 {
		logger.Info("no active subscribers, nothing to deliver")
		return rep, nil
	}

	logger.Info("delivery started", "subscribers", len(ids))

	for lo := 0; lo < len(ids); lo += e.opts.BatchSize {
		hi := min(lo+e.opts.BatchSize, len(ids))
		if rep.Batches > 0 {
			if err := sleep(ctx, e.opts.BatchDelay); err != nil {
				return rep, err
			}
		}
		rep.Batches++
		if err := e.runBatch(ctx, logger, ids[lo:hi], &rep); err != nil {
			return rep, err
		}
	}

	logger.Info("delivery finished",
		"subscribers", rep.Subscribers,
		"notified", rep.Notified,
		"batches", rep.Batches,
		"sent", rep.Sent,
		"failed", rep.Failed,
		"took", e.now().Sub(start).Round(time.Millisecond),
	)
	return rep, nil
}

// runBatch delivers to one batch and commits its records. On a store error
// the records gathered so far are still committed before returning.
func (e *Engine) runBatch(ctx context.Context, logger *slog.Logger, ids []int64, rep *Report) error {
	var keys []model.DeliveryKey
	for _, id := range ids {
		sent, err := e.deliverTo(ctx, logger, id, rep)
		keys = append(keys, sent...)
		if err != nil {
			e.flush(context.WithoutCancel(ctx), logger, keys)
			return err
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := e.ledger.MarkSent(ctx, keys, e.now()); err != nil {
		return fmt.Errorf("delivery: recording batch: %w", err)
	}
	return nil
}

// deliverTo sends the summary and the postings to one subscriber and returns
// the keys of postings the gateway accepted.
func (e *Engine) deliverTo(ctx context.Context, logger *slog.Logger, id int64, rep *Report) ([]model.DeliveryKey, error) {
	rep.Subscribers++

	postings, err := e.matcher.EligiblePostings(ctx, id, e.opts.PerSubscriberLimit)
	if err != nil {
		return nil, fmt.Errorf("delivery: matching subscriber %d: %w", id, err)
	}
	if len(postings) == 0 {
		return nil, nil
	}

	summary := model.Message{Kind: model.MessageSummary, Count: len(postings)}
	if err := e.gateway.Send(ctx, id, summary); err != nil {
		logger.Warn("summary send failed", "subscriber", id, "error", err)
	}

	var keys []model.DeliveryKey
	for i := range postings {
		if i > 0 {
			if err := sleep(ctx, e.opts.SendDelay); err != nil {
				return keys, err
			}
		}
		p := postings[i]
		msg := model.Message{Kind: model.MessagePosting, Posting: &p}
		if err := e.gateway.Send(ctx, id, msg); err != nil {
			rep.Failed++
			logger.Warn("posting send failed", "subscriber", id, "posting", p.ID, "error", err)
			continue
		}
		rep.Sent++
		keys = append(keys, model.DeliveryKey{SubscriberID: id, PostingID: p.ID})
	}
	if len(keys) > 0 {
		rep.Notified++
	}
	return keys, nil
}

func (e *Engine) flush(ctx context.Context, logger *slog.Logger, keys []model.DeliveryKey) {
	if len(keys) == 0 {
		return
	}
	if err := e.ledger.MarkSent(ctx, keys, e.now()); err != nil {
		logger.Error("recording partial batch", "keys", len(keys), "error", err)
	}
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
