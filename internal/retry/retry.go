// Package retry holds the retry policy shared by every external call.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	retrygo "github.com/codeGROOVE-dev/retry"

	"github.com/amishk599/jobalert/internal/model"
)

// Policy bounds how often and how slowly a failing call is repeated.
type Policy struct {
	Attempts  uint          // total attempts including the first
	Delay     time.Duration // base backoff delay
	MaxDelay  time.Duration
	MaxJitter time.Duration
}

// DefaultPolicy makes three attempts with a 5s base delay.
var DefaultPolicy = Policy{
	Attempts:  3,
	Delay:     5 * time.Second,
	MaxDelay:  time.Minute,
	MaxJitter: 2 * time.Second,
}

// Do calls fn until it succeeds, returns a permanent error, the attempts run
// out, or ctx is done. A Retry-After hint on an HTTPError is waited out on
// top of the backoff before the next attempt.
func (p Policy) Do(ctx context.Context, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var hint time.Duration
	return retrygo.Do(
		func() error {
			if hint > 0 {
				if err := wait(ctx, hint); err != nil {
					return retrygo.Unrecoverable(err)
				}
				hint = 0
			}
			err := fn(ctx)
			var httpErr *model.HTTPError
			if errors.As(err, &httpErr) {
				hint = httpErr.RetryAfter
			}
			return err
		},
		retrygo.Attempts(attempts),
		retrygo.Delay(p.Delay),
		retrygo.MaxDelay(p.MaxDelay),
		retrygo.MaxJitter(p.MaxJitter),
		retrygo.Context(ctx),
		retrygo.OnRetry(func(n uint, err error) {
			logger.Warn("retrying after transient error",
				"op", op,
				"attempt", n+1,
				"max_attempts", attempts,
				"error", err,
			)
		}),
		retrygo.RetryIf(IsRetryable),
	)
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation: never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, model.ErrInvalidPosting) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		// 4xx other than 429 will not change on retry.
		return httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS, etc.) are retryable.
	return true
}

// Harvester is a decorator that applies a Policy to every Fetch.
type Harvester struct {
	inner  model.Harvester
	policy Policy
	name   string
	logger *slog.Logger
}

var _ model.Harvester = (*Harvester)(nil)

// NewHarvester wraps a harvester with retry logic. name labels log lines.
func NewHarvester(inner model.Harvester, name string, policy Policy, logger *slog.Logger) *Harvester {
	return &Harvester{inner: inner, policy: policy, name: name, logger: logger}
}

func (h *Harvester) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	var postings []model.Posting
	err := h.policy.Do(ctx, h.logger, h.name+" "+topic, func(ctx context.Context) error {
		var err error
		postings, err = h.inner.Fetch(ctx, category, mode, topic)
		return err
	})
	if err != nil {
		return nil, err
	}
	return postings, nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Gateway is a decorator that applies a Policy to every Send.
type Gateway struct {
	inner  model.Gateway
	policy Policy
	logger *slog.Logger
}

var _ model.Gateway = (*Gateway)(nil)

// NewGateway wraps a messaging gateway with retry logic.
func NewGateway(inner model.Gateway, policy Policy, logger *slog.Logger) *Gateway {
	return &Gateway{inner: inner, policy: policy, logger: logger}
}

func (g *Gateway) Send(ctx context.Context, subscriberID int64, msg model.Message) error {
	return g.policy.Do(ctx, g.logger, "send", func(ctx context.Context) error {
		return g.inner.Send(ctx, subscriberID, msg)
	})
}
