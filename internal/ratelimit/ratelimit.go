// Package ratelimit spaces out requests to the same posting source.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobalert/internal/model"
)

// DefaultMinDelay is the gap between two requests to one source.
const DefaultMinDelay = 3 * time.Second

// SourceLimiter enforces a minimum delay between requests to the same source.
// Callers reserve the next free slot, so concurrent waiters are spaced out
// rather than released together.
type SourceLimiter struct {
	mu       sync.Mutex
	nextSlot  map[string]time.Time // key: source name
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewSourceLimiter creates a limiter with the given gap per source.
func NewSourceLimiter(minDelay time.Duration) *SourceLimiter {
	return &SourceLimiter{
		nextSlot:  make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: make(map[string]time.Duration),
	}
}

// Override sets a different gap for one source.
func (l *SourceLimiter) Override(source string, minDelay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[source] = minDelay
}

func (l *SourceLimiter) delayFor(source string) time.Duration {
	if d, ok := l.overrides[source]; ok {
		return d
	}
	return l.minDelay
}

// Wait blocks until source may be called again. It returns an error if ctx
// is cancelled first; the reserved slot is then lost.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	l.mu.Lock()
	now := time.Now()
	slot := l.nextSlot[source]
	if slot.Before(now) {
		slot = now
	}
	l.nextSlot[source] = slot.Add(l.delayFor(source))
	l.mu.Unlock()

	remaining := slot.Sub(now)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Harvester is a decorator that waits on the limiter before each Fetch.
type Harvester struct {
	inner   model.Harvester
	limiter *SourceLimiter
	source  string
}

var _ model.Harvester = (*Harvester)(nil)

// NewHarvester wraps a harvester. Harvesters hitting the same source should
// share one limiter.
func NewHarvester(inner model.Harvester, limiter *SourceLimiter, source string) *Harvester {
	return &Harvester{inner: inner, limiter: limiter, source: source}
}

func (h *Harvester) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	if err := h.limiter.Wait(ctx, h.source); err != nil {
		return nil, err
	}
	return h.inner.Fetch(ctx, category, mode, topic)
}
