// Package matching resolves which postings each subscriber should receive
// and which preference combinations acquisition has to cover.
package matching

import (
	"context"
	"slices"
	"time"

	"github.com/amishk599/jobalert/internal/model"
)

// DefaultLookback is how old a posting may be and still be delivered.
const DefaultLookback = 24 * time.Hour

// Ledger is the read side of the store the engine queries.
type Ledger interface {
	DistinctCombinations(ctx context.Context) ([]model.Combination, error)
	EligiblePostings(ctx context.Context, subscriberID int64, limit int, since time.Time, wildcard model.Mode) ([]model.Posting, error)
}

// Engine answers the two matching queries. It never writes.
type Engine struct {
	ledger   Ledger
	lookback time.Duration
	now      func() time.Time
}

// NewEngine returns an engine that only considers postings acquired within
// lookback of the current time.
func NewEngine(ledger Ledger, lookback time.Duration) *Engine {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Engine{ledger: ledger, lookback: lookback, now: time.Now}
}

// DistinctCombinations returns one combination per (category, mode) group
// of active subscribers.
func (e *Engine) DistinctCombinations(ctx context.Context) ([]model.Combination, error) {
	return e.ledger.DistinctCombinations(ctx)
}

// EligiblePostings returns up to limit unseen postings for the subscriber,
// newest first.
func (e *Engine) EligiblePostings(ctx context.Context, subscriberID int64, limit int) ([]model.Posting, error) {
	if limit <= 0 {
		return nil, nil
	}
	since := e.now().Add(-e.lookback)
	return e.ledger.EligiblePostings(ctx, subscriberID, limit, since, model.WildcardMode)
}

// Eligible is the in-memory form of the eligibility rule: category equal,
// mode equal or wildcard on either side, topic followed, and acquired
// within the lookback window. The sent-ledger check is the caller's.
func Eligible(sub model.Subscriber, p model.Posting, now time.Time, lookback time.Duration) bool {
	if p.Category != sub.Category {
		return false
	}
	if !model.ModeMatches(sub.Mode, p.Mode) {
		return false
	}
	if !slices.Contains(sub.Topics, p.Topic) {
		return false
	}
	return !p.AcquiredAt.Before(now.Add(-lookback))
}

// Aggregate groups active subscribers by (category, mode) and unions their
// topics. Groups come back sorted by category then mode; topics sorted.
func Aggregate(subs []model.Subscriber) []model.Combination {
	type groupKey struct {
		category model.Category
		mode     model.Mode
	}
	topics := make(map[groupKey]map[string]bool)
	for _, s := range subs {
		if !s.Active {
			continue
		}
		k := groupKey{s.Category, s.Mode}
		if topics[k] == nil {
			topics[k] = make(map[string]bool)
		}
		for _, t := range s.Topics {
			topics[k][t] = true
		}
	}

	combos := make([]model.Combination, 0, len(topics))
	for k, set := range topics {
		c := model.Combination{Category: k.category, Mode: k.mode}
		for t := range set {
			c.Topics = append(c.Topics, t)
		}
		slices.Sort(c.Topics)
		combos = append(combos, c)
	}
	slices.SortFunc(combos, func(a, b model.Combination) int {
		if a.Category != b.Category {
			if a.Category < b.Category {
				return -1
			}
			return 1
		}
		if a.Mode < b.Mode {
			return -1
		}
		if a.Mode > b.Mode {
			return 1
		}
		return 0
	})
	return combos
}
