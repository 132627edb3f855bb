// Package retention removes postings past their retention age together with
// the delivery records that point at them.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobalert/internal/metrics"
)

// DefaultDays is how long postings are kept.
const DefaultDays = 7

// Store is the delete side of the ledger.
type Store interface {
	DeleteStalePostings(ctx context.Context, before time.Time) (int64, error)
	DeleteOrphanDeliveries(ctx context.Context) (int64, error)
}

// Cleaner deletes stale ledger rows.
type Cleaner struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewCleaner returns a cleaner. m may be nil.
func NewCleaner(store Store, m *metrics.Metrics, logger *slog.Logger) *Cleaner {
	return &Cleaner{store: store, metrics: m, logger: logger, now: time.Now}
}

// Cleanup deletes postings acquired more than days ago, then any delivery
// record whose posting is gone. It returns the number of rows removed.
func (c *Cleaner) Cleanup(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention: days must be positive, got %d", days)
	}
	cutoff := c.now().Add(-time.Duration(days) * 24 * time.Hour)

	postings, err := c.store.DeleteStalePostings(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention: deleting postings: %w", err)
	}
	orphans, err := c.store.DeleteOrphanDeliveries(ctx)
	if err != nil {
		return postings, fmt.Errorf("retention: deleting orphan deliveries: %w", err)
	}

	total := postings + orphans
	c.metrics.Cleaned(total)
	c.logger.Info("retention cleanup finished",
		"days", days,
		"cutoff", cutoff.Format(time.RFC3339),
		"postings", postings,
		"orphan_deliveries", orphans,
	)
	return total, nil
}
