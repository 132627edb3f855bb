package harvester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/amishk599/jobalert/internal/model"
)

// Cached is a decorator that serves repeated requests for the same
// (category, mode, topic) from Redis for ttl. Redis failures fall through
// to the wrapped harvester.
type Cached struct {
	inner  model.Harvester
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ model.Harvester = (*Cached)(nil)

// NewCached wraps inner. source keeps keys of different sources apart.
func NewCached(inner model.Harvester, client *redis.Client, source string, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{
		inner:  inner,
		client: client,
		prefix: "jobalert:harvest:" + strings.ToLower(source),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cached) key(category model.Category, mode model.Mode, topic string) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, category, mode, slugify(topic))
}

func (c *Cached) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	key := c.key(category, mode, topic)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var postings []model.Posting
		if err := json.Unmarshal(data, &postings); err == nil {
			c.logger.Debug("harvest cache hit", "key", key, "postings", len(postings))
			return postings, nil
		}
		c.logger.Warn("discarding corrupt harvest cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("harvest cache read failed", "key", key, "error", err)
	}

	postings, err := c.inner.Fetch(ctx, category, mode, topic)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(postings)
	if err != nil {
		return postings, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("harvest cache write failed", "key", key, "error", err)
	}
	return postings, nil
}
