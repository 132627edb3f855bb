package harvester

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/amishk599/jobalert/internal/model"
)

func TestCached_ServesRepeatFromRedis(t *testing.T) {
	addr := os.Getenv("JOBALERT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("JOBALERT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	inner := &stubHarvester{postings: []model.Posting{{Title: "SRE", Organization: "Acme"}}}
	c := NewCached(inner, client, "test-"+t.Name(), time.Minute, discardLogger())
	client.Del(ctx, c.key(model.CategoryJob, model.ModeRemote, "DevOps"))

	for range 2 {
		got, err := c.Fetch(ctx, model.CategoryJob, model.ModeRemote, "DevOps")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) != 1 || got[0].Title != "SRE" {
			t.Fatalf("unexpected postings: %+v", got)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected inner harvester called once, got %d", inner.calls)
	}
}

func TestCached_FallsThroughWhenRedisDown(t *testing.T) {
	// Nothing listens on port 1.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	inner := &stubHarvester{postings: []model.Posting{{Title: "SRE"}}}
	c := NewCached(inner, client, "linkedin", time.Minute, discardLogger())

	got, err := c.Fetch(context.Background(), model.CategoryJob, model.ModeRemote, "DevOps")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || inner.calls != 1 {
		t.Errorf("expected fall-through to inner harvester, got %+v after %d calls", got, inner.calls)
	}
}
