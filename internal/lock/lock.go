// Package lock provides the leases that keep a cycle from running twice at
// once, in one process or across several.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrHeld is returned by Acquire when another holder owns the lease.
var ErrHeld = errors.New("lease held elsewhere")

// Lease is a named mutual-exclusion token. Release must be called with the
// token returned by Acquire.
type Lease interface {
	Acquire(ctx context.Context) (token string, err error)
	Release(ctx context.Context, token string) error
}

// Local is an in-process lease.
type Local struct {
	mu    sync.Mutex
	token string
}

var _ Lease = (*Local)(nil)

func (l *Local) Acquire(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" {
		return "", ErrHeld
	}
	l.token = uuid.NewString()
	return l.token, nil
}

func (l *Local) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == token {
		l.token = ""
	}
	return nil
}

// releaseScript deletes the key only when it still holds our token, so an
// expired lease re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease stored under a single key with an expiry, shared by
// every process pointing at the same server.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ Lease = (*Redis)(nil)

// NewRedis returns a lease on key. ttl bounds how long a crashed holder can
// block others.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl}
}

// Dial connects to a Redis server and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (r *Redis) Acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquiring lease %s: %w", r.key, err)
	}
	if !ok {
		return "", ErrHeld
	}
	return token, nil
}

func (r *Redis) Release(ctx context.Context, token string) error {
	err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("releasing lease %s: %w", r.key, err)
	}
	return nil
}
