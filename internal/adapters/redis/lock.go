package redisad

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"cinema_catalog/internal/adapters/observability"
)

const runLockKey = "lock:catalog-update"

// only the owner may release
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock keeps update runs from overlapping across processes. The TTL bounds
// how long a crashed holder blocks the next run.
type RunLock struct {
	c   *redis.Client
	ttl time.Duration
}

func NewRunLock(c *redis.Client, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RunLock{c: c, ttl: ttl}
}

func (l *RunLock) Acquire(ctx context.Context, owner string) (bool, error) {
	ok, err := l.c.SetNX(ctx, runLockKey, owner, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		observability.ObserveCache("redis", "lock")
	} else {
		observability.ObserveCache("redis", "busy")
	}
	return ok, nil
}

func (l *RunLock) Release(ctx context.Context, owner string) error {
	observability.ObserveCache("redis", "unlock")
	return releaseScript.Run(ctx, l.c, []string{runLockKey}, owner).Err()
}
