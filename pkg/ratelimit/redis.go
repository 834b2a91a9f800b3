package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flashpointintel/pipeline/pkg/metrics"
)

// slidingWindowScript implements a Redis sorted-set sliding-window log:
// it prunes entries older than the window, counts what remains, and
// admits the new request only if under the limit — all atomically so
// concurrent pipeline-runner processes share one true window.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window_ms)
local count = redis.call("ZCARD", key)
if count >= limit then
	return 0
end
redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window_ms)
return 1
`

// Redis is a Redis-backed sliding-window limiter, sharing its budget
// across every process pointed at the same key (spec.md §5: the rate
// limiter is explicitly a shared resource, unlike the per-process
// circuit breaker and dedupe engine).
type Redis struct {
	client  *redis.Client
	key     string
	limit   int
	window  time.Duration
	poll    time.Duration
	counter uint64
}

// NewRedis builds a Redis-backed limiter for rpm requests per 60-second
// window, keyed by key (e.g. "llm:summarize:rpm").
func NewRedis(client *redis.Client, key string, rpm int) *Redis {
	return &Redis{
		client: client,
		key:    key,
		limit:  rpm,
		window: time.Minute,
		poll:   200 * time.Millisecond,
	}
}

// Wait blocks, polling the shared window, until a slot opens or ctx is
// canceled.
func (r *Redis) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.RecordLLMLimiterWait(time.Since(start)) }()
	for {
		admitted, err := r.tryAcquire(ctx)
		if err != nil {
			return &Error{Cause: err}
		}
		if admitted {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
		}
	}
}

func (r *Redis) tryAcquire(ctx context.Context) (bool, error) {
	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%d", now, atomic.AddUint64(&r.counter, 1))
	result, err := r.client.Eval(ctx, slidingWindowScript, []string{r.key},
		now, r.window.Milliseconds(), r.limit, member).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
