package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"graceparish.org/internal/obs"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Redis is a fixed-window limiter shared by every replica pointing at the same server.
// Any Redis failure degrades to an embedded in-memory limiter. The zero value is
// usable and limits locally.
type Redis struct {
	Client  redis.UniversalClient
	Prefix  string
	Timeout time.Duration

	fallbackOnce sync.Once
	fallback     *Memory
}

const defaultRedisTimeout = 500 * time.Millisecond

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{
		Client:  client,
		Prefix:  "rl:",
		Timeout: defaultRedisTimeout,
	}
}

func (l *Redis) local() *Memory {
	l.fallbackOnce.Do(func() {
		l.fallback = NewMemory()
	})
	return l.fallback
}

func (l *Redis) timeout() time.Duration {
	if l.Timeout <= 0 {
		return defaultRedisTimeout
	}
	return l.Timeout
}

func (l *Redis) Allow(key string, max int, span time.Duration) bool {
	if max < 1 {
		max = 1
	}
	if l.Client == nil {
		return l.local().Allow(key, max, span)
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout())
	defer cancel()

	ms := span.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	count, err := fixedWindowScript.Run(ctx, l.Client, []string{l.Prefix + key}, ms).Int64()
	if err != nil {
		obs.Warn("ratelimit redis unavailable, using local window", map[string]any{"err": err})
		return l.local().Allow(key, max, span)
	}
	return count <= int64(max)
}

func (l *Redis) Reset(key string) {
	l.local().Reset(key)
	if l.Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout())
	defer cancel()
	if err := l.Client.Del(ctx, l.Prefix+key).Err(); err != nil {
		obs.Warn("ratelimit redis reset failed", map[string]any{"err": err, "key": key})
	}
}
