package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript mirrors FixedWindow.Check in one atomic step:
// an absent (or expired) key opens a new window, a full window is
// rejected without touching the counter.
//
// Returns {allowed, remaining, pttl}.
var fixedWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local current = redis.call('GET', KEYS[1])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, limit - 1, window}
end
local count = tonumber(current)
local ttl = redis.call('PTTL', KEYS[1])
if count >= limit then
  return {0, 0, ttl}
end
count = redis.call('INCR', KEYS[1])
return {1, limit - count, ttl}
`)

// RedisWindow keeps counters in Redis so that every instance of the service
// draws from the same budget. Keys expire with their window.
type RedisWindow struct {
	rdb       redis.Scripter
	rule      Rule
	prefix    string
	namespace string
	now       func() time.Time
}

var _ Limiter = (*RedisWindow)(nil)

// NewRedisWindow builds a limiter whose keys look like
// "<prefix>:<namespace>:<clientKey>". Use a distinct namespace per endpoint.
func NewRedisWindow(rdb redis.Scripter, rule Rule, prefix, namespace string) (*RedisWindow, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if rule.Limit <= 0 || rule.Window < time.Millisecond {
		return nil, fmt.Errorf("rate limit rule must have positive values")
	}
	return &RedisWindow{
		rdb:       rdb,
		rule:      rule,
		prefix:    strings.Trim(prefix, ":"),
		namespace: strings.Trim(namespace, ":"),
		now:       time.Now,
	}, nil
}

func (l *RedisWindow) Rule() Rule { return l.rule }

func (l *RedisWindow) key(clientKey string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, l.namespace, clientKey)
}

func (l *RedisWindow) Check(ctx context.Context, clientKey string) (Decision, error) {
	res, err := fixedWindowScript.Run(ctx, l.rdb,
		[]string{l.key(clientKey)},
		l.rule.Limit, l.rule.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	remaining := int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	ttl := time.Duration(res[2]) * time.Millisecond
	if ttl < 0 {
		ttl = l.rule.Window
	}

	return Decision{
		Allowed:   res[0] == 1,
		Remaining: remaining,
		Limit:     l.rule.Limit,
		ResetAt:   l.now().Add(ttl),
	}, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.ConnMaxIdleTime = 5 * time.Minute

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}
