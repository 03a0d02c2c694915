package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for an atomic fixed-window counter.
// The expiry is set on the first hit, and repaired if a previous run
// incremented the key but never set its TTL.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) == -1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisCounter is a CounterStore shared by every process using the same
// Redis instance.
type RedisCounter struct {
	redisClient *redis.Client
	script      *redis.Script
}

func NewRedisCounter(redisClient *redis.Client) *RedisCounter {
	return &RedisCounter{
		redisClient: redisClient,
		script:      fixedWindowScript,
	}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	count, err := c.script.Run(ctx, c.redisClient, []string{key}, ms).Int64()
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", key, err)
	}
	return count, nil
}
