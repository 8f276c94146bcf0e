package store

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// KV is the subset of Redis the unit lock needs.
type KV interface {
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	// DeleteIfEquals removes key only while it still holds value.
	DeleteIfEquals(ctx context.Context, key string, value string) (bool, error)
}

type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisKV) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return r.c.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisKV) DeleteIfEquals(ctx context.Context, key string, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, r.c, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
