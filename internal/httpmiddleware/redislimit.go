package httpmiddleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow is a fixed one-minute window limiter shared by every API instance.
type RedisWindow struct {
	client    *redis.Client
	perMinute int
	prefix    string
	now       func() time.Time
}

func NewRedisWindow(client *redis.Client, perMinute int) *RedisWindow {
	return &RedisWindow{client: client, perMinute: perMinute, prefix: "campus:ratelimit:", now: time.Now}
}

func (w *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	window := w.now().Unix() / 60
	k := fmt.Sprintf("%s%s:%d", w.prefix, key, window)

	pipe := w.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= int64(w.perMinute), nil
}
