package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

func secretKey(slug string) string {
	return "gateway_secret:" + slug
}

// GetSecret returns the cached webhook secret for a gateway. found is false on a miss.
func (r *Redis) GetSecret(ctx context.Context, slug string) (secret string, found bool, err error) {
	val, err := r.Client.Get(ctx, secretKey(slug)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *Redis) SetSecret(ctx context.Context, slug, secret string, ttl time.Duration) error {
	return r.Client.Set(ctx, secretKey(slug), secret, ttl).Err()
}

// FillSecret caches a secret read from the database only if no value is cached yet,
// so a stale read never overwrites a secret written by SetSecret.
func (r *Redis) FillSecret(ctx context.Context, slug, secret string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, secretKey(slug), secret, ttl).Result()
}

func (r *Redis) InvalidateSecret(ctx context.Context, slug string) error {
	return r.Client.Del(ctx, secretKey(slug)).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
