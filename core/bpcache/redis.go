package bpcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

const DefaultRedisPrefix = "mediaurl:breakpoints:"

// Redis shares breakpoints between hosts. Values are JSON width lists.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisWithURL connects using a redis:// or rediss:// URL.
func NewRedisWithURL(url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, coreerrors.Configuration(err, "invalid_redis_url", "parse redis url")
	}
	return NewRedis(redis.NewClient(opts), ttl), nil
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: DefaultRedisPrefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]int, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, transient(fmt.Errorf("redis get: %w", err))
	}
	var widths []int
	if err := json.Unmarshal(raw, &widths); err != nil {
		return nil, false, nil
	}
	return widths, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, widths []int) error {
	raw, err := json.Marshal(widths)
	if err != nil {
		return fmt.Errorf("encode widths: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		return transient(fmt.Errorf("redis set: %w", err))
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func transient(err error) error {
	return coreerrors.Wrap(err, coreerrors.CategoryNetworkTransient, "cache_unavailable", "check redis connectivity", true)
}
