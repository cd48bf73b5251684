// Package bpcache provides breakpoint cache backends keyed by asset
// fingerprint.
package bpcache

import (
	"context"
	"errors"
	"strings"
	"time"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

var ErrUnknownBackend = errors.New("unknown cache backend")

// Backend is a cache plus its shutdown hook.
type Backend interface {
	Get(ctx context.Context, key string) ([]int, bool, error)
	Set(ctx context.Context, key string, widths []int) error
	Close() error
}

type Settings struct {
	Backend    string        `yaml:"backend"`
	MemorySize int           `yaml:"memory_size"`
	Dir        string        `yaml:"dir"`
	RedisURL   string        `yaml:"redis_url"`
	TTL        time.Duration `yaml:"ttl"`
}

// Open returns the configured backend, or nil for "none".
func Open(settings Settings) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemory(settings.MemorySize, settings.TTL), nil
	case BackendFile:
		file, err := NewFile(settings.Dir, settings.TTL)
		if err != nil {
			return nil, err
		}
		return file, nil
	case BackendRedis:
		if settings.RedisURL == "" {
			return nil, coreerrors.Configuration(nil, "missing_redis_url", "redis cache requires redis_url")
		}
		client, err := NewRedisWithURL(settings.RedisURL, settings.TTL)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, coreerrors.Configuration(ErrUnknownBackend, "unknown_cache_backend", "backend %q is not one of none, memory, file, redis", settings.Backend)
	}
}
