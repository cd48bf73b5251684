package bpcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

func exerciseBackend(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := backend.Get(ctx, "abc123"); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}
	if err := backend.Set(ctx, "abc123", []int{100, 200, 300}); err != nil {
		t.Fatalf("set: %v", err)
	}
	widths, ok, err := backend.Get(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(widths, []int{100, 200, 300}) {
		t.Fatalf("unexpected widths: %v", widths)
	}
	if err := backend.Set(ctx, "abc123", []int{50}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	widths, _, _ = backend.Get(ctx, "abc123")
	if !reflect.DeepEqual(widths, []int{50}) {
		t.Fatalf("expected last write to win, got %v", widths)
	}
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemory(0, 0))
}

func TestMemoryEvictsBySize(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(2, 0)
	for _, key := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, key, []int{1}); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected two entries, got %d", cache.Len())
	}
	if _, ok, _ := cache.Get(ctx, "a"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(4, 0)
	source := []int{1, 2}
	_ = cache.Set(ctx, "k", source)
	source[0] = 99
	got, _, _ := cache.Get(ctx, "k")
	got[1] = 42
	again, _, _ := cache.Get(ctx, "k")
	if !reflect.DeepEqual(again, []int{1, 2}) {
		t.Fatalf("cache entry was mutated: %v", again)
	}
}

func TestFileBackend(t *testing.T) {
	cache, err := NewFile(filepath.Join(t.TempDir(), "cache"), 0)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	exerciseBackend(t, cache)
}

func TestFileBackendExpiry(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFile(dir, time.Minute)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	now := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return now }
	ctx := context.Background()
	if err := cache.Set(ctx, "k", []int{10}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Fatalf("expected fresh entry to hit")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "k.json")); !os.IsNotExist(err) {
		t.Fatalf("expected expired entry to be removed, stat err=%v", err)
	}
}

func TestFileBackendRejectsUnsafeKeys(t *testing.T) {
	cache, err := NewFile(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	err = cache.Set(context.Background(), "../escape", []int{1})
	if coreerrors.CategoryOf(err) != coreerrors.CategoryInvalidInput {
		t.Fatalf("expected invalid input for unsafe key, got %v", err)
	}
}

func TestFileBackendCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFile(dir, 0)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "k.json"), []byte("{"), 0o600); err != nil {
		t.Fatalf("write corrupt entry: %v", err)
	}
	if _, ok, err := cache.Get(context.Background(), "k"); ok || err != nil {
		t.Fatalf("expected corrupt entry to miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisBackend(t *testing.T) {
	mr := newMiniredis(t)
	cache, err := NewRedisWithURL("redis://"+mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	exerciseBackend(t, cache)

	if !mr.Exists(DefaultRedisPrefix + "abc123") {
		t.Fatalf("expected prefixed key in redis")
	}
	if ttl := mr.TTL(DefaultRedisPrefix + "abc123"); ttl != time.Hour {
		t.Fatalf("expected ttl of one hour, got %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, ok, _ := cache.Get(context.Background(), "abc123"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestRedisBackendUnavailable(t *testing.T) {
	mr := newMiniredis(t)
	cache, err := NewRedisWithURL("redis://"+mr.Addr(), 0)
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	mr.Close()

	_, _, err = cache.Get(context.Background(), "k")
	if coreerrors.CategoryOf(err) != coreerrors.CategoryNetworkTransient || !coreerrors.RetryableOf(err) {
		t.Fatalf("expected retryable transient error, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	backend, err := Open(Settings{Backend: "none"})
	if err != nil || backend != nil {
		t.Fatalf("expected nil backend for none, got %v %v", backend, err)
	}
	backend, err = Open(Settings{Backend: "Memory", MemorySize: 8})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := backend.(*Memory); !ok {
		t.Fatalf("expected memory backend, got %T", backend)
	}
	backend, err = Open(Settings{Backend: "file", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	if _, ok := backend.(*File); !ok {
		t.Fatalf("expected file backend, got %T", backend)
	}
	mr := newMiniredis(t)
	backend, err = Open(Settings{Backend: "redis", RedisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	_ = backend.Close()

	if _, err := Open(Settings{Backend: "redis"}); coreerrors.CategoryOf(err) != coreerrors.CategoryConfiguration {
		t.Fatalf("expected configuration error for redis without url, got %v", err)
	}
	if _, err := Open(Settings{Backend: "memcached"}); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
	if _, err := Open(Settings{Backend: "file"}); coreerrors.CategoryOf(err) != coreerrors.CategoryConfiguration {
		t.Fatalf("expected configuration error for file without dir, got %v", err)
	}
}
