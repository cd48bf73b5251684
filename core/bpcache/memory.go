package bpcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultMemorySize = 1024

// Memory is a bounded in-process cache. Entries expire after ttl; a zero ttl
// keeps them until evicted by size.
type Memory struct {
	entries *expirable.LRU[string, []int]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{entries: expirable.NewLRU[string, []int](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]int, bool, error) {
	widths, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]int(nil), widths...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, widths []int) error {
	m.entries.Add(key, append([]int(nil), widths...))
	return nil
}

func (m *Memory) Len() int {
	return m.entries.Len()
}

func (m *Memory) Close() error {
	m.entries.Purge()
	return nil
}
