package cache

import (
	"context"
	"path/filepath"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time // zero means no expiry
}

// MemoryBackend is an in-process Backend implementation used in tests
// and local/dev runs without a Redis instance.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

// NewMemoryBackend constructs an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]memoryEntry)}
}

func (b *MemoryBackend) expired(e memoryEntry) bool {
	return !e.expireAt.IsZero() && time.Now().After(e.expireAt)
}

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	e, ok := b.data[key]
	b.mu.RUnlock()
	if !ok || b.expired(e) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (b *MemoryBackend) SetEx(ctx context.Context, key string, value []byte, ttlSec int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := memoryEntry{value: value}
	if ttlSec > 0 {
		e.expireAt = time.Now().Add(time.Duration(ttlSec) * time.Second)
	}
	b.data[key] = e
	return nil
}

func (b *MemoryBackend) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if e, ok := b.data[k]; ok && !b.expired(e) {
			result[k] = e.value
		}
	}
	return result, nil
}

func (b *MemoryBackend) Del(ctx context.Context, keys ...string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := b.data[k]; ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func (b *MemoryBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for k, e := range b.data {
		if b.expired(e) {
			continue
		}
		if ok, _ := filepath.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *MemoryBackend) DBSize(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data)), nil
}

func (b *MemoryBackend) Info(ctx context.Context) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]string{
		"used_memory":      "0",
		"evicted_keys":     "0",
		"maxmemory_policy": "allkeys-lru",
	}, nil
}

func (b *MemoryBackend) Ping(ctx context.Context) error { return nil }

func (b *MemoryBackend) BatchSetEx(ctx context.Context, items map[string][]byte, ttlSec int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var expireAt time.Time
	if ttlSec > 0 {
		expireAt = time.Now().Add(time.Duration(ttlSec) * time.Second)
	}
	for k, v := range items {
		b.data[k] = memoryEntry{value: v, expireAt: expireAt}
	}
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
