// Package cache implements the CacheStore: typed namespaces over a
// pluggable CacheBackend, with best-effort access-metadata tracking and
// backend-pushed eviction (allkeys-lru semantics assumed, never
// reimplemented here).
package cache

import "context"

// Backend is the collaborator interface a CacheStore is built on top
// of. It mirrors a Redis-shaped key-value store: get/setex/mget/del/
// keys/dbsize/info/ping, plus a pipelined batch form.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetEx(ctx context.Context, key string, value []byte, ttlSec int) error
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Del(ctx context.Context, keys ...string) (int, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	DBSize(ctx context.Context) (int64, error)
	Info(ctx context.Context) (map[string]string, error)
	Ping(ctx context.Context) error
	BatchSetEx(ctx context.Context, items map[string][]byte, ttlSec int) error
}
