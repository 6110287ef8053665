package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisBackend implements Backend over a pooled Redis connection using
// redigo, the way a production CacheBackend is expected to be wired.
type RedisBackend struct {
	pool *redis.Pool
}

// RedisConfig configures the connection pool backing a RedisBackend.
type RedisConfig struct {
	Addr        string
	Password    string
	MaxIdle     int
	MaxActive   int
	IdleTimeout time.Duration
}

// NewRedisBackend builds a RedisBackend with a lazily-dialed connection
// pool. Dialing happens on first use, not at construction time, so a
// temporarily unreachable Redis never blocks startup.
func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	if cfg.MaxIdle == 0 {
		cfg.MaxIdle = 8
	}
	if cfg.MaxActive == 0 {
		cfg.MaxActive = 64
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}

	pool := &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		MaxActive:   cfg.MaxActive,
		IdleTimeout: cfg.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialConnectTimeout(2 * time.Second)}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			return redis.Dial("tcp", cfg.Addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	return &RedisBackend{pool: pool}
}

// Get fetches the raw value stored at key. The bool result reports
// whether the key existed.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c := b.pool.Get()
	defer c.Close()

	reply, err := redis.Bytes(c.Do("GET", key))
	if err == redis.ErrNil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return reply, true, nil
}

// SetEx stores value at key with a TTL in seconds. A non-positive TTL
// means no expiry.
func (b *RedisBackend) SetEx(ctx context.Context, key string, value []byte, ttlSec int) error {
	c := b.pool.Get()
	defer c.Close()

	var err error
	if ttlSec > 0 {
		_, err = c.Do("SETEX", key, ttlSec, value)
	} else {
		_, err = c.Do("SET", key, value)
	}
	if err != nil {
		return fmt.Errorf("redis setex %q: %w", key, err)
	}
	return nil
}

// MGet fetches multiple keys in one round trip, omitting keys that
// don't exist from the result map.
func (b *RedisBackend) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	c := b.pool.Get()
	defer c.Close()

	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	values, err := redis.ByteSlices(c.Do("MGET", args...))
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	result := make(map[string][]byte, len(keys))
	for i, v := range values {
		if v != nil {
			result[keys[i]] = v
		}
	}
	return result, nil
}

// Del deletes the given keys and returns how many were actually
// removed.
func (b *RedisBackend) Del(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	c := b.pool.Get()
	defer c.Close()

	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	n, err := redis.Int(c.Do("DEL", args...))
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return n, nil
}

// Keys scans for keys matching a glob pattern. It uses KEYS rather than
// a cursor-based SCAN, acceptable for the namespace-invalidation volumes
// this store deals in (one fingerprint/content id at a time).
func (b *RedisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	c := b.pool.Get()
	defer c.Close()

	keys, err := redis.Strings(c.Do("KEYS", pattern))
	if err != nil {
		return nil, fmt.Errorf("redis keys %q: %w", pattern, err)
	}
	return keys, nil
}

// DBSize reports the total key count in the selected database.
func (b *RedisBackend) DBSize(ctx context.Context) (int64, error) {
	c := b.pool.Get()
	defer c.Close()

	n, err := redis.Int64(c.Do("DBSIZE"))
	if err != nil {
		return 0, fmt.Errorf("redis dbsize: %w", err)
	}
	return n, nil
}

// Info parses the Redis INFO reply into a flat key-value map, which is
// enough to pull memory usage and eviction counters for CacheStore.stats.
func (b *RedisBackend) Info(ctx context.Context) (map[string]string, error) {
	c := b.pool.Get()
	defer c.Close()

	reply, err := redis.String(c.Do("INFO"))
	if err != nil {
		return nil, fmt.Errorf("redis info: %w", err)
	}

	info := make(map[string]string)
	for _, line := range strings.Split(reply, "\r\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			info[parts[0]] = parts[1]
		}
	}
	return info, nil
}

// Ping verifies connectivity for health checks.
func (b *RedisBackend) Ping(ctx context.Context) error {
	c := b.pool.Get()
	defer c.Close()

	if _, err := c.Do("PING"); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// BatchSetEx stores multiple key/value pairs sharing one TTL in a single
// pipelined round trip, matching the CacheBackend's pipelined batch
// contract.
func (b *RedisBackend) BatchSetEx(ctx context.Context, items map[string][]byte, ttlSec int) error {
	if len(items) == 0 {
		return nil
	}

	c := b.pool.Get()
	defer c.Close()

	for key, value := range items {
		if ttlSec > 0 {
			if err := c.Send("SETEX", key, ttlSec, value); err != nil {
				return fmt.Errorf("redis pipeline setex %q: %w", key, err)
			}
		} else if err := c.Send("SET", key, value); err != nil {
			return fmt.Errorf("redis pipeline set %q: %w", key, err)
		}
	}
	if err := c.Flush(); err != nil {
		return fmt.Errorf("redis pipeline flush: %w", err)
	}
	for range items {
		if _, err := c.Receive(); err != nil {
			return fmt.Errorf("redis pipeline receive: %w", err)
		}
	}
	return nil
}

var _ Backend = (*RedisBackend)(nil)
