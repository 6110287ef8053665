package query

import "sync/atomic"

// Config holds the hot-updatable knobs §4.1 recognizes. It is stored
// behind an atomic pointer so config.update(patch) never races an
// in-flight Process call reading it.
type Config struct {
	MaxConcurrentQueries   int
	DefaultTimeoutMs       int64
	EnableParallelSearch   bool
	CacheEnabled           bool
	MinConfidenceThreshold float64
	MaxResultsPerSource    int
	QueryCacheTTLSec       int
}

// Patch carries a sparse update: nil fields are left untouched. Used by
// config.update(patch) at the hosting surface.
type Patch struct {
	MaxConcurrentQueries   *int
	DefaultTimeoutMs       *int64
	EnableParallelSearch   *bool
	CacheEnabled           *bool
	MinConfidenceThreshold *float64
	MaxResultsPerSource    *int
	QueryCacheTTLSec       *int
}

func (c Config) apply(p Patch) Config {
	if p.MaxConcurrentQueries != nil {
		c.MaxConcurrentQueries = *p.MaxConcurrentQueries
	}
	if p.DefaultTimeoutMs != nil {
		c.DefaultTimeoutMs = *p.DefaultTimeoutMs
	}
	if p.EnableParallelSearch != nil {
		c.EnableParallelSearch = *p.EnableParallelSearch
	}
	if p.CacheEnabled != nil {
		c.CacheEnabled = *p.CacheEnabled
	}
	if p.MinConfidenceThreshold != nil {
		c.MinConfidenceThreshold = *p.MinConfidenceThreshold
	}
	if p.MaxResultsPerSource != nil {
		c.MaxResultsPerSource = *p.MaxResultsPerSource
	}
	if p.QueryCacheTTLSec != nil {
		c.QueryCacheTTLSec = *p.QueryCacheTTLSec
	}
	return c
}

// configBox is the atomic.Pointer[Config] wrapper; a named type keeps
// the zero value usable without an explicit Store in every test.
type configBox struct {
	v atomic.Pointer[Config]
}

func (b *configBox) load() Config {
	p := b.v.Load()
	if p == nil {
		return Config{}
	}
	return *p
}

func (b *configBox) store(c Config) {
	cp := c
	b.v.Store(&cp)
}
