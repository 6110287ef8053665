// Package warmer implements the CacheWarmer: a popularity model built
// from query usage that proactively re-exercises the query pipeline
// for hot fingerprints, the way the host's background refresh loops
// keep derived state warm ahead of request time.
package warmer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

const patternPrefixLen = 8

// Materializer re-runs the query pipeline for a fingerprint whose
// result isn't present in cache, the way preloadHot "triggers the
// query pipeline to materialize" a hot entry. Implemented by
// internal/query's Processor; declared here to avoid a package cycle.
type Materializer interface {
	Materialize(ctx context.Context, fingerprint string) error
}

// Config tunes the warmer's ticking and preload behavior.
type Config struct {
	TickInterval        time.Duration
	PreloadBatchSize    int
	PopularityThreshold int64
	MaxAge              time.Duration
}

// Warmer is the CacheWarmer collaborator.
type Warmer struct {
	mu sync.Mutex

	cache        *cache.Store
	materializer Materializer
	cfg          Config

	usageStats map[string]models.UsageStat
	patterns   map[string]models.PatternStat

	isWarming bool
	stopCh    chan struct{}
	ticker    *time.Ticker
}

// New builds a Warmer over a CacheStore and the pipeline entrypoint it
// materializes hot fingerprints against.
func New(cacheStore *cache.Store, materializer Materializer, cfg Config) *Warmer {
	if cfg.PreloadBatchSize <= 0 {
		cfg.PreloadBatchSize = 10
	}
	if cfg.PopularityThreshold <= 0 {
		cfg.PopularityThreshold = 3
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	return &Warmer{
		cache:        cacheStore,
		materializer: materializer,
		cfg:          cfg,
		usageStats:   make(map[string]models.UsageStat),
		patterns:     make(map[string]models.PatternStat),
	}
}

// Track records a processed query's usage: rolling-average processing
// time, union-extended contributing sources, and an updated pattern
// entry and priority score.
func (w *Warmer) Track(fp string, processingMs float64, contributingSources []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	stat, ok := w.usageStats[fp]
	if !ok {
		stat = models.UsageStat{Fingerprint: fp}
	}
	if ok {
		// Intentional recency-weighted estimate, not a true running
		// mean: recent processing times move the average faster than
		// a cumulative mean would.
		stat.AvgProcessingMs = (stat.AvgProcessingMs + processingMs) / 2
	} else {
		stat.AvgProcessingMs = processingMs
	}
	stat.Count++
	stat.Sources = unionStrings(stat.Sources, contributingSources)
	stat.LastSeen = now
	w.usageStats[fp] = stat

	w.updatePattern(fp, now)
}

func (w *Warmer) updatePattern(fp string, now time.Time) {
	prefix := fp
	if len(prefix) > patternPrefixLen {
		prefix = prefix[:patternPrefixLen]
	}
	pat, ok := w.patterns[prefix]
	if !ok {
		pat = models.PatternStat{Prefix: prefix}
	}
	age := now.Sub(pat.LastUsed)
	pat.Frequency++
	pat.LastUsed = now

	recency := 1 - float64(age)/float64(w.cfg.MaxAge)
	if recency < 0 {
		recency = 0
	}
	freqFactor := float64(pat.Frequency) / 100
	if freqFactor > 1 {
		freqFactor = 1
	}
	pat.Priority = 0.6*recency + 0.4*freqFactor
	w.patterns[prefix] = pat
}

// Popular ranks fingerprints with age < maxAge and count >= the
// popularity threshold by count/(age+1), returning up to limit.
func (w *Warmer) Popular(limit int) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	type scored struct {
		fp    string
		score float64
	}
	var candidates []scored
	for fp, stat := range w.usageStats {
		age := now.Sub(stat.LastSeen)
		if age >= w.cfg.MaxAge {
			continue
		}
		if stat.Count < w.cfg.PopularityThreshold {
			continue
		}
		score := float64(stat.Count) * (1 / (age.Seconds() + 1))
		candidates = append(candidates, scored{fp, score})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = candidates[i].fp
	}
	return out
}

// PreloadHot re-materializes popular fingerprints missing from cache,
// in batches, pausing briefly between batches to spread load. Bails
// immediately if a preload is already running.
func (w *Warmer) PreloadHot(ctx context.Context) {
	w.mu.Lock()
	if w.isWarming {
		w.mu.Unlock()
		return
	}
	w.isWarming = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.isWarming = false
		w.mu.Unlock()
	}()

	fps := w.Popular(len(w.usageStats))
	w.preloadBatched(ctx, fps)
}

func (w *Warmer) preloadBatched(ctx context.Context, fps []string) {
	batchSize := w.cfg.PreloadBatchSize
	for start := 0; start < len(fps); start += batchSize {
		end := start + batchSize
		if end > len(fps) {
			end = len(fps)
		}
		for _, fp := range fps[start:end] {
			w.preloadOne(ctx, fp)
		}
		if end < len(fps) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}

func (w *Warmer) preloadOne(ctx context.Context, fp string) {
	if _, found := w.cache.GetQueryResult(ctx, fp); found {
		return
	}
	if w.materializer == nil {
		return
	}
	if err := w.materializer.Materialize(ctx, fp); err != nil {
		log.Warn().Err(err).Str("fingerprint", fp).Msg("warmer: preload failed")
	}
}

// InvalidateForSource drops every cached query and content entry tied
// to a source, and forgets usage stats that reference it, the way a
// source removal/refresh needs stale warmed entries purged.
func (w *Warmer) InvalidateForSource(ctx context.Context, sourceID string) {
	w.mu.Lock()
	var affected []string
	for fp, stat := range w.usageStats {
		if containsString(stat.Sources, sourceID) {
			affected = append(affected, fp)
		}
	}
	for _, fp := range affected {
		delete(w.usageStats, fp)
	}
	w.mu.Unlock()

	for _, fp := range affected {
		_ = w.cache.Invalidate(ctx, "query", fp)
	}
	_ = w.cache.Invalidate(ctx, "content", sourceID)
}

// Tick runs one warming cycle: stale-stat cleanup, a full preloadHot
// pass, then a targeted pass over the top-priority patterns.
func (w *Warmer) Tick(ctx context.Context) {
	w.cleanupStale()
	w.PreloadHot(ctx)
	w.warmTopPatterns(ctx)
}

func (w *Warmer) cleanupStale() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for fp, stat := range w.usageStats {
		if now.Sub(stat.LastSeen) >= w.cfg.MaxAge {
			delete(w.usageStats, fp)
		}
	}
}

// warmTopPatterns preloads up to 3 fingerprints per pattern for the
// top 5 patterns whose priority exceeds 0.5.
func (w *Warmer) warmTopPatterns(ctx context.Context) {
	const (
		topPatternCount   = 5
		maxStatsPerPattern = 3
		priorityThreshold  = 0.5
	)

	w.mu.Lock()
	type ranked struct {
		prefix string
		pat    models.PatternStat
	}
	var pats []ranked
	for prefix, pat := range w.patterns {
		if pat.Priority > priorityThreshold {
			pats = append(pats, ranked{prefix, pat})
		}
	}
	sort.Slice(pats, func(i, j int) bool { return pats[i].pat.Priority > pats[j].pat.Priority })
	if len(pats) > topPatternCount {
		pats = pats[:topPatternCount]
	}

	fpsToWarm := make([]string, 0, len(pats)*maxStatsPerPattern)
	for _, p := range pats {
		count := 0
		for fp := range w.usageStats {
			if count >= maxStatsPerPattern {
				break
			}
			if strings.HasPrefix(fp, p.prefix) {
				fpsToWarm = append(fpsToWarm, fp)
				count++
			}
		}
	}
	w.mu.Unlock()

	for _, fp := range fpsToWarm {
		w.preloadOne(ctx, fp)
	}
}

// Start begins ticking on cfg.TickInterval until Stop is called. Safe
// to call at most once per Warmer instance.
func (w *Warmer) Start(ctx context.Context) {
	w.mu.Lock()
	if w.ticker != nil {
		w.mu.Unlock()
		return
	}
	w.ticker = time.NewTicker(w.cfg.TickInterval)
	w.stopCh = make(chan struct{})
	ticker := w.ticker
	stop := w.stopCh
	w.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				w.Tick(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the warming interval safely.
func (w *Warmer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ticker == nil {
		return
	}
	w.ticker.Stop()
	close(w.stopCh)
	w.ticker = nil
}

// UpdateConfig swaps the ticking interval, restarting the timer if
// already running.
func (w *Warmer) UpdateConfig(ctx context.Context, cfg Config) {
	w.mu.Lock()
	running := w.ticker != nil
	w.mu.Unlock()

	if running {
		w.Stop()
	}
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	if running {
		w.Start(ctx)
	}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
