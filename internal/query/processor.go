// Package query implements the QueryProcessor: the single
// process(query, context?) entrypoint that parses, optimizes, fans out
// search across active data sources, merges/filters/ranks the hits,
// synthesizes a response, and caches the result — the way the host's
// UnifiedSearch coalesces cache lookups, request work and frequency
// tracking behind one call.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/datasource"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/search"
	"github.com/NaggiDev/practical-rag-sub000/internal/synth"
)

const maxMergedHits = 100

// maxRecentQueries bounds the fingerprint -> original-query memory the
// processor keeps so CacheWarmer.preloadHot can materialize a hit by
// fingerprint alone. A SHA-256 fingerprint can't be reversed, so
// something upstream of the warmer has to remember what text produced
// it; the processor is the only component that ever sees both.
const maxRecentQueries = 10000

// UsageTracker receives a completed query's fingerprint, processing
// time and contributing sources. Implemented by internal/warmer;
// declared here to avoid a package cycle (mirrors warmer.Materializer).
type UsageTracker interface {
	Track(fingerprint string, processingMs float64, contributingSources []string)
}

// MetricRecorder receives a completed query's metrics record.
// Implemented by internal/health's Monitor.
type MetricRecorder interface {
	Record(rec models.QueryRecord)
}

// Deps bundles the QueryProcessor's collaborators.
type Deps struct {
	Cache      *cache.Store
	Engine     *search.Engine
	Embedder   embedding.Provider
	Sources    *datasource.Registry
	Synth      synth.Synthesizer
	Usage      UsageTracker
	Metrics    MetricRecorder
}

type activeQuery struct {
	cancel  context.CancelFunc
	startAt time.Time
	context map[string]string
}

type recentQuery struct {
	query models.Query
	at    time.Time
}

// Processor is the QueryProcessor.
type Processor struct {
	deps Deps
	cfg  configBox

	mu     sync.Mutex
	active map[string]*activeQuery

	recentMu sync.Mutex
	recent   map[string]recentQuery
}

// NewProcessor builds a Processor over its collaborators and an initial
// Config (typically seeded from config.Get()).
func NewProcessor(deps Deps, cfg Config) *Processor {
	if deps.Synth == nil {
		deps.Synth = synth.Default()
	}
	p := &Processor{
		deps:   deps,
		active: make(map[string]*activeQuery),
		recent: make(map[string]recentQuery),
	}
	p.cfg.store(normalizeConfig(cfg))
	return p
}

func normalizeConfig(c Config) Config {
	if c.MaxConcurrentQueries <= 0 {
		c.MaxConcurrentQueries = 64
	}
	if c.DefaultTimeoutMs <= 0 {
		c.DefaultTimeoutMs = 5000
	}
	if c.MaxResultsPerSource <= 0 {
		c.MaxResultsPerSource = 20
	}
	if c.QueryCacheTTLSec <= 0 {
		c.QueryCacheTTLSec = 300
	}
	return c
}

// UpdateConfig hot-applies a sparse patch, per spec.md §6's
// config.update(patch) surface.
func (p *Processor) UpdateConfig(patch Patch) {
	p.cfg.store(p.cfg.load().apply(patch))
}

// SetUsageTracker wires the CacheWarmer in after construction: the
// warmer needs the Processor as its Materializer to be built first,
// so the two collaborators can't be fully wired in a single
// constructor call on either side.
func (p *Processor) SetUsageTracker(u UsageTracker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deps.Usage = u
}

// ActiveCount reports the number of in-flight queries.
func (p *Processor) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Cancel removes the active-query record for queryID, if present. The
// underlying pipeline observes cancellation at its next suspension
// point via the context's Done channel.
func (p *Processor) Cancel(queryID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	aq, ok := p.active[queryID]
	if !ok {
		return false
	}
	aq.cancel()
	delete(p.active, queryID)
	return true
}

// QueryStatus returns the context map supplied when queryID was
// submitted, if it is still active.
func (p *Processor) QueryStatus(queryID string) (map[string]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	aq, ok := p.active[queryID]
	if !ok {
		return nil, false
	}
	return aq.context, true
}

// Health reports degraded once the in-flight table is within 10% of
// capacity, consistent with the api probe's heap-pressure signal.
func (p *Processor) Health() models.HealthStatus {
	cfg := p.cfg.load()
	active := p.ActiveCount()
	if cfg.MaxConcurrentQueries > 0 && float64(active)/float64(cfg.MaxConcurrentQueries) >= 0.9 {
		return models.HealthDegraded
	}
	return models.HealthHealthy
}

// Process runs the full pipeline for a string or models.Query input.
// It always returns a well-formed QueryResult; the only errors
// returned are CAPACITY_EXCEEDED and VALIDATION, which the spec
// requires to surface immediately instead of degrading into an
// apology result.
func (p *Processor) Process(ctx context.Context, input any, reqContext map[string]string) (models.QueryResult, error) {
	q, err := toQuery(input)
	if err != nil {
		return models.QueryResult{}, err
	}

	cfg := p.cfg.load()

	if err := p.acquire(q.ID, reqContext, cfg); err != nil {
		return models.QueryResult{}, err
	}
	defer p.release(q.ID)

	deadline := time.Duration(cfg.DefaultTimeoutMs) * time.Millisecond
	pctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	p.rebindCancel(q.ID, cancel)

	start := time.Now()
	result := p.runPipeline(pctx, q, reqContext, cfg, start)
	result.DurationMs = time.Since(start).Milliseconds()

	p.recordMetric(q, result, start)
	return result, nil
}

// Materialize re-runs the full pipeline for a fingerprint the warmer
// has decided is hot, using the original query text remembered from
// when that fingerprint was last actually requested. Implements
// warmer.Materializer.
func (p *Processor) Materialize(ctx context.Context, fingerprint string) error {
	p.recentMu.Lock()
	rq, ok := p.recent[fingerprint]
	p.recentMu.Unlock()
	if !ok {
		return fmt.Errorf("query: no remembered text for fingerprint %q", fingerprint)
	}
	_, err := p.Process(ctx, rq.query, nil)
	return err
}

func toQuery(input any) (models.Query, error) {
	var q models.Query
	switch v := input.(type) {
	case models.Query:
		q = v
	case string:
		q = models.Query{Text: v}
	default:
		return models.Query{}, validationError("query must be a string or models.Query")
	}

	trimmed := strings.TrimSpace(q.Text)
	if trimmed == "" {
		return models.Query{}, validationError("query text is empty")
	}
	if len(trimmed) > 10000 {
		return models.Query{}, validationError("query text exceeds 10000 characters")
	}
	q.Text = trimmed

	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return q, nil
}

func (p *Processor) acquire(queryID string, reqContext map[string]string, cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.active) >= cfg.MaxConcurrentQueries {
		return capacityExceeded()
	}
	p.active[queryID] = &activeQuery{cancel: func() {}, startAt: time.Now(), context: reqContext}
	return nil
}

func (p *Processor) rebindCancel(queryID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if aq, ok := p.active[queryID]; ok {
		aq.cancel = cancel
	}
}

func (p *Processor) release(queryID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, queryID)
}

// runPipeline executes parse -> optimize -> fan-out -> merge ->
// synthesize -> cache, returning an apology result on any fatal failure
// instead of propagating an error across the boundary.
func (p *Processor) runPipeline(ctx context.Context, q models.Query, reqContext map[string]string, cfg Config, start time.Time) models.QueryResult {
	fingerprint := q.Fingerprint()

	if cfg.CacheEnabled {
		if cached, ok := p.deps.Cache.GetQueryResult(ctx, fingerprint); ok {
			cached.CacheHit = true
			return cached
		}
	}

	p.rememberQuery(fingerprint, q)

	parsed := parse(q)
	opt := optimize(parsed, reqContext)

	if _, err := p.deps.Embedder.Embed(ctx, parsed.ProcessedText); err != nil {
		log.Warn().Err(err).Str("queryId", q.ID).Msg("query: embedding failed, aborting pipeline")
		return models.Apology(q.ID, "The search service is temporarily unavailable.", 0)
	}

	sources := p.deps.Sources.ListActive()
	hits, contributing := p.fanOut(ctx, parsed, opt, sources, cfg)

	merged := mergeAndFilter(hits, opt, reqContext, cfg.MinConfidenceThreshold)

	refs := topSourceRefs(merged)
	confidence := overallConfidence(merged)
	responseText, err := p.deps.Synth.Synthesize(ctx, parsed.OriginalText, merged)
	if err != nil {
		log.Warn().Err(err).Str("queryId", q.ID).Msg("query: synthesis failed")
		responseText = "I couldn't generate a response for that query right now."
		confidence = 0
		refs = nil
	}

	result := models.QueryResult{
		QueryID:    q.ID,
		Response:   responseText,
		Confidence: confidence,
		Sources:    refs,
		CacheHit:   false,
		CreatedAt:  time.Now(),
	}
	if result.Sources == nil {
		result.Sources = []models.SourceRef{}
	}

	if cfg.CacheEnabled {
		if err := p.deps.Cache.SetQueryResult(ctx, fingerprint, result, cfg.QueryCacheTTLSec); err != nil {
			log.Debug().Err(err).Str("queryId", q.ID).Msg("query: cache store failed")
		}
	}

	if p.deps.Usage != nil {
		p.deps.Usage.Track(fingerprint, float64(time.Since(start).Milliseconds()), contributing)
	}

	return result
}

func (p *Processor) rememberQuery(fingerprint string, q models.Query) {
	p.recentMu.Lock()
	defer p.recentMu.Unlock()
	if len(p.recent) >= maxRecentQueries {
		p.evictOldestLocked()
	}
	p.recent[fingerprint] = recentQuery{query: q, at: time.Now()}
}

// evictOldestLocked drops the single oldest remembered query. Called
// with recentMu held and the map already at capacity; a linear scan is
// fine since this only runs once per overflow, not once per insert.
func (p *Processor) evictOldestLocked() {
	var oldestFP string
	var oldestAt time.Time
	first := true
	for fp, rq := range p.recent {
		if first || rq.at.Before(oldestAt) {
			oldestFP, oldestAt, first = fp, rq.at, false
		}
	}
	if !first {
		delete(p.recent, oldestFP)
	}
}

// fanOut runs SearchEngine.HybridSearch once per active source, either
// concurrently (joined on completion) or sequentially depending on
// cfg.EnableParallelSearch. A per-source failure is logged and
// excluded; it never aborts the other sources or the query itself.
func (p *Processor) fanOut(ctx context.Context, parsed models.ParsedQuery, opt models.QueryOptimization, sources []models.DataSource, cfg Config) ([]models.SearchHit, []string) {
	opts := search.DefaultOptions()
	opts.TopK = cfg.MaxResultsPerSource

	if !cfg.EnableParallelSearch {
		var hits []models.SearchHit
		var contributing []string
		for _, src := range sources {
			h, err := p.searchSource(ctx, parsed, opt, src, opts)
			if err != nil {
				log.Warn().Err(err).Str("sourceId", src.ID).Msg("query: per-source search failed")
				continue
			}
			if len(h) > 0 {
				contributing = append(contributing, src.ID)
			}
			hits = append(hits, h...)
		}
		return hits, contributing
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var hits []models.SearchHit
	var contributing []string
	for _, src := range sources {
		wg.Add(1)
		go func(src models.DataSource) {
			defer wg.Done()
			h, err := p.searchSource(ctx, parsed, opt, src, opts)
			if err != nil {
				log.Warn().Err(err).Str("sourceId", src.ID).Msg("query: per-source search failed")
				return
			}
			mu.Lock()
			if len(h) > 0 {
				contributing = append(contributing, src.ID)
			}
			hits = append(hits, h...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return hits, contributing
}

func (p *Processor) searchSource(ctx context.Context, parsed models.ParsedQuery, opt models.QueryOptimization, src models.DataSource, base search.Options) ([]models.SearchHit, error) {
	opts := base
	opts.Filter = mergeFilters(opt.Filters, src.ID)
	return p.deps.Engine.HybridSearch(ctx, parsed.ProcessedText, opts)
}

// mergeFilters flattens the optimize stage's structured filters into the
// VectorStore's plain key/value filter shape (§6: "filter?" is an
// opaque map consumed by the backend, not an operator-aware query), then
// scopes the result to a single source.
func mergeFilters(filters []models.QueryFilter, sourceID string) map[string]string {
	out := make(map[string]string, len(filters)+1)
	for _, f := range filters {
		out[f.Field] = f.Value
	}
	out["sourceId"] = sourceID
	return out
}

// mergeAndFilter unions all fanned-out hits, applies the optimize
// stage's field boosts, deduplicates by contentId keeping the higher
// score, sorts descending, drops anything below the confidence floor
// and caps the result at 100 hits.
func mergeAndFilter(hits []models.SearchHit, opt models.QueryOptimization, reqContext map[string]string, minConfidence float64) []models.SearchHit {
	applyOptimizationBoosts(hits, opt, reqContext)

	best := make(map[string]models.SearchHit, len(hits))
	order := make([]string, 0, len(hits))
	for _, h := range hits {
		key := h.ContentID
		if key == "" {
			key = h.ID
		}
		if existing, ok := best[key]; !ok || h.FinalScore > existing.FinalScore {
			if !ok {
				order = append(order, key)
			}
			best[key] = h
		}
	}

	merged := make([]models.SearchHit, 0, len(order))
	for _, key := range order {
		h := best[key]
		if h.FinalScore < minConfidence {
			continue
		}
		merged = append(merged, h)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].FinalScore > merged[j].FinalScore })

	if len(merged) > maxMergedHits {
		merged = merged[:maxMergedHits]
	}
	return merged
}

// applyOptimizationBoosts multiplies a hit's final score by the
// optimize stage's "domain" boost when the hit's category matches the
// request's domain context, and by its "recent" boost when the hit
// already earned recency credit. This is the concrete reading chosen
// for the spec's "boost map (field -> multiplier)": the only two fields
// the optimize stage ever produces are domain and recent, and both
// correspond directly to signals already present on the hit.
func applyOptimizationBoosts(hits []models.SearchHit, opt models.QueryOptimization, reqContext map[string]string) {
	domainBoost, hasDomain := opt.BoostMap["domain"]
	recentBoost, hasRecent := opt.BoostMap["recent"]
	if !hasDomain && !hasRecent {
		return
	}
	domain := reqContext["domain"]

	for i := range hits {
		h := &hits[i]
		if hasDomain && domain != "" && h.Category == domain {
			h.FinalScore *= domainBoost
		}
		if hasRecent && h.RankingFactors.Recency > 0 {
			h.FinalScore *= recentBoost
		}
		if h.FinalScore > 1 {
			h.FinalScore = 1
		}
	}
}

func (p *Processor) recordMetric(q models.Query, result models.QueryResult, start time.Time) {
	if p.deps.Metrics == nil {
		return
	}
	p.deps.Metrics.Record(models.QueryRecord{
		QueryID:     q.ID,
		StartMs:     start.UnixMilli(),
		EndMs:       time.Now().UnixMilli(),
		ResponseMs:  result.DurationMs,
		Success:     true,
		Cached:      result.CacheHit,
		SourceCount: len(result.Sources),
		Confidence:  result.Confidence,
		RecordedAt:  time.Now(),
	})
}
