// Package models contains the domain types shared across the query
// pipeline: queries, parsed/optimized queries, search hits, results and
// the cache/usage bookkeeping types layered on top of them.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Query is the inbound request to the query processor.
type Query struct {
	ID      string            `json:"id"`
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Fingerprint computes a stable content-addressable key for this query,
// used for cache lookups and idempotence checks. It is a SHA-256 digest
// over the trimmed query text, the context map and the filters map, each
// serialized in canonical (sorted-key) order so that two logically
// identical queries always collide to the same fingerprint regardless of
// map iteration order.
func (q Query) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(q.Text)))
	h.Write([]byte{0})
	writeCanonicalMap(h, q.Context)
	h.Write([]byte{0})
	writeCanonicalMap(h, q.Filters)
	return hex.EncodeToString(h.Sum(nil))
}

func writeCanonicalMap(h interface{ Write([]byte) (int, error) }, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(m[k]))
		h.Write([]byte{';'})
	}
}

// QueryIntent classifies the coarse intent a parsed query expresses.
type QueryIntent string

const (
	IntentQuestion    QueryIntent = "question"
	IntentCommand     QueryIntent = "command"
	IntentDefinition  QueryIntent = "definition"
	IntentComparison  QueryIntent = "comparison"
	IntentGeneral     QueryIntent = "general"
)

// QueryFilter is a single structured filter extracted from a query's
// text, e.g. a date-relative bound or a type constraint: {field,
// operator, value}.
type QueryFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// ParsedQuery is the output of the parse stage: normalized text plus the
// structured entities, filters and intent extracted from the raw query.
type ParsedQuery struct {
	OriginalText  string        `json:"originalText"`
	ProcessedText string        `json:"processedText"`
	Intent        QueryIntent   `json:"intent"`
	Entities      []string      `json:"entities"`
	Filters       []QueryFilter `json:"filters"`
}

// QueryOptimization is the output of the optimize stage: the expanded
// term set, the filters carried forward from parsing, and per-term
// boost weights used to steer search.
type QueryOptimization struct {
	ExpandedTerms []string           `json:"expandedTerms"`
	SynonymMap    map[string]string  `json:"synonymMap"`
	Filters       []QueryFilter      `json:"filters"`
	BoostMap      map[string]float64 `json:"boostMap"`
}

// SourceRef is a single cited source attached to a synthesized result.
type SourceRef struct {
	ContentID  string  `json:"contentId"`
	SourceID   string  `json:"sourceId"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence"`
}

// QueryResult is the value process() always returns, whether the query
// succeeded, partially succeeded, or failed entirely.
type QueryResult struct {
	QueryID    string      `json:"queryId"`
	Response   string      `json:"response"`
	Confidence float64     `json:"confidence"`
	Sources    []SourceRef `json:"sources"`
	CacheHit   bool        `json:"cacheHit"`
	DurationMs int64       `json:"durationMs"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Apology builds the well-formed failure result required whenever the
// pipeline cannot produce a real answer: zero confidence, no sources,
// but always a valid QueryResult carrying the original queryId.
func Apology(queryID, reason string, elapsed time.Duration) QueryResult {
	return QueryResult{
		QueryID:    queryID,
		Response:   "I wasn't able to find a confident answer to that. " + reason,
		Confidence: 0,
		Sources:    []SourceRef{},
		CacheHit:   false,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}
}

// RankingFactors breaks a SearchHit's FinalScore down into the signal
// each contributed, per the SearchEngine fusion/boost formulas.
type RankingFactors struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword,omitempty"`
	Metadata float64 `json:"metadata"`
	Recency  float64 `json:"recency"`
}

// SearchHit is a single candidate returned by a data source before
// merge/filter/synthesis.
type SearchHit struct {
	ID             string            `json:"id"`
	ContentID      string            `json:"contentId"`
	SourceID       string            `json:"sourceId"`
	Title          string            `json:"title"`
	Text           string            `json:"text"`
	Category       string            `json:"category,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	VectorScore    float64           `json:"vectorScore,omitempty"`
	KeywordScore   float64           `json:"keywordScore,omitempty"`
	FinalScore     float64           `json:"finalScore"`
	RankingFactors RankingFactors    `json:"rankingFactors"`
	CreatedAt      time.Time         `json:"createdAt,omitempty"`
	ModifiedAt     time.Time         `json:"modifiedAt,omitempty"`
	URL            string            `json:"url,omitempty"`
}

// MarshalCacheValue serializes v using the faster goccy/go-json codec,
// matching the encoding used for every CacheStore payload.
func MarshalCacheValue(v any) ([]byte, error) {
	return json.Marshal(v)
}
