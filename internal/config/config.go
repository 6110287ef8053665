// Package config provides configuration management for the query core.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultHTTPPort is the default HTTP port for the query service.
	DefaultHTTPPort = 37780

	// DefaultEmbeddingProvider selects the EmbeddingProvider adapter used
	// when none is configured explicitly.
	DefaultEmbeddingProvider = "openai-compatible"

	// DefaultVectorStoreBackend selects the VectorStore adapter.
	DefaultVectorStoreBackend = "pgvector"
)

// StopWords is the fixed stop-word list used by the keyword scorer.
var StopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true, "as": true,
	"from": true, "into": true, "about": true, "what": true, "which": true,
}

// Config holds every tunable knob described in the spec plus the
// ambient settings the service itself needs (ports, DSNs, warmer
// cadence).
type Config struct {
	DataSourceTimeoutMs       int64   `json:"data_source_timeout_ms"`
	RedisDSN                  string  `json:"redis_dsn"`
	PostgresDSN               string  `json:"postgres_dsn"`
	SQLiteVecPath             string  `json:"sqlitevec_path"`
	EmbeddingProvider         string  `json:"embedding_provider"`
	EmbeddingAPIKey           string  `json:"embedding_api_key"`
	EmbeddingBaseURL          string  `json:"embedding_base_url"`
	EmbeddingModel            string  `json:"embedding_model"`
	VectorStoreBackend        string  `json:"vectorstore_backend"`

	MaxConcurrentQueries      int     `json:"max_concurrent_queries"`
	DefaultTimeoutMs          int64   `json:"default_timeout_ms"`
	MaxResultsPerSource       int     `json:"max_results_per_source"`
	EmbeddingDimensions       int     `json:"embedding_dimensions"`
	HTTPPort                  int     `json:"http_port"`

	MinConfidenceThreshold    float64 `json:"min_confidence_threshold"`
	VectorWeight              float64 `json:"vector_weight"`
	KeywordWeight             float64 `json:"keyword_weight"`

	QueryCacheTTLSec          int     `json:"query_cache_ttl_sec"`
	EmbeddingCacheTTLSec      int     `json:"embedding_cache_ttl_sec"`
	ContentCacheTTLSec        int     `json:"content_cache_ttl_sec"`

	WarmerTickIntervalSec     int     `json:"warmer_tick_interval_sec"`
	WarmerPreloadBatchSize    int     `json:"warmer_preload_batch_size"`
	WarmerPopularityThreshold int64   `json:"warmer_popularity_threshold"`
	WarmerMaxAgeHours         int     `json:"warmer_max_age_hours"`

	HealthSnapshotIntervalSec int     `json:"health_snapshot_interval_sec"`
	HealthRetentionHours      int     `json:"health_retention_hours"`
	AlertConsecutiveFailures  int64   `json:"alert_consecutive_failures"`
	AlertSlowResponseMs       int64   `json:"alert_slow_response_ms"`
	AlertErrorRateThreshold   float64 `json:"alert_error_rate_threshold"`
	AlertCacheHitRateMin      float64 `json:"alert_cache_hit_rate_min"`
	AlertMemoryUsageMax       float64 `json:"alert_memory_usage_max"`
	DataSourceFailurePercentage float64 `json:"data_source_failure_percentage"`

	IndexerBatchSize          int     `json:"indexer_batch_size"`
	IndexerConcurrency        int     `json:"indexer_concurrency"`
	ChunkSize                 int     `json:"chunk_size"`
	ChunkOverlap              int     `json:"chunk_overlap"`
	MinChunkSize              int     `json:"min_chunk_size"`

	EnableParallelSearch      bool    `json:"enable_parallel_search"`
	CacheEnabled              bool    `json:"cache_enabled"`
	RerankResults             bool    `json:"rerank_results"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.rag-query-core).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rag-query-core")
}

// SettingsPath returns the settings file path. A ".yaml" sibling is also
// accepted by Load if present; JSON takes precedence when both exist.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it doesn't exist, using
// 0700 permissions (owner-only).
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}

// Default returns a Config with every knob set to its documented
// default value.
func Default() *Config {
	return &Config{
		HTTPPort:            DefaultHTTPPort,
		EmbeddingProvider:   DefaultEmbeddingProvider,
		EmbeddingBaseURL:    "https://api.openai.com/v1",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		VectorStoreBackend:  DefaultVectorStoreBackend,
		SQLiteVecPath:       filepath.Join(DataDir(), "vectors.db"),

		MaxConcurrentQueries:   64,
		DefaultTimeoutMs:       5000,
		EnableParallelSearch:   true,
		CacheEnabled:           true,
		MinConfidenceThreshold: 0.2,
		MaxResultsPerSource:    20,

		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		RerankResults: false,

		QueryCacheTTLSec:     300,
		EmbeddingCacheTTLSec: 86400,
		ContentCacheTTLSec:   3600,

		WarmerTickIntervalSec:     60,
		WarmerPreloadBatchSize:    10,
		WarmerPopularityThreshold: 3,
		WarmerMaxAgeHours:         24,

		HealthSnapshotIntervalSec:   30,
		HealthRetentionHours:        24,
		AlertConsecutiveFailures:    3,
		AlertSlowResponseMs:         2000,
		AlertErrorRateThreshold:     0.05,
		AlertCacheHitRateMin:        0.3,
		AlertMemoryUsageMax:         0.9,
		DataSourceFailurePercentage: 0.5,

		IndexerBatchSize:   25,
		IndexerConcurrency: 4,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		MinChunkSize:       100,
	}
}

// Load loads configuration from the settings file, tolerantly merging it
// over the defaults. A missing or malformed settings file never fails
// startup — it simply yields Default().
func Load() (*Config, error) {
	cfg := Default()

	settings, err := readSettings()
	if err != nil {
		log.Warn().Err(err).Msg("config: failed to parse settings file, using defaults")
		return cfg, nil
	}
	if settings == nil {
		return cfg, nil
	}

	applyString(&cfg.RedisDSN, settings, "redis_dsn")
	applyString(&cfg.PostgresDSN, settings, "postgres_dsn")
	applyString(&cfg.SQLiteVecPath, settings, "sqlitevec_path")
	applyString(&cfg.EmbeddingProvider, settings, "embedding_provider")
	applyString(&cfg.EmbeddingAPIKey, settings, "embedding_api_key")
	applyString(&cfg.EmbeddingBaseURL, settings, "embedding_base_url")
	applyString(&cfg.EmbeddingModel, settings, "embedding_model")
	applyString(&cfg.VectorStoreBackend, settings, "vectorstore_backend")

	applyInt(&cfg.MaxConcurrentQueries, settings, "max_concurrent_queries")
	applyInt64(&cfg.DefaultTimeoutMs, settings, "default_timeout_ms")
	applyInt(&cfg.MaxResultsPerSource, settings, "max_results_per_source")
	applyInt(&cfg.EmbeddingDimensions, settings, "embedding_dimensions")
	applyInt(&cfg.HTTPPort, settings, "http_port")

	applyFloat(&cfg.MinConfidenceThreshold, settings, "min_confidence_threshold")
	applyFloat(&cfg.VectorWeight, settings, "vector_weight")
	applyFloat(&cfg.KeywordWeight, settings, "keyword_weight")

	applyInt(&cfg.QueryCacheTTLSec, settings, "query_cache_ttl_sec")
	applyInt(&cfg.EmbeddingCacheTTLSec, settings, "embedding_cache_ttl_sec")
	applyInt(&cfg.ContentCacheTTLSec, settings, "content_cache_ttl_sec")

	applyInt(&cfg.WarmerTickIntervalSec, settings, "warmer_tick_interval_sec")
	applyInt(&cfg.WarmerPreloadBatchSize, settings, "warmer_preload_batch_size")
	applyInt64(&cfg.WarmerPopularityThreshold, settings, "warmer_popularity_threshold")
	applyInt(&cfg.WarmerMaxAgeHours, settings, "warmer_max_age_hours")

	applyInt(&cfg.HealthSnapshotIntervalSec, settings, "health_snapshot_interval_sec")
	applyInt(&cfg.HealthRetentionHours, settings, "health_retention_hours")
	applyInt64(&cfg.AlertConsecutiveFailures, settings, "alert_consecutive_failures")
	applyInt64(&cfg.AlertSlowResponseMs, settings, "alert_slow_response_ms")
	applyFloat(&cfg.AlertErrorRateThreshold, settings, "alert_error_rate_threshold")
	applyFloat(&cfg.AlertCacheHitRateMin, settings, "alert_cache_hit_rate_min")
	applyFloat(&cfg.AlertMemoryUsageMax, settings, "alert_memory_usage_max")
	applyFloat(&cfg.DataSourceFailurePercentage, settings, "data_source_failure_percentage")

	applyInt(&cfg.IndexerBatchSize, settings, "indexer_batch_size")
	applyInt(&cfg.IndexerConcurrency, settings, "indexer_concurrency")
	applyInt(&cfg.ChunkSize, settings, "chunk_size")
	applyInt(&cfg.ChunkOverlap, settings, "chunk_overlap")
	applyInt(&cfg.MinChunkSize, settings, "min_chunk_size")

	applyBool(&cfg.EnableParallelSearch, settings, "enable_parallel_search")
	applyBool(&cfg.CacheEnabled, settings, "cache_enabled")
	applyBool(&cfg.RerankResults, settings, "rerank_results")

	return cfg, nil
}

// readSettings loads the JSON settings file, falling back to a ".yaml"
// sibling when the JSON file doesn't exist. Returns a nil map (not an
// error) when neither file is present, so Load can fall through to
// Default().
func readSettings() (map[string]interface{}, error) {
	jsonPath := SettingsPath()
	if data, err := os.ReadFile(jsonPath); err == nil {
		var settings map[string]interface{}
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, err
		}
		return settings, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	yamlPath := strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".yaml"
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var settings map[string]interface{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func applyString(dst *string, m map[string]interface{}, key string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func numericValue(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func applyInt(dst *int, m map[string]interface{}, key string) {
	if v, ok := numericValue(m, key); ok {
		*dst = int(v)
	}
}

func applyInt64(dst *int64, m map[string]interface{}, key string) {
	if v, ok := numericValue(m, key); ok {
		*dst = int64(v)
	}
}

func applyFloat(dst *float64, m map[string]interface{}, key string) {
	if v, ok := numericValue(m, key); ok {
		*dst = v
	}
}

func applyBool(dst *bool, m map[string]interface{}, key string) {
	if v, ok := m[key].(bool); ok {
		*dst = v
	}
}

// Get returns the global configuration, loading it on first use.
func Get() *Config {
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if globalConfig != nil {
			return
		}
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Set overrides the global configuration, used by the settings-file
// watcher on hot-reload and by tests.
func Set(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig = cfg
}
