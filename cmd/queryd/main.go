// Package main provides the entry point for the query service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/config"
	"github.com/NaggiDev/practical-rag-sub000/internal/datasource"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/health"
	"github.com/NaggiDev/practical-rag-sub000/internal/httpapi"
	"github.com/NaggiDev/practical-rag-sub000/internal/indexer"
	"github.com/NaggiDev/practical-rag-sub000/internal/query"
	"github.com/NaggiDev/practical-rag-sub000/internal/search"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore/memory"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore/pgvector"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore/sqlitevec"
	"github.com/NaggiDev/practical-rag-sub000/internal/warmer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Str("version", Version).Msg("starting query service")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	config.Set(cfg)

	cacheStore, err := buildCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build cache")
	}

	embedder, err := embedding.GetProvider(cfg.EmbeddingProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build embedding provider")
	}

	store, closeStore, err := buildVectorStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build vector store")
	}
	if closeStore != nil {
		defer closeStore()
	}

	engine := search.NewEngine(embedder, store)
	registry := datasource.NewRegistry()
	idx := indexer.New(cacheStore, embedder, store, cfg.IndexerBatchSize, cfg.IndexerConcurrency, cfg.EmbeddingCacheTTLSec)

	monitor := health.NewMonitor(time.Duration(cfg.HealthRetentionHours)*time.Hour, health.Thresholds{
		ConsecutiveFailures: cfg.AlertConsecutiveFailures,
		SlowResponseMs:      cfg.AlertSlowResponseMs,
		ErrorRateThreshold:  cfg.AlertErrorRateThreshold,
		CacheHitRateMin:     cfg.AlertCacheHitRateMin,
		MemoryUsageMax:      cfg.AlertMemoryUsageMax,
	})

	healthSvc := health.NewService(health.Deps{
		Cache:    cacheStore,
		Sources:  registry,
		Embedder: embedder,
		Store:    store,
		Metrics:  monitor,
	}, monitor, time.Duration(cfg.HealthSnapshotIntervalSec)*time.Second, cfg.DataSourceFailurePercentage)

	processor := query.NewProcessor(query.Deps{
		Cache:    cacheStore,
		Engine:   engine,
		Embedder: embedder,
		Sources:  registry,
		Metrics:  monitor,
	}, query.Config{
		MaxConcurrentQueries:   cfg.MaxConcurrentQueries,
		DefaultTimeoutMs:       cfg.DefaultTimeoutMs,
		EnableParallelSearch:   cfg.EnableParallelSearch,
		CacheEnabled:           cfg.CacheEnabled,
		MinConfidenceThreshold: cfg.MinConfidenceThreshold,
		MaxResultsPerSource:    cfg.MaxResultsPerSource,
		QueryCacheTTLSec:       cfg.QueryCacheTTLSec,
	})

	cacheWarmer := warmer.New(cacheStore, processor, warmer.Config{
		TickInterval:        time.Duration(cfg.WarmerTickIntervalSec) * time.Second,
		PreloadBatchSize:    cfg.WarmerPreloadBatchSize,
		PopularityThreshold: cfg.WarmerPopularityThreshold,
		MaxAge:              time.Duration(cfg.WarmerMaxAgeHours) * time.Hour,
	})
	processor.SetUsageTracker(cacheWarmer)

	server := httpapi.NewServer(httpapi.Deps{
		Processor: processor,
		Health:    healthSvc,
		Metrics:   monitor,
		Cache:     cacheStore,
		Indexer:   idx,
	}, fmt.Sprintf(":%d", cfg.HTTPPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthSvc.Start(ctx)
	cacheWarmer.Start(ctx)
	server.MarkReady()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
		if err := <-errCh; err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server exited unexpectedly")
		}
		cancel()
	}

	healthSvc.Stop()
	cacheWarmer.Stop()

	log.Info().Msg("query service shutdown complete")
}

func buildCache(cfg *config.Config) (*cache.Store, error) {
	if cfg.RedisDSN == "" {
		log.Warn().Msg("redis_dsn not configured, falling back to in-process cache backend")
		return cache.New(cache.NewMemoryBackend()), nil
	}
	backend := cache.NewRedisBackend(cache.RedisConfig{Addr: cfg.RedisDSN})
	return cache.New(backend), nil
}

func buildVectorStore(cfg *config.Config) (vectorstore.Store, func(), error) {
	switch cfg.VectorStoreBackend {
	case "pgvector":
		if cfg.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("vectorstore_backend is pgvector but postgres_dsn is empty")
		}
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgvector.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("migrate pgvector schema: %w", err)
		}
		client, err := pgvector.NewClient(pgvector.Config{DB: db})
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil

	case "sqlitevec":
		path := cfg.SQLiteVecPath
		if path == "" {
			path = ":memory:"
		}
		client, err := sqlitevec.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil

	default:
		log.Warn().Str("backend", cfg.VectorStoreBackend).Msg("unrecognized vectorstore_backend, falling back to in-memory store")
		return memory.New(), nil, nil
	}
}
