package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/config"
	"github.com/kailas-cloud/docrag/internal/db"
	dbMemory "github.com/kailas-cloud/docrag/internal/db/memory"
	dbRedis "github.com/kailas-cloud/docrag/internal/db/redis"
	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/search/mode"
	logpkg "github.com/kailas-cloud/docrag/internal/logger"
	"github.com/kailas-cloud/docrag/internal/metrics"
	"github.com/kailas-cloud/docrag/internal/repository/embcache"
	"github.com/kailas-cloud/docrag/internal/repository/lexical"
	"github.com/kailas-cloud/docrag/internal/repository/registry"
	"github.com/kailas-cloud/docrag/internal/repository/vector"
	chiTransport "github.com/kailas-cloud/docrag/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/docrag/internal/transport/openai"
	documentuc "github.com/kailas-cloud/docrag/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/docrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docrag/internal/usecase/health"
	quizuc "github.com/kailas-cloud/docrag/internal/usecase/quiz"
	searchuc "github.com/kailas-cloud/docrag/internal/usecase/search"
	"github.com/kailas-cloud/docrag/internal/usecase/segment"
	"github.com/kailas-cloud/docrag/internal/version"
	"github.com/kailas-cloud/docrag/internal/watcher"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docrag server",
		zap.String("build", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openCache(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to open embedding cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Separate chains so document and query instructions stay apart
	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, cfg.Cache, store, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, cfg.Cache, store, logger)

	seg, err := segment.New(cfg.Chunking.MaxChars, *cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("Invalid chunking config", zap.Error(err))
	}

	lexIndex := lexical.New()
	vecIndex := vector.New(docEmbedder, vector.Options{
		QueryEmbedder: queryEmbedder,
		BatchSize:     cfg.Embedding.BatchSize,
	})
	docs := documentuc.New(lexIndex, vecIndex, registry.New(), seg)
	search := searchuc.New(lexIndex, vecIndex, searchuc.Options{OverFetch: cfg.Retrieval.OverFetch})

	var cachePinger healthuc.Pinger
	if store != nil {
		cachePinger = store
	}
	health := healthuc.New(cachePinger, newEmbeddingHealthChecker(docEmbedder), docs)

	server := chiTransport.NewServer(docs, search, quizuc.NewService(search), health, chiTransport.Defaults{
		TopK:           cfg.Retrieval.DefaultTopK,
		MaxTopK:        cfg.Retrieval.MaxTopK,
		Mode:           mode.Mode(cfg.Retrieval.DefaultMode),
		Alpha:          cfg.Retrieval.DefaultAlpha,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, logger)

	if cfg.Watch.Dir != "" {
		w := watcher.New(docs, watcher.Options{
			Extensions: cfg.Watch.Extensions,
			MaxBytes:   cfg.Upload.MaxBytes,
			Debounce:   time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		}, logger.Named("watcher"))
		go func() {
			if err := w.Run(logpkg.ContextWithLogger(ctx, logger), cfg.Watch.Dir); err != nil {
				logger.Error("Watch folder stopped", zap.String("dir", cfg.Watch.Dir), zap.Error(err))
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// openCache returns nil for the "none" driver.
func openCache(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.CacheNone:
		return nil, nil //nolint:nilnil // caching disabled
	case config.CacheMemory:
		s, err := dbMemory.NewStore(cfg.Size)
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		return s, nil
	case config.CacheRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if err := s.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			s.Close()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	instruction string,
	cacheCfg config.CacheConfig,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger, embcache.Options{
			KeyPrefix: cacheCfg.KeyPrefix,
			TTL:       time.Duration(cacheCfg.TTLSec) * time.Second,
		})
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, embCfg.Provider, embCfg.Model, 0, logger)

	// Instruction prefix is outermost so the cache key includes it
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
