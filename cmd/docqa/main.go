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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	dbRedis "github.com/kailas-cloud/docqa/internal/db/redis"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/parser"
	"github.com/kailas-cloud/docqa/internal/repository/anacache"
	documentrepo "github.com/kailas-cloud/docqa/internal/repository/document"
	taskrepo "github.com/kailas-cloud/docqa/internal/repository/task"
	"github.com/kailas-cloud/docqa/internal/repository/vectorindex"
	"github.com/kailas-cloud/docqa/internal/repository/vectorspace"
	chiTransport "github.com/kailas-cloud/docqa/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/docqa/internal/transport/openai"
	analysisuc "github.com/kailas-cloud/docqa/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docqa/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/docqa/internal/usecase/retrieval"
	"github.com/kailas-cloud/docqa/internal/version"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration based on ENV
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

	logger.Info("Starting docqa API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("llm_configured", cfg.LLM.APIKey != ""),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)
	if cfg.LLM.APIKey == "" {
		logger.Warn("LLM API key not configured, analyses will use local reports")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterAnalysisMetrics()

	ctx := context.Background()

	// Optional analysis cache on Valkey/Redis
	var (
		cacheStore *dbRedis.Store
		cache      analysisuc.ResultCache
		cachePing  healthuc.CachePinger
	)
	if cfg.Cache.Enabled {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := cacheStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))

		cache = anacache.New(cacheStore, cfg.LLM.Model, cfg.Cache.TTL(), metrics.AnalysisCacheTotal, logger)
		cachePing = cacheStore
	}

	// LLM client
	llm := openaiLLM.NewClient(&openaiLLM.Config{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxTokens:       cfg.LLM.MaxTokens,
		StreamMaxTokens: cfg.LLM.StreamMaxTokens,
		Timeout:         cfg.LLM.Timeout(),
		StreamTimeout:   cfg.LLM.StreamTimeout(),
		RatePerSecond:   cfg.LLM.RatePerSecond,
		Burst:           cfg.LLM.Burst,
		Logger:          logger,
	})

	// Pass nil interface (not typed nil pointer!) when the LLM is not configured.
	var llmCheck healthuc.LLMChecker
	if cfg.LLM.APIKey != "" {
		llmCheck = llm
	}

	// In-memory repositories
	dim := cfg.Retrieval.VectorDimension
	docStore := documentrepo.New()
	space := vectorspace.New(dim, metrics.VectorizerBootstrapFitsTotal, logger)
	index := vectorindex.New(dim)
	tasks := taskrepo.New()

	// Use case services
	ingestSvc := ingestuc.New(
		parser.New(cfg.Upload.MaxFileSize()),
		docStore, space, index,
		ingestuc.Options{ChunkSize: cfg.Retrieval.ChunkSize, MinChunkLength: cfg.Retrieval.MinChunkLength},
		metrics.IndexVectors,
	)

	retrievalOpts := retrievaluc.DefaultOptions()
	retrievalOpts.TopK = cfg.Retrieval.TopK
	retrievalOpts.MaxContextLength = cfg.Retrieval.MaxContextLength
	retrievalOpts.ScoreThreshold = cfg.Retrieval.ScoreThreshold
	retrievalSvc := retrievaluc.New(docStore, index, space, retrievalOpts, metrics.RetrievalTotal)

	analysisSvc := analysisuc.New(llm, tasks, cache, analysisuc.Options{
		MaxContextLength: cfg.Analysis.MaxContextLength,
		Pacing:           cfg.Analysis.Pacing(),
	}, logger)

	healthSvc := healthuc.New(cachePing, llmCheck, docStore)

	// Create chi server
	server := chiTransport.NewServer(
		ingestSvc, retrievalSvc, analysisSvc, tasks, healthSvc,
		cfg.Upload.MaxFileSize(), logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware(cfg.HTTP.CORSOrigins))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: chiTransport.WriteBindError,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
