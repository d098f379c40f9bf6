package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/agent"
	"github.com/palate-labs/palate/internal/config"
	"github.com/palate-labs/palate/internal/extract"
	"github.com/palate-labs/palate/internal/intentcls"
	"github.com/palate-labs/palate/internal/llm"
	logpkg "github.com/palate-labs/palate/internal/logger"
	"github.com/palate-labs/palate/internal/metrics"
	"github.com/palate-labs/palate/internal/orchestrator"
	"github.com/palate-labs/palate/internal/query"
	"github.com/palate-labs/palate/internal/rerank"
	"github.com/palate-labs/palate/internal/respond"
	"github.com/palate-labs/palate/internal/retrieval"
	"github.com/palate-labs/palate/internal/retrieval/redis"
	"github.com/palate-labs/palate/internal/session"
	chiTransport "github.com/palate-labs/palate/internal/transport/chi"
	openaiEmb "github.com/palate-labs/palate/internal/transport/openai"
	"github.com/palate-labs/palate/internal/version"
)

func main() {
	// .env is optional; real deployments set env vars directly.
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

	logger.Info("Starting palate API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("shards", len(cfg.Retrieval.Shards)),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Connect shards and wait until each answers ping.
	ctx := context.Background()
	readiness := time.Duration(cfg.Retrieval.ReadinessTimeout) * time.Second

	shards := make([]retrieval.Shard, 0, len(cfg.Retrieval.Shards))
	checkers := make([]chiTransport.HealthChecker, 0, len(cfg.Retrieval.Shards))
	for _, sc := range cfg.Retrieval.Shards {
		shard, err := redis.NewShard(sc, cfg.Retrieval.IndexName)
		if err != nil {
			logger.Fatal("Failed to create shard client",
				zap.String("shard", sc.Name), zap.Error(err))
		}
		defer shard.Close()

		if err := shard.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Shard not ready", zap.String("shard", sc.Name), zap.Error(err))
		}
		shards = append(shards, shard)
		checkers = append(checkers, shard)
	}
	logger.Info("Connected to all shards")

	// One shared rate-limit window for every model caller, embeddings
	// included.
	limiter := llm.NewLimiter(cfg.LLM.RequestsPerMinute)
	client := llm.NewOpenAI(cfg.LLM, limiter, logger)
	embedder := openaiEmb.NewEmbedder(cfg.Embedding, limiter, logger)

	// Pipeline components are stateless and shared across sessions.
	extractor := extract.New(client, logger)
	classifier := intentcls.New(client, logger)
	responder := respond.New(client, logger)
	builder := query.NewBuilder(client, logger)
	retriever := retrieval.New(shards, embedder, cfg.Retrieval.TopKPerShard, logger)
	reranker := rerank.New(client, cfg.LLM.RerankModel, logger)

	registry := chiTransport.NewRegistry(func(id string) *orchestrator.Session {
		mem := session.NewMemory(id, cfg.Session.MaxHistoryTurns, logger)
		ag := agent.New(mem, extractor, classifier, responder, logger)
		return orchestrator.NewSession(ag, builder, retriever, reranker, logger)
	})

	server := chiTransport.NewServer(registry, checkers, logger).
		WithAPIKeys(cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
