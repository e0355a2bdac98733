// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"coach-connect/internal/config"
	"coach-connect/internal/domain/ports/adapter"
	"coach-connect/internal/domain/ports/repository"
	aiAdapters "coach-connect/internal/infra/adapters/ai"
	"coach-connect/internal/infra/adapters/fitness"
	pg "coach-connect/internal/infra/db/postgres"
	"coach-connect/internal/infra/logging"
	"coach-connect/internal/infra/metrics"
	red "coach-connect/internal/infra/redis"
	"coach-connect/internal/infra/sched"
	"coach-connect/internal/infra/security"
	"coach-connect/internal/infra/web"
	"coach-connect/internal/infra/worker"
	"coach-connect/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop model without keys, verbose payload logs)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Str("path", *cfgPath).Msg("config")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	flows, err := cfg.BuildFlows()
	if err != nil {
		logger.Fatal().Err(err).Msg("flows")
	}
	prompts, err := usecase.NewPromptRenderer(flows)
	if err != nil {
		logger.Fatal().Err(err).Msg("prompt templates")
	}

	// ---- AI adapters (OpenAI, Gemini -> Multi -> Limited) ----
	ai := buildAI(ctx, cfg, logger)
	tokens := aiAdapters.NewTokenCounter(cfg.AI.TokenizerModel)
	for _, f := range flows {
		tokens.Warm(f.Model)
	}

	checks := map[string]web.Pinger{}

	// ---- Postgres (optional delivery audit log) ----
	var deliveries repository.DeliveryRepository
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()

		var sealer pg.Sealer
		if cfg.Security.EncryptionKey != "" {
			s, err := security.NewPayloadSealer(cfg.Security.EncryptionKey)
			if err != nil {
				logger.Fatal().Err(err).Msg("payload sealer")
			}
			sealer = s
		}
		repo := pg.NewDeliveryRepo(pool, sealer)
		if err := repo.Migrate(ctx, pg.NewTxManager(pool)); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrate")
		}
		deliveries = repo
		checks["database"] = pool
		go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)
		if cfg.Database.Retention > 0 {
			rw := sched.NewRetentionWorker(time.Hour, cfg.Database.Retention, repo, logger)
			go func() { _ = rw.Run(ctx) }()
		}
		logger.Info().Bool("sealed", sealer != nil).Msg("delivery audit log enabled")
	}

	// ---- Redis (optional dedup guard + rate limiting) ----
	var (
		guard   repository.DeliveryGuard
		limiter repository.RateLimiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		guard = red.NewDeliveryGuard(redisClient)
		if cfg.RateLimit.Requests > 0 {
			limiter = red.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
		checks["redis"] = redisClient
	}

	// ---- Fitness API ----
	fitnessAPI, err := fitness.NewClient(cfg.Fitness.BaseURL, cfg.Fitness.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("fitness client")
	}

	// ---- Background forwarder ----
	workers := worker.NewPool(cfg.Forwarder.Workers, cfg.Forwarder.Queue, logger)
	workers.Start(ctx)
	fwd := usecase.NewForwarder(fitnessAPI, deliveries, guard, workers,
		cfg.Forwarder.Timeout, cfg.Forwarder.DedupTTL, cfg.Runtime.Dev, logger)

	// ---- Use case + HTTP ----
	chatUC := usecase.NewChatUseCase(ai, fitnessAPI, security.NewClaimsDecoder(), prompts, fwd, limiter, tokens, logger)
	srv := web.NewServer(cfg.Server, flows, chatUC, checks, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		logger.Info().Str("signal", s.String()).Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// in-flight forwards finish before the process exits
	workers.Stop()
	cancel()
	logger.Info().Msg("bye")
}

func buildAI(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) adapter.AIServiceAdapter {
	byProvider := map[string]adapter.AIServiceAdapter{}
	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, cfg.AI.OpenAIBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		byProvider["openai"] = oa
		logger.Info().Str("base_url", cfg.AI.OpenAIBaseURL).Msg("AI adapter: OpenAI")
	}
	if cfg.AI.GeminiKey != "" {
		gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, 0)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		byProvider["gemini"] = gm
		logger.Info().Str("base_url", cfg.AI.GeminiURL).Msg("AI adapter: Gemini")
	}
	if len(byProvider) == 0 {
		logger.Warn().Msg("no AI provider key configured; using the noop model")
		byProvider[cfg.AI.DefaultProvider] = aiAdapters.NewNoopAIAdapter()
	}
	multi := aiAdapters.NewMultiAIAdapter(cfg.AI.DefaultProvider, byProvider, nil)
	return aiAdapters.NewLimitedAI(multi, cfg.AI.ConcurrentLimit)
}
