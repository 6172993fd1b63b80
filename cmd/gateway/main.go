package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cache"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/emotion"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/guidelines"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/handlers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/pipeline"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/registry"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/usage"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/config"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/database"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/redis"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogging(cfg)
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting Luso AI Gateway")

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Connected to Redis")

	// Service registry; the first load must succeed
	reg := registry.New(db,
		registry.WithTTL(cfg.RegistryCacheTTL),
		registry.WithLogger(log.Logger),
	)
	if err := reg.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load service registry")
	}
	log.Info().Int("services", len(reg.Snapshot())).Msg("Loaded service registry")

	// Provider adapters
	providerMgr := providers.NewManagerFromConfig(cfg,
		providers.WithRateLimiter(redisClient),
		providers.WithLogger(log.Logger),
	)
	for _, svc := range reg.Snapshot() {
		if !providerMgr.Supports(svc) {
			log.Warn().Str("service", svc.ServiceName).Str("type", svc.ServiceType).
				Msg("Active service has no adapter; requests routed to it will fail")
		}
	}

	// Emotion lexicon
	lexicon, err := loadLexicon(cfg.EmotionLexiconPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load emotion lexicon")
	}
	log.Info().Str("version", lexicon.Version).Msg("Loaded emotion lexicon")

	opts := []pipeline.Option{
		pipeline.WithAnalyzer(emotion.NewAnalyzer(lexicon)),
		pipeline.WithLogger(log.Logger),
	}
	if cfg.TranslationCacheEnabled {
		opts = append(opts, pipeline.WithTranslationCache(cache.New(redisClient), cfg.TranslationCacheTTL))
	}

	gateway := pipeline.New(
		reg,
		guidelines.NewValidator(db, guidelines.WithLogger(log.Logger)),
		providerMgr,
		usage.NewMeter(db, usage.WithWriteTimeout(cfg.UsageWriteTimeout), usage.WithLogger(log.Logger)),
		opts...,
	)

	// Initialize handlers
	gatewayHandler := handlers.NewGatewayHandler(gateway, reg, log.Logger)
	middleware := handlers.NewMiddleware(redisClient, cfg.DefaultRateLimit, log.Logger)

	var routerOpts []handlers.RouterOption
	if cfg.TrustProxyHeaders {
		routerOpts = append(routerOpts, handlers.WithTrustedProxy())
	}

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.NewRouter(gatewayHandler, middleware, routerOpts...),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("Server listening on http://localhost:%s", cfg.Port)
		log.Info().Msg("   POST /v1/generate   - Text generation")
		log.Info().Msg("   POST /v1/translate  - Dialect-aware translation")
		log.Info().Msg("   POST /v1/sentiment  - Sentiment with saudade detection")
		log.Info().Msg("   GET  /v1/services   - Active AI services")
		log.Info().Msg("   GET  /health        - Health check")
		log.Info().Msg("   GET  /metrics       - Prometheus metrics")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down gracefully...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func loadLexicon(path string) (*emotion.Lexicon, error) {
	if path == "" {
		return emotion.DefaultLexicon()
	}
	return emotion.LoadLexicon(path)
}
