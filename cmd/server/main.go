package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scripty/hub-server-go/internal/config"
	"github.com/scripty/hub-server-go/internal/database"
	"github.com/scripty/hub-server-go/internal/handler"
	"github.com/scripty/hub-server-go/internal/hub"
	"github.com/scripty/hub-server-go/internal/jobs"
	"github.com/scripty/hub-server-go/internal/metrics"
	"github.com/scripty/hub-server-go/internal/middleware"
	"github.com/scripty/hub-server-go/internal/redis"
	"github.com/scripty/hub-server-go/internal/repository"
	"github.com/scripty/hub-server-go/internal/service"
	"github.com/scripty/hub-server-go/internal/util"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	guildRepo := repository.NewGuildRepository(db.DB)
	channelRepo := repository.NewChannelRepository(db.DB)

	lookupService := service.NewLookupService(userRepo, guildRepo, channelRepo)
	transcriptionService := service.NewTranscriptionService(cfg.TranscribeAPIURL, cfg.TranscribeAPIKey)
	pcmValidator := service.NewPCMValidator(cfg.AudioSampleRate, cfg.AudioMinDuration(), cfg.AudioMaxBytes)
	statsService := service.NewStatsService(redisClient.Client)
	rateLimiter := service.NewRateLimiter(redisClient.Client)
	transcriptionLimiter := service.NewTranscriptionLimiter(rateLimiter, cfg.TTSRateLimitPerMin, config.RateLimitWindow)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hubMetrics := metrics.NewHubMetrics(promRegistry)

	registry := hub.NewRegistry(util.NewKeyVerifier(cfg.AuthKey, cfg.AuthKeyHash), cfg.VCRouteTTL())
	tracker := hub.NewTracker(registry, hubMetrics)
	dispatcher := hub.NewDispatcher(hub.DispatcherConfig{
		Registry:          registry,
		Tracker:           tracker,
		Lookup:            lookupService,
		Transcriber:       transcriptionService,
		Stats:             statsService,
		Limiter:           transcriptionLimiter,
		Audio:             pcmValidator,
		FetchTimeout:      cfg.FetchTimeout(),
		TranscribeTimeout: cfg.TranscribeTimeout(),
		SampleRate:        cfg.AudioSampleRate,
		Metrics:           hubMetrics,
	})

	wsHandler := handler.NewWSHandler(registry, tracker, dispatcher, hubMetrics, cfg.AllowedOrigins, cfg.MaxMessageBytes())
	healthHandler := handler.NewHealthHandler(registry, tracker, db)
	connectLimit := middleware.NewIPRateLimitMiddleware(rateLimiter, cfg.ConnectRateLimitPerMin, config.RateLimitWindow, "ws")

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	r.With(connectLimit.Handler).Get("/ws", wsHandler.ServeHTTP)

	sweepJob := jobs.NewSweepJob(tracker, config.PendingSweepInterval)
	sweepJob.Start()
	defer sweepJob.Stop()

	if cfg.StatsAPIURL != "" {
		reporter := service.NewStatsReporter(cfg.StatsAPIURL, cfg.BotID, cfg.StatsAPIKey)
		statsJob := jobs.NewStatsReportJob(statsService, reporter, cfg.StatsReportInterval())
		statsJob.Start()
		defer statsJob.Stop()
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: config.ServerReadHeaderTimeout,
		WriteTimeout:      0,
		IdleTimeout:       config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	dispatcher.Close()

	log.Info().
		Int("pending", tracker.Len()).
		Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
