package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Priya8975/webhook-notifier/internal/api"
	"github.com/Priya8975/webhook-notifier/internal/config"
	"github.com/Priya8975/webhook-notifier/internal/engine"
	"github.com/Priya8975/webhook-notifier/internal/events"
	"github.com/Priya8975/webhook-notifier/internal/mailer"
	"github.com/Priya8975/webhook-notifier/internal/metrics"
	"github.com/Priya8975/webhook-notifier/internal/store"
	ws "github.com/Priya8975/webhook-notifier/internal/websocket"
	"github.com/Priya8975/webhook-notifier/internal/worker"
)

const counterSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Entity store
	var (
		st          store.Store
		settingsTTL time.Duration
	)
	if cfg.DatabaseURL == "" {
		st = store.NewMemory()
		logger.Info("using in-memory store")
	} else {
		pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to PostgreSQL")

		if err := pgStore.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
		st = pgStore
		settingsTTL = cfg.SettingsTTL
	}
	defer st.Close()

	settings := engine.NewSettingsCache(st, settingsTTL, nil)

	// Rate counters and circuit breaker
	var (
		counters engine.CounterStore
		breaker  *engine.SenderBreaker
	)
	if cfg.RedisURL == "" {
		mem := engine.NewMemoryCounter(nil)
		go mem.Run(ctx, counterSweepInterval)
		counters = mem
		logger.Info("using in-memory rate counters")
	} else {
		redisClient, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis")

		counters = engine.NewRedisCounter(redisClient)
		breaker = engine.NewSenderBreaker(redisClient, logger)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	// Mail delivery
	smtp := mailer.NewSMTPMailer(mailer.DefaultDialTimeout, logger)
	pool := worker.NewPool(cfg.MailWorkers, smtp, logger)
	pool.Start()
	defer pool.Stop()

	// Log publishers
	hub := ws.NewHub(logger, ws.WithOriginCheck(func(origin string) bool {
		return settings.OriginAllowed(context.Background(), origin)
	}))
	go hub.Run(ctx)
	publishers := []engine.Publisher{hub}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		publishers = append(publishers, kafka)
		logger.Info("publishing logs to kafka", "topic", cfg.KafkaTopic)
	}

	eng := engine.NewEngine(engine.Deps{
		Targets:     st,
		Senders:     st,
		Logs:        st,
		Limiter:     engine.NewRateController(settings, counters, logger),
		Mailer:      pool,
		Breaker:     breaker,
		Publishers:  publishers,
		Metrics:     rec,
		Logger:      logger,
		MailTimeout: cfg.MailTimeout,
	})

	router := api.NewRouter(api.RouterDeps{
		Engine:            eng,
		Settings:          settings,
		Verifier:          smtp,
		Hub:               hub,
		Metrics:           rec,
		Store:             st,
		Logger:            logger,
		PublicHost:        cfg.PublicHost,
		IngestConcurrency: cfg.IngestConcurrency,
		TrustedProxies:    cfg.TrustedProxies,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.MailTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port, "public_host", cfg.PublicHost)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
