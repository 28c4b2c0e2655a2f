package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/api"
	"github.com/dynaerp/notify-engine/internal/catalog"
	"github.com/dynaerp/notify-engine/internal/config"
	"github.com/dynaerp/notify-engine/internal/db"
	"github.com/dynaerp/notify-engine/internal/delivery"
	"github.com/dynaerp/notify-engine/internal/engine"
	"github.com/dynaerp/notify-engine/internal/metrics"
	"github.com/dynaerp/notify-engine/internal/queue"
	"github.com/dynaerp/notify-engine/internal/recipient"
	"github.com/dynaerp/notify-engine/internal/repository"
	"github.com/dynaerp/notify-engine/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	q := queue.New(cfg.QueueCapacity)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, q.Depth)

	repo := repository.NewPgNotificationRepository(pool)
	store := repository.NewPgRowStore(pool)
	cat := catalog.New(store, store, logger)
	res := recipient.New(store)

	// ---- delivery channels ----
	// Realtime and email are both optional; the sink skips any channel whose
	// transport is absent or unconfigured.
	var pub delivery.Publisher
	if cfg.RedisURL != "" {
		rp, err := delivery.NewRedisPublisher(cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rp.Close()
		pub = rp
		logger.Info("realtime publisher connected")
	} else {
		logger.Warn("REDIS_URL not set, realtime delivery disabled")
	}

	mailer := delivery.NewSMTPMailer(delivery.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mailer.IsConfigured() {
		logger.Warn("SMTP not configured, email delivery disabled")
	}

	sms := delivery.NewLogSMSSender(logger)
	limiters := delivery.NewLimiters(cfg.ContactRatePerSec)
	sink := delivery.NewSink(repo, pub, mailer, sms, limiters, logger)

	// ---- engine and worker ----
	eng := engine.New(q, repo, store, cat, res, sink, logger, m.EngineHooks())

	// Context for the background consumer; cancelled on shutdown signal.
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Exactly one worker: fanout ordering and reconciliation depend on
	// single-consumer processing.
	w := worker.New(q, eng, logger, m.WorkerHooks())
	w.Start(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(eng, repo, q, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests (and therefore new events).
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the consumer to stop pulling new jobs.
	cancelWorker()

	// 3. Wait for the in-flight job to run to completion.
	w.Wait()

	logger.Info("server stopped cleanly")
}
