package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/tpc-global/tpc_portal/internal/config"
	"github.com/tpc-global/tpc_portal/internal/infra"
	"github.com/tpc-global/tpc_portal/internal/logging"
	"github.com/tpc-global/tpc_portal/internal/notification"
	"github.com/tpc-global/tpc_portal/internal/routes"
	"github.com/tpc-global/tpc_portal/internal/rpc"
	"github.com/tpc-global/tpc_portal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsDev())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, caching and idempotency disabled")
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}

	var notifier notification.Notifier = notification.NewLoggerNotifier(logger)
	if cfg.EmailFunctionsURL != "" {
		notifier = notification.NewHTTPNotifier(cfg.EmailFunctionsURL, cfg.SupabaseAnonKey, httpClient)
	}
	dispatcher := notification.NewDispatcher(notifier, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	go func() {
		for f := range dispatcher.Failures() {
			logger.Warn("notification failed", "kind", f.Message.Kind, "error", f.Err)
		}
	}()

	srv, err := server.New(routes.Deps{
		Cfg:        cfg,
		DB:         db,
		Cache:      cache,
		Logger:     logger,
		Notifier:   dispatcher,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}
	services := srv.Services()

	scheduler := cron.New(cron.WithLogger(logging.Cron(logger)), cron.WithChain(
		cron.Recover(logging.Cron(logger)),
		cron.SkipIfStillRunning(logging.Cron(logger)),
	))
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.RatesRefreshInterval), func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		snap := services.Rates.Refresh(jobCtx)
		logger.Debug("rates refreshed", "source", snap.Source)
	}); err != nil {
		logger.Error("schedule rates refresh", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc("@every 10m", func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		services.Presale.Refresh(jobCtx)
	}); err != nil {
		logger.Error("schedule presale refresh", "error", err)
		os.Exit(1)
	}
	services.Presale.Refresh(ctx)
	scheduler.Start()

	if db != nil {
		listener := rpc.NewListener(db, rpc.InvoiceChannel, logger)
		go listener.Run(ctx, func(ch rpc.Change) {
			services.Invoices.Changed(ctx, ch)
		})
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	stop()
	<-scheduler.Stop().Done()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notifications not drained", slog.Any("error", err))
	}

	logger.Info("server exited cleanly")
}
