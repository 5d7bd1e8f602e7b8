package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/stockroom-backend/api/routes"
	"github.com/angelmondragon/stockroom-backend/internal/audit"
	"github.com/angelmondragon/stockroom-backend/internal/exports"
	"github.com/angelmondragon/stockroom-backend/internal/ledger"
	"github.com/angelmondragon/stockroom-backend/internal/notifications"
	"github.com/angelmondragon/stockroom-backend/internal/realtime"
	"github.com/angelmondragon/stockroom-backend/pkg/config"
	"github.com/angelmondragon/stockroom-backend/pkg/db"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/angelmondragon/stockroom-backend/pkg/metrics"
	"github.com/angelmondragon/stockroom-backend/pkg/migrate"
	"github.com/angelmondragon/stockroom-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	stockMetrics := metrics.NewStockMetrics(prometheus.DefaultRegisterer)
	hub := realtime.NewHub(logg, stockMetrics)

	// With the relay on, events travel through Redis so every replica's hub
	// sees mutations made on any replica.
	var publisher realtime.Publisher = hub
	if cfg.Realtime.RelayEnabled {
		publisher = realtime.NewRedisPublisher(redisClient)
	}

	auditRepo := audit.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:      ledger.NewRepository(dbClient.DB()),
		Audit:     auditRepo,
		DB:        dbClient,
		Publisher: publisher,
		Metrics:   stockMetrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	auditService, err := audit.NewService(auditRepo)
	if err != nil {
		return err
	}

	exportService, err := exports.NewService(exports.ServiceParams{
		Store:      exports.NewStore(redisClient, cfg.Exports.TTL),
		Audit:      auditRepo,
		Logger:     logg,
		MaxEntries: cfg.Exports.MaxEntries,
	})
	if err != nil {
		return err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"relay": cfg.Realtime.RelayEnabled,
	})

	relayDone := make(chan error, 1)
	if cfg.Realtime.RelayEnabled {
		relay := realtime.NewRelay(redisClient, hub, logg)
		go func() {
			err := relay.Run(ctx)
			if err != nil {
				logg.Error(ctx, "live event relay stopped", err)
			}
			relayDone <- err
		}()
	} else {
		relayDone <- nil
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:            dbClient,
			Redis:         redisClient,
			Ledger:        ledgerService,
			Audit:         auditService,
			Exports:       exportService,
			Notifications: notificationService,
			Hub:           hub,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		return multierr.Append(err, <-relayDone)
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err = multierr.Combine(server.Shutdown(shutdownCtx), <-serveErr)
	if relayErr := <-relayDone; relayErr != nil && !errors.Is(relayErr, context.Canceled) {
		err = multierr.Append(err, relayErr)
	}
	return err
}
