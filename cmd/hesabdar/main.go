package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"hesabdar/internal/amqp"
	"hesabdar/internal/backend"
	"hesabdar/internal/cli"
	apphttp "hesabdar/internal/http"
	applog "hesabdar/internal/log"
	"hesabdar/internal/report"
	"hesabdar/internal/services"
)

func main() {
	envErr := cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	if envErr != nil {
		logger.Warn("Failed to load .env file", applog.FieldError, envErr)
	}
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Failed to load timezone", err)
	}

	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// writes still succeed; the worker catches up on its next periodic export
			logger.Warn("AMQP unavailable, continuing without change events", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
		}
	}

	ledgerSvc := services.NewLedgerService(store.Store, publisher)
	reports := report.NewService(store.Store, loc)

	opts := apphttp.Options{
		Logger:         logger.WithComponent(applog.ComponentHTTP),
		CacheSize:      cfg.ReportCacheSize,
		CacheTTL:       cfg.ReportCacheTTL,
		TrustedProxies: cfg.TrustedProxies,
		Ready:          store.Ready,
	}
	srv := apphttp.NewServer(":"+cfg.Port, reports, ledgerSvc, opts)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting hesabdar server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}
	logger.Info("Server stopped gracefully")
}
