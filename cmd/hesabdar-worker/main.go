package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"hesabdar/internal/amqp"
	"hesabdar/internal/backend"
	"hesabdar/internal/cli"
	applog "hesabdar/internal/log"
	"hesabdar/internal/report"
	gsheet "hesabdar/internal/sheets/google"
	"hesabdar/internal/worker"
)

func main() {
	envErr := cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	if envErr != nil {
		logger.Warn("Failed to load .env file", applog.FieldError, envErr)
	}
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		cli.Fatal(logger, "Worker needs a shared store", errors.New("DATA_BACKEND must be sqlite"))
	}
	if !cfg.SheetsEnabled() {
		cli.Fatal(logger, "Nothing to export", errors.New("GOOGLE_SPREADSHEET_ID is not set"))
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "path", cfg.SQLiteDBPath)
	}
	defer store.Close()

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Failed to load timezone", err)
	}

	sheets, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetBase:          cfg.GoogleSheetBase,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	reports := report.NewService(store.Store, loc)
	syncWorker := worker.NewReportSyncWorker(reports, store.Store, sheets, cfg.ExportConcurrency)

	g, gctx := errgroup.WithContext(ctx)

	if err := syncWorker.Start(gctx, cfg.ExportInterval); err != nil {
		cli.Fatal(logger, "Failed to start report sync worker", err)
	}

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer client.Close()
		g.Go(func() error {
			err := client.ConsumeRecordChanges(gctx, syncWorker.HandleRecordChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic export only", "interval", cfg.ExportInterval)
	}

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		return syncWorker.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
