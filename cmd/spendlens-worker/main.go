package main

import (
	"context"
	"errors"
	"os"
	"time"

	"spendlens/internal/amqp"
	"spendlens/internal/analytics"
	"spendlens/internal/cli"
	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting spendlens-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	store, closer := cli.InitStore(logger, cfg)
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	engine := analytics.New(cli.EngineConfig(cfg))
	renderer := report.NewPDFRenderer(cfg.ReportsDir, logger)

	// Google Sheets export is optional; a nil exporter is a no-op.
	var exporter *report.SheetsExporter
	if cfg.GoogleSpreadsheetID != "" {
		var err error
		exporter, err = report.NewSheetsExporter(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets export initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer func() { _ = amqpClient.Close() }()

	reportWorker := worker.NewReportWorker(store, engine, renderer, exporter, cfg.ReportInterval, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Report worker running", "interval", cfg.ReportInterval.String())
	if err := reportWorker.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Report worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped gracefully")
}
