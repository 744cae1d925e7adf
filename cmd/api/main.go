package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/api"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/api/handlers"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/audit"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/config"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/extract"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/importer"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/ledger"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/logger"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/preview"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx := context.Background()

	ledgerStore, err := ledger.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer ledgerStore.Close()

	previewStore := preview.NewStore(cfg.PreviewTTL, log)
	previewStore.StartSweeper(cfg.PreviewSweepInterval)

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "finance_previews_staged",
		Help: "Previews currently held in memory awaiting commit or expiry.",
	}, func() float64 { return float64(previewStore.Len()) })

	// Auditing is optional: without a BigQuery project the recorder stays nil
	// and every audit call is a no-op.
	var recorder *audit.Recorder
	var sink *audit.BigQuerySink
	if cfg.AuditEnabled() {
		sink, err = audit.NewBigQuerySink(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create audit sink")
		}
		recorder = audit.NewRecorder(sink, 256, log)
		recorder.Start()
		log.Info().
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Extraction auditing enabled")
	} else {
		log.Warn().Msg("No BigQuery project configured - extraction auditing is disabled")
	}

	extractor := extract.NewGeminiExtractor(cfg.GeminiModel)
	coordinator := importer.NewCoordinator(previewStore, ledgerStore, nil, cfg.DefaultCurrency, cfg.CommitTimeout)

	previewsHandler := handlers.NewPreviewsHandler(extractor, previewStore, recorder, cfg.MaxReceiptBytes, cfg.MaxStatementBytes, cfg.GeminiModel, log)
	commitsHandler := handlers.NewCommitsHandler(coordinator, log)
	healthHandler := handlers.NewHealthHandler(ledgerStore, log)

	handler := api.NewRouter(previewsHandler, commitsHandler, healthHandler, log)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
		// Reads cover multi-megabyte statement uploads; writes must outlast
		// the commit timeout.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.CommitTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("model", cfg.GeminiModel).
			Dur("preview_ttl", cfg.PreviewTTL).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := previewStore.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping preview sweeper")
	}

	if recorder != nil {
		if err := recorder.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error draining audit recorder")
		}
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close audit sink")
		}
	}

	log.Info().Msg("Server exited")
}
