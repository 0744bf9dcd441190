package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentrystack/audit-sentry/internal/api"
	"github.com/sentrystack/audit-sentry/internal/classifier"
	"github.com/sentrystack/audit-sentry/internal/config"
	"github.com/sentrystack/audit-sentry/internal/engine"
	"github.com/sentrystack/audit-sentry/internal/ingest"
	"github.com/sentrystack/audit-sentry/internal/metrics"
	"github.com/sentrystack/audit-sentry/internal/notify"
	"github.com/sentrystack/audit-sentry/internal/scanner"
	"github.com/sentrystack/audit-sentry/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, nil)
	logger.Info("starting audit-sentry", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	gemini := classifier.NewGeminiClient(
		cfg.Classifier.BaseURL,
		cfg.Classifier.APIKey,
		cfg.Classifier.Model,
		cfg.Classifier.Timeout,
	)
	semantic := classifier.NewSemanticClassifier(gemini)

	sink := notify.NewSMTPSink(notify.SMTPConfig{
		Host:       cfg.Notifier.SMTPHost,
		Port:       cfg.Notifier.SMTPPort,
		Username:   cfg.Notifier.Username,
		Password:   cfg.Notifier.Password,
		From:       cfg.Notifier.From,
		Recipients: cfg.Notifier.Recipients,
		Timeout:    cfg.Notifier.Timeout,
	})
	dispatcher := notify.NewDispatcher(logger, sink)

	pipeline := engine.NewPipeline(
		logger,
		ingest.NewRelevanceFilter(cfg.Filter.ExtraKeywords...),
		scanner.NewHeuristicScanner(),
		semantic,
		dispatcher,
		cfg.Classifier.Timeout,
	)

	handler := api.NewHandler(logger, pipeline)
	server, err := api.NewServer(cfg.Server, handler)
	if err != nil {
		logger.Error("failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("audit-sentry stopped")
}
