package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dollarport/edu-site/cmd/mainconfig"
	"github.com/dollarport/edu-site/internal/api/router"
	"github.com/dollarport/edu-site/internal/app/bootstrap"
	appconfig "github.com/dollarport/edu-site/internal/config"
	"github.com/dollarport/edu-site/internal/leads"
	"github.com/dollarport/edu-site/internal/observability/metrics"
	"github.com/dollarport/edu-site/internal/site"
	"github.com/dollarport/edu-site/pkg/logging"
)

func main() {
	// Load configuration
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dollarport edu site",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	handler, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.NotifyTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// In-flight submissions may still be waiting on notifiers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NotifyTimeout+20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildHandler wires the store, notifiers, lead pipeline and router. The
// returned cleanup releases background clients.
func buildHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	store, err := leads.NewFileStore(cfg.LeadStorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open lead store: %w", err)
	}
	if count, err := store.Count(ctx); err != nil {
		logger.Warn("lead store unreadable at startup", "path", store.Path(), "error", err)
	} else {
		logger.Info("lead store ready", "path", store.Path(), "existing_leads", count)
	}

	var awsCfg *aws.Config
	if cfg.NeedsAWS() {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
	}
	if !cfg.MailConfigured() {
		logger.Warn("lead email disabled: mail credentials missing", "provider", cfg.MailProvider)
	}

	metricsHandler, leadMetrics := setupLeadMetrics(cfg.MetricsEnabled)

	svc, err := leads.NewService(leads.ServiceConfig{
		Store:         store,
		Notifiers:     bootstrap.BuildNotifiers(cfg, awsCfg, logger),
		NotifyTimeout: cfg.NotifyTimeout,
		Metrics:       leadMetrics,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build lead service: %w", err)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	limiter := bootstrap.BuildRateLimiter(cfg, redisClient, logger)

	handler := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leads.NewHandler(svc, leadMetrics, logger),
		Site:               site.New(site.Config{SiteURL: cfg.SiteURL, PublicDir: cfg.PublicDir, Logger: logger}),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	cleanup := func() {
		if closer, ok := limiter.(interface{ Close() }); ok {
			closer.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	return handler, cleanup, nil
}

// setupLeadMetrics registers pipeline metrics on a private registry. When
// disabled the metrics are nil and record nothing.
func setupLeadMetrics(enabled bool) (http.Handler, *metrics.LeadMetrics) {
	if !enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewLeadMetrics(reg)
}
