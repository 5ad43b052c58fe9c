package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/config"
	logutil "github.com/edgecomet/chatexport/internal/common/logger"
	"github.com/edgecomet/chatexport/internal/common/metricsserver"
	"github.com/edgecomet/chatexport/internal/export/chrome"
	"github.com/edgecomet/chatexport/internal/export/extractor"
	"github.com/edgecomet/chatexport/internal/export/fetcher"
	"github.com/edgecomet/chatexport/internal/export/metrics"
	"github.com/edgecomet/chatexport/internal/export/pipeline"
	"github.com/edgecomet/chatexport/internal/export/service"
)

func main() {
	configPath := flag.String("c", "configs/chat-export.yaml", "Path to configuration file")
	flag.Parse()

	// Initial logger, replaced once the config is loaded
	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("Loading configuration", zap.String("path", *configPath))

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	cfg, err := config.Load(absPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	logger := dynamicLogger.Logger
	defer logger.Sync() //nolint:errcheck

	logger.Info("Chat export service starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("extract_strategy", cfg.Export.ExtractStrategy),
		zap.String("render_strategy", cfg.Export.RenderStrategy),
		zap.Bool("ssrf_protection", cfg.Fetch.SSRFEnabled()))

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, logger)

	metricsServer, err := metricsserver.Start(cfg.Metrics, metricsCollector, logger)
	if err != nil {
		logger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	var browserOpts []chrome.Option
	if cfg.Fetch.SSRFEnabled() {
		browserOpts = append(browserOpts, chrome.WithPrivateNetworkGuard(net.LookupIP))
	}
	browser, err := chrome.New(cfg.Chrome, logger, browserOpts...)
	if err != nil {
		logger.Fatal("Failed to initialize Chrome", zap.Error(err))
	}

	// A missing browser only breaks rendering and DOM extraction, so keep serving
	versionCtx, cancelVersion := context.WithTimeout(context.Background(), time.Duration(cfg.Chrome.NavigationTimeout))
	if version, err := browser.Version(versionCtx); err != nil {
		logger.Warn("Chrome startup check failed", zap.Error(err))
	} else {
		logger.Info("Chrome available", zap.String("version", version))
	}
	cancelVersion()

	staticFetcher := fetcher.New(cfg.Fetch, logger)

	listExtractor, err := extractor.New(cfg.Export.ExtractStrategy, staticFetcher, browser,
		extractor.ContentText, cfg.Export.DefaultTitle)
	if err != nil {
		logger.Fatal("Failed to create extractor", zap.Error(err))
	}

	renderExtractor, err := extractor.New(cfg.Export.RenderStrategy, staticFetcher, browser,
		extractor.ContentMarkup, cfg.Export.DefaultTitle)
	if err != nil {
		logger.Fatal("Failed to create render extractor", zap.Error(err))
	}

	exporter := pipeline.New(listExtractor, renderExtractor, browser, cfg.Export, metricsCollector, logger)

	handler := service.NewHandler(exporter, metricsCollector, logger)
	server := service.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", cfg.Server.Listen))
		if err := server.ListenAndServe(cfg.Server.Listen); err != nil {
			serverErr <- err
		}
	}()

	dynamicLogger.SwitchToConfiguredLevel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		dynamicLogger.EnsureInfoLevelForShutdown()
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		dynamicLogger.EnsureInfoLevelForShutdown()
		logger.Error("HTTP server failed", zap.Error(err))
	}

	if metricsServer != nil {
		metricsCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.ShutdownWithContext(metricsCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Chat export service stopped")
}
