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

	"feedgate/app/analytics"
	"feedgate/app/api"
	"feedgate/app/cfg"
	"feedgate/app/feed"
	"feedgate/app/hub"
	"feedgate/app/limiter"
	"feedgate/app/readers"
	"feedgate/app/source"
	"feedgate/app/store"
	"feedgate/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Feedgate server", "version", appCfg.Version)

	db, err := store.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open snapshot database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := store.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Snapshot database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	itemRepo := store.NewItemRepository(db)

	// Feeds are served from the CMS when an endpoint is configured; the
	// local snapshot store covers the standalone setup.
	var contentSource source.Source
	if appCfg.CMSUrl != "" {
		contentSource = source.NewCMSSource(appCfg.CMSUrl, &http.Client{},
			time.Duration(appCfg.CMSTimeout)*time.Second, appCfg.UserAgent)
		slog.Info("Serving feeds from CMS", "endpoint", appCfg.CMSUrl)
	} else {
		contentSource = source.NewStoreSource(itemRepo)
		slog.Info("Serving feeds from local snapshot store")
	}

	rules := readers.DefaultRules()
	genericTokens := readers.DefaultGenericTokens()
	if appCfg.ReadersFile != "" {
		rules, genericTokens, err = readers.LoadRules(appCfg.ReadersFile)
		if err != nil {
			slog.Error("Failed to load reader rules", "path", appCfg.ReadersFile, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded reader signature rules", "path", appCfg.ReadersFile, "rules", len(rules))
	}
	classifier := readers.NewClassifier(rules, genericTokens)

	metrics := analytics.NewMetrics()
	rateLimiter := limiter.New(appCfg.RateLimitMax, time.Duration(appCfg.RateLimitWindow)*time.Second)

	notifier := hub.NewNotifier(appCfg.HubUrl, &http.Client{},
		time.Duration(appCfg.HubTimeout)*time.Second, appCfg.UserAgent)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(notifier)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(contentSource, feed.NewSerializer(), classifier,
		metrics, metrics, rateLimiter, notifier, scheduler, itemRepo)
	server := api.NewServer(handler, metrics)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		slog.Info("Feed endpoints available",
			"rss", "/feed/rss", "atom", "/feed/atom", "json", "/feed/json",
			"category", "/feed/category/<slug>")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
