package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amaumene/neocable/internal/api"
	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/controllers"
	"github.com/amaumene/neocable/internal/models"
	"github.com/amaumene/neocable/internal/ratelimit"
	"github.com/amaumene/neocable/internal/scheduler"
	"github.com/amaumene/neocable/internal/services/prowlarr"
	"github.com/amaumene/neocable/internal/services/realdebrid"
	"github.com/amaumene/neocable/internal/services/stremthru"
	"github.com/amaumene/neocable/internal/services/tmdb"
	"github.com/amaumene/neocable/internal/services/trakt"
	"github.com/amaumene/neocable/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Neocable")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Load blacklist
	blacklist, err := utils.LoadBlacklist(cfg.BlacklistFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load blacklist, continuing without it")
		blacklist = &utils.Blacklist{}
	} else {
		logger.Info("Blacklist loaded")
	}

	// 5. Initialize services
	traktClient, err := trakt.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Trakt client: %w", err)
	}
	logger.Info("Trakt client initialized")

	// Check if we need to authenticate
	_, err = traktClient.GetToken()
	if err != nil {
		logger.Info("Trakt authentication required")
		ctx := context.Background()
		if err := traktClient.Authenticate(ctx); err != nil {
			return fmt.Errorf("failed to authenticate with Trakt: %w", err)
		}
	}

	tmdbClient, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	logger.Info("TMDB client initialized")

	// The indexer and the debrid provider each get their own spacing
	// gate so one origin's traffic never starves the other
	gateInterval := time.Duration(cfg.RateGateMs) * time.Millisecond
	prowlarrClient, err := prowlarr.NewClient(cfg, ratelimit.NewGate(gateInterval), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Prowlarr client: %w", err)
	}
	logger.Info("Prowlarr client initialized")

	stremthruClient, err := stremthru.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize StremThru client: %w", err)
	}
	logger.Info("StremThru client initialized")

	debridClient, err := realdebrid.NewClient(cfg, ratelimit.NewGate(gateInterval), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Real-Debrid client: %w", err)
	}
	logger.Info("Real-Debrid client initialized")

	// 6. Initialize controllers
	cache := controllers.NewMetaCache(time.Duration(cfg.MetaCacheTTLHours) * time.Hour)
	metadataCtrl := controllers.NewMetadataController(db, tmdbClient, cache, logger)
	resolver := controllers.NewResolver(cfg, metadataCtrl, cache, prowlarrClient, stremthruClient, debridClient, blacklist, logger)
	lineupCtrl := controllers.NewLineupController(cfg, db, traktClient, logger)
	prefetcher := controllers.NewPrefetcher(cfg, db, resolver, logger)
	logger.Info("Controllers initialized")

	// 7. Initialize scheduler
	sched := scheduler.NewScheduler(lineupCtrl, prefetcher, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(cfg, db, cache, metadataCtrl, resolver, logger)

	// Start server in goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Neocable is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Neocable stopped")
	return nil
}
