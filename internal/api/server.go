package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/neocable/internal/api/handlers"
	"github.com/amaumene/neocable/internal/api/middleware"
	"github.com/amaumene/neocable/internal/config"
	"github.com/amaumene/neocable/internal/controllers"
	"github.com/amaumene/neocable/internal/models"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	db       *models.Database
	cache    *controllers.MetaCache
	metadata *controllers.MetadataController
	resolver *controllers.Resolver
	logger   *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, cache *controllers.MetaCache, metadata *controllers.MetadataController, resolver *controllers.Resolver, logger *logrus.Logger) *Server {
	s := &Server{
		db:       db,
		cache:    cache,
		metadata: metadata,
		resolver: resolver,
		logger:   logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	statusHandler := handlers.NewStatusHandler(s.db, s.cache, s.logger)
	mux.HandleFunc("GET /status", statusHandler.ServeHTTP)

	channelsHandler := handlers.NewChannelsHandler(s.db, s.metadata, s.logger)
	mux.HandleFunc("GET /api/channels", channelsHandler.List)
	mux.HandleFunc("GET /api/channels/{slug}/programs", channelsHandler.Lineup)

	programsHandler := handlers.NewProgramsHandler(s.db, s.metadata, s.resolver, s.logger)
	mux.HandleFunc("GET /api/programs/{id}", programsHandler.Metadata)
	mux.HandleFunc("GET /api/programs/{id}/link", programsHandler.Link)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
