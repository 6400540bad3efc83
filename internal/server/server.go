// Package server serves the dashboard JSON API over the ledger store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ArionMiles/budgify/internal/metrics"
	"github.com/ArionMiles/budgify/internal/pipeline"
	"github.com/ArionMiles/budgify/pkg/ledger"
)

// DefaultMerchantLimit is the merchant summary size when no limit is given.
const DefaultMerchantLimit = 15

const shutdownTimeout = 10 * time.Second

// ImportFunc runs one import and publishes the merged ledger in the store.
type ImportFunc func(ctx context.Context) (*pipeline.Report, error)

// Config holds server configuration.
type Config struct {
	Addr string
	// Password enables bearer or basic auth on every route but /healthz.
	Password string
	// ExcludeCategories apply when a request names no exclude_category.
	ExcludeCategories []string
	// Import backs POST /api/import. Nil disables the route.
	Import  ImportFunc
	Metrics *metrics.Metrics
}

// Server is the dashboard API.
type Server struct {
	echo    *echo.Echo
	store   *ledger.Store
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	importing sync.Mutex
}

// New creates a server reading from store.
func New(store *ledger.Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = ledger.NewStore(nil)
	}

	s := &Server{
		echo:    echo.New(),
		store:   store,
		config:  cfg,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.errorHandler

	s.echo.Use(middleware.RequestID())
	s.echo.Use(s.requestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.auth()...)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.healthz)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	g := s.echo.Group("/api")
	g.GET("/metadata", s.metadata)
	g.GET("/overview", s.overview)
	g.GET("/summary/category", s.categorySummary)
	g.GET("/summary/period", s.periodSummary)
	g.GET("/summary/merchant", s.merchantSummary)
	g.GET("/transactions", s.transactions)
	if s.config.Import != nil {
		g.POST("/import", s.runImport)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", s.config.Addr)
		errCh <- s.echo.Start(s.config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving dashboard: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down dashboard")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down dashboard: %w", err)
		}
		return nil
	}
}
