package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/hover"
	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/trim"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port            int
	Catalog         catalog.CatalogService
	Repository      catalog.Repository
	Refresher       *catalog.Refresher
	Sessions        *trim.Manager
	Prefetcher      *hover.Prefetcher
	Extractor       trim.FilmstripExtractor
	Trimmer         trim.Trimmer
	Locator         media.Locator
	ThumbnailHeight int
	SuccessDelay    time.Duration
	AllowedOrigins  []string
	Logger          *slog.Logger
	StartTime       time.Time

	// Done on shutdown. Hijacked websocket connections are not closed by
	// http.Server.Shutdown, so they watch this instead.
	baseCtx context.Context
}

func NewServer(cfg ServerConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	cfg.baseCtx = ctx
	router := NewRouter(cfg)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	httpServer.RegisterOnShutdown(cancel)

	return &Server{
		httpServer: httpServer,
		logger:     cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
