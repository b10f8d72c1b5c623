package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fireshare/trim-agent/internal/api"
	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/config"
	"github.com/fireshare/trim-agent/internal/hover"
	"github.com/fireshare/trim-agent/internal/logging"
	"github.com/fireshare/trim-agent/internal/trim"
	"github.com/fireshare/trim-agent/internal/ui"
)

var (
	portFlag            int
	headlessFlag        bool
	refreshIntervalFlag time.Duration
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trim agent API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "HTTP port (default from TRIMMER_PORT)")
	serveCmd.Flags().BoolVar(&headlessFlag, "headless", false, "Run without the system tray")
	serveCmd.Flags().DurationVar(&refreshIntervalFlag, "refresh-interval", catalog.DefaultRefreshInterval, "How often to refresh the gallery listing")
}

func runServe(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg, logger := a.cfg, a.logger
	if portFlag > 0 {
		cfg.SetPort(portFlag)
	}
	if headlessFlag {
		cfg.SetHeadless(true)
	}
	logger.Info("starting trim agent", "version", config.Version, "data_dir", cfg.DataDir(), "gallery", cfg.GalleryURL())

	authToken, err := ensureAuthToken(cmd.Context(), a.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Printf("Trim Agent %s\n", config.Version)
	fmt.Println("--------------------------------------------")
	fmt.Printf("API URL:    http://127.0.0.1:%d\n", cfg.Port())
	fmt.Printf("Auth Token: %s\n", authToken)
	fmt.Printf("Gallery:    %s (%s)\n", cfg.GalleryURL(), cfg.ServedBy())
	fmt.Println("============================================")
	fmt.Println()

	var extractor trim.FilmstripExtractor
	if ex, err := a.extractor(); err != nil {
		logger.Warn("ffmpeg unavailable, filmstrips disabled", "error", err)
	} else {
		extractor = ex
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	refresher := catalog.NewRefresher(a.catalog, refreshIntervalFlag, logging.WithComponent(logger, "refresher"))
	prefetcher := hover.NewPrefetcher(ctx, cfg.HoverDelay(), a.catalog.Prefetch, logging.WithComponent(logger, "hover"))
	defer prefetcher.Stop()
	sessions := trim.NewManager()

	server := api.NewServer(api.ServerConfig{
		Port:            cfg.Port(),
		Catalog:         a.catalog,
		Repository:      a.repo,
		Refresher:       refresher,
		Sessions:        sessions,
		Prefetcher:      prefetcher,
		Extractor:       extractor,
		Trimmer:         a.gallery,
		Locator:         a.locator,
		ThumbnailHeight: cfg.ThumbnailHeight(),
		SuccessDelay:    cfg.SuccessDelay(),
		AllowedOrigins:  cfg.AllowedOrigins(),
		Logger:          logging.WithComponent(logger, "api"),
		StartTime:       startTime,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		refresher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		open := sessions.Sessions()
		sessions.CloseAll()
		waitForTrims(shutdownCtx, open, logger)
		return err
	})

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			CatalogService: a.catalog,
			Refresher:      refresher,
			Sessions:       sessions,
			Logger:         logging.WithComponent(logger, "tray"),
			OnQuit:         quit,
		})
		go tray.Run()
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// waitForTrims lets in-flight trims reach the gallery before exit.
func waitForTrims(ctx context.Context, sessions []*trim.Session, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		trim.Wait(sessions...)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("abandoning in-flight trims at shutdown")
	}
}
