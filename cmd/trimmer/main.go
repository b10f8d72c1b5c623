package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/config"
	"github.com/fireshare/trim-agent/internal/db"
	"github.com/fireshare/trim-agent/internal/gallery"
	"github.com/fireshare/trim-agent/internal/logging"
	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/thumbnail"
)

// Persistent flags
var (
	logLevelFlag   string
	galleryURLFlag string
	dataDirFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "trimmer",
	Short: "Local agent for trimming gallery videos",
	Long: `Trimmer runs next to a video gallery and owns the trim sessions of its
browser client: filmstrip extraction, the draggable selection range, preview
playback and submission of the trim to the gallery backend.

Configuration is read from TRIMMER_* environment variables; the flags below
override a few of them.

Examples:
  trimmer serve
  trimmer serve --port 9000 --headless
  trimmer videos --sort most_views
  trimmer filmstrip --video-id abc123 --out ./thumbs
  trimmer trim --video-id abc123 --start 4 --end 7`,
	SilenceUsage: true,
	Version:      config.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&galleryURLFlag, "gallery-url", "", "Base URL of the gallery backend")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory for the local database")

	rootCmd.AddCommand(serveCmd, videosCmd, filmstripCmd, trimCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand shares.
type app struct {
	cfg     *config.EnvConfig
	logger  *slog.Logger
	db      *db.DB
	repo    catalog.Repository
	gallery *gallery.Client
	catalog *catalog.Service
	locator media.Locator
}

func newApp() (*app, error) {
	for env, v := range map[string]string{
		config.EnvLogLevel:   logLevelFlag,
		config.EnvGalleryURL: galleryURLFlag,
		config.EnvDataDir:    dataDirFlag,
	} {
		if v != "" {
			os.Setenv(env, v)
		}
	}

	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := catalog.NewRepository(database.Conn())
	locator := media.Locator{BaseURL: cfg.GalleryURL(), ServedBy: cfg.ServedBy()}
	client := gallery.NewClient(cfg.GalleryURL(), cfg.GalleryToken(), logging.WithComponent(logger, "gallery"))

	if cfg.GalleryToken() != "" {
		logger.Debug("gallery token configured", "token", logging.SanitizeToken(cfg.GalleryToken()))
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		repo:    repo,
		gallery: client,
		catalog: catalog.NewService(repo, client, locator, logging.WithComponent(logger, "catalog")),
		locator: locator,
	}, nil
}

func (a *app) close() {
	a.db.Close()
}

// extractor returns the ffmpeg-backed filmstrip extractor, or an error when
// the binaries are missing.
func (a *app) extractor() (*thumbnail.Extractor, error) {
	ff := thumbnail.NewFFmpeg(a.cfg.FFmpegPath(), a.cfg.FFprobePath(), logging.WithComponent(a.logger, "ffmpeg"))
	if err := ff.Available(); err != nil {
		return nil, err
	}
	return thumbnail.NewExtractor(ff, a.locator, thumbnail.Options{
		Count:       a.cfg.ThumbnailCount(),
		Quality:     a.cfg.ThumbnailQuality(),
		SeekTimeout: a.cfg.SeekTimeout(),
	}, logging.WithComponent(a.logger, "filmstrip")), nil
}

func ensureAuthToken(ctx context.Context, repo catalog.Repository) (string, error) {
	existing, err := repo.GetConfig(ctx, catalog.KeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, catalog.KeyAuthToken, token); err != nil {
		return "", err
	}

	return token, nil
}
