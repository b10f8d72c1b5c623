// Package config provides configuration management for the trim agent.
// Configuration is loaded once from environment variables with sensible
// defaults and injected into every component.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fireshare/trim-agent/internal/media"
)

const (
	// Default values
	DefaultPort             = 8788
	DefaultLogLevel         = "info"
	DefaultDataDir          = ".trimmer"
	DefaultGalleryURL       = "http://localhost:8080"
	DefaultThumbnailCount   = 10
	DefaultThumbnailHeight  = 50
	DefaultThumbnailQuality = 50
	DefaultSuccessDelay     = 1500 * time.Millisecond
	DefaultHoverDelay       = 750 * time.Millisecond
	DefaultFFmpeg           = "ffmpeg"
	DefaultFFprobe          = "ffprobe"

	// Environment variable names
	EnvPort             = "TRIMMER_PORT"
	EnvLogLevel         = "TRIMMER_LOG_LEVEL"
	EnvDataDir          = "TRIMMER_DATA_DIR"
	EnvGalleryURL       = "TRIMMER_GALLERY_URL"
	EnvGalleryToken     = "TRIMMER_GALLERY_TOKEN"
	EnvServedBy         = "TRIMMER_SERVED_BY"
	EnvFFmpeg           = "TRIMMER_FFMPEG"
	EnvFFprobe          = "TRIMMER_FFPROBE"
	EnvThumbnailCount   = "TRIMMER_THUMBNAIL_COUNT"
	EnvThumbnailHeight  = "TRIMMER_THUMBNAIL_HEIGHT"
	EnvThumbnailQuality = "TRIMMER_THUMBNAIL_QUALITY"
	EnvSeekTimeout      = "TRIMMER_SEEK_TIMEOUT"
	EnvSuccessDelay     = "TRIMMER_SUCCESS_DELAY"
	EnvHoverDelay       = "TRIMMER_HOVER_DELAY"
	EnvAllowedOrigins   = "TRIMMER_ALLOWED_ORIGINS"
	EnvHeadless         = "TRIMMER_HEADLESS"

	// Database filename
	DBFilename = "trimmer.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	GalleryURL() string
	GalleryToken() string
	ServedBy() media.ServedBy
	FFmpegPath() string
	FFprobePath() string
	ThumbnailCount() int
	ThumbnailHeight() int
	ThumbnailQuality() int
	SeekTimeout() time.Duration
	SuccessDelay() time.Duration
	HoverDelay() time.Duration
	AllowedOrigins() []string
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	dataDir      string
	galleryURL   string
	galleryToken string
	servedBy     media.ServedBy
	ffmpeg       string
	ffprobe      string

	thumbnailCount   int
	thumbnailHeight  int
	thumbnailQuality int
	seekTimeout      time.Duration
	successDelay     time.Duration
	hoverDelay       time.Duration

	allowedOrigins []string
	headless       bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:             DefaultPort,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		galleryURL:       DefaultGalleryURL,
		servedBy:         media.ServedByFlask,
		ffmpeg:           DefaultFFmpeg,
		ffprobe:          DefaultFFprobe,
		thumbnailCount:   DefaultThumbnailCount,
		thumbnailHeight:  DefaultThumbnailHeight,
		thumbnailQuality: DefaultThumbnailQuality,
		successDelay:     DefaultSuccessDelay,
		hoverDelay:       DefaultHoverDelay,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if u := os.Getenv(EnvGalleryURL); u != "" {
		cfg.galleryURL = strings.TrimRight(u, "/")
	}
	cfg.galleryToken = os.Getenv(EnvGalleryToken)

	if sb := os.Getenv(EnvServedBy); sb != "" {
		servedBy, err := media.ParseServedBy(sb)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvServedBy, err)
		}
		cfg.servedBy = servedBy
	}

	if b := os.Getenv(EnvFFmpeg); b != "" {
		cfg.ffmpeg = b
	}
	if b := os.Getenv(EnvFFprobe); b != "" {
		cfg.ffprobe = b
	}

	var err error
	if cfg.thumbnailCount, err = envInt(EnvThumbnailCount, cfg.thumbnailCount, 1, 100); err != nil {
		return nil, err
	}
	if cfg.thumbnailHeight, err = envInt(EnvThumbnailHeight, cfg.thumbnailHeight, 8, 1080); err != nil {
		return nil, err
	}
	if cfg.thumbnailQuality, err = envInt(EnvThumbnailQuality, cfg.thumbnailQuality, 1, 100); err != nil {
		return nil, err
	}
	if cfg.seekTimeout, err = envDuration(EnvSeekTimeout, 0); err != nil {
		return nil, err
	}
	if cfg.successDelay, err = envDuration(EnvSuccessDelay, cfg.successDelay); err != nil {
		return nil, err
	}
	if cfg.hoverDelay, err = envDuration(EnvHoverDelay, cfg.hoverDelay); err != nil {
		return nil, err
	}

	if o := os.Getenv(EnvAllowedOrigins); o != "" {
		for _, origin := range strings.Split(o, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.allowedOrigins = append(cfg.allowedOrigins, origin)
			}
		}
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// GalleryURL returns the base URL of the gallery backend
func (c *EnvConfig) GalleryURL() string {
	return c.galleryURL
}

func (c *EnvConfig) GalleryToken() string {
	return c.galleryToken
}

// ServedBy selects the media URL scheme
func (c *EnvConfig) ServedBy() media.ServedBy {
	return c.servedBy
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpeg
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobe
}

func (c *EnvConfig) ThumbnailCount() int {
	return c.thumbnailCount
}

func (c *EnvConfig) ThumbnailHeight() int {
	return c.thumbnailHeight
}

func (c *EnvConfig) ThumbnailQuality() int {
	return c.thumbnailQuality
}

// SeekTimeout bounds each filmstrip seek. Zero waits indefinitely.
func (c *EnvConfig) SeekTimeout() time.Duration {
	return c.seekTimeout
}

// SuccessDelay is how long a trim confirmation stays visible before completion
func (c *EnvConfig) SuccessDelay() time.Duration {
	return c.successDelay
}

func (c *EnvConfig) HoverDelay() time.Duration {
	return c.hoverDelay
}

// AllowedOrigins lists the browser origins allowed to call the API.
// Empty allows any origin.
func (c *EnvConfig) AllowedOrigins() []string {
	return c.allowedOrigins
}

// Headless disables the system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// SetPort overrides the port, for CLI flags.
func (c *EnvConfig) SetPort(port int) {
	c.port = port
}

// SetHeadless overrides the tray setting, for CLI flags.
func (c *EnvConfig) SetHeadless(v bool) {
	c.headless = v
}

func envInt(name string, def, lo, hi int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", name, lo, hi)
	}
	return v, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", name)
	}
	return d, nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
