package catalog

import (
	"errors"
	"strings"
	"time"
)

const (
	TrimStatusSubmitting = "submitting"
	TrimStatusSucceeded  = "succeeded"
	TrimStatusFailed     = "failed"
)

// TrimRecord is one audited trim submission.
type TrimRecord struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"video_id"`
	StartTime     float64   `json:"start_time"`
	EndTime       float64   `json:"end_time"`
	SaveAsNew     bool      `json:"save_as_new"`
	Status        string    `json:"status"`
	ResultVideoID string    `json:"result_video_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ErrUnsupportedVideo marks gallery entries whose container is not a
// trimmable video.
var ErrUnsupportedVideo = errors.New("unsupported video container")

// Config keys
const (
	KeyLastRefresh = "catalog.last_refresh"
	KeyAuthToken   = "auth_token"
)

// videoExtensions are the containers the trimmer can decode and the gallery
// can trim.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// IsVideoExtension reports whether ext (with or without the dot) is a
// container the gallery serves.
func IsVideoExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return videoExtensions[ext]
}
