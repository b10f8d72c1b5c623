package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/timeline"
	"github.com/fireshare/trim-agent/internal/trim"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	Sessions int    `json:"sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type StatusResponse struct {
	State           string `json:"state"`
	Sessions        int    `json:"sessions"`
	Submitting      int    `json:"submitting"`
	LastRefresh     string `json:"last_refresh,omitempty"`
	RefreshFailures int    `json:"refresh_failures"`
	LastError       string `json:"last_error,omitempty"`
}

type RefreshResponse struct {
	Count int `json:"count"`
}

type VideoResponse struct {
	VideoID       string    `json:"video_id"`
	Title         string    `json:"title"`
	Extension     string    `json:"extension"`
	Duration      float64   `json:"duration"`
	DurationClock string    `json:"duration_clock"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	ViewCount     int       `json:"view_count"`
	UpdatedAt     time.Time `json:"updated_at"`
	PosterURL     string    `json:"poster_url"`
}

type VideosResponse struct {
	Sort   string          `json:"sort"`
	Videos []VideoResponse `json:"videos"`
}

type HoverResponse struct {
	VideoID string `json:"video_id"`
	Pending bool   `json:"pending"`
}

type TrimsResponse struct {
	Trims []*catalog.TrimRecord `json:"trims"`
}

func VideoToResponse(v *media.Video, loc media.Locator) VideoResponse {
	return VideoResponse{
		VideoID:       v.VideoID,
		Title:         v.Info.Title,
		Extension:     v.Extension,
		Duration:      v.Info.Duration,
		DurationClock: timeline.FormatClock(v.Info.Duration),
		Width:         v.Info.Width,
		Height:        v.Info.Height,
		ViewCount:     v.ViewCount,
		UpdatedAt:     v.UpdatedAt,
		PosterURL:     loc.PosterURL(v.VideoID),
	}
}

// Query parameter sets, validated after parsing.

type videosQuery struct {
	Sort string `validate:"omitempty,oneof=newest oldest az za most_views least_views"`
}

type trimsQuery struct {
	Limit int `validate:"omitempty,min=1,max=500"`
}

type sessionQuery struct {
	VideoID string `validate:"required,max=128"`
	Compact bool
}

// Websocket messages from the browser.

const (
	msgLoad          = "load"
	msgDragStart     = "drag_start"
	msgPointerMove   = "pointer_move"
	msgPointerUp     = "pointer_up"
	msgClick         = "click"
	msgTimeUpdate    = "time_update"
	msgTogglePreview = "toggle_preview"
	msgSaveAsNew     = "save_as_new"
	msgSubmit        = "submit"
	msgCancel        = "cancel"
)

type clientMessage struct {
	Type    string  `json:"type" validate:"required,oneof=load drag_start pointer_move pointer_up click time_update toggle_preview save_as_new submit cancel"`
	VideoID string  `json:"video_id,omitempty" validate:"max=128"`
	Handle  string  `json:"handle,omitempty" validate:"omitempty,oneof=start end"`
	X       float64 `json:"x"`
	Left    float64 `json:"left"`
	Width   float64 `json:"width" validate:"gte=0"`
	Time    float64 `json:"time" validate:"gte=0"`
	// Seq is the last player command the browser applied.
	Seq   uint64 `json:"seq"`
	Value bool   `json:"value"`
}

func (m clientMessage) bounds() timeline.Bounds {
	return timeline.Bounds{Left: m.Left, Width: m.Width}
}

// Websocket messages to the browser.

type stateMessage struct {
	Type     string        `json:"type"`
	Snapshot trim.Snapshot `json:"snapshot"`
}

type playerMessage struct {
	Type    string  `json:"type"`
	Command string  `json:"command"`
	Time    float64 `json:"time"`
	Seq     uint64  `json:"seq"`
}

type captureMessage struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

type alertMessage struct {
	Type  string     `json:"type"`
	Alert trim.Alert `json:"alert"`
}

type completeMessage struct {
	Type          string `json:"type"`
	VideoID       string `json:"video_id"`
	ResultVideoID string `json:"result_video_id,omitempty"`
	SaveAsNew     bool   `json:"save_as_new"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
