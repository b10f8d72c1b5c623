// Package gallery talks to the video gallery backend that owns video
// metadata and performs trims.
package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fireshare/trim-agent/internal/logging"
	"github.com/fireshare/trim-agent/internal/media"
)

const maxErrorBody = 4096

// APIError is a non-2xx response from the gallery backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gallery request failed: HTTP %d: %s", e.StatusCode, e.Message)
}

// ServerMessage is the message the backend put in the response body.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// TrimRequest is the body of POST /api/video/trim.
type TrimRequest struct {
	VideoID   string  `json:"video_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	SaveAsNew bool    `json:"save_as_new"`
}

// TrimResult carries the resource the backend returned: the updated video,
// or the newly created one when SaveAsNew was set.
type TrimResult struct {
	Data    json.RawMessage `json:"data"`
	VideoID string          `json:"video_id,omitempty"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// GetVideo fetches the metadata of one video.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*media.Video, error) {
	var v media.Video
	path := "/api/video/details/" + url.PathEscape(videoID)
	if err := c.do(ctx, http.MethodGet, path, nil, &v); err != nil {
		return nil, err
	}
	if v.VideoID == "" {
		v.VideoID = videoID
	}
	return &v, nil
}

// ListVideos fetches every video visible to the agent's token.
func (c *Client) ListVideos(ctx context.Context) ([]media.Video, error) {
	var resp struct {
		Videos []media.Video `json:"videos"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/videos", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Videos, nil
}

// Trim asks the backend to cut videoID down to the requested range.
func (c *Client) Trim(ctx context.Context, req TrimRequest) (*TrimResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/video/trim", req, &raw); err != nil {
		return nil, err
	}

	res := &TrimResult{Data: raw}
	var ref struct {
		VideoID string `json:"video_id"`
	}
	if err := json.Unmarshal(raw, &ref); err == nil {
		res.VideoID = ref.VideoID
	}
	if res.VideoID == "" && !req.SaveAsNew {
		res.VideoID = req.VideoID
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("gallery request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"token", logging.SanitizeToken(c.token),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a human readable message out of an error body: a
// JSON string, a JSON object with error/message, or the raw text.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}

	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		if obj.Error != "" {
			return obj.Error
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	return string(body)
}
