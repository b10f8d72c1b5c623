package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClient_Trim_Success(t *testing.T) {
	var received TrimRequest
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/video/trim" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_id":"new123","info":{"duration":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "test-token", testLogger())
	res, err := client.Trim(context.Background(), TrimRequest{VideoID: "vid1", StartTime: 4, EndTime: 7, SaveAsNew: true})
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if received != (TrimRequest{VideoID: "vid1", StartTime: 4, EndTime: 7, SaveAsNew: true}) {
		t.Errorf("request body = %+v", received)
	}
	if res.VideoID != "new123" {
		t.Errorf("VideoID = %q, want new123", res.VideoID)
	}
	if len(res.Data) == 0 {
		t.Error("Data is empty")
	}
}

func TestClient_Trim_InPlaceKeepsID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"ok"`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testLogger())
	res, err := client.Trim(context.Background(), TrimRequest{VideoID: "vid1", StartTime: 0, EndTime: 1})
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	if res.VideoID != "vid1" {
		t.Errorf("VideoID = %q, want vid1", res.VideoID)
	}
}

func TestClient_Trim_ServerError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		retry   bool
	}{
		{"json string", http.StatusBadRequest, `"Trim range exceeds video length"`, "Trim range exceeds video length", false},
		{"json object", http.StatusInternalServerError, `{"error":"ffmpeg failed"}`, "ffmpeg failed", true},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down", true},
		{"empty", http.StatusForbidden, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "tok", testLogger())
			_, err := client.Trim(context.Background(), TrimRequest{VideoID: "v", EndTime: 1})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.ServerMessage() != tt.message {
				t.Errorf("ServerMessage() = %q, want %q", apiErr.ServerMessage(), tt.message)
			}
			if apiErr.IsRetryable() != tt.retry {
				t.Errorf("IsRetryable() = %v, want %v", apiErr.IsRetryable(), tt.retry)
			}
		})
	}
}

func TestClient_GetVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/video/details/abc" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"video_id":"abc","extension":".mp4","view_count":12,
			"info":{"title":"Ace","duration":31.5,"width":1920,"height":1080,"has_720p":true,"has_1080p":false}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testLogger())
	v, err := client.GetVideo(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if v.Info.Duration != 31.5 || !v.Info.Has720p || v.Info.Width != 1920 || v.ViewCount != 12 {
		t.Errorf("GetVideo() = %+v", v)
	}
}

func TestClient_GetVideo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such video", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testLogger())
	_, err := client.GetVideo(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("error = %v, want 404 APIError", err)
	}
}

func TestClient_ListVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"videos":[{"video_id":"a"},{"video_id":"b"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", testLogger())
	videos, err := client.ListVideos(context.Background())
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if len(videos) != 2 || videos[1].VideoID != "b" {
		t.Errorf("ListVideos() = %+v", videos)
	}
}
