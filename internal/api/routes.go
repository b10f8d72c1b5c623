package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/config"
	"github.com/fireshare/trim-agent/internal/gallery"
	"github.com/fireshare/trim-agent/internal/trim"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		// The websocket upgrade must see the raw writer, so it stays
		// outside the gzip group.
		r.Get("/sessions/ws", sessionSocketHandler(cfg))

		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

			r.Get("/status", statusHandler(cfg))
			r.Get("/videos", listVideosHandler(cfg))
			r.Post("/videos/refresh", refreshHandler(cfg))
			r.Post("/videos/{id}/hover", hoverEnterHandler(cfg))
			r.Delete("/videos/{id}/hover", hoverLeaveHandler(cfg))
			r.Get("/sessions/{id}", getSessionHandler(cfg))
			r.Get("/sessions/{id}/thumbnails/{index}", thumbnailHandler(cfg))
			r.Get("/sessions/{id}/edl", edlHandler(cfg))
			r.Get("/trims", listTrimsHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			Sessions: cfg.Sessions.Count(),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resp := StatusResponse{State: "idle"}
		for _, s := range cfg.Sessions.Sessions() {
			resp.Sessions++
			if s.Snapshot().State == trim.StateSubmitting {
				resp.Submitting++
			}
		}

		if last, err := cfg.Catalog.LastRefresh(ctx); err == nil && !last.IsZero() {
			resp.LastRefresh = last.Format(time.RFC3339)
		}

		trims, _ := cfg.Catalog.Trims(ctx, 10)
		if len(trims) > 0 && trims[0].Status == catalog.TrimStatusFailed {
			resp.LastError = trims[0].Error
		}

		if cfg.Refresher != nil {
			resp.RefreshFailures = cfg.Refresher.Failures()
			if cfg.Refresher.IsPaused() {
				resp.State = "paused"
			}
		}

		switch {
		case resp.Submitting > 0:
			resp.State = "trimming"
		case resp.State == "idle" && (resp.LastError != "" || resp.RefreshFailures > 0):
			resp.State = "error"
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := videosQuery{Sort: r.URL.Query().Get("sort")}
		if err := validate.Struct(q); err != nil {
			WriteError(w, http.StatusBadRequest, validationMessage(err), "BAD_REQUEST")
			return
		}
		mode, err := catalog.ParseSortMode(q.Sort)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		videos, err := cfg.Catalog.Videos(r.Context(), mode)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list videos", "INTERNAL_ERROR")
			return
		}

		resp := VideosResponse{Sort: mode.String(), Videos: make([]VideoResponse, len(videos))}
		for i, v := range videos {
			resp.Videos[i] = VideoToResponse(v, cfg.Locator)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func refreshHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := cfg.Catalog.Refresh(r.Context())
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "GALLERY_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, RefreshResponse{Count: n})
	}
}

func hoverEnterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Prefetcher == nil {
			WriteError(w, http.StatusServiceUnavailable, "hover prefetch disabled", "UNAVAILABLE")
			return
		}
		id := chi.URLParam(r, "id")
		cfg.Prefetcher.Enter(id)
		WriteJSON(w, http.StatusAccepted, HoverResponse{VideoID: id, Pending: true})
	}
}

func hoverLeaveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Prefetcher == nil {
			WriteError(w, http.StatusServiceUnavailable, "hover prefetch disabled", "UNAVAILABLE")
			return
		}
		id := chi.URLParam(r, "id")
		pending := cfg.Prefetcher.Leave(id)
		WriteJSON(w, http.StatusOK, HoverResponse{VideoID: id, Pending: pending})
	}
}

// lookupSession writes a 404 and returns nil when the session is gone.
func lookupSession(w http.ResponseWriter, r *http.Request, cfg ServerConfig) *trim.Session {
	s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
		return nil
	}
	return s
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookupSession(w, r, cfg)
		if s == nil {
			return
		}
		WriteJSON(w, http.StatusOK, s.Snapshot())
	}
}

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookupSession(w, r, cfg)
		if s == nil {
			return
		}
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "index must be an integer", "BAD_REQUEST")
			return
		}
		sample, ok := s.Thumbnail(idx)
		if !ok {
			WriteError(w, http.StatusNotFound, "thumbnail not found", "NOT_FOUND")
			return
		}

		etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(sample.Image))
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		if strings.Contains(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(sample.Image)))
		w.WriteHeader(http.StatusOK)
		w.Write(sample.Image)
	}
}

func listTrimsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q trimsQuery
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "limit must be an integer", "BAD_REQUEST")
				return
			}
			q.Limit = n
		}
		if err := validate.Struct(q); err != nil {
			WriteError(w, http.StatusBadRequest, validationMessage(err), "BAD_REQUEST")
			return
		}

		trims, err := cfg.Catalog.Trims(r.Context(), q.Limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list trims", "INTERNAL_ERROR")
			return
		}
		if trims == nil {
			trims = []*catalog.TrimRecord{}
		}
		WriteJSON(w, http.StatusOK, TrimsResponse{Trims: trims})
	}
}

// descriptorError maps a failed video lookup to a status and code.
func descriptorError(err error) (int, string) {
	var apiErr *gallery.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, "VIDEO_NOT_FOUND"
	case errors.Is(err, catalog.ErrUnsupportedVideo):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_VIDEO"
	}
	return http.StatusBadGateway, "GALLERY_ERROR"
}
