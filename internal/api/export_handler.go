package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/fireshare/trim-agent/internal/export"
)

// edlHandler exports the session's current selection as a one-event EDL.
func edlHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookupSession(w, r, cfg)
		if s == nil {
			return
		}

		req := export.Request{Title: r.URL.Query().Get("title")}
		if v := r.URL.Query().Get("frame_rate"); v != "" {
			fr, err := strconv.ParseFloat(v, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "frame_rate must be a number", "BAD_REQUEST")
				return
			}
			req.FrameRate = fr
		}
		if err := validate.Struct(req); err != nil {
			WriteError(w, http.StatusBadRequest, validationMessage(err), "BAD_REQUEST")
			return
		}

		d, ok := s.Video()
		if !ok {
			WriteError(w, http.StatusConflict, "no video loaded", "NO_VIDEO")
			return
		}

		title := req.Title
		if title == "" {
			if v, err := cfg.Catalog.Video(r.Context(), d.ID); err == nil {
				title = v.Info.Title
			}
		}
		if title == "" {
			title = d.ID
		}

		clip := export.SelectionClip(d, title, s.Range(), cfg.Locator)
		edl := export.GenerateEDL([]export.Clip{clip}, title, req.FrameRate)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(title, "edl")))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, edl)
	}
}
