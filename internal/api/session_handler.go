package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fireshare/trim-agent/internal/logging"
	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/thumbnail"
	"github.com/fireshare/trim-agent/internal/timeline"
	"github.com/fireshare/trim-agent/internal/trim"
)

// sessionSocketHandler opens a trim session bound to one websocket. The
// session lives exactly as long as the connection.
func sessionSocketHandler(cfg ServerConfig) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin, cfg.AllowedOrigins)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := sessionQuery{VideoID: r.URL.Query().Get("video_id")}
		if v := r.URL.Query().Get("compact"); v != "" {
			compact, err := strconv.ParseBool(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "compact must be a boolean", "BAD_REQUEST")
				return
			}
			q.Compact = compact
		}
		if err := validate.Struct(q); err != nil {
			WriteError(w, http.StatusBadRequest, validationMessage(err), "BAD_REQUEST")
			return
		}

		d, err := cfg.Catalog.Descriptor(r.Context(), q.VideoID)
		if err != nil {
			status, code := descriptorError(err)
			WriteError(w, status, err.Error(), code)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.Logger.Warn("websocket upgrade failed", "error", err, "video_id", q.VideoID)
			return
		}
		serveSession(cfg, conn, d, q.Compact)
	}
}

func serveSession(cfg ServerConfig, conn *websocket.Conn, d media.Descriptor, compact bool) {
	id := uuid.NewString()
	logger := logging.WithVideoID(logging.WithComponent(cfg.Logger, "session"), d.ID)

	c := newClient(conn, logging.WithSessionID(logger, id))
	defer c.close()

	base := cfg.baseCtx
	if base == nil {
		base = context.Background()
	}
	go func() {
		select {
		case <-base.Done():
			c.close()
		case <-c.done:
		}
	}()

	height := cfg.ThumbnailHeight
	if compact {
		height = thumbnail.CompactHeight
	}

	player := newRemotePlayer(c)
	surface := &remoteSurface{c: c}
	var recorder trim.Recorder
	if cfg.Catalog != nil {
		recorder = cfg.Catalog
	}

	session := cfg.Sessions.Open(trim.Config{
		ID:              id,
		Player:          player,
		Surface:         surface,
		Extractor:       cfg.Extractor,
		Trimmer:         cfg.Trimmer,
		Notifier:        trim.MultiNotifier{c, trim.LogNotifier{Logger: logger}},
		Recorder:        recorder,
		ThumbnailHeight: height,
		SuccessDelay:    cfg.SuccessDelay,
		OnChange: func(s trim.Snapshot) {
			c.sendJSON(stateMessage{Type: "state", Snapshot: s})
		},
		OnComplete: completeHandler(c),
		Logger:     logger,
	})
	defer cfg.Sessions.Remove(id)

	if err := session.Load(d); err != nil {
		c.sendJSON(errorMessage{Type: "error", Code: errorCode(err), Message: err.Error()})
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket closed", "session_id", id, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendJSON(errorMessage{Type: "error", Code: "BAD_MESSAGE", Message: "invalid JSON"})
			continue
		}
		if err := validate.Struct(msg); err != nil {
			c.sendJSON(errorMessage{Type: "error", Code: "BAD_MESSAGE", Message: validationMessage(err)})
			continue
		}
		if msg.Type == msgCancel {
			logger.Info("session cancelled", "session_id", id)
			return
		}
		if err := dispatch(base, cfg, session, player, surface, msg); err != nil {
			c.sendJSON(errorMessage{Type: "error", Code: errorCode(err), Message: err.Error()})
		}
	}
}

// codedError carries the client error code of a failure that did not come
// from the session itself.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

var errMissingVideoID = errors.New("load requires video_id")

// loadTimeout bounds the metadata fetch of a load message.
const loadTimeout = 30 * time.Second

func dispatch(ctx context.Context, cfg ServerConfig, s *trim.Session, p *remotePlayer, surface *remoteSurface, msg clientMessage) error {
	switch msg.Type {
	case msgLoad:
		if msg.VideoID == "" {
			return &codedError{code: "BAD_MESSAGE", err: errMissingVideoID}
		}
		ctx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()
		d, err := cfg.Catalog.ReloadDescriptor(ctx, msg.VideoID)
		if err != nil {
			_, code := descriptorError(err)
			return &codedError{code: code, err: err}
		}
		return s.Load(d)
	case msgDragStart:
		h, err := timeline.ParseHandle(msg.Handle)
		if err != nil {
			return err
		}
		return s.BeginDrag(h)
	case msgPointerMove:
		surface.move(msg.X, msg.bounds())
	case msgPointerUp:
		surface.up()
	case msgClick:
		_, _, err := s.Click(msg.X, msg.bounds())
		return err
	case msgTimeUpdate:
		p.update(msg.Time, msg.Seq)
	case msgTogglePreview:
		_, err := s.TogglePreview()
		return err
	case msgSaveAsNew:
		return s.SetSaveAsNew(msg.Value)
	case msgSubmit:
		return s.Submit(context.Background())
	}
	return nil
}

func errorCode(err error) string {
	var coded *codedError
	switch {
	case errors.As(err, &coded):
		return coded.code
	case errors.Is(err, trim.ErrSubmitting):
		return "SUBMITTING"
	case errors.Is(err, trim.ErrCompleted):
		return "COMPLETED"
	case errors.Is(err, trim.ErrRangeTooShort):
		return "RANGE_TOO_SHORT"
	case errors.Is(err, trim.ErrLocked):
		return "LOCKED"
	case errors.Is(err, trim.ErrNoPlayer):
		return "NO_PLAYER"
	case errors.Is(err, trim.ErrNoVideo):
		return "NO_VIDEO"
	case errors.Is(err, trim.ErrSessionClosed):
		return "SESSION_CLOSED"
	case errors.Is(err, timeline.ErrNoDuration):
		return "NO_DURATION"
	case errors.Is(err, timeline.ErrDragActive):
		return "DRAG_ACTIVE"
	case errors.Is(err, timeline.ErrUnknownHandle):
		return "BAD_MESSAGE"
	default:
		return "INTERNAL_ERROR"
	}
}
