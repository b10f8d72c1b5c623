package api

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fireshare/trim-agent/internal/gallery"
	"github.com/fireshare/trim-agent/internal/timeline"
	"github.com/fireshare/trim-agent/internal/trim"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// client is one browser connection. Outbound messages are queued and
// written by a single goroutine, so any goroutine may send, including
// those holding the session lock.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newClient(conn *websocket.Conn, logger *slog.Logger) *client {
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go c.writePump()
	return c
}

// sendJSON queues v without blocking. A full queue means the browser has
// stopped reading, so the message is dropped.
func (c *client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode ws message", "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.logger.Warn("ws send queue full, dropping message")
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			c.conn.Close()
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("ws write failed", "error", err)
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) Notify(a trim.Alert) {
	c.sendJSON(alertMessage{Type: "alert", Alert: a})
}

// remotePlayer is the video element living in the browser. Commands are
// forwarded as player messages; time updates arrive back as time_update.
//
// The browser applies commands asynchronously, so every command carries a
// sequence number and time updates echo the last one the browser applied.
// Updates sent before the latest seek describe a position the player has
// already left and are dropped.
type remotePlayer struct {
	c *client

	mu        sync.Mutex
	current   float64
	seq       uint64
	seekSeq   uint64
	listeners map[int]func(float64)
	nextID    int
}

func newRemotePlayer(c *client) *remotePlayer {
	return &remotePlayer{c: c, listeners: make(map[int]func(float64))}
}

func (p *remotePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *remotePlayer) Seek(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = t
	p.seekSeq = p.command("seek")
}

func (p *remotePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.command("play")
}

func (p *remotePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.command("pause")
}

// command queues one player command under p.mu, which keeps sequence
// numbers in send order.
func (p *remotePlayer) command(name string) uint64 {
	p.seq++
	p.c.sendJSON(playerMessage{Type: "player", Command: name, Time: p.current, Seq: p.seq})
	return p.seq
}

func (p *remotePlayer) OnTimeUpdate(fn func(t float64)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// update records the browser's playback position and fans it out. seq is
// the last command the browser had applied when it read the position. It
// reports false when the update predates the latest seek.
func (p *remotePlayer) update(t float64, seq uint64) bool {
	p.mu.Lock()
	if last := p.seekSeq; seq < last {
		p.mu.Unlock()
		p.c.logger.Debug("dropping stale time update", "time", t, "seq", seq, "seek_seq", last)
		return false
	}
	p.current = t
	fns := make([]func(float64), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
	return true
}

// remoteSurface is the browser document. While a listener is attached the
// browser is told to capture pointer events and forward them.
type remoteSurface struct {
	c *client

	mu       sync.Mutex
	listener *timeline.Listener
	token    uint64
}

func (s *remoteSurface) Listen(l timeline.Listener) func() {
	s.mu.Lock()
	s.token++
	token := s.token
	s.listener = &l
	s.mu.Unlock()
	s.c.sendJSON(captureMessage{Type: "capture", Active: true})

	return func() {
		s.mu.Lock()
		if s.token != token || s.listener == nil {
			s.mu.Unlock()
			return
		}
		s.listener = nil
		s.mu.Unlock()
		s.c.sendJSON(captureMessage{Type: "capture", Active: false})
	}
}

func (s *remoteSurface) current() *timeline.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// Listeners run outside s.mu since releasing them takes it.

func (s *remoteSurface) move(clientX float64, b timeline.Bounds) {
	if l := s.current(); l != nil && l.Move != nil {
		l.Move(clientX, b)
	}
}

func (s *remoteSurface) up() {
	if l := s.current(); l != nil && l.Up != nil {
		l.Up()
	}
}

func completeHandler(c *client) trim.CompleteFunc {
	return func(videoID string, res *gallery.TrimResult, saveAsNew bool) {
		msg := completeMessage{Type: "complete", VideoID: videoID, SaveAsNew: saveAsNew}
		if res != nil {
			msg.ResultVideoID = res.VideoID
		}
		c.sendJSON(msg)
	}
}
