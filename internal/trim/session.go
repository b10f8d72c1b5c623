package trim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/thumbnail"
	"github.com/fireshare/trim-agent/internal/timeline"
)

// FilmstripExtractor produces the thumbnail samples for one video.
type FilmstripExtractor interface {
	Extract(ctx context.Context, d media.Descriptor, height int) ([]thumbnail.Sample, error)
}

type Config struct {
	ID              string
	Player          Player
	Surface         timeline.Surface
	Extractor       FilmstripExtractor
	Trimmer         Trimmer
	Notifier        Notifier
	Recorder        Recorder
	ThumbnailHeight int
	SuccessDelay    time.Duration

	// OnChange receives a snapshot after every visible state change. It is
	// called with the session lock held and must not call back into the
	// session.
	OnChange   func(Snapshot)
	OnComplete CompleteFunc
	Logger     *slog.Logger
}

// ThumbnailRef locates one filmstrip frame without its image bytes.
type ThumbnailRef struct {
	Index int     `json:"index"`
	Time  float64 `json:"time"`
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID              string          `json:"id"`
	VideoID         string          `json:"video_id,omitempty"`
	Duration        float64         `json:"duration"`
	Start           float64         `json:"start"`
	End             float64         `json:"end"`
	StartClock      string          `json:"start_clock"`
	EndClock        string          `json:"end_clock"`
	SelectionClock  string          `json:"selection_clock"`
	Dragging        timeline.Handle `json:"dragging,omitempty"`
	Previewing      bool            `json:"previewing"`
	Playhead        float64         `json:"playhead"`
	Loading         bool            `json:"loading"`
	Thumbnails      []ThumbnailRef  `json:"thumbnails"`
	ThumbnailHeight int             `json:"thumbnail_height"`
	SaveAsNew       bool            `json:"save_as_new"`
	State           SubmitState     `json:"state"`
	CanSubmit       bool            `json:"can_submit"`
}

// Session is one trim session over one video at a time. All methods are
// safe for concurrent use.
type Session struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	selector    *timeline.Selector
	sync        *Synchronizer
	submitter   *Submitter
	video       media.Descriptor
	loaded      bool
	thumbs      []thumbnail.Sample
	loading     bool
	saveAsNew   bool
	gen         uint64
	closed      bool
	unsubscribe func()
}

func NewSession(cfg Config) *Session {
	if cfg.ThumbnailHeight <= 0 {
		cfg.ThumbnailHeight = thumbnail.DefaultHeight
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SuccessDelay == 0 {
		cfg.SuccessDelay = DefaultSuccessDelay
	}

	s := &Session{
		cfg:    cfg,
		logger: cfg.Logger.With("session_id", cfg.ID),
		sync:   NewSynchronizer(cfg.Player),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	var surface timeline.Surface
	if cfg.Surface != nil {
		surface = lockedSurface{inner: cfg.Surface, s: s}
	}
	s.selector = timeline.NewSelector(surface)

	s.submitter = NewSubmitter(SubmitterConfig{
		Trimmer:       cfg.Trimmer,
		Notifier:      cfg.Notifier,
		Recorder:      cfg.Recorder,
		SuccessDelay:  cfg.SuccessDelay,
		OnComplete:    cfg.OnComplete,
		OnStateChange: func(SubmitState) { s.emit() },
		Logger:        s.logger,
	})

	if cfg.Player != nil {
		s.unsubscribe = cfg.Player.OnTimeUpdate(s.handleTimeUpdate)
	}
	return s
}

func (s *Session) ID() string { return s.cfg.ID }

// Load makes d the active video: the selection covers the whole video,
// preview and drag state are dropped, thumbnails are cleared and a new
// extraction pass starts. Results of any earlier pass are discarded.
func (s *Session) Load(d media.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.submitter.Reset(); err != nil {
		return ErrLocked
	}

	s.video = d
	s.loaded = true
	s.selector.Reset(d.Duration)
	s.sync.Reset()
	s.thumbs = nil
	s.loading = true
	s.saveAsNew = false
	s.gen++

	s.logger.Info("video loaded", "video_id", d.ID, "duration", d.Duration)

	if s.cfg.Extractor != nil && d.Duration > 0 {
		go s.extract(s.ctx, s.gen, d, s.cfg.ThumbnailHeight)
	}
	s.changedLocked()
	return nil
}

func (s *Session) extract(ctx context.Context, gen uint64, d media.Descriptor, height int) {
	samples, err := s.cfg.Extractor.Extract(ctx, d, height)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		s.logger.Debug("discarding stale filmstrip", "video_id", d.ID, "generation", gen)
		return
	}
	switch {
	case errors.Is(err, thumbnail.ErrUnavailable):
		s.logger.Warn("filmstrip unavailable", "video_id", d.ID, "error", err)
		return
	case err != nil:
		s.logger.Warn("filmstrip extraction failed", "video_id", d.ID, "error", err)
		samples = nil
	}
	s.thumbs = samples
	s.loading = false
	s.changedLocked()
}

// Video returns the active descriptor.
func (s *Session) Video() (media.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video, s.loaded
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Range() timeline.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Range()
}

// Thumbnail returns filmstrip frame i.
func (s *Session) Thumbnail(i int) (thumbnail.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.thumbs) {
		return thumbnail.Sample{}, false
	}
	return s.thumbs[i], true
}

// BeginDrag starts dragging a handle. Moves and the release arrive through
// the configured surface.
func (s *Session) BeginDrag(h timeline.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := s.selector.Begin(h); err != nil {
		return err
	}
	s.changedLocked()
	return nil
}

// Click seeks the player to the clicked track position. It reports the
// seek target, or false when a drag is active or the duration is unknown.
func (s *Session) Click(clientX float64, b timeline.Bounds) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return 0, false, err
	}
	t, ok := s.selector.SeekTime(clientX, b)
	if !ok {
		return 0, false, nil
	}
	if err := s.sync.SeekTo(t); err != nil {
		return 0, false, err
	}
	s.changedLocked()
	return t, true, nil
}

// TogglePreview starts or pauses range-limited playback.
func (s *Session) TogglePreview() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false, ErrNoVideo
	}
	on, err := s.sync.Toggle(s.selector.Range())
	if err != nil {
		return false, err
	}
	s.changedLocked()
	return on, nil
}

func (s *Session) SetSaveAsNew(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.saveAsNew = v
	s.changedLocked()
	return nil
}

// Submit sends the current selection to the trim backend. It returns
// ErrSubmitting while a trim is in flight, so repeated calls issue one
// request.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.loaded {
		return ErrNoVideo
	}
	if err := s.submitter.Submit(ctx, s.video.ID, s.selector.Range(), s.saveAsNew); err != nil {
		return err
	}
	s.selector.End()
	s.changedLocked()
	return nil
}

// Done returns a channel closed once the latest submission has finished.
func (s *Session) Done() <-chan struct{} {
	return s.submitter.Wait()
}

// Close releases the player subscription and any drag listeners. An
// in-flight trim still runs to completion.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.selector.Close()
	s.sync.Reset()
	s.cancel()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.logger.Debug("session closed")
}

func (s *Session) handleTimeUpdate(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.sync.Update(t, s.selector.Range()) {
		s.logger.Debug("preview reached range end", "time", t)
	}
	s.changedLocked()
}

func (s *Session) mutableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.submitter.State() != StateIdle {
		return ErrLocked
	}
	return nil
}

func (s *Session) emit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changedLocked()
}

func (s *Session) changedLocked() {
	if s.cfg.OnChange != nil && !s.closed {
		s.cfg.OnChange(s.snapshotLocked())
	}
}

func (s *Session) snapshotLocked() Snapshot {
	r := s.selector.Range()
	state := s.submitter.State()
	snap := Snapshot{
		ID:              s.cfg.ID,
		VideoID:         s.video.ID,
		Duration:        s.selector.Duration(),
		Start:           r.Start,
		End:             r.End,
		StartClock:      timeline.FormatClock(r.Start),
		EndClock:        timeline.FormatClock(r.End),
		SelectionClock:  timeline.FormatClock(r.Duration()),
		Dragging:        s.selector.Dragging(),
		Previewing:      s.sync.Previewing(),
		Playhead:        s.sync.Playhead(),
		Loading:         s.loading,
		Thumbnails:      make([]ThumbnailRef, len(s.thumbs)),
		ThumbnailHeight: s.cfg.ThumbnailHeight,
		SaveAsNew:       s.saveAsNew,
		State:           state,
		CanSubmit:       s.loaded && state == StateIdle && r.Trimmable(),
	}
	for i, th := range s.thumbs {
		snap.Thumbnails[i] = ThumbnailRef{Index: i, Time: th.Time}
	}
	return snap
}

// lockedSurface runs selector listeners under the session lock and
// publishes the resulting state.
type lockedSurface struct {
	inner timeline.Surface
	s     *Session
}

func (l lockedSurface) Listen(lis timeline.Listener) func() {
	return l.inner.Listen(timeline.Listener{
		Move: func(clientX float64, b timeline.Bounds) {
			l.s.mu.Lock()
			defer l.s.mu.Unlock()
			if l.s.selector.Dragging() == timeline.HandleNone {
				return
			}
			lis.Move(clientX, b)
			l.s.changedLocked()
		},
		Up: func() {
			l.s.mu.Lock()
			defer l.s.mu.Unlock()
			lis.Up()
			l.s.changedLocked()
		},
	})
}
