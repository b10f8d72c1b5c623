package trim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fireshare/trim-agent/internal/gallery"
	"github.com/fireshare/trim-agent/internal/timeline"
)

const DefaultSuccessDelay = 1500 * time.Millisecond

// SubmitState is the lifecycle of one trim submission.
type SubmitState string

const (
	StateIdle       SubmitState = "idle"
	StateSubmitting SubmitState = "submitting"
	StateSucceeded  SubmitState = "succeeded"
)

// Trimmer performs the remote trim.
type Trimmer interface {
	Trim(ctx context.Context, req gallery.TrimRequest) (*gallery.TrimResult, error)
}

// CompleteFunc is invoked once after a successful trim and the success
// delay, with the trimmed video and the backend's result.
type CompleteFunc func(videoID string, res *gallery.TrimResult, saveAsNew bool)

// Outcome describes a submission, for auditing. A submission is recorded
// once when it starts and again, with Finished set, when it ends.
type Outcome struct {
	ID       string
	Request  gallery.TrimRequest
	Finished bool
	Result   *gallery.TrimResult
	Err      error
	Duration time.Duration
}

// Recorder receives submission outcomes.
type Recorder interface {
	Record(ctx context.Context, o Outcome)
}

type RecorderFunc func(ctx context.Context, o Outcome)

func (f RecorderFunc) Record(ctx context.Context, o Outcome) { f(ctx, o) }

type SubmitterConfig struct {
	Trimmer      Trimmer
	Notifier     Notifier
	Recorder     Recorder
	SuccessDelay time.Duration
	OnComplete   CompleteFunc
	// OnStateChange runs on the submitting goroutine when a trim leaves
	// the submitting state, without any lock held and after the outcome
	// alert. Entering submitting is signalled by Submit returning nil.
	OnStateChange func(SubmitState)
	Logger        *slog.Logger
}

// Submitter sends at most one trim at a time. Once a trim is in flight it
// cannot be cancelled; the caller only waits for it.
type Submitter struct {
	cfg SubmitterConfig

	mu    sync.Mutex
	state SubmitState
	done  chan struct{}
	delay func(ctx context.Context, d time.Duration)
}

func NewSubmitter(cfg SubmitterConfig) *Submitter {
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Alert) {})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SuccessDelay < 0 {
		cfg.SuccessDelay = 0
	}
	return &Submitter{cfg: cfg, state: StateIdle, delay: sleep}
}

func (s *Submitter) State() SubmitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a submission is in flight.
func (s *Submitter) Busy() bool {
	return s.State() == StateSubmitting
}

// Submit starts a trim of videoID to r. It returns immediately; the
// outcome is reported through the notifier, the recorder and OnComplete.
func (s *Submitter) Submit(ctx context.Context, videoID string, r timeline.Range, saveAsNew bool) error {
	if !r.Trimmable() {
		return ErrRangeTooShort
	}

	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return ErrSubmitting
	case StateSucceeded:
		s.mu.Unlock()
		return ErrCompleted
	}
	s.state = StateSubmitting
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	req := gallery.TrimRequest{
		VideoID:   videoID,
		StartTime: r.Start,
		EndTime:   r.End,
		SaveAsNew: saveAsNew,
	}
	go s.run(context.WithoutCancel(ctx), req, done)
	return nil
}

func (s *Submitter) run(ctx context.Context, req gallery.TrimRequest, done chan struct{}) {
	defer close(done)
	id := uuid.NewString()
	logger := s.cfg.Logger.With("video_id", req.VideoID, "trim_id", id)

	s.record(ctx, Outcome{ID: id, Request: req})
	start := time.Now()
	res, err := s.cfg.Trimmer.Trim(ctx, req)
	elapsed := time.Since(start)
	s.record(ctx, Outcome{ID: id, Request: req, Finished: true, Result: res, Err: err, Duration: elapsed})

	if err != nil {
		logger.Error("trim failed", "error", err, "duration_ms", elapsed.Milliseconds())
		s.cfg.Notifier.Notify(Alert{Type: AlertError, Message: failureMessage(err), Open: true})
		s.setState(StateIdle)
		return
	}

	logger.Info("trim succeeded",
		"range", timeline.Range{Start: req.StartTime, End: req.EndTime}.String(),
		"save_as_new", req.SaveAsNew,
		"duration_ms", elapsed.Milliseconds(),
	)
	msg := "Video trimmed successfully!"
	if req.SaveAsNew {
		msg = "New trimmed clip created!"
	}
	s.cfg.Notifier.Notify(Alert{Type: AlertSuccess, Message: msg, Open: true})
	s.setState(StateSucceeded)

	s.delay(ctx, s.cfg.SuccessDelay)
	if s.cfg.OnComplete != nil {
		s.cfg.OnComplete(req.VideoID, res, req.SaveAsNew)
	}
}

// Wait returns a channel closed when the current (or last) submission has
// fully finished, including the success delay. It is closed already when
// nothing was ever submitted.
func (s *Submitter) Wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Reset returns a finished submitter to idle, for a newly loaded video.
// It fails with ErrSubmitting while a trim is in flight.
func (s *Submitter) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitting
	}
	s.state = StateIdle
	return nil
}

func (s *Submitter) record(ctx context.Context, o Outcome) {
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.Record(ctx, o)
	}
}

func (s *Submitter) setState(st SubmitState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
