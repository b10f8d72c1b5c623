package timeline

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoDuration    = errors.New("timeline duration unknown")
	ErrDragActive    = errors.New("drag already in progress")
	ErrUnknownHandle = errors.New("unknown handle")
)

// Handle names a draggable edge of the selection.
type Handle string

const (
	HandleNone  Handle = ""
	HandleStart Handle = "start"
	HandleEnd   Handle = "end"
)

func ParseHandle(s string) (Handle, error) {
	switch Handle(s) {
	case HandleStart, HandleEnd:
		return Handle(s), nil
	default:
		return HandleNone, fmt.Errorf("%w: %q", ErrUnknownHandle, s)
	}
}

// Listener receives pointer events from outside the handle element.
type Listener struct {
	Move func(clientX float64, b Bounds)
	Up   func()
}

// Surface is the global (document level) pointer source. Listen attaches
// l until the returned release func is called.
type Surface interface {
	Listen(l Listener) (release func())
}

// Selector owns the selection range and the drag state machine.
// It is not safe for concurrent use; the owning session serializes access.
type Selector struct {
	surface  Surface
	duration float64
	rng      Range
	drag     Handle
	token    uint64
	release  func()
}

// NewSelector returns an idle selector. surface may be nil, in which case
// moves and releases must be fed through Move and End directly.
func NewSelector(surface Surface) *Selector {
	return &Selector{surface: surface}
}

// Reset reinitializes the selection to cover the whole video and ends any
// drag in progress.
func (s *Selector) Reset(duration float64) {
	s.End()
	if duration < 0 || math.IsNaN(duration) {
		duration = 0
	}
	s.duration = duration
	s.rng = Range{Start: 0, End: duration}
}

func (s *Selector) Duration() float64 { return s.duration }
func (s *Selector) Range() Range      { return s.rng }
func (s *Selector) Dragging() Handle  { return s.drag }

// Begin starts dragging h and acquires the global move/up listeners.
func (s *Selector) Begin(h Handle) error {
	if h != HandleStart && h != HandleEnd {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, h)
	}
	if s.duration <= 0 {
		return ErrNoDuration
	}
	if s.drag != HandleNone {
		return ErrDragActive
	}

	s.drag = h
	s.token++
	if s.surface != nil {
		token := s.token
		s.release = s.surface.Listen(Listener{
			Move: func(clientX float64, b Bounds) {
				if s.token == token {
					s.Move(clientX, b)
				}
			},
			Up: func() {
				if s.token == token {
					s.End()
				}
			},
		})
	}
	return nil
}

// Move applies a pointer move to the active handle. It reports whether the
// range changed. Moves while idle are ignored.
func (s *Selector) Move(clientX float64, b Bounds) bool {
	if s.drag == HandleNone || s.duration <= 0 {
		return false
	}
	t := FractionToTime(b.FractionAt(clientX), s.duration)
	prev := s.rng

	switch s.drag {
	case HandleStart:
		s.rng.Start = math.Max(0, math.Min(t, s.rng.End-MinTrimDuration))
	case HandleEnd:
		s.rng.End = math.Min(s.duration, math.Max(t, s.rng.Start+MinTrimDuration))
	}
	return s.rng != prev
}

// End finishes any drag and releases the global listeners. Safe to call
// when idle.
func (s *Selector) End() {
	s.drag = HandleNone
	s.token++
	if s.release != nil {
		release := s.release
		s.release = nil
		release()
	}
}

// SeekTime converts a click on the track into a seek target. It reports
// false while a drag is active or the duration is unknown.
func (s *Selector) SeekTime(clientX float64, b Bounds) (float64, bool) {
	if s.drag != HandleNone || s.duration <= 0 {
		return 0, false
	}
	return FractionToTime(b.FractionAt(clientX), s.duration), true
}

// Close releases any listeners still held.
func (s *Selector) Close() {
	s.End()
}
