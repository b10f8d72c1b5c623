package trim

import (
	"errors"
	"testing"

	"github.com/fireshare/trim-agent/internal/timeline"
)

func TestSynchronizer_ToggleWithoutPlayer(t *testing.T) {
	s := NewSynchronizer(nil)
	if _, err := s.Toggle(timeline.Range{Start: 0, End: 1}); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Toggle() error = %v, want ErrNoPlayer", err)
	}
	if err := s.SeekTo(1); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("SeekTo() error = %v, want ErrNoPlayer", err)
	}
}

func TestSynchronizer_Toggle(t *testing.T) {
	p := newFakePlayer()
	s := NewSynchronizer(p)
	r := timeline.Range{Start: 2, End: 5}

	on, err := s.Toggle(r)
	if err != nil || !on {
		t.Fatalf("Toggle() = %v, %v; want true", on, err)
	}
	if got := p.Calls(); !equalStrings(got, []string{"seek:2", "play"}) {
		t.Errorf("player calls = %v", got)
	}
	if s.Playhead() != 2 {
		t.Errorf("Playhead() = %v, want 2", s.Playhead())
	}

	on, err = s.Toggle(r)
	if err != nil || on {
		t.Fatalf("second Toggle() = %v, %v; want false", on, err)
	}
	if got := p.Calls(); !equalStrings(got, []string{"seek:2", "play", "pause"}) {
		t.Errorf("player calls = %v", got)
	}
}

func TestSynchronizer_BoundaryStop(t *testing.T) {
	p := newFakePlayer()
	s := NewSynchronizer(p)
	r := timeline.Range{Start: 2, End: 5}
	s.Toggle(r)
	p.Reset()

	for _, pos := range []float64{2.25, 3.5, 4.99} {
		if s.Update(pos, r) {
			t.Fatalf("Update(%v) stopped preview early", pos)
		}
		if s.Playhead() != pos || !s.Previewing() {
			t.Fatalf("after Update(%v): playhead=%v previewing=%v", pos, s.Playhead(), s.Previewing())
		}
	}

	if !s.Update(5.0, r) {
		t.Fatal("Update(5.0) did not stop preview")
	}
	if s.Previewing() {
		t.Error("still previewing after boundary")
	}
	if s.Playhead() != 2 {
		t.Errorf("Playhead() = %v, want 2", s.Playhead())
	}
	if got := p.Calls(); !equalStrings(got, []string{"pause", "seek:2"}) {
		t.Errorf("player calls = %v, want [pause seek:2]", got)
	}
}

func TestSynchronizer_OvershootStopsToo(t *testing.T) {
	p := newFakePlayer()
	s := NewSynchronizer(p)
	r := timeline.Range{Start: 1, End: 3}
	s.Toggle(r)

	if !s.Update(3.4, r) {
		t.Fatal("Update past end did not stop preview")
	}
	if s.Playhead() > r.End {
		t.Errorf("Playhead() = %v beyond range end", s.Playhead())
	}
}

func TestSynchronizer_MirrorsWithoutPreview(t *testing.T) {
	p := newFakePlayer()
	s := NewSynchronizer(p)
	r := timeline.Range{Start: 2, End: 5}

	if s.Update(8, r) {
		t.Error("Update stopped a preview that was not running")
	}
	if s.Playhead() != 8 {
		t.Errorf("Playhead() = %v, want 8", s.Playhead())
	}
	if len(p.Calls()) != 0 {
		t.Errorf("player calls = %v, want none", p.Calls())
	}
}

func TestSynchronizer_Reset(t *testing.T) {
	p := newFakePlayer()
	s := NewSynchronizer(p)
	s.Toggle(timeline.Range{Start: 1, End: 4})
	s.Reset()

	if s.Previewing() || s.Playhead() != 0 {
		t.Errorf("after Reset: previewing=%v playhead=%v", s.Previewing(), s.Playhead())
	}
	calls := p.Calls()
	if calls[len(calls)-1] != "pause" {
		t.Errorf("Reset did not pause, calls = %v", calls)
	}
}
