package trim

import "github.com/fireshare/trim-agent/internal/timeline"

// Player is the external media player handle. Implementations must not
// deliver time updates synchronously from inside Seek, Play or Pause.
type Player interface {
	CurrentTime() float64
	Seek(t float64)
	Play()
	Pause()
	// OnTimeUpdate registers fn for position updates at the player's own
	// cadence until unsubscribe is called.
	OnTimeUpdate(fn func(t float64)) (unsubscribe func())
}

// Synchronizer keeps a mirrored playhead and runs range-limited preview
// playback. It only reads the selection range.
// Not safe for concurrent use; the owning session serializes access.
type Synchronizer struct {
	player     Player
	previewing bool
	playhead   float64
}

func NewSynchronizer(p Player) *Synchronizer {
	return &Synchronizer{player: p}
}

func (s *Synchronizer) Previewing() bool  { return s.previewing }
func (s *Synchronizer) Playhead() float64 { return s.playhead }

// Toggle starts preview playback from the range start, or pauses a running
// preview. It returns the new previewing state.
func (s *Synchronizer) Toggle(r timeline.Range) (bool, error) {
	if s.player == nil {
		return false, ErrNoPlayer
	}
	if s.previewing {
		s.player.Pause()
		s.previewing = false
		return false, nil
	}
	s.player.Seek(r.Start)
	s.player.Play()
	s.playhead = r.Start
	s.previewing = true
	return true, nil
}

// Update mirrors a player position. While previewing, reaching the range
// end pauses, rewinds to the range start and ends the preview within this
// same update. It reports whether the preview was stopped.
func (s *Synchronizer) Update(t float64, r timeline.Range) bool {
	s.playhead = t
	if !s.previewing || t < r.End {
		return false
	}
	if s.player != nil {
		s.player.Pause()
		s.player.Seek(r.Start)
	}
	s.previewing = false
	s.playhead = r.Start
	return true
}

// SeekTo moves the player without touching preview state.
func (s *Synchronizer) SeekTo(t float64) error {
	if s.player == nil {
		return ErrNoPlayer
	}
	s.player.Seek(t)
	s.playhead = t
	return nil
}

// Reset ends any preview and zeroes the playhead, for a new video.
func (s *Synchronizer) Reset() {
	if s.previewing && s.player != nil {
		s.player.Pause()
	}
	s.previewing = false
	s.playhead = 0
}
