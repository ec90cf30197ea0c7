package hotkey

import (
	"sync"
	"time"
)

// DefaultRevert is how long a transient status message stays visible.
const DefaultRevert = 2 * time.Second

// Status texts.
const (
	StatusListening = "Listening"
	StatusStopped   = "Stopped"
	StatusHalted    = "Playback stopped"
)

// Status is the one-line status shown to the user. Transient messages set
// with Flash revert to the base text after the revert delay; a newer message
// cancels the pending revert of an older one.
type Status struct {
	revert time.Duration
	notify func(text string)

	mu    sync.Mutex
	base  string
	text  string
	gen   uint64
	timer *time.Timer
}

// NewStatus creates a status starting at StatusStopped. notify is called with
// every new text, without any lock held.
func NewStatus(revert time.Duration, notify func(text string)) *Status {
	if revert <= 0 {
		revert = DefaultRevert
	}
	if notify == nil {
		notify = func(string) {}
	}
	return &Status{revert: revert, notify: notify, base: StatusStopped, text: StatusStopped}
}

// Text returns the text currently shown.
func (s *Status) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetBase changes the base text and shows it at once.
func (s *Status) SetBase(text string) {
	s.mu.Lock()
	s.base = text
	s.mu.Unlock()
	s.Reset()
}

// Flash shows text until the revert delay elapses.
func (s *Status) Flash(text string) {
	s.mu.Lock()
	s.cancelLocked()
	gen := s.gen
	s.text = text
	s.timer = time.AfterFunc(s.revert, func() { s.expire(gen) })
	s.mu.Unlock()

	s.notify(text)
}

// Reset shows the base text at once, dropping any pending revert.
func (s *Status) Reset() {
	s.mu.Lock()
	s.cancelLocked()
	text := s.base
	changed := s.text != text
	s.text = text
	s.mu.Unlock()

	if changed {
		s.notify(text)
	}
}

func (s *Status) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	text := s.base
	s.text = text
	s.mu.Unlock()

	s.notify(text)
}

func (s *Status) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
