// Package playback implements the monophonic playback state machine: at most
// one sound plays at a time and a new sound always cuts off the previous one.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/keysound/catalog"
)

// DefaultPollInterval is how often a playing voice is checked for completion.
const DefaultPollInterval = 100 * time.Millisecond

// ErrNoSound is returned by Play when the key has no loaded sound.
var ErrNoSound = errors.New("no sound loaded")

// State is the playback state.
type State int

const (
	Idle State = iota
	Sounding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sounding:
		return "sounding"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sounds looks up loaded sounds by key.
type Sounds interface {
	Get(key string) (*catalog.Sound, bool)
}

// Engine tracks the one sounding voice.
type Engine struct {
	sounds   Sounds
	out      Output
	pressed  *PressState
	interval time.Duration

	mu     sync.Mutex
	key    string
	voice  Voice
	gen    uint64        // bumped whenever the sounding voice changes
	done   chan struct{} // closed to stop the current completion watcher
	onIdle func(key string)
}

// New creates an idle engine. A non-positive interval uses DefaultPollInterval.
func New(sounds Sounds, out Output, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Engine{
		sounds:   sounds,
		out:      out,
		pressed:  NewPressState(),
		interval: interval,
	}
}

// OnIdle registers fn to run when a sound finishes on its own.
// fn runs on the watcher goroutine without the engine lock held.
func (e *Engine) OnIdle(fn func(key string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onIdle = fn
}

// Pressed returns the press state shared with the key router.
func (e *Engine) Pressed() *PressState {
	return e.pressed
}

// State returns the current state and the sounding key, if any.
func (e *Engine) State() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voice == nil {
		return Idle, ""
	}
	return Sounding, e.key
}

// Play starts the sound of key. A sounding voice is stopped first and the
// press state cleared. Without a loaded sound Play returns ErrNoSound and
// nothing changes.
func (e *Engine) Play(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sounds.Get(key)
	if !ok {
		return fmt.Errorf("%w: key %s", ErrNoSound, key)
	}

	if e.voice != nil {
		slog.Debug("interrupt sound", "key", e.key, "by", key)
		e.haltLocked()
		e.pressed.Clear()
	}

	v, err := e.out.Play(s)
	if err != nil {
		return fmt.Errorf("play key %s: %w", key, err)
	}

	e.gen++
	e.key = key
	e.voice = v
	e.done = make(chan struct{})
	e.pressed.Add(key)
	go e.watch(e.gen, e.done)

	slog.Debug("play sound", "key", key, "path", s.Path, "duration", s.Duration())
	return nil
}

// Stop halts the sounding voice, if any, and clears the press state.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voice != nil {
		e.haltLocked()
	}
	e.pressed.Clear()
}

// Close stops playback and releases the output.
func (e *Engine) Close() error {
	e.Stop()
	return e.out.Close()
}

func (e *Engine) haltLocked() {
	e.voice.Stop()
	e.voice = nil
	e.key = ""
	e.gen++
	close(e.done)
	e.done = nil
}

// watch polls the voice of generation gen until it finishes or is replaced.
func (e *Engine) watch(gen uint64, done <-chan struct{}) {
	t := time.NewTicker(e.interval)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.C:
			if e.finish(gen) {
				return
			}
		}
	}
}

// finish moves to Idle if the voice of generation gen has completed.
// It returns true once the watcher has nothing left to do.
func (e *Engine) finish(gen uint64) bool {
	e.mu.Lock()
	if gen != e.gen || e.voice == nil {
		e.mu.Unlock()
		return true
	}
	if !e.voice.Done() {
		e.mu.Unlock()
		return false
	}

	key := e.key
	e.voice = nil
	e.key = ""
	e.gen++
	e.done = nil
	e.pressed.Clear()
	fn := e.onIdle
	e.mu.Unlock()

	slog.Debug("sound finished", "key", key)
	if fn != nil {
		fn(key)
	}
	return true
}
