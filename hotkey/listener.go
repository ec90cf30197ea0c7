package hotkey

import (
	"errors"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
	"go.aimuz.me/keysound/keys"
)

// charUndefined is the Keychar of events without a character.
const charUndefined rune = 0xFFFF

// Handler receives normalized key events.
type Handler interface {
	OnPress(key string)
	OnRelease(key string)
}

// Listener feeds global keyboard events from the OS hook to a Handler.
// Only one Listener may run per process.
type Listener struct {
	handler Handler
	name    func(hook.Event) string

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewListener creates a listener delivering to h.
func NewListener(h Handler) *Listener {
	return &Listener{handler: h, name: KeyName}
}

// Start installs the global hook.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		return errors.New("listener already running")
	}

	events := hook.Start()
	done := make(chan struct{})
	l.done = done

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case <-done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				l.Dispatch(ev)
			}
		}
	}()

	slog.Info("keyboard hook started")
	return nil
}

// Stop removes the global hook and waits for the event loop to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done == nil {
		return
	}
	close(l.done)
	l.done = nil
	hook.End()
	l.wg.Wait()

	slog.Info("keyboard hook stopped")
}

// Dispatch routes one hook event. Key-pressed events, repeats included,
// become presses; key-released events become releases. Everything else
// is ignored.
func (l *Listener) Dispatch(ev hook.Event) {
	switch ev.Kind {
	case hook.KeyHold:
		if name := l.name(ev); name != "" {
			l.handler.OnPress(name)
		}
	case hook.KeyUp:
		if name := l.name(ev); name != "" {
			l.handler.OnRelease(name)
		}
	}
}

// KeyName returns the normalized key name of ev, or "" if it has none.
// Keys are identified by their hook keycode, which does not depend on the
// platform or the keyboard layout. Keycodes without a name fall back to
// the typed character.
func KeyName(ev hook.Event) string {
	if name, ok := keycodeNames[ev.Keycode]; ok {
		return name
	}
	if ev.Keychar != charUndefined && ev.Keychar > ' ' {
		return keys.Normalize(string(ev.Keychar))
	}
	return ""
}

// extraKeycodes names the hook keycodes missing from hook.Keycode, and
// corrects 14, which hook.Keycode calls "delete".
var extraKeycodes = map[uint16]string{
	14:   "BACKSPACE",
	58:   "CAPS",
	3613: "CTRL",
	3655: "HOME",
	3657: "PAGEUP",
	3663: "END",
	3665: "PAGEDOWN",
	3666: "INSERT",
	3667: "DELETE",
}

// keycodeNames maps hook keycodes to vocabulary names.
var keycodeNames = func() map[uint16]string {
	m := make(map[uint16]string, len(hook.Keycode)+len(extraKeycodes))
	for name, code := range hook.Keycode {
		// Shifted symbols share a keycode with their base key.
		if keys.Known(name) {
			m[code] = keys.Normalize(name)
		}
	}
	for code, name := range extraKeycodes {
		m[code] = name
	}
	return m
}()
