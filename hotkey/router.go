// Package hotkey routes global key events to playback.
package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/keysound/internal/types"
	"go.aimuz.me/keysound/keys"
	"go.aimuz.me/keysound/playback"
)

// Bindings resolves keys against the active scene.
type Bindings interface {
	Settings() types.Settings
	Binding(key string) (string, bool)
}

// Player is the playback engine as seen by the router.
type Player interface {
	Play(key string) error
	Stop()
	Pressed() *playback.PressState
}

// Router turns key presses and releases into playback actions.
// Handlers are serialized; events arriving while the router is stopped
// are dropped.
type Router struct {
	bindings Bindings
	player   Player
	status   *Status

	mu     sync.Mutex
	active bool
	modal  func() bool
}

// NewRouter creates a stopped router.
func NewRouter(bindings Bindings, player Player, status *Status) *Router {
	return &Router{bindings: bindings, player: player, status: status}
}

// SetFocusGuard installs fn to report whether a modal dialog owns input.
// Presses are ignored while it returns true.
func (r *Router) SetFocusGuard(fn func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modal = fn
}

// Start begins routing events.
func (r *Router) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	r.status.SetBase(StatusListening)
	slog.Info("key routing started")
}

// Stop stops routing events, forgets held keys and stops playback.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.player.Pressed().Clear()
	r.player.Stop()
	r.status.SetBase(StatusStopped)
	slog.Info("key routing stopped")
}

// Active reports whether events are being routed.
func (r *Router) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// OnPress handles a key press, including OS key repeat.
func (r *Router) OnPress(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || (r.modal != nil && r.modal()) {
		return
	}
	key = keys.Normalize(key)
	if key == "" {
		return
	}

	settings := r.bindings.Settings()
	pressed := r.player.Pressed()

	if key == settings.StopKey {
		r.player.Stop()
		r.status.Flash(StatusHalted)
		return
	}

	if settings.LongPressOptimize && pressed.Has(key) {
		return
	}
	pressed.Add(key)

	if _, ok := r.bindings.Binding(key); ok {
		if err := r.player.Play(key); err != nil {
			slog.Warn("play sound", "key", key, "error", err)
			r.status.Flash(fmt.Sprintf("Sound for key %s is unavailable", key))
			return
		}
		r.status.Flash(fmt.Sprintf("Playing key %s", key))
		return
	}

	if settings.StopOnUnbound {
		r.player.Stop()
	}
	r.status.Flash(fmt.Sprintf("Key %s is not bound", key))
}

// OnRelease handles a key release.
func (r *Router) OnRelease(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.player.Pressed().Remove(keys.Normalize(key))
}
