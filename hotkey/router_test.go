package hotkey

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	hook "github.com/robotn/gohook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.aimuz.me/keysound/catalog"
	"go.aimuz.me/keysound/internal/testutil"
	"go.aimuz.me/keysound/internal/types"
	"go.aimuz.me/keysound/keys"
	"go.aimuz.me/keysound/playback"
)

type fakeBindings struct {
	settings types.Settings
	bindings map[string]string
}

func (b *fakeBindings) Settings() types.Settings { return b.settings }

func (b *fakeBindings) Binding(key string) (string, bool) {
	p, ok := b.bindings[key]
	return p, ok
}

type fakePlayer struct {
	mu      sync.Mutex
	plays   []string
	stops   int
	missing map[string]bool
	pressed *playback.PressState
}

func (p *fakePlayer) Play(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missing[key] {
		return playback.ErrNoSound
	}
	p.plays = append(p.plays, key)
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) Pressed() *playback.PressState { return p.pressed }

type routerFixture struct {
	router   *Router
	bindings *fakeBindings
	player   *fakePlayer
	status   *Status
}

func newRouter(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		bindings: &fakeBindings{
			settings: types.DefaultSettings(),
			bindings: map[string]string{"A": "/a.wav", "B": "/b.wav", "SPACE": "/space.wav"},
		},
		player: &fakePlayer{pressed: playback.NewPressState(), missing: map[string]bool{}},
		status: NewStatus(time.Hour, nil),
	}
	f.router = NewRouter(f.bindings, f.player, f.status)
	f.router.Start()
	return f
}

func TestLongPressSuppression(t *testing.T) {
	f := newRouter(t)

	f.router.OnPress("A")
	f.router.OnPress("A")
	f.router.OnPress("a")
	assert.Equal(t, []string{"A"}, f.player.plays)

	f.router.OnRelease("A")
	f.router.OnPress("A")
	assert.Equal(t, []string{"A", "A"}, f.player.plays)
}

func TestLongPressDisabledRetriggers(t *testing.T) {
	f := newRouter(t)
	f.bindings.settings.LongPressOptimize = false

	f.router.OnPress("A")
	f.router.OnPress("A")
	f.router.OnPress("A")
	assert.Equal(t, []string{"A", "A", "A"}, f.player.plays)
}

func TestStopKeyNeverPlays(t *testing.T) {
	f := newRouter(t)

	f.router.OnPress("space")
	f.router.OnPress("SPACE")
	assert.Empty(t, f.player.plays, "stop key wins over its own binding")
	assert.Equal(t, 2, f.player.stops)
	assert.Equal(t, StatusHalted, f.status.Text())
	assert.False(t, f.player.pressed.Has("SPACE"))
}

func TestUnboundKey(t *testing.T) {
	f := newRouter(t)

	f.router.OnPress("Z")
	assert.Equal(t, 1, f.player.stops)
	assert.Equal(t, "Key Z is not bound", f.status.Text())
	assert.True(t, f.player.pressed.Has("Z"))

	f.router.OnRelease("Z")
	f.bindings.settings.StopOnUnbound = false
	f.router.OnPress("Z")
	assert.Equal(t, 1, f.player.stops)
	assert.Empty(t, f.player.plays)
}

func TestBoundKeyWithoutSound(t *testing.T) {
	f := newRouter(t)
	f.player.missing["B"] = true

	f.router.OnPress("B")
	assert.Empty(t, f.player.plays)
	assert.Equal(t, "Sound for key B is unavailable", f.status.Text())
}

func TestInactiveAndModalIgnored(t *testing.T) {
	f := newRouter(t)

	f.router.Stop()
	assert.False(t, f.router.Active())
	f.router.OnPress("A")
	assert.Empty(t, f.player.plays)

	f.router.Start()
	var modal atomic.Bool
	modal.Store(true)
	f.router.SetFocusGuard(modal.Load)
	f.router.OnPress("A")
	f.router.OnPress("SPACE")
	assert.Empty(t, f.player.plays)

	modal.Store(false)
	f.router.OnPress("A")
	assert.Equal(t, []string{"A"}, f.player.plays)
}

func TestStopClearsPressState(t *testing.T) {
	f := newRouter(t)

	f.router.OnPress("A")
	f.router.OnPress("Z")
	require.Equal(t, []string{"A", "Z"}, f.player.pressed.Keys())

	f.router.Stop()
	assert.Empty(t, f.player.pressed.Keys())
	assert.Equal(t, StatusStopped, f.status.Text())

	f.router.Start()
	assert.Equal(t, StatusListening, f.status.Text())
}

func TestReleaseUnknownKey(t *testing.T) {
	f := newRouter(t)
	f.router.OnRelease("Q")
	f.router.OnRelease("")
	assert.Empty(t, f.player.pressed.Keys())
}

// endless never finishes on its own.
type endless struct{}

func (endless) Play(*catalog.Sound) (playback.Voice, error) { return &endlessVoice{}, nil }
func (endless) Close() error                                 { return nil }

type endlessVoice struct{ stopped atomic.Bool }

func (v *endlessVoice) Stop()      { v.stopped.Store(true) }
func (v *endlessVoice) Done() bool { return v.stopped.Load() }

type soundMap map[string]*catalog.Sound

func (m soundMap) Get(key string) (*catalog.Sound, bool) {
	s, ok := m[key]
	return s, ok
}

func TestRouterWithEngine(t *testing.T) {
	sound := func(key string) *catalog.Sound {
		buf := beep.NewBuffer(testutil.TestFormat)
		buf.Append(testutil.Tone(10))
		return &catalog.Sound{Key: key, Format: testutil.TestFormat, Buffer: buf}
	}
	engine := playback.New(soundMap{"A": sound("A"), "B": sound("B")}, endless{}, time.Millisecond)
	t.Cleanup(engine.Stop)

	bindings := &fakeBindings{
		settings: types.DefaultSettings(),
		bindings: map[string]string{"A": "/a.wav", "B": "/b.wav"},
	}
	r := NewRouter(bindings, engine, NewStatus(time.Hour, nil))
	r.Start()

	r.OnPress("A")
	r.OnPress("A")
	state, key := engine.State()
	assert.Equal(t, playback.Sounding, state)
	assert.Equal(t, "A", key)

	// B interrupts A; the engine restarts the press state with B alone.
	r.OnPress("B")
	_, key = engine.State()
	assert.Equal(t, "B", key)
	assert.Equal(t, []string{"B"}, engine.Pressed().Keys())

	r.OnPress("SPACE")
	state, _ = engine.State()
	assert.Equal(t, playback.Idle, state)
	assert.Empty(t, engine.Pressed().Keys())
}

type countingOutput struct {
	playback.Inert
	plays atomic.Int32
}

func (o *countingOutput) Play(s *catalog.Sound) (playback.Voice, error) {
	o.plays.Add(1)
	return o.Inert.Play(s)
}

func TestLongPressSuppressionWithoutAudio(t *testing.T) {
	buf := beep.NewBuffer(testutil.TestFormat)
	buf.Append(testutil.Tone(int(testutil.TestFormat.SampleRate))) // 1s
	out := &countingOutput{}
	engine := playback.New(soundMap{"A": {Key: "A", Format: testutil.TestFormat, Buffer: buf}}, out, 10*time.Millisecond)
	t.Cleanup(engine.Stop)

	r := NewRouter(&fakeBindings{
		settings: types.DefaultSettings(),
		bindings: map[string]string{"A": "/a.wav"},
	}, engine, NewStatus(time.Hour, nil))
	r.Start()

	for range 5 {
		r.OnPress("A")
		time.Sleep(30 * time.Millisecond)
	}
	assert.Equal(t, int32(1), out.plays.Load())

	r.OnRelease("A")
	r.OnPress("A")
	assert.Equal(t, int32(2), out.plays.Load())
}

type recordingHandler struct {
	presses, releases []string
}

func (h *recordingHandler) OnPress(key string)   { h.presses = append(h.presses, key) }
func (h *recordingHandler) OnRelease(key string) { h.releases = append(h.releases, key) }

func TestListenerDispatch(t *testing.T) {
	h := &recordingHandler{}
	l := NewListener(h)
	l.name = func(ev hook.Event) string {
		if ev.Rawcode == 0 {
			return ""
		}
		return string(rune('A' + ev.Rawcode - 1))
	}

	l.Dispatch(hook.Event{Kind: hook.KeyHold, Rawcode: 1})
	l.Dispatch(hook.Event{Kind: hook.KeyHold, Rawcode: 1})
	l.Dispatch(hook.Event{Kind: hook.KeyDown, Rawcode: 1}) // typed character, not a press
	l.Dispatch(hook.Event{Kind: hook.KeyUp, Rawcode: 1})
	l.Dispatch(hook.Event{Kind: hook.KeyHold, Rawcode: 0})
	l.Dispatch(hook.Event{Kind: hook.MouseDown, Rawcode: 2})

	assert.Equal(t, []string{"A", "A"}, h.presses)
	assert.Equal(t, []string{"A"}, h.releases)
}

func TestKeyName(t *testing.T) {
	tests := []struct {
		name string
		ev   hook.Event
		want string
	}{
		{"space", hook.Event{Kind: hook.KeyHold, Keycode: 57}, "SPACE"},
		{"esc", hook.Event{Kind: hook.KeyHold, Keycode: 1}, "ESC"},
		{"up", hook.Event{Kind: hook.KeyHold, Keycode: 57416}, "UP"},
		{"down", hook.Event{Kind: hook.KeyHold, Keycode: 57424}, "DOWN"},
		{"left", hook.Event{Kind: hook.KeyHold, Keycode: 57419}, "LEFT"},
		{"right", hook.Event{Kind: hook.KeyHold, Keycode: 57421}, "RIGHT"},
		{"letter", hook.Event{Kind: hook.KeyHold, Keycode: 30, Rawcode: 97}, "A"},
		{"letter q", hook.Event{Kind: hook.KeyUp, Keycode: 16}, "Q"},
		{"digit", hook.Event{Kind: hook.KeyHold, Keycode: 2}, "1"},
		{"shifted digit", hook.Event{Kind: hook.KeyHold, Keycode: 2, Keychar: '!'}, "1"},
		{"f1", hook.Event{Kind: hook.KeyHold, Keycode: 59}, "F1"},
		{"f12", hook.Event{Kind: hook.KeyHold, Keycode: 70}, "F12"},
		{"semicolon", hook.Event{Kind: hook.KeyHold, Keycode: 39}, ";"},
		{"enter", hook.Event{Kind: hook.KeyHold, Keycode: 28}, "ENTER"},
		{"backspace", hook.Event{Kind: hook.KeyHold, Keycode: 14}, "BACKSPACE"},
		{"delete", hook.Event{Kind: hook.KeyHold, Keycode: 3667}, "DELETE"},
		{"left ctrl", hook.Event{Kind: hook.KeyHold, Keycode: 29}, "CTRL"},
		{"right shift", hook.Event{Kind: hook.KeyHold, Keycode: 54}, "SHIFT"},
		{"command", hook.Event{Kind: hook.KeyHold, Keycode: 3675}, "WIN"},
		{"caps", hook.Event{Kind: hook.KeyHold, Keycode: 58}, "CAPS"},
		{"page down", hook.Event{Kind: hook.KeyHold, Keycode: 3665}, "PAGEDOWN"},
		{"unnamed keycode with char", hook.Event{Kind: hook.KeyHold, Keycode: 9999, Keychar: 'x'}, "X"},
		{"unnamed keycode", hook.Event{Kind: hook.KeyHold, Keycode: 9999, Keychar: charUndefined}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyName(tt.ev))
		})
	}
}

func TestKeyNamesCoverVocabulary(t *testing.T) {
	named := map[string]bool{}
	for _, name := range keycodeNames {
		named[name] = true
	}
	for _, name := range keys.Names {
		assert.True(t, named[name], "no keycode produces %s", name)
	}
}

func TestListenerDispatchKeycodes(t *testing.T) {
	h := &recordingHandler{}
	l := NewListener(h)

	l.Dispatch(hook.Event{Kind: hook.KeyHold, Keycode: 57})
	l.Dispatch(hook.Event{Kind: hook.KeyHold, Keycode: 57416})
	l.Dispatch(hook.Event{Kind: hook.KeyUp, Keycode: 57})

	assert.Equal(t, []string{"SPACE", "UP"}, h.presses)
	assert.Equal(t, []string{"SPACE"}, h.releases)
}
