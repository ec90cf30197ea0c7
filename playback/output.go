package playback

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.aimuz.me/keysound/catalog"
)

// ErrAudioUnavailable is returned when the audio device cannot be opened.
var ErrAudioUnavailable = errors.New("audio output unavailable")

// Voice is one sound started on an Output.
type Voice interface {
	// Stop halts the voice. It is safe to call more than once.
	Stop()
	// Done reports whether the voice finished or was stopped.
	Done() bool
}

// Output starts sounds on an audio device.
type Output interface {
	Play(s *catalog.Sound) (Voice, error)
	Close() error
}

// ─────────────────────────────────────────────────────────────────────────────
// Speaker
// ─────────────────────────────────────────────────────────────────────────────

var speakerInit sync.Once

// Speaker plays sounds on the default audio device.
type Speaker struct {
	rate beep.SampleRate
}

// NewSpeaker opens the default audio device at rate with the given buffer length.
// The device can be opened once per process.
func NewSpeaker(rate beep.SampleRate, buffer time.Duration) (*Speaker, error) {
	err := errors.New("speaker already initialized")
	speakerInit.Do(func() {
		err = speaker.Init(rate, rate.N(buffer))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
	}
	return &Speaker{rate: rate}, nil
}

// Play starts s, resampling it to the device rate when needed.
func (o *Speaker) Play(s *catalog.Sound) (Voice, error) {
	var st beep.Streamer = s.Streamer()
	if s.Format.SampleRate != o.rate {
		st = beep.Resample(4, s.Format.SampleRate, o.rate, st)
	}

	v := &speakerVoice{}
	v.ctrl = &beep.Ctrl{Streamer: beep.Seq(st, beep.Callback(func() {
		v.done.Store(true)
	}))}
	speaker.Play(v.ctrl)
	return v, nil
}

// Close stops all sounds and releases the device.
func (o *Speaker) Close() error {
	speaker.Clear()
	speaker.Close()
	return nil
}

type speakerVoice struct {
	ctrl *beep.Ctrl
	done atomic.Bool
}

func (v *speakerVoice) Stop() {
	speaker.Lock()
	v.ctrl.Streamer = nil
	speaker.Unlock()
	v.done.Store(true)
}

func (v *speakerVoice) Done() bool {
	return v.done.Load()
}

// ─────────────────────────────────────────────────────────────────────────────
// Inert output
// ─────────────────────────────────────────────────────────────────────────────

// Inert is the Output used when no audio device is available. Its voices
// produce no sound but last as long as the sound would, so held keys and
// completion behave as with a real device.
type Inert struct{}

func (Inert) Play(s *catalog.Sound) (Voice, error) {
	return &inertVoice{end: time.Now().Add(s.Duration())}, nil
}

func (Inert) Close() error { return nil }

type inertVoice struct {
	end     time.Time
	stopped atomic.Bool
}

func (v *inertVoice) Stop() { v.stopped.Store(true) }

func (v *inertVoice) Done() bool {
	return v.stopped.Load() || !time.Now().Before(v.end)
}
