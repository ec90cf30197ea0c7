package app

import (
	"log/slog"

	"github.com/gopxl/beep/v2"
	"go.aimuz.me/keysound/config"
	"go.aimuz.me/keysound/playback"
)

// openOutput opens the audio device. When audio is disabled or the device
// cannot be opened it returns the inert output and false; the failure is
// logged once here and nowhere else.
func openOutput(o config.AudioOptions) (playback.Output, bool) {
	if !o.Enabled {
		slog.Info("audio output disabled")
		return playback.Inert{}, false
	}

	out, err := playback.NewSpeaker(beep.SampleRate(o.SampleRate), o.Buffer)
	if err != nil {
		slog.Warn("audio unavailable, keys are routed without sound", "error", err)
		return playback.Inert{}, false
	}

	slog.Info("audio output ready", "sample_rate", o.SampleRate, "buffer", o.Buffer)
	return out, true
}
