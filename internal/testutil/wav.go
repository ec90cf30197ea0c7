// Package testutil holds helpers shared by package tests.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// TestFormat is the format of the WAV files written by WriteWAV.
var TestFormat = beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}

// WriteWAV writes a mono 440Hz tone of the given length into dir and returns its path.
func WriteWAV(t testing.TB, dir, name string, frames int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	if err := wav.Encode(f, Tone(frames), TestFormat); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return path
}

// Tone returns a streamer producing frames samples of a quiet sine wave.
func Tone(frames int) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= frames {
			return 0, false
		}
		n := 0
		for n < len(samples) && pos < frames {
			v := 0.25 * math.Sin(2*math.Pi*440*float64(pos)/float64(TestFormat.SampleRate))
			samples[n] = [2]float64{v, v}
			n++
			pos++
		}
		return n, true
	})
}

// WriteFile writes data into dir and returns its path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
