// Package catalog loads the sounds bound in the active scene into
// playback-ready buffers.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"go.aimuz.me/keysound/cache"
)

// ErrResourceLoad is matched by every error returned for a sound that could
// not be opened or decoded.
var ErrResourceLoad = errors.New("resource load failed")

// ErrUnsupportedFormat is returned for files whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// LoadError reports a sound that failed to load for one key.
type LoadError struct {
	Key  string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load sound for key %s (%s): %v", e.Key, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is reports ErrResourceLoad as a match.
func (e *LoadError) Is(target error) bool { return target == ErrResourceLoad }

// Sound is a decoded sound ready to play.
type Sound struct {
	Key    string
	Path   string
	Format beep.Format
	Buffer *beep.Buffer
}

// Streamer returns a fresh streamer positioned at the start of the sound.
func (s *Sound) Streamer() beep.StreamSeeker {
	return s.Buffer.Streamer(0, s.Buffer.Len())
}

// Duration returns the length of the sound.
func (s *Sound) Duration() time.Duration {
	return s.Format.SampleRate.D(s.Buffer.Len())
}

// Catalog holds the decoded sounds of the active bindings.
type Catalog struct {
	cache *cache.Cache // optional

	mu       sync.RWMutex
	sounds   map[string]*Sound
	warnings map[string]error
}

// New creates an empty catalog. c may be nil to disable the decode cache.
func New(c *cache.Cache) *Catalog {
	return &Catalog{
		cache:    c,
		sounds:   make(map[string]*Sound),
		warnings: make(map[string]error),
	}
}

// Reload discards every loaded sound and loads bindings afresh. Keys whose
// sound fails to load are left without a sound; their errors are returned
// and kept as warnings.
func (c *Catalog) Reload(bindings map[string]string) []error {
	sounds := make(map[string]*Sound, len(bindings))
	warnings := make(map[string]error)
	var errs []error

	for key, path := range bindings {
		s, err := c.load(key, path)
		if err != nil {
			warnings[key] = err
			errs = append(errs, err)
			slog.Warn("load sound", "key", key, "path", path, "error", err)
			continue
		}
		sounds[key] = s
	}

	c.mu.Lock()
	c.sounds = sounds
	c.warnings = warnings
	c.mu.Unlock()

	slog.Debug("catalog reloaded", "sounds", len(sounds), "failed", len(errs))
	return errs
}

// Get returns the sound loaded for key.
func (c *Catalog) Get(key string) (*Sound, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sounds[key]
	return s, ok
}

// Add loads the sound at path for key, replacing any previous sound.
// On failure the key is left without a sound and the error is kept as a warning.
func (c *Catalog) Add(key, path string) (*Sound, error) {
	s, err := c.load(key, path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		delete(c.sounds, key)
		c.warnings[key] = err
		return nil, err
	}
	c.sounds[key] = s
	delete(c.warnings, key)
	return s, nil
}

// Remove unloads the sound for key.
func (c *Catalog) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sounds, key)
	delete(c.warnings, key)
}

// Warnings returns the load errors of keys that have no sound.
func (c *Catalog) Warnings() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.warnings)
}

// Len returns the number of loaded sounds.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sounds)
}
