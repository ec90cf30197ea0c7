// Package app wires the engine components into one service.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"go.aimuz.me/keysound/cache"
	"go.aimuz.me/keysound/catalog"
	"go.aimuz.me/keysound/config"
	"go.aimuz.me/keysound/hotkey"
	"go.aimuz.me/keysound/internal/types"
	"go.aimuz.me/keysound/playback"
	"go.aimuz.me/keysound/scene"
)

// legacyDocument is where earlier releases kept the document, relative to
// the working directory.
const legacyDocument = "config.json"

// Service owns the engine: registry, catalog, playback and key routing.
// Presentation layers call into it and subscribe to its notifications.
type Service struct {
	opts  config.Options
	cache *cache.Cache

	bus      *Bus
	catalog  *catalog.Catalog
	registry *scene.Registry
	player   *playback.Engine
	status   *hotkey.Status
	router   *hotkey.Router
	listener *hotkey.Listener

	audio        bool
	documentOnly bool
}

// Option configures a Service.
type Option func(*Service)

// DocumentOnly builds a service that edits the document without decoding
// sounds or opening the cache. Key presses find no sound to play.
func DocumentOnly() Option {
	return func(s *Service) { s.documentOnly = true }
}

// New loads the document and builds the engine. A corrupt document is
// returned as an error matching config.ErrStoreCorrupt.
func New(opts config.Options, options ...Option) (*Service, error) {
	s := &Service{opts: opts, bus: NewBus()}
	for _, o := range options {
		o(s)
	}

	store := config.NewStore(opts.Document, config.ParseLocale(opts.Locale))
	if legacy, err := filepath.Abs(legacyDocument); err == nil {
		store.LegacyPath = legacy
	}
	doc, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var sounds scene.Sounds = scene.NoSounds{}
	if !s.documentOnly {
		s.setupCache()
	}
	s.catalog = catalog.New(s.cache)
	if !s.documentOnly {
		sounds = s.catalog
	}
	s.registry = scene.New(doc, store, sounds, s.bus)

	out, ok := openOutput(opts.Audio)
	s.audio = ok
	s.player = playback.New(s.catalog, out, opts.Playback.PollInterval)

	s.status = hotkey.NewStatus(opts.Status.Revert, s.bus.StatusChanged)
	s.player.OnIdle(func(string) { s.status.Reset() })
	s.router = hotkey.NewRouter(s.registry, s.player, s.status)
	s.listener = hotkey.NewListener(s.router)

	slog.Info("engine ready",
		"document", opts.Document,
		"scene", s.registry.Current(),
		"sounds", s.catalog.Len())
	return s, nil
}

func (s *Service) setupCache() {
	if !s.opts.Cache.Enabled {
		return
	}
	c, err := cache.New(s.opts.Cache.Dir)
	if err != nil {
		slog.Warn("init cache", "path", s.opts.Cache.Dir, "error", err)
		return
	}
	s.cache = c
	slog.Debug("cache initialized", "path", s.opts.Cache.Dir)
}

// Registry returns the scene registry.
func (s *Service) Registry() *scene.Registry { return s.registry }

// Router returns the key router.
func (s *Service) Router() *hotkey.Router { return s.router }

// Player returns the playback engine.
func (s *Service) Player() *playback.Engine { return s.player }

// Status returns the text currently shown in the status line.
func (s *Service) Status() string { return s.status.Text() }

// AudioAvailable reports whether sounds reach an audio device.
func (s *Service) AudioAvailable() bool { return s.audio }

// Subscribe registers o for engine notifications.
func (s *Service) Subscribe(o types.Observer) (unsubscribe func()) {
	return s.bus.Subscribe(o)
}

// SetFocusGuard installs the modal-dialog query consulted on every key press.
func (s *Service) SetFocusGuard(fn func() bool) {
	s.router.SetFocusGuard(fn)
}

// StartListening installs the global keyboard hook and starts routing.
func (s *Service) StartListening() error {
	s.router.Start()
	if err := s.listener.Start(); err != nil {
		s.router.Stop()
		return fmt.Errorf("start keyboard hook: %w", err)
	}
	return nil
}

// StopListening removes the keyboard hook and stops playback.
func (s *Service) StopListening() {
	s.listener.Stop()
	s.router.Stop()
}

// Shutdown releases every resource held by the service.
func (s *Service) Shutdown() {
	s.StopListening()
	if err := s.player.Close(); err != nil {
		slog.Error("close audio output", "error", err)
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}
