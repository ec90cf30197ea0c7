// Package scene holds the scene registry: every scene with its key bindings,
// the active scene and the engine settings.
package scene

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"go.aimuz.me/keysound/catalog"
	"go.aimuz.me/keysound/config"
	"go.aimuz.me/keysound/internal/types"
	"go.aimuz.me/keysound/keys"
)

// Store persists the registry document.
type Store interface {
	Save(doc *types.Document) error
}

// Sounds loads the sounds of the active bindings.
type Sounds interface {
	Reload(bindings map[string]string) []error
	Add(key, path string) (*catalog.Sound, error)
	Remove(key string)
	Warnings() map[string]error
}

// NoSounds loads nothing. It serves registries that only edit the document.
type NoSounds struct{}

func (NoSounds) Reload(map[string]string) []error           { return nil }
func (NoSounds) Add(string, string) (*catalog.Sound, error) { return nil, nil }
func (NoSounds) Remove(string)                              {}
func (NoSounds) Warnings() map[string]error                 { return nil }

// Registry owns the scenes and settings. All methods are safe for concurrent use.
// Every successful mutation is persisted through the Store before it returns.
type Registry struct {
	store    Store
	sounds   Sounds
	observer types.Observer

	mu  sync.RWMutex
	doc *types.Document
}

// New creates a registry over doc and loads the sounds of its active scene.
// Sounds that fail to load are logged and reported by Warnings.
func New(doc *types.Document, store Store, sounds Sounds, observer types.Observer) *Registry {
	if observer == nil {
		observer = types.NopObserver{}
	}
	r := &Registry{
		store:    store,
		sounds:   sounds,
		observer: observer,
		doc:      doc.Clone(),
	}
	r.reloadLocked()
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────────────────────

// Current returns the id of the active scene.
func (r *Registry) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.CurrentScene
}

// Settings returns the engine settings.
func (r *Registry) Settings() types.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.Settings
}

// Bindings returns a copy of the active scene's bindings.
func (r *Registry) Bindings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.doc.Scenes[r.doc.CurrentScene].KeySounds)
}

// Binding returns the sound path bound to key in the active scene.
func (r *Registry) Binding(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.doc.Scenes[r.doc.CurrentScene].KeySounds[keys.Normalize(key)]
	return path, ok
}

// Scenes lists the scenes in document order.
func (r *Registry) Scenes() []types.SceneInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.SceneInfo, 0, len(r.doc.Order))
	for _, id := range r.doc.Order {
		s := r.doc.Scenes[id]
		out = append(out, types.SceneInfo{
			ID:       id,
			Name:     s.Name,
			Bindings: len(s.KeySounds),
			Current:  id == r.doc.CurrentScene,
		})
	}
	return out
}

// Scene returns a copy of the scene with the given id.
func (r *Registry) Scene(id string) (types.Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.doc.Scenes[id]
	if !ok {
		return types.Scene{}, false
	}
	return s.Clone(), true
}

// NextSceneID returns the id the next imported scene would get.
func (r *Registry) NextSceneID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextSceneIDLocked()
}

// Warnings returns the load errors of bound keys that have no sound.
func (r *Registry) Warnings() map[string]error {
	return r.sounds.Warnings()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scenes
// ─────────────────────────────────────────────────────────────────────────────

// SwitchScene makes id the active scene and loads its sounds.
func (r *Registry) SwitchScene(id string) error {
	r.mu.Lock()
	if !r.doc.Has(id) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	r.doc.CurrentScene = id
	r.reloadLocked()
	err := r.saveLocked()
	r.mu.Unlock()

	slog.Info("switched scene", "scene", id)
	r.observer.BindingsChanged()
	r.observer.SceneListChanged()
	return err
}

// AddScene creates an empty scene and switches to it. An empty name
// defaults to the id.
func (r *Registry) AddScene(id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty scene id", ErrInvalidFormat)
	}
	// JSON replaces invalid UTF-8, so such an id would not survive a save.
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: scene id is not valid UTF-8", ErrInvalidFormat)
	}
	if name = strings.TrimSpace(name); name == "" {
		name = id
	}

	r.mu.Lock()
	if r.doc.Has(id) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneExists, id)
	}
	r.doc.Put(id, types.Scene{Name: name, KeySounds: map[string]string{}})
	r.doc.CurrentScene = id
	r.reloadLocked()
	err := r.saveLocked()
	r.mu.Unlock()

	slog.Info("added scene", "scene", id, "name", name)
	r.observer.BindingsChanged()
	r.observer.SceneListChanged()
	return err
}

// RemoveScene deletes a scene. The last remaining scene cannot be removed.
// Removing the active scene activates the first scene in document order.
func (r *Registry) RemoveScene(id string) error {
	r.mu.Lock()
	if !r.doc.Has(id) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	if len(r.doc.Scenes) == 1 {
		r.mu.Unlock()
		return ErrLastScene
	}

	active := r.doc.CurrentScene == id
	r.doc.Delete(id)
	if active {
		r.doc.CurrentScene = r.doc.Order[0]
		r.reloadLocked()
	}
	err := r.saveLocked()
	current := r.doc.CurrentScene
	r.mu.Unlock()

	slog.Info("removed scene", "scene", id, "current", current)
	if active {
		r.observer.BindingsChanged()
	}
	r.observer.SceneListChanged()
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Bindings
// ─────────────────────────────────────────────────────────────────────────────

// AddBinding binds key to the sound at path in the active scene, replacing
// any previous binding. The binding is kept and persisted even when the
// sound fails to load; the load error is returned so it can be reported.
func (r *Registry) AddBinding(key, path string) error {
	k := keys.Normalize(key)
	if k == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path = strings.TrimSpace(path); path == "" {
		return fmt.Errorf("%w: empty sound path", ErrInvalidFormat)
	}

	r.mu.Lock()
	if k == r.doc.StopKey {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStopKeyConflict, k)
	}
	r.activeLocked()[k] = path
	_, loadErr := r.sounds.Add(k, path)
	err := r.saveLocked()
	r.mu.Unlock()

	if loadErr != nil {
		slog.Warn("bound key without sound", "key", k, "path", path, "error", loadErr)
	} else {
		slog.Info("bound key", "key", k, "path", path)
	}
	r.observer.BindingsChanged()
	if err != nil {
		return err
	}
	return loadErr
}

// RemoveBinding unbinds key in the active scene. Unbound keys are ignored.
func (r *Registry) RemoveBinding(key string) error {
	k := keys.Normalize(key)

	r.mu.Lock()
	bindings := r.activeLocked()
	if _, ok := bindings[k]; !ok {
		r.mu.Unlock()
		return nil
	}
	delete(bindings, k)
	r.sounds.Remove(k)
	err := r.saveLocked()
	r.mu.Unlock()

	slog.Info("unbound key", "key", k)
	r.observer.BindingsChanged()
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// SetStopKey changes the stop key. A key bound in the active scene is rejected.
func (r *Registry) SetStopKey(key string) error {
	k := keys.Normalize(key)
	if k == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	r.mu.Lock()
	if _, ok := r.activeLocked()[k]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBindingConflict, k)
	}
	r.doc.StopKey = k
	err := r.saveLocked()
	r.mu.Unlock()

	slog.Info("set stop key", "key", k)
	r.observer.BindingsChanged()
	return err
}

// SetStopOnUnbound sets whether unbound keys stop playback.
func (r *Registry) SetStopOnUnbound(v bool) error {
	return r.updateSettings(func(s *types.Settings) { s.StopOnUnbound = v })
}

// SetLongPressOptimize sets whether held keys are suppressed from re-triggering.
func (r *Registry) SetLongPressOptimize(v bool) error {
	return r.updateSettings(func(s *types.Settings) { s.LongPressOptimize = v })
}

func (r *Registry) updateSettings(fn func(*types.Settings)) error {
	r.mu.Lock()
	fn(&r.doc.Settings)
	settings := r.doc.Settings
	err := r.saveLocked()
	r.mu.Unlock()

	slog.Info("updated settings",
		"stop_on_unbound", settings.StopOnUnbound,
		"long_press_optimize", settings.LongPressOptimize)
	r.observer.BindingsChanged()
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Import / export
// ─────────────────────────────────────────────────────────────────────────────

// ImportScene adds the scene read from src under a fresh id and returns the id.
// The active scene does not change.
func (r *Registry) ImportScene(src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read scene: %w", err)
	}
	s, err := config.DecodeScene(data)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	id := r.nextSceneIDLocked()
	r.doc.Put(id, s)
	err = r.saveLocked()
	r.mu.Unlock()

	slog.Info("imported scene", "scene", id, "name", s.Name, "bindings", len(s.KeySounds))
	r.observer.SceneListChanged()
	if err != nil {
		return "", err
	}
	return id, nil
}

// ExportScene writes the scene with the given id to dst.
func (r *Registry) ExportScene(id string, dst io.Writer) error {
	r.mu.RLock()
	s, ok := r.doc.Scenes[id]
	if !ok {
		r.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	data, err := config.EncodeScene(s)
	r.mu.RUnlock()
	if err != nil {
		return err
	}

	if _, err := dst.Write(data); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return nil
}

// ImportConfig replaces every scene and setting with the document read from
// src. Nothing changes when the document is malformed.
func (r *Registry) ImportConfig(src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	doc, err := config.DecodeConfig(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.doc = doc
	r.reloadLocked()
	err = r.saveLocked()
	current := r.doc.CurrentScene
	n := len(r.doc.Scenes)
	r.mu.Unlock()

	slog.Info("imported config", "scenes", n, "current", current)
	r.observer.BindingsChanged()
	r.observer.SceneListChanged()
	return err
}

// ExportConfig writes the whole document to dst.
func (r *Registry) ExportConfig(dst io.Writer) error {
	r.mu.RLock()
	data, err := config.EncodeDocument(r.doc)
	r.mu.RUnlock()
	if err != nil {
		return err
	}

	if _, err := dst.Write(data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// activeLocked returns the live bindings of the active scene.
func (r *Registry) activeLocked() map[string]string {
	s := r.doc.Scenes[r.doc.CurrentScene]
	if s.KeySounds == nil {
		s.KeySounds = make(map[string]string)
		r.doc.Scenes[r.doc.CurrentScene] = s
	}
	return s.KeySounds
}

func (r *Registry) reloadLocked() {
	bindings := maps.Clone(r.doc.Scenes[r.doc.CurrentScene].KeySounds)
	if errs := r.sounds.Reload(bindings); len(errs) > 0 {
		slog.Warn("some sounds failed to load", "scene", r.doc.CurrentScene, "failed", len(errs))
	}
}

func (r *Registry) saveLocked() error {
	if err := r.store.Save(r.doc); err != nil {
		slog.Error("save config", "error", err)
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// nextSceneIDLocked returns scene_<n> for the first unused n, counting up
// from the number of scenes.
func (r *Registry) nextSceneIDLocked() string {
	for n := len(r.doc.Scenes); ; n++ {
		id := "scene_" + strconv.Itoa(n)
		if !r.doc.Has(id) {
			return id
		}
	}
}
