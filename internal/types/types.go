// Package types provides shared type definitions for the application.
package types

import "slices"

// DefaultStopKey is the stop key used when none is configured.
const DefaultStopKey = "SPACE"

// Scene is a named set of key to sound-path bindings.
type Scene struct {
	Name      string            `json:"name"`
	KeySounds map[string]string `json:"key_sounds"`
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := Scene{Name: s.Name, KeySounds: make(map[string]string, len(s.KeySounds))}
	for k, v := range s.KeySounds {
		out.KeySounds[k] = v
	}
	return out
}

// Settings are the process-wide engine settings. They do not belong to any scene.
type Settings struct {
	StopKey           string `json:"stop_key"`
	StopOnUnbound     bool   `json:"stop_on_unbound"`
	LongPressOptimize bool   `json:"long_press_optimize"`
}

// DefaultSettings returns the settings used for new documents.
func DefaultSettings() Settings {
	return Settings{
		StopKey:           DefaultStopKey,
		StopOnUnbound:     true,
		LongPressOptimize: true,
	}
}

// Document is the persisted registry state.
// Order lists scene ids in document order; it is not serialized as a field.
type Document struct {
	CurrentScene string
	Scenes       map[string]Scene
	Order        []string
	Settings
}

// Has reports whether the document contains a scene with the given id.
func (d *Document) Has(id string) bool {
	_, ok := d.Scenes[id]
	return ok
}

// Put inserts or replaces a scene, appending new ids to Order.
func (d *Document) Put(id string, s Scene) {
	if d.Scenes == nil {
		d.Scenes = make(map[string]Scene)
	}
	if _, ok := d.Scenes[id]; !ok {
		d.Order = append(d.Order, id)
	}
	d.Scenes[id] = s
}

// Delete removes a scene and its Order entry.
func (d *Document) Delete(id string) {
	delete(d.Scenes, id)
	d.Order = slices.DeleteFunc(d.Order, func(x string) bool { return x == id })
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		CurrentScene: d.CurrentScene,
		Scenes:       make(map[string]Scene, len(d.Scenes)),
		Order:        slices.Clone(d.Order),
		Settings:     d.Settings,
	}
	for id, s := range d.Scenes {
		out.Scenes[id] = s.Clone()
	}
	return out
}

// SceneInfo is a summary of one scene for listings.
type SceneInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Bindings int    `json:"bindings"`
	Current  bool   `json:"current"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Observer
// ─────────────────────────────────────────────────────────────────────────────

// Observer receives notifications from the engine.
// Implementations must not call back into the engine synchronously.
type Observer interface {
	StatusChanged(text string)
	BindingsChanged()
	SceneListChanged()
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) StatusChanged(string) {}
func (NopObserver) BindingsChanged()     {}
func (NopObserver) SceneListChanged()    {}
