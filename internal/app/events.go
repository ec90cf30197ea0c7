package app

import (
	"sync"

	"go.aimuz.me/keysound/internal/types"
)

// Event names used by Emitter.
const (
	EventStatusChanged    = "status-changed"
	EventBindingsChanged  = "bindings-changed"
	EventSceneListChanged = "scene-list-changed"
)

// Emitter adapts a named-event callback to the Observer interface.
type Emitter func(name string, data any)

func (e Emitter) StatusChanged(text string) { e(EventStatusChanged, text) }
func (e Emitter) BindingsChanged()          { e(EventBindingsChanged, nil) }
func (e Emitter) SceneListChanged()         { e(EventSceneListChanged, nil) }

// Bus fans engine notifications out to every subscriber.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]types.Observer
}

// NewBus creates a bus without subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]types.Observer)}
}

// Subscribe registers o and returns a function that removes it.
func (b *Bus) Subscribe(o types.Observer) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = o
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) StatusChanged(text string) {
	for _, o := range b.snapshot() {
		o.StatusChanged(text)
	}
}

func (b *Bus) BindingsChanged() {
	for _, o := range b.snapshot() {
		o.BindingsChanged()
	}
}

func (b *Bus) SceneListChanged() {
	for _, o := range b.snapshot() {
		o.SceneListChanged()
	}
}

func (b *Bus) snapshot() []types.Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.Observer, 0, len(b.subs))
	for _, o := range b.subs {
		out = append(out, o)
	}
	return out
}
