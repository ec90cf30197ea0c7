package playback

import (
	"slices"
	"sync"
)

// PressState is the set of keys currently held down. It suppresses repeated
// triggers from key repeat while a key stays pressed.
type PressState struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewPressState creates an empty set.
func NewPressState() *PressState {
	return &PressState{keys: make(map[string]struct{})}
}

// Add records key as held.
func (p *PressState) Add(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[key] = struct{}{}
}

// Remove forgets key. Absent keys are ignored.
func (p *PressState) Remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, key)
}

// Has reports whether key is held.
func (p *PressState) Has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.keys[key]
	return ok
}

// Clear forgets every key.
func (p *PressState) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.keys)
}

// Keys returns the held keys in sorted order.
func (p *PressState) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.keys))
	for k := range p.keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
