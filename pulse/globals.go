package pulse

import (
	"slices"
	"sync"
)

// Globals is a table of textures published by name. Entries are valid for
// the frame they were published in and disappear at the next BeginFrame.
type Globals struct {
	mu       sync.RWMutex
	frame    uint64
	textures map[string]*RenderTarget
}

func NewGlobals() *Globals {
	return &Globals{textures: map[string]*RenderTarget{}}
}

// BeginFrame starts a new frame and drops all publications of the previous one.
func (g *Globals) BeginFrame(frame uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.frame = frame
	clear(g.textures)
}

func (g *Globals) Frame() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.frame
}

// Publish makes the target available under the given name, replacing
// any earlier publication under the same name.
func (g *Globals) Publish(name string, target *RenderTarget) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.textures[name] = target
}

func (g *Globals) swap(name string, target *RenderTarget) (*RenderTarget, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	previous, ok := g.textures[name]
	g.textures[name] = target

	return previous, ok
}

func (g *Globals) restore(name string, previous *RenderTarget, existed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existed {
		g.textures[name] = previous
	} else {
		delete(g.textures, name)
	}
}

// Texture looks up a texture published in the current frame.
func (g *Globals) Texture(name string) (*RenderTarget, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	target, ok := g.textures[name]
	return target, ok
}

// Names returns the sorted names of all current publications.
func (g *Globals) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.textures))
	for name := range g.textures {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
