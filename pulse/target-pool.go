package pulse

import (
	"fmt"
	"log/slog"
	"sync"
)

// TargetPool allocates render targets and owns them until Release is called.
type TargetPool struct {
	backend Backend

	mu      sync.Mutex
	targets map[string]*RenderTarget
}

func NewTargetPool(backend Backend) *TargetPool {
	return &TargetPool{
		backend: backend,
		targets: map[string]*RenderTarget{},
	}
}

// Allocate creates a new named target. Allocating a name twice returns the
// existing target, reallocated to the given descriptor if required.
func (p *TargetPool) Allocate(name string, desc RenderTargetDescriptor) (*RenderTarget, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.targets[name]; ok {
		if _, err := p.ReAllocateIfNeeded(existing, desc); err != nil {
			return nil, err
		}

		return existing, nil
	}

	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("allocate target %q: %w", name, err)
	}

	storage, err := p.backend.AllocateTarget(name, desc)
	if err != nil {
		return nil, fmt.Errorf("allocate target %q: %w", name, err)
	}

	slog.Debug("Allocated render target",
		slog.String("name", name),
		slog.Int("width", int(desc.Width)),
		slog.Int("height", int(desc.Height)),
		slog.String("format", desc.ColorFormat.String()),
	)

	target := &RenderTarget{name: name, desc: desc, storage: storage}
	p.targets[name] = target

	return target, nil
}

// ReAllocateIfNeeded replaces the storage of the target if the descriptor
// changed. It reports whether a reallocation happened. A target still
// referenced by unsubmitted commands is never resized.
func (p *TargetPool) ReAllocateIfNeeded(target *RenderTarget, desc RenderTargetDescriptor) (bool, error) {
	if target.Released() {
		return false, fmt.Errorf("reallocate %q: %w", target.name, ErrTargetReleased)
	}

	if target.Descriptor().compatible(desc) {
		return false, nil
	}

	if target.InUse() {
		return false, fmt.Errorf("reallocate %q: %w", target.name, ErrTargetInUse)
	}

	if err := desc.Validate(); err != nil {
		return false, fmt.Errorf("reallocate %q: %w", target.name, err)
	}

	storage, err := p.backend.AllocateTarget(target.name, desc)
	if err != nil {
		return false, fmt.Errorf("reallocate %q: %w", target.name, err)
	}

	slog.Debug("Resized render target",
		slog.String("name", target.name),
		slog.Int("width", int(desc.Width)),
		slog.Int("height", int(desc.Height)),
	)

	target.mu.Lock()
	previous := target.storage
	target.storage = storage
	target.desc = desc
	target.mu.Unlock()

	if previous != nil {
		previous.Release()
	}

	return true, nil
}

// Lookup returns the target allocated under the given name.
func (p *TargetPool) Lookup(name string) (*RenderTarget, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target, ok := p.targets[name]
	return target, ok
}

// Release frees the storage of all targets. Handles held by passes
// become unusable.
func (p *TargetPool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, target := range p.targets {
		target.release()
		delete(p.targets, name)
	}
}
