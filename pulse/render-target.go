package pulse

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// RenderTargetDescriptor describes the attachments of a RenderTarget.
type RenderTargetDescriptor struct {
	Width  uint32
	Height uint32

	ColorFormat TextureFormat

	// Bits of the depth attachment. Zero means no depth attachment.
	DepthBits uint32

	// Sample count of the attachments, zero is treated as one.
	MSAASamples uint32
}

// DepthFormat returns the depth attachment format matching DepthBits.
func (d RenderTargetDescriptor) DepthFormat() TextureFormat {
	switch d.DepthBits {
	case 32:
		return FormatDepth32Float
	case 24:
		return FormatDepth24Plus
	default:
		return FormatUndefined
	}
}

func (d RenderTargetDescriptor) SampleCount() uint32 {
	return max(d.MSAASamples, 1)
}

func (d RenderTargetDescriptor) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}

	if !d.ColorFormat.IsColor() {
		return fmt.Errorf("%w: %s is not a color format", ErrInvalidDescriptor, d.ColorFormat)
	}

	if d.DepthBits != 0 && d.DepthFormat() == FormatUndefined {
		return fmt.Errorf("%w: unsupported depth bits %d", ErrInvalidDescriptor, d.DepthBits)
	}

	return nil
}

// compatible reports whether a target allocated with d can serve other
// without being reallocated.
func (d RenderTargetDescriptor) compatible(other RenderTargetDescriptor) bool {
	return d.Width == other.Width &&
		d.Height == other.Height &&
		d.ColorFormat == other.ColorFormat &&
		d.DepthBits == other.DepthBits &&
		d.SampleCount() == other.SampleCount()
}

// TargetStorage is the backend owned memory of a RenderTarget.
type TargetStorage interface {
	Release()
}

// RenderTarget is a named handle to a color + depth target. The handle is
// owned by the TargetPool that allocated it, passes only borrow it.
type RenderTarget struct {
	name string

	mu       sync.RWMutex
	desc     RenderTargetDescriptor
	storage  TargetStorage
	released bool

	// number of queued but unsubmitted commands referencing this target
	pinned atomic.Int32
}

func (t *RenderTarget) Name() string {
	return t.name
}

func (t *RenderTarget) Descriptor() RenderTargetDescriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.desc
}

func (t *RenderTarget) Width() uint32 {
	return t.Descriptor().Width
}

func (t *RenderTarget) Height() uint32 {
	return t.Descriptor().Height
}

// Storage returns the backend storage currently backing the target.
func (t *RenderTarget) Storage() TargetStorage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.storage
}

func (t *RenderTarget) Released() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.released
}

func (t *RenderTarget) String() string {
	desc := t.Descriptor()
	return fmt.Sprintf("%s(%dx%d %s)", t.name, desc.Width, desc.Height, desc.ColorFormat)
}

func (t *RenderTarget) pin() {
	t.pinned.Add(1)
}

func (t *RenderTarget) unpin() {
	t.pinned.Add(-1)
}

// InUse reports whether queued commands still reference the target.
func (t *RenderTarget) InUse() bool {
	return t.pinned.Load() > 0
}

func (t *RenderTarget) release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.released {
		return
	}

	if t.storage != nil {
		t.storage.Release()
		t.storage = nil
	}

	t.released = true
}
