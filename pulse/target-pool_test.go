package pulse

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeStorage struct {
	desc     RenderTargetDescriptor
	released bool
}

func (s *fakeStorage) Release() {
	s.released = true
}

// fakeBackend hands out fakeStorage and remembers executed commands.
type fakeBackend struct {
	mu       sync.Mutex
	storages []*fakeStorage
	executed [][]Command

	failExecute error
}

func (b *fakeBackend) AllocateTarget(name string, desc RenderTargetDescriptor) (TargetStorage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	storage := &fakeStorage{desc: desc}
	b.storages = append(b.storages, storage)

	return storage, nil
}

func (b *fakeBackend) Execute(ctx context.Context, frame FrameParams, commands []Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failExecute != nil {
		return b.failExecute
	}

	b.executed = append(b.executed, commands)

	return nil
}

var testDescriptor = RenderTargetDescriptor{
	Width:       64,
	Height:      32,
	ColorFormat: FormatRGBA8Unorm,
	DepthBits:   32,
}

func TestPoolAllocate(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewTargetPool(backend)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	assert.Equal(t, "Color", target.Name())
	assert.Equal(t, testDescriptor, target.Descriptor())
	assert.EqualValues(t, 64, target.Width())
	assert.EqualValues(t, 32, target.Height())
	assert.Same(t, backend.storages[0], target.Storage())

	lookup, ok := pool.Lookup("Color")
	require.True(t, ok)
	assert.Same(t, target, lookup)
}

func TestPoolAllocateConcurrently(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewTargetPool(backend)

	const workers = 16

	targets := make([]*RenderTarget, workers)

	var group errgroup.Group
	for idx := range workers {
		group.Go(func() (err error) {
			targets[idx], err = pool.Allocate("Color", testDescriptor)
			return err
		})
	}

	require.NoError(t, group.Wait())

	for _, target := range targets {
		assert.Same(t, targets[0], target)
	}

	require.Len(t, backend.storages, 1)

	pool.Release()
	assert.True(t, backend.storages[0].released)
}

func TestPoolAllocateSameNameReturnsExisting(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewTargetPool(backend)

	first, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	second, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, backend.storages, 1)
}

func TestPoolRejectsInvalidDescriptor(t *testing.T) {
	pool := NewTargetPool(&fakeBackend{})

	_, err := pool.Allocate("Empty", RenderTargetDescriptor{ColorFormat: FormatRGBA8Unorm})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	_, err = pool.Allocate("Depth", RenderTargetDescriptor{Width: 1, Height: 1, ColorFormat: FormatDepth32Float})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	_, err = pool.Allocate("Bits", RenderTargetDescriptor{Width: 1, Height: 1, ColorFormat: FormatRGBA8Unorm, DepthBits: 16})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestPoolReAllocateIfNeeded(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewTargetPool(backend)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	changed, err := pool.ReAllocateIfNeeded(target, testDescriptor)
	require.NoError(t, err)
	assert.False(t, changed)

	// zero samples and one sample describe the same target
	single := testDescriptor
	single.MSAASamples = 1

	changed, err = pool.ReAllocateIfNeeded(target, single)
	require.NoError(t, err)
	assert.False(t, changed)

	larger := testDescriptor
	larger.Width = 128

	changed, err = pool.ReAllocateIfNeeded(target, larger)
	require.NoError(t, err)
	assert.True(t, changed)

	require.Len(t, backend.storages, 2)
	assert.True(t, backend.storages[0].released)
	assert.Same(t, backend.storages[1], target.Storage())
	assert.EqualValues(t, 128, target.Width())
}

func TestPoolDoesNotResizePinnedTarget(t *testing.T) {
	pool := NewTargetPool(&fakeBackend{})

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	target.pin()

	larger := testDescriptor
	larger.Width = 128

	_, err = pool.ReAllocateIfNeeded(target, larger)
	assert.ErrorIs(t, err, ErrTargetInUse)

	target.unpin()

	_, err = pool.ReAllocateIfNeeded(target, larger)
	assert.NoError(t, err)
}

func TestPoolRelease(t *testing.T) {
	backend := &fakeBackend{}
	pool := NewTargetPool(backend)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	pool.Release()

	assert.True(t, target.Released())
	assert.True(t, backend.storages[0].released)

	_, ok := pool.Lookup("Color")
	assert.False(t, ok)

	_, err = pool.ReAllocateIfNeeded(target, testDescriptor)
	assert.ErrorIs(t, err, ErrTargetReleased)
}

type failingBackend struct {
	fakeBackend
}

var errOutOfMemory = errors.New("out of memory")

func (b *failingBackend) AllocateTarget(name string, desc RenderTargetDescriptor) (TargetStorage, error) {
	return nil, errOutOfMemory
}

func TestPoolAllocationFailure(t *testing.T) {
	pool := NewTargetPool(&failingBackend{})

	_, err := pool.Allocate("Color", testDescriptor)
	assert.ErrorIs(t, err, errOutOfMemory)

	_, ok := pool.Lookup("Color")
	assert.False(t, ok)
}
