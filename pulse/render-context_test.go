package pulse

import (
	"context"
	"errors"
	"testing"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*RenderContext, *fakeBackend, *TargetPool, *Globals) {
	backend := &fakeBackend{}
	pool := NewTargetPool(backend)
	globals := NewGlobals()

	frame := FrameParams{View: glm.IdentityMat4[float32](), Near: 0.1, Far: 100}

	return NewRenderContext(backend, globals, frame), backend, pool, globals
}

func TestSubmitExecutesCommandsInOrder(t *testing.T) {
	rc, backend, pool, _ := newTestContext(t)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	cb := NewCommandBuffer("Test")
	cb.BeginSample("Test")
	cb.SetRenderTarget(target)
	cb.ClearRenderTarget(ClearAll, ColorBlack, 1, 0)
	rc.ExecuteCommandBuffer(cb)

	// the buffer can be reused right away
	cb.Clear()
	cb.EndSample("Test")
	rc.ExecuteCommandBuffer(cb)

	require.Len(t, rc.Pending(), 4)
	require.NoError(t, rc.Submit(context.Background()))

	require.Len(t, backend.executed, 1)

	commands := backend.executed[0]
	assert.Equal(t, BeginSampleCommand{Name: "Test"}, commands[0])
	assert.Equal(t, SetRenderTargetCommand{Target: target}, commands[1])
	assert.IsType(t, ClearRenderTargetCommand{}, commands[2])
	assert.Equal(t, EndSampleCommand{Name: "Test"}, commands[3])

	assert.Empty(t, rc.Pending())
}

func TestSubmitWithoutCommands(t *testing.T) {
	rc, backend, _, _ := newTestContext(t)

	require.NoError(t, rc.Submit(context.Background()))
	assert.Empty(t, backend.executed)
}

func TestSubmitRequiresBoundTarget(t *testing.T) {
	rc, backend, _, _ := newTestContext(t)

	cb := NewCommandBuffer("Test")
	cb.ClearRenderTarget(ClearColor, ColorBlack, 1, 0)
	rc.ExecuteCommandBuffer(cb)

	err := rc.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoRenderTarget)
	assert.Empty(t, backend.executed)
}

func TestSubmitRejectsReleasedTarget(t *testing.T) {
	rc, _, pool, _ := newTestContext(t)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	cb := NewCommandBuffer("Test")
	cb.SetRenderTarget(target)
	rc.ExecuteCommandBuffer(cb)

	pool.Release()

	err = rc.Submit(context.Background())
	assert.ErrorIs(t, err, ErrTargetReleased)
}

func TestQueuedCommandsPinTargets(t *testing.T) {
	rc, _, pool, _ := newTestContext(t)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	cb := NewCommandBuffer("Test")
	cb.SetRenderTarget(target)
	cb.SetGlobalTexture("_Color", target)
	rc.ExecuteCommandBuffer(cb)

	assert.True(t, target.InUse())

	require.NoError(t, rc.Submit(context.Background()))
	assert.False(t, target.InUse())

	rc.ExecuteCommandBuffer(cb)
	assert.True(t, target.InUse())

	rc.Discard()
	assert.False(t, target.InUse())
	assert.Empty(t, rc.Pending())
}

func TestPublishWhenScheduled(t *testing.T) {
	rc, _, pool, globals := newTestContext(t)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	cb := NewCommandBuffer("Test")
	cb.SetRenderTarget(target)
	cb.SetGlobalTexture("_Color", target)
	rc.ExecuteCommandBuffer(cb)

	published, ok := globals.Texture("_Color")
	require.True(t, ok, "not visible to later passes")
	assert.Same(t, target, published)

	require.NoError(t, rc.Submit(context.Background()))

	published, ok = globals.Texture("_Color")
	require.True(t, ok)
	assert.Same(t, target, published)
}

func TestDiscardRestoresPublications(t *testing.T) {
	rc, _, pool, globals := newTestContext(t)

	previous, err := pool.Allocate("Previous", testDescriptor)
	require.NoError(t, err)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	globals.Publish("_Color", previous)

	cb := NewCommandBuffer("Test")
	cb.SetRenderTarget(target)
	cb.SetGlobalTexture("_Color", target)
	cb.SetGlobalTexture("_Other", target)
	rc.ExecuteCommandBuffer(cb)

	published, _ := globals.Texture("_Color")
	assert.Same(t, target, published)

	rc.Discard()

	published, ok := globals.Texture("_Color")
	require.True(t, ok)
	assert.Same(t, previous, published)

	_, ok = globals.Texture("_Other")
	assert.False(t, ok)
}

func TestNoPublishWhenExecuteFails(t *testing.T) {
	rc, backend, pool, globals := newTestContext(t)

	target, err := pool.Allocate("Color", testDescriptor)
	require.NoError(t, err)

	backend.failExecute = errors.New("device lost")

	cb := NewCommandBuffer("Test")
	cb.SetRenderTarget(target)
	cb.SetGlobalTexture("_Color", target)
	rc.ExecuteCommandBuffer(cb)

	assert.ErrorIs(t, rc.Submit(context.Background()), backend.failExecute)

	_, ok := globals.Texture("_Color")
	assert.False(t, ok)
	assert.False(t, target.InUse())
}

func TestGlobalsBeginFrameDropsPublications(t *testing.T) {
	globals := NewGlobals()

	globals.BeginFrame(1)
	globals.Publish("_B", &RenderTarget{name: "B"})
	globals.Publish("_A", &RenderTarget{name: "A"})

	assert.Equal(t, []string{"_A", "_B"}, globals.Names())
	assert.EqualValues(t, 1, globals.Frame())

	globals.BeginFrame(2)

	assert.Empty(t, globals.Names())
	assert.EqualValues(t, 2, globals.Frame())
}

func TestCommandBufferPool(t *testing.T) {
	cb := GetCommandBuffer("First")
	assert.Equal(t, "First", cb.Name())
	assert.Zero(t, cb.Len())

	cb.BeginSample("First")
	ReleaseCommandBuffer(cb)

	// a buffer from the pool is always empty
	cb = GetCommandBuffer("Second")
	defer ReleaseCommandBuffer(cb)

	assert.Equal(t, "Second", cb.Name())
	assert.Zero(t, cb.Len())
}
