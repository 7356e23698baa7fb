package depthnormals

import (
	"context"
	"errors"
	"testing"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/oliverbestmann/prepass/orion"
	"github.com/oliverbestmann/prepass/pulse"
	"github.com/oliverbestmann/prepass/pulse/pulsetest"
	"github.com/oliverbestmann/prepass/pulse/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) (*orion.Renderer, *Feature, *pulsetest.Recorder) {
	t.Helper()

	recorder := pulsetest.NewRecorder()
	feature := NewFeature(NewMaterial())

	renderer, err := orion.NewRenderer(recorder, orion.RendererOptions{
		Features: []orion.Feature{feature},
	})
	require.NoError(t, err)

	t.Cleanup(renderer.Release)

	return renderer, feature, recorder
}

func newCamera(t *testing.T, width, height uint32) *orion.Camera {
	t.Helper()

	camera, err := orion.NewPerspectiveCamera(orion.NewPerspectiveCameraOptions{
		Name:   "Main",
		Width:  width,
		Height: height,
	})
	require.NoError(t, err)

	return camera
}

func TestSetupForcesTargetFormat(t *testing.T) {
	renderer, feature, _ := newRenderer(t)

	camera := newCamera(t, 64, 48)
	camera.ColorFormat = pulse.FormatRGBA16Float
	camera.DepthBits = 24

	require.NoError(t, renderer.RenderCamera(context.Background(), camera, pulsetest.Scene(1, 0)))

	desc := feature.Target().Descriptor()
	assert.Equal(t, pulse.FormatRGBA8Unorm, desc.ColorFormat)
	assert.Equal(t, uint32(32), desc.DepthBits)
	assert.Equal(t, uint32(64), desc.Width)
	assert.Equal(t, uint32(48), desc.Height)

	assert.Equal(t, desc, feature.Pass().Descriptor())
}

func TestSetupAndConfigure(t *testing.T) {
	pool := pulse.NewTargetPool(raster.New())
	defer pool.Release()

	target, err := pool.Allocate("Destination", TargetDescriptor(pulse.RenderTargetDescriptor{Width: 8, Height: 8}))
	require.NoError(t, err)

	pass, err := NewPass(NewMaterial())
	require.NoError(t, err)

	cameraDesc := pulse.RenderTargetDescriptor{
		Width:       8,
		Height:      8,
		ColorFormat: pulse.FormatBGRA8Unorm,
		DepthBits:   24,
		MSAASamples: 4,
	}

	require.NoError(t, pass.Setup(cameraDesc, target))

	cmd := pulse.NewCommandBuffer("test")
	require.NoError(t, pass.Configure(cmd, cameraDesc))

	assert.Equal(t, pulse.FormatRGBA8Unorm, pass.Descriptor().ColorFormat)
	assert.Equal(t, uint32(32), pass.Descriptor().DepthBits)
	assert.Equal(t, uint32(1), pass.Descriptor().SampleCount())

	require.Len(t, cmd.Commands(), 2)
	assert.Equal(t, pulse.SetRenderTargetCommand{Target: target}, cmd.Commands()[0])
	assert.Equal(t, pulse.ClearRenderTargetCommand{
		Flags: pulse.ClearAll,
		Color: pulse.ColorBlack,
		Depth: 1,
	}, cmd.Commands()[1])
}

func TestClearBeforeDraw(t *testing.T) {
	renderer, feature, recorder := newRenderer(t)

	require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 32, 32), pulsetest.Scene(3, 1)))

	commands := recorder.Commands()

	bind := pulsetest.Index(commands, func(cmd pulse.Command) bool {
		bind, ok := cmd.(pulse.SetRenderTargetCommand)
		return ok && bind.Target == feature.Target()
	})

	clearIdx := pulsetest.Index(commands, pulsetest.IsClear)
	drawIdx := pulsetest.Index(commands, pulsetest.IsDraw)

	require.NotEqual(t, -1, bind)
	require.NotEqual(t, -1, clearIdx)
	require.NotEqual(t, -1, drawIdx)

	assert.Less(t, bind, clearIdx)
	assert.Less(t, clearIdx, drawIdx)
}

func TestDrawsOnlyOpaqueObjects(t *testing.T) {
	renderer, _, recorder := newRenderer(t)

	const opaque, transparent = 4, 3

	culling := pulsetest.Scene(opaque, transparent)
	require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 32, 32), culling))

	draws := recorder.Draws()
	require.Len(t, draws, opaque)

	for _, draw := range draws {
		assert.NotEqual(t, pulse.RenderQueueTransparent, draw.Renderable.Material.RenderQueue())
		assert.Equal(t, PassTag, draw.PassTag)
		assert.Equal(t, pulse.PerObjectNone, draw.PerObjectData)
	}
}

func TestDrawsUseOverrideMaterial(t *testing.T) {
	renderer, feature, recorder := newRenderer(t)

	require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 32, 32), pulsetest.Scene(5, 2)))

	material := feature.Pass().Material()

	draws := recorder.Draws()
	require.NotEmpty(t, draws)

	for _, draw := range draws {
		assert.Same(t, material, draw.Material)
		assert.NotSame(t, draw.Renderable.Material, draw.Material)
		assert.Same(t, &material.Shader.Passes[0], draw.Pass)
	}
}

func TestDrawsSortedFrontToBack(t *testing.T) {
	renderer, _, recorder := newRenderer(t)

	require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 32, 32), pulsetest.Scene(6, 0)))

	draws := recorder.Draws()
	require.Len(t, draws, 6)

	for idx := 1; idx < len(draws); idx++ {
		assert.LessOrEqual(t, draws[idx-1].Depth, draws[idx].Depth)
	}
}

func TestPublishesSetupTarget(t *testing.T) {
	globals := pulse.NewGlobals()
	backend := raster.New()

	pool := pulse.NewTargetPool(backend)
	defer pool.Release()

	target, err := pool.Allocate("Destination", TargetDescriptor(pulse.RenderTargetDescriptor{Width: 16, Height: 16}))
	require.NoError(t, err)

	pass, err := NewPass(NewMaterial())
	require.NoError(t, err)

	camera := newCamera(t, 16, 16)
	data := &orion.RenderingData{Camera: camera, Culling: pulsetest.Scene(2, 0), Frame: 1}

	require.NoError(t, pass.Setup(camera.TargetDescriptor(), target))

	rc := pulse.NewRenderContext(backend, globals, camera.FrameParams())

	cmd := pulse.NewCommandBuffer("configure")
	require.NoError(t, pass.Configure(cmd, camera.TargetDescriptor()))
	rc.ExecuteCommandBuffer(cmd)

	require.NoError(t, pass.Execute(rc, data))

	// passes scheduled later in the frame resolve the texture right away
	published, ok := globals.Texture(TextureName)
	require.True(t, ok)
	assert.Same(t, target, published)

	require.NoError(t, rc.Submit(context.Background()))

	published, ok = globals.Texture(TextureName)
	require.True(t, ok)
	assert.Same(t, target, published)

	pass.Cleanup()
	assert.Nil(t, pass.Target())
	assert.False(t, target.Released())
}

func TestRendererPublishesTarget(t *testing.T) {
	renderer, feature, _ := newRenderer(t)

	require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 16, 16), pulsetest.Scene(1, 0)))

	published, ok := renderer.Globals().Texture(TextureName)
	require.True(t, ok)
	assert.Same(t, feature.Target(), published)
}

// outlinePass looks up the depth normals texture the way a post process would.
type outlinePass struct {
	found []*pulse.RenderTarget
}

func (p *outlinePass) Name() string { return "Outline" }
func (p *outlinePass) Event() orion.RenderPassEvent { return orion.BeforeRenderingPostProcessing }

func (p *outlinePass) Configure(*pulse.CommandBuffer, pulse.RenderTargetDescriptor) error {
	return nil
}

func (p *outlinePass) Execute(ctx *pulse.RenderContext, _ *orion.RenderingData) error {
	target, ok := ctx.Globals().Texture(TextureName)
	if !ok {
		return errors.New("depth normals texture not published")
	}

	p.found = append(p.found, target)
	return nil
}

func (p *outlinePass) Cleanup() {}

type outlineFeature struct {
	pass *outlinePass
}

func (f *outlineFeature) Name() string { return "Outline" }
func (f *outlineFeature) Create(*pulse.TargetPool) error { return nil }
func (f *outlineFeature) Release() {}

func (f *outlineFeature) AddRenderPasses(renderer *orion.Renderer, _ *orion.RenderingData) error {
	renderer.EnqueuePass(f.pass)
	return nil
}

func TestLaterPassesResolveTexture(t *testing.T) {
	feature := NewFeature(NewMaterial())
	outline := &outlineFeature{pass: &outlinePass{}}

	// the outline feature is registered first, the event order still runs it last
	renderer, err := orion.NewRenderer(pulsetest.NewRecorder(), orion.RendererOptions{
		Features: []orion.Feature{outline, feature},
	})
	require.NoError(t, err)
	defer renderer.Release()

	for frame := 0; frame < 2; frame++ {
		require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 16, 16), pulsetest.Scene(2, 0)))
	}

	require.Len(t, outline.pass.found, 2)
	for _, target := range outline.pass.found {
		assert.Same(t, feature.Target(), target)
	}
}

func TestResizeAndClearAcrossFrames(t *testing.T) {
	renderer, feature, _ := newRenderer(t)

	ctx := context.Background()

	// first frame renders some objects
	require.NoError(t, renderer.RenderCamera(ctx, newCamera(t, 64, 48), pulsetest.Scene(3, 0)))

	storage, err := raster.StorageOf(feature.Target())
	require.NoError(t, err)
	require.True(t, hasContent(storage), "first frame must render something")

	// second frame at a new resolution without any objects
	require.NoError(t, renderer.RenderCamera(ctx, newCamera(t, 40, 20), pulse.CullingResults{}))

	desc := feature.Target().Descriptor()
	assert.Equal(t, uint32(40), desc.Width)
	assert.Equal(t, uint32(20), desc.Height)

	storage, err = raster.StorageOf(feature.Target())
	require.NoError(t, err)

	assert.Equal(t, 40, storage.Width())
	assert.Equal(t, 20, storage.Height())
	assert.False(t, hasContent(storage), "no residual content of the previous frame")

	for y := range storage.Height() {
		for x := range storage.Width() {
			require.Equal(t, float32(1), storage.DepthAt(x, y))
		}
	}
}

func TestClearAcrossFramesWithSameResolution(t *testing.T) {
	renderer, feature, _ := newRenderer(t)

	ctx := context.Background()
	camera := newCamera(t, 32, 32)

	require.NoError(t, renderer.RenderCamera(ctx, camera, pulsetest.Scene(2, 0)))

	first := feature.Target().Storage()

	require.NoError(t, renderer.RenderCamera(ctx, camera, pulse.CullingResults{}))

	// the storage is reused, but cleared
	assert.Same(t, first, feature.Target().Storage())

	storage, err := raster.StorageOf(feature.Target())
	require.NoError(t, err)
	assert.False(t, hasContent(storage))
}

func TestEncodesDepthAndNormal(t *testing.T) {
	renderer, feature, _ := newRenderer(t)

	camera := newCamera(t, 64, 64)

	cube := &pulse.Renderable{
		Name:         "Cube",
		Mesh:         pulse.NewCube(1),
		Material:     must(pulse.NewMaterial("Lit", pulsetest.LitShader())),
		LocalToWorld: glm.TranslationMat4[float32](0, 0, -4),
	}

	culling := pulse.CullingResults{Visible: []*pulse.Renderable{cube}}
	require.NoError(t, renderer.RenderCamera(context.Background(), camera, culling))

	storage, err := raster.StorageOf(feature.Target())
	require.NoError(t, err)

	depth, normal := DecodeDepthNormal(storage.At(32, 32))

	// the front face of the cube is 3.5 units away and faces the camera
	assert.InDelta(t, 3.5/camera.Far, depth, 1e-3)
	assert.InDelta(t, 0, normal[0], 0.05)
	assert.InDelta(t, 0, normal[1], 0.05)
	assert.InDelta(t, 1, normal[2], 0.05)

	// corners stay cleared
	assert.Equal(t, pulse.ColorBlack.ToVec(), storage.At(0, 0))
}

func TestMissingMaterialFailsRendererBuild(t *testing.T) {
	_, err := orion.NewRenderer(pulsetest.NewRecorder(), orion.RendererOptions{
		Features: []orion.Feature{NewFeature(nil)},
	})

	require.ErrorIs(t, err, ErrMissingMaterial)
}

func TestMissingMaterialSkipsFeature(t *testing.T) {
	renderer, err := orion.NewRenderer(pulsetest.NewRecorder(), orion.RendererOptions{
		Features:           []orion.Feature{NewFeature(nil)},
		SkipFailedFeatures: true,
	})
	require.NoError(t, err)

	defer renderer.Release()

	assert.Empty(t, renderer.Features())

	require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 8, 8), pulsetest.Scene(1, 0)))

	_, ok := renderer.Globals().Texture(TextureName)
	assert.False(t, ok)
}

func TestAllocationFailureFailsRendererBuild(t *testing.T) {
	errFormat := errors.New("format not supported")

	recorder := pulsetest.NewRecorder()
	recorder.FailAllocations = errFormat

	_, err := orion.NewRenderer(recorder, orion.RendererOptions{
		Features: []orion.Feature{NewFeature(NewMaterial())},
	})

	require.ErrorIs(t, err, errFormat)
}

func TestPassIsNotReentrant(t *testing.T) {
	pool := pulse.NewTargetPool(raster.New())
	defer pool.Release()

	target, err := pool.Allocate("Destination", TargetDescriptor(pulse.RenderTargetDescriptor{Width: 4, Height: 4}))
	require.NoError(t, err)

	pass, err := NewPass(NewMaterial())
	require.NoError(t, err)

	desc := target.Descriptor()

	require.NoError(t, pass.Setup(desc, target))
	require.ErrorIs(t, pass.Setup(desc, target), ErrPassBusy)

	pass.Cleanup()
	require.NoError(t, pass.Setup(desc, target))
}

func TestConfigureRequiresSetup(t *testing.T) {
	pass, err := NewPass(NewMaterial())
	require.NoError(t, err)

	err = pass.Configure(pulse.NewCommandBuffer("test"), pulse.RenderTargetDescriptor{})
	require.ErrorIs(t, err, ErrNotSetUp)
}

func TestNewPassRequiresMaterial(t *testing.T) {
	_, err := NewPass(nil)
	require.ErrorIs(t, err, ErrMissingMaterial)

	_, err = NewPass(&pulse.Material{Name: "Broken"})
	require.ErrorIs(t, err, ErrMissingMaterial)
}

func TestProfilingScope(t *testing.T) {
	renderer, _, recorder := newRenderer(t)

	require.NoError(t, renderer.RenderCamera(context.Background(), newCamera(t, 8, 8), pulsetest.Scene(1, 0)))

	commands := recorder.Commands()

	begin := pulsetest.Index(commands, func(cmd pulse.Command) bool {
		return cmd == pulse.BeginSampleCommand{Name: ProfilerTag}
	})

	end := pulsetest.Index(commands, func(cmd pulse.Command) bool {
		return cmd == pulse.EndSampleCommand{Name: ProfilerTag}
	})

	publish := pulsetest.Index(commands, func(cmd pulse.Command) bool {
		_, ok := cmd.(pulse.SetGlobalTextureCommand)
		return ok
	})

	draw := pulsetest.Index(commands, pulsetest.IsDraw)

	require.NotEqual(t, -1, begin)
	assert.Less(t, begin, draw)
	assert.Less(t, draw, publish)
	assert.Less(t, publish, end)
}

func hasContent(target *raster.Target) bool {
	black := pulse.ColorBlack.ToVec()

	for y := range target.Height() {
		for x := range target.Width() {
			if target.At(x, y) != black {
				return true
			}
		}
	}

	return false
}

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}

	return value
}
