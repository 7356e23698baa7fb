package depthnormals

import (
	"fmt"
	"sync/atomic"

	"github.com/oliverbestmann/prepass/orion"
	"github.com/oliverbestmann/prepass/pulse"
)

// Pass draws all opaque objects with the override material into its
// destination target and publishes the target as TextureName.
//
// A Pass is used by one camera at a time. Setup claims the pass for a
// frame and Cleanup releases it again.
type Pass struct {
	material  *pulse.Material
	filtering pulse.FilteringSettings

	busy atomic.Bool

	// borrowed from the target pool for the current frame
	target     *pulse.RenderTarget
	descriptor pulse.RenderTargetDescriptor
}

var _ orion.Pass = (*Pass)(nil)

func NewPass(material *pulse.Material) (*Pass, error) {
	if material == nil || material.Shader == nil {
		return nil, ErrMissingMaterial
	}

	return &Pass{
		material:  material,
		filtering: pulse.NewFilteringSettings(pulse.RenderQueueRangeOpaque, pulse.LayerMaskEverything),
	}, nil
}

func (p *Pass) Name() string {
	return ProfilerTag
}

func (p *Pass) Event() orion.RenderPassEvent {
	return Event
}

func (p *Pass) Material() *pulse.Material {
	return p.material
}

func (p *Pass) Filtering() pulse.FilteringSettings {
	return p.filtering
}

// Descriptor returns the descriptor recorded by the last Setup.
func (p *Pass) Descriptor() pulse.RenderTargetDescriptor {
	return p.descriptor
}

// Target returns the destination of the current frame, nil outside of
// Setup and Cleanup.
func (p *Pass) Target() *pulse.RenderTarget {
	return p.target
}

// TargetDescriptor derives the descriptor of the destination target from
// the cameras target. Only the size is kept.
func TargetDescriptor(camera pulse.RenderTargetDescriptor) pulse.RenderTargetDescriptor {
	return pulse.RenderTargetDescriptor{
		Width:       camera.Width,
		Height:      camera.Height,
		ColorFormat: ColorFormat,
		DepthBits:   DepthBits,
		MSAASamples: 1,
	}
}

// Setup binds the destination target for the next frame. It fails with
// ErrPassBusy if the previous frame was not cleaned up yet.
func (p *Pass) Setup(desc pulse.RenderTargetDescriptor, target *pulse.RenderTarget) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrPassBusy
	}

	p.descriptor = TargetDescriptor(desc)
	p.target = target

	return nil
}

// Configure binds the destination and clears all of it.
func (p *Pass) Configure(cmd *pulse.CommandBuffer, _ pulse.RenderTargetDescriptor) error {
	if p.target == nil {
		return ErrNotSetUp
	}

	cmd.SetRenderTarget(p.target)
	cmd.ClearRenderTarget(pulse.ClearAll, pulse.ColorBlack, 1, 0)

	return nil
}

func (p *Pass) Execute(ctx *pulse.RenderContext, data *orion.RenderingData) error {
	if p.target == nil {
		return ErrNotSetUp
	}

	if got := p.target.Descriptor(); got.Width != p.descriptor.Width || got.Height != p.descriptor.Height {
		return fmt.Errorf("target %s does not match %dx%d", p.target, p.descriptor.Width, p.descriptor.Height)
	}

	cmd := pulse.GetCommandBuffer(ProfilerTag)
	defer pulse.ReleaseCommandBuffer(cmd)

	cmd.BeginSample(ProfilerTag)

	ctx.ExecuteCommandBuffer(cmd)
	cmd.Clear()

	drawing := pulse.NewDrawingSettings(PassTag, data.Camera.OpaqueSortFlags())
	drawing.PerObjectData = pulse.PerObjectNone
	drawing.OverrideMaterial = p.material

	ctx.DrawRenderers(data.Culling, drawing, p.filtering)

	cmd.SetGlobalTexture(TextureName, p.target)
	cmd.EndSample(ProfilerTag)

	ctx.ExecuteCommandBuffer(cmd)

	return nil
}

// Cleanup drops the reference to the destination. The target itself
// is owned by the pool and stays allocated.
func (p *Pass) Cleanup() {
	p.target = nil
	p.busy.Store(false)
}
