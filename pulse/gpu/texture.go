package gpu

import (
	"fmt"

	"github.com/oliverbestmann/prepass/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

// Texture wraps a wgpu.Texture and an identity wgpu.TextureView.
type Texture struct {
	texture     *wgpu.Texture
	textureView *wgpu.TextureView

	format      wgpu.TextureFormat
	sampleCount uint32

	width  uint32
	height uint32
}

type NewTextureOptions struct {
	Format wgpu.TextureFormat
	Width  uint32
	Height uint32

	// number of samples, zero is treated as one
	SampleCount uint32

	Label string
}

func NewTexture(ctx *Context, opts NewTextureOptions) (*Texture, error) {
	desc := &wgpu.TextureDescriptor{
		Label:         opts.Label,
		Format:        opts.Format,
		SampleCount:   max(opts.SampleCount, 1),
		MipLevelCount: 1,

		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              opts.Width,
			Height:             opts.Height,
			DepthOrArrayLayers: 1,
		},

		// render into it, sample from it in later passes and read it back
		Usage: wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageRenderAttachment |
			wgpu.TextureUsageCopySrc,
	}

	return NewTextureFromDesc(ctx, desc)
}

// NewTextureFromDesc gives you full control and creates a texture directly from
// a texture descriptor
func NewTextureFromDesc(ctx *Context, desc *wgpu.TextureDescriptor) (*Texture, error) {
	texture, err := ctx.Device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}

	textureGuard := NewReleaseGuard(texture)
	defer textureGuard.Release()

	textureView, err := texture.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("create view of %q: %w", desc.Label, err)
	}

	textureGuard.Keep()

	return &Texture{
		texture:     texture,
		textureView: textureView,
		format:      desc.Format,
		sampleCount: desc.SampleCount,
		width:       desc.Size.Width,
		height:      desc.Size.Height,
	}, nil
}

func (t *Texture) Width() uint32 {
	return t.width
}

func (t *Texture) Height() uint32 {
	return t.height
}

func (t *Texture) Format() wgpu.TextureFormat {
	return t.format
}

func (t *Texture) SampleCount() uint32 {
	return t.sampleCount
}

func (t *Texture) ToWGPUTexture() *wgpu.Texture {
	return t.texture
}

func (t *Texture) ToWGPUTextureView() *wgpu.TextureView {
	return t.textureView
}

// Release releases the texture and its view. You must be sure to not use
// the texture after calling release.
func (t *Texture) Release() {
	t.textureView.Release()
	t.texture.Release()
}

func textureFormatOf(format pulse.TextureFormat) (wgpu.TextureFormat, error) {
	switch format {
	case pulse.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case pulse.FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case pulse.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float, nil
	case pulse.FormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus, nil
	case pulse.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("%w: texture format %s", ErrUnsupported, format)
	}
}

// Target is the storage of a pulse.RenderTarget: a color texture and an
// optional depth texture of the same size.
type Target struct {
	Color *Texture

	// nil if the target was allocated without depth bits
	Depth *Texture
}

func newTarget(ctx *Context, name string, desc pulse.RenderTargetDescriptor) (*Target, error) {
	colorFormat, err := textureFormatOf(desc.ColorFormat)
	if err != nil {
		return nil, err
	}

	guard := NewReleaseGuard()
	defer guard.Release()

	target := &Target{}

	target.Color, err = NewTexture(ctx, NewTextureOptions{
		Label:       name + ".Color",
		Format:      colorFormat,
		Width:       desc.Width,
		Height:      desc.Height,
		SampleCount: desc.SampleCount(),
	})
	if err != nil {
		return nil, fmt.Errorf("create color texture: %w", err)
	}

	guard.Add(target.Color)

	if desc.DepthBits > 0 {
		depthFormat, err := textureFormatOf(desc.DepthFormat())
		if err != nil {
			return nil, err
		}

		target.Depth, err = NewTexture(ctx, NewTextureOptions{
			Label:       name + ".Depth",
			Format:      depthFormat,
			Width:       desc.Width,
			Height:      desc.Height,
			SampleCount: desc.SampleCount(),
		})
		if err != nil {
			return nil, fmt.Errorf("create depth texture: %w", err)
		}
	}

	guard.Keep()

	return target, nil
}

func (t *Target) Release() {
	t.Color.Release()

	if t.Depth != nil {
		t.Depth.Release()
	}
}

// StorageOf returns the gpu storage of a target allocated by a Backend.
func StorageOf(target *pulse.RenderTarget) (*Target, error) {
	storage, ok := target.Storage().(*Target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrForeignTarget, target)
	}

	return storage, nil
}
