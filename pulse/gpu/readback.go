package gpu

import (
	"fmt"
	"image"

	"github.com/oliverbestmann/prepass/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

// rows of a texture copy must be aligned to this number of bytes
const copyBytesPerRowAlignment = 256

// ReadPixels copies the color attachment of a target back to the host.
// Only single sampled 8 bit RGBA and BGRA targets can be read. This waits
// for the device to finish all submitted work.
func ReadPixels(ctx *Context, target *pulse.RenderTarget) (*image.RGBA, error) {
	storage, err := StorageOf(target)
	if err != nil {
		return nil, err
	}

	texture := storage.Color

	format := texture.Format()
	if format != wgpu.TextureFormatRGBA8Unorm && format != wgpu.TextureFormatBGRA8Unorm {
		return nil, fmt.Errorf("%w: read pixels of format %s", ErrUnsupported, format)
	}

	if texture.SampleCount() > 1 {
		return nil, fmt.Errorf("%w: read pixels of multisample texture", ErrUnsupported)
	}

	width, height := texture.Width(), texture.Height()

	stride := alignUp(width*4, copyBytesPerRowAlignment)
	size := uint64(stride) * uint64(height)

	buf, err := ctx.CreateBuffer(&wgpu.BufferDescriptor{
		Label: target.Name() + ".Readback",
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("create readback buffer: %w", err)
	}

	defer buf.Release()

	encoder, err := ctx.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}

	defer encoder.Release()

	err = encoder.CopyTextureToBuffer(
		&wgpu.TexelCopyTextureInfo{
			Texture:  texture.ToWGPUTexture(),
			MipLevel: 0,
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.TexelCopyBufferInfo{
			Buffer: buf,
			Layout: wgpu.TexelCopyBufferLayout{
				Offset:       0,
				BytesPerRow:  stride,
				RowsPerImage: height,
			},
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("copy texture to buffer: %w", err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}

	defer cmdBuffer.Release()

	ctx.Submit(cmdBuffer)

	var status wgpu.MapAsyncStatus
	err = buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.MapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, fmt.Errorf("map readback buffer: %w", err)
	}

	ctx.Poll(true, nil)

	if err := checkMapStatus(status); err != nil {
		return nil, err
	}

	defer buf.Unmap()

	mapped := buf.GetMappedRange(0, uint(size))

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := range int(height) {
		row := mapped[y*int(stride) : y*int(stride)+int(width)*4]
		copy(img.Pix[y*img.Stride:], row)
	}

	if format == wgpu.TextureFormatBGRA8Unorm {
		swapRedBlue(img.Pix)
	}

	return img, nil
}

func checkMapStatus(status wgpu.MapAsyncStatus) error {
	if status != wgpu.MapAsyncStatusSuccess {
		return fmt.Errorf("map readback buffer: status %v", status)
	}

	return nil
}

func swapRedBlue(pix []byte) {
	for idx := 0; idx+3 < len(pix); idx += 4 {
		pix[idx], pix[idx+2] = pix[idx+2], pix[idx]
	}
}

func alignUp(value, alignment uint32) uint32 {
	return (value + alignment - 1) / alignment * alignment
}
