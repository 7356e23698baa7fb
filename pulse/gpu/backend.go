package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/oliverbestmann/prepass/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

type BackendOptions struct {
	// number of pipelines kept alive, defaults to 16
	PipelineCacheSize int

	// number of uploaded meshes kept alive, defaults to 256
	MeshCacheSize int
}

// Backend implements pulse.Backend on a WebGPU device. Every shader pass
// is compiled into a render pipeline the first time it is drawn. Shaders
// receive a DrawUniforms struct at group 0, binding 0 and Vertex attributes
// at locations 0 and 1.
type Backend struct {
	ctx *Context

	mu        sync.Mutex
	pipelines *PipelineCache[drawPipelineConfig]
	meshes    *meshCache

	uniforms     *wgpu.Buffer
	uniformsSize uint64
}

func NewBackend(ctx *Context, opts BackendOptions) *Backend {
	if opts.PipelineCacheSize == 0 {
		opts.PipelineCacheSize = 16
	}

	if opts.MeshCacheSize == 0 {
		opts.MeshCacheSize = 256
	}

	return &Backend{
		ctx:       ctx,
		pipelines: NewPipelineCache[drawPipelineConfig](ctx, opts.PipelineCacheSize),
		meshes:    newMeshCache(ctx, opts.MeshCacheSize),
	}
}

func (b *Backend) AllocateTarget(name string, desc pulse.RenderTargetDescriptor) (pulse.TargetStorage, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	target, err := newTarget(b.ctx, name, desc)
	if err != nil {
		return nil, fmt.Errorf("allocate %q: %w", name, err)
	}

	return target, nil
}

// Release frees all cached pipelines and buffers. Targets are owned
// by their pool and released there.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pipelines.Purge()
	b.meshes.Purge()

	if b.uniforms != nil {
		b.uniforms.Release()
		b.uniforms = nil
		b.uniformsSize = 0
	}
}

func (b *Backend) Execute(ctx context.Context, frame pulse.FrameParams, commands []pulse.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.writeUniforms(frame, commands); err != nil {
		return err
	}

	encoder, err := b.ctx.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	defer encoder.Release()

	rec := &recording{backend: b, encoder: encoder}
	defer rec.releaseBindGroups()

	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			rec.abort()
			return err
		}

		if err := rec.apply(cmd); err != nil {
			rec.abort()
			return fmt.Errorf("encode %s: %w", cmd, err)
		}
	}

	if err := rec.endPass(); err != nil {
		return err
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}

	defer cmdBuffer.Release()

	b.ctx.Submit(cmdBuffer)

	return nil
}

// writeUniforms uploads the uniforms of all draws in the order they
// are encoded later on.
func (b *Backend) writeUniforms(frame pulse.FrameParams, commands []pulse.Command) error {
	var uniforms []byte

	for _, cmd := range commands {
		draw, ok := cmd.(pulse.DrawRenderersCommand)
		if !ok {
			continue
		}

		for _, call := range draw.Draws {
			values := uniformsOf(frame, call.Model)

			block := make([]byte, uniformAlignment)
			copy(block, wgpu.ToBytes([]DrawUniforms{values}))

			uniforms = append(uniforms, block...)
		}
	}

	if len(uniforms) == 0 {
		return nil
	}

	if err := b.ensureUniformCapacity(uint64(len(uniforms))); err != nil {
		return err
	}

	err := b.ctx.WriteBuffer(b.uniforms, 0, uniforms)
	if err != nil {
		return fmt.Errorf("update uniform buffer: %w", err)
	}

	return nil
}

func (b *Backend) ensureUniformCapacity(size uint64) error {
	if b.uniforms != nil && b.uniformsSize >= size {
		return nil
	}

	// grow in powers of two to reduce the number of reallocations
	capacity := max(b.uniformsSize, 16*uniformAlignment)
	for capacity < size {
		capacity *= 2
	}

	buf, err := b.ctx.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Draw.Uniforms",
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:  capacity,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}

	if b.uniforms != nil {
		b.uniforms.Release()
	}

	slog.Debug("Resized uniform buffer", slog.Int("size", int(capacity)))

	b.uniforms = buf
	b.uniformsSize = capacity

	return nil
}

// recording encodes the commands of a single Execute call.
type recording struct {
	backend *Backend
	encoder *wgpu.CommandEncoder

	target *Target
	pass   *wgpu.RenderPassEncoder

	// index of the next draw, selects the uniform block
	drawIndex uint64

	bindGroups []*wgpu.BindGroup
}

func (r *recording) apply(cmd pulse.Command) error {
	switch cmd := cmd.(type) {
	case pulse.SetRenderTargetCommand:
		if err := r.endPass(); err != nil {
			return err
		}

		target, err := StorageOf(cmd.Target)
		if err != nil {
			return err
		}

		r.target = target

	case pulse.ClearRenderTargetCommand:
		if r.target == nil {
			return pulse.ErrNoRenderTarget
		}

		if err := r.endPass(); err != nil {
			return err
		}

		r.beginPass(&cmd)

	case pulse.DrawRenderersCommand:
		if r.target == nil {
			return pulse.ErrNoRenderTarget
		}

		if r.pass == nil {
			r.beginPass(nil)
		}

		for _, draw := range cmd.Draws {
			if err := r.draw(draw); err != nil {
				return fmt.Errorf("draw %s: %w", draw.Renderable, err)
			}
		}

	case pulse.BeginSampleCommand:
		slog.Debug("Begin sample", slog.String("name", cmd.Name))

	case pulse.EndSampleCommand:
		slog.Debug("End sample", slog.String("name", cmd.Name))

	case pulse.SetGlobalTextureCommand:
		// publication is handled by the render context

	default:
		slog.Warn("Ignore unknown command", slog.String("command", cmd.String()))
	}

	return nil
}

// beginPass starts a render pass on the current target. The attachments are
// cleared as requested by clearCmd, everything else is loaded.
func (r *recording) beginPass(clearCmd *pulse.ClearRenderTargetCommand) {
	colorAttachment := wgpu.RenderPassColorAttachment{
		View:    r.target.Color.ToWGPUTextureView(),
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}

	if clearCmd != nil && clearCmd.Flags.Has(pulse.ClearColor) {
		colorAttachment.LoadOp = wgpu.LoadOpClear
		colorAttachment.ClearValue = wgpu.Color{
			R: float64(clearCmd.Color.R),
			G: float64(clearCmd.Color.G),
			B: float64(clearCmd.Color.B),
			A: float64(clearCmd.Color.A),
		}
	}

	desc := &wgpu.RenderPassDescriptor{
		Label:            "RenderPassDraw",
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment},
	}

	if r.target.Depth != nil {
		depthAttachment := &wgpu.RenderPassDepthStencilAttachment{
			View:         r.target.Depth.ToWGPUTextureView(),
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}

		if clearCmd != nil && clearCmd.Flags.Has(pulse.ClearDepth) {
			depthAttachment.DepthLoadOp = wgpu.LoadOpClear
			depthAttachment.DepthClearValue = clearCmd.Depth
		}

		desc.DepthStencilAttachment = depthAttachment
	}

	r.pass = r.encoder.BeginRenderPass(desc)
}

func (r *recording) endPass() error {
	if r.pass == nil {
		return nil
	}

	pass := r.pass
	r.pass = nil

	// must release pass before finishing the encoder
	defer pass.Release()

	return pass.End()
}

// abort ends an open pass after an error, the encoder is discarded anyways.
func (r *recording) abort() {
	if r.pass != nil {
		_ = r.endPass()
	}
}

func (r *recording) draw(draw pulse.DrawCall) error {
	uniformOffset := r.drawIndex * uniformAlignment
	r.drawIndex++

	buffers, err := r.backend.meshes.Get(draw.Renderable.Mesh)
	if err != nil {
		return fmt.Errorf("upload mesh: %w", err)
	}

	pc, err := r.backend.pipelines.Get(newDrawPipelineConfig(draw.Pass, r.target))
	if err != nil {
		return fmt.Errorf("get pipeline: %w", err)
	}

	bindGroup, err := r.backend.ctx.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: pc.Uniforms,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  r.backend.uniforms,
				Offset:  uniformOffset,
				Size:    uint64(unsafe.Sizeof(DrawUniforms{})),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}

	r.bindGroups = append(r.bindGroups, bindGroup)

	r.pass.SetPipeline(pc.Pipeline)
	r.pass.SetBindGroup(0, bindGroup, nil)
	r.pass.SetVertexBuffer(0, buffers.vertices, 0, wgpu.WholeSize)
	r.pass.SetIndexBuffer(buffers.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	r.pass.DrawIndexed(buffers.indexCount, 1, 0, 0, 0)

	return nil
}

func (r *recording) releaseBindGroups() {
	for _, bindGroup := range r.bindGroups {
		bindGroup.Release()
	}

	r.bindGroups = nil
}
