package gpu

import (
	_ "embed"
	"fmt"
	"log/slog"
	"structs"
	"unsafe"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/oliverbestmann/prepass/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

//go:embed unlit.wgsl
var unlitShaderCode string

// Vertex is the layout of the vertex buffers: position at location 0
// and normal at location 1.
type Vertex struct {
	_ structs.HostLayout

	Position glm.Vec3f
	Normal   glm.Vec3f
}

// DrawUniforms is bound at group 0, binding 0 for every draw.
type DrawUniforms struct {
	_ structs.HostLayout

	ModelView  glm.Mat4f
	Projection glm.Mat4f

	// inverse transpose of ModelView, the fourth column and row are unused
	Normal glm.Mat4f

	// near and far plane distance in x and y
	NearFar glm.Vec4f
}

// uniform buffer offsets must be aligned to this value
const uniformAlignment = 256

func uniformsOf(frame pulse.FrameParams, model glm.Mat4f) DrawUniforms {
	modelView := frame.View.Mul(model)
	n := glm.NormalMatrix(modelView)

	return DrawUniforms{
		ModelView:  modelView,
		Projection: frame.Projection,
		Normal: glm.Mat4Of([4][4]float32{
			{n[0], n[1], n[2], 0},
			{n[3], n[4], n[5], 0},
			{n[6], n[7], n[8], 0},
			{0, 0, 0, 1},
		}),
		NearFar: glm.Vec4f{frame.Near, frame.Far, 0, 0},
	}
}

type drawPipelineConfig struct {
	ShaderSource  string
	VertexEntry   string
	FragmentEntry string

	ColorFormat wgpu.TextureFormat

	// TextureFormatUndefined if the target has no depth attachment
	DepthFormat wgpu.TextureFormat

	SampleCount uint32
	Cull        pulse.CullMode
}

func newDrawPipelineConfig(pass *pulse.ShaderPass, target *Target) drawPipelineConfig {
	conf := drawPipelineConfig{
		ShaderSource:  pass.Source,
		VertexEntry:   pass.VertexEntry,
		FragmentEntry: pass.FragmentEntry,
		ColorFormat:   target.Color.Format(),
		SampleCount:   target.Color.SampleCount(),
		Cull:          pass.Cull,
	}

	if conf.ShaderSource == "" {
		conf.ShaderSource = unlitShaderCode
	}

	if conf.VertexEntry == "" {
		conf.VertexEntry = "vs_main"
	}

	if conf.FragmentEntry == "" {
		conf.FragmentEntry = "fs_main"
	}

	if target.Depth != nil {
		conf.DepthFormat = target.Depth.Format()
	}

	return conf
}

func (conf drawPipelineConfig) Specialize(dev *wgpu.Device) (*wgpu.RenderPipeline, error) {
	slog.Info(
		"Create RenderPipeline for draw",
		slog.Any("format", conf.ColorFormat),
		slog.Any("depthFormat", conf.DepthFormat),
		slog.Any("sampleCount", conf.SampleCount),
		slog.String("fragmentEntry", conf.FragmentEntry),
	)

	shader, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:      "Draw.ShaderSource",
		WGSLSource: &wgpu.ShaderSourceWGSL{Code: conf.ShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	defer shader.Release()

	var depthStencil *wgpu.DepthStencilState
	if conf.DepthFormat != wgpu.TextureFormatUndefined {
		depthStencil = depthStencilState(conf.DepthFormat)
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label: fmt.Sprintf("Draw.%s", conf.ColorFormat),
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: conf.VertexEntry,
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{
							// position
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         uint64(unsafe.Offsetof(Vertex{}.Position)),
							ShaderLocation: 0,
						},
						{
							// normal
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         uint64(unsafe.Offsetof(Vertex{}.Normal)),
							ShaderLocation: 1,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: conf.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    conf.ColorFormat,
					Blend:     nil,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullModeOf(conf.Cull),
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count:                  conf.SampleCount,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	}

	pipeline, err := dev.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("build draw pipeline: %w", err)
	}

	return pipeline, nil
}

func cullModeOf(mode pulse.CullMode) wgpu.CullMode {
	switch mode {
	case pulse.CullFront:
		return wgpu.CullModeFront
	case pulse.CullNone:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

// depthStencilState writes depth and keeps the fragment closest to the
// camera. The stencil buffer is never touched.
func depthStencilState(format wgpu.TextureFormat) *wgpu.DepthStencilState {
	keep := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}

	return &wgpu.DepthStencilState{
		Format:            format,
		DepthWriteEnabled: wgpu.OptionalBoolTrue,
		DepthCompare:      wgpu.CompareFunctionLess,
		StencilFront:      keep,
		StencilBack:       keep,
	}
}
