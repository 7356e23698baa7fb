package pulse

import (
	"errors"

	"github.com/oliverbestmann/prepass/glm"
)

// Well known render queue values. Lower queues are drawn first.
const (
	RenderQueueBackground  = 1000
	RenderQueueGeometry    = 2000
	RenderQueueAlphaTest   = 2450
	RenderQueueTransparent = 3000
	RenderQueueOverlay     = 4000

	// RenderQueueFromShader makes a Material use the queue of its Shader.
	// It is the zero value of Material.Queue.
	RenderQueueFromShader = 0
)

// PassTag identifies a sub program of a shader, e.g. "DepthOnly".
type PassTag string

// PassTagDefault is used for shader passes without an explicit tag.
const PassTagDefault PassTag = "SRPDefaultUnlit"

// Fragment holds the interpolated inputs of a single pixel.
type Fragment struct {
	// position and normal in view space. The camera looks along -z.
	ViewPosition glm.Vec3f
	ViewNormal   glm.Vec3f

	// distance from the camera divided by the far plane distance
	LinearDepth float32

	// depth value as written to the depth buffer, in [0, 1]
	Depth float32
}

// FragmentFunc is the CPU equivalent of a fragment shader entry point.
type FragmentFunc func(frag Fragment) glm.Vec4f

// CullMode selects the triangles discarded by their winding.
// Front faces are counter clockwise.
type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// ShaderPass is one program of a Shader.
type ShaderPass struct {
	Tag  PassTag
	Cull CullMode

	// WGSL source with a vertex and a fragment entry point
	Source        string
	VertexEntry   string
	FragmentEntry string

	// used by backends that execute on the CPU
	Fragment FragmentFunc
}

type Shader struct {
	Name        string
	RenderQueue int
	Passes      []ShaderPass
}

// Pass returns the first pass with the given tag.
func (s *Shader) Pass(tag PassTag) (*ShaderPass, bool) {
	for idx := range s.Passes {
		pass := &s.Passes[idx]

		passTag := pass.Tag
		if passTag == "" {
			passTag = PassTagDefault
		}

		if passTag == tag {
			return pass, true
		}
	}

	return nil, false
}

type Material struct {
	Name   string
	Shader *Shader

	// Queue overrides the queue of the shader. Leave it at zero to use the
	// queue of the shader.
	Queue int
}

func NewMaterial(name string, shader *Shader) (*Material, error) {
	if shader == nil {
		return nil, errors.New("material requires a shader")
	}

	return &Material{Name: name, Shader: shader}, nil
}

func (m *Material) RenderQueue() int {
	if m.Queue != RenderQueueFromShader {
		return m.Queue
	}

	return m.Shader.RenderQueue
}
