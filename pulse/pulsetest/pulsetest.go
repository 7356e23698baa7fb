// Package pulsetest provides a recording backend and scene fixtures
// for tests of passes and renderers.
package pulsetest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/oliverbestmann/prepass/pulse"
	"github.com/oliverbestmann/prepass/pulse/raster"
)

// Recorder is a pulse.Backend that remembers every submission before
// handing it to its delegate.
type Recorder struct {
	Delegate pulse.Backend

	// if set, AllocateTarget fails with this error
	FailAllocations error

	mu          sync.Mutex
	submissions [][]pulse.Command
	allocations []pulse.RenderTargetDescriptor
}

// NewRecorder records submissions and executes them on a raster.Backend.
func NewRecorder() *Recorder {
	return &Recorder{Delegate: raster.New()}
}

func (r *Recorder) AllocateTarget(name string, desc pulse.RenderTargetDescriptor) (pulse.TargetStorage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAllocations != nil {
		return nil, fmt.Errorf("allocate %q: %w", name, r.FailAllocations)
	}

	r.allocations = append(r.allocations, desc)

	return r.Delegate.AllocateTarget(name, desc)
}

func (r *Recorder) Execute(ctx context.Context, frame pulse.FrameParams, commands []pulse.Command) error {
	r.mu.Lock()
	r.submissions = append(r.submissions, slices.Clone(commands))
	r.mu.Unlock()

	return r.Delegate.Execute(ctx, frame, commands)
}

// Submissions returns the commands of each Execute call.
func (r *Recorder) Submissions() [][]pulse.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.submissions)
}

// Commands returns all executed commands in order.
func (r *Recorder) Commands() []pulse.Command {
	var commands []pulse.Command
	for _, submission := range r.Submissions() {
		commands = append(commands, submission...)
	}

	return commands
}

// Draws returns all executed draw calls in order.
func (r *Recorder) Draws() []pulse.DrawCall {
	var draws []pulse.DrawCall
	for _, cmd := range r.Commands() {
		if draw, ok := cmd.(pulse.DrawRenderersCommand); ok {
			draws = append(draws, draw.Draws...)
		}
	}

	return draws
}

// Allocations returns the descriptors of all successful allocations.
func (r *Recorder) Allocations() []pulse.RenderTargetDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.allocations)
}

// Reset forgets all recorded submissions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.submissions = nil
}

// Index returns the position of the first command matching the predicate,
// or -1 if none matches.
func Index(commands []pulse.Command, predicate func(pulse.Command) bool) int {
	return slices.IndexFunc(commands, predicate)
}

func IsClear(cmd pulse.Command) bool {
	_, ok := cmd.(pulse.ClearRenderTargetCommand)
	return ok
}

func IsDraw(cmd pulse.Command) bool {
	_, ok := cmd.(pulse.DrawRenderersCommand)
	return ok
}

// LitShader is a typical opaque shader with a forward and a depth only pass.
func LitShader() *pulse.Shader {
	return &pulse.Shader{
		Name:        "Lit",
		RenderQueue: pulse.RenderQueueGeometry,
		Passes: []pulse.ShaderPass{
			{Tag: "UniversalForward", Fragment: solid(glm.Vec4f{1, 0, 0, 1})},
			{Tag: "DepthOnly", Fragment: solid(glm.Vec4f{0, 0, 0, 0})},
		},
	}
}

// TransparentShader is a blended shader, drawn in the transparent queue.
// It also provides a depth only pass, filtering must exclude it by queue.
func TransparentShader() *pulse.Shader {
	return &pulse.Shader{
		Name:        "Transparent",
		RenderQueue: pulse.RenderQueueTransparent,
		Passes: []pulse.ShaderPass{
			{Tag: "UniversalForward", Fragment: solid(glm.Vec4f{0, 0, 1, 0.5})},
			{Tag: "DepthOnly", Fragment: solid(glm.Vec4f{0, 0, 0, 0})},
		},
	}
}

func solid(color glm.Vec4f) pulse.FragmentFunc {
	return func(pulse.Fragment) glm.Vec4f { return color }
}

// Scene builds n opaque and m transparent cubes placed in a row along the
// negative z axis, in front of a camera at the origin looking along -z.
func Scene(opaque, transparent int) pulse.CullingResults {
	litMaterial, _ := pulse.NewMaterial("Lit", LitShader())
	transparentMaterial, _ := pulse.NewMaterial("Glass", TransparentShader())

	cube := pulse.NewCube(1)

	var visible []*pulse.Renderable

	for idx := range opaque + transparent {
		material := litMaterial
		name := fmt.Sprintf("Opaque%d", idx)

		if idx >= opaque {
			material = transparentMaterial
			name = fmt.Sprintf("Transparent%d", idx-opaque)
		}

		visible = append(visible, &pulse.Renderable{
			Name:         name,
			Mesh:         cube,
			Material:     material,
			LocalToWorld: glm.TranslationMat4(float32(idx%3-1)*1.5, 0, -4-float32(idx)),
		})
	}

	return pulse.CullingResults{Visible: visible}
}

// FrameParams returns camera parameters of a camera at the origin looking
// along the negative z axis.
func FrameParams(width, height uint32) pulse.FrameParams {
	aspect := float32(width) / float32(height)

	return pulse.FrameParams{
		View:       glm.IdentityMat4[float32](),
		Projection: glm.Perspective[float32](glm.DegToRad(60), aspect, 0.1, 100),
		Near:       0.1,
		Far:        100,
	}
}
