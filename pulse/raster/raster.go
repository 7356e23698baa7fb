// Package raster implements a pulse.Backend on the CPU. It rasterizes
// triangles with a depth test and shades them with the FragmentFunc of
// the shader pass. It is slow, deterministic and needs no GPU.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/oliverbestmann/prepass/pulse"
)

var ErrForeignTarget = errors.New("target was not allocated by the raster backend")
var ErrUnsupported = errors.New("unsupported by the raster backend")

// Stats counts the work done by a Backend.
type Stats struct {
	Submissions int
	DrawCalls   int
	Triangles   int
	Fragments   int
}

type Backend struct {
	mu    sync.Mutex
	stats Stats
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stats
}

func (b *Backend) AllocateTarget(name string, desc pulse.RenderTargetDescriptor) (pulse.TargetStorage, error) {
	if desc.SampleCount() > 1 {
		return nil, fmt.Errorf("target %q with %d samples: %w", name, desc.SampleCount(), ErrUnsupported)
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	n := int(desc.Width) * int(desc.Height)

	return &Target{
		desc:    desc,
		color:   make([]glm.Vec4f, n),
		depth:   make([]float32, n),
		stencil: make([]uint8, n),
	}, nil
}

func (b *Backend) Execute(ctx context.Context, frame pulse.FrameParams, commands []pulse.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.Submissions++

	var current *Target

	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch cmd := cmd.(type) {
		case pulse.SetRenderTargetCommand:
			target, ok := cmd.Target.Storage().(*Target)
			if !ok {
				return fmt.Errorf("bind %s: %w", cmd.Target, ErrForeignTarget)
			}

			current = target

		case pulse.ClearRenderTargetCommand:
			if current == nil {
				return pulse.ErrNoRenderTarget
			}

			current.clear(cmd)

		case pulse.DrawRenderersCommand:
			if current == nil {
				return pulse.ErrNoRenderTarget
			}

			for _, draw := range cmd.Draws {
				if err := b.draw(current, frame, draw); err != nil {
					return err
				}
			}

		case pulse.BeginSampleCommand, pulse.EndSampleCommand, pulse.SetGlobalTextureCommand:
			// nothing to execute

		default:
			slog.Warn("Ignore unknown command", slog.String("command", cmd.String()))
		}
	}

	return nil
}

// Target is the storage of a render target on the CPU.
type Target struct {
	desc pulse.RenderTargetDescriptor

	color   []glm.Vec4f
	depth   []float32
	stencil []uint8
}

func (t *Target) Release() {
	t.color = nil
	t.depth = nil
	t.stencil = nil
}

func (t *Target) Width() int {
	return int(t.desc.Width)
}

func (t *Target) Height() int {
	return int(t.desc.Height)
}

// At returns the color value at the given pixel.
func (t *Target) At(x, y int) glm.Vec4f {
	return t.color[y*t.Width()+x]
}

// DepthAt returns the depth buffer value at the given pixel.
func (t *Target) DepthAt(x, y int) float32 {
	return t.depth[y*t.Width()+x]
}

func (t *Target) StencilAt(x, y int) uint8 {
	return t.stencil[y*t.Width()+x]
}

// Image converts the color attachment into 8 bit rgba.
func (t *Target) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.Width(), t.Height()))

	for y := range t.Height() {
		for x := range t.Width() {
			img.SetRGBA(x, y, pulse.ColorOf(t.At(x, y)).ToRGBA8())
		}
	}

	return img
}

// StorageOf returns the raster storage of a target allocated by this backend.
func StorageOf(target *pulse.RenderTarget) (*Target, error) {
	storage, ok := target.Storage().(*Target)
	if !ok {
		return nil, fmt.Errorf("%s: %w", target, ErrForeignTarget)
	}

	return storage, nil
}

func (t *Target) clear(cmd pulse.ClearRenderTargetCommand) {
	if cmd.Flags.Has(pulse.ClearColor) {
		value := t.store(cmd.Color.ToVec())
		for idx := range t.color {
			t.color[idx] = value
		}
	}

	if cmd.Flags.Has(pulse.ClearDepth) && t.desc.DepthBits > 0 {
		for idx := range t.depth {
			t.depth[idx] = cmd.Depth
		}
	}

	if cmd.Flags.Has(pulse.ClearStencil) {
		for idx := range t.stencil {
			t.stencil[idx] = uint8(cmd.Stencil)
		}
	}
}

// store converts a color to the precision of the color format.
func (t *Target) store(color glm.Vec4f) glm.Vec4f {
	switch t.desc.ColorFormat {
	case pulse.FormatRGBA8Unorm, pulse.FormatBGRA8Unorm:
		rgba := pulse.ColorOf(color).ToRGBA8()
		return glm.Vec4f{
			float32(rgba.R) / 255,
			float32(rgba.G) / 255,
			float32(rgba.B) / 255,
			float32(rgba.A) / 255,
		}

	default:
		return color
	}
}

type vertex struct {
	viewPos    glm.Vec3f
	viewNormal glm.Vec3f

	// screen space position, depth and 1/w
	screen glm.Vec2f
	depth  float32
	invW   float32
}

func (b *Backend) draw(target *Target, frame pulse.FrameParams, draw pulse.DrawCall) error {
	mesh := draw.Renderable.Mesh
	if err := mesh.Validate(); err != nil {
		return fmt.Errorf("draw %s: %w", draw.Renderable, err)
	}

	b.stats.DrawCalls++

	modelView := frame.View.Mul(draw.Model)
	normalMatrix := glm.NormalMatrix(modelView)

	width, height := float32(target.Width()), float32(target.Height())

	vertices := make([]vertex, len(mesh.Positions))
	for idx, pos := range mesh.Positions {
		viewPos := modelView.TransformPoint(pos)
		clip := frame.Projection.Transform(viewPos.Extend(1))

		v := vertex{
			viewPos:    viewPos,
			viewNormal: normalMatrix.Transform(mesh.Normals[idx]).Normalize(),
			invW:       1 / clip[3],
		}

		if clip[3] > 0 {
			ndc := clip.PerspectiveDivide()
			v.screen = glm.Vec2f{
				(ndc[0]*0.5 + 0.5) * width,
				(0.5 - ndc[1]*0.5) * height,
			}

			v.depth = ndc[2]
		}

		vertices[idx] = v
	}

	for idx := 0; idx+2 < len(mesh.Indices); idx += 3 {
		v0 := vertices[mesh.Indices[idx]]
		v1 := vertices[mesh.Indices[idx+1]]
		v2 := vertices[mesh.Indices[idx+2]]

		// triangles crossing the near plane are not clipped but rejected
		near := frame.Near * 0.999
		if -v0.viewPos[2] < near || -v1.viewPos[2] < near || -v2.viewPos[2] < near {
			continue
		}

		b.stats.Triangles++
		b.rasterize(target, frame, draw.Pass, v0, v1, v2)
	}

	return nil
}

func edge(a, b, p glm.Vec2f) float32 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func (b *Backend) rasterize(target *Target, frame pulse.FrameParams, pass *pulse.ShaderPass, v0, v1, v2 vertex) {
	area := edge(v0.screen, v1.screen, v2.screen)
	if area == 0 {
		return
	}

	// the y axis points down in screen space, so counter clockwise
	// triangles end up with a negative area.
	frontFacing := area < 0

	switch pass.Cull {
	case pulse.CullBack:
		if !frontFacing {
			return
		}
	case pulse.CullFront:
		if frontFacing {
			return
		}
	}

	minX := max(0, int(math.Floor(float64(min(v0.screen[0], v1.screen[0], v2.screen[0])))))
	maxX := min(target.Width()-1, int(math.Ceil(float64(max(v0.screen[0], v1.screen[0], v2.screen[0])))))
	minY := max(0, int(math.Floor(float64(min(v0.screen[1], v1.screen[1], v2.screen[1])))))
	maxY := min(target.Height()-1, int(math.Ceil(float64(max(v0.screen[1], v1.screen[1], v2.screen[1])))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := glm.Vec2f{float32(x) + 0.5, float32(y) + 0.5}

			w0 := edge(v1.screen, v2.screen, p) / area
			w1 := edge(v2.screen, v0.screen, p) / area
			w2 := edge(v0.screen, v1.screen, p) / area

			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			depth := w0*v0.depth + w1*v1.depth + w2*v2.depth
			if depth < 0 || depth > 1 {
				continue
			}

			idx := y*target.Width() + x
			if target.desc.DepthBits > 0 {
				if depth >= target.depth[idx] {
					continue
				}

				target.depth[idx] = depth
			}

			// perspective correct interpolation of the view space attributes
			p0, p1, p2 := w0*v0.invW, w1*v1.invW, w2*v2.invW
			norm := 1 / (p0 + p1 + p2)
			p0, p1, p2 = p0*norm, p1*norm, p2*norm

			viewPos := v0.viewPos.MulScalar(p0).
				Add(v1.viewPos.MulScalar(p1)).
				Add(v2.viewPos.MulScalar(p2))

			viewNormal := v0.viewNormal.MulScalar(p0).
				Add(v1.viewNormal.MulScalar(p1)).
				Add(v2.viewNormal.MulScalar(p2)).
				Normalize()

			frag := pulse.Fragment{
				ViewPosition: viewPos,
				ViewNormal:   viewNormal,
				LinearDepth:  -viewPos[2] / frame.Far,
				Depth:        depth,
			}

			b.stats.Fragments++

			color := glm.Vec4f{1, 1, 1, 1}
			if pass.Fragment != nil {
				color = pass.Fragment(frag)
			}

			target.color[idx] = target.store(color)
		}
	}
}
