package pulse

import (
	"cmp"
	"math"
	"slices"

	"github.com/oliverbestmann/prepass/glm"
)

// PerObjectData selects which per object data is bound for each draw.
type PerObjectData uint32

const (
	PerObjectLightProbe PerObjectData = 1 << iota
	PerObjectReflectionProbes
	PerObjectLightmaps
	PerObjectLightData
	PerObjectMotionVectors
	PerObjectLightIndices

	PerObjectNone PerObjectData = 0
)

// SortingCriteria flags control the order of the draw calls of a batch.
type SortingCriteria uint32

const (
	SortRenderQueue SortingCriteria = 1 << iota
	SortBackToFront
	SortQuantizedFrontToBack
	SortOptimizeStateChanges

	SortNone SortingCriteria = 0

	SortCommonOpaque      = SortRenderQueue | SortQuantizedFrontToBack | SortOptimizeStateChanges
	SortCommonTransparent = SortRenderQueue | SortBackToFront | SortOptimizeStateChanges
)

func (s SortingCriteria) Has(flag SortingCriteria) bool {
	return s&flag == flag
}

// DrawingSettings describe how the renderables matching a
// FilteringSettings are drawn.
type DrawingSettings struct {
	// renderables are drawn with the first of these passes their shader provides
	PassTags []PassTag

	Sorting       SortingCriteria
	PerObjectData PerObjectData

	// if set, every renderable is drawn using this material instead of its own
	OverrideMaterial *Material
}

func NewDrawingSettings(tag PassTag, sorting SortingCriteria) DrawingSettings {
	return DrawingSettings{
		PassTags: []PassTag{tag},
		Sorting:  sorting,
	}
}

// DrawCall is a single resolved draw of a renderable.
type DrawCall struct {
	Renderable *Renderable
	Material   *Material
	Pass       *ShaderPass
	PassTag    PassTag

	Model         glm.Mat4f
	PerObjectData PerObjectData

	// render queue of the renderables own material
	Queue int

	// view space distance of the bounds center along the view direction
	Depth float32
}

// BuildDrawCalls resolves the draw calls of all visible renderables
// matching the filter, in the order described by the settings.
func BuildDrawCalls(visible []*Renderable, view glm.Mat4f, far float32, drawing DrawingSettings, filtering FilteringSettings) []DrawCall {
	var draws []DrawCall

	for _, r := range visible {
		if !filtering.Matches(r) {
			continue
		}

		tag, ok := selectPassTag(r.Material.Shader, drawing.PassTags)
		if !ok {
			continue
		}

		material := r.Material
		pass, _ := material.Shader.Pass(tag)

		if drawing.OverrideMaterial != nil {
			material = drawing.OverrideMaterial
			pass = overridePass(material.Shader, tag)
			if pass == nil {
				continue
			}
		}

		center := view.TransformPoint(r.WorldBounds().Center())

		draws = append(draws, DrawCall{
			Renderable:    r,
			Material:      material,
			Pass:          pass,
			PassTag:       tag,
			Model:         r.LocalToWorld,
			PerObjectData: drawing.PerObjectData,
			Queue:         r.Material.RenderQueue(),
			Depth:         -center[2],
		})
	}

	SortDrawCalls(draws, drawing.Sorting, far)

	return draws
}

func selectPassTag(shader *Shader, tags []PassTag) (PassTag, bool) {
	for _, tag := range tags {
		if _, ok := shader.Pass(tag); ok {
			return tag, true
		}
	}

	return "", false
}

// overridePass picks the pass of an override shader. Shaders used as
// override are often single purpose, so the first pass is used if none
// matches the tag.
func overridePass(shader *Shader, tag PassTag) *ShaderPass {
	if pass, ok := shader.Pass(tag); ok {
		return pass
	}

	if len(shader.Passes) > 0 {
		return &shader.Passes[0]
	}

	return nil
}

// number of depth buckets used by SortQuantizedFrontToBack
const depthBuckets = 1024

// SortDrawCalls sorts the draw calls in place. The sort is stable, draws that
// compare equal keep their submission order.
func SortDrawCalls(draws []DrawCall, criteria SortingCriteria, far float32) {
	if criteria == SortNone {
		return
	}

	slices.SortStableFunc(draws, func(a, b DrawCall) int {
		if criteria.Has(SortRenderQueue) {
			if c := cmp.Compare(a.Queue, b.Queue); c != 0 {
				return c
			}
		}

		switch {
		case criteria.Has(SortBackToFront):
			if c := cmp.Compare(b.Depth, a.Depth); c != 0 {
				return c
			}

		case criteria.Has(SortQuantizedFrontToBack):
			if c := cmp.Compare(quantizeDepth(a.Depth, far), quantizeDepth(b.Depth, far)); c != 0 {
				return c
			}
		}

		if criteria.Has(SortOptimizeStateChanges) {
			if c := cmp.Compare(a.Material.Name, b.Material.Name); c != 0 {
				return c
			}

			if c := cmp.Compare(a.PassTag, b.PassTag); c != 0 {
				return c
			}
		}

		return 0
	})
}

func quantizeDepth(depth, far float32) int {
	if far <= 0 {
		return 0
	}

	normalized := min(max(depth/far, 0), 1)
	return int(math.Floor(float64(normalized) * depthBuckets))
}
