package depthnormals

import (
	"math"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/oliverbestmann/prepass/pulse"
)

// StereoScale spreads the stereographic projection of normals facing the
// camera over the full [0, 1] range.
const StereoScale = 1.7777

// MaxEncodableDepth is the largest depth EncodeFloatRG can encode into two
// 8 bit channels. Larger values are clamped to it.
const MaxEncodableDepth = 1 - 1.0/65025

// EncodeViewNormalStereo projects a unit length view space normal
// into [0, 1]². Normals pointing away from the camera are not supported.
func EncodeViewNormalStereo(n glm.Vec3f) glm.Vec2f {
	denom := max(n[2]+1, 1e-4) * StereoScale

	return glm.Vec2f{
		n[0]/denom*0.5 + 0.5,
		n[1]/denom*0.5 + 0.5,
	}
}

func DecodeViewNormalStereo(enc glm.Vec2f) glm.Vec3f {
	nn := glm.Vec3f{
		enc[0]*2*StereoScale - StereoScale,
		enc[1]*2*StereoScale - StereoScale,
		1,
	}

	g := 2 / nn.Dot(nn)

	return glm.Vec3f{g * nn[0], g * nn[1], g - 1}
}

// EncodeFloatRG splits a value in [0, 1) into two values that can each
// be stored in an 8 bit channel.
func EncodeFloatRG(value float32) glm.Vec2f {
	value = min(max(value, 0), MaxEncodableDepth)

	x := frac(value)
	y := frac(value * 255)

	return glm.Vec2f{x - y/255, y}
}

func DecodeFloatRG(enc glm.Vec2f) float32 {
	return enc[0] + enc[1]/255
}

// EncodeDepthNormal packs a linear depth in [0, 1] and a view space normal.
func EncodeDepthNormal(depth float32, normal glm.Vec3f) glm.Vec4f {
	n := EncodeViewNormalStereo(normal)
	d := EncodeFloatRG(depth)

	return glm.Vec4f{n[0], n[1], d[0], d[1]}
}

// DecodeDepthNormal returns the linear depth and the view space normal
// of an encoded texel.
func DecodeDepthNormal(enc glm.Vec4f) (depth float32, normal glm.Vec3f) {
	depth = DecodeFloatRG(glm.Vec2f{enc[2], enc[3]})
	normal = DecodeViewNormalStereo(glm.Vec2f{enc[0], enc[1]})
	return
}

// Fragment shades a fragment the same way the WGSL program does.
func Fragment(frag pulse.Fragment) glm.Vec4f {
	return EncodeDepthNormal(frag.LinearDepth, frag.ViewNormal.Normalize())
}

func frac(value float32) float32 {
	return value - float32(math.Floor(float64(value)))
}
