package depthnormals

import (
	"math"
	"testing"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/oliverbestmann/prepass/pulse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNormals = []glm.Vec3f{
	{0, 0, 1},
	glm.Vec3f{1, 0, 1}.Normalize(),
	glm.Vec3f{0, -1, 1}.Normalize(),
	glm.Vec3f{0.3, 0.4, 0.5}.Normalize(),
	glm.Vec3f{-0.9, 0.2, 0.2}.Normalize(),
}

var testDepths = []float32{0, 0.001, 0.035, 0.25, 0.5, 0.7777, 0.999}

func TestEncodeDepthNormalRoundTrip(t *testing.T) {
	for _, normal := range testNormals {
		for _, depth := range testDepths {
			enc := EncodeDepthNormal(depth, normal)

			for _, value := range enc {
				require.GreaterOrEqual(t, value, float32(0))
				require.LessOrEqual(t, value, float32(1))
			}

			decodedDepth, decodedNormal := DecodeDepthNormal(enc)

			assert.InDelta(t, depth, decodedDepth, 1e-6)
			assertVecInDelta(t, normal, decodedNormal, 1e-4)
		}
	}
}

func TestEncodeDepthNormalSurvivesQuantization(t *testing.T) {
	for _, normal := range testNormals {
		for _, depth := range testDepths {
			rgba := pulse.ColorOf(EncodeDepthNormal(depth, normal)).ToRGBA8()

			enc := glm.Vec4f{
				float32(rgba.R) / 255,
				float32(rgba.G) / 255,
				float32(rgba.B) / 255,
				float32(rgba.A) / 255,
			}

			decodedDepth, decodedNormal := DecodeDepthNormal(enc)

			assert.InDelta(t, depth, decodedDepth, 1e-4)
			assertVecInDelta(t, normal, decodedNormal, 0.03)
		}
	}
}

func TestEncodeFloatRGClampsFarPlane(t *testing.T) {
	// one must not wrap around to zero
	assert.InDelta(t, MaxEncodableDepth, DecodeFloatRG(EncodeFloatRG(1)), 1e-6)
	assert.InDelta(t, MaxEncodableDepth, DecodeFloatRG(EncodeFloatRG(3)), 1e-6)
	assert.Equal(t, float32(0), DecodeFloatRG(EncodeFloatRG(-1)))
}

func TestDecodedNormalIsUnitLength(t *testing.T) {
	for x := float32(0); x <= 1; x += 0.125 {
		for y := float32(0); y <= 1; y += 0.125 {
			n := DecodeViewNormalStereo(glm.Vec2f{x, y})
			assert.InDelta(t, 1, n.Length(), 1e-5)
		}
	}
}

func TestEncodeViewNormalStereoFacingCamera(t *testing.T) {
	assert.Equal(t, glm.Vec2f{0.5, 0.5}, EncodeViewNormalStereo(glm.Vec3f{0, 0, 1}))

	// normals at a right angle to the view direction stay in range
	enc := EncodeViewNormalStereo(glm.Vec3f{1, 0, 0})
	assert.InDelta(t, 0.5+0.5/StereoScale, enc[0], 1e-6)
}

func TestFragmentUsesLinearDepth(t *testing.T) {
	frag := pulse.Fragment{
		ViewPosition: glm.Vec3f{0, 0, -5},
		ViewNormal:   glm.Vec3f{0, 0, 2},
		LinearDepth:  0.05,
		Depth:        0.9,
	}

	depth, normal := DecodeDepthNormal(Fragment(frag))

	assert.InDelta(t, 0.05, depth, 1e-6)
	assertVecInDelta(t, glm.Vec3f{0, 0, 1}, normal, 1e-5)
}

func assertVecInDelta(t *testing.T, expected, actual glm.Vec3f, delta float64) {
	t.Helper()

	for idx := range expected {
		if math.Abs(float64(expected[idx]-actual[idx])) > delta {
			assert.Failf(t, "vectors differ", "expected %v, got %v (delta %g)", expected, actual, delta)
			return
		}
	}
}
