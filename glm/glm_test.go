package glm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMat4InverseAffine(t *testing.T) {
	m := TranslationMat4[float32](1, 2, 3).
		RotateY(DegToRad(30)).
		Scale(2, 3, 4)

	inv, ok := m.InverseAffine()
	require.True(t, ok)

	identity := m.Mul(inv)
	for idx, value := range IdentityMat4[float32]() {
		assert.InDelta(t, value, identity[idx], 1e-4)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := Perspective[float32](DegToRad(60), 1, 0.5, 50)

	near := proj.Transform(Vec4f{0, 0, -0.5, 1}).PerspectiveDivide()
	far := proj.Transform(Vec4f{0, 0, -50, 1}).PerspectiveDivide()

	assert.InDelta(t, 0, near[2], 1e-5)
	assert.InDelta(t, 1, far[2], 1e-5)
}

func TestLookAtPutsTargetOnNegativeZ(t *testing.T) {
	view := LookAt(Vec3f{0, 0, 5}, Vec3f{0, 0, 0}, Vec3f{0, 1, 0})

	p := view.TransformPoint(Vec3f{0, 0, 0})
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, -5, p[2], 1e-5)
}

func TestNormalMatrixKeepsNormalsPerpendicular(t *testing.T) {
	// a plane tilted by 45 degrees, then stretched along x
	model := ScaleMat4[float32](4, 1, 1).RotateZ(Rad(math.Pi / 4))

	tangent := model.Upper3().Transform(Vec3f{1, 1, 0})
	normal := NormalMatrix(model).Transform(Vec3f{-1, 1, 0})

	assert.InDelta(t, 0, tangent.Dot(normal), 1e-3)
}

func TestMat3InverseOfSingular(t *testing.T) {
	_, ok := Mat3f{}.Inverse()
	assert.False(t, ok)
}
