package pulse

import (
	"math"

	"github.com/oliverbestmann/prepass/glm"
)

// NewCube creates an axis aligned cube centered at the origin with
// flat shaded faces.
func NewCube(size float32) *Mesh {
	h := size / 2

	faces := []struct {
		normal glm.Vec3f
		u, v   glm.Vec3f
	}{
		{normal: glm.Vec3f{1, 0, 0}, u: glm.Vec3f{0, 0, -1}, v: glm.Vec3f{0, 1, 0}},
		{normal: glm.Vec3f{-1, 0, 0}, u: glm.Vec3f{0, 0, 1}, v: glm.Vec3f{0, 1, 0}},
		{normal: glm.Vec3f{0, 1, 0}, u: glm.Vec3f{1, 0, 0}, v: glm.Vec3f{0, 0, -1}},
		{normal: glm.Vec3f{0, -1, 0}, u: glm.Vec3f{1, 0, 0}, v: glm.Vec3f{0, 0, 1}},
		{normal: glm.Vec3f{0, 0, 1}, u: glm.Vec3f{1, 0, 0}, v: glm.Vec3f{0, 1, 0}},
		{normal: glm.Vec3f{0, 0, -1}, u: glm.Vec3f{-1, 0, 0}, v: glm.Vec3f{0, 1, 0}},
	}

	mesh := &Mesh{Name: "Cube"}

	for _, face := range faces {
		base := uint32(len(mesh.Positions))
		center := face.normal.MulScalar(h)

		for _, corner := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			pos := center.
				Add(face.u.MulScalar(corner[0] * h)).
				Add(face.v.MulScalar(corner[1] * h))

			mesh.Positions = append(mesh.Positions, pos)
			mesh.Normals = append(mesh.Normals, face.normal)
		}

		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}

	return mesh
}

// NewPlane creates a plane in the xz plane facing +y.
func NewPlane(width, depth float32) *Mesh {
	w, d := width/2, depth/2
	up := glm.Vec3f{0, 1, 0}

	return &Mesh{
		Name: "Plane",
		Positions: []glm.Vec3f{
			{-w, 0, d},
			{w, 0, d},
			{w, 0, -d},
			{-w, 0, -d},
		},
		Normals: []glm.Vec3f{up, up, up, up},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// NewUVSphere creates a sphere with the given number of segments around
// the y axis and rings from pole to pole.
func NewUVSphere(radius float32, segments, rings int) *Mesh {
	segments = max(segments, 3)
	rings = max(rings, 2)

	mesh := &Mesh{Name: "Sphere"}

	for ring := 0; ring <= rings; ring++ {
		theta := math.Pi * float64(ring) / float64(rings)

		for segment := 0; segment <= segments; segment++ {
			phi := 2 * math.Pi * float64(segment) / float64(segments)

			normal := glm.Vec3f{
				float32(math.Sin(theta) * math.Cos(phi)),
				float32(math.Cos(theta)),
				float32(-math.Sin(theta) * math.Sin(phi)),
			}

			mesh.Positions = append(mesh.Positions, normal.MulScalar(radius))
			mesh.Normals = append(mesh.Normals, normal)
		}
	}

	stride := uint32(segments + 1)
	for ring := range uint32(rings) {
		for segment := range uint32(segments) {
			a := ring*stride + segment
			b := a + stride

			mesh.Indices = append(mesh.Indices, a, b, a+1, a+1, b, b+1)
		}
	}

	return mesh
}

// NewHeightField creates a grid in the xz plane centered at the origin,
// displaced along y by the given height function.
func NewHeightField(width, depth float32, resolution int, height func(x, z float32) float32) *Mesh {
	resolution = max(resolution, 1)

	mesh := &Mesh{Name: "HeightField"}

	for row := 0; row <= resolution; row++ {
		z := depth * (float32(row)/float32(resolution) - 0.5)

		for col := 0; col <= resolution; col++ {
			x := width * (float32(col)/float32(resolution) - 0.5)
			mesh.Positions = append(mesh.Positions, glm.Vec3f{x, height(x, z), z})
		}
	}

	stride := uint32(resolution + 1)
	for row := range uint32(resolution) {
		for col := range uint32(resolution) {
			a := row*stride + col
			b := a + stride

			mesh.Indices = append(mesh.Indices, a, b, a+1, a+1, b, b+1)
		}
	}

	mesh.RecalculateNormals()

	return mesh
}
