package pulse

import (
	"fmt"
	"math"

	"github.com/oliverbestmann/prepass/glm"
)

// Mesh is an indexed triangle list with per vertex normals.
type Mesh struct {
	Name      string
	Positions []glm.Vec3f
	Normals   []glm.Vec3f
	Indices   []uint32
}

func (m *Mesh) Validate() error {
	if len(m.Positions) == 0 {
		return fmt.Errorf("%w %q: no vertices", ErrInvalidMesh, m.Name)
	}

	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("%w %q: %d normals for %d vertices",
			ErrInvalidMesh, m.Name, len(m.Normals), len(m.Positions))
	}

	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w %q: index count %d not a multiple of three",
			ErrInvalidMesh, m.Name, len(m.Indices))
	}

	for _, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			return fmt.Errorf("%w %q: index %d out of range", ErrInvalidMesh, m.Name, idx)
		}
	}

	return nil
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

func (m *Mesh) Bounds() Bounds {
	if len(m.Positions) == 0 {
		return Bounds{}
	}

	bounds := Bounds{Min: m.Positions[0], Max: m.Positions[0]}
	for _, pos := range m.Positions[1:] {
		bounds = bounds.Extend(pos)
	}

	return bounds
}

// RecalculateNormals computes smooth vertex normals by accumulating
// the area weighted face normals of all adjacent triangles.
func (m *Mesh) RecalculateNormals() {
	normals := make([]glm.Vec3f, len(m.Positions))

	for idx := 0; idx+2 < len(m.Indices); idx += 3 {
		a, b, c := m.Indices[idx], m.Indices[idx+1], m.Indices[idx+2]

		u := m.Positions[b].Sub(m.Positions[a])
		v := m.Positions[c].Sub(m.Positions[a])
		n := u.Cross(v)

		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}

	for idx := range normals {
		normals[idx] = normals[idx].Normalize()
	}

	m.Normals = normals
}

// Bounds is an axis aligned bounding box.
type Bounds struct {
	Min glm.Vec3f
	Max glm.Vec3f
}

func (b Bounds) Center() glm.Vec3f {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

func (b Bounds) Extend(point glm.Vec3f) Bounds {
	return Bounds{Min: b.Min.Min(point), Max: b.Max.Max(point)}
}

// Transform returns the bounding box of the eight transformed corners.
func (b Bounds) Transform(m glm.Mat4f) Bounds {
	inf := float32(math.Inf(1))
	result := Bounds{
		Min: glm.Vec3f{inf, inf, inf},
		Max: glm.Vec3f{-inf, -inf, -inf},
	}

	for corner := range 8 {
		point := glm.Vec3f{b.Min[0], b.Min[1], b.Min[2]}
		if corner&1 != 0 {
			point[0] = b.Max[0]
		}
		if corner&2 != 0 {
			point[1] = b.Max[1]
		}
		if corner&4 != 0 {
			point[2] = b.Max[2]
		}

		result = result.Extend(m.TransformPoint(point))
	}

	return result
}
