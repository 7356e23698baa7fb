package glm

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/mobile/exp/f32"
)

type float interface {
	constraints.Float
}

type numeric interface {
	constraints.Float | constraints.Integer
}

// Numeric is the set of element types usable in vectors and matrices.
type Numeric = numeric

// Rad is an angle in radians.
type Rad float32

// Sincos returns the sine and cosine of the angle in single precision.
func (r Rad) Sincos() (sin, cos float32) {
	return f32.Sin(float32(r)), f32.Cos(float32(r))
}

func abs[T numeric](value T) T {
	if value < 0 {
		return -value
	}

	return value
}
