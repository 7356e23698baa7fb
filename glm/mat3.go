package glm

type Mat3[T numeric] [9]T

func IdentityMat3[T numeric]() Mat3[T] {
	return Mat3[T]{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

func (lhs Mat3[T]) Mul(rhs Mat3[T]) Mat3[T] {
	return Mat3[T]{
		lhs[0]*rhs[0] + lhs[3]*rhs[1] + lhs[6]*rhs[2],
		lhs[1]*rhs[0] + lhs[4]*rhs[1] + lhs[7]*rhs[2],
		lhs[2]*rhs[0] + lhs[5]*rhs[1] + lhs[8]*rhs[2],
		lhs[0]*rhs[3] + lhs[3]*rhs[4] + lhs[6]*rhs[5],
		lhs[1]*rhs[3] + lhs[4]*rhs[4] + lhs[7]*rhs[5],
		lhs[2]*rhs[3] + lhs[5]*rhs[4] + lhs[8]*rhs[5],
		lhs[0]*rhs[6] + lhs[3]*rhs[7] + lhs[6]*rhs[8],
		lhs[1]*rhs[6] + lhs[4]*rhs[7] + lhs[7]*rhs[8],
		lhs[2]*rhs[6] + lhs[5]*rhs[7] + lhs[8]*rhs[8],
	}
}

func (lhs Mat3[T]) Transform(rhs Vec3[T]) Vec3[T] {
	return Vec3[T]{
		lhs[0]*rhs[0] + lhs[3]*rhs[1] + lhs[6]*rhs[2],
		lhs[1]*rhs[0] + lhs[4]*rhs[1] + lhs[7]*rhs[2],
		lhs[2]*rhs[0] + lhs[5]*rhs[1] + lhs[8]*rhs[2],
	}
}

func (lhs Mat3[T]) Transpose() Mat3[T] {
	return Mat3[T]{
		lhs[0], lhs[3], lhs[6],
		lhs[1], lhs[4], lhs[7],
		lhs[2], lhs[5], lhs[8],
	}
}

func (lhs Mat3[T]) Determinant() T {
	return lhs[0]*(lhs[4]*lhs[8]-lhs[7]*lhs[5]) -
		lhs[3]*(lhs[1]*lhs[8]-lhs[7]*lhs[2]) +
		lhs[6]*(lhs[1]*lhs[5]-lhs[4]*lhs[2])
}

// Inverse returns the inverse of the matrix. The second return value
// is false if the matrix is singular.
func (lhs Mat3[T]) Inverse() (Mat3[T], bool) {
	det := lhs.Determinant()
	if float64(abs(det)) < 1e-12 {
		return Mat3[T]{}, false
	}

	inv := 1 / det

	return Mat3[T]{
		(lhs[4]*lhs[8] - lhs[5]*lhs[7]) * inv,
		(lhs[2]*lhs[7] - lhs[1]*lhs[8]) * inv,
		(lhs[1]*lhs[5] - lhs[2]*lhs[4]) * inv,
		(lhs[5]*lhs[6] - lhs[3]*lhs[8]) * inv,
		(lhs[0]*lhs[8] - lhs[2]*lhs[6]) * inv,
		(lhs[2]*lhs[3] - lhs[0]*lhs[5]) * inv,
		(lhs[3]*lhs[7] - lhs[4]*lhs[6]) * inv,
		(lhs[1]*lhs[6] - lhs[0]*lhs[7]) * inv,
		(lhs[0]*lhs[4] - lhs[1]*lhs[3]) * inv,
	}, true
}
