package geometry

import (
	"github.com/achilleasa/polaris-accel/types"
	"github.com/chewxy/math32"
)

// Frame is an orthonormal basis; N is the normal and S, T span the tangent
// plane.
type Frame struct {
	S types.Vec3
	T types.Vec3
	N types.Vec3
}

// Build a frame around the normal n, which must be normalized.
func NewFrame(n types.Vec3) Frame {
	var c types.Vec3
	if math32.Abs(n[0]) > math32.Abs(n[1]) {
		invLen := 1.0 / math32.Sqrt(n[0]*n[0]+n[2]*n[2])
		c = types.Vec3{n[2] * invLen, 0, -n[0] * invLen}
	} else {
		invLen := 1.0 / math32.Sqrt(n[1]*n[1]+n[2]*n[2])
		c = types.Vec3{0, n[2] * invLen, -n[1] * invLen}
	}

	return Frame{
		S: c.Cross(n),
		T: c,
		N: n,
	}
}

// Express world-space vector v in this frame.
func (f Frame) ToLocal(v types.Vec3) types.Vec3 {
	return types.Vec3{v.Dot(f.S), v.Dot(f.T), v.Dot(f.N)}
}

// Express local vector v in world space.
func (f Frame) ToWorld(v types.Vec3) types.Vec3 {
	return f.S.Mul(v[0]).Add(f.T.Mul(v[1])).Add(f.N.Mul(v[2]))
}
