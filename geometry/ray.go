package geometry

import (
	"github.com/achilleasa/polaris-accel/types"
	"github.com/chewxy/math32"
)

// Epsilon is the default lower bound of a ray segment; it keeps secondary
// rays from re-hitting the surface they were spawned from.
const Epsilon = 1e-4

// Ray is a parametric ray segment O + t*D with t in [MinT, MaxT]. DRcp caches
// the component-wise reciprocal of D and must be refreshed with Update
// whenever D changes.
type Ray struct {
	O    types.Vec3
	D    types.Vec3
	DRcp types.Vec3

	MinT float32
	MaxT float32
}

// Create an unbounded ray starting at o along direction d.
func NewRay(o, d types.Vec3) Ray {
	return NewSegment(o, d, Epsilon, math32.Inf(1))
}

// Create a ray segment covering [mint, maxt].
func NewSegment(o, d types.Vec3, mint, maxt float32) Ray {
	r := Ray{O: o, D: d, MinT: mint, MaxT: maxt}
	r.Update()
	return r
}

// Recompute the cached reciprocal direction.
func (r *Ray) Update() {
	r.DRcp = r.D.Inv()
}

// Get the point at parametric distance t.
func (r *Ray) At(t float32) types.Vec3 {
	return r.O.Add(r.D.Mul(t))
}
