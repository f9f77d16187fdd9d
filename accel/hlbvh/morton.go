package hlbvh

import (
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/types"
	"golang.org/x/exp/constraints"
)

const (
	// Bits per axis and total bits of a Morton code.
	mortonBits      = 10
	mortonCodeBits  = 3 * mortonBits
	mortonScale     = 1 << mortonBits
	mortonMaxCoord  = mortonScale - 1
	treeletBits     = 12
	treeletMask     = ((1 << treeletBits) - 1) << (mortonCodeBits - treeletBits)
	treeletFirstBit = mortonCodeBits - 1 - treeletBits
)

// Spread the low 10 bits of x so that two zero bits separate consecutive
// bits. A value of 1024 is clamped to 1023.
func leftShift3(x uint32) uint32 {
	if x > mortonScale {
		panic("hlbvh: morton coordinate out of range")
	}
	if x == mortonScale {
		x = mortonMaxCoord
	}

	x = (x | (x << 16)) & 0x030000FF // ---- --98 ---- ---- ---- ---- 7654 3210
	x = (x | (x << 8)) & 0x0300F00F  // ---- --98 ---- ---- 7654 ---- ---- 3210
	x = (x | (x << 4)) & 0x030C30C3  // ---- --98 ---- 76-- --54 ---- 32-- --10
	x = (x | (x << 2)) & 0x09249249  // ---- 9--8 --7- -6-- 5--4 --3- -2-- 1--0
	return x
}

// Interleave the bits of a point whose coordinates lie in [0, 1024].
func encodeMorton3(v types.Vec3) uint32 {
	return (leftShift3(uint32(v[2])) << 2) |
		(leftShift3(uint32(v[1])) << 1) |
		leftShift3(uint32(v[0]))
}

// Map p into the Morton grid spanned by bounds. Axes along which bounds are
// flat map to 0.
func mortonCode(p types.Vec3, bounds geometry.BBox) uint32 {
	extents := bounds.Extents()
	var v types.Vec3
	for axis := 0; axis < 3; axis++ {
		if extents[axis] > 0 {
			v[axis] = clamp((p[axis]-bounds.Min[axis])/extents[axis]*mortonScale, 0, mortonScale)
		}
	}
	return encodeMorton3(v)
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v > lo {
		if v < hi {
			return v
		}
		return hi
	}
	// Also catches NaN.
	return lo
}
