package geometry

import (
	"fmt"

	"github.com/achilleasa/polaris-accel/types"
	"github.com/chewxy/math32"
)

// BBox is an axis-aligned bounding box. A box whose min corner exceeds its
// max corner on any axis is invalid; EmptyBBox returns the invalid box that
// acts as the identity element for ExpandBox.
type BBox struct {
	Min types.Vec3
	Max types.Vec3
}

// Create an empty (invalid) bounding box.
func EmptyBBox() BBox {
	inf := math32.Inf(1)
	return BBox{
		Min: types.Vec3{inf, inf, inf},
		Max: types.Vec3{-inf, -inf, -inf},
	}
}

// Create a bounding box that encloses the supplied points.
func BBoxOf(points ...types.Vec3) BBox {
	b := EmptyBBox()
	for _, p := range points {
		b = b.ExpandPoint(p)
	}
	return b
}

// Returns true if min <= max on every axis.
func (b BBox) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Grow the box so it contains p.
func (b BBox) ExpandPoint(p types.Vec3) BBox {
	return BBox{
		Min: types.MinVec3(b.Min, p),
		Max: types.MaxVec3(b.Max, p),
	}
}

// Grow the box so it contains other.
func (b BBox) ExpandBox(other BBox) BBox {
	return BBox{
		Min: types.MinVec3(b.Min, other.Min),
		Max: types.MaxVec3(b.Max, other.Max),
	}
}

// Merge two boxes.
func Union(a, b BBox) BBox {
	return a.ExpandBox(b)
}

// Get the box center.
func (b BBox) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the box extents. Invalid boxes report zero extents.
func (b BBox) Extents() types.Vec3 {
	if !b.Valid() {
		return types.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Get the box surface area. Invalid boxes have zero area.
func (b BBox) SurfaceArea() float32 {
	d := b.Extents()
	return 2.0 * (d[0]*d[1] + d[0]*d[2] + d[1]*d[2])
}

// Get the index of the axis along which the box has the largest extent.
func (b BBox) MajorAxis() int {
	return b.Extents().MaxAxis()
}

// Get one of the 8 box corners. Bit 0 of index selects the max x coordinate,
// bit 1 the max y and bit 2 the max z.
func (b BBox) Corner(index int) types.Vec3 {
	var out types.Vec3
	for axis := 0; axis < 3; axis++ {
		if index&(1<<uint(axis)) != 0 {
			out[axis] = b.Max[axis]
		} else {
			out[axis] = b.Min[axis]
		}
	}
	return out
}

// Returns true if the two boxes overlap. Touching boxes overlap.
func (b BBox) Overlaps(other BBox) bool {
	for axis := 0; axis < 3; axis++ {
		if b.Max[axis] < other.Min[axis] || b.Min[axis] > other.Max[axis] {
			return false
		}
	}
	return true
}

// Returns true if p is inside the box (boundary included).
func (b BBox) ContainsPoint(p types.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if p[axis] < b.Min[axis] || p[axis] > b.Max[axis] {
			return false
		}
	}
	return true
}

// Returns true if other lies entirely inside the box. An invalid box is
// contained by every box.
func (b BBox) Contains(other BBox) bool {
	if !other.Valid() {
		return true
	}
	return b.ContainsPoint(other.Min) && b.ContainsPoint(other.Max)
}

// Get the squared distance between p and the closest point of the box.
func (b BBox) SquaredDistanceTo(p types.Vec3) float32 {
	var dist float32
	for axis := 0; axis < 3; axis++ {
		var d float32
		if p[axis] < b.Min[axis] {
			d = b.Min[axis] - p[axis]
		} else if p[axis] > b.Max[axis] {
			d = p[axis] - b.Max[axis]
		}
		dist += d * d
	}
	return dist
}

// Get the distance between p and the closest point of the box. Points inside
// the box have zero distance.
func (b BBox) DistanceTo(p types.Vec3) float32 {
	return math32.Sqrt(b.SquaredDistanceTo(p))
}

// Slab test against the ray segment [MinT, MaxT]. On a hit it also returns
// the parametric distances where the ray enters and leaves the box.
func (b BBox) RayIntersect(r *Ray) (hit bool, nearT, farT float32) {
	if !b.Valid() {
		return false, 0, 0
	}

	nearT = math32.Inf(-1)
	farT = math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		origin := r.O[axis]
		if r.D[axis] == 0 {
			if origin < b.Min[axis] || origin > b.Max[axis] {
				return false, 0, 0
			}
			continue
		}

		t1 := (b.Min[axis] - origin) * r.DRcp[axis]
		t2 := (b.Max[axis] - origin) * r.DRcp[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		if t1 > nearT {
			nearT = t1
		}
		if t2 < farT {
			farT = t2
		}
		if !(nearT <= farT) {
			return false, 0, 0
		}
	}

	return r.MinT <= farT && nearT <= r.MaxT, nearT, farT
}

func (b BBox) String() string {
	return fmt.Sprintf("[%v - %v]", b.Min, b.Max)
}
