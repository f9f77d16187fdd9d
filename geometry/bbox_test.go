package geometry

import (
	"testing"

	"github.com/achilleasa/polaris-accel/types"
	"github.com/chewxy/math32"
)

func TestEmptyBBoxIsIdentity(t *testing.T) {
	empty := EmptyBBox()
	if empty.Valid() {
		t.Fatal("expected empty bbox to be invalid")
	}

	b := BBox{Min: types.Vec3{-1, 0, 2}, Max: types.Vec3{1, 3, 4}}
	if got := empty.ExpandBox(b); got != b {
		t.Fatalf("expected merging with the empty box to yield %v; got %v", b, got)
	}

	if area := empty.SurfaceArea(); area != 0 {
		t.Fatalf("expected empty bbox area to be 0; got %f", area)
	}
}

func TestBBoxSurfaceAreaAndAxis(t *testing.T) {
	b := BBoxOf(types.Vec3{0, 0, 0}, types.Vec3{1, 2, 3})
	if area := b.SurfaceArea(); area != 22 {
		t.Fatalf("expected surface area 22; got %f", area)
	}
	if axis := b.MajorAxis(); axis != 2 {
		t.Fatalf("expected major axis 2; got %d", axis)
	}
	if c := b.Center(); c != (types.Vec3{0.5, 1, 1.5}) {
		t.Fatalf("expected center {0.5 1 1.5}; got %v", c)
	}
}

func TestBBoxCorners(t *testing.T) {
	b := BBoxOf(types.Vec3{0, 0, 0}, types.Vec3{1, 2, 3})
	specs := []types.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 2, 0},
		{1, 2, 0},
		{0, 0, 3},
		{1, 0, 3},
		{0, 2, 3},
		{1, 2, 3},
	}

	for index, exp := range specs {
		if got := b.Corner(index); got != exp {
			t.Fatalf("[spec %d] expected corner %v; got %v", index, exp, got)
		}
	}
}

func TestBBoxOverlapAndDistance(t *testing.T) {
	a := BBoxOf(types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1})
	touching := BBoxOf(types.Vec3{1, 0, 0}, types.Vec3{2, 1, 1})
	apart := BBoxOf(types.Vec3{1.5, 0, 0}, types.Vec3{2, 1, 1})

	if !a.Overlaps(touching) {
		t.Fatal("expected touching boxes to overlap")
	}
	if a.Overlaps(apart) {
		t.Fatal("expected disjoint boxes not to overlap")
	}

	if d := a.DistanceTo(types.Vec3{0.5, 0.5, 0.5}); d != 0 {
		t.Fatalf("expected distance to inner point to be 0; got %f", d)
	}
	if d := a.DistanceTo(types.Vec3{4, 1, 5}); d != 5 {
		t.Fatalf("expected distance 5; got %f", d)
	}
}

func TestBBoxRayIntersect(t *testing.T) {
	b := BBoxOf(types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1})

	specs := []struct {
		ray   Ray
		hit   bool
		nearT float32
	}{
		{NewRay(types.Vec3{0.5, 0.5, 2}, types.Vec3{0, 0, -1}), true, 1},
		{NewRay(types.Vec3{-1, 0.5, 0.5}, types.Vec3{1, 0, 0}), true, 1},
		{NewRay(types.Vec3{0.5, 0.5, 2}, types.Vec3{0, 0, 1}), false, 0},
		{NewRay(types.Vec3{2, 2, 2}, types.Vec3{0, 0, -1}), false, 0},
		{NewSegment(types.Vec3{0.5, 0.5, 5}, types.Vec3{0, 0, -1}, 0, 2), false, 0},
		{NewRay(types.Vec3{0.5, 0.5, 0.5}, types.Vec3{1, 1, 1}), true, -0.5},
	}

	for specIndex, spec := range specs {
		hit, nearT, _ := b.RayIntersect(&spec.ray)
		if hit != spec.hit {
			t.Fatalf("[spec %d] expected hit to be %t; got %t", specIndex, spec.hit, hit)
		}
		if hit && math32.Abs(nearT-spec.nearT) > 1e-6 {
			t.Fatalf("[spec %d] expected nearT %f; got %f", specIndex, spec.nearT, nearT)
		}
	}

	empty := EmptyBBox()
	ray := NewRay(types.Vec3{0, 0, 0}, types.Vec3{0, 0, 1})
	if hit, _, _ := empty.RayIntersect(&ray); hit {
		t.Fatal("expected empty bbox never to be hit")
	}
}

func TestFrameIsOrthonormal(t *testing.T) {
	normals := []types.Vec3{
		{0, 0, 1},
		{1, 0, 0},
		types.Vec3{1, 2, 3}.Normalize(),
		types.Vec3{-5, 1, 0.2}.Normalize(),
	}

	for specIndex, n := range normals {
		f := NewFrame(n)
		if d := f.S.Dot(f.T); math32.Abs(d) > 1e-5 {
			t.Fatalf("[spec %d] expected S and T to be orthogonal; dot = %f", specIndex, d)
		}
		if d := f.S.Dot(f.N); math32.Abs(d) > 1e-5 {
			t.Fatalf("[spec %d] expected S and N to be orthogonal; dot = %f", specIndex, d)
		}
		if l := f.S.Len(); math32.Abs(l-1) > 1e-5 {
			t.Fatalf("[spec %d] expected unit length S; got %f", specIndex, l)
		}

		v := types.Vec3{0.3, -0.2, 0.9}
		if back := f.ToWorld(f.ToLocal(v)); !back.ApproxEqual(v) {
			t.Fatalf("[spec %d] expected local/world round trip to yield %v; got %v", specIndex, v, back)
		}
	}
}
