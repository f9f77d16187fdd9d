package types

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestVec3MaxAxis(t *testing.T) {
	specs := []struct {
		in  Vec3
		exp int
	}{
		{Vec3{1, 0, 0}, 0},
		{Vec3{0, 2, 1}, 1},
		{Vec3{0, 2, 3}, 2},
		{Vec3{1, 1, 1}, 0},
		{Vec3{0, 5, 5}, 1},
	}

	for specIndex, spec := range specs {
		if got := spec.in.MaxAxis(); got != spec.exp {
			t.Fatalf("[spec %d] expected max axis %d; got %d", specIndex, spec.exp, got)
		}
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 0, 4}.Normalize()
	if !v.ApproxEqual(Vec3{0.6, 0, 0.8}) {
		t.Fatalf("expected normalized vector to be {0.6 0 0.8}; got %v", v)
	}

	zero := Vec3{}.Normalize()
	if zero != (Vec3{}) {
		t.Fatalf("expected zero vector to normalize to itself; got %v", zero)
	}
}

func TestVec3Inv(t *testing.T) {
	v := Vec3{2, -4, 0}.Inv()
	if v[0] != 0.5 || v[1] != -0.25 {
		t.Fatalf("expected {0.5 -0.25 +Inf}; got %v", v)
	}
	if !math32.IsInf(v[2], 1) {
		t.Fatalf("expected inverse of zero component to be +Inf; got %f", v[2])
	}
}

func TestMinMaxVec3(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, -2}

	if got := MinVec3(a, b); got != (Vec3{1, -1, -2}) {
		t.Fatalf("expected min {1 -1 -2}; got %v", got)
	}
	if got := MaxVec3(a, b); got != (Vec3{3, 5, -2}) {
		t.Fatalf("expected max {3 5 -2}; got %v", got)
	}
}

func TestQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2)
	got := q.Rotate(Vec3{1, 0, 0})
	if !got.ApproxEqual(Vec3{0, 1, 0}) {
		t.Fatalf("expected rotated vector {0 1 0}; got %v", got)
	}

	back := QuatFromAxisAngle(Vec3{0, 0, 1}, -math32.Pi/2).Rotate(got)
	if !back.ApproxEqual(Vec3{1, 0, 0}) {
		t.Fatalf("expected inverse rotation to restore {1 0 0}; got %v", back)
	}

	ident := QuatFromEuler(0, 0, 0)
	if v := ident.Rotate(Vec3{1, 2, 3}); !v.ApproxEqual(Vec3{1, 2, 3}) {
		t.Fatalf("expected identity rotation to leave vector unchanged; got %v", v)
	}
}
