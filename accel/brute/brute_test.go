package brute

import (
	"testing"

	"github.com/achilleasa/polaris-accel/accel/acceltest"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
	"github.com/chewxy/math32"
)

func TestUnitTriangle(t *testing.T) {
	idx := New(Options{})
	if err := idx.AddMesh(acceltest.UnitTriangle()); err != nil {
		t.Fatal(err)
	}
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}

	ray := geometry.NewRay(types.Vec3{0.2, 0.2, 1}, types.Vec3{0, 0, -1})
	var its scene.Intersection
	if !idx.RayIntersect(ray, &its, false) {
		t.Fatal("expected ray to hit the unit triangle")
	}
	if its.T != 1 {
		t.Fatalf("expected t = 1; got %f", its.T)
	}
	if its.UV != (types.Vec2{0.2, 0.2}) {
		t.Fatalf("expected uv (0.2, 0.2); got %v", its.UV)
	}
	if exp := (types.Vec3{0.2, 0.2, 0}); !its.P.ApproxEqual(exp) {
		t.Fatalf("expected hit point %v; got %v", exp, its.P)
	}
}

func TestClosestHitAmongStackedQuads(t *testing.T) {
	idx := New(Options{})
	if err := idx.AddMesh(acceltest.StackedQuads(8)); err != nil {
		t.Fatal(err)
	}
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}

	// Quads sit at z = 0, 0.25, ..., 1.75. Shooting down from z = 10 must
	// report the top quad.
	ray := geometry.NewRay(types.Vec3{0.3, 0.6, 10}, types.Vec3{0, 0, -1})
	var its scene.Intersection
	if !idx.RayIntersect(ray, &its, false) {
		t.Fatal("expected ray to hit")
	}
	if exp := float32(10 - 1.75); math32.Abs(its.T-exp) > 1e-5 {
		t.Fatalf("expected t = %f; got %f", exp, its.T)
	}
	if its.Primitive/2 != 7 {
		t.Fatalf("expected a triangle of the top quad; got primitive %d", its.Primitive)
	}
}

func TestShadowStopsAtFirstHit(t *testing.T) {
	idx := New(Options{})
	if err := idx.AddMesh(acceltest.StackedQuads(8)); err != nil {
		t.Fatal(err)
	}
	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}

	var counter acceltest.Counter
	idx.SetIntersectHook(counter.Hook)
	counter.Reset()

	// The first triangle of the first quad is hit right away.
	ray := geometry.NewRay(types.Vec3{0.6, 0.3, -1}, types.Vec3{0, 0, 1})
	if !idx.RayIntersect(ray, &scene.Intersection{}, true) {
		t.Fatal("expected shadow ray to be blocked")
	}
	if counter.Tests != 1 {
		t.Fatalf("expected a single primitive test; got %d", counter.Tests)
	}
}

func TestSingleMesh(t *testing.T) {
	idx := New(Options{SingleMesh: true})
	if err := idx.AddMesh(acceltest.UnitTriangle()); err != nil {
		t.Fatal(err)
	}
	if err := idx.AddMesh(acceltest.UnitTriangle()); err != scene.ErrMultipleMeshes {
		t.Fatalf("expected to get ErrMultipleMeshes; got %v", err)
	}
}

func TestQueriesBeforeAndAfterBuild(t *testing.T) {
	idx := New(Options{})
	if err := idx.AddMesh(acceltest.UnitTriangle()); err != nil {
		t.Fatal(err)
	}

	ray := geometry.NewRay(types.Vec3{0.2, 0.2, 1}, types.Vec3{0, 0, -1})
	if idx.RayIntersect(ray, &scene.Intersection{}, false) {
		t.Fatal("expected queries before Build to miss")
	}

	if err := idx.Build(); err != nil {
		t.Fatal(err)
	}
	if err := idx.AddMesh(acceltest.UnitTriangle()); err != scene.ErrAlreadyBuilt {
		t.Fatalf("expected to get ErrAlreadyBuilt; got %v", err)
	}
	if stats := idx.Stats(); stats.Primitives != 1 || stats.Meshes != 1 {
		t.Fatalf("expected 1 primitive in 1 mesh; got %d in %d", stats.Primitives, stats.Meshes)
	}
}
