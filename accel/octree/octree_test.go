package octree

import (
	"testing"

	"github.com/achilleasa/polaris-accel/accel/acceltest"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/scene"
	"github.com/achilleasa/polaris-accel/types"
)

func buildOctree(t *testing.T, opts Options, meshes ...*scene.Mesh) *Octree {
	t.Helper()
	o := New(opts)
	for _, mesh := range meshes {
		if err := o.AddMesh(mesh); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.Build(); err != nil {
		t.Fatal(err)
	}
	return o
}

func TestUnitTriangle(t *testing.T) {
	o := buildOctree(t, Options{}, acceltest.UnitTriangle())

	ray := geometry.NewRay(types.Vec3{0.2, 0.2, 1}, types.Vec3{0, 0, -1})
	var its scene.Intersection
	if !o.RayIntersect(ray, &its, false) {
		t.Fatal("expected ray to hit the unit triangle")
	}
	if its.T != 1 {
		t.Fatalf("expected t = 1; got %f", its.T)
	}
	if its.UV != (types.Vec2{0.2, 0.2}) {
		t.Fatalf("expected uv (0.2, 0.2); got %v", its.UV)
	}
	if !o.RayIntersect(ray, &its, true) {
		t.Fatal("expected shadow ray to be blocked")
	}
}

func TestSegmentEndingOnSurface(t *testing.T) {
	// Coincident copies overlap every octant so each copy is referenced
	// by several leaves.
	copies := make([]*scene.Mesh, 20)
	for i := range copies {
		copies[i] = acceltest.UnitTriangle()
	}

	specs := []struct {
		opts   Options
		meshes []*scene.Mesh
	}{
		{Options{}, copies[:1]},
		{Options{MaxPrimitives: 4, MaxDepth: 3}, copies},
	}

	segment := geometry.NewSegment(types.Vec3{0.2, 0.2, 1}, types.Vec3{0, 0, -1}, geometry.Epsilon, 1)
	for specIndex, spec := range specs {
		o := buildOctree(t, spec.opts, spec.meshes...)

		var its scene.Intersection
		if !o.RayIntersect(segment, &its, false) {
			t.Fatalf("[spec %d] expected segment ending on the triangle to hit", specIndex)
		}
		if its.T != 1 {
			t.Fatalf("[spec %d] expected t = 1; got %f", specIndex, its.T)
		}
		if int(its.MeshIndex) >= len(spec.meshes) {
			t.Fatalf("[spec %d] expected a registered mesh; got mesh %d", specIndex, its.MeshIndex)
		}
		if !o.RayIntersect(segment, &scene.Intersection{}, true) {
			t.Fatalf("[spec %d] expected segment ending on the triangle to be blocked", specIndex)
		}
	}
}

func TestEmptyScene(t *testing.T) {
	o := buildOctree(t, Options{})

	ray := geometry.NewRay(types.Vec3{0, 0, 0}, types.Vec3{0, 0, 1})
	if o.RayIntersect(ray, &scene.Intersection{}, false) || o.RayIntersect(ray, &scene.Intersection{}, true) {
		t.Fatal("expected queries against an empty octree to miss")
	}
	if stats := o.Stats(); stats.Nodes != 0 {
		t.Fatalf("expected no nodes; got %d", stats.Nodes)
	}
}

func TestAddMeshAfterBuild(t *testing.T) {
	o := buildOctree(t, Options{}, acceltest.UnitTriangle())
	if err := o.AddMesh(acceltest.UnitTriangle()); err != scene.ErrAlreadyBuilt {
		t.Fatalf("expected to get ErrAlreadyBuilt; got %v", err)
	}
	if err := o.Build(); err != scene.ErrAlreadyBuilt {
		t.Fatalf("expected a second build to fail with ErrAlreadyBuilt; got %v", err)
	}
}

func TestSplitShape(t *testing.T) {
	specs := []struct {
		opts   Options
		meshes []*scene.Mesh
	}{
		{Options{}, acceltest.RandomMeshes(2, 1000, 1)},
		{Options{MaxPrimitives: 4, MaxDepth: 4}, acceltest.RandomMeshes(1, 400, 2)},
		{Options{}, []*scene.Mesh{acceltest.StackedQuads(100)}},
		{Options{MaxDepth: 1}, acceltest.RandomMeshes(1, 100, 3)},
	}

	for specIndex, spec := range specs {
		o := buildOctree(t, spec.opts, spec.meshes...)
		stats := o.Stats()

		// Every split turns one leaf into ChildCount leaves.
		splits := (stats.Nodes - 1) / ChildCount
		if stats.Nodes != 1+ChildCount*splits || stats.Leaves != 1+(ChildCount-1)*splits {
			t.Fatalf("[spec %d] expected node and leaf counts to follow from %d splits; got %d nodes and %d leaves", specIndex, splits, stats.Nodes, stats.Leaves)
		}
		if stats.MaxDepth > uint32(o.opts.MaxDepth) {
			t.Fatalf("[spec %d] expected max depth <= %d; got %d", specIndex, o.opts.MaxDepth, stats.MaxDepth)
		}

		seen := make([]bool, o.Count())
		o.walkLeaves(func(box geometry.BBox, prims []uint32) {
			for _, prim := range prims {
				if !box.Overlaps(o.PrimBBox(prim)) {
					t.Fatalf("[spec %d] expected leaf %v to overlap primitive %d", specIndex, box, prim)
				}
				seen[prim] = true
			}
		})
		for prim, ok := range seen {
			if !ok {
				t.Fatalf("[spec %d] expected primitive %d to be referenced by a leaf", specIndex, prim)
			}
		}
		if stats.LeafPrimitives < o.Count() {
			t.Fatalf("[spec %d] expected at least %d primitive refs; got %d", specIndex, o.Count(), stats.LeafPrimitives)
		}
	}
}

func TestMaxDepthOneKeepsSingleLeaf(t *testing.T) {
	o := buildOctree(t, Options{MaxDepth: 1}, acceltest.RandomMeshes(1, 100, 3)...)
	if stats := o.Stats(); stats.Nodes != 1 || stats.LeafPrimitives != 100 {
		t.Fatalf("expected a single leaf with 100 primitives; got %d nodes and %d refs", stats.Nodes, stats.LeafPrimitives)
	}
}

func TestMatchesExhaustiveScan(t *testing.T) {
	specs := []Options{
		{},
		{MaxPrimitives: 4, MaxDepth: 6},
	}

	for specIndex, opts := range specs {
		meshes := acceltest.RandomMeshes(3, 600, 20)
		o := buildOctree(t, opts, meshes...)

		rays := acceltest.RandomRays(acceltest.SceneBounds(), 400, 21)
		if err := acceltest.CompareWithScan(o.PrimitiveSet, o, rays); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
	}
}

func TestMissPerformsNoPrimitiveTests(t *testing.T) {
	o := buildOctree(t, Options{}, acceltest.RandomMeshes(1, 300, 5)...)

	var counter acceltest.Counter
	o.SetIntersectHook(counter.Hook)
	counter.Reset()

	ray := geometry.NewRay(types.Vec3{50, 50, 50}, types.Vec3{1, 0, 0})
	if o.RayIntersect(ray, &scene.Intersection{}, false) {
		t.Fatal("expected ray to miss")
	}
	if counter.Tests != 0 {
		t.Fatalf("expected no primitive tests; got %d", counter.Tests)
	}
}

func TestMaxTIsMonotonic(t *testing.T) {
	o := buildOctree(t, Options{}, acceltest.RandomMeshes(2, 800, 6)...)

	var counter acceltest.Counter
	o.SetIntersectHook(counter.Hook)
	for rayIndex, ray := range acceltest.RandomRays(acceltest.SceneBounds(), 200, 7) {
		counter.Reset()
		o.RayIntersect(ray, &scene.Intersection{}, false)
		if counter.MaxTIncreased {
			t.Fatalf("[ray %d] expected maxT never to increase during traversal", rayIndex)
		}
	}
}
