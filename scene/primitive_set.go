package scene

import (
	"sort"

	"github.com/achilleasa/polaris-accel/accel/arena"
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/types"
)

// Cached per-triangle build data stored in the primitive arena.
type primitiveInfo struct {
	bbox     geometry.BBox
	centroid types.Vec3
}

// IntersectHook is invoked before every ray-triangle test with the global
// primitive index and the current upper bound of the ray segment.
type IntersectHook func(primitive uint32, maxT float32)

// PrimitiveSet concatenates the triangles of all registered meshes and
// addresses them with a single global index.
type PrimitiveSet struct {
	meshes []*Mesh

	// Cumulative triangle counts; offsets[0] is always 0 and
	// offsets[i+1]-offsets[i] is the triangle count of meshes[i].
	offsets []uint32

	bbox geometry.BBox

	// Per-mesh runs of cached triangle data.
	prims    *arena.Arena[primitiveInfo]
	primRefs []arena.Ref

	singleMesh bool
	sealed     bool

	hook IntersectHook
}

// Create an empty primitive set. If singleMesh is true, registering more
// than one mesh fails with ErrMultipleMeshes.
func NewPrimitiveSet(singleMesh bool) *PrimitiveSet {
	return &PrimitiveSet{
		offsets:    []uint32{0},
		bbox:       geometry.EmptyBBox(),
		prims:      arena.New[primitiveInfo](0),
		singleMesh: singleMesh,
	}
}

// Register a mesh. Meshes can only be added before the set is sealed.
func (s *PrimitiveSet) AddMesh(mesh *Mesh) error {
	if mesh == nil {
		return ErrNilMesh
	}
	if s.sealed {
		return ErrAlreadyBuilt
	}
	if s.singleMesh && len(s.meshes) > 0 {
		return ErrMultipleMeshes
	}

	count := mesh.TriangleCount()
	ref := s.prims.Alloc(int(count), false)
	run := s.prims.Slice(ref, int(count))
	for i := range run {
		run[i].bbox = mesh.TriangleBBox(uint32(i))
		run[i].centroid = mesh.Centroid(uint32(i))
		s.bbox = s.bbox.ExpandBox(run[i].bbox)
	}

	s.meshes = append(s.meshes, mesh)
	s.primRefs = append(s.primRefs, ref)
	s.offsets = append(s.offsets, s.offsets[len(s.offsets)-1]+count)
	return nil
}

// Prevent further mesh registrations.
func (s *PrimitiveSet) Seal() {
	s.sealed = true
}

// Returns true if the set has been sealed.
func (s *PrimitiveSet) Sealed() bool {
	return s.sealed
}

// Get the total number of triangles across all meshes.
func (s *PrimitiveSet) Count() uint32 {
	return s.offsets[len(s.offsets)-1]
}

// Get the registered meshes.
func (s *PrimitiveSet) Meshes() []*Mesh {
	return s.meshes
}

// Get the bounding box of all registered triangles.
func (s *PrimitiveSet) BBox() geometry.BBox {
	return s.bbox
}

// Get the number of bytes reserved for primitive storage.
func (s *PrimitiveSet) UsedMemory() uint64 {
	return s.prims.TotalAllocated()
}

// Install a hook that observes every ray-triangle test. It must be set
// before issuing queries and is not safe for concurrent queries unless the
// hook itself is.
func (s *PrimitiveSet) SetIntersectHook(hook IntersectHook) {
	s.hook = hook
}

// Map a global primitive index to the index of its mesh and the triangle
// index inside that mesh.
func (s *PrimitiveSet) FindMesh(index uint32) (meshIndex, local uint32) {
	// Find the first offset that is greater than index; the owning mesh
	// is the one right before it.
	pos := sort.Search(len(s.offsets), func(i int) bool {
		return s.offsets[i] > index
	})
	meshIndex = uint32(pos - 1)
	return meshIndex, index - s.offsets[meshIndex]
}

func (s *PrimitiveSet) info(index uint32) *primitiveInfo {
	meshIndex, local := s.FindMesh(index)
	return s.prims.At(s.primRefs[meshIndex].Add(int(local)))
}

// Get the bounding box of a primitive.
func (s *PrimitiveSet) PrimBBox(index uint32) geometry.BBox {
	return s.info(index).bbox
}

// Get the centroid of a primitive.
func (s *PrimitiveSet) Centroid(index uint32) types.Vec3 {
	return s.info(index).centroid
}

// Intersect a ray with a primitive. See Mesh.RayIntersect.
func (s *PrimitiveSet) Intersect(index uint32, ray *geometry.Ray) (hit bool, u, v, t float32) {
	if s.hook != nil {
		s.hook(index, ray.MaxT)
	}
	meshIndex, local := s.FindMesh(index)
	return s.meshes[meshIndex].RayIntersect(local, ray)
}

// Record a confirmed hit against a primitive. The surface attributes are
// computed separately by HitAttributes.
func (s *PrimitiveSet) SetHit(its *Intersection, index uint32, u, v, t float32) {
	meshIndex, local := s.FindMesh(index)
	its.T = t
	its.UV = types.Vec2{u, v}
	its.Mesh = s.meshes[meshIndex]
	its.MeshIndex = meshIndex
	its.Primitive = index
	its.Triangle = local
}

// Compute the hit position, texture coordinates and the geometric and
// shading frames for a hit recorded with SetHit.
func (s *PrimitiveSet) HitAttributes(its *Intersection) {
	mesh := its.Mesh
	f := mesh.F[its.Triangle]
	idx0, idx1, idx2 := f[0], f[1], f[2]
	p0, p1, p2 := mesh.V[idx0], mesh.V[idx1], mesh.V[idx2]

	b0 := 1 - its.UV[0] - its.UV[1]
	b1 := its.UV[0]
	b2 := its.UV[1]

	its.P = p0.Mul(b0).Add(p1.Mul(b1)).Add(p2.Mul(b2))

	if len(mesh.UV) > 0 {
		its.UV = mesh.UV[idx0].Mul(b0).Add(mesh.UV[idx1].Mul(b1)).Add(mesh.UV[idx2].Mul(b2))
	}

	its.GeoFrame = geometry.NewFrame(p1.Sub(p0).Cross(p2.Sub(p0)).Normalize())

	if len(mesh.N) > 0 {
		n := mesh.N[idx0].Mul(b0).Add(mesh.N[idx1].Mul(b1)).Add(mesh.N[idx2].Mul(b2))
		its.ShFrame = geometry.NewFrame(n.Normalize())
	} else {
		its.ShFrame = its.GeoFrame
	}
}
