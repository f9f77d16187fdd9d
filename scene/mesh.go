package scene

import (
	"github.com/achilleasa/polaris-accel/geometry"
	"github.com/achilleasa/polaris-accel/types"
)

// Determinant threshold below which a ray is considered parallel to a triangle.
const detEpsilon = 1e-8

// Mesh is an indexed triangle mesh. N and UV are optional; when present they
// hold one entry per vertex.
type Mesh struct {
	Name string

	// Vertex positions, normals and uv coordinates.
	V  []types.Vec3
	N  []types.Vec3
	UV []types.Vec2

	// Triangle vertex indices.
	F [][3]uint32
}

// Get the number of triangles in the mesh.
func (m *Mesh) TriangleCount() uint32 {
	return uint32(len(m.F))
}

// Get the bounding box of the whole mesh.
func (m *Mesh) BBox() geometry.BBox {
	bbox := geometry.EmptyBBox()
	for _, f := range m.F {
		bbox = bbox.ExpandPoint(m.V[f[0]]).ExpandPoint(m.V[f[1]]).ExpandPoint(m.V[f[2]])
	}
	return bbox
}

// Get the bounding box of a triangle.
func (m *Mesh) TriangleBBox(index uint32) geometry.BBox {
	f := m.F[index]
	return geometry.BBoxOf(m.V[f[0]], m.V[f[1]], m.V[f[2]])
}

// Get the centroid of a triangle.
func (m *Mesh) Centroid(index uint32) types.Vec3 {
	f := m.F[index]
	return m.V[f[0]].Add(m.V[f[1]]).Add(m.V[f[2]]).Mul(1.0 / 3.0)
}

// Get the surface area of a triangle.
func (m *Mesh) SurfaceArea(index uint32) float32 {
	f := m.F[index]
	p0 := m.V[f[0]]
	return 0.5 * m.V[f[1]].Sub(p0).Cross(m.V[f[2]].Sub(p0)).Len()
}

// Intersect a ray with a triangle using the Moller-Trumbore test. On a hit it
// returns the barycentric coordinates (u, v) of the second and third vertex
// and the hit distance t, which lies inside [ray.MinT, ray.MaxT].
func (m *Mesh) RayIntersect(index uint32, ray *geometry.Ray) (hit bool, u, v, t float32) {
	f := m.F[index]
	p0, p1, p2 := m.V[f[0]], m.V[f[1]], m.V[f[2]]

	edge1 := p1.Sub(p0)
	edge2 := p2.Sub(p0)

	pvec := ray.D.Cross(edge2)
	det := edge1.Dot(pvec)
	if det > -detEpsilon && det < detEpsilon {
		return false, 0, 0, 0
	}
	invDet := 1.0 / det

	tvec := ray.O.Sub(p0)
	u = tvec.Dot(pvec) * invDet
	if u < 0.0 || u > 1.0 {
		return false, 0, 0, 0
	}

	qvec := tvec.Cross(edge1)
	v = ray.D.Dot(qvec) * invDet
	if v < 0.0 || u+v > 1.0 {
		return false, 0, 0, 0
	}

	t = edge2.Dot(qvec) * invDet
	if t < ray.MinT || t > ray.MaxT {
		return false, 0, 0, 0
	}
	return true, u, v, t
}
