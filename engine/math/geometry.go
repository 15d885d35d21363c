package math

import (
	"github.com/chewxy/math32"
)

// GeometryGenerateNormals recomputes smooth per-vertex normals. Every triangle
// contributes its unnormalized face normal (so larger faces weigh more) to its
// three vertices; the sums are normalized at the end. Vertices not referenced
// by any triangle get a zero normal.
func GeometryGenerateNormals(positions []Vec3, indices []uint32) []Vec3 {
	normals := make([]Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])
		face := edge1.Cross(edge2)

		normals[i0] = normals[i0].Add(face)
		normals[i1] = normals[i1].Add(face)
		normals[i2] = normals[i2].Add(face)
	}
	for i := range normals {
		normals[i] = normals[i].Normalized()
	}
	return normals
}

// ExtentsFromPoints returns the smallest box containing every point. An empty
// input yields zero extents.
func ExtentsFromPoints(points []Vec3) Extents3D {
	if len(points) == 0 {
		return Extents3D{}
	}
	e := Extents3D{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		e.Min = e.Min.Min(p)
		e.Max = e.Max.Max(p)
	}
	return e
}

func NewExtentsFromCenterSize(center, size Vec3) Extents3D {
	half := size.MulScalar(0.5)
	return Extents3D{Min: center.Sub(half), Max: center.Add(half)}
}

// Contains reports whether p lies inside the box, boundary included.
func (e Extents3D) Contains(p Vec3) bool {
	return p.X >= e.Min.X && p.X <= e.Max.X &&
		p.Y >= e.Min.Y && p.Y <= e.Max.Y &&
		p.Z >= e.Min.Z && p.Z <= e.Max.Z
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

func (e Extents3D) Size() Vec3 {
	return e.Max.Sub(e.Min)
}

func (e Extents3D) Union(other Extents3D) Extents3D {
	return Extents3D{Min: e.Min.Min(other.Min), Max: e.Max.Max(other.Max)}
}

func (e Extents3D) Overlaps(other Extents3D) bool {
	return e.Min.X <= other.Max.X && e.Max.X >= other.Min.X &&
		e.Min.Y <= other.Max.Y && e.Max.Y >= other.Min.Y &&
		e.Min.Z <= other.Max.Z && e.Max.Z >= other.Min.Z
}

// TransformExtents returns the world box enclosing the eight transformed corners.
func TransformExtents(e Extents3D, m Mat4) Extents3D {
	corners := make([]Vec3, 0, 8)
	for i := 0; i < 8; i++ {
		c := e.Min
		if i&1 != 0 {
			c.X = e.Max.X
		}
		if i&2 != 0 {
			c.Y = e.Max.Y
		}
		if i&4 != 0 {
			c.Z = e.Max.Z
		}
		corners = append(corners, c.Transform(m))
	}
	return ExtentsFromPoints(corners)
}

func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalized()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Direction.MulScalar(t))
}

// IntersectExtents is the slab test. near and far are the distances along the
// ray where it enters and leaves the box; near is negative when the origin is
// already inside.
func (r Ray) IntersectExtents(e Extents3D) (near, far float32, ok bool) {
	near = math32.Inf(-1)
	far = math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Axis(axis)
		d := r.Direction.Axis(axis)
		lo := e.Min.Axis(axis)
		hi := e.Max.Axis(axis)
		if math32.Abs(d) < K_FLOAT_EPSILON {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		inv := 1.0 / d
		t0 := (lo - o) * inv
		t1 := (hi - o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		near = math32.Max(near, t0)
		far = math32.Min(far, t1)
		if near > far {
			return 0, 0, false
		}
	}
	if far < 0 {
		return 0, 0, false
	}
	return near, far, true
}

// RayTriangleIntersect is the Möller–Trumbore test. It returns the distance
// along the ray to the hit. With cullBackfaces set, triangles whose
// counter-clockwise winding faces away from the ray are ignored.
func RayTriangleIntersect(r Ray, v0, v1, v2 Vec3, cullBackfaces bool) (float32, bool) {
	const epsilon = 1e-7

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	pvec := r.Direction.Cross(edge2)
	det := edge1.Dot(pvec)

	if cullBackfaces {
		if det < epsilon {
			return 0, false
		}
	} else if math32.Abs(det) < epsilon {
		return 0, false
	}

	invDet := 1.0 / det
	tvec := r.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	qvec := tvec.Cross(edge1)
	v := r.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := edge2.Dot(qvec) * invDet
	if t < 0 {
		return 0, false
	}
	return t, true
}
