package physics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
)

const (
	maxTrianglesPerLeaf = 4
	maxBVHDepth         = 24
)

type triangle struct {
	v0, v1, v2 math.Vec3
	normal     math.Vec3
}

func (t triangle) centroid() math.Vec3 {
	return t.v0.Add(t.v1).Add(t.v2).MulScalar(1.0 / 3.0)
}

// bvhNode is either an inner node with two children or a leaf holding
// triangle indices.
type bvhNode struct {
	bounds      math.Extents3D
	left, right *bvhNode
	triangles   []int
}

// MeshCollider collides against world-space triangles. The triangles are
// baked from the mesh at UpdateMesh time and do not follow the transform
// afterwards.
type MeshCollider struct {
	colliderBase

	mu        sync.RWMutex
	triangles []triangle
	root      *bvhNode
	bounds    math.Extents3D
	revision  uint64
}

func NewMeshCollider(name, tag string, layer Layer) *MeshCollider {
	m := &MeshCollider{}
	m.init(name, tag, layer)
	return m
}

// UpdateMesh re-bakes the collider from local vertices, a triangle index list
// and the transform placing them in the world.
func (m *MeshCollider) UpdateMesh(vertices []math.Vec3, indices []uint32, transform *math.Transform) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", core.ErrInvalidMeshData, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return fmt.Errorf("%w: index %d references %d vertices", core.ErrInvalidMeshData, idx, len(vertices))
		}
	}

	world := transform.TransformPoints(vertices)
	triangles := make([]triangle, 0, len(indices)/3)
	for i := 0; i < len(indices); i += 3 {
		v0 := world[indices[i+0]]
		v1 := world[indices[i+1]]
		v2 := world[indices[i+2]]
		normal := v1.Sub(v0).Cross(v2.Sub(v0)).Normalized()
		triangles = append(triangles, triangle{v0: v0, v1: v1, v2: v2, normal: normal})
	}

	root := buildBVH(triangles)
	bounds := math.Extents3D{}
	if root != nil {
		bounds = root.bounds
	}

	m.mu.Lock()
	m.triangles = triangles
	m.root = root
	m.bounds = bounds
	m.revision++
	m.mu.Unlock()
	return nil
}

// Revision counts UpdateMesh calls that succeeded.
func (m *MeshCollider) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

func (m *MeshCollider) TriangleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.triangles)
}

func (m *MeshCollider) Bounds() math.Extents3D {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

func (m *MeshCollider) Raycast(ray math.Ray, hitBackfaces bool) (RaycastHit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.root == nil {
		return RaycastHit{}, false
	}

	best := RaycastHit{Distance: math.K_INFINITY, Triangle: -1}
	found := false
	stack := []*bvhNode{m.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		near, _, ok := ray.IntersectExtents(node.bounds)
		if !ok || near > best.Distance {
			continue
		}
		if node.left == nil {
			for _, idx := range node.triangles {
				tri := m.triangles[idx]
				dist, hit := math.RayTriangleIntersect(ray, tri.v0, tri.v1, tri.v2, !hitBackfaces)
				if !hit {
					continue
				}
				// equal distances keep the lower triangle index
				if dist < best.Distance || (dist == best.Distance && idx < best.Triangle) {
					best.Distance = dist
					best.Triangle = idx
					best.Normal = tri.normal
					found = true
				}
			}
			continue
		}
		stack = append(stack, node.left, node.right)
	}
	if !found {
		return RaycastHit{}, false
	}
	best.Collider = m
	best.Point = ray.At(best.Distance)
	return best, true
}

func buildBVH(triangles []triangle) *bvhNode {
	if len(triangles) == 0 {
		return nil
	}
	indices := make([]int, len(triangles))
	for i := range indices {
		indices[i] = i
	}
	return buildBVHNode(triangles, indices, 0)
}

func buildBVHNode(triangles []triangle, indices []int, depth int) *bvhNode {
	node := &bvhNode{bounds: trianglesBounds(triangles, indices)}

	if len(indices) <= maxTrianglesPerLeaf || depth >= maxBVHDepth {
		node.triangles = indices
		return node
	}

	// split on the longest axis at the median centroid
	size := node.bounds.Size()
	axis := 0
	if size.Y > size.X && size.Y >= size.Z {
		axis = 1
	} else if size.Z > size.X && size.Z > size.Y {
		axis = 2
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return triangles[indices[i]].centroid().Axis(axis) < triangles[indices[j]].centroid().Axis(axis)
	})

	mid := len(indices) / 2
	node.left = buildBVHNode(triangles, indices[:mid], depth+1)
	node.right = buildBVHNode(triangles, indices[mid:], depth+1)
	return node
}

func trianglesBounds(triangles []triangle, indices []int) math.Extents3D {
	points := make([]math.Vec3, 0, len(indices)*3)
	for _, idx := range indices {
		t := triangles[idx]
		points = append(points, t.v0, t.v1, t.v2)
	}
	return math.ExtentsFromPoints(points)
}
