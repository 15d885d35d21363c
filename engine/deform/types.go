package deform

import (
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
)

// Triangle is an ordered index triple into a vertex buffer. Two triangles are
// the same only when all three indices match in order.
type Triangle [3]uint32

func (t Triangle) References(set IndexSet) bool {
	return set.Has(int(t[0])) || set.Has(int(t[1])) || set.Has(int(t[2]))
}

// IndexSet is a set of vertex indices.
type IndexSet map[int]struct{}

func NewIndexSet(indices ...int) IndexSet {
	s := make(IndexSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

func (s IndexSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Replacement moves the vertex at Index to Position, in the mesh's local space.
type Replacement struct {
	Index    int
	Position math.Vec3
}

// Mapping is the ordered list of replacements produced for one impact.
type Mapping []Replacement

// Indices returns the set of vertex indices the mapping touches.
func (m Mapping) Indices() IndexSet {
	s := make(IndexSet, len(m))
	for _, r := range m {
		s[r.Index] = struct{}{}
	}
	return s
}

// Selection is the subset of a mesh found inside an impact volume. The three
// slices are parallel; Vertices and Normals are in world space.
type Selection struct {
	Vertices []math.Vec3
	Indices  []int
	Normals  []math.Vec3
}

func (s Selection) Len() int {
	return len(s.Indices)
}

func (s Selection) Empty() bool {
	return len(s.Indices) == 0
}

// Geometry is the set of physics queries the pipeline needs. *physics.World
// implements it.
type Geometry interface {
	// Contains reports whether p lies inside the volume.
	Contains(volume physics.Collider, p math.Vec3) bool
	// Raycast returns the nearest hit that passes the filter.
	Raycast(ray math.Ray, filter physics.RayFilter) (physics.RaycastHit, bool)
	// OverrideLayer moves c to layer until release is called.
	OverrideLayer(c physics.Collider, layer physics.Layer) (release func())
	Layers() *physics.LayerTable
}

// CollisionProxy is the collider kept in sync with a deformable mesh.
// *physics.MeshCollider implements it.
type CollisionProxy interface {
	physics.Collider
	UpdateMesh(vertices []math.Vec3, indices []uint32, transform *math.Transform) error
}

// Settings tune how impacts are resolved.
type Settings struct {
	// DeformerTag is the tag a ray hit must carry to count as deformer surface.
	DeformerTag string
	// IgnoreLayer names the layer the deformable's proxy is moved to while rays are cast.
	IgnoreLayer string
	// DeformerLayer names the only layer rays are allowed to hit.
	DeformerLayer string
	HitBackfaces  bool
	// NearestIndexThreshold switches nearest-target lookups to an R-tree once
	// the target count reaches it. Zero keeps the linear scan.
	NearestIndexThreshold int
}

func DefaultSettings() Settings {
	return Settings{
		DeformerTag:   "Deformer",
		IgnoreLayer:   "Ignore Raycast",
		DeformerLayer: "Deformer",
		HitBackfaces:  true,
	}
}
