package deform

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// DeformableMeshConfig describes a mesh at load time.
type DeformableMeshConfig struct {
	Name string
	// Vertices and Normals are parallel and in local space. Normals become the
	// rest normals and are never modified.
	Vertices []math.Vec3
	Normals  []math.Vec3
	// Indices holds three entries per triangle.
	Indices   []uint32
	Transform *math.Transform
	Pristine  metadata.Material
	Impact    metadata.Material
	// Proxy is optional. When set it is re-baked after every committed impact.
	Proxy CollisionProxy
}

// DeformableMesh is a mesh whose vertices impacts move permanently. The vertex
// count and triangle order never change after construction.
type DeformableMesh struct {
	name string

	mu          sync.RWMutex
	transform   *math.Transform
	vertices    []math.Vec3
	restNormals []math.Vec3
	normals     []math.Vec3
	triangles   []Triangle
	indices     []uint32
	bounds      math.Extents3D
	partition   *PartitionState
	submeshes   SubmeshAssignment
	materials   []metadata.Material
	pristine    metadata.Material
	impact      metadata.Material
	proxy       CollisionProxy
}

func NewDeformableMesh(cfg DeformableMeshConfig) (*DeformableMesh, error) {
	if len(cfg.Vertices) == 0 || len(cfg.Vertices) != len(cfg.Normals) {
		return nil, fmt.Errorf("%w: mesh '%s' has %d vertices and %d normals", core.ErrInvalidMeshData, cfg.Name, len(cfg.Vertices), len(cfg.Normals))
	}
	if len(cfg.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: mesh '%s' has %d indices, not a multiple of 3", core.ErrInvalidMeshData, cfg.Name, len(cfg.Indices))
	}
	triangles := make([]Triangle, 0, len(cfg.Indices)/3)
	for i := 0; i < len(cfg.Indices); i += 3 {
		t := Triangle{cfg.Indices[i], cfg.Indices[i+1], cfg.Indices[i+2]}
		for _, idx := range t {
			if int(idx) >= len(cfg.Vertices) {
				return nil, fmt.Errorf("%w: mesh '%s' index %d out of %d vertices", core.ErrInvalidMeshData, cfg.Name, idx, len(cfg.Vertices))
			}
		}
		triangles = append(triangles, t)
	}

	transform := cfg.Transform
	if transform == nil {
		transform = math.TransformCreate()
	}

	m := &DeformableMesh{
		name:        cfg.Name,
		transform:   transform.Clone(),
		vertices:    append([]math.Vec3(nil), cfg.Vertices...),
		restNormals: append([]math.Vec3(nil), cfg.Normals...),
		normals:     append([]math.Vec3(nil), cfg.Normals...),
		triangles:   triangles,
		indices:     append([]uint32(nil), cfg.Indices...),
		bounds:      math.ExtentsFromPoints(cfg.Vertices),
		partition:   NewPartitionState(),
		submeshes:   singleSubmesh(triangles),
		materials:   []metadata.Material{cfg.Pristine},
		pristine:    cfg.Pristine,
		impact:      cfg.Impact,
		proxy:       cfg.Proxy,
	}
	if m.proxy != nil {
		if err := m.proxy.UpdateMesh(m.vertices, m.indices, m.transform); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewDeformableMeshFromConfig builds a mesh from loaded geometry. Geometry
// without normals gets smooth normals first, and those become the rest normals.
func NewDeformableMeshFromConfig(gc *metadata.GeometryConfig, cfg DeformableMeshConfig) (*DeformableMesh, error) {
	if err := gc.Validate(); err != nil {
		return nil, err
	}
	if !hasNormals(gc) {
		gc.GenerateNormals()
	}
	if cfg.Name == "" {
		cfg.Name = gc.Name
	}
	cfg.Vertices = gc.Positions()
	cfg.Normals = gc.Normals()
	cfg.Indices = gc.Indices
	return NewDeformableMesh(cfg)
}

func hasNormals(gc *metadata.GeometryConfig) bool {
	for _, v := range gc.Vertices {
		if v.Normal.LengthSquared() > 0 {
			return true
		}
	}
	return false
}

func (m *DeformableMesh) Name() string {
	return m.name
}

func (m *DeformableMesh) Proxy() CollisionProxy {
	return m.proxy
}

// Transform returns a copy of the mesh transform.
func (m *DeformableMesh) Transform() *math.Transform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transform.Clone()
}

// SetTransform moves the mesh and re-bakes its collision proxy.
func (m *DeformableMesh) SetTransform(t *math.Transform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform = t.Clone()
	if m.proxy != nil {
		return m.proxy.UpdateMesh(m.vertices, m.indices, m.transform)
	}
	return nil
}

func (m *DeformableMesh) VertexCount() int {
	return len(m.restNormals)
}

func (m *DeformableMesh) Vertices() []math.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]math.Vec3(nil), m.vertices...)
}

func (m *DeformableMesh) RestNormals() []math.Vec3 {
	return append([]math.Vec3(nil), m.restNormals...)
}

// Normals returns the normals recomputed after the last impact.
func (m *DeformableMesh) Normals() []math.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]math.Vec3(nil), m.normals...)
}

func (m *DeformableMesh) Triangles() []Triangle {
	return append([]Triangle(nil), m.triangles...)
}

func (m *DeformableMesh) Impacted() []Triangle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.partition.Impacted()
}

func (m *DeformableMesh) IsDeformed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.partition.Established
}

func (m *DeformableMesh) Submeshes() SubmeshAssignment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.submeshes.Clone()
}

func (m *DeformableMesh) Materials() []metadata.Material {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]metadata.Material(nil), m.materials...)
}

// SetMaterials swaps the pristine and impact materials, keeping the material
// list in step with the submesh count.
func (m *DeformableMesh) SetMaterials(pristine, impact metadata.Material) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pristine = pristine
	m.impact = impact
	m.materials = m.materialList()
}

func (m *DeformableMesh) Bounds() math.Extents3D {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

func (m *DeformableMesh) materialList() []metadata.Material {
	if m.partition.Established {
		return []metadata.Material{m.pristine, m.impact}
	}
	return []metadata.Material{m.pristine}
}

// meshSnapshot is the read-only view one impact computes against.
type meshSnapshot struct {
	vertices    []math.Vec3
	restNormals []math.Vec3
	triangles   []Triangle
	transform   *math.Transform
	partition   *PartitionState
}

func (m *DeformableMesh) snapshot() meshSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return meshSnapshot{
		vertices:    append([]math.Vec3(nil), m.vertices...),
		restNormals: m.restNormals,
		triangles:   m.triangles,
		transform:   m.transform.Clone(),
		partition:   m.partition.Clone(),
	}
}

// commit installs the result of an impact and recomputes the derived data:
// normals, bounds and the collision proxy. Callers hold m.mu.
func (m *DeformableMesh) commit(vertices []math.Vec3, partition *PartitionState, submeshes SubmeshAssignment) error {
	m.vertices = vertices
	m.partition = partition
	m.submeshes = submeshes
	m.materials = m.materialList()
	return m.recalculate()
}

func (m *DeformableMesh) recalculate() error {
	m.normals = math.GeometryGenerateNormals(m.vertices, m.indices)
	m.bounds = math.ExtentsFromPoints(m.vertices)
	if m.proxy != nil {
		if err := m.proxy.UpdateMesh(m.vertices, m.indices, m.transform); err != nil {
			return fmt.Errorf("collision proxy refresh for '%s': %w", m.name, err)
		}
	}
	return nil
}
