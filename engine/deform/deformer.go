package deform

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
)

// Deformer is the rigid body whose surface impacts press into deformables.
// Its collider is both the impact volume and the surface rays are cast at;
// its own vertices are the deformation targets.
type Deformer struct {
	collider physics.Collider

	mu        sync.RWMutex
	transform *math.Transform
	vertices  []math.Vec3
	indices   []uint32
}

func NewDeformer(collider physics.Collider, vertices []math.Vec3, indices []uint32, transform *math.Transform) *Deformer {
	if transform == nil {
		transform = math.TransformCreate()
	}
	return &Deformer{
		collider:  collider,
		transform: transform.Clone(),
		vertices:  append([]math.Vec3(nil), vertices...),
		indices:   append([]uint32(nil), indices...),
	}
}

func (d *Deformer) Collider() physics.Collider {
	return d.collider
}

func (d *Deformer) Transform() *math.Transform {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.transform.Clone()
}

// MoveTo places the deformer at position and re-bakes its collider when the
// collider follows a mesh.
func (d *Deformer) MoveTo(position math.Vec3) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transform.SetPosition(position)
	return d.sync()
}

// Sync re-bakes the collider from the current transform.
func (d *Deformer) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sync()
}

func (d *Deformer) sync() error {
	if proxy, ok := d.collider.(CollisionProxy); ok {
		return proxy.UpdateMesh(d.vertices, d.indices, d.transform)
	}
	return nil
}

// Targets returns the deformer vertices in world space.
func (d *Deformer) Targets() []math.Vec3 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transform.TransformPoints(d.vertices)
}

// Event builds the impact of this deformer on mesh at its current position.
func (d *Deformer) Event(mesh *DeformableMesh) ImpactEvent {
	return NewImpactEvent(d.collider, d.Targets(), mesh)
}

// ImpactEvent is one request to deform Mesh with Targets, given in world
// space, inside Volume.
type ImpactEvent struct {
	ID      uuid.UUID
	Volume  physics.Collider
	Targets []math.Vec3
	Mesh    *DeformableMesh
}

func NewImpactEvent(volume physics.Collider, targets []math.Vec3, mesh *DeformableMesh) ImpactEvent {
	return ImpactEvent{
		ID:      uuid.New(),
		Volume:  volume,
		Targets: targets,
		Mesh:    mesh,
	}
}
