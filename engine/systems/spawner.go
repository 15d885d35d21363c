package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/dent/engine/deform"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
)

// ErrNoDeformableHit is returned by Shoot when the shot does not land on a
// registered deformable.
var ErrNoDeformableHit = errors.New("shot did not hit a deformable")

// NewSphereDeformer builds a deformer whose targets are the vertices of a UV
// sphere and whose volume is the matching mesh collider.
func NewSphereDeformer(name string, radius float32, rings, sectors uint32, settings deform.Settings, layers *physics.LayerTable) (*deform.Deformer, error) {
	gc := GeometrySystemGenerateSphereConfig(radius, rings, sectors, name, "")
	layer, ok := layers.NameToLayer(settings.DeformerLayer)
	if !ok {
		return nil, fmt.Errorf("deformer layer '%s' is not defined", settings.DeformerLayer)
	}
	collider := physics.NewMeshCollider(name, settings.DeformerTag, layer)
	d := deform.NewDeformer(collider, gc.Positions(), gc.Indices, nil)
	if err := d.Sync(); err != nil {
		return nil, err
	}
	return d, nil
}

// DeformerSpawner places a pooled deformer wherever a shot lands and starts
// the impact on the mesh it hit. The deformer is never moved while an impact
// that reads it is still computing on another mesh.
type DeformerSpawner struct {
	system        *DeformationSystem
	deformer      *deform.Deformer
	deformableTag string

	mu       sync.Mutex
	last     *deform.ImpactTask
	lastMesh *deform.DeformableMesh
}

func NewDeformerSpawner(system *DeformationSystem, deformer *deform.Deformer, deformableTag string) *DeformerSpawner {
	if deformer.Collider().ID() == physics.InvalidID {
		system.World().Add(deformer.Collider())
	}
	return &DeformerSpawner{
		system:        system,
		deformer:      deformer,
		deformableTag: deformableTag,
	}
}

func (s *DeformerSpawner) Deformer() *deform.Deformer {
	return s.deformer
}

// Shoot casts a ray from origin along direction. On a deformable the deformer
// is centered on the hit point and an impact is started. When the previous
// shot's impact is still computing on another mesh, Shoot blocks until it ends.
func (s *DeformerSpawner) Shoot(origin, direction math.Vec3) (*deform.ImpactTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filter := physics.RayFilter{
		Mask: physics.DefaultRaycastLayers &^ physics.MaskOf(s.deformer.Collider().Layer()),
	}
	hit, ok := s.system.World().Raycast(math.NewRay(origin, direction), filter)
	if !ok || hit.Collider.Tag() != s.deformableTag {
		return nil, ErrNoDeformableHit
	}
	mesh, ok := s.system.FindByProxy(hit.Collider)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' is not registered", ErrNoDeformableHit, hit.Collider.Name())
	}

	s.release(mesh)
	if err := s.deformer.MoveTo(hit.Point); err != nil {
		return nil, err
	}
	task, err := s.system.StartImpact(s.deformer.Event(mesh))
	if err != nil {
		return nil, err
	}
	s.last = task
	s.lastMesh = mesh
	return task, nil
}

// release makes the pooled deformer safe to move. An impact on the same mesh
// is cancelled, since the next one supersedes it anyway; an impact on another
// mesh is waited for. Callers hold s.mu.
func (s *DeformerSpawner) release(next *deform.DeformableMesh) {
	if s.last == nil {
		return
	}
	if s.lastMesh == next {
		s.last.Cancel()
	} else {
		_, _ = s.last.Wait()
	}
	s.last = nil
	s.lastMesh = nil
}
