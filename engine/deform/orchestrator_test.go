package deform

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
)

func TestImpactQuadScenario(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(3, 0, 0))
	target := math.NewVec3(3, 0.05, -0.08)

	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), nil)
	result, err := o.Run(context.Background(), NewImpactEvent(box, []math.Vec3{target}, s.mesh))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, result.Selected)
	assert.Equal(t, 1, result.Mapped)
	assert.Equal(t, 1, result.NewlyImpacted)
	assert.Equal(t, 1, result.ImpactedTotal)

	vertices := s.mesh.Vertices()
	assertVec3Near(t, math.NewVec3(1, 0.05, -0.08), vertices[1])
	assert.Equal(t, math.NewVec3(0, 0, 0), vertices[0])
	assert.Equal(t, math.NewVec3(1, 1, 0), vertices[2])

	assert.True(t, s.mesh.IsDeformed())
	submeshes := s.mesh.Submeshes()
	require.Equal(t, 2, submeshes.Count())
	assert.Equal(t, []Triangle{{0, 1, 2}}, submeshes.Submesh(SubmeshImpacted))
	assert.Equal(t, []Triangle{{0, 2, 3}}, submeshes.Submesh(SubmeshPristine))
	assert.Equal(t, []string{"pristine", "impact"}, materialNames(s.mesh))

	// derived data: one proxy refresh on top of the initial bake
	assert.Equal(t, uint64(2), s.proxy.Revision())
	assert.InDelta(t, -0.08, s.mesh.Bounds().Min.Z, 1e-5)
	assert.Equal(t, math.NewVec3(0, 0, 1), s.mesh.RestNormals()[1])
	assert.NotEqual(t, math.NewVec3(0, 0, 1), s.mesh.Normals()[1])

	assert.Equal(t, StateIdle, o.State())
	assert.Equal(t, physics.LayerDeformable, s.proxy.Layer())
}

func TestImpactEmptyHitSet(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(50, 50, 50))
	before := s.mesh.Vertices()

	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), nil)
	result, err := o.Run(context.Background(), NewImpactEvent(box, []math.Vec3{math.NewVec3(50, 50, 50)}, s.mesh))
	require.NoError(t, err)

	assert.Equal(t, OutcomeEmptyHitSet, result.Outcome)
	assert.False(t, result.Outcome.Changed())
	assert.Equal(t, before, s.mesh.Vertices())
	assert.False(t, s.mesh.IsDeformed())
	assert.Equal(t, 1, s.mesh.Submeshes().Count())
	assert.Len(t, s.mesh.Materials(), 1)
	assert.Equal(t, uint64(1), s.proxy.Revision())
}

func TestImpactNoCorrespondenceIsNoop(t *testing.T) {
	s := newQuadScene(t)
	// right tag, wrong layer: rays never reach it
	box := physics.NewBoxCollider("deformer", "Deformer", physics.LayerDefault, math.NewVec3(3, 0, 0), math.NewVec3(0.2, 0.2, 0.2))
	s.world.Add(box)
	before := s.mesh.Vertices()

	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), nil)
	result, err := o.Run(context.Background(), NewImpactEvent(box, []math.Vec3{math.NewVec3(3, 0, -0.1)}, s.mesh))
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoCorrespondence, result.Outcome)
	assert.Equal(t, 1, result.Selected)
	assert.Equal(t, before, s.mesh.Vertices())
	assert.False(t, s.mesh.IsDeformed())
	assert.Equal(t, uint64(1), s.proxy.Revision())
}

func TestImpactNoTargetsFails(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(3, 0, 0))
	before := s.mesh.Vertices()

	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), nil)
	_, err := o.Run(context.Background(), NewImpactEvent(box, nil, s.mesh))
	assert.True(t, errors.Is(err, core.ErrNoDeformationTargets))
	assert.Equal(t, before, s.mesh.Vertices())
	assert.False(t, s.mesh.IsDeformed())

	// a failed impact does not poison the next one
	result, err := o.Run(context.Background(), NewImpactEvent(box, []math.Vec3{math.NewVec3(3, 0, -0.1)}, s.mesh))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
}

func TestImpactAppliedTwiceConverges(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(3, 0, 0))
	event := NewImpactEvent(box, []math.Vec3{math.NewVec3(3, 0.05, -0.08)}, s.mesh)
	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), nil)

	_, err := o.Run(context.Background(), event)
	require.NoError(t, err)
	firstVertices := s.mesh.Vertices()
	firstImpacted := s.mesh.Impacted()

	result, err := o.Run(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Zero(t, result.NewlyImpacted)
	assert.Equal(t, firstImpacted, s.mesh.Impacted())
	for i, v := range s.mesh.Vertices() {
		assertVec3Near(t, firstVertices[i], v)
	}
}

func TestImpactCancelledBeforeCommitLeavesMeshUntouched(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(3, 0, 0))

	// deform once so there is prior partition state to protect
	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), nil)
	_, err := o.Run(context.Background(), NewImpactEvent(box, []math.Vec3{math.NewVec3(3, 0, -0.1)}, s.mesh))
	require.NoError(t, err)

	vertices := s.mesh.Vertices()
	impacted := s.mesh.Impacted()
	submeshes := s.mesh.Submeshes()
	revision := s.proxy.Revision()

	ctx, cancel := context.WithCancel(context.Background())
	geom := &cancellingGeometry{World: s.world, cancel: cancel}
	o = NewOrchestrator(s.mesh, geom, DefaultSettings(), nil)

	box.MoveTo(math.NewVec3(2, 0, 0))
	_, err = o.Run(ctx, NewImpactEvent(box, []math.Vec3{math.NewVec3(2, 0.05, -0.09)}, s.mesh))
	require.Error(t, err)
	assert.True(t, IsCancelled(err))

	assert.Equal(t, vertices, s.mesh.Vertices())
	assert.Equal(t, impacted, s.mesh.Impacted())
	assert.Equal(t, submeshes, s.mesh.Submeshes())
	assert.Equal(t, revision, s.proxy.Revision())
	assert.Equal(t, physics.LayerDeformable, s.proxy.Layer())
	assert.Equal(t, StateIdle, o.State())
}

func TestStartImpactNewestPreempts(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(3, 0, 0))
	geom := newBlockingGeometry(s.world)
	o := NewOrchestrator(s.mesh, geom, DefaultSettings(), nil)

	first := o.StartImpact(NewImpactEvent(box, []math.Vec3{math.NewVec3(3, 0.09, -0.1)}, s.mesh))
	<-geom.entered
	assert.Equal(t, StateComputing, o.State())

	second := o.StartImpact(NewImpactEvent(box, []math.Vec3{math.NewVec3(3, -0.09, -0.1)}, s.mesh))
	close(geom.release)

	_, err := first.Wait()
	assert.True(t, IsCancelled(err))

	result, err := second.Wait()
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, second.ID, result.ID)

	assertVec3Near(t, math.NewVec3(1, -0.09, -0.1), s.mesh.Vertices()[1])
	assert.Equal(t, uint64(2), s.proxy.Revision())
	assert.Eventually(t, func() bool { return o.State() == StateIdle }, time.Second, time.Millisecond)
}

func TestStartImpactUsesScheduler(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(3, 0, 0))
	sched := &goScheduler{}
	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), sched)

	task := o.StartImpact(NewImpactEvent(box, []math.Vec3{math.NewVec3(3, 0, -0.1)}, s.mesh))
	result, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, sched.submitted)
}

func TestStartImpactSchedulerRejects(t *testing.T) {
	s := newQuadScene(t)
	box := s.deformerBox(math.NewVec3(3, 0, 0))
	o := NewOrchestrator(s.mesh, s.world, DefaultSettings(), &goScheduler{err: core.ErrQueueClosed})

	task := o.StartImpact(NewImpactEvent(box, []math.Vec3{math.NewVec3(3, 0, -0.1)}, s.mesh))
	_, err := task.Wait()
	assert.True(t, errors.Is(err, core.ErrQueueClosed))
	assert.False(t, s.mesh.IsDeformed())
	assert.Equal(t, StateIdle, o.State())
}

func TestImpactsKeepImpactedSetMonotone(t *testing.T) {
	world := physics.NewWorld(16)
	mesh := gridMesh(t, world, 8)
	box := physics.NewBoxCollider("deformer", "Deformer", physics.LayerDeformer, math.NewVec3Zero(), math.NewVec3(1.5, 1.5, 1))
	world.Add(box)
	o := NewOrchestrator(mesh, world, DefaultSettings(), nil)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		center := math.NewVec3(rng.Float32()*7, rng.Float32()*7, 0)
		box.MoveTo(center)
		targets := []math.Vec3{
			center.Add(math.NewVec3(-0.3, -0.3, -0.5)),
			center.Add(math.NewVec3(0.3, 0.3, -0.5)),
			center.Add(math.NewVec3(0, 0, -0.5)),
		}

		before := NewPartitionState()
		for _, tri := range mesh.Impacted() {
			before.add(tri)
		}

		result, err := o.Run(context.Background(), NewImpactEvent(box, targets, mesh))
		require.NoError(t, err)

		after := mesh.Impacted()
		require.GreaterOrEqual(t, len(after), before.Len())
		set := NewPartitionState()
		for _, tri := range after {
			set.add(tri)
		}
		for _, tri := range before.Impacted() {
			assert.True(t, set.Contains(tri))
		}
		if result.Outcome == OutcomeCompleted {
			assert.Len(t, mesh.Materials(), 2)
		}
		assert.Equal(t, mesh.VertexCount(), len(mesh.Vertices()))
	}
}

func TestNewDeformableMeshValidates(t *testing.T) {
	up := math.NewVec3Up()
	tests := []struct {
		name string
		cfg  DeformableMeshConfig
	}{
		{"empty", DeformableMeshConfig{}},
		{"normal mismatch", DeformableMeshConfig{Vertices: quadVertices(), Normals: []math.Vec3{up}}},
		{"partial triangle", DeformableMeshConfig{Vertices: quadVertices(), Normals: []math.Vec3{up, up, up, up}, Indices: []uint32{0, 1}}},
		{"index out of range", DeformableMeshConfig{Vertices: quadVertices(), Normals: []math.Vec3{up, up, up, up}, Indices: []uint32{0, 1, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDeformableMesh(tt.cfg)
			assert.True(t, errors.Is(err, core.ErrInvalidMeshData))
		})
	}
}

func TestDeformerTargetsFollowTransform(t *testing.T) {
	collider := physics.NewMeshCollider("deformer", "Deformer", physics.LayerDeformer)
	vertices := []math.Vec3{math.NewVec3(0, 0, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0)}
	d := NewDeformer(collider, vertices, []uint32{0, 1, 2}, nil)

	require.NoError(t, d.MoveTo(math.NewVec3(5, 0, 0)))
	targets := d.Targets()
	assertVec3Near(t, math.NewVec3(6, 0, 0), targets[1])
	assert.Equal(t, uint64(1), collider.Revision())
	assert.InDelta(t, 5, collider.Bounds().Min.X, 1e-5)

	event := d.Event(nil)
	assert.Equal(t, targets, event.Targets)
	assert.NotEqual(t, event.ID, d.Event(nil).ID)
}

func materialNames(m *DeformableMesh) []string {
	var names []string
	for _, mat := range m.Materials() {
		names = append(names, mat.Name)
	}
	return names
}
