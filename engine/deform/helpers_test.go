package deform

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

var (
	pristineMaterial = metadata.Material{Name: "pristine", DiffuseColour: math.NewVec4One()}
	impactMaterial   = metadata.Material{Name: "impact", DiffuseColour: math.NewVec4(0.4, 0.1, 0.1, 1)}
)

// quadScene is a unit quad in the XY plane, moved to x=2, registered in a
// world together with its collision proxy.
type quadScene struct {
	world *physics.World
	mesh  *DeformableMesh
	proxy *physics.MeshCollider
}

func newQuadScene(t *testing.T) *quadScene {
	t.Helper()
	world := physics.NewWorld(8)
	proxy := physics.NewMeshCollider("quad", "Deformable", physics.LayerDeformable)
	world.Add(proxy)

	up := math.NewVec3(0, 0, 1)
	mesh, err := NewDeformableMesh(DeformableMeshConfig{
		Name: "quad",
		Vertices: []math.Vec3{
			math.NewVec3(0, 0, 0),
			math.NewVec3(1, 0, 0),
			math.NewVec3(1, 1, 0),
			math.NewVec3(0, 1, 0),
		},
		Normals:   []math.Vec3{up, up, up, up},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Transform: math.TransformFromPosition(math.NewVec3(2, 0, 0)),
		Pristine:  pristineMaterial,
		Impact:    impactMaterial,
		Proxy:     proxy,
	})
	require.NoError(t, err)
	return &quadScene{world: world, mesh: mesh, proxy: proxy}
}

// deformerBox adds a small deformer volume centered on center.
func (s *quadScene) deformerBox(center math.Vec3) *physics.BoxCollider {
	box := physics.NewBoxCollider("deformer", "Deformer", physics.LayerDeformer, center, math.NewVec3(0.2, 0.2, 0.2))
	s.world.Add(box)
	return box
}

// gridMesh builds an n x n vertex grid of unit spacing in the XY plane.
func gridMesh(t *testing.T, world *physics.World, n int) *DeformableMesh {
	t.Helper()
	vertices := make([]math.Vec3, 0, n*n)
	normals := make([]math.Vec3, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			vertices = append(vertices, math.NewVec3(float32(x), float32(y), 0))
			normals = append(normals, math.NewVec3(0, 0, 1))
		}
	}
	indices := make([]uint32, 0, (n-1)*(n-1)*6)
	for y := 0; y < n-1; y++ {
		for x := 0; x < n-1; x++ {
			i := uint32(y*n + x)
			indices = append(indices, i, i+1, i+uint32(n)+1, i, i+uint32(n)+1, i+uint32(n))
		}
	}
	proxy := physics.NewMeshCollider("grid", "Deformable", physics.LayerDeformable)
	world.Add(proxy)
	mesh, err := NewDeformableMesh(DeformableMeshConfig{
		Name:     "grid",
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
		Pristine: pristineMaterial,
		Impact:   impactMaterial,
		Proxy:    proxy,
	})
	require.NoError(t, err)
	return mesh
}

// cancellingGeometry cancels the impact from inside the first ray cast.
type cancellingGeometry struct {
	*physics.World
	cancel func()
}

func (g *cancellingGeometry) Raycast(ray math.Ray, filter physics.RayFilter) (physics.RaycastHit, bool) {
	g.cancel()
	return g.World.Raycast(ray, filter)
}

// blockingGeometry parks the first ray cast until release is closed.
type blockingGeometry struct {
	*physics.World
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newBlockingGeometry(w *physics.World) *blockingGeometry {
	return &blockingGeometry{
		World:   w,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *blockingGeometry) Raycast(ray math.Ray, filter physics.RayFilter) (physics.RaycastHit, bool) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.World.Raycast(ray, filter)
}

// goScheduler runs every job on a fresh goroutine and counts submissions.
type goScheduler struct {
	mu        sync.Mutex
	submitted int
	err       error
}

func (s *goScheduler) Submit(jt metadata.JobTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.submitted++
	go jt.OnStart(jt.Context, jt.InputParams)
	return nil
}

func assertVec3Near(t *testing.T, expected, actual math.Vec3) {
	t.Helper()
	require.True(t, expected.Compare(actual, 1e-4), "expected %+v, got %+v", expected, actual)
}
