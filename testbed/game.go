package testbed

import (
	"github.com/spaghettifunk/dent/engine"
	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/deform"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
	"github.com/spaghettifunk/dent/engine/systems"
)

const (
	// Virtual pointer surface the simulated clicks land on.
	screenWidth  = 1280
	screenHeight = 720
	// Seconds between two simulated clicks.
	shotInterval = 0.25
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	plane   *deform.DeformableMesh
	spawner *systems.DeformerSpawner

	planeSize  float32
	sinceShot  float64
	shots      int
	buttonDown bool
}

func NewTestGame(assetsDir string) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:       "Dent Testbed",
				LogLevel:   core.DebugLevel,
				AssetsDir:  assetsDir,
				ConfigName: "dent",
			},
			State: &gameState{planeSize: 10},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Boot() error {
	core.LogInfo("booting testbed...")
	core.EventRegister(core.EVENT_CODE_IMPACT_COMPLETED, g, g.onImpact)
	core.EventRegister(core.EVENT_CODE_IMPACT_FAILED, g, g.onImpact)
	core.EventRegister(core.EVENT_CODE_IMPACT_CANCELLED, g, g.onImpact)
	core.EventRegister(core.EVENT_CODE_BUTTON_PRESSED, g, g.onButton)
	return nil
}

func (g *TestGame) Initialize() error {
	state := g.state()
	sm := g.SystemManager

	// a loaded panel model wins over the generated floor
	var gc *metadata.GeometryConfig
	if sm.MeshLoaderSystem != nil {
		if mesh, err := sm.MeshLoaderSystem.LoadFromResource("floor"); err == nil {
			gc = mesh.Geometry("")
		}
	}
	if gc == nil {
		gc = systems.GeometrySystemGeneratePlaneConfig(state.planeSize, state.planeSize, 40, 40, 1, 1, "floor", "")
	}
	plane, err := sm.CreateDeformable(gc, math.TransformCreate())
	if err != nil {
		return err
	}
	state.plane = plane

	ball, err := systems.NewSphereDeformer("ball", 0.6, 8, 16, sm.DeformationSystem.Settings(), sm.World.Layers())
	if err != nil {
		return err
	}
	state.spawner = systems.NewDeformerSpawner(sm.DeformationSystem, ball, sm.Config().Deformation.DeformableTag)

	core.LogInfo("floor '%s' ready: %d vertices, %d triangles", plane.Name(), plane.VertexCount(), len(plane.Triangles()))
	return nil
}

// Update simulates a pointer walking over the floor and clicking at a
// fixed rate. The click edge shoots a deformer at the point under the pointer.
func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.sinceShot += deltaTime

	if state.buttonDown {
		state.buttonDown = false
		return core.InputProcessButton(core.BUTTON_LEFT, false)
	}
	if state.sinceShot < shotInterval {
		return nil
	}
	state.sinceShot = 0
	x, y := pointerPath(state.shots)
	if err := core.InputProcessMouseMove(x, y); err != nil {
		return err
	}
	state.buttonDown = true
	return core.InputProcessButton(core.BUTTON_LEFT, true)
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	core.EventUnregister(core.EVENT_CODE_IMPACT_COMPLETED, g, g.onImpact)
	core.EventUnregister(core.EVENT_CODE_IMPACT_FAILED, g, g.onImpact)
	core.EventUnregister(core.EVENT_CODE_IMPACT_CANCELLED, g, g.onImpact)
	core.EventUnregister(core.EVENT_CODE_BUTTON_PRESSED, g, g.onButton)
	if state.plane != nil {
		core.LogInfo("testbed done: %d shots, %d of %d triangles impacted",
			state.shots, len(state.plane.Impacted()), len(state.plane.Triangles()))
	}
	stats := core.MetricsImpactStats()
	core.LogInfo("impacts: %d completed, %d cancelled, %d failed, avg %s",
		stats.Impacts, stats.Cancelled, stats.Failures, stats.AvgDuration)
	return nil
}

func (g *TestGame) onButton(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	if core.Button(data.Data.I32[0]) != core.BUTTON_LEFT {
		return false
	}
	state := g.state()
	if state.spawner == nil {
		return false
	}
	state.shots++

	x, y := core.InputGetMousePosition()
	origin := g.screenToWorld(x, y).Add(math.NewVec3(0, 0, 5))
	if _, err := state.spawner.Shoot(origin, math.NewVec3(0, 0, -1)); err != nil {
		core.LogDebug("shot %d at (%d, %d): %s", state.shots, x, y, err)
	}
	return true
}

func (g *TestGame) onImpact(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_IMPACT_COMPLETED:
		if result, ok := data.Payload.(deform.ImpactResult); ok {
			core.LogInfo("impact %s on '%s': %s, %d moved, %d triangles impacted in %s",
				data.Data.C[1], data.Data.C[0], result.Outcome, result.Mapped, result.ImpactedTotal, result.Duration)
		}
	case core.EVENT_CODE_IMPACT_CANCELLED:
		core.LogDebug("impact %s on '%s' superseded", data.Data.C[1], data.Data.C[0])
	case core.EVENT_CODE_IMPACT_FAILED:
		core.LogError("impact %s on '%s' failed: %v", data.Data.C[1], data.Data.C[0], data.Payload)
	}
	return false
}

// screenToWorld maps the virtual screen onto the floor plane.
func (g *TestGame) screenToWorld(x, y int32) math.Vec3 {
	half := g.state().planeSize * 0.5
	u := float32(x)/screenWidth*2 - 1
	v := 1 - float32(y)/screenHeight*2
	return math.NewVec3(u*half, v*half, 0)
}

// pointerPath walks a spiral out from the screen center.
func pointerPath(step int) (uint16, uint16) {
	angle := float32(step) * 2.4
	radius := math.Clamp(float32(step)*12, 0, screenHeight*0.45)
	x := screenWidth*0.5 + radius*math.Cos(angle)
	y := screenHeight*0.5 + radius*math.Sin(angle)
	return uint16(x), uint16(y)
}
