package systems

import (
	"sync"

	"github.com/spaghettifunk/dent/engine/assets"
	"github.com/spaghettifunk/dent/engine/config"
	"github.com/spaghettifunk/dent/engine/deform"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// Colliders the world is sized for before its id pool grows.
const defaultColliderCapacity = 256

type SystemManager struct {
	World             *physics.World
	JobSystem         *JobSystem
	MaterialSystem    *MaterialSystem
	MeshLoaderSystem  *MeshLoaderSystem
	DeformationSystem *DeformationSystem

	mu     sync.RWMutex
	config *config.Config
}

func NewSystemManager(cfg *config.Config, am *assets.AssetManager) (*SystemManager, error) {
	// loads only, impacts run on the deformation system's own pool
	js, err := NewJobSystem(1, 16)
	if err != nil {
		return nil, err
	}
	var mls *MeshLoaderSystem
	if am != nil {
		if mls, err = NewMeshLoaderSystem(am, js); err != nil {
			return nil, err
		}
	}

	world := physics.NewWorld(defaultColliderCapacity)
	ds, err := NewDeformationSystem(world, DeformationSystemConfig{
		Workers:   cfg.Deformation.Workers,
		QueueSize: cfg.Deformation.QueueSize,
		Settings:  cfg.Settings(),
	})
	if err != nil {
		return nil, err
	}

	sm := &SystemManager{
		World:             world,
		JobSystem:         js,
		MaterialSystem:    NewMaterialSystem(am),
		MeshLoaderSystem:  mls,
		DeformationSystem: ds,
		config:            cfg,
	}
	sm.MaterialSystem.OnReload(sm.onMaterialReloaded)
	return sm, nil
}

func (sm *SystemManager) Config() *config.Config {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.config
}

// ApplyConfig pushes a reloaded configuration into the running systems.
// Pool sizes are fixed at start; only impact settings change.
func (sm *SystemManager) ApplyConfig(cfg *config.Config) {
	sm.mu.Lock()
	sm.config = cfg
	sm.mu.Unlock()
	sm.DeformationSystem.UpdateSettings(cfg.Settings())
}

// Materials returns the pristine and impact materials named by the configuration.
func (sm *SystemManager) Materials() (pristine, impact metadata.Material) {
	cfg := sm.Config()
	return sm.MaterialSystem.AcquireOrDefault(cfg.Materials.Pristine),
		sm.MaterialSystem.AcquireOrDefault(cfg.Materials.Impact)
}

/**
 * @brief Builds a deformable from gc, gives it a mesh collider proxy tagged
 * as deformable and registers it with the deformation system.
 */
func (sm *SystemManager) CreateDeformable(gc *metadata.GeometryConfig, transform *math.Transform) (*deform.DeformableMesh, error) {
	cfg := sm.Config()
	pristine, impact := sm.Materials()
	mesh, err := deform.NewDeformableMeshFromConfig(gc, deform.DeformableMeshConfig{
		Transform: transform,
		Pristine:  pristine,
		Impact:    impact,
		Proxy:     physics.NewMeshCollider(gc.Name, cfg.Deformation.DeformableTag, physics.LayerDeformable),
	})
	if err != nil {
		return nil, err
	}
	if _, err := sm.DeformationSystem.Register(mesh); err != nil {
		return nil, err
	}
	return mesh, nil
}

func (sm *SystemManager) onMaterialReloaded(name string, _ metadata.Material) {
	cfg := sm.Config()
	if name != cfg.Materials.Pristine && name != cfg.Materials.Impact {
		return
	}
	pristine, impact := sm.Materials()
	for _, mesh := range sm.DeformationSystem.Meshes() {
		mesh.SetMaterials(pristine, impact)
	}
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.DeformationSystem.Shutdown(); err != nil {
		return err
	}
	if sm.MeshLoaderSystem != nil {
		if err := sm.MeshLoaderSystem.Shutdown(); err != nil {
			return err
		}
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
