package systems

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spaghettifunk/dent/engine/assets"
	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// MaterialReloaded is called after a material file changed on disk. name is
// the file name the material was acquired with.
type MaterialReloaded func(name string, material metadata.Material)

// MaterialSystem caches the materials read from assets/materials and keeps
// them in sync with the files.
type MaterialSystem struct {
	assetManager *assets.AssetManager

	mu        sync.RWMutex
	materials map[string]metadata.Material
	listeners []MaterialReloaded
}

func NewMaterialSystem(am *assets.AssetManager) *MaterialSystem {
	ms := &MaterialSystem{
		assetManager: am,
		materials:    map[string]metadata.Material{metadata.DefaultMaterialName: metadata.DefaultMaterial()},
	}
	if am != nil {
		am.Watch(metadata.ResourceTypeMaterial, ms.onFileChanged)
	}
	return ms
}

func (ms *MaterialSystem) GetDefault() metadata.Material {
	return metadata.DefaultMaterial()
}

/**
 * @brief Returns the named material, loading it from assets/materials the
 * first time it is requested.
 */
func (ms *MaterialSystem) Acquire(name string) (metadata.Material, error) {
	if name == "" {
		return ms.GetDefault(), nil
	}
	ms.mu.RLock()
	m, ok := ms.materials[name]
	ms.mu.RUnlock()
	if ok {
		return m, nil
	}
	return ms.load(name)
}

// AcquireOrDefault falls back to the default material when name cannot be loaded.
func (ms *MaterialSystem) AcquireOrDefault(name string) metadata.Material {
	m, err := ms.Acquire(name)
	if err != nil {
		core.LogWarn("material '%s' unavailable, using default: %s", name, err)
		return ms.GetDefault()
	}
	return m
}

// OnReload registers fn for materials reloaded from disk.
func (ms *MaterialSystem) OnReload(fn MaterialReloaded) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.listeners = append(ms.listeners, fn)
}

func (ms *MaterialSystem) load(name string) (metadata.Material, error) {
	if ms.assetManager == nil {
		return metadata.Material{}, fmt.Errorf("no asset manager to load material '%s' from", name)
	}
	res, err := ms.assetManager.LoadAsset(name, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		return metadata.Material{}, err
	}
	cfg, ok := res.Data.(*metadata.MaterialConfig)
	if !ok {
		return metadata.Material{}, fmt.Errorf("resource '%s' is not a material", res.FullPath)
	}
	m := metadata.NewMaterial(*cfg)
	// the file name is the lookup key, whatever the name inside says
	ms.mu.Lock()
	ms.materials[name] = m
	ms.mu.Unlock()
	core.LogDebug("material '%s' loaded from '%s'", name, res.FullPath)
	return m, nil
}

func (ms *MaterialSystem) onFileChanged(path string) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ms.mu.RLock()
	_, cached := ms.materials[name]
	ms.mu.RUnlock()
	if !cached {
		return
	}

	m, err := ms.load(name)
	if err != nil {
		core.LogWarn("material '%s' reload failed: %s", name, err)
		return
	}
	ms.mu.RLock()
	listeners := append([]MaterialReloaded(nil), ms.listeners...)
	ms.mu.RUnlock()
	for _, fn := range listeners {
		fn(name, m)
	}
}

func (ms *MaterialSystem) Shutdown() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.materials = map[string]metadata.Material{metadata.DefaultMaterialName: metadata.DefaultMaterial()}
	ms.listeners = nil
	return nil
}
