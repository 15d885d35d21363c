package systems

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/dent/engine/assets"
	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// MeshLoaded receives the outcome of LoadAsync.
type MeshLoaded func(mesh *metadata.Mesh, err error)

// MeshLoaderSystem reads model files from assets/models.
type MeshLoaderSystem struct {
	assetManager *assets.AssetManager
	jobSystem    *JobSystem
}

func NewMeshLoaderSystem(am *assets.AssetManager, js *JobSystem) (*MeshLoaderSystem, error) {
	if am == nil {
		return nil, fmt.Errorf("mesh loader requires an asset manager")
	}
	return &MeshLoaderSystem{
		assetManager: am,
		jobSystem:    js,
	}, nil
}

func (mls *MeshLoaderSystem) Shutdown() error {
	return nil
}

// LoadFromResource loads the model with the given name synchronously.
func (mls *MeshLoaderSystem) LoadFromResource(resourceName string) (*metadata.Mesh, error) {
	res, err := mls.meshLoadJobStart(context.Background(), resourceName)
	if err != nil {
		return nil, err
	}
	return res.(*metadata.Mesh), nil
}

/**
 * @brief Loads the named model on the job system and hands the mesh to
 * onLoaded from a worker goroutine.
 */
func (mls *MeshLoaderSystem) LoadAsync(resourceName string, onLoaded MeshLoaded) error {
	if mls.jobSystem == nil {
		go onLoaded(mls.LoadFromResource(resourceName))
		return nil
	}
	return mls.jobSystem.Submit(metadata.JobTask{
		JobType:     metadata.JOB_TYPE_RESOURCE_LOAD,
		InputParams: resourceName,
		OnStart:     mls.meshLoadJobStart,
		OnComplete: func(result interface{}) {
			core.LogDebug("Successfully loaded mesh '%s'.", resourceName)
			onLoaded(result.(*metadata.Mesh), nil)
		},
		OnFailure: func(err error) {
			core.LogError("Failed to load mesh '%s': %s", resourceName, err)
			onLoaded(nil, err)
		},
	})
}

func (mls *MeshLoaderSystem) meshLoadJobStart(ctx context.Context, params interface{}) (interface{}, error) {
	name, ok := params.(string)
	if !ok {
		return nil, fmt.Errorf("failed to cast params to `string`")
	}
	res, err := mls.assetManager.LoadAsset(name, metadata.ResourceTypeModel, nil)
	if err != nil {
		return nil, err
	}
	mesh, ok := res.Data.(*metadata.Mesh)
	if !ok {
		return nil, fmt.Errorf("resource '%s' is not a mesh", res.FullPath)
	}
	for _, g := range mesh.Geometries {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	return mesh, nil
}
