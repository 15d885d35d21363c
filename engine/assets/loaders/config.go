package loaders

import (
	"unsafe"

	"github.com/spaghettifunk/dent/engine/config"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// ConfigLoader reads the engine TOML configuration.
type ConfigLoader struct{}

func (cl *ConfigLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeConfig,
		Name:     resourceName(path, params),
		FullPath: path,
		DataSize: uint64(unsafe.Sizeof(*cfg)),
		Data:     cfg,
	}, nil
}

func (cl *ConfigLoader) Unload(*metadata.Resource) error {
	return nil
}
