package loaders

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

type TextLoader struct{}

func (tl *TextLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &metadata.Resource{
		Type:     metadata.ResourceTypeText,
		Name:     resourceName(path, params),
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     string(buf),
	}, nil
}

func (tl *TextLoader) Unload(*metadata.Resource) error {
	return nil
}

// resourceName prefers params["name"] and falls back to the file name
// without extension.
func resourceName(path string, params interface{}) string {
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		return p["name"]
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
