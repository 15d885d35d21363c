package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/config"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

func newAssetTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"materials", "models", "config"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	files := map[string]string{
		"materials/impact.amt": "name = impact\ndiffuse_colour = 0.3 0.3 0.3 1\n",
		"models/tri.obj":       "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n",
		"config/dent.toml":     "[deformation]\nworkers = 2\n",
		"models/ignored.bin":   "\x00\x01",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

func newAssetManager(t *testing.T, root string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(root))
	t.Cleanup(func() { require.NoError(t, am.Shutdown()) })
	return am
}

func TestAssetManagerIndexesAndLoads(t *testing.T) {
	am := newAssetManager(t, newAssetTree(t))
	assert.Len(t, am.Assets(), 3)

	res, err := am.LoadAsset("impact", metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	assert.Equal(t, "impact", res.Data.(*metadata.MaterialConfig).Name)

	res, err = am.LoadAsset("tri", metadata.ResourceTypeModel, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Data.(*metadata.Mesh).Geometries[0].TriangleCount())

	res, err = am.LoadAsset("dent", metadata.ResourceTypeConfig, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Data.(*config.Config).Deformation.Workers)
	require.NoError(t, am.UnloadAsset(res))

	_, err = am.LoadAsset("absent", metadata.ResourceTypeMaterial, nil)
	assert.ErrorIs(t, err, ErrAssetNotFound)

	_, err = am.LoadAsset("x", metadata.ResourceTypeNone, nil)
	assert.Error(t, err)
}

func TestAssetManagerNotifiesOnWrite(t *testing.T) {
	root := newAssetTree(t)
	am := newAssetManager(t, root)

	changed := make(chan string, 8)
	am.Watch(metadata.ResourceTypeConfig, func(path string) { changed <- path })

	path := filepath.Join(root, "config", "dent.toml")
	require.NoError(t, os.WriteFile(path, []byte("[deformation]\nworkers = 6\n"), 0o644))

	select {
	case got := <-changed:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	// the first event can arrive before the write is complete
	assert.Eventually(t, func() bool {
		res, err := am.LoadAsset("dent", metadata.ResourceTypeConfig, nil)
		return err == nil && res.Data.(*config.Config).Deformation.Workers == 6
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAssetManagerIndexesNewFiles(t *testing.T) {
	root := newAssetTree(t)
	am := newAssetManager(t, root)

	path := filepath.Join(root, "materials", "fresh.amt")
	require.NoError(t, os.WriteFile(path, []byte("name = fresh\n"), 0o644))

	assert.Eventually(t, func() bool {
		_, err := am.LoadAsset("fresh", metadata.ResourceTypeMaterial, nil)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, err := am.LoadAsset("fresh", metadata.ResourceTypeMaterial, nil)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAssetManagerShutdownTwice(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
}
