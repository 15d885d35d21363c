package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/core"
)

func writeAssets(t *testing.T, config string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "dent.toml"), []byte(config), 0o644))
	return root
}

func newGame(root string) (*Game, *int) {
	updates := 0
	g := &Game{
		ApplicationConfig: &ApplicationConfig{
			Name:       "engine test",
			LogLevel:   core.WarnLevel,
			AssetsDir:  root,
			ConfigName: "dent",
		},
	}
	g.FnUpdate = func(deltaTime float64) error {
		updates++
		return nil
	}
	return g, &updates
}

func TestEngineRunsUntilFrameLimit(t *testing.T) {
	root := writeAssets(t, "[application]\ntarget_fps = 240\nmax_frames = 5\nlog_level = \"warn\"\n")
	g, updates := newGame(root)
	booted, initialized, shutdown := false, false, 0
	g.FnBoot = func() error { booted = true; return nil }
	g.FnInitialize = func() error {
		initialized = true
		assert.NotNil(t, g.SystemManager)
		return nil
	}
	g.FnShutdown = func() error { shutdown++; return nil }

	e, err := New(g)
	require.NoError(t, err)
	assert.Error(t, e.Run(), "running before initialize")

	require.NoError(t, e.Initialize())
	assert.True(t, booted)
	assert.True(t, initialized)
	assert.Equal(t, EngineStageInitialized, e.Stage())

	require.NoError(t, e.Run())
	assert.Equal(t, 5, *updates)
	assert.Equal(t, uint64(5), e.FrameCount())

	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, shutdown)
	assert.Equal(t, EngineStageShuttingDown, e.Stage())
}

func TestEngineStopsOnQuitEvent(t *testing.T) {
	root := writeAssets(t, "[application]\ntarget_fps = 240\n")
	g, updates := newGame(root)
	g.FnUpdate = func(deltaTime float64) error {
		*updates++
		if *updates == 3 {
			core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
		}
		return nil
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run())
	assert.Equal(t, 3, *updates)
}

func TestEngineUsesDefaultsWithoutConfigFile(t *testing.T) {
	g, _ := newGame(t.TempDir())
	g.ApplicationConfig.ConfigName = "absent"

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	assert.Equal(t, "Deformer", g.SystemManager.Config().Deformation.DeformerTag)
}

func TestEngineReloadsConfig(t *testing.T) {
	root := writeAssets(t, "[deformation]\nhit_backfaces = true\n")
	g, _ := newGame(root)

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()
	require.True(t, g.SystemManager.DeformationSystem.Settings().HitBackfaces)

	path := filepath.Join(root, "config", "dent.toml")
	require.NoError(t, os.WriteFile(path, []byte("[deformation]\nhit_backfaces = false\ndeformer_tag = \"Hammer\"\n"), 0o644))

	assert.Eventually(t, func() bool {
		s := g.SystemManager.DeformationSystem.Settings()
		return !s.HitBackfaces && s.DeformerTag == "Hammer"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(&Game{})
	assert.Error(t, err)
}
