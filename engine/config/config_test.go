package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/deform"
)

func TestDefaultMatchesDeformSettings(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, deform.DefaultSettings(), cfg.Settings())
	assert.Equal(t, "Deformable", cfg.Deformation.DeformableTag)
	assert.Equal(t, core.InfoLevel, cfg.LogLevel())
}

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
[application]
log_level = "debug"

[deformation]
workers = 3
hit_backfaces = false
nearest_index_threshold = 128
`))
	require.NoError(t, err)

	assert.Equal(t, core.DebugLevel, cfg.LogLevel())
	assert.Equal(t, "Dent Testbed", cfg.Application.Name)
	assert.Equal(t, 3, cfg.Deformation.Workers)
	assert.Equal(t, 64, cfg.Deformation.QueueSize)
	assert.Equal(t, "Ignore Raycast", cfg.Deformation.IgnoreLayer)

	settings := cfg.Settings()
	assert.False(t, settings.HitBackfaces)
	assert.Equal(t, 128, settings.NearestIndexThreshold)
	assert.Equal(t, "Deformer", settings.DeformerTag)
}

func TestParseClampsNumbers(t *testing.T) {
	cfg, err := Parse([]byte(`
[application]
target_fps = 10000

[deformation]
workers = 0
queue_size = -5
`))
	require.NoError(t, err)
	assert.Equal(t, MaxTargetFPS, cfg.Application.TargetFPS)
	assert.Equal(t, 1, cfg.Deformation.Workers)
	assert.Equal(t, 0, cfg.Deformation.QueueSize)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "[deformation\nworkers = 2"},
		{"wrong type", "[deformation]\nworkers = \"many\""},
		{"empty tag", "[deformation]\ndeformer_tag = \"\""},
		{"blank layer", "[deformation]\nignore_layer = \"  \""},
		{"shared tag", "[deformation]\ndeformable_tag = \"Deformer\""},
		{"negative threshold", "[deformation]\nnearest_index_threshold = -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dent.toml")
	cfg := Default()
	cfg.Deformation.Workers = 5
	cfg.Materials.Impact = "scorched"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
