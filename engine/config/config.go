package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/deform"
	"github.com/spaghettifunk/dent/engine/math"
)

const (
	MaxWorkers   = 64
	MaxQueueSize = 4096
	MaxTargetFPS = 240
)

// Config is the content of the engine TOML file.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Deformation DeformationConfig `toml:"deformation"`
	Materials   MaterialsConfig   `toml:"materials"`
}

type ApplicationConfig struct {
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
	// TargetFPS paces the fixed-step loop.
	TargetFPS int `toml:"target_fps"`
	// MaxFrames stops the loop after that many frames. Zero runs until quit.
	MaxFrames uint64 `toml:"max_frames"`
}

type DeformationConfig struct {
	Workers               int    `toml:"workers"`
	QueueSize             int    `toml:"queue_size"`
	DeformerTag           string `toml:"deformer_tag"`
	DeformableTag         string `toml:"deformable_tag"`
	IgnoreLayer           string `toml:"ignore_layer"`
	DeformerLayer         string `toml:"deformer_layer"`
	HitBackfaces          bool   `toml:"hit_backfaces"`
	NearestIndexThreshold int    `toml:"nearest_index_threshold"`
}

// MaterialsConfig names the material files, without extension, under assets/materials.
type MaterialsConfig struct {
	Pristine string `toml:"pristine"`
	Impact   string `toml:"impact"`
}

func Default() *Config {
	settings := deform.DefaultSettings()
	return &Config{
		Application: ApplicationConfig{
			Name:      "Dent Testbed",
			LogLevel:  "info",
			TargetFPS: 60,
		},
		Deformation: DeformationConfig{
			Workers:               runtime.NumCPU(),
			QueueSize:             64,
			DeformerTag:           settings.DeformerTag,
			DeformableTag:         "Deformable",
			IgnoreLayer:           settings.IgnoreLayer,
			DeformerLayer:         settings.DeformerLayer,
			HitBackfaces:          settings.HitBackfaces,
			NearestIndexThreshold: settings.NearestIndexThreshold,
		},
		Materials: MaterialsConfig{
			Pristine: "pristine",
			Impact:   "impact",
		},
	}
}

// Load reads the TOML file at path. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable names and clamps numeric values into range.
func (c *Config) Validate() error {
	d := &c.Deformation
	for key, value := range map[string]string{
		"deformer_tag":   d.DeformerTag,
		"deformable_tag": d.DeformableTag,
		"ignore_layer":   d.IgnoreLayer,
		"deformer_layer": d.DeformerLayer,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: deformation.%s must not be empty", core.ErrConfigInvalid, key)
		}
	}
	if d.DeformerTag == d.DeformableTag {
		return fmt.Errorf("%w: deformer and deformable share the tag '%s'", core.ErrConfigInvalid, d.DeformerTag)
	}
	if d.NearestIndexThreshold < 0 {
		return fmt.Errorf("%w: deformation.nearest_index_threshold is negative", core.ErrConfigInvalid)
	}

	d.Workers = math.Clamp(d.Workers, 1, MaxWorkers)
	d.QueueSize = math.Clamp(d.QueueSize, 0, MaxQueueSize)
	c.Application.TargetFPS = math.Clamp(c.Application.TargetFPS, 1, MaxTargetFPS)
	if c.Application.Name == "" {
		c.Application.Name = Default().Application.Name
	}
	return nil
}

// Save writes c as TOML to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Settings() deform.Settings {
	return deform.Settings{
		DeformerTag:           c.Deformation.DeformerTag,
		IgnoreLayer:           c.Deformation.IgnoreLayer,
		DeformerLayer:         c.Deformation.DeformerLayer,
		HitBackfaces:          c.Deformation.HitBackfaces,
		NearestIndexThreshold: c.Deformation.NearestIndexThreshold,
	}
}

func (c *Config) LogLevel() core.LogLevel {
	return core.ParseLogLevel(c.Application.LogLevel)
}
