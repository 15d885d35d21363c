package engine

import (
	"github.com/spaghettifunk/dent/engine/core"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name     string
	LogLevel core.LogLevel
	// AssetsDir is the root the asset manager indexes and watches.
	AssetsDir string
	// ConfigName names the TOML file under AssetsDir/config, without extension.
	// A missing file runs the engine on the default configuration.
	ConfigName string
}
