package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/dent/engine/assets"
	"github.com/spaghettifunk/dent/engine/config"
	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
	"github.com/spaghettifunk/dent/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  atomic.Uint32
	gameInstance  *Game
	isRunning     atomic.Bool
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	clock         *core.Clock
	lastTime      float64
	frameCount    uint64

	shutdownOnce sync.Once
	shutdownErr  error
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("game and application config are required")
	}
	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	e := &Engine{
		gameInstance: g,
		clock:        core.NewClock(),
		assetManager: am,
	}
	e.setStage(EngineStageUninitialized)
	return e, nil
}

func (e *Engine) Stage() Stage {
	return Stage(e.currentStage.Load())
}

func (e *Engine) setStage(s Stage) {
	e.currentStage.Store(uint32(s))
}

func (e *Engine) Initialize() error {
	e.setStage(EngineStageBooting)
	app := e.gameInstance.ApplicationConfig
	core.SetLogLevel(app.LogLevel)

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)

	if err := e.assetManager.Initialize(app.AssetsDir); err != nil {
		return err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	core.SetLogLevel(cfg.LogLevel())

	sm, err := systems.NewSystemManager(cfg, e.assetManager)
	if err != nil {
		return err
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm
	e.assetManager.Watch(metadata.ResourceTypeConfig, e.onConfigChanged)

	if e.gameInstance.FnBoot != nil {
		if err := e.gameInstance.FnBoot(); err != nil {
			return err
		}
	}
	e.setStage(EngineStageBootComplete)

	e.setStage(EngineStageInitializing)
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	e.setStage(EngineStageInitialized)
	core.LogInfo("%s initialized (%d deformation workers)", cfg.Application.Name, cfg.Deformation.Workers)
	return nil
}

func (e *Engine) loadConfig() (*config.Config, error) {
	name := e.gameInstance.ApplicationConfig.ConfigName
	if name == "" {
		return config.Default(), nil
	}
	res, err := e.assetManager.LoadAsset(name, metadata.ResourceTypeConfig, nil)
	if errors.Is(err, assets.ErrAssetNotFound) {
		core.LogWarn("config '%s' not found, using defaults", name)
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return res.Data.(*config.Config), nil
}

// Run drives the game with a fixed-rate loop until Stop is called, a quit
// event arrives or the configured frame limit is reached.
func (e *Engine) Run() error {
	if e.Stage() != EngineStageInitialized {
		return fmt.Errorf("engine must be initialized before running")
	}
	e.setStage(EngineStageRunning)
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		cfg := e.systemManager.Config()
		targetFrameSeconds := 1.0 / float64(cfg.Application.TargetFPS)

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				e.isRunning.Store(false)
				return err
			}
		}

		if err := core.InputUpdate(delta); err != nil {
			return err
		}
		e.lastTime = currentTime
		e.frameCount++
		if cfg.Application.MaxFrames > 0 && e.frameCount >= cfg.Application.MaxFrames {
			core.LogInfo("frame limit of %d reached", cfg.Application.MaxFrames)
			e.isRunning.Store(false)
		}

		e.clock.Update()
		remaining := targetFrameSeconds - (e.clock.Elapsed() - currentTime)
		if remaining > 0 {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}
	}
	return nil
}

func (e *Engine) FrameCount() uint64 {
	return e.frameCount
}

// Stop asks the loop to exit after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.shutdownOnce.Do(func() {
		e.Stop()
		e.setStage(EngineStageShuttingDown)
		e.shutdownErr = e.shutdown()
	})
	return e.shutdownErr
}

func (e *Engine) shutdown() error {
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			return err
		}
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			return err
		}
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	if err := core.InputShutdown(); err != nil {
		return err
	}
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onConfigChanged(path string) {
	name := e.gameInstance.ApplicationConfig.ConfigName
	if name == "" || filepath.Base(path) != name+".toml" {
		return
	}
	cfg, err := config.Load(path)
	if err != nil {
		core.LogWarn("config reload failed, keeping the running one: %s", err)
		return
	}
	core.SetLogLevel(cfg.LogLevel())
	e.systemManager.ApplyConfig(cfg)
	core.LogInfo("config '%s' reloaded", path)
}
