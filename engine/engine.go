package engine

import (
	"github.com/TQwan/SpartanEngine/engine/config"
	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/platform"
	"github.com/TQwan/SpartanEngine/engine/renderer"
)

type Stage uint8

const (
	EngineStageUninitialized Stage = iota
	EngineStageInitializing
	EngineStageInitialized
	EngineStageRunning
	EngineStageShuttingDown
)

// Frame is the per-frame callback: the application binds state and issues
// draws between the renderer's BeginFrame and EndFrame.
type Frame func(r *renderer.Renderer, delta float64) error

type Engine struct {
	currentStage Stage
	config       *config.Config
	platform     *platform.Platform
	renderer     *renderer.Renderer
	clock        *core.Clock
	isRunning    bool
	lastTime     float64

	onFrame Frame
}

func New(cfg *config.Config, onFrame Frame) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	core.Metrics().Reset()

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		platform:     p,
		clock:        core.NewClock(),
		onFrame:      onFrame,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	app := e.config.Application
	if err := e.platform.Startup(app.Name, app.X, app.Y, app.Width, app.Height); err != nil {
		return err
	}

	r, err := renderer.New(e.config, e.platform)
	if err != nil {
		return err
	}
	e.renderer = r

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()
	e.isRunning = true
	e.currentStage = EngineStageRunning

	for e.isRunning {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning = false
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime) / 1e9
		e.lastTime = currentTime

		if err := e.renderer.BeginFrame(); err != nil {
			core.LogError("engine: begin frame: %s", err)
			e.isRunning = false
			break
		}
		if e.onFrame != nil {
			if err := e.onFrame(e.renderer, delta); err != nil {
				core.LogError("engine: frame callback: %s", err)
				e.isRunning = false
				break
			}
		}
		if err := e.renderer.EndFrame(); err != nil {
			core.LogError("engine: end frame: %s", err)
			e.isRunning = false
			break
		}

		core.Metrics().Update(delta)
	}

	return e.Shutdown()
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			core.LogWarn("engine: renderer shutdown: %s", err)
		}
		e.renderer = nil
	}
	return e.platform.Shutdown()
}
