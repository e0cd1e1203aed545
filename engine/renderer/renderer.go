// Package renderer is the frontend over the RHI: it negotiates a device for
// the configured backend, owns the mutable pipeline state and the default
// fixed-function states, and drives the per-frame protocol.
package renderer

import (
	"fmt"

	"github.com/TQwan/SpartanEngine/engine/config"
	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/platform"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi/opengl"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi/vulkan"
	"github.com/TQwan/SpartanEngine/engine/shaders"
)

// frameContext is the optional per-frame lifecycle of a backend context.
// The explicit backend records into a command buffer between the two calls;
// immediate mode backends work without either.
type frameContext interface {
	BeginFrame() error
	EndFrame() error
}

type Renderer struct {
	platform *platform.Platform
	device   *rhi.Device
	state    *rhi.PipelineState
	watcher  *shaders.Watcher

	rasterizerSolid     *rhi.RasterizerState
	rasterizerWireframe *rhi.RasterizerState
	blendDisabled       *rhi.BlendState
	blendAlpha          *rhi.BlendState
	depthReadWrite      *rhi.DepthStencilState
	depthOff            *rhi.DepthStencilState

	frameNumber uint64
}

func New(cfg *config.Config, p *platform.Platform) (*Renderer, error) {
	var backend rhi.Backend
	switch cfg.Renderer.Backend {
	case "", "vulkan":
		backend = vulkan.New(p, cfg.Application.Name)
	case "opengl":
		backend = opengl.New(p)
	default:
		return nil, fmt.Errorf("renderer: unknown backend '%s'", cfg.Renderer.Backend)
	}

	device, err := rhi.NewDevice(backend, rhi.DeviceOptions{
		Validation:        cfg.Renderer.Validation,
		AdapterPreference: cfg.Renderer.AdapterPreference,
	})
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		platform: p,
		device:   device,
		state:    rhi.NewPipelineState(device),
	}
	r.createDefaultStates()

	// Hot reload only matters where pipeline objects exist to invalidate.
	if cache := device.Pipelines(); cache != nil {
		watcher, err := shaders.NewWatcher(cache)
		if err != nil {
			core.LogWarn("renderer: shader watcher unavailable: %s", err)
		} else {
			if cfg.Renderer.ShaderDir != "" {
				if err := watcher.WatchDir(cfg.Renderer.ShaderDir); err != nil {
					core.LogWarn("renderer: watching '%s': %s", cfg.Renderer.ShaderDir, err)
				}
			}
			watcher.Start()
			r.watcher = watcher
		}
	}
	return r, nil
}

func (r *Renderer) createDefaultStates() {
	r.rasterizerSolid = rhi.NewRasterizerState("solid_cull_back", rhi.FillSolid, rhi.CullBack, 1.0, false)
	r.rasterizerWireframe = rhi.NewRasterizerState("wireframe_cull_none", rhi.FillWireframe, rhi.CullNone, 1.0, false)
	r.blendDisabled = rhi.NewBlendState("blend_disabled", false,
		rhi.BlendOne, rhi.BlendZero, rhi.BlendOpAdd,
		rhi.BlendOne, rhi.BlendZero, rhi.BlendOpAdd, 0.0)
	r.blendAlpha = rhi.NewBlendState("blend_alpha", true,
		rhi.BlendSrcAlpha, rhi.BlendInvSrcAlpha, rhi.BlendOpAdd,
		rhi.BlendOne, rhi.BlendInvSrcAlpha, rhi.BlendOpAdd, 0.0)
	r.depthReadWrite = rhi.NewDepthStencilState("depth_read_write", true, true, rhi.CompareLessEqual,
		false, rhi.CompareAlways, rhi.StencilKeep, rhi.StencilKeep, rhi.StencilKeep)
	r.depthOff = rhi.NewDepthStencilState("depth_off", false, false, rhi.CompareAlways,
		false, rhi.CompareAlways, rhi.StencilKeep, rhi.StencilKeep, rhi.StencilKeep)
}

func (r *Renderer) Device() *rhi.Device       { return r.device }
func (r *Renderer) State() *rhi.PipelineState { return r.state }
func (r *Renderer) Watcher() *shaders.Watcher { return r.watcher }

func (r *Renderer) RasterizerSolid() *rhi.RasterizerState     { return r.rasterizerSolid }
func (r *Renderer) RasterizerWireframe() *rhi.RasterizerState { return r.rasterizerWireframe }
func (r *Renderer) BlendDisabled() *rhi.BlendState            { return r.blendDisabled }
func (r *Renderer) BlendAlpha() *rhi.BlendState               { return r.blendAlpha }
func (r *Renderer) DepthReadWrite() *rhi.DepthStencilState    { return r.depthReadWrite }
func (r *Renderer) DepthOff() *rhi.DepthStencilState          { return r.depthOff }

// BeginFrame resets the per-frame bind counters and opens backend command
// recording where the backend needs it.
func (r *Renderer) BeginFrame() error {
	core.Profiler().Reset()
	if fc, ok := r.device.Context().(frameContext); ok {
		return fc.BeginFrame()
	}
	return nil
}

// EndFrame submits recorded work, retires pipelines evicted during the
// frame, and presents.
func (r *Renderer) EndFrame() error {
	if fc, ok := r.device.Context().(frameContext); ok {
		if err := fc.EndFrame(); err != nil {
			return err
		}
	}
	if cache := r.device.Pipelines(); cache != nil {
		if err := cache.DrainRetired(); err != nil {
			core.LogWarn("renderer: draining retired pipelines: %s", err)
		}
	}
	if _, ok := r.device.Context().(rhi.IncrementalBinder); ok && r.platform.Window != nil {
		r.platform.Window.SwapBuffers()
	}
	r.frameNumber++
	return nil
}

func (r *Renderer) FrameNumber() uint64 {
	return r.frameNumber
}

func (r *Renderer) Shutdown() error {
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
	if r.device != nil {
		return r.device.Destroy()
	}
	return nil
}
