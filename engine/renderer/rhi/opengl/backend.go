// Package opengl is the immediate-mode backend: pipeline state deltas map
// onto individual calls against the persistent GL context.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/platform"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

// GL_CONTEXT_FLAG_DEBUG_BIT, core in 4.3 so absent from the 4.1 bindings.
const contextFlagDebugBit = 0x00000002

type Backend struct {
	platform *platform.Platform
}

func New(p *platform.Platform) *Backend {
	return &Backend{platform: p}
}

func (b *Backend) Name() string {
	return "opengl"
}

// glVersion maps a capability level onto the context version requested from
// the window system.
func glVersion(level rhi.FeatureLevel) (major, minor int) {
	switch level {
	case rhi.FeatureLevel13:
		return 4, 6
	case rhi.FeatureLevel12:
		return 4, 4
	case rhi.FeatureLevel11:
		return 4, 2
	default:
		return 4, 1
	}
}

// EnumerateAdapters reports the single adapter the GL context is bound to.
// The API gives no adapter choice, so the renderer string from a probe
// context is the best identification available.
func (b *Backend) EnumerateAdapters() ([]rhi.Adapter, error) {
	if b.platform.Window == nil {
		if err := b.platform.CreateWindow(platform.ContextHint{OpenGL: true, MajorVersion: 4, MinorVersion: 1}); err != nil {
			return nil, fmt.Errorf("opengl: creating probe context: %w", err)
		}
		if err := gl.Init(); err != nil {
			return nil, fmt.Errorf("opengl: loading functions: %w", err)
		}
	}

	name := "OpenGL adapter"
	if renderer := gl.GetString(gl.RENDERER); renderer != nil {
		name = gl.GoStr(renderer)
	}
	return []rhi.Adapter{{Name: name, Discrete: true}}, nil
}

func (b *Backend) CreateContext(adapter rhi.Adapter, level rhi.FeatureLevel, flags rhi.ContextFlags) (rhi.Context, error) {
	major, minor := glVersion(level)
	debug := flags&rhi.FlagValidation != 0

	hint := platform.ContextHint{
		OpenGL:       true,
		MajorVersion: major,
		MinorVersion: minor,
		Debug:        debug,
	}
	if err := b.platform.CreateWindow(hint); err != nil {
		return nil, fmt.Errorf("opengl: creating %d.%d context: %w", major, minor, err)
	}
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl: loading functions: %w", err)
	}

	// The window system may silently hand back a non-debug context; the
	// caller then retries without validation.
	if debug {
		var contextFlags int32
		gl.GetIntegerv(gl.CONTEXT_FLAGS, &contextFlags)
		if contextFlags&contextFlagDebugBit == 0 {
			return nil, fmt.Errorf("opengl: no debug context at %d.%d: %w", major, minor, core.ErrDebugLayerUnavailable)
		}
	}

	ctx := &Context{backend: b, level: level}
	if err := ctx.initialize(); err != nil {
		return nil, err
	}

	core.LogInfo("opengl: context created at GL %d.%d (debug: %t)", major, minor, debug)
	return ctx, nil
}
