package rhi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TQwan/SpartanEngine/engine/core"
)

type DeviceOptions struct {
	Validation        bool
	AdapterPreference string
}

// Device owns the logical connection to one physical adapter. It is shared,
// read-mostly, by every other RHI component; none of them outlive it.
type Device struct {
	backend      Backend
	context      Context
	adapter      Adapter
	featureLevel FeatureLevel
	limits       Limits
	validation   bool
	initialized  bool

	pipelines *PipelineCache
}

// NewDevice enumerates adapters and negotiates a device context, walking
// the feature levels from highest to lowest. If creation fails only because
// the validation layer is unavailable, it retries once without it. On total
// failure no partial device is returned.
func NewDevice(backend Backend, options DeviceOptions) (*Device, error) {
	adapters, err := backend.EnumerateAdapters()
	if err != nil {
		core.LogError("device: adapter enumeration failed: %s", err)
		return nil, fmt.Errorf("device: %w", err)
	}
	if len(adapters) == 0 {
		core.LogError("device: no adapters reported by backend '%s'", backend.Name())
		return nil, fmt.Errorf("device: %w", core.ErrNoAdapter)
	}

	adapter := selectAdapter(adapters, options.AdapterPreference)
	core.LogInfo("device: selected adapter '%s'", adapter.Name)

	flags := ContextFlags(0)
	if options.Validation {
		flags |= FlagValidation
	}

	var context Context
	level := FeatureLevelUnknown
	var lastErr error
	for _, candidate := range FeatureLevels {
		ctx, err := backend.CreateContext(adapter, candidate, flags)
		if errors.Is(err, core.ErrDebugLayerUnavailable) && flags&FlagValidation != 0 {
			core.LogWarn("device: validation layer unavailable, retrying without it")
			flags &^= FlagValidation
			ctx, err = backend.CreateContext(adapter, candidate, flags)
		}
		if err == nil {
			context = ctx
			level = candidate
			break
		}
		lastErr = err
		core.LogDebug("device: feature level %s rejected: %s", candidate, err)
	}

	if context == nil {
		core.LogError("device: creation failed at every feature level: %s", lastErr)
		return nil, fmt.Errorf("device: creation failed at every feature level: %w", lastErr)
	}

	core.LogInfo("device: created on '%s' at feature level %s (backend %s)", adapter.Name, level, backend.Name())

	device := &Device{
		backend:      backend,
		context:      context,
		adapter:      adapter,
		featureLevel: level,
		limits:       context.Limits(),
		validation:   flags&FlagValidation != 0,
		initialized:  true,
	}

	if _, ok := context.(PipelineCompiler); ok {
		device.pipelines = newPipelineCache(device)
	}
	return device, nil
}

func selectAdapter(adapters []Adapter, preference string) Adapter {
	if preference != "" {
		needle := strings.ToLower(preference)
		for _, a := range adapters {
			if strings.Contains(strings.ToLower(a.Name), needle) {
				return a
			}
		}
		core.LogWarn("device: no adapter matches '%s', falling back to first viable", preference)
	}
	// Prefer a discrete GPU when nothing was asked for.
	for _, a := range adapters {
		if a.Discrete {
			return a
		}
	}
	return adapters[0]
}

func (d *Device) IsInitialized() bool {
	return d != nil && d.initialized
}

func (d *Device) Backend() Backend           { return d.backend }
func (d *Device) Context() Context           { return d.context }
func (d *Device) Adapter() Adapter           { return d.adapter }
func (d *Device) FeatureLevel() FeatureLevel { return d.featureLevel }
func (d *Device) Limits() Limits             { return d.limits }
func (d *Device) ValidationEnabled() bool    { return d.validation }

// Pipelines is the device-owned pipeline object cache. Nil on immediate
// mode backends, which have no pipeline objects to cache.
func (d *Device) Pipelines() *PipelineCache {
	return d.pipelines
}

func (d *Device) binder() (IncrementalBinder, bool) {
	b, ok := d.context.(IncrementalBinder)
	return b, ok
}

func (d *Device) compiler() (PipelineCompiler, bool) {
	c, ok := d.context.(PipelineCompiler)
	return c, ok
}

func (d *Device) WaitIdle() error {
	if !d.IsInitialized() {
		return core.ErrDeviceNotReady
	}
	return d.context.WaitIdle()
}

// Destroy waits for outstanding GPU work, tears down cached pipelines, then
// releases the context. The device is invalid afterwards.
func (d *Device) Destroy() error {
	if !d.IsInitialized() {
		return core.ErrDeviceNotReady
	}
	if d.pipelines != nil {
		if err := d.pipelines.Clear(); err != nil {
			core.LogWarn("device: clearing pipeline cache: %s", err)
		}
	}
	if err := d.context.WaitIdle(); err != nil {
		core.LogWarn("device: wait idle before destroy: %s", err)
	}
	d.initialized = false
	return d.context.Destroy()
}
