package rhi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TQwan/SpartanEngine/engine/core"
)

func TestDeviceWalksFeatureLevelsDown(t *testing.T) {
	backend := &fakeBackend{
		adapters: singleAdapter(),
		createFn: func(level FeatureLevel, flags ContextFlags) (Context, error) {
			if level > FeatureLevel11 {
				return nil, errors.New("driver too old")
			}
			return newFakeBinder(), nil
		},
	}

	device, err := NewDevice(backend, DeviceOptions{})
	require.NoError(t, err)
	assert.Equal(t, FeatureLevel11, device.FeatureLevel())
	require.Len(t, backend.attempts, 3)
	assert.Equal(t, FeatureLevel13, backend.attempts[0].level)
	assert.Equal(t, FeatureLevel12, backend.attempts[1].level)
	assert.Equal(t, FeatureLevel11, backend.attempts[2].level)
}

func TestDeviceRetriesWithoutValidation(t *testing.T) {
	backend := &fakeBackend{
		adapters: singleAdapter(),
		createFn: func(level FeatureLevel, flags ContextFlags) (Context, error) {
			if flags&FlagValidation != 0 {
				return nil, core.ErrDebugLayerUnavailable
			}
			return newFakeBinder(), nil
		},
	}

	device, err := NewDevice(backend, DeviceOptions{Validation: true})
	require.NoError(t, err)

	// One failed attempt with validation, then one success without, all at
	// the highest level.
	require.Len(t, backend.attempts, 2)
	assert.Equal(t, FeatureLevel13, backend.attempts[0].level)
	assert.NotZero(t, backend.attempts[0].flags&FlagValidation)
	assert.Equal(t, FeatureLevel13, backend.attempts[1].level)
	assert.Zero(t, backend.attempts[1].flags&FlagValidation)

	assert.False(t, device.ValidationEnabled())
	assert.Equal(t, FeatureLevel13, device.FeatureLevel())
}

func TestDeviceValidationRetryHappensOnce(t *testing.T) {
	backend := &fakeBackend{
		adapters: singleAdapter(),
		createFn: func(level FeatureLevel, flags ContextFlags) (Context, error) {
			if flags&FlagValidation != 0 {
				return nil, core.ErrDebugLayerUnavailable
			}
			if level > FeatureLevel10 {
				return nil, errors.New("driver too old")
			}
			return newFakeBinder(), nil
		},
	}

	device, err := NewDevice(backend, DeviceOptions{Validation: true})
	require.NoError(t, err)
	assert.Equal(t, FeatureLevel10, device.FeatureLevel())

	// The validation flag is dropped after the first retry: lower levels are
	// tried without it, not re-tried with it.
	withValidation := 0
	for _, attempt := range backend.attempts {
		if attempt.flags&FlagValidation != 0 {
			withValidation++
		}
	}
	assert.Equal(t, 1, withValidation)
}

func TestDeviceFailsWithoutPartialState(t *testing.T) {
	backend := &fakeBackend{
		adapters: singleAdapter(),
		createFn: func(level FeatureLevel, flags ContextFlags) (Context, error) {
			return nil, errors.New("no can do")
		},
	}

	device, err := NewDevice(backend, DeviceOptions{})
	assert.Error(t, err)
	assert.Nil(t, device)
	assert.Len(t, backend.attempts, len(FeatureLevels))
}

func TestDeviceRequiresAnAdapter(t *testing.T) {
	backend := &fakeBackend{
		createFn: func(level FeatureLevel, flags ContextFlags) (Context, error) {
			return newFakeBinder(), nil
		},
	}

	device, err := NewDevice(backend, DeviceOptions{})
	assert.ErrorIs(t, err, core.ErrNoAdapter)
	assert.Nil(t, device)
	assert.Empty(t, backend.attempts, "no creation attempt without an adapter")
}

func TestDeviceAdapterSelection(t *testing.T) {
	adapters := []Adapter{
		{Name: "Integrated Graphics 630", Discrete: false},
		{Name: "GeForce RTX 3080", Discrete: true},
		{Name: "Radeon RX 6800", Discrete: true},
	}

	assert.Equal(t, "Radeon RX 6800", selectAdapter(adapters, "radeon").Name)
	assert.Equal(t, "GeForce RTX 3080", selectAdapter(adapters, "").Name, "discrete preferred by default")
	assert.Equal(t, "GeForce RTX 3080", selectAdapter(adapters, "quadro").Name, "unmatched preference falls back")

	integratedOnly := []Adapter{{Name: "Integrated Graphics 630"}}
	assert.Equal(t, "Integrated Graphics 630", selectAdapter(integratedOnly, "").Name)
}

func TestDeviceCapabilityDispatch(t *testing.T) {
	binderDevice := newBinderDevice(newFakeBinder())
	assert.Nil(t, binderDevice.Pipelines(), "immediate mode has no pipeline objects to cache")
	_, ok := binderDevice.binder()
	assert.True(t, ok)
	_, ok = binderDevice.compiler()
	assert.False(t, ok)

	compilerDevice := newCompilerDevice(newFakeCompiler())
	assert.NotNil(t, compilerDevice.Pipelines())
	_, ok = compilerDevice.compiler()
	assert.True(t, ok)
	_, ok = compilerDevice.binder()
	assert.False(t, ok)
}

func TestDeviceWaitIdleRequiresInitialization(t *testing.T) {
	var device *Device
	assert.False(t, device.IsInitialized())

	binder := newFakeBinder()
	initialized := newBinderDevice(binder)
	require.NoError(t, initialized.WaitIdle())
	assert.Equal(t, 1, binder.waitIdleCount)

	require.NoError(t, initialized.Destroy())
	assert.ErrorIs(t, initialized.WaitIdle(), core.ErrDeviceNotReady)
}
