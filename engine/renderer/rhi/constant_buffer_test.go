package rhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TQwan/SpartanEngine/engine/core"
)

func TestConstantBufferCreate(t *testing.T) {
	binder := newFakeBinder()
	device := newBinderDevice(binder)

	buffer := NewConstantBuffer(device, "frame", false)
	require.NoError(t, buffer.Create(256, 8))

	assert.Equal(t, uint32(256), buffer.Stride())
	assert.Equal(t, uint32(8), buffer.ElementCount())
	assert.Equal(t, uint64(2048), buffer.SizeGPU())
	require.Len(t, binder.buffers, 1)
	assert.Equal(t, uint64(2048), binder.buffers[0].size)

	// Storage exists, creating again without a release must fail.
	err := buffer.Create(256, 8)
	assert.ErrorIs(t, err, core.ErrBufferAllocated)

	require.NoError(t, buffer.Release())
	assert.True(t, binder.buffers[0].destroyed)
	require.NoError(t, buffer.Create(256, 8))
}

func TestConstantBufferCreateRejectsZeroSizes(t *testing.T) {
	device := newBinderDevice(newFakeBinder())

	buffer := NewConstantBuffer(device, "bad", false)
	assert.ErrorIs(t, buffer.Create(0, 8), core.ErrInvalidParameter)
	assert.ErrorIs(t, buffer.Create(64, 0), core.ErrInvalidParameter)
}

func TestConstantBufferTypedCreate(t *testing.T) {
	device := newBinderDevice(newFakeBinder())

	type frameData struct {
		ViewProjection [16]float32
	}
	buffer, err := CreateConstantBuffer[frameData](device, "frame", 1, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), buffer.Stride())
	assert.Equal(t, uint32(1), buffer.ElementCount())
}

func TestConstantBufferOffsets(t *testing.T) {
	binder := newFakeBinder()
	device := newBinderDevice(binder)

	buffer := NewConstantBuffer(device, "frame", false)
	require.NoError(t, buffer.Create(64, 4))

	// Mapping a slot selects the static offset: byte offset is always
	// index*stride.
	_, err := buffer.Map(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), buffer.OffsetIndex())
	assert.Equal(t, uint32(192), buffer.Offset())
	assert.Equal(t, uint64(192), binder.buffers[0].mapOffset)
	assert.Equal(t, uint64(64), binder.buffers[0].mapSize)
	require.NoError(t, buffer.Unmap())

	require.NoError(t, buffer.Flush(3))
	assert.Equal(t, [2]uint64{192, 64}, binder.buffers[0].flushes[0])
}

func TestDynamicOffsetRequiresDynamicBuffer(t *testing.T) {
	device := newBinderDevice(newFakeBinder())

	static := NewConstantBuffer(device, "static", false)
	require.NoError(t, static.Create(64, 4))
	assert.False(t, static.SetOffsetIndexDynamic(2), "a static buffer must refuse dynamic offsets")
	assert.Equal(t, uint32(0), static.OffsetDynamic())

	dynamic := NewConstantBuffer(device, "dynamic", true)
	require.NoError(t, dynamic.Create(64, 4))
	assert.True(t, dynamic.SetOffsetIndexDynamic(2))
	assert.Equal(t, uint32(2), dynamic.OffsetIndexDynamic())
	assert.Equal(t, uint32(128), dynamic.OffsetDynamic())

	// The two offsets move independently.
	_, err := dynamic.Map(1)
	require.NoError(t, err)
	require.NoError(t, dynamic.Unmap())
	assert.Equal(t, uint32(64), dynamic.Offset())
	assert.Equal(t, uint32(128), dynamic.OffsetDynamic())
}

func TestConstantBufferUseBeforeCreate(t *testing.T) {
	device := newBinderDevice(newFakeBinder())
	buffer := NewConstantBuffer(device, "empty", false)

	_, err := buffer.Map(0)
	assert.ErrorIs(t, err, core.ErrBufferNotAllocated)
	assert.ErrorIs(t, buffer.Unmap(), core.ErrBufferNotAllocated)
	assert.ErrorIs(t, buffer.Flush(0), core.ErrBufferNotAllocated)
	assert.NoError(t, buffer.Release())
}

func TestDynamicOffsetsCollectedInBindingOrder(t *testing.T) {
	device := newBinderDevice(newFakeBinder())
	state := NewPipelineState(device)

	first := NewConstantBuffer(device, "first", true)
	require.NoError(t, first.Create(64, 4))
	second := NewConstantBuffer(device, "second", true)
	require.NoError(t, second.Create(32, 4))
	static := NewConstantBuffer(device, "static", false)
	require.NoError(t, static.Create(16, 1))

	require.True(t, first.SetOffsetIndexDynamic(1))
	require.True(t, second.SetOffsetIndexDynamic(3))

	require.True(t, state.SetConstantBuffer(first, 0, ScopeVertexShader))
	require.True(t, state.SetConstantBuffer(static, 1, ScopePixelShader))
	require.True(t, state.SetConstantBuffer(second, 2, ScopeGlobal))

	assert.Equal(t, []uint32{64, 96}, state.dynamicOffsets())
}
