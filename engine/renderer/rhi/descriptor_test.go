package rhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDescriptorBindingsMergesStages(t *testing.T) {
	vs := testShader("mesh_v", StageVertex)
	vs.Reflection = ShaderReflection{
		ConstantBuffers: []BufferBindingDesc{{Name: "FrameData", Slot: 0, Size: 64}},
	}
	ps := testShader("mesh_p", StagePixel)
	ps.Reflection = ShaderReflection{
		ConstantBuffers: []BufferBindingDesc{{Name: "FrameData", Slot: 0, Size: 64}},
		Textures:        []ResourceBindingDesc{{Name: "Albedo", Slot: 1}},
		Samplers:        []ResourceBindingDesc{{Name: "Linear", Slot: 2}},
	}

	bindings := DeriveDescriptorBindings(vs, ps, -1)
	require.Len(t, bindings, 3)

	// The shared slot merges into one binding visible to both stages.
	assert.Equal(t, uint32(0), bindings[0].Slot)
	assert.Equal(t, DescriptorConstantBuffer, bindings[0].Type)
	assert.Equal(t, StageVertex|StagePixel, bindings[0].Stages)
	assert.Equal(t, uint32(64), bindings[0].Size)

	assert.Equal(t, DescriptorTexture, bindings[1].Type)
	assert.Equal(t, StagePixel, bindings[1].Stages)
	assert.Equal(t, DescriptorSampler, bindings[2].Type)
}

func TestDeriveDescriptorBindingsDynamicSlot(t *testing.T) {
	vs := testShader("mesh_v", StageVertex)
	vs.Reflection = ShaderReflection{
		ConstantBuffers: []BufferBindingDesc{
			{Name: "FrameData", Slot: 0, Size: 64},
			{Name: "PerDraw", Slot: 1, Size: 128},
		},
	}

	bindings := DeriveDescriptorBindings(vs, nil, 1)
	require.Len(t, bindings, 2)
	assert.Equal(t, DescriptorConstantBuffer, bindings[0].Type)
	assert.Equal(t, DescriptorConstantBufferDynamic, bindings[1].Type)
	assert.Equal(t, uint32(128), bindings[1].Size)
}

func TestDeriveDescriptorBindingsSortedBySlot(t *testing.T) {
	ps := testShader("post_p", StagePixel)
	ps.Reflection = ShaderReflection{
		Textures: []ResourceBindingDesc{{Slot: 5}, {Slot: 1}, {Slot: 3}},
	}

	bindings := DeriveDescriptorBindings(nil, ps, -1)
	require.Len(t, bindings, 3)
	assert.Equal(t, uint32(1), bindings[0].Slot)
	assert.Equal(t, uint32(3), bindings[1].Slot)
	assert.Equal(t, uint32(5), bindings[2].Slot)
}

func TestDeriveDescriptorBindingsNilShaders(t *testing.T) {
	assert.Empty(t, DeriveDescriptorBindings(nil, nil, -1))
}

func TestDeriveDescriptorBindingsMaxSizeWins(t *testing.T) {
	vs := testShader("v", StageVertex)
	vs.Reflection = ShaderReflection{
		ConstantBuffers: []BufferBindingDesc{{Slot: 0, Size: 64}},
	}
	ps := testShader("p", StagePixel)
	ps.Reflection = ShaderReflection{
		ConstantBuffers: []BufferBindingDesc{{Slot: 0, Size: 256}},
	}

	bindings := DeriveDescriptorBindings(vs, ps, -1)
	require.Len(t, bindings, 1)
	assert.Equal(t, uint32(256), bindings[0].Size)
}
