package rhi

import "sort"

type DescriptorType int

const (
	DescriptorConstantBuffer DescriptorType = iota
	DescriptorConstantBufferDynamic
	DescriptorTexture
	DescriptorSampler
)

// DescriptorBinding is one slot of a descriptor set layout, derived from
// shader reflection.
type DescriptorBinding struct {
	Slot   uint32
	Type   DescriptorType
	Stages ShaderStageFlags
	Size   uint32
}

// DeriveDescriptorBindings builds the resource-binding layout expected by a
// vertex/pixel shader pair. The same slot declared by both stages merges
// into one binding with both stage flags. A constant buffer living in the
// dynamic slot becomes a dynamic-offset binding.
func DeriveDescriptorBindings(vertexShader, pixelShader *Shader, dynamicConstantBufferSlot int32) []DescriptorBinding {
	type key struct {
		slot uint32
		typ  DescriptorType
	}
	merged := make(map[key]*DescriptorBinding)

	add := func(slot uint32, typ DescriptorType, stage ShaderStageFlags, size uint32) {
		k := key{slot: slot, typ: typ}
		if b, ok := merged[k]; ok {
			b.Stages |= stage
			if size > b.Size {
				b.Size = size
			}
			return
		}
		merged[k] = &DescriptorBinding{Slot: slot, Type: typ, Stages: stage, Size: size}
	}

	collect := func(shader *Shader, stage ShaderStageFlags) {
		if shader == nil {
			return
		}
		for _, cb := range shader.Reflection.ConstantBuffers {
			typ := DescriptorConstantBuffer
			if dynamicConstantBufferSlot >= 0 && cb.Slot == uint32(dynamicConstantBufferSlot) {
				typ = DescriptorConstantBufferDynamic
			}
			add(cb.Slot, typ, stage, cb.Size)
		}
		for _, tex := range shader.Reflection.Textures {
			add(tex.Slot, DescriptorTexture, stage, 0)
		}
		for _, smp := range shader.Reflection.Samplers {
			add(smp.Slot, DescriptorSampler, stage, 0)
		}
	}

	collect(vertexShader, StageVertex)
	collect(pixelShader, StagePixel)

	bindings := make([]DescriptorBinding, 0, len(merged))
	for _, b := range merged {
		bindings = append(bindings, *b)
	}
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Slot != bindings[j].Slot {
			return bindings[i].Slot < bindings[j].Slot
		}
		return bindings[i].Type < bindings[j].Type
	})
	return bindings
}
