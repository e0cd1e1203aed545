package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

// Plain static mapping tables from the portable enums to the driver enums.

var vulkanTopology = map[rhi.PrimitiveTopology]vk.PrimitiveTopology{
	rhi.TopologyPointList:     vk.PrimitiveTopologyPointList,
	rhi.TopologyLineList:      vk.PrimitiveTopologyLineList,
	rhi.TopologyTriangleList:  vk.PrimitiveTopologyTriangleList,
	rhi.TopologyTriangleStrip: vk.PrimitiveTopologyTriangleStrip,
}

var vulkanCullMode = map[rhi.CullMode]vk.CullModeFlagBits{
	rhi.CullNone:  vk.CullModeNone,
	rhi.CullFront: vk.CullModeFrontBit,
	rhi.CullBack:  vk.CullModeBackBit,
}

var vulkanPolygonMode = map[rhi.FillMode]vk.PolygonMode{
	rhi.FillSolid:     vk.PolygonModeFill,
	rhi.FillWireframe: vk.PolygonModeLine,
}

var vulkanFormat = map[rhi.Format]vk.Format{
	rhi.FormatR8Unorm:           vk.FormatR8Unorm,
	rhi.FormatR8G8B8A8Unorm:     vk.FormatR8g8b8a8Unorm,
	rhi.FormatB8G8R8A8Unorm:     vk.FormatB8g8r8a8Unorm,
	rhi.FormatR16G16B16A16Float: vk.FormatR16g16b16a16Sfloat,
	rhi.FormatR32Uint:           vk.FormatR32Uint,
	rhi.FormatR32Float:          vk.FormatR32Sfloat,
	rhi.FormatR32G32Float:       vk.FormatR32g32Sfloat,
	rhi.FormatR32G32B32Float:    vk.FormatR32g32b32Sfloat,
	rhi.FormatR32G32B32A32Float: vk.FormatR32g32b32a32Sfloat,
	rhi.FormatD32Float:          vk.FormatD32Sfloat,
	rhi.FormatD24UnormS8Uint:    vk.FormatD24UnormS8Uint,
}

var vulkanCompareOp = map[rhi.CompareOp]vk.CompareOp{
	rhi.CompareNever:        vk.CompareOpNever,
	rhi.CompareLess:         vk.CompareOpLess,
	rhi.CompareEqual:        vk.CompareOpEqual,
	rhi.CompareLessEqual:    vk.CompareOpLessOrEqual,
	rhi.CompareGreater:      vk.CompareOpGreater,
	rhi.CompareNotEqual:     vk.CompareOpNotEqual,
	rhi.CompareGreaterEqual: vk.CompareOpGreaterOrEqual,
	rhi.CompareAlways:       vk.CompareOpAlways,
}

var vulkanBlendFactor = map[rhi.BlendFactor]vk.BlendFactor{
	rhi.BlendZero:           vk.BlendFactorZero,
	rhi.BlendOne:            vk.BlendFactorOne,
	rhi.BlendSrcColor:       vk.BlendFactorSrcColor,
	rhi.BlendInvSrcColor:    vk.BlendFactorOneMinusSrcColor,
	rhi.BlendSrcAlpha:       vk.BlendFactorSrcAlpha,
	rhi.BlendInvSrcAlpha:    vk.BlendFactorOneMinusSrcAlpha,
	rhi.BlendDstColor:       vk.BlendFactorDstColor,
	rhi.BlendInvDstColor:    vk.BlendFactorOneMinusDstColor,
	rhi.BlendDstAlpha:       vk.BlendFactorDstAlpha,
	rhi.BlendInvDstAlpha:    vk.BlendFactorOneMinusDstAlpha,
	rhi.BlendBlendFactor:    vk.BlendFactorConstantColor,
	rhi.BlendInvBlendFactor: vk.BlendFactorOneMinusConstantColor,
}

var vulkanBlendOp = map[rhi.BlendOp]vk.BlendOp{
	rhi.BlendOpAdd:         vk.BlendOpAdd,
	rhi.BlendOpSubtract:    vk.BlendOpSubtract,
	rhi.BlendOpRevSubtract: vk.BlendOpReverseSubtract,
	rhi.BlendOpMin:         vk.BlendOpMin,
	rhi.BlendOpMax:         vk.BlendOpMax,
}

var vulkanStencilOp = map[rhi.StencilOp]vk.StencilOp{
	rhi.StencilKeep:    vk.StencilOpKeep,
	rhi.StencilZero:    vk.StencilOpZero,
	rhi.StencilReplace: vk.StencilOpReplace,
	rhi.StencilIncrSat: vk.StencilOpIncrementAndClamp,
	rhi.StencilDecrSat: vk.StencilOpDecrementAndClamp,
	rhi.StencilInvert:  vk.StencilOpInvert,
	rhi.StencilIncr:    vk.StencilOpIncrementAndWrap,
	rhi.StencilDecr:    vk.StencilOpDecrementAndWrap,
}

var vulkanDescriptorType = map[rhi.DescriptorType]vk.DescriptorType{
	rhi.DescriptorConstantBuffer:        vk.DescriptorTypeUniformBuffer,
	rhi.DescriptorConstantBufferDynamic: vk.DescriptorTypeUniformBufferDynamic,
	rhi.DescriptorTexture:               vk.DescriptorTypeSampledImage,
	rhi.DescriptorSampler:               vk.DescriptorTypeSampler,
}

func vulkanStageFlags(stages rhi.ShaderStageFlags) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	if stages&rhi.StageVertex != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if stages&rhi.StagePixel != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	return flags
}

func vulkanIndexType(format rhi.Format) vk.IndexType {
	if format == rhi.FormatR32Uint {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}
