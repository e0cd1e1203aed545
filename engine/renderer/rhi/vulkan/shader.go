package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// CreateShaderModule wraps SPIR-V bytecode in a shader module. The byte
// length must be a multiple of four, SPIR-V words are 32 bit.
func (c *Context) CreateShaderModule(code []byte) (vk.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return vk.NullShaderModule, fmt.Errorf("vulkan: shader bytecode length %d is not a SPIR-V word multiple", len(code))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var module vk.ShaderModule
	var result vk.Result
	if err := lockPool.SafeCall(DeviceManagement, func() error {
		result = vk.CreateShaderModule(c.device, &createInfo, nil, &module)
		return nil
	}); err != nil {
		return vk.NullShaderModule, err
	}
	if result != vk.Success {
		return vk.NullShaderModule, fmt.Errorf("vulkan: creating shader module: %s", ResultString(result))
	}
	return module, nil
}

func (c *Context) DestroyShaderModule(module vk.ShaderModule) {
	if module == vk.NullShaderModule {
		return
	}
	vk.DestroyShaderModule(c.device, module, nil)
}

func sliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return words
}
