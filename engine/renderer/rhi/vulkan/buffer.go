package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Buffer is host-visible uniform storage. The memory is not guaranteed
// coherent, so writers flush the slots they touch before the GPU reads them.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64

	mapped unsafe.Pointer
}

func (c *Context) CreateBuffer(size uint64, dynamic bool) (interface{}, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	var result vk.Result
	if err := lockPool.SafeCall(BufferManagement, func() error {
		result = vk.CreateBuffer(c.device, &createInfo, nil, &handle)
		return nil
	}); err != nil {
		return nil, err
	}
	if result != vk.Success {
		return nil, fmt.Errorf("vulkan: creating buffer: %s", ResultString(result))
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(c.device, handle, &requirements)
	requirements.Deref()

	memoryIndex, err := c.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	if err != nil {
		vk.DestroyBuffer(c.device, handle, nil)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	var memory vk.DeviceMemory
	if err := lockPool.SafeCall(MemoryManagement, func() error {
		result = vk.AllocateMemory(c.device, &allocateInfo, nil, &memory)
		return nil
	}); err != nil {
		vk.DestroyBuffer(c.device, handle, nil)
		return nil, err
	}
	if result != vk.Success {
		vk.DestroyBuffer(c.device, handle, nil)
		return nil, fmt.Errorf("vulkan: allocating buffer memory: %s", ResultString(result))
	}

	if res := vk.BindBufferMemory(c.device, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(c.device, memory, nil)
		vk.DestroyBuffer(c.device, handle, nil)
		return nil, fmt.Errorf("vulkan: binding buffer memory: %s", ResultString(res))
	}

	return &Buffer{Handle: handle, Memory: memory, Size: size}, nil
}

func (c *Context) MapBuffer(buffer interface{}, offset, size uint64) ([]byte, error) {
	b, ok := buffer.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("vulkan: foreign buffer resource %T", buffer)
	}
	if b.mapped != nil {
		return nil, fmt.Errorf("vulkan: buffer already mapped")
	}

	var data unsafe.Pointer
	if res := vk.MapMemory(c.device, b.Memory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &data); res != vk.Success {
		return nil, fmt.Errorf("vulkan: mapping buffer: %s", ResultString(res))
	}
	b.mapped = data
	return unsafe.Slice((*byte)(data), size), nil
}

func (c *Context) UnmapBuffer(buffer interface{}) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("vulkan: foreign buffer resource %T", buffer)
	}
	if b.mapped == nil {
		return nil
	}
	vk.UnmapMemory(c.device, b.Memory)
	b.mapped = nil
	return nil
}

// FlushBuffer makes one written range visible to the GPU. The range is
// widened to the non-coherent atom size required by the driver.
func (c *Context) FlushBuffer(buffer interface{}, offset, size uint64) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("vulkan: foreign buffer resource %T", buffer)
	}

	atom := uint64(c.properties.Limits.NonCoherentAtomSize)
	if atom == 0 {
		atom = 1
	}
	alignedOffset := offset - offset%atom
	alignedEnd := offset + size
	if rem := alignedEnd % atom; rem != 0 {
		alignedEnd += atom - rem
	}
	if alignedEnd > b.Size {
		alignedEnd = b.Size
	}

	ranges := []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: b.Memory,
		Offset: vk.DeviceSize(alignedOffset),
		Size:   vk.DeviceSize(alignedEnd - alignedOffset),
	}}
	if res := vk.FlushMappedMemoryRanges(c.device, 1, ranges); res != vk.Success {
		return fmt.Errorf("vulkan: flushing buffer: %s", ResultString(res))
	}
	return nil
}

func (c *Context) DestroyBuffer(buffer interface{}) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("vulkan: foreign buffer resource %T", buffer)
	}
	return lockPool.SafeCall(BufferManagement, func() error {
		if b.mapped != nil {
			vk.UnmapMemory(c.device, b.Memory)
			b.mapped = nil
		}
		vk.DestroyBuffer(c.device, b.Handle, nil)
		vk.FreeMemory(c.device, b.Memory, nil)
		b.Handle = vk.NullBuffer
		b.Memory = vk.NullDeviceMemory
		return nil
	})
}
