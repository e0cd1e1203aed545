package rhi

import (
	"fmt"
	"unsafe"

	"github.com/TQwan/SpartanEngine/engine/core"
)

// ConstantBuffer is GPU-visible storage for shader constants. One physical
// buffer holds element_count logical slots of stride bytes each; two offset
// indices address them:
//
//   - the static offset is chosen by the writer before each content update
//     and says which slot was just written;
//   - the dynamic offset is chosen right before a draw, assumes the slot is
//     already populated, and lets one buffer serve many draws per frame
//     without rebinding. Honored only when the buffer is dynamic.
type ConstantBuffer struct {
	Object

	device    *Device
	isDynamic bool

	stride       uint32
	elementCount uint32

	offsetIndex        uint32
	offsetDynamicIndex uint32

	resource interface{}
}

func NewConstantBuffer(device *Device, name string, isDynamic bool) *ConstantBuffer {
	return &ConstantBuffer{
		Object:    NewObject(name),
		device:    device,
		isDynamic: isDynamic,
	}
}

// CreateConstantBuffer allocates a buffer sized for count elements of T.
func CreateConstantBuffer[T any](device *Device, name string, count uint32, isDynamic bool) (*ConstantBuffer, error) {
	cb := NewConstantBuffer(device, name, isDynamic)
	var sample T
	if err := cb.Create(uint32(unsafe.Sizeof(sample)), count); err != nil {
		return nil, err
	}
	return cb, nil
}

// Create fixes stride and element count and allocates backend storage.
// Fails if storage already exists and was not released.
func (cb *ConstantBuffer) Create(stride, elementCount uint32) error {
	if !cb.device.IsInitialized() {
		return core.ErrDeviceNotReady
	}
	if cb.resource != nil {
		return fmt.Errorf("constant buffer '%s': %w", cb.Name, core.ErrBufferAllocated)
	}
	if stride == 0 || elementCount == 0 {
		return fmt.Errorf("constant buffer '%s': %w", cb.Name, core.ErrInvalidParameter)
	}

	cb.stride = stride
	cb.elementCount = elementCount

	resource, err := cb.device.Context().CreateBuffer(cb.SizeGPU(), cb.isDynamic)
	if err != nil {
		return fmt.Errorf("constant buffer '%s': %w", cb.Name, err)
	}
	cb.resource = resource
	return nil
}

// Map exposes the CPU-visible bytes of one logical slot. The returned slice
// is valid until Unmap.
func (cb *ConstantBuffer) Map(offsetIndex uint32) ([]byte, error) {
	if cb.resource == nil {
		return nil, fmt.Errorf("constant buffer '%s': %w", cb.Name, core.ErrBufferNotAllocated)
	}
	cb.offsetIndex = offsetIndex
	return cb.device.Context().MapBuffer(cb.resource, uint64(offsetIndex)*uint64(cb.stride), uint64(cb.stride))
}

func (cb *ConstantBuffer) Unmap() error {
	if cb.resource == nil {
		return fmt.Errorf("constant buffer '%s': %w", cb.Name, core.ErrBufferNotAllocated)
	}
	return cb.device.Context().UnmapBuffer(cb.resource)
}

// Flush makes writes to one slot visible to the GPU. Required when the
// backend memory is not automatically coherent; must happen before the GPU
// consumes the slot.
func (cb *ConstantBuffer) Flush(offsetIndex uint32) error {
	if cb.resource == nil {
		return fmt.Errorf("constant buffer '%s': %w", cb.Name, core.ErrBufferNotAllocated)
	}
	return cb.device.Context().FlushBuffer(cb.resource, uint64(offsetIndex)*uint64(cb.stride), uint64(cb.stride))
}

func (cb *ConstantBuffer) Release() error {
	if cb.resource == nil {
		return nil
	}
	if err := cb.device.Context().DestroyBuffer(cb.resource); err != nil {
		return err
	}
	cb.resource = nil
	return nil
}

func (cb *ConstantBuffer) Resource() interface{} { return cb.resource }
func (cb *ConstantBuffer) Stride() uint32        { return cb.stride }
func (cb *ConstantBuffer) ElementCount() uint32  { return cb.elementCount }
func (cb *ConstantBuffer) SizeGPU() uint64       { return uint64(cb.stride) * uint64(cb.elementCount) }

// Static offset.
func (cb *ConstantBuffer) Offset() uint32      { return cb.offsetIndex * cb.stride }
func (cb *ConstantBuffer) OffsetIndex() uint32 { return cb.offsetIndex }
func (cb *ConstantBuffer) SetOffsetIndex(offsetIndex uint32) {
	cb.offsetIndex = offsetIndex
}

// Dynamic offset.
func (cb *ConstantBuffer) IsDynamic() bool            { return cb.isDynamic }
func (cb *ConstantBuffer) OffsetDynamic() uint32      { return cb.offsetDynamicIndex * cb.stride }
func (cb *ConstantBuffer) OffsetIndexDynamic() uint32 { return cb.offsetDynamicIndex }

// SetOffsetIndexDynamic selects the slot consumed by the next draw. A
// configuration error on non-dynamic buffers: the index is refused so that
// Bind never honors it.
func (cb *ConstantBuffer) SetOffsetIndexDynamic(offsetIndex uint32) bool {
	if !cb.isDynamic {
		core.LogWarn("constant buffer '%s': dynamic offset on non-dynamic buffer", cb.Name)
		return false
	}
	cb.offsetDynamicIndex = offsetIndex
	return true
}
