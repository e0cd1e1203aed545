package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type CommandBufferState int

const (
	CommandBufferStateReady CommandBufferState = iota
	CommandBufferStateRecording
	CommandBufferStateRecordingEnded
	CommandBufferStateSubmitted
	CommandBufferStateNotAllocated
)

// CommandBuffer wraps one primary command buffer with a state machine so
// misordered begin/end/submit calls fail loudly instead of hitting the
// driver.
type CommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState

	context *Context
	fence   vk.Fence
}

func NewCommandBuffer(context *Context, isPrimary bool) (*CommandBuffer, error) {
	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        context.commandPool,
		Level:              level,
		CommandBufferCount: 1,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.device, &allocateInfo, handles); res != vk.Success {
		return nil, fmt.Errorf("vulkan: allocating command buffer: %s", ResultString(res))
	}

	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	var fence vk.Fence
	if res := vk.CreateFence(context.device, &fenceInfo, nil, &fence); res != vk.Success {
		vk.FreeCommandBuffers(context.device, context.commandPool, 1, handles)
		return nil, fmt.Errorf("vulkan: creating submit fence: %s", ResultString(res))
	}

	return &CommandBuffer{
		Handle:  handles[0],
		State:   CommandBufferStateReady,
		context: context,
		fence:   fence,
	}, nil
}

func (cb *CommandBuffer) Begin() error {
	if cb.State != CommandBufferStateReady {
		return fmt.Errorf("vulkan: command buffer begin in state %d", cb.State)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cb.Handle, &beginInfo); res != vk.Success {
		return fmt.Errorf("vulkan: begin command buffer: %s", ResultString(res))
	}
	cb.State = CommandBufferStateRecording
	return nil
}

func (cb *CommandBuffer) End() error {
	if cb.State != CommandBufferStateRecording {
		return fmt.Errorf("vulkan: command buffer end in state %d", cb.State)
	}
	if res := vk.EndCommandBuffer(cb.Handle); res != vk.Success {
		return fmt.Errorf("vulkan: end command buffer: %s", ResultString(res))
	}
	cb.State = CommandBufferStateRecordingEnded
	return nil
}

// Submit hands the recorded work to the graphics queue and blocks on the
// fence, then resets for the next recording.
func (cb *CommandBuffer) Submit() error {
	if cb.State != CommandBufferStateRecordingEnded {
		return fmt.Errorf("vulkan: command buffer submit in state %d", cb.State)
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}

	var result vk.Result
	if err := lockPool.SafeCall(QueueManagement, func() error {
		result = vk.QueueSubmit(cb.context.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, cb.fence)
		return nil
	}); err != nil {
		return err
	}
	if result != vk.Success {
		return fmt.Errorf("vulkan: queue submit: %s", ResultString(result))
	}
	cb.State = CommandBufferStateSubmitted

	fences := []vk.Fence{cb.fence}
	if res := vk.WaitForFences(cb.context.device, 1, fences, vk.True, ^uint64(0)); res != vk.Success {
		return fmt.Errorf("vulkan: waiting for submit fence: %s", ResultString(res))
	}
	vk.ResetFences(cb.context.device, 1, fences)

	if res := vk.ResetCommandBuffer(cb.Handle, 0); res != vk.Success {
		return fmt.Errorf("vulkan: reset command buffer: %s", ResultString(res))
	}
	cb.State = CommandBufferStateReady
	return nil
}

func (cb *CommandBuffer) Free() {
	if cb.fence != vk.NullFence {
		vk.DestroyFence(cb.context.device, cb.fence, nil)
		cb.fence = vk.NullFence
	}
	if cb.Handle != nil {
		vk.FreeCommandBuffers(cb.context.device, cb.context.commandPool, 1, []vk.CommandBuffer{cb.Handle})
		cb.Handle = nil
	}
	cb.State = CommandBufferStateNotAllocated
}
