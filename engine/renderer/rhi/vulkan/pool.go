package vulkan

import "sync"

type LockGroup string

const (
	InstanceManagement   LockGroup = "instance_management"
	DeviceManagement     LockGroup = "device_management"
	BufferManagement     LockGroup = "buffer_management"
	MemoryManagement     LockGroup = "memory_management"
	PipelineManagement   LockGroup = "pipeline_management"
	DescriptorManagement LockGroup = "descriptor_management"
	RenderpassManagement LockGroup = "renderpass_management"
	QueueManagement      LockGroup = "queue_management"
)

// LockPool serializes driver entry points that are not externally
// synchronized, one mutex per lock group.
type LockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex
}

func NewLockPool() *LockPool {
	return &LockPool{
		locks: make(map[LockGroup]*sync.Mutex),
	}
}

func (lp *LockPool) setLock(group LockGroup) *sync.Mutex {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if _, exists := lp.locks[group]; !exists {
		lp.locks[group] = &sync.Mutex{}
	}
	lp.locks[group].Lock()

	return lp.locks[group]
}

func (lp *LockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lp.setLock(group)
	defer l.Unlock()

	return fn()
}
