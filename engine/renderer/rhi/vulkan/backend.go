// Package vulkan is the explicit pipeline-object backend: renderable
// configurations are pre-compiled into immutable vk.Pipeline objects and
// bound as a unit.
package vulkan

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/platform"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

var lockPool = NewLockPool()

type Backend struct {
	platform *platform.Platform
	appName  string

	vulkanReady bool
}

func New(p *platform.Platform, appName string) *Backend {
	return &Backend{
		platform: p,
		appName:  appName,
	}
}

func (b *Backend) Name() string {
	return "vulkan"
}

func (b *Backend) initVulkan() error {
	if b.vulkanReady {
		return nil
	}
	if b.platform.Window == nil {
		if err := b.platform.CreateWindow(platform.ContextHint{OpenGL: false}); err != nil {
			return fmt.Errorf("vulkan: creating window: %w", err)
		}
	}

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("vulkan: GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return fmt.Errorf("vulkan: init: %w", err)
	}
	b.vulkanReady = true
	return nil
}

// EnumerateAdapters probes the physical devices through a throwaway
// instance. Physical device handles are instance-scoped, so CreateContext
// re-resolves the adapter by vendor/device id inside its own instance.
func (b *Backend) EnumerateAdapters() ([]rhi.Adapter, error) {
	if err := b.initVulkan(); err != nil {
		return nil, err
	}

	instance, err := b.createInstance(rhi.FeatureLevel10, false)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyInstance(instance, nil)

	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success {
		return nil, fmt.Errorf("vulkan: enumerating physical devices: %s", ResultString(res))
	}
	if count == 0 {
		return nil, core.ErrNoAdapter
	}

	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(instance, &count, physicalDevices); res != vk.Success {
		return nil, fmt.Errorf("vulkan: enumerating physical devices: %s", ResultString(res))
	}

	adapters := make([]rhi.Adapter, 0, count)
	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()

		adapters = append(adapters, rhi.Adapter{
			Name:     SafeByteString(properties.DeviceName[:]),
			VendorID: properties.VendorID,
			DeviceID: properties.DeviceID,
			Discrete: properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		})
	}
	return adapters, nil
}

// CreateContext builds the whole device connection at one feature level:
// instance (with validation when asked and available), surface, physical
// device, logical device with queues, command pool and descriptor pool.
func (b *Backend) CreateContext(adapter rhi.Adapter, level rhi.FeatureLevel, flags rhi.ContextFlags) (rhi.Context, error) {
	if err := b.initVulkan(); err != nil {
		return nil, err
	}

	validation := flags&rhi.FlagValidation != 0
	if validation && !validationLayerAvailable() {
		return nil, fmt.Errorf("vulkan: layer %s not present: %w", validationLayerName, core.ErrDebugLayerUnavailable)
	}

	instance, err := b.createInstance(level, validation)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		backend:  b,
		instance: instance,
		level:    level,
	}

	surface, err := b.platform.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("vulkan: creating surface: %w", err)
	}
	ctx.surface = vk.SurfaceFromPointer(surface)

	if err := ctx.selectPhysicalDevice(adapter); err != nil {
		ctx.Destroy()
		return nil, err
	}
	if err := ctx.createLogicalDevice(); err != nil {
		ctx.Destroy()
		return nil, err
	}
	if err := ctx.createPools(); err != nil {
		ctx.Destroy()
		return nil, err
	}
	if err := ctx.createCommandBuffer(); err != nil {
		ctx.Destroy()
		return nil, err
	}
	ctx.renderPasses = make(map[uint64]vk.RenderPass)

	core.LogInfo("vulkan: context created at API level %s (validation: %t)", level, validation)
	return ctx, nil
}

func apiVersion(level rhi.FeatureLevel) uint32 {
	switch level {
	case rhi.FeatureLevel13:
		return uint32(vk.MakeVersion(1, 3, 0))
	case rhi.FeatureLevel12:
		return uint32(vk.MakeVersion(1, 2, 0))
	case rhi.FeatureLevel11:
		return uint32(vk.MakeVersion(1, 1, 0))
	default:
		return uint32(vk.MakeVersion(1, 0, 0))
	}
}

const validationLayerName = "VK_LAYER_KHRONOS_validation"

func validationLayerAvailable() bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if SafeByteString(layers[i].LayerName[:]) == validationLayerName {
			return true
		}
	}
	return false
}

func (b *Backend) createInstance(level rhi.FeatureLevel, validation bool) (vk.Instance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         apiVersion(level),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   SafeString(b.appName),
		PEngineName:        SafeString("Spartan Engine"),
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, b.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: SafeStrings(requiredExtensions),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1 // portability enumeration
	}

	if validation {
		layers := []string{validationLayerName}
		createInfo.EnabledLayerCount = uint32(len(layers))
		createInfo.PpEnabledLayerNames = SafeStrings(layers)
	}

	var instance vk.Instance
	var result vk.Result
	if err := lockPool.SafeCall(InstanceManagement, func() error {
		result = vk.CreateInstance(&createInfo, nil, &instance)
		return nil
	}); err != nil {
		return nil, err
	}
	if result != vk.Success {
		if result == vk.ErrorLayerNotPresent {
			return nil, fmt.Errorf("vulkan: %s: %w", ResultString(result), core.ErrDebugLayerUnavailable)
		}
		return nil, fmt.Errorf("vulkan: creating instance: %s", ResultString(result))
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("vulkan: loading instance functions: %w", err)
	}
	return instance, nil
}
