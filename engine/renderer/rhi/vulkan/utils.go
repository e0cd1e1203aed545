package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

func ResultIsSuccess(result vk.Result) bool {
	switch result {
	case vk.Success, vk.NotReady, vk.Timeout, vk.EventSet, vk.EventReset,
		vk.Incomplete, vk.Suboptimal, vk.ThreadIdle, vk.ThreadDone,
		vk.OperationDeferred, vk.OperationNotDeferred, vk.PipelineCompileRequired:
		return true
	default:
		return false
	}
}

var resultNames = map[vk.Result]string{
	vk.Success:                   "VK_SUCCESS",
	vk.NotReady:                  "VK_NOT_READY",
	vk.Timeout:                   "VK_TIMEOUT",
	vk.Incomplete:                "VK_INCOMPLETE",
	vk.Suboptimal:                "VK_SUBOPTIMAL_KHR",
	vk.ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:      "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:  "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:       "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:   "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:       "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorOutOfPoolMemory:      "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorInvalidShaderNv:      "VK_ERROR_INVALID_SHADER_NV",
	vk.ErrorSurfaceLost:          "VK_ERROR_SURFACE_LOST_KHR",
}

func ResultString(result vk.Result) string {
	if name, ok := resultNames[result]; ok {
		return name
	}
	return fmt.Sprintf("VK_RESULT(%d)", int32(result))
}

// SafeString null-terminates a Go string for cgo consumption.
func SafeString(s string) string {
	if len(s) == 0 {
		return "\x00"
	}
	if s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

func SafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = SafeString(list[i])
	}
	return out
}

// SafeByteString trims a fixed-size C byte array at the first NUL.
func SafeByteString(arr []byte) string {
	for i, b := range arr {
		if b == 0 {
			return string(arr[:i])
		}
	}
	return string(arr)
}
