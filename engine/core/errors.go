package core

import (
	"errors"
)

var (
	// ErrInvalidParameter reports a nil or otherwise unusable argument.
	// Recoverable: the operation is a no-op and the caller keeps going.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDeviceNotReady reports use of a device that never finished bring-up.
	ErrDeviceNotReady = errors.New("device not ready")

	// ErrNoAdapter reports that no physical adapter satisfied the requirements.
	ErrNoAdapter = errors.New("no suitable adapter found")

	// ErrDebugLayerUnavailable reports that the optional validation/debug
	// feature is not installed on this machine. Device creation retries once
	// without it.
	ErrDebugLayerUnavailable = errors.New("debug layer unavailable")

	// ErrPipelineCompile reports a failed pipeline object compilation. The
	// pipeline instance must not be used afterwards.
	ErrPipelineCompile = errors.New("pipeline compilation failed")

	// ErrBufferAllocated reports a Create on a buffer that already owns
	// backend storage.
	ErrBufferAllocated = errors.New("buffer already allocated")

	// ErrBufferNotAllocated reports a Map/Flush/Release on a buffer without
	// backend storage.
	ErrBufferNotAllocated = errors.New("buffer not allocated")

	ErrUnknown = errors.New("unknown")
)
