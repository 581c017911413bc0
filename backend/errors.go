package backend

import "errors"

// Common backend errors.
var (
	// ErrNotAvailable is returned when a requested device is not registered
	// or cannot start on this machine.
	ErrNotAvailable = errors.New("backend: device not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrInvalidHandle is returned when an operation names a resource the
	// device does not know, typically after it was destroyed.
	ErrInvalidHandle = errors.New("backend: invalid resource handle")

	// ErrCompile is returned (wrapped, with the offending source) when a
	// shader stage fails to compile.
	ErrCompile = errors.New("backend: shader compilation failed")
)
