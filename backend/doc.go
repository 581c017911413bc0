// Package backend defines the Device interface separating the engine's
// resource and draw bookkeeping from the underlying graphics API, plus a
// registry through which device implementations make themselves available.
//
// Two implementations ship with the module: backend/headless, a pure-Go
// device that compiles WGSL with naga and records draws for inspection, and
// backend/wgpu, a hardware device over the wgpu hal. Register additional
// devices from an init function:
//
//	backend.Register("mydevice", func() backend.Device { return newMyDevice() })
//
// Devices are single-threaded: the engine serializes access, implementations
// do not need internal locking beyond what their native API demands.
package backend
