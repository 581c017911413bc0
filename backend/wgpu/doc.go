// Package wgpu implements the device interface on real hardware through the
// wgpu hal layer (Vulkan on Linux).
//
// Resource management is fully functional: buffers live in device memory and
// move through queue writes and staged readback, textures are created and
// filled through the queue, and shader stages are validated with naga before
// the hal shader module is built. The rasterizing draw path still goes
// through the render pipeline cache, which is incomplete; Draw currently
// returns ErrNotImplemented after validating the submission.
//
// The device registers itself under backend.DeviceWGPU only when a usable
// adapter is found at Init time; on machines without one, Init fails and the
// registry falls back to the headless device.
package wgpu
