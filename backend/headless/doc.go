// Package headless implements a pure-Go device with no GPU dependency.
//
// Shader stages are compiled with the naga WGSL compiler, so malformed
// generated source fails exactly as it would on hardware, with real parser
// diagnostics. Buffers, textures and framebuffer attachments live in host
// memory; clears and blits move real data, while draw submissions are
// recorded rather than rasterized. The recorded calls are available through
// Draws for inspection.
//
// The device registers itself under backend.DeviceHeadless.
package headless
