// Package render implements the engine that turns registered shader
// programs and replacement rules into compiled, bound, drawable program
// instances.
//
// The engine keeps three registries: base programs (stage specifications
// plus a draw mode), named replacement rules, and colormaps. RequestShader
// resolves a program name and a rule list into a compiled program, caching
// compilations by the effective rule composition so that two requests with
// the same program, rules and order share one device program. The returned
// ShaderProgram carries per-instance state: uniform values, attribute
// buffers, texture bindings, an optional index stream and an instance
// count. Draw validates that state before submitting to the device.
//
// Buffers, textures, render buffers and framebuffers are created through
// engine factories and are tied to the engine's device.
package render
