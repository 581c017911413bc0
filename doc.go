// Package viz provides the rendering-backend abstraction used by the
// visualization layers built on top of it.
//
// # Overview
//
// viz wraps a native GPU API behind a backend-agnostic object model:
// shader programs assembled from textual replacement rules, typed attribute
// buffers, textures, render buffers and framebuffers, and validated draw
// submission. The heavy lifting (rasterization, GPU memory, pipeline state)
// stays inside the native driver; viz owns program composition, caching and
// binding consistency.
//
// The root package holds the abstract enumerations (data types, draw modes,
// texture formats), small value types (vectors, matrices, colormaps), the
// error taxonomy and the logging hooks shared by every subpackage.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/viz/render"
//
//	    _ "github.com/gogpu/viz/backend/headless" // register the headless device
//	)
//
//	eng, err := render.NewEngine()
//	if err != nil { ... }
//	defer eng.Close()
//	eng.PopulateDefaults()
//
//	prog, err := eng.RequestShader("MESH", nil, render.DefaultsSceneObject)
//	if err != nil { ... }
//	prog.SetAttributeVec3("a_position", positions)
//	prog.SetUniformMat4("u_modelView", mv)
//	prog.SetUniformMat4("u_projMatrix", proj)
//	if err := prog.Draw(); err != nil { ... }
//
// # Backends
//
// Two device backends ship with viz:
//
//   - headless (backend/headless): pure Go. Shader stages are compiled with
//     the naga WGSL front end, resources live in host memory, clears and
//     blits move real pixel data, and draw submissions are recorded for
//     inspection. Used for tests, CI and server-side readback.
//   - wgpu (backend/wgpu): hardware device over gogpu/wgpu HAL
//     (Vulkan/Metal/DX12).
//
// Backends self-register in init via the backend package registry; importing
// a backend package for side effects makes it available to render.NewEngine.
//
// # Errors
//
// Operations return ordinary errors split into two classes: recoverable
// invalid usage (errors.Is(err, viz.ErrInvalidUsage)) and fatal conditions
// after which rendering must not continue (viz.IsFatal). See errors.go.
//
// # Threading
//
// The engine is single-threaded direct mode: every call issues native work
// immediately, and all engine and resource calls must happen on the one
// goroutine that owns the graphics context.
package viz
