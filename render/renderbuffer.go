package render

import (
	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
)

// RenderBuffer is a write-only framebuffer attachment: cheaper than a
// texture when the result is never sampled.
type RenderBuffer struct {
	eng    *Engine
	id     backend.RenderBufferID
	kind   viz.RenderBufferKind
	width  int
	height int
}

// NewRenderBuffer creates a render buffer of the given kind and size.
func (e *Engine) NewRenderBuffer(kind viz.RenderBufferKind, width, height int) (*RenderBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, viz.Usagef("render buffer: non-positive size %dx%d", width, height)
	}
	id, err := e.dev.CreateRenderBuffer(kind, width, height)
	if err != nil {
		return nil, viz.Fatalf("create render buffer: %v", err)
	}
	return &RenderBuffer{eng: e, id: id, kind: kind, width: width, height: height}, nil
}

// Kind returns the render buffer kind.
func (r *RenderBuffer) Kind() viz.RenderBufferKind { return r.kind }

// Size returns the pixel dimensions.
func (r *RenderBuffer) Size() (int, int) { return r.width, r.height }

// Resize reallocates backing storage at the new size; contents are
// undefined afterwards. Framebuffers holding the old attachment must
// re-attach it.
func (r *RenderBuffer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return viz.Usagef("render buffer: non-positive size %dx%d", width, height)
	}
	id, err := r.eng.dev.CreateRenderBuffer(r.kind, width, height)
	if err != nil {
		return viz.Fatalf("resize render buffer: %v", err)
	}
	if r.id != 0 {
		r.eng.dev.DestroyRenderBuffer(r.id)
	}
	r.id = id
	r.width, r.height = width, height
	return nil
}

// Destroy releases the device resource.
func (r *RenderBuffer) Destroy() {
	if r.id != 0 {
		r.eng.dev.DestroyRenderBuffer(r.id)
		r.id = 0
	}
}
