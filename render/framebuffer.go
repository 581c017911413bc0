package render

import (
	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
)

// FrameBuffer is a render target assembled from texture and render-buffer
// attachments. Clear values and the viewport are state of the framebuffer,
// applied when it binds for rendering.
type FrameBuffer struct {
	eng *Engine
	id  backend.FramebufferID

	nColor   int
	hasDepth bool

	viewport    [4]int
	viewportSet bool

	clearColor viz.Vec3
	clearAlpha float32
	clearDepth float64
}

// NewFrameBuffer creates an empty framebuffer. It is incomplete until
// attachments are added.
func (e *Engine) NewFrameBuffer() (*FrameBuffer, error) {
	id, err := e.dev.CreateFramebuffer()
	if err != nil {
		return nil, viz.Fatalf("create framebuffer: %v", err)
	}
	return &FrameBuffer{eng: e, id: id, clearAlpha: 1, clearDepth: 1}, nil
}

// AddColorTexture attaches a texture as the next color attachment.
func (f *FrameBuffer) AddColorTexture(t *TextureBuffer) error {
	if t == nil || t.dim != 2 {
		return viz.Usagef("framebuffer: color attachment must be a 2D texture")
	}
	if err := f.eng.dev.AttachColor(f.id, f.nColor, backend.Attachment{Texture: t.id}); err != nil {
		return viz.Fatalf("attach color texture: %v", err)
	}
	f.nColor++
	return nil
}

// AddColorBuffer attaches a render buffer as the next color attachment.
func (f *FrameBuffer) AddColorBuffer(r *RenderBuffer) error {
	if r == nil || r.kind == viz.RenderBufferDepth {
		return viz.Usagef("framebuffer: color attachment must be a color render buffer")
	}
	if err := f.eng.dev.AttachColor(f.id, f.nColor, backend.Attachment{RenderBuffer: r.id}); err != nil {
		return viz.Fatalf("attach color buffer: %v", err)
	}
	f.nColor++
	return nil
}

// AddDepthTexture attaches a depth texture.
func (f *FrameBuffer) AddDepthTexture(t *TextureBuffer) error {
	if t == nil || t.dim != 2 || !t.format.IsDepth() {
		return viz.Usagef("framebuffer: depth attachment must be a 2D depth texture")
	}
	if err := f.eng.dev.AttachDepth(f.id, backend.Attachment{Texture: t.id}); err != nil {
		return viz.Fatalf("attach depth texture: %v", err)
	}
	f.hasDepth = true
	return nil
}

// AddDepthBuffer attaches a depth render buffer.
func (f *FrameBuffer) AddDepthBuffer(r *RenderBuffer) error {
	if r == nil || r.kind != viz.RenderBufferDepth {
		return viz.Usagef("framebuffer: depth attachment must be a depth render buffer")
	}
	if err := f.eng.dev.AttachDepth(f.id, backend.Attachment{RenderBuffer: r.id}); err != nil {
		return viz.Fatalf("attach depth buffer: %v", err)
	}
	f.hasDepth = true
	return nil
}

// SetViewport sets the viewport applied when the framebuffer binds.
// Binding without a viewport is an error.
func (f *FrameBuffer) SetViewport(x, y, w, h int) {
	f.viewport = [4]int{x, y, w, h}
	f.viewportSet = true
}

// SetClearColor sets the color clear value.
func (f *FrameBuffer) SetClearColor(c viz.Vec3) { f.clearColor = c }

// SetClearAlpha sets the alpha clear value.
func (f *FrameBuffer) SetClearAlpha(a float32) { f.clearAlpha = a }

// SetClearDepth sets the depth clear value.
func (f *FrameBuffer) SetClearDepth(d float64) { f.clearDepth = d }

// BindForRendering makes the framebuffer the target of subsequent draws.
// It returns false when the framebuffer is incomplete, which is an expected
// state during window resizes, not an error; the caller skips the frame.
// Binding requires a viewport.
func (f *FrameBuffer) BindForRendering() (bool, error) {
	if !f.viewportSet {
		return false, viz.Usagef("framebuffer: bind without viewport")
	}
	if !f.eng.dev.FramebufferComplete(f.id) {
		return false, nil
	}
	f.eng.bindTarget(f.id, f.viewport)
	return true, nil
}

// Clear fills every attachment with the stored clear values.
func (f *FrameBuffer) Clear() error {
	c := viz.Vec4{X: f.clearColor.X, Y: f.clearColor.Y, Z: f.clearColor.Z, W: f.clearAlpha}
	if err := f.eng.dev.ClearFramebuffer(f.id, c, f.clearDepth); err != nil {
		return viz.Fatalf("clear framebuffer: %v", err)
	}
	return nil
}

// ReadFloat4 reads color attachment 0 at (x, y), forcing pending device
// work to complete first.
func (f *FrameBuffer) ReadFloat4(x, y int) (viz.Vec4, error) {
	f.eng.dev.Flush()
	f.eng.dev.Finish()
	v, err := f.eng.dev.ReadFramebufferPixel(f.id, x, y)
	if err != nil {
		return viz.Vec4{}, viz.Fatalf("framebuffer read: %v", err)
	}
	return v, nil
}

// ReadDepth reads the depth attachment at (x, y).
func (f *FrameBuffer) ReadDepth(x, y int) (float32, error) {
	f.eng.dev.Flush()
	f.eng.dev.Finish()
	v, err := f.eng.dev.ReadFramebufferDepth(f.id, x, y)
	if err != nil {
		return 0, viz.Fatalf("framebuffer read: %v", err)
	}
	return v, nil
}

// ReadAll reads color attachment 0 as tightly packed RGBA8.
func (f *FrameBuffer) ReadAll() ([]byte, error) {
	f.eng.dev.Flush()
	f.eng.dev.Finish()
	data, err := f.eng.dev.ReadFramebuffer(f.id)
	if err != nil {
		return nil, viz.Fatalf("framebuffer read: %v", err)
	}
	return data, nil
}

// BlitTo copies color attachment 0 into another framebuffer. The copied
// extent is clamped to the region both framebuffers cover.
func (f *FrameBuffer) BlitTo(dst *FrameBuffer, width, height int) error {
	if dst == nil {
		return viz.Usagef("blit: nil destination")
	}
	if width <= 0 || height <= 0 {
		return viz.Usagef("blit: extent %dx%d", width, height)
	}
	if err := f.eng.dev.BlitFramebuffer(f.id, dst.id, width, height); err != nil {
		return viz.Fatalf("blit: %v", err)
	}
	return nil
}

// Destroy releases the framebuffer. Attachments are owned by their own
// objects and survive.
func (f *FrameBuffer) Destroy() {
	if f.id != 0 {
		f.eng.dev.DestroyFramebuffer(f.id)
		f.id = 0
	}
}
