package render

import (
	"testing"

	"github.com/gogpu/viz"
)

// newCompleteFramebuffer builds a 4x4 target with one color texture and a
// depth render buffer.
func newCompleteFramebuffer(t *testing.T, e *Engine) (*FrameBuffer, *TextureBuffer) {
	t.Helper()
	fb, err := e.NewFrameBuffer()
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}
	t.Cleanup(fb.Destroy)

	color, err := e.NewTextureBuffer2D(viz.FormatRGBA32F, 4, 4, nil)
	if err != nil {
		t.Fatalf("color texture: %v", err)
	}
	t.Cleanup(color.Destroy)
	if err := fb.AddColorTexture(color); err != nil {
		t.Fatalf("AddColorTexture: %v", err)
	}

	depth, err := e.NewRenderBuffer(viz.RenderBufferDepth, 4, 4)
	if err != nil {
		t.Fatalf("depth buffer: %v", err)
	}
	t.Cleanup(depth.Destroy)
	if err := fb.AddDepthBuffer(depth); err != nil {
		t.Fatalf("AddDepthBuffer: %v", err)
	}
	return fb, color
}

func TestBindForRendering(t *testing.T) {
	e := newTestEngine(t)

	fb, err := e.NewFrameBuffer()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(fb.Destroy)

	if _, err := fb.BindForRendering(); err == nil {
		t.Error("bind without viewport succeeded")
	}

	// Incomplete framebuffers bind as a skip, not an error.
	fb.SetViewport(0, 0, 4, 4)
	ok, err := fb.BindForRendering()
	if err != nil {
		t.Fatalf("bind incomplete: %v", err)
	}
	if ok {
		t.Error("empty framebuffer reported complete")
	}
}

func TestDrawTargetsBoundFramebuffer(t *testing.T) {
	e := newTestEngine(t)
	d := headlessDevice(t, e)

	fb, _ := newCompleteFramebuffer(t, e)
	fb.SetViewport(0, 0, 4, 4)
	ok, err := fb.BindForRendering()
	if err != nil || !ok {
		t.Fatalf("bind: ok=%v err=%v", ok, err)
	}

	p := requestShader(t, e, "MESH", nil, DefaultsNone)
	setMeshCommon(t, p, 3)
	if err := p.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	call := d.Draws()[0]
	if call.Target != fb.id {
		t.Errorf("draw target = %d, want %d", call.Target, fb.id)
	}
	if call.Viewport != [4]int{0, 0, 4, 4} {
		t.Errorf("draw viewport = %v", call.Viewport)
	}
}

func TestMismatchedAttachmentSizesIncomplete(t *testing.T) {
	e := newTestEngine(t)

	fb, _ := newCompleteFramebuffer(t, e)
	small, err := e.NewRenderBuffer(viz.RenderBufferDepth, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(small.Destroy)
	if err := fb.AddDepthBuffer(small); err != nil {
		t.Fatal(err)
	}

	fb.SetViewport(0, 0, 4, 4)
	ok, err := fb.BindForRendering()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("mismatched attachment sizes reported complete")
	}
}

func TestAttachmentKindChecks(t *testing.T) {
	e := newTestEngine(t)

	fb, err := e.NewFrameBuffer()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(fb.Destroy)

	depthRB, err := e.NewRenderBuffer(viz.RenderBufferDepth, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(depthRB.Destroy)
	if err := fb.AddColorBuffer(depthRB); err == nil {
		t.Error("depth render buffer accepted as color attachment")
	}

	colorRB, err := e.NewRenderBuffer(viz.RenderBufferColorAlpha, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(colorRB.Destroy)
	if err := fb.AddDepthBuffer(colorRB); err == nil {
		t.Error("color render buffer accepted as depth attachment")
	}

	oneD, err := e.NewTextureBuffer1D(viz.FormatRGBA8, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(oneD.Destroy)
	if err := fb.AddColorTexture(oneD); err == nil {
		t.Error("1D texture accepted as color attachment")
	}
}

func TestClearAndReadback(t *testing.T) {
	e := newTestEngine(t)

	fb, _ := newCompleteFramebuffer(t, e)
	fb.SetClearColor(viz.V3(0.25, 0.5, 0.75))
	fb.SetClearDepth(0.5)
	if err := fb.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	px, err := fb.ReadFloat4(1, 2)
	if err != nil {
		t.Fatalf("ReadFloat4: %v", err)
	}
	want := viz.Vec4{X: 0.25, Y: 0.5, Z: 0.75, W: 1}
	if px != want {
		t.Errorf("pixel = %+v, want %+v", px, want)
	}

	depth, err := fb.ReadDepth(1, 2)
	if err != nil {
		t.Fatalf("ReadDepth: %v", err)
	}
	if depth != 0.5 {
		t.Errorf("depth = %v, want 0.5", depth)
	}

	data, err := fb.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != 4*4*4 {
		t.Fatalf("ReadAll length = %d", len(data))
	}
	if data[0] != 64 || data[1] != 128 || data[2] != 191 || data[3] != 255 {
		t.Errorf("first RGBA8 pixel = %v", data[:4])
	}
}

func TestBlitTo(t *testing.T) {
	e := newTestEngine(t)

	src, _ := newCompleteFramebuffer(t, e)
	dst, _ := newCompleteFramebuffer(t, e)

	src.SetClearColor(viz.V3(1, 0, 0))
	if err := src.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := src.BlitTo(dst, 4, 4); err != nil {
		t.Fatalf("BlitTo: %v", err)
	}
	px, err := dst.ReadFloat4(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if px.X != 1 || px.Y != 0 || px.Z != 0 {
		t.Errorf("blitted pixel = %+v", px)
	}
}

func TestBlitToClampsExtent(t *testing.T) {
	e := newTestEngine(t)

	src, _ := newCompleteFramebuffer(t, e)
	src.SetClearColor(viz.V3(0, 1, 0))
	if err := src.Clear(); err != nil {
		t.Fatal(err)
	}

	dst, err := e.NewFrameBuffer()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dst.Destroy)
	color, err := e.NewTextureBuffer2D(viz.FormatRGBA32F, 2, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(color.Destroy)
	if err := dst.AddColorTexture(color); err != nil {
		t.Fatal(err)
	}

	// An extent larger than either side copies the overlap.
	if err := src.BlitTo(dst, 8, 8); err != nil {
		t.Fatalf("oversized blit: %v", err)
	}
	px, err := dst.ReadFloat4(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if px.X != 0 || px.Y != 1 || px.Z != 0 {
		t.Errorf("blitted pixel = %+v", px)
	}

	if err := src.BlitTo(nil, 4, 4); err == nil {
		t.Error("blit to nil destination succeeded")
	}
	if err := src.BlitTo(dst, 0, 4); err == nil {
		t.Error("blit with empty extent succeeded")
	}
}
