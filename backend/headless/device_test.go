package headless

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	"github.com/gogpu/viz/shader"
)

const testVertSrc = `
@vertex
fn vs_main(@location(0) a_position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(a_position, 1.0);
}
`

const testFragSrc = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func testStages() []shader.StageSpec {
	return []shader.StageSpec{
		{
			Kind:   viz.StageVertex,
			Source: testVertSrc,
			Attributes: []shader.Attribute{
				{Name: "a_position", Type: viz.TypeVec3, ArrayCount: 1},
			},
		},
		{Kind: viz.StageFragment, Source: testFragSrc},
	}
}

func newInitialized(t *testing.T) *Device {
	t.Helper()
	d := New()
	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestRegisteredAsDefaultFallback(t *testing.T) {
	if !backend.IsRegistered(backend.DeviceHeadless) {
		t.Fatal("headless device not registered")
	}
	d := backend.Get(backend.DeviceHeadless)
	if d == nil {
		t.Fatal("Get(headless) = nil")
	}
	if d.Name() != backend.DeviceHeadless {
		t.Errorf("Name() = %q", d.Name())
	}
}

func TestCompileProgram(t *testing.T) {
	d := newInitialized(t)

	p, err := d.CompileProgram(testStages())
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	if p.ID == 0 {
		t.Error("program ID is zero")
	}
	if loc, ok := p.Attributes["a_position"]; !ok || loc < 0 {
		t.Errorf("a_position location = %d, %v; want resolved", loc, ok)
	}
	if d.CompileCount() != 1 {
		t.Errorf("CompileCount = %d, want 1", d.CompileCount())
	}
}

func TestCompileErrorCarriesNumberedSource(t *testing.T) {
	d := newInitialized(t)

	stages := []shader.StageSpec{{
		Kind:   viz.StageVertex,
		Source: "@vertex\nfn vs_main( {\n    return;\n}\n",
	}}
	_, err := d.CompileProgram(stages)
	if err == nil {
		t.Fatal("CompileProgram succeeded on malformed source")
	}
	if !errors.Is(err, backend.ErrCompile) {
		t.Errorf("error %v does not wrap ErrCompile", err)
	}
	if !strings.Contains(err.Error(), "   2: fn vs_main( {") {
		t.Errorf("error lacks numbered source listing:\n%s", err)
	}
}

func TestEliminatedSlotGetsNoLocation(t *testing.T) {
	d := newInitialized(t)

	stages := testStages()
	// Declared but absent from the source text, like a uniform the
	// compiler optimized away.
	stages[1].Uniforms = []shader.Uniform{{Name: "u_unused", Type: viz.TypeFloat}}
	p, err := d.CompileProgram(stages)
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	if loc, ok := p.Uniforms["u_unused"]; ok {
		t.Errorf("eliminated uniform got location %d", loc)
	}
}

func TestBuiltinProgramsCompile(t *testing.T) {
	d := newInitialized(t)

	for _, prog := range shader.BuiltinPrograms() {
		t.Run(prog.Name, func(t *testing.T) {
			specialized := shader.ApplyReplacements(prog.Stages, nil)
			if _, err := d.CompileProgram(specialized); err != nil {
				t.Errorf("compile failed: %v", err)
			}
		})
	}
}

func TestBufferRoundTrip(t *testing.T) {
	d := newInitialized(t)

	b, err := d.CreateBuffer(backend.BufferAttribute, 16)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	data := []byte{1, 2, 3, 4}
	if err := d.WriteBuffer(b, 4, data); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	got, err := d.ReadBuffer(b, 4, 4)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("ReadBuffer = %v, want %v", got, data)
		}
	}

	if err := d.WriteBuffer(b, 14, data); err == nil {
		t.Error("out-of-range write succeeded")
	}
	if _, err := d.ReadBuffer(b, 0, 32); err == nil {
		t.Error("out-of-range read succeeded")
	}
}

func TestTextureRoundTrip(t *testing.T) {
	d := newInitialized(t)

	desc := backend.TextureDesc{Format: viz.FormatRGBA8, Dim: 2, SizeX: 2, SizeY: 2}
	data := make([]byte, 2*2*4)
	for i := range data {
		data[i] = byte(i)
	}
	tex, err := d.CreateTexture(desc, data)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	got, err := d.ReadTexture(tex)
	if err != nil {
		t.Fatalf("ReadTexture: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("ReadTexture mismatch at %d", i)
		}
	}

	if _, err := d.CreateTexture(desc, []byte{1, 2}); err == nil {
		t.Error("CreateTexture accepted short data")
	}
}

func TestFramebufferCompleteness(t *testing.T) {
	d := newInitialized(t)

	fb, _ := d.CreateFramebuffer()
	if d.FramebufferComplete(fb) {
		t.Error("empty framebuffer reported complete")
	}

	color, _ := d.CreateRenderBuffer(viz.RenderBufferColorAlpha, 4, 4)
	depth, _ := d.CreateRenderBuffer(viz.RenderBufferDepth, 4, 4)
	if err := d.AttachColor(fb, 0, backend.Attachment{RenderBuffer: color}); err != nil {
		t.Fatalf("AttachColor: %v", err)
	}
	if err := d.AttachDepth(fb, backend.Attachment{RenderBuffer: depth}); err != nil {
		t.Fatalf("AttachDepth: %v", err)
	}
	if !d.FramebufferComplete(fb) {
		t.Error("framebuffer with matching attachments reported incomplete")
	}

	// Mismatched sizes make it incomplete again, not an error.
	small, _ := d.CreateRenderBuffer(viz.RenderBufferDepth, 2, 2)
	if err := d.AttachDepth(fb, backend.Attachment{RenderBuffer: small}); err != nil {
		t.Fatalf("AttachDepth: %v", err)
	}
	if d.FramebufferComplete(fb) {
		t.Error("size-mismatched framebuffer reported complete")
	}
}

func TestClearAndReadback(t *testing.T) {
	d := newInitialized(t)

	fb, _ := d.CreateFramebuffer()
	color, _ := d.CreateRenderBuffer(viz.RenderBufferFloat4, 2, 2)
	if err := d.AttachColor(fb, 0, backend.Attachment{RenderBuffer: color}); err != nil {
		t.Fatalf("AttachColor: %v", err)
	}

	want := viz.Vec4{X: 0.25, Y: 0.5, Z: 0.75, W: 1}
	if err := d.ClearFramebuffer(fb, want, 1.0); err != nil {
		t.Fatalf("ClearFramebuffer: %v", err)
	}

	got, err := d.ReadFramebufferPixel(fb, 1, 1)
	if err != nil {
		t.Fatalf("ReadFramebufferPixel: %v", err)
	}
	if got != want {
		t.Errorf("pixel = %+v, want %+v", got, want)
	}

	rgba, err := d.ReadFramebuffer(fb)
	if err != nil {
		t.Fatalf("ReadFramebuffer: %v", err)
	}
	if len(rgba) != 2*2*4 {
		t.Fatalf("ReadFramebuffer returned %d bytes, want 16", len(rgba))
	}
	if rgba[0] != 64 || rgba[1] != 128 || rgba[2] != 191 || rgba[3] != 255 {
		t.Errorf("first pixel = %v, want quantized clear color", rgba[:4])
	}

	if _, err := d.ReadFramebufferPixel(fb, 5, 0); err == nil {
		t.Error("out-of-bounds pixel read succeeded")
	}
}

func TestBlitCopiesColor(t *testing.T) {
	d := newInitialized(t)

	mkfb := func() backend.FramebufferID {
		fb, _ := d.CreateFramebuffer()
		rb, _ := d.CreateRenderBuffer(viz.RenderBufferFloat4, 2, 2)
		if err := d.AttachColor(fb, 0, backend.Attachment{RenderBuffer: rb}); err != nil {
			t.Fatalf("AttachColor: %v", err)
		}
		return fb
	}
	src, dst := mkfb(), mkfb()

	want := viz.Vec4{X: 1, Y: 0.5, Z: 0, W: 1}
	if err := d.ClearFramebuffer(src, want, 1.0); err != nil {
		t.Fatalf("ClearFramebuffer: %v", err)
	}
	if err := d.BlitFramebuffer(src, dst, 2, 2); err != nil {
		t.Fatalf("BlitFramebuffer: %v", err)
	}
	got, err := d.ReadFramebufferPixel(dst, 0, 0)
	if err != nil {
		t.Fatalf("ReadFramebufferPixel: %v", err)
	}
	if got != want {
		t.Errorf("blitted pixel = %+v, want %+v", got, want)
	}
}

func TestDrawRecords(t *testing.T) {
	d := newInitialized(t)

	p, err := d.CompileProgram(testStages())
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	b, _ := d.CreateBuffer(backend.BufferAttribute, 36)

	call := &backend.DrawCall{
		Program:     p.ID,
		Mode:        viz.DrawTriangles,
		VertexCount: 3,
		Attributes: []backend.AttributeBinding{
			{Location: 0, Buffer: b, Type: viz.TypeVec3, ArrayCount: 1},
		},
	}
	if err := d.Draw(call); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(d.Draws()) != 1 {
		t.Fatalf("Draws = %d calls, want 1", len(d.Draws()))
	}
	if d.Draws()[0].VertexCount != 3 {
		t.Errorf("recorded VertexCount = %d", d.Draws()[0].VertexCount)
	}

	call.Program = 9999
	if err := d.Draw(call); err == nil {
		t.Error("Draw with bogus program succeeded")
	}
}

func TestCheckErrorIsStickyThenClears(t *testing.T) {
	d := newInitialized(t)

	if err := d.CheckError(); err != nil {
		t.Fatalf("fresh device has error: %v", err)
	}
	if err := d.WriteBuffer(12345, 0, []byte{1}); err == nil {
		t.Fatal("write to bogus buffer succeeded")
	}
	if err := d.CheckError(); err == nil {
		t.Error("CheckError lost the failure")
	}
	if err := d.CheckError(); err != nil {
		t.Error("CheckError did not clear after polling")
	}
}

func TestHalfFloatTextureRoundTrip(t *testing.T) {
	d := newInitialized(t)

	tex, err := d.CreateTexture(backend.TextureDesc{Format: viz.FormatR16F, Dim: 1, SizeX: 4}, nil)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	fillTexture(d.textures[tex], [4]float32{0.25})
	px := texturePixel(d.textures[tex], 3)
	if px[0] != 0.25 {
		t.Errorf("half float texel = %v, want 0.25", px[0])
	}
}
