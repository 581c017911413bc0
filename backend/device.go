package backend

import (
	"github.com/gogpu/viz"
	"github.com/gogpu/viz/shader"
)

// Well-known device names.
const (
	// DeviceWGPU renders on real hardware through the wgpu hal.
	DeviceWGPU = "wgpu"

	// DeviceHeadless compiles shaders with naga and keeps all resources in
	// host memory. No GPU required; draws are recorded, not rasterized.
	DeviceHeadless = "headless"
)

// Resource handles. Zero is never a valid handle.
type (
	ProgramID      uint64
	BufferID       uint64
	TextureID      uint64
	RenderBufferID uint64
	FramebufferID  uint64
)

// BufferKind selects what a buffer feeds.
type BufferKind int

const (
	BufferAttribute BufferKind = iota
	BufferIndex
)

// Program is a compiled shader program together with the slot locations the
// device resolved. A declared name missing from a map was eliminated during
// compilation; callers treat it as location -1.
type Program struct {
	ID         ProgramID
	Uniforms   map[string]int
	Attributes map[string]int
	Textures   map[string]int
}

// TextureDesc describes a texture allocation. SizeY and SizeZ are ignored
// for lower dimensionalities.
type TextureDesc struct {
	Format viz.TextureFormat
	Dim    int
	SizeX  int
	SizeY  int
	SizeZ  int
}

// Attachment names a framebuffer attachment target. Exactly one field is
// nonzero.
type Attachment struct {
	Texture      TextureID
	RenderBuffer RenderBufferID
}

// AttributeBinding feeds one vertex attribute slot from a buffer.
type AttributeBinding struct {
	Location   int
	Buffer     BufferID
	Type       viz.DataType
	ArrayCount int
}

// IndexBinding feeds the element index stream.
type IndexBinding struct {
	Buffer BufferID
	Type   viz.DataType
	Count  int
}

// TextureBinding binds a texture to a sampler slot at a texture unit.
type TextureBinding struct {
	Location int
	Unit     int
	Texture  TextureID
}

// DrawCall is one fully resolved draw submission. The engine validates it
// before handing it to the device; devices may assume consistency.
type DrawCall struct {
	Program  ProgramID
	Target   FramebufferID // 0 draws to the default target
	Viewport [4]int        // x, y, w, h
	Mode     viz.DrawMode

	VertexCount   int
	InstanceCount int // 0 for non-instanced modes

	Attributes []AttributeBinding
	Index      *IndexBinding // nil for non-indexed modes
	Textures   []TextureBinding

	PrimitiveRestartIndex uint32 // consulted only for restart-capable modes
}

// Device is the native-API boundary. All methods report failure through
// errors; none panic. Handles returned by Create* are valid until the
// matching Destroy* or Close.
type Device interface {
	// Name returns the device identifier, e.g. "wgpu" or "headless".
	Name() string

	// Init acquires the native device. Must be called before any other
	// operation.
	Init() error

	// Close releases every live resource. The device is unusable after.
	Close()

	// CompileProgram compiles the fully specialized stages into a program
	// and resolves slot locations. Compile failures wrap ErrCompile and
	// carry a line-numbered listing of the offending source.
	CompileProgram(stages []shader.StageSpec) (*Program, error)
	DestroyProgram(p ProgramID)

	// SetUniform stores a uniform value on a program. The value's dynamic
	// type must match typ (int32, uint32, float32, viz.Vec2..Vec4,
	// viz.UVec2..UVec4, viz.Mat4). Location -1 is a no-op.
	SetUniform(p ProgramID, location int, typ viz.DataType, value any) error

	CreateBuffer(kind BufferKind, sizeBytes int) (BufferID, error)
	WriteBuffer(b BufferID, offsetBytes int, data []byte) error
	ReadBuffer(b BufferID, offsetBytes, sizeBytes int) ([]byte, error)
	DestroyBuffer(b BufferID)

	CreateTexture(desc TextureDesc, data []byte) (TextureID, error)
	WriteTexture(t TextureID, data []byte) error
	ResizeTexture(t TextureID, sizeX, sizeY, sizeZ int) error
	SetTextureFilter(t TextureID, filter viz.FilterMode) error
	ReadTexture(t TextureID) ([]byte, error)
	DestroyTexture(t TextureID)

	CreateRenderBuffer(kind viz.RenderBufferKind, width, height int) (RenderBufferID, error)
	DestroyRenderBuffer(r RenderBufferID)

	CreateFramebuffer() (FramebufferID, error)
	AttachColor(fb FramebufferID, slot int, att Attachment) error
	AttachDepth(fb FramebufferID, att Attachment) error
	// FramebufferComplete reports whether the framebuffer can currently be
	// rendered to. Incomplete is an expected state, not an error.
	FramebufferComplete(fb FramebufferID) bool
	ClearFramebuffer(fb FramebufferID, color viz.Vec4, depth float64) error
	DestroyFramebuffer(fb FramebufferID)

	// ReadFramebufferPixel reads attachment 0 at (x, y) as four floats.
	ReadFramebufferPixel(fb FramebufferID, x, y int) (viz.Vec4, error)
	ReadFramebufferDepth(fb FramebufferID, x, y int) (float32, error)
	// ReadFramebuffer reads attachment 0 as tightly packed RGBA8.
	ReadFramebuffer(fb FramebufferID) ([]byte, error)
	BlitFramebuffer(src, dst FramebufferID, width, height int) error

	Draw(call *DrawCall) error

	// CheckError polls and clears the device error state.
	CheckError() error

	Flush()
	Finish()
}
