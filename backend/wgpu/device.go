package wgpu

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	"github.com/gogpu/viz/shader"
)

func init() {
	backend.Register(backend.DeviceWGPU, func() backend.Device {
		return New()
	})
}

// DeviceHandle provides GPU device access from a host application.
//
// When the host already owns a GPU device (a windowing framework, a compute
// pipeline), it passes the handle in through WithDeviceHandle and this
// package reuses it instead of opening its own adapter. DeviceHandle is an
// alias for gpucontext.DeviceProvider, keeping the package compatible with
// the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// halProvider is implemented by providers that expose raw hal handles.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

const fenceTimeout = 5 * time.Second

type program struct {
	modules  []hal.ShaderModule
	stages   []shader.StageSpec
	uniforms map[int]stagedUniform
}

type stagedUniform struct {
	typ viz.DataType
	val any
}

type buffer struct {
	buf  hal.Buffer
	size int
	kind backend.BufferKind
}

type texture struct {
	tex  hal.Texture
	desc backend.TextureDesc
}

type renderBuffer struct {
	tex    hal.Texture
	kind   viz.RenderBufferKind
	width  int
	height int
}

type attachment struct {
	set     bool
	texture backend.TextureID
	render  backend.RenderBufferID
}

type framebuffer struct {
	colors [8]attachment
	depth  attachment
}

// Device implements backend.Device on the wgpu hal.
type Device struct {
	handle DeviceHandle

	instance hal.Instance
	dev      hal.Device
	queue    hal.Queue
	ownsDev  bool

	nextID        uint64
	programs      map[backend.ProgramID]*program
	buffers       map[backend.BufferID]*buffer
	textures      map[backend.TextureID]*texture
	renderBuffers map[backend.RenderBufferID]*renderBuffer
	framebuffers  map[backend.FramebufferID]*framebuffer

	err error
}

// Option configures a Device.
type Option func(*Device)

// WithDeviceHandle makes the device reuse the host application's GPU device
// instead of opening its own adapter.
func WithDeviceHandle(h DeviceHandle) Option {
	return func(d *Device) { d.handle = h }
}

// New returns an uninitialized hardware device.
func New(opts ...Option) *Device {
	d := &Device{
		programs:      make(map[backend.ProgramID]*program),
		buffers:       make(map[backend.BufferID]*buffer),
		textures:      make(map[backend.TextureID]*texture),
		renderBuffers: make(map[backend.RenderBufferID]*renderBuffer),
		framebuffers:  make(map[backend.FramebufferID]*framebuffer),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) Name() string { return backend.DeviceWGPU }

func (d *Device) Init() error {
	if d.handle != nil {
		if hp, ok := d.handle.(halProvider); ok {
			dev, okDev := hp.HalDevice().(hal.Device)
			queue, okQueue := hp.HalQueue().(hal.Queue)
			if !okDev || !okQueue {
				return fmt.Errorf("wgpu: device handle does not expose hal handles")
			}
			d.dev, d.queue = dev, queue
			viz.Logger().Info("using shared GPU device from host")
			return nil
		}
		return fmt.Errorf("wgpu: device handle does not expose hal handles")
	}

	be, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := be.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	d.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	d.dev = openDev.Device
	d.queue = openDev.Queue
	d.ownsDev = true
	viz.Logger().Info("GPU device initialized", slog.String("adapter", selected.Info.Name))
	return nil
}

func (d *Device) Close() {
	for _, p := range d.programs {
		for _, m := range p.modules {
			d.dev.DestroyShaderModule(m)
		}
	}
	for _, b := range d.buffers {
		d.dev.DestroyBuffer(b.buf)
	}
	for _, t := range d.textures {
		d.dev.DestroyTexture(t.tex)
	}
	for _, rb := range d.renderBuffers {
		d.dev.DestroyTexture(rb.tex)
	}
	d.programs = nil
	d.buffers = nil
	d.textures = nil
	d.renderBuffers = nil
	d.framebuffers = nil
	if d.ownsDev && d.dev != nil {
		d.dev.Destroy()
	}
	d.dev = nil
	d.queue = nil
}

func (d *Device) fail(err error) error {
	if err != nil {
		d.err = err
	}
	return err
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) CompileProgram(stages []shader.StageSpec) (*backend.Program, error) {
	if d.dev == nil {
		return nil, d.fail(backend.ErrNotInitialized)
	}
	// naga validation first: its diagnostics carry line and column, the
	// hal error would not.
	for _, s := range stages {
		if _, err := naga.Compile(s.Source); err != nil {
			return nil, d.fail(fmt.Errorf("%w: %s stage: %v", backend.ErrCompile, s.Kind, err))
		}
	}

	modules := make([]hal.ShaderModule, 0, len(stages))
	for _, s := range stages {
		m, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  s.Kind.String(),
			Source: hal.ShaderSource{WGSL: s.Source},
		})
		if err != nil {
			for _, prev := range modules {
				d.dev.DestroyShaderModule(prev)
			}
			return nil, d.fail(fmt.Errorf("%w: %s stage: %v", backend.ErrCompile, s.Kind, err))
		}
		modules = append(modules, m)
	}

	p := &backend.Program{
		ID:         backend.ProgramID(d.id()),
		Uniforms:   make(map[string]int),
		Attributes: make(map[string]int),
		Textures:   make(map[string]int),
	}
	for _, s := range stages {
		for _, u := range s.Uniforms {
			if _, ok := p.Uniforms[u.Name]; !ok {
				p.Uniforms[u.Name] = len(p.Uniforms)
			}
		}
		for _, a := range s.Attributes {
			if _, ok := p.Attributes[a.Name]; !ok {
				p.Attributes[a.Name] = len(p.Attributes)
			}
		}
		for _, t := range s.Textures {
			if _, ok := p.Textures[t.Name]; !ok {
				p.Textures[t.Name] = len(p.Textures)
			}
		}
	}

	d.programs[p.ID] = &program{
		modules:  modules,
		stages:   stages,
		uniforms: make(map[int]stagedUniform),
	}
	return p, nil
}

func (d *Device) DestroyProgram(p backend.ProgramID) {
	prog, ok := d.programs[p]
	if !ok {
		return
	}
	for _, m := range prog.modules {
		d.dev.DestroyShaderModule(m)
	}
	delete(d.programs, p)
}

func (d *Device) SetUniform(p backend.ProgramID, location int, typ viz.DataType, value any) error {
	if location < 0 {
		return nil
	}
	prog, ok := d.programs[p]
	if !ok {
		return d.fail(fmt.Errorf("set uniform: %w", backend.ErrInvalidHandle))
	}
	// Staged client-side; packed into the uniform buffer when the draw is
	// encoded.
	prog.uniforms[location] = stagedUniform{typ: typ, val: value}
	return nil
}

func (d *Device) CreateBuffer(kind backend.BufferKind, sizeBytes int) (backend.BufferID, error) {
	if d.dev == nil {
		return 0, d.fail(backend.ErrNotInitialized)
	}
	usage := gputypes.BufferUsageVertex
	if kind == backend.BufferIndex {
		usage = gputypes.BufferUsageIndex
	}
	buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "viz_buffer",
		Size:  uint64(sizeBytes),
		Usage: usage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return 0, d.fail(fmt.Errorf("wgpu: create buffer: %w", err))
	}
	id := backend.BufferID(d.id())
	d.buffers[id] = &buffer{buf: buf, size: sizeBytes, kind: kind}
	return id, nil
}

func (d *Device) WriteBuffer(b backend.BufferID, offsetBytes int, data []byte) error {
	buf, ok := d.buffers[b]
	if !ok {
		return d.fail(fmt.Errorf("write buffer: %w", backend.ErrInvalidHandle))
	}
	if offsetBytes < 0 || offsetBytes+len(data) > buf.size {
		return d.fail(fmt.Errorf("write buffer: range [%d, %d) exceeds size %d",
			offsetBytes, offsetBytes+len(data), buf.size))
	}
	d.queue.WriteBuffer(buf.buf, uint64(offsetBytes), data)
	return nil
}

// ReadBuffer copies through a mappable staging buffer; device-local vertex
// and index memory cannot be read directly.
func (d *Device) ReadBuffer(b backend.BufferID, offsetBytes, sizeBytes int) ([]byte, error) {
	buf, ok := d.buffers[b]
	if !ok {
		return nil, d.fail(fmt.Errorf("read buffer: %w", backend.ErrInvalidHandle))
	}
	if offsetBytes < 0 || sizeBytes < 0 || offsetBytes+sizeBytes > buf.size {
		return nil, d.fail(fmt.Errorf("read buffer: range [%d, %d) exceeds size %d",
			offsetBytes, offsetBytes+sizeBytes, buf.size))
	}

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "viz_staging",
		Size:  uint64(sizeBytes),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, d.fail(fmt.Errorf("wgpu: create staging buffer: %w", err))
	}
	defer d.dev.DestroyBuffer(staging)

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "viz_readback"})
	if err != nil {
		return nil, d.fail(fmt.Errorf("wgpu: create encoder: %w", err))
	}
	encoder.CopyBufferToBuffer(buf.buf, staging, []hal.BufferCopy{
		{SrcOffset: uint64(offsetBytes), DstOffset: 0, Size: uint64(sizeBytes)},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, d.fail(fmt.Errorf("wgpu: end encoding: %w", err))
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait([]hal.CommandBuffer{cmdBuf}); err != nil {
		return nil, d.fail(err)
	}

	out := make([]byte, sizeBytes)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, d.fail(fmt.Errorf("wgpu: readback: %w", err))
	}
	return out, nil
}

func (d *Device) submitAndWait(cmds []hal.CommandBuffer) error {
	fence, err := d.dev.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.dev.DestroyFence(fence)

	if err := d.queue.Submit(cmds, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.dev.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wgpu: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

func (d *Device) DestroyBuffer(b backend.BufferID) {
	if buf, ok := d.buffers[b]; ok {
		d.dev.DestroyBuffer(buf.buf)
		delete(d.buffers, b)
	}
}

func (d *Device) createTexture(desc backend.TextureDesc, usage gputypes.TextureUsage) (hal.Texture, error) {
	sy, sz := desc.SizeY, desc.SizeZ
	if desc.Dim < 2 {
		sy = 1
	}
	if desc.Dim < 3 {
		sz = 1
	}
	return d.dev.CreateTexture(&hal.TextureDescriptor{
		Label: "viz_texture",
		Size: hal.Extent3D{
			Width:              uint32(desc.SizeX),
			Height:             uint32(sy),
			DepthOrArrayLayers: uint32(sz),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     textureDimension(desc.Dim),
		Format:        deviceFormat(desc.Format),
		Usage:         usage,
	})
}

func (d *Device) CreateTexture(desc backend.TextureDesc, data []byte) (backend.TextureID, error) {
	if d.dev == nil {
		return 0, d.fail(backend.ErrNotInitialized)
	}
	tex, err := d.createTexture(desc,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopySrc|gputypes.TextureUsageCopyDst)
	if err != nil {
		return 0, d.fail(fmt.Errorf("wgpu: create texture: %w", err))
	}
	id := backend.TextureID(d.id())
	d.textures[id] = &texture{tex: tex, desc: desc}
	if data != nil {
		if err := d.WriteTexture(id, data); err != nil {
			d.DestroyTexture(id)
			return 0, err
		}
	}
	return id, nil
}

func (d *Device) WriteTexture(t backend.TextureID, data []byte) error {
	tex, ok := d.textures[t]
	if !ok {
		return d.fail(fmt.Errorf("write texture: %w", backend.ErrInvalidHandle))
	}
	desc := tex.desc
	upload := convertTexels(desc.Format, data)

	sy, sz := desc.SizeY, desc.SizeZ
	if desc.Dim < 2 {
		sy = 1
	}
	if desc.Dim < 3 {
		sz = 1
	}
	bytesPerRow := desc.SizeX * deviceTexelBytes(desc.Format)
	want := bytesPerRow * sy * sz
	if len(upload) != want {
		return d.fail(fmt.Errorf("write texture: %d bytes of data for %d-byte texture", len(upload), want))
	}

	dst := &hal.ImageCopyTexture{
		Texture:  tex.tex,
		MipLevel: 0,
		Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
		Aspect:   gputypes.TextureAspectAll,
	}
	layout := &hal.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(bytesPerRow),
		RowsPerImage: uint32(sy),
	}
	size := &hal.Extent3D{
		Width:              uint32(desc.SizeX),
		Height:             uint32(sy),
		DepthOrArrayLayers: uint32(sz),
	}
	d.queue.WriteTexture(dst, upload, layout, size)
	return nil
}

func (d *Device) ResizeTexture(t backend.TextureID, sizeX, sizeY, sizeZ int) error {
	tex, ok := d.textures[t]
	if !ok {
		return d.fail(fmt.Errorf("resize texture: %w", backend.ErrInvalidHandle))
	}
	// hal textures are immutable in size; reallocate.
	desc := tex.desc
	desc.SizeX, desc.SizeY, desc.SizeZ = sizeX, sizeY, sizeZ
	fresh, err := d.createTexture(desc,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopySrc|gputypes.TextureUsageCopyDst)
	if err != nil {
		return d.fail(fmt.Errorf("wgpu: resize texture: %w", err))
	}
	d.dev.DestroyTexture(tex.tex)
	tex.tex = fresh
	tex.desc = desc
	return nil
}

func (d *Device) SetTextureFilter(t backend.TextureID, filter viz.FilterMode) error {
	if _, ok := d.textures[t]; !ok {
		return d.fail(fmt.Errorf("set texture filter: %w", backend.ErrInvalidHandle))
	}
	// Filtering lives in the sampler, created per bind group at draw
	// encoding time; nothing to do on the texture itself.
	return nil
}

func (d *Device) ReadTexture(t backend.TextureID) ([]byte, error) {
	if _, ok := d.textures[t]; !ok {
		return nil, d.fail(fmt.Errorf("read texture: %w", backend.ErrInvalidHandle))
	}
	// Texture-to-buffer copies are part of the pending raster path.
	return nil, d.fail(fmt.Errorf("read texture: %w", ErrNotImplemented))
}

func (d *Device) DestroyTexture(t backend.TextureID) {
	if tex, ok := d.textures[t]; ok {
		d.dev.DestroyTexture(tex.tex)
		delete(d.textures, t)
	}
}

func (d *Device) CreateRenderBuffer(kind viz.RenderBufferKind, width, height int) (backend.RenderBufferID, error) {
	if d.dev == nil {
		return 0, d.fail(backend.ErrNotInitialized)
	}
	tex, err := d.createTexture(backend.TextureDesc{
		Format: renderBufferFormat(kind),
		Dim:    2,
		SizeX:  width,
		SizeY:  height,
	}, gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return 0, d.fail(fmt.Errorf("wgpu: create render buffer: %w", err))
	}
	id := backend.RenderBufferID(d.id())
	d.renderBuffers[id] = &renderBuffer{tex: tex, kind: kind, width: width, height: height}
	return id, nil
}

func (d *Device) DestroyRenderBuffer(r backend.RenderBufferID) {
	if rb, ok := d.renderBuffers[r]; ok {
		d.dev.DestroyTexture(rb.tex)
		delete(d.renderBuffers, r)
	}
}

func (d *Device) CreateFramebuffer() (backend.FramebufferID, error) {
	if d.dev == nil {
		return 0, d.fail(backend.ErrNotInitialized)
	}
	id := backend.FramebufferID(d.id())
	d.framebuffers[id] = &framebuffer{}
	return id, nil
}

func (d *Device) framebuffer(fb backend.FramebufferID) (*framebuffer, error) {
	f, ok := d.framebuffers[fb]
	if !ok {
		return nil, fmt.Errorf("framebuffer: %w", backend.ErrInvalidHandle)
	}
	return f, nil
}

func (d *Device) validAttachment(att backend.Attachment) bool {
	if att.Texture != 0 {
		_, ok := d.textures[att.Texture]
		return ok && att.RenderBuffer == 0
	}
	if att.RenderBuffer != 0 {
		_, ok := d.renderBuffers[att.RenderBuffer]
		return ok
	}
	return false
}

func (d *Device) AttachColor(fb backend.FramebufferID, slot int, att backend.Attachment) error {
	f, err := d.framebuffer(fb)
	if err != nil {
		return d.fail(err)
	}
	if slot < 0 || slot >= len(f.colors) {
		return d.fail(fmt.Errorf("attach color: slot %d out of range", slot))
	}
	if !d.validAttachment(att) {
		return d.fail(fmt.Errorf("attach color: %w", backend.ErrInvalidHandle))
	}
	f.colors[slot] = attachment{set: true, texture: att.Texture, render: att.RenderBuffer}
	return nil
}

func (d *Device) AttachDepth(fb backend.FramebufferID, att backend.Attachment) error {
	f, err := d.framebuffer(fb)
	if err != nil {
		return d.fail(err)
	}
	if !d.validAttachment(att) {
		return d.fail(fmt.Errorf("attach depth: %w", backend.ErrInvalidHandle))
	}
	f.depth = attachment{set: true, texture: att.Texture, render: att.RenderBuffer}
	return nil
}

func (d *Device) attachmentSize(a attachment) (int, int, bool) {
	if a.texture != 0 {
		if tex, ok := d.textures[a.texture]; ok && tex.desc.Dim == 2 {
			return tex.desc.SizeX, tex.desc.SizeY, true
		}
		return 0, 0, false
	}
	if rb, ok := d.renderBuffers[a.render]; ok {
		return rb.width, rb.height, true
	}
	return 0, 0, false
}

func (d *Device) FramebufferComplete(fb backend.FramebufferID) bool {
	f, err := d.framebuffer(fb)
	if err != nil {
		return false
	}
	w, h := -1, -1
	attached := false
	check := func(a attachment) bool {
		if !a.set {
			return true
		}
		aw, ah, ok := d.attachmentSize(a)
		if !ok {
			return false
		}
		if w < 0 {
			w, h = aw, ah
		}
		attached = true
		return aw == w && ah == h
	}
	for _, c := range f.colors {
		if !check(c) {
			return false
		}
	}
	if !check(f.depth) {
		return false
	}
	return attached
}

func (d *Device) ClearFramebuffer(fb backend.FramebufferID, color viz.Vec4, depth float64) error {
	if _, err := d.framebuffer(fb); err != nil {
		return d.fail(err)
	}
	// Clears ride on the render pass load op, part of the pending raster
	// path.
	return d.fail(fmt.Errorf("clear framebuffer: %w", ErrNotImplemented))
}

func (d *Device) DestroyFramebuffer(fb backend.FramebufferID) {
	delete(d.framebuffers, fb)
}

func (d *Device) ReadFramebufferPixel(fb backend.FramebufferID, x, y int) (viz.Vec4, error) {
	if _, err := d.framebuffer(fb); err != nil {
		return viz.Vec4{}, d.fail(err)
	}
	return viz.Vec4{}, d.fail(fmt.Errorf("framebuffer readback: %w", ErrNotImplemented))
}

func (d *Device) ReadFramebufferDepth(fb backend.FramebufferID, x, y int) (float32, error) {
	if _, err := d.framebuffer(fb); err != nil {
		return 0, d.fail(err)
	}
	return 0, d.fail(fmt.Errorf("framebuffer readback: %w", ErrNotImplemented))
}

func (d *Device) ReadFramebuffer(fb backend.FramebufferID) ([]byte, error) {
	if _, err := d.framebuffer(fb); err != nil {
		return nil, d.fail(err)
	}
	return nil, d.fail(fmt.Errorf("framebuffer readback: %w", ErrNotImplemented))
}

func (d *Device) BlitFramebuffer(src, dst backend.FramebufferID, width, height int) error {
	if _, err := d.framebuffer(src); err != nil {
		return d.fail(err)
	}
	if _, err := d.framebuffer(dst); err != nil {
		return d.fail(err)
	}
	return d.fail(fmt.Errorf("blit: %w", ErrNotImplemented))
}

func (d *Device) Draw(call *backend.DrawCall) error {
	if d.dev == nil {
		return d.fail(backend.ErrNotInitialized)
	}
	if _, ok := d.programs[call.Program]; !ok {
		return d.fail(fmt.Errorf("draw: program: %w", backend.ErrInvalidHandle))
	}
	for _, ab := range call.Attributes {
		if _, ok := d.buffers[ab.Buffer]; !ok {
			return d.fail(fmt.Errorf("draw: attribute buffer: %w", backend.ErrInvalidHandle))
		}
	}
	if call.Index != nil {
		if _, ok := d.buffers[call.Index.Buffer]; !ok {
			return d.fail(fmt.Errorf("draw: index buffer: %w", backend.ErrInvalidHandle))
		}
	}
	// Render pipeline construction over hal is incomplete; see package doc.
	return d.fail(fmt.Errorf("draw: %w", ErrNotImplemented))
}

func (d *Device) CheckError() error {
	err := d.err
	d.err = nil
	return err
}

func (d *Device) Flush() {}

// Finish blocks until submitted work completes. Per-operation submissions
// already fence-wait, so an empty submit round-trip is sufficient.
func (d *Device) Finish() {
	if d.dev == nil {
		return
	}
	if err := d.submitAndWait(nil); err != nil {
		d.err = err
	}
}

