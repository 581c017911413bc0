package headless

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	"github.com/gogpu/viz/shader"
)

func init() {
	backend.Register(backend.DeviceHeadless, func() backend.Device {
		return New()
	})
}

type program struct {
	stages   []shader.StageSpec
	uniforms map[string]progSlot
}

type progSlot struct {
	typ viz.DataType
	val any
}

type buffer struct {
	kind backend.BufferKind
	data []byte
}

type texture struct {
	desc backend.TextureDesc
	data []byte
}

type renderBuffer struct {
	kind   viz.RenderBufferKind
	width  int
	height int
	// 4 floats per pixel for color kinds, 1 for depth.
	data []float32
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

// Device is an in-memory implementation of backend.Device.
type Device struct {
	initialized bool
	nextID      uint64

	programs      map[backend.ProgramID]*program
	buffers       map[backend.BufferID]*buffer
	textures      map[backend.TextureID]*texture
	renderBuffers map[backend.RenderBufferID]*renderBuffer
	framebuffers  map[backend.FramebufferID]*framebuffer

	draws        []backend.DrawCall
	compileCount int
	err          error
}

// New returns an uninitialized headless device.
func New() *Device {
	return &Device{
		programs:      make(map[backend.ProgramID]*program),
		buffers:       make(map[backend.BufferID]*buffer),
		textures:      make(map[backend.TextureID]*texture),
		renderBuffers: make(map[backend.RenderBufferID]*renderBuffer),
		framebuffers:  make(map[backend.FramebufferID]*framebuffer),
	}
}

func (d *Device) Name() string { return backend.DeviceHeadless }

func (d *Device) Init() error {
	d.initialized = true
	viz.Logger().Debug("headless device initialized")
	return nil
}

func (d *Device) Close() {
	d.programs = nil
	d.buffers = nil
	d.textures = nil
	d.renderBuffers = nil
	d.framebuffers = nil
	d.draws = nil
	d.initialized = false
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

// Draws returns the draw calls submitted since the last ResetDraws.
func (d *Device) Draws() []backend.DrawCall { return d.draws }

// ResetDraws clears the recorded draw list.
func (d *Device) ResetDraws() { d.draws = nil }

// CompileCount returns how many programs have been compiled on this device.
func (d *Device) CompileCount() int { return d.compileCount }

// numberedSource formats src with 1-based line numbers for diagnostics.
func numberedSource(src string) string {
	lines := strings.Split(src, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%4d: %s\n", i+1, line)
	}
	return b.String()
}

func (d *Device) CompileProgram(stages []shader.StageSpec) (*backend.Program, error) {
	if !d.initialized {
		return nil, d.fail(backend.ErrNotInitialized)
	}
	for _, s := range stages {
		if _, err := naga.Compile(s.Source); err != nil {
			return nil, d.fail(fmt.Errorf("%w: %s stage: %v\n%s",
				backend.ErrCompile, s.Kind, err, numberedSource(s.Source)))
		}
	}

	p := &backend.Program{
		ID:         backend.ProgramID(d.id()),
		Uniforms:   make(map[string]int),
		Attributes: make(map[string]int),
		Textures:   make(map[string]int),
	}
	// Slot locations mirror compiler behavior: a declared name that never
	// made it into the final source was eliminated and gets no location.
	for _, s := range stages {
		for _, u := range s.Uniforms {
			if _, ok := p.Uniforms[u.Name]; ok {
				continue
			}
			if strings.Contains(s.Source, u.Name) {
				p.Uniforms[u.Name] = len(p.Uniforms)
			}
		}
		for _, a := range s.Attributes {
			if _, ok := p.Attributes[a.Name]; ok {
				continue
			}
			if strings.Contains(s.Source, a.Name) {
				p.Attributes[a.Name] = len(p.Attributes)
			}
		}
		for _, t := range s.Textures {
			if _, ok := p.Textures[t.Name]; ok {
				continue
			}
			if strings.Contains(s.Source, t.Name) {
				p.Textures[t.Name] = len(p.Textures)
			}
		}
	}

	d.programs[p.ID] = &program{
		stages:   stages,
		uniforms: make(map[string]progSlot),
	}
	d.compileCount++
	viz.Logger().Debug("compiled program",
		slog.Int("stages", len(stages)),
		slog.Int("uniforms", len(p.Uniforms)),
		slog.Int("attributes", len(p.Attributes)))
	return p, nil
}

func (d *Device) DestroyProgram(p backend.ProgramID) {
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
	prog.uniforms[fmt.Sprintf("loc%d", location)] = progSlot{typ: typ, val: value}
	return nil
}

func (d *Device) CreateBuffer(kind backend.BufferKind, sizeBytes int) (backend.BufferID, error) {
	if !d.initialized {
		return 0, d.fail(backend.ErrNotInitialized)
	}
	id := backend.BufferID(d.id())
	d.buffers[id] = &buffer{kind: kind, data: make([]byte, sizeBytes)}
	return id, nil
}

func (d *Device) WriteBuffer(b backend.BufferID, offsetBytes int, data []byte) error {
	buf, ok := d.buffers[b]
	if !ok {
		return d.fail(fmt.Errorf("write buffer: %w", backend.ErrInvalidHandle))
	}
	if offsetBytes < 0 || offsetBytes+len(data) > len(buf.data) {
		return d.fail(fmt.Errorf("write buffer: range [%d, %d) exceeds size %d",
			offsetBytes, offsetBytes+len(data), len(buf.data)))
	}
	copy(buf.data[offsetBytes:], data)
	return nil
}

func (d *Device) ReadBuffer(b backend.BufferID, offsetBytes, sizeBytes int) ([]byte, error) {
	buf, ok := d.buffers[b]
	if !ok {
		return nil, d.fail(fmt.Errorf("read buffer: %w", backend.ErrInvalidHandle))
	}
	if offsetBytes < 0 || sizeBytes < 0 || offsetBytes+sizeBytes > len(buf.data) {
		return nil, d.fail(fmt.Errorf("read buffer: range [%d, %d) exceeds size %d",
			offsetBytes, offsetBytes+sizeBytes, len(buf.data)))
	}
	out := make([]byte, sizeBytes)
	copy(out, buf.data[offsetBytes:])
	return out, nil
}

func (d *Device) DestroyBuffer(b backend.BufferID) {
	delete(d.buffers, b)
}

// texelBytes is the host storage size of one texel.
func texelBytes(f viz.TextureFormat) int {
	switch {
	case f.ByteFormat():
		return f.Channels()
	case f == viz.FormatRG16F, f == viz.FormatRGB16F, f == viz.FormatRGBA16F, f == viz.FormatR16F:
		return 2 * f.Channels()
	default:
		return 4 * f.Channels()
	}
}

func textureBytes(desc backend.TextureDesc) int {
	n := desc.SizeX
	if desc.Dim >= 2 {
		n *= desc.SizeY
	}
	if desc.Dim >= 3 {
		n *= desc.SizeZ
	}
	return n * texelBytes(desc.Format)
}

func (d *Device) CreateTexture(desc backend.TextureDesc, data []byte) (backend.TextureID, error) {
	if !d.initialized {
		return 0, d.fail(backend.ErrNotInitialized)
	}
	want := textureBytes(desc)
	store := make([]byte, want)
	if data != nil {
		if len(data) != want {
			return 0, d.fail(fmt.Errorf("create texture: %d bytes of data for %d-byte texture", len(data), want))
		}
		copy(store, data)
	}
	id := backend.TextureID(d.id())
	d.textures[id] = &texture{desc: desc, data: store}
	return id, nil
}

func (d *Device) WriteTexture(t backend.TextureID, data []byte) error {
	tex, ok := d.textures[t]
	if !ok {
		return d.fail(fmt.Errorf("write texture: %w", backend.ErrInvalidHandle))
	}
	if len(data) != len(tex.data) {
		return d.fail(fmt.Errorf("write texture: %d bytes of data for %d-byte texture", len(data), len(tex.data)))
	}
	copy(tex.data, data)
	return nil
}

func (d *Device) ResizeTexture(t backend.TextureID, sizeX, sizeY, sizeZ int) error {
	tex, ok := d.textures[t]
	if !ok {
		return d.fail(fmt.Errorf("resize texture: %w", backend.ErrInvalidHandle))
	}
	tex.desc.SizeX, tex.desc.SizeY, tex.desc.SizeZ = sizeX, sizeY, sizeZ
	tex.data = make([]byte, textureBytes(tex.desc))
	return nil
}

func (d *Device) SetTextureFilter(t backend.TextureID, filter viz.FilterMode) error {
	if _, ok := d.textures[t]; !ok {
		return d.fail(fmt.Errorf("set texture filter: %w", backend.ErrInvalidHandle))
	}
	return nil
}

func (d *Device) ReadTexture(t backend.TextureID) ([]byte, error) {
	tex, ok := d.textures[t]
	if !ok {
		return nil, d.fail(fmt.Errorf("read texture: %w", backend.ErrInvalidHandle))
	}
	out := make([]byte, len(tex.data))
	copy(out, tex.data)
	return out, nil
}

func (d *Device) DestroyTexture(t backend.TextureID) {
	delete(d.textures, t)
}

func (d *Device) CreateRenderBuffer(kind viz.RenderBufferKind, width, height int) (backend.RenderBufferID, error) {
	if !d.initialized {
		return 0, d.fail(backend.ErrNotInitialized)
	}
	per := 4
	if kind == viz.RenderBufferDepth {
		per = 1
	}
	id := backend.RenderBufferID(d.id())
	d.renderBuffers[id] = &renderBuffer{
		kind:   kind,
		width:  width,
		height: height,
		data:   make([]float32, width*height*per),
	}
	return id, nil
}

func (d *Device) DestroyRenderBuffer(r backend.RenderBufferID) {
	delete(d.renderBuffers, r)
}

func (d *Device) CreateFramebuffer() (backend.FramebufferID, error) {
	if !d.initialized {
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

// attachmentSize returns the pixel dimensions of an attachment.
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
	f, err := d.framebuffer(fb)
	if err != nil {
		return d.fail(err)
	}
	for _, c := range f.colors {
		if c.set {
			d.fillAttachment(c, [4]float32{color.X, color.Y, color.Z, color.W})
		}
	}
	if f.depth.set {
		d.fillAttachment(f.depth, [4]float32{float32(depth)})
	}
	return nil
}

func (d *Device) fillAttachment(a attachment, v [4]float32) {
	if a.render != 0 {
		rb := d.renderBuffers[a.render]
		if rb == nil {
			return
		}
		if rb.kind == viz.RenderBufferDepth {
			for i := range rb.data {
				rb.data[i] = v[0]
			}
			return
		}
		for i := 0; i < len(rb.data); i += 4 {
			copy(rb.data[i:i+4], v[:])
		}
		return
	}
	tex := d.textures[a.texture]
	if tex == nil {
		return
	}
	fillTexture(tex, v)
}

func (d *Device) DestroyFramebuffer(fb backend.FramebufferID) {
	delete(d.framebuffers, fb)
}

// colorAttachment0 resolves attachment slot 0 for readback.
func (d *Device) colorAttachment0(fb backend.FramebufferID) (*framebuffer, attachment, error) {
	f, err := d.framebuffer(fb)
	if err != nil {
		return nil, attachment{}, err
	}
	if !f.colors[0].set {
		return nil, attachment{}, fmt.Errorf("framebuffer readback: no color attachment 0")
	}
	return f, f.colors[0], nil
}

func (d *Device) ReadFramebufferPixel(fb backend.FramebufferID, x, y int) (viz.Vec4, error) {
	_, a, err := d.colorAttachment0(fb)
	if err != nil {
		return viz.Vec4{}, d.fail(err)
	}
	w, h, ok := d.attachmentSize(a)
	if !ok || x < 0 || y < 0 || x >= w || y >= h {
		return viz.Vec4{}, d.fail(fmt.Errorf("framebuffer readback: pixel (%d, %d) outside %dx%d", x, y, w, h))
	}
	px := d.attachmentPixel(a, w, y*w+x)
	return viz.Vec4{X: px[0], Y: px[1], Z: px[2], W: px[3]}, nil
}

func (d *Device) ReadFramebufferDepth(fb backend.FramebufferID, x, y int) (float32, error) {
	f, err := d.framebuffer(fb)
	if err != nil {
		return 0, d.fail(err)
	}
	if !f.depth.set {
		return 0, d.fail(fmt.Errorf("framebuffer readback: no depth attachment"))
	}
	w, h, ok := d.attachmentSize(f.depth)
	if !ok || x < 0 || y < 0 || x >= w || y >= h {
		return 0, d.fail(fmt.Errorf("framebuffer readback: pixel (%d, %d) outside %dx%d", x, y, w, h))
	}
	return d.attachmentPixel(f.depth, w, y*w+x)[0], nil
}

func (d *Device) ReadFramebuffer(fb backend.FramebufferID) ([]byte, error) {
	_, a, err := d.colorAttachment0(fb)
	if err != nil {
		return nil, d.fail(err)
	}
	w, h, ok := d.attachmentSize(a)
	if !ok {
		return nil, d.fail(fmt.Errorf("framebuffer readback: unsized attachment"))
	}
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		px := d.attachmentPixel(a, w, i)
		for c := 0; c < 4; c++ {
			v := px[c]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			out[i*4+c] = byte(v*255 + 0.5)
		}
	}
	return out, nil
}

// attachmentPixel reads pixel i of an attachment as four floats.
func (d *Device) attachmentPixel(a attachment, width, i int) [4]float32 {
	if a.render != 0 {
		rb := d.renderBuffers[a.render]
		if rb == nil {
			return [4]float32{}
		}
		if rb.kind == viz.RenderBufferDepth {
			return [4]float32{rb.data[i]}
		}
		var px [4]float32
		copy(px[:], rb.data[i*4:i*4+4])
		return px
	}
	tex := d.textures[a.texture]
	if tex == nil {
		return [4]float32{}
	}
	return texturePixel(tex, i)
}

func (d *Device) BlitFramebuffer(src, dst backend.FramebufferID, width, height int) error {
	_, sa, err := d.colorAttachment0(src)
	if err != nil {
		return d.fail(err)
	}
	_, da, err := d.colorAttachment0(dst)
	if err != nil {
		return d.fail(err)
	}
	sw, sh, okS := d.attachmentSize(sa)
	dw, dh, okD := d.attachmentSize(da)
	if !okS || !okD {
		return d.fail(fmt.Errorf("blit: unsized attachment"))
	}
	// Clamp the copied extent to the overlap of both attachments.
	if width > sw {
		width = sw
	}
	if width > dw {
		width = dw
	}
	if height > sh {
		height = sh
	}
	if height > dh {
		height = dh
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := d.attachmentPixel(sa, sw, y*sw+x)
			d.writeAttachmentPixel(da, dw, y*dw+x, px)
		}
	}
	return nil
}

func (d *Device) writeAttachmentPixel(a attachment, width, i int, px [4]float32) {
	if a.render != 0 {
		rb := d.renderBuffers[a.render]
		if rb == nil {
			return
		}
		if rb.kind == viz.RenderBufferDepth {
			rb.data[i] = px[0]
			return
		}
		copy(rb.data[i*4:i*4+4], px[:])
		return
	}
	if tex := d.textures[a.texture]; tex != nil {
		writeTexturePixel(tex, i, px)
	}
}

func (d *Device) Draw(call *backend.DrawCall) error {
	if !d.initialized {
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
	for _, tb := range call.Textures {
		if _, ok := d.textures[tb.Texture]; !ok {
			return d.fail(fmt.Errorf("draw: texture: %w", backend.ErrInvalidHandle))
		}
	}
	if call.Target != 0 {
		if _, ok := d.framebuffers[call.Target]; !ok {
			return d.fail(fmt.Errorf("draw: target: %w", backend.ErrInvalidHandle))
		}
	}
	d.draws = append(d.draws, *call)
	return nil
}

func (d *Device) CheckError() error {
	err := d.err
	d.err = nil
	return err
}

func (d *Device) Flush()  {}
func (d *Device) Finish() {}
