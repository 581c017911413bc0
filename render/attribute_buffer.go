package render

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
)

// AttributeBuffer is a typed device buffer feeding vertex attributes or the
// index stream. Element counts are in units of the buffer's type; a buffer
// with array count k packs k consecutive typed elements per logical vertex.
//
// Device storage grows to at least double its previous size when data
// outgrows it and never shrinks; existing content survives growth.
type AttributeBuffer struct {
	eng        *Engine
	id         backend.BufferID
	kind       backend.BufferKind
	typ        viz.DataType
	arrayCount int

	dataSize int // stored elements, in buffer-type units
	capBytes int
}

// NewAttributeBuffer creates an empty attribute buffer of the given type.
// arrayCount below 1 is treated as 1.
func (e *Engine) NewAttributeBuffer(typ viz.DataType, arrayCount int) (*AttributeBuffer, error) {
	if arrayCount < 1 {
		arrayCount = 1
	}
	return &AttributeBuffer{
		eng:        e,
		kind:       backend.BufferAttribute,
		typ:        typ,
		arrayCount: arrayCount,
	}, nil
}

// NewIndexBuffer creates an empty index buffer. Only the unsigned integer
// family can index.
func (e *Engine) NewIndexBuffer(typ viz.DataType) (*AttributeBuffer, error) {
	if viz.IndexSizeMultiplier(typ) == 0 {
		return nil, viz.Usagef("index buffer: type %s cannot index", typ)
	}
	return &AttributeBuffer{
		eng:        e,
		kind:       backend.BufferIndex,
		typ:        typ,
		arrayCount: 1,
	}, nil
}

// Type returns the buffer's element type.
func (b *AttributeBuffer) Type() viz.DataType { return b.typ }

// ArrayCount returns the number of typed elements per logical vertex.
func (b *AttributeBuffer) ArrayCount() int { return b.arrayCount }

// DataSize returns the stored element count, in buffer-type units.
func (b *AttributeBuffer) DataSize() int { return b.dataSize }

// Count returns the logical vertex count: stored elements divided by the
// array count.
func (b *AttributeBuffer) Count() int { return b.dataSize / b.arrayCount }

// Allocated reports whether device storage exists yet.
func (b *AttributeBuffer) Allocated() bool { return b.id != 0 }

// ensureCapacity makes device storage at least sizeBytes large, growing to
// at least double and carrying existing content over.
func (b *AttributeBuffer) ensureCapacity(sizeBytes int) error {
	if b.id != 0 && b.capBytes >= sizeBytes {
		return nil
	}
	newCap := sizeBytes
	if doubled := 2 * b.capBytes; doubled > newCap {
		newCap = doubled
	}

	dev := b.eng.dev
	fresh, err := dev.CreateBuffer(b.kind, newCap)
	if err != nil {
		return viz.Fatalf("allocate buffer: %v", err)
	}
	if b.id != 0 {
		if old := b.dataSize * b.typ.SizeBytes(); old > 0 {
			content, err := dev.ReadBuffer(b.id, 0, old)
			if err == nil {
				err = dev.WriteBuffer(fresh, 0, content)
			}
			if err != nil {
				dev.DestroyBuffer(fresh)
				return viz.Fatalf("grow buffer: %v", err)
			}
		}
		dev.DestroyBuffer(b.id)
	}
	b.id = fresh
	b.capBytes = newCap
	return nil
}

// setRaw replaces the buffer content. data must span a whole number of
// buffer-type elements.
func (b *AttributeBuffer) setRaw(data []byte) error {
	elemBytes := b.typ.SizeBytes()
	if len(data)%elemBytes != 0 {
		return viz.Usagef("set buffer data: %d bytes is not a whole number of %s elements", len(data), b.typ)
	}
	if err := b.ensureCapacity(len(data)); err != nil {
		return err
	}
	if err := b.eng.dev.WriteBuffer(b.id, 0, data); err != nil {
		return viz.Fatalf("write buffer: %v", err)
	}
	b.dataSize = len(data) / elemBytes
	return nil
}

// checkFamily verifies the incoming scalar family matches the buffer's.
func (b *AttributeBuffer) checkFamily(incoming viz.DataType) error {
	if b.typ.IsFloat() != incoming.IsFloat() || b.typ.IsUint() != incoming.IsUint() {
		return viz.Usagef("set buffer data: %s data into %s buffer", incoming, b.typ)
	}
	return nil
}

func (b *AttributeBuffer) SetDataFloat(data []float32) error {
	if err := b.checkFamily(viz.TypeFloat); err != nil {
		return err
	}
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataInt(data []int32) error {
	if err := b.checkFamily(viz.TypeInt); err != nil {
		return err
	}
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], uint32(v))
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataUInt(data []uint32) error {
	if err := b.checkFamily(viz.TypeUInt); err != nil {
		return err
	}
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], v)
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataVec2(data []viz.Vec2) error {
	if err := b.checkFamily(viz.TypeVec2); err != nil {
		return err
	}
	raw := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[8*i:], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(raw[8*i+4:], math.Float32bits(v.Y))
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataVec3(data []viz.Vec3) error {
	if err := b.checkFamily(viz.TypeVec3); err != nil {
		return err
	}
	raw := make([]byte, 12*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[12*i:], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(raw[12*i+4:], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(raw[12*i+8:], math.Float32bits(v.Z))
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataVec4(data []viz.Vec4) error {
	if err := b.checkFamily(viz.TypeVec4); err != nil {
		return err
	}
	raw := make([]byte, 16*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[16*i:], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(raw[16*i+4:], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(raw[16*i+8:], math.Float32bits(v.Z))
		binary.LittleEndian.PutUint32(raw[16*i+12:], math.Float32bits(v.W))
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataUVec2(data []viz.UVec2) error {
	if err := b.checkFamily(viz.TypeUVec2); err != nil {
		return err
	}
	raw := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[8*i:], v.X)
		binary.LittleEndian.PutUint32(raw[8*i+4:], v.Y)
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataUVec3(data []viz.UVec3) error {
	if err := b.checkFamily(viz.TypeUVec3); err != nil {
		return err
	}
	raw := make([]byte, 12*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[12*i:], v.X)
		binary.LittleEndian.PutUint32(raw[12*i+4:], v.Y)
		binary.LittleEndian.PutUint32(raw[12*i+8:], v.Z)
	}
	return b.setRaw(raw)
}

func (b *AttributeBuffer) SetDataUVec4(data []viz.UVec4) error {
	if err := b.checkFamily(viz.TypeUVec4); err != nil {
		return err
	}
	raw := make([]byte, 16*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[16*i:], v.X)
		binary.LittleEndian.PutUint32(raw[16*i+4:], v.Y)
		binary.LittleEndian.PutUint32(raw[16*i+8:], v.Z)
		binary.LittleEndian.PutUint32(raw[16*i+12:], v.W)
	}
	return b.setRaw(raw)
}

// ReadRaw reads count elements starting at start, forcing pending device
// work to complete first.
func (b *AttributeBuffer) ReadRaw(start, count int) ([]byte, error) {
	if b.id == 0 {
		return nil, viz.Usagef("read buffer: no data set")
	}
	if start < 0 || count < 0 || start+count > b.dataSize {
		return nil, viz.Usagef("read buffer: range [%d, %d) outside %d elements", start, start+count, b.dataSize)
	}
	b.eng.dev.Flush()
	b.eng.dev.Finish()
	elemBytes := b.typ.SizeBytes()
	out, err := b.eng.dev.ReadBuffer(b.id, start*elemBytes, count*elemBytes)
	if err != nil {
		return nil, viz.Fatalf("read buffer: %v", err)
	}
	return out, nil
}

// ReadVec3Range reads count vec3 elements starting at start.
func (b *AttributeBuffer) ReadVec3Range(start, count int) ([]viz.Vec3, error) {
	if b.typ != viz.TypeVec3 {
		return nil, viz.Usagef("read buffer: vec3 read from %s buffer", b.typ)
	}
	raw, err := b.ReadRaw(start, count)
	if err != nil {
		return nil, err
	}
	out := make([]viz.Vec3, count)
	for i := range out {
		out[i] = viz.Vec3{
			X: math.Float32frombits(binary.LittleEndian.Uint32(raw[12*i:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(raw[12*i+4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(raw[12*i+8:])),
		}
	}
	return out, nil
}

// ReadFloatRange reads count float elements starting at start.
func (b *AttributeBuffer) ReadFloatRange(start, count int) ([]float32, error) {
	if b.typ != viz.TypeFloat {
		return nil, viz.Usagef("read buffer: float read from %s buffer", b.typ)
	}
	raw, err := b.ReadRaw(start, count)
	if err != nil {
		return nil, err
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}

// Destroy releases the device storage. The buffer can be refilled after.
func (b *AttributeBuffer) Destroy() {
	if b.id != 0 {
		b.eng.dev.DestroyBuffer(b.id)
		b.id = 0
		b.capBytes = 0
		b.dataSize = 0
	}
}
