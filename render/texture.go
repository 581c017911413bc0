package render

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
)

// TextureBuffer is a device texture of fixed dimensionality. The format is
// fixed at creation; sizes may change through Resize.
type TextureBuffer struct {
	eng    *Engine
	id     backend.TextureID
	format viz.TextureFormat
	dim    int
	sizeX  int
	sizeY  int
	sizeZ  int
	filter viz.FilterMode
}

func (e *Engine) newTextureBuffer(format viz.TextureFormat, dim, sx, sy, sz int, data []byte) (*TextureBuffer, error) {
	if sx <= 0 || (dim >= 2 && sy <= 0) || (dim >= 3 && sz <= 0) {
		return nil, viz.Usagef("texture: non-positive size %dx%dx%d", sx, sy, sz)
	}
	id, err := e.dev.CreateTexture(backend.TextureDesc{
		Format: format,
		Dim:    dim,
		SizeX:  sx,
		SizeY:  sy,
		SizeZ:  sz,
	}, data)
	if err != nil {
		return nil, viz.Fatalf("create texture: %v", err)
	}
	return &TextureBuffer{
		eng:    e,
		id:     id,
		format: format,
		dim:    dim,
		sizeX:  sx,
		sizeY:  sy,
		sizeZ:  sz,
	}, nil
}

// NewTextureBuffer1D creates a 1D texture, optionally filled with data.
func (e *Engine) NewTextureBuffer1D(format viz.TextureFormat, sizeX int, data []byte) (*TextureBuffer, error) {
	return e.newTextureBuffer(format, 1, sizeX, 1, 1, data)
}

// NewTextureBuffer2D creates a 2D texture, optionally filled with data.
func (e *Engine) NewTextureBuffer2D(format viz.TextureFormat, sizeX, sizeY int, data []byte) (*TextureBuffer, error) {
	return e.newTextureBuffer(format, 2, sizeX, sizeY, 1, data)
}

// NewTextureBuffer3D creates a 3D texture, optionally filled with data.
func (e *Engine) NewTextureBuffer3D(format viz.TextureFormat, sizeX, sizeY, sizeZ int, data []byte) (*TextureBuffer, error) {
	return e.newTextureBuffer(format, 3, sizeX, sizeY, sizeZ, data)
}

// NewColorMapTexture builds a 1D float texture from a registered colormap.
func (e *Engine) NewColorMapTexture(name string) (*TextureBuffer, error) {
	cm, err := e.ColorMap(name)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 12*len(cm.Values))
	for i, v := range cm.Values {
		binary.LittleEndian.PutUint32(raw[12*i:], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(raw[12*i+4:], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(raw[12*i+8:], math.Float32bits(v.Z))
	}
	tb, err := e.NewTextureBuffer1D(viz.FormatRGB32F, len(cm.Values), raw)
	if err != nil {
		return nil, err
	}
	// Colormap lookups interpolate between stops.
	if err := tb.SetFilterMode(viz.FilterLinear); err != nil {
		tb.Destroy()
		return nil, err
	}
	return tb, nil
}

// Dim returns the texture dimensionality (1, 2 or 3).
func (t *TextureBuffer) Dim() int { return t.dim }

// Format returns the texture format.
func (t *TextureBuffer) Format() viz.TextureFormat { return t.format }

// Size returns the texture extents; trailing dimensions are 1.
func (t *TextureBuffer) Size() (int, int, int) { return t.sizeX, t.sizeY, t.sizeZ }

// SetData replaces the texture content. The data must cover the whole
// texture in the format's encoding.
func (t *TextureBuffer) SetData(data []byte) error {
	if err := t.eng.dev.WriteTexture(t.id, data); err != nil {
		return viz.Usagef("set texture data: %v", err)
	}
	return nil
}

// SetDataFloat replaces the content of a float-format texture.
func (t *TextureBuffer) SetDataFloat(data []float32) error {
	if t.format.ByteFormat() {
		return viz.Usagef("set texture data: float data into %s texture", t.format)
	}
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return t.SetData(raw)
}

// Resize reallocates the texture at new extents. Content is undefined until
// the next SetData.
func (t *TextureBuffer) Resize(sizeX, sizeY, sizeZ int) error {
	if sizeX <= 0 || (t.dim >= 2 && sizeY <= 0) || (t.dim >= 3 && sizeZ <= 0) {
		return viz.Usagef("resize texture: non-positive size %dx%dx%d", sizeX, sizeY, sizeZ)
	}
	if err := t.eng.dev.ResizeTexture(t.id, sizeX, sizeY, sizeZ); err != nil {
		return viz.Fatalf("resize texture: %v", err)
	}
	t.sizeX, t.sizeY, t.sizeZ = sizeX, sizeY, sizeZ
	return nil
}

// SetFilterMode selects nearest or linear sampling.
func (t *TextureBuffer) SetFilterMode(mode viz.FilterMode) error {
	if err := t.eng.dev.SetTextureFilter(t.id, mode); err != nil {
		return viz.Fatalf("set texture filter: %v", err)
	}
	t.filter = mode
	return nil
}

// FilterMode returns the current sampling mode.
func (t *TextureBuffer) FilterMode() viz.FilterMode { return t.filter }

// ReadData reads the texture content back, forcing pending device work to
// complete first.
func (t *TextureBuffer) ReadData() ([]byte, error) {
	t.eng.dev.Flush()
	t.eng.dev.Finish()
	data, err := t.eng.dev.ReadTexture(t.id)
	if err != nil {
		return nil, viz.Fatalf("read texture: %v", err)
	}
	return data, nil
}

// Destroy releases the device texture.
func (t *TextureBuffer) Destroy() {
	if t.id != 0 {
		t.eng.dev.DestroyTexture(t.id)
		t.id = 0
	}
}
