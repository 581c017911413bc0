package headless

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/viz/internal/f16"
)

// channelBytes is the stored size of one channel of a texture.
func channelBytes(t *texture) int {
	return texelBytes(t.desc.Format) / t.desc.Format.Channels()
}

// texturePixel decodes pixel i of a texture to four floats, padding missing
// channels with 0 and alpha with 1.
func texturePixel(t *texture, i int) [4]float32 {
	ch := t.desc.Format.Channels()
	cb := channelBytes(t)
	px := [4]float32{0, 0, 0, 1}
	off := i * ch * cb
	for c := 0; c < ch; c++ {
		p := t.data[off+c*cb:]
		switch cb {
		case 1:
			px[c] = float32(p[0]) / 255
		case 2:
			px[c] = f16.Value(binary.LittleEndian.Uint16(p))
		default:
			px[c] = math.Float32frombits(binary.LittleEndian.Uint32(p))
		}
	}
	return px
}

// writeTexturePixel encodes four floats into pixel i of a texture, dropping
// channels the format does not store.
func writeTexturePixel(t *texture, i int, px [4]float32) {
	ch := t.desc.Format.Channels()
	cb := channelBytes(t)
	off := i * ch * cb
	for c := 0; c < ch; c++ {
		p := t.data[off+c*cb:]
		switch cb {
		case 1:
			v := px[c]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			p[0] = byte(v*255 + 0.5)
		case 2:
			binary.LittleEndian.PutUint16(p, f16.Bits(px[c]))
		default:
			binary.LittleEndian.PutUint32(p, math.Float32bits(px[c]))
		}
	}
}

// fillTexture writes v into every pixel of a texture.
func fillTexture(t *texture, v [4]float32) {
	ch := t.desc.Format.Channels()
	cb := channelBytes(t)
	n := len(t.data) / (ch * cb)
	for i := 0; i < n; i++ {
		writeTexturePixel(t, i, v)
	}
}
