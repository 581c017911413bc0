package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/viz"
	"github.com/gogpu/viz/internal/f16"
)

// deviceFormat maps an abstract texture format to the closest hal format.
// Three-channel formats gain a padding alpha channel and half-float formats
// are widened to full floats; convertTexels rewrites the data to match.
func deviceFormat(f viz.TextureFormat) gputypes.TextureFormat {
	switch f {
	case viz.FormatRGB8, viz.FormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm
	case viz.FormatRG16F:
		return gputypes.TextureFormatRG32Float
	case viz.FormatR16F, viz.FormatR32F:
		return gputypes.TextureFormatR32Float
	case viz.FormatDepth24:
		return gputypes.TextureFormatDepth24PlusStencil8
	default:
		return gputypes.TextureFormatRGBA32Float
	}
}

// deviceChannels is the channel count actually stored on the device, after
// padding three-channel formats.
func deviceChannels(f viz.TextureFormat) int {
	if ch := f.Channels(); ch != 3 {
		return ch
	}
	return 4
}

// deviceTexelBytes is the device-side size of one texel.
func deviceTexelBytes(f viz.TextureFormat) int {
	switch {
	case f.ByteFormat():
		return deviceChannels(f)
	case f.IsDepth():
		return 4
	default:
		return 4 * deviceChannels(f)
	}
}

// sourceChannelBytes is the per-channel size of caller-supplied data.
func sourceChannelBytes(f viz.TextureFormat) int {
	switch f {
	case viz.FormatRGB8, viz.FormatRGBA8:
		return 1
	case viz.FormatRG16F, viz.FormatRGB16F, viz.FormatRGBA16F, viz.FormatR16F:
		return 2
	default:
		return 4
	}
}

// convertTexels rewrites caller data into the device format: three-channel
// texels gain a 1.0 alpha, half floats widen to float32. Formats that need
// neither pass through unchanged.
func convertTexels(f viz.TextureFormat, data []byte) []byte {
	srcCh, dstCh := f.Channels(), deviceChannels(f)
	cb := sourceChannelBytes(f)
	if srcCh == dstCh && cb != 2 {
		return data
	}

	texels := len(data) / (srcCh * cb)
	out := make([]byte, texels*dstCh*dstChannelBytes(f))
	for i := 0; i < texels; i++ {
		for c := 0; c < dstCh; c++ {
			var v float32 = 1 // padding alpha
			if c < srcCh {
				p := data[(i*srcCh+c)*cb:]
				switch cb {
				case 1:
					v = float32(p[0]) / 255
				case 2:
					v = f16.Value(binary.LittleEndian.Uint16(p))
				default:
					v = math.Float32frombits(binary.LittleEndian.Uint32(p))
				}
			}
			q := out[(i*dstCh+c)*dstChannelBytes(f):]
			if f.ByteFormat() {
				q[0] = byte(v*255 + 0.5)
			} else {
				binary.LittleEndian.PutUint32(q, math.Float32bits(v))
			}
		}
	}
	return out
}

func dstChannelBytes(f viz.TextureFormat) int {
	if f.ByteFormat() {
		return 1
	}
	return 4
}

func textureDimension(dim int) gputypes.TextureDimension {
	switch dim {
	case 1:
		return gputypes.TextureDimension1D
	case 3:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

// renderBufferFormat picks the backing texture format for a render buffer.
func renderBufferFormat(kind viz.RenderBufferKind) viz.TextureFormat {
	switch kind {
	case viz.RenderBufferDepth:
		return viz.FormatDepth24
	case viz.RenderBufferFloat4:
		return viz.FormatRGBA32F
	default:
		return viz.FormatRGBA8
	}
}
