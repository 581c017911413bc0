package viz

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// DefaultColorMapResolution is the sample count used when building colormaps
// from sparse control points or images.
const DefaultColorMapResolution = 256

// ColorMap is a 1D lookup table of RGB values in [0,1], sampled by scalar
// quantities and uploaded as a 1D texture.
type ColorMap struct {
	Name   string
	Values []Vec3
}

// Sample returns the color at t in [0,1] with linear interpolation between
// entries. t outside [0,1] is clamped.
func (c *ColorMap) Sample(t float32) Vec3 {
	n := len(c.Values)
	if n == 0 {
		return Vec3{}
	}
	if n == 1 || t <= 0 {
		return c.Values[0]
	}
	if t >= 1 {
		return c.Values[n-1]
	}
	f := t * float32(n-1)
	i := int(f)
	if i >= n-1 {
		return c.Values[n-1]
	}
	a, b := c.Values[i], c.Values[i+1]
	w := f - float32(i)
	return Vec3{
		X: a.X + (b.X-a.X)*w,
		Y: a.Y + (b.Y-a.Y)*w,
		Z: a.Z + (b.Z-a.Z)*w,
	}
}

// newColorMapFromStops expands sparse control points into a full-resolution
// table.
func newColorMapFromStops(name string, stops []Vec3) *ColorMap {
	src := &ColorMap{Values: stops}
	out := &ColorMap{Name: name, Values: make([]Vec3, DefaultColorMapResolution)}
	for i := range out.Values {
		out.Values[i] = src.Sample(float32(i) / float32(DefaultColorMapResolution-1))
	}
	return out
}

// ColorMapFromImage builds a colormap by resampling a horizontal strip of
// img to DefaultColorMapResolution entries. Any image.Image works; the strip
// is taken across the full width at the vertical center.
func ColorMapFromImage(name string, img image.Image) *ColorMap {
	b := img.Bounds()
	strip := image.NewRGBA(image.Rect(0, 0, DefaultColorMapResolution, 1))
	mid := b.Min.Y + b.Dy()/2
	srcRow := image.Rect(b.Min.X, mid, b.Max.X, mid+1)
	xdraw.ApproxBiLinear.Scale(strip, strip.Bounds(), img, srcRow, xdraw.Src, nil)

	cm := &ColorMap{Name: name, Values: make([]Vec3, DefaultColorMapResolution)}
	for i := 0; i < DefaultColorMapResolution; i++ {
		o := strip.PixOffset(i, 0)
		cm.Values[i] = Vec3{
			X: float32(strip.Pix[o+0]) / 255,
			Y: float32(strip.Pix[o+1]) / 255,
			Z: float32(strip.Pix[o+2]) / 255,
		}
	}
	return cm
}

// Built-in colormaps. Control points follow the common matplotlib tables,
// reduced to a handful of anchors and expanded at construction.
var (
	// ColorMapViridis is the perceptually uniform default for scalar data.
	ColorMapViridis = newColorMapFromStops("viridis", []Vec3{
		{X: 0.267, Y: 0.005, Z: 0.329},
		{X: 0.283, Y: 0.141, Z: 0.458},
		{X: 0.254, Y: 0.265, Z: 0.530},
		{X: 0.207, Y: 0.372, Z: 0.553},
		{X: 0.164, Y: 0.471, Z: 0.558},
		{X: 0.128, Y: 0.567, Z: 0.551},
		{X: 0.135, Y: 0.659, Z: 0.518},
		{X: 0.267, Y: 0.749, Z: 0.441},
		{X: 0.478, Y: 0.821, Z: 0.318},
		{X: 0.741, Y: 0.873, Z: 0.150},
		{X: 0.993, Y: 0.906, Z: 0.144},
	})

	// ColorMapCoolWarm is the diverging blue-white-red map for signed data.
	ColorMapCoolWarm = newColorMapFromStops("coolwarm", []Vec3{
		{X: 0.230, Y: 0.299, Z: 0.754},
		{X: 0.552, Y: 0.690, Z: 0.996},
		{X: 0.865, Y: 0.865, Z: 0.865},
		{X: 0.956, Y: 0.604, Z: 0.486},
		{X: 0.706, Y: 0.016, Z: 0.150},
	})

	// ColorMapBlues is the sequential single-hue map.
	ColorMapBlues = newColorMapFromStops("blues", []Vec3{
		{X: 0.969, Y: 0.984, Z: 1.000},
		{X: 0.776, Y: 0.859, Z: 0.937},
		{X: 0.420, Y: 0.682, Z: 0.839},
		{X: 0.129, Y: 0.443, Z: 0.710},
		{X: 0.031, Y: 0.188, Z: 0.420},
	})
)
