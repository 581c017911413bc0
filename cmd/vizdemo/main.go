// Command vizdemo exercises the rendering engine end to end: it brings up
// the best available device, compiles a few program variants, and writes
// the built-in colormaps to a PNG swatch.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/viz/render"
)

func main() {
	var (
		width  = flag.Int("width", 512, "swatch width")
		rowH   = flag.Int("rowheight", 48, "height of each colormap row")
		output = flag.String("output", "colormaps.png", "output file")
	)
	flag.Parse()

	eng, err := render.NewEngine()
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer eng.Close()
	if err := eng.PopulateDefaults(); err != nil {
		log.Fatalf("defaults: %v", err)
	}
	log.Printf("device: %s", eng.Device().Name())

	// Compile a few compositions to show the cache at work.
	compositions := [][]string{
		nil,
		{"SHADE_BASECOLOR"},
		{"SHADE_BASECOLOR", "MESH_WIREFRAME"},
		{"SHADE_BASECOLOR"},
	}
	for _, rules := range compositions {
		if _, err := eng.GetCompiledProgram("MESH", rules, render.DefaultsSceneObject); err != nil {
			log.Fatalf("compile %v: %v", rules, err)
		}
	}
	stats := eng.CacheStats()
	log.Printf("program cache: %d programs, %d hits, %d misses", stats.Len, stats.Hits, stats.Misses)

	if err := writeSwatch(eng, *width, *rowH, *output); err != nil {
		log.Fatalf("swatch: %v", err)
	}
	log.Printf("colormap swatch written to %s", *output)
}

func writeSwatch(eng *render.Engine, width, rowH int, path string) error {
	names := []string{"viridis", "coolwarm", "blues"}
	img := image.NewRGBA(image.Rect(0, 0, width, rowH*len(names)))
	for row, name := range names {
		cm, err := eng.ColorMap(name)
		if err != nil {
			return err
		}
		for x := 0; x < width; x++ {
			c := cm.Sample(float32(x) / float32(width-1))
			px := color.RGBA{
				R: uint8(c.X*255 + 0.5),
				G: uint8(c.Y*255 + 0.5),
				B: uint8(c.Z*255 + 0.5),
				A: 255,
			}
			for y := row * rowH; y < (row+1)*rowH; y++ {
				img.Set(x, y, px)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}
