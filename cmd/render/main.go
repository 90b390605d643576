// render renders a Mandelbrot image in a single process and saves it.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	mandel "github.com/marben/smooth_mandel"
	"github.com/marben/smooth_mandel/palette"
	"github.com/marben/smooth_mandel/render"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	// The classic region is 2.47 x 2.24, so 247*n x 224*n pixels keep square pixels.
	scale := flag.Int("scale", 4, "resolution scale: the image is 247*scale x 224*scale pixels")
	width := flag.Int("width", 0, "image width in pixels, overrides -scale")
	height := flag.Int("height", 0, "image height in pixels, overrides -scale")
	maxIter := flag.Int("iter", 100, "iteration cap, also the palette size")
	regionName := flag.String("region", "classic", "region to render: "+strings.Join(mandel.RegionNames(), ", "))
	filename := flag.String("out", "output.bmp", "output file (.bmp or .png)")
	flag.Parse()

	n := *scale
	w, h := 247*n, 224*n
	if *width != 0 {
		w = *width
	}
	if *height != 0 {
		h = *height
	}
	region, ok := mandel.Regions[*regionName]
	if !ok {
		return fmt.Errorf("%w: unknown region %q", mandel.ErrInvalidConfiguration, *regionName)
	}

	renderer, err := render.New(*maxIter, palette.DefaultAnchors)
	if err != nil {
		return err
	}
	log.Printf("palette ready: %d colours", len(renderer.Palette))

	start := time.Now()
	g, err := renderer.Render(w, h, region)
	if err != nil {
		return err
	}
	log.Printf("rendered %dx%d in %s", w, h, time.Since(start).Round(time.Millisecond))

	hist := render.NewHistogram(g, *maxIter)
	logHistogram(hist, *maxIter)

	if err := mandel.SaveImage(*filename, g.Image()); err != nil {
		return err
	}
	log.Printf("saved %q", *filename)
	return nil
}

// logHistogram logs how the pixels spread over the iteration buckets.
func logHistogram(hist render.Histogram, maxIter int) {
	if hist.Total == 0 {
		return
	}
	inSet := hist.Counts[maxIter-1]
	median := 0
	for median < maxIter && hist.Hue(median+1) < 0.5 {
		median++
	}
	log.Printf("pixels: %d, last bucket: %d (%.1f%%), median bucket: %d",
		hist.Total, inSet, 100*float64(inSet)/float64(hist.Total), median)
}
