package render

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	mandel "github.com/marben/smooth_mandel"
	"github.com/marben/smooth_mandel/palette"
)

// Grid is a fully rendered image: one colour and one escape result per pixel,
// stored row by row.
type Grid struct {
	Width, Height int
	Pix           []palette.RGB
	Iterations    []int
	Smoothed      []float64
}

// At returns the colour of pixel (x, y).
func (g *Grid) At(x, y int) palette.RGB {
	return g.Pix[y*g.Width+x]
}

// Image converts g to an RGBA image. Channels are clamped to [0, 255] here,
// the only place colours leave the unclamped integer domain.
func (g *Grid) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			img.SetRGBA(x, y, g.At(x, y).RGBA())
		}
	}
	return img
}

// Render renders a width x height image of region r.
// Rows are spread over one goroutine per CPU; the result does not depend
// on scheduling. It fails before any pixel work if the size is not positive.
func (imp *RendererImpl) Render(width, height int, r mandel.Region) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", mandel.ErrInvalidConfiguration, width, height)
	}

	n := width * height
	g := &Grid{
		Width:      width,
		Height:     height,
		Pix:        make([]palette.RGB, n),
		Iterations: make([]int, n),
		Smoothed:   make([]float64, n),
	}

	workers := min(runtime.NumCPU(), height)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(first int) {
			defer wg.Done()
			for py := first; py < height; py += workers {
				for px := 0; px < width; px++ {
					x0, y0 := r.Point(px, py, width, height)
					c, res := imp.Pixel(x0, y0)
					i := py*width + px
					g.Pix[i] = c
					g.Iterations[i] = res.Iteration
					g.Smoothed[i] = res.Smoothed
				}
			}
		}(w)
	}
	wg.Wait()
	return g, nil
}
