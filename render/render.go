// Package render colours escape times with the smooth palette and composes
// them into images.
package render

import (
	"fmt"
	"image"
	"math"

	mandel "github.com/marben/smooth_mandel"
	"github.com/marben/smooth_mandel/escape"
	"github.com/marben/smooth_mandel/palette"
)

// RendererImpl composes pixels from escape times and a palette table.
// The table has one entry per iteration, so it is built with scale = MaxIteration.
// A RendererImpl is read-only after New and safe for concurrent use.
type RendererImpl struct {
	MaxIteration int
	Palette      palette.Table

	// OnTileRender, if set, is called before each tile is rendered.
	OnTileRender func(tile image.Rectangle)
}

var _ mandel.Renderer = (*RendererImpl)(nil)

// New builds the palette from anchors and returns a renderer for maxIteration.
func New(maxIteration int, anchors []palette.Anchor) (*RendererImpl, error) {
	if maxIteration <= 0 {
		return nil, fmt.Errorf("%w: max iteration %d must be positive", mandel.ErrInvalidConfiguration, maxIteration)
	}
	table, err := palette.Build(anchors, maxIteration)
	if err != nil {
		return nil, fmt.Errorf("build palette: %w", err)
	}
	return &RendererImpl{MaxIteration: maxIteration, Palette: table}, nil
}

// Pixel returns the colour of the point (x0, y0) and its escape result.
func (imp *RendererImpl) Pixel(x0, y0 float64) (palette.RGB, escape.Result) {
	res := escape.Evaluate(x0, y0, imp.MaxIteration)
	return imp.Blend(res.Smoothed), res
}

// Blend returns the colour for a smoothed iteration count: the palette
// entries at floor(s)-1 and floor(s) mixed by the fractional part of s.
// For an integer s the result is exactly entry s-1.
func (imp *RendererImpl) Blend(smoothed float64) palette.RGB {
	n := int(math.Floor(smoothed))
	lo := imp.Palette.Color(n - 1)
	hi := imp.Palette.Color(min(n, imp.MaxIteration-1))
	t := math.Mod(smoothed, 1)
	return palette.RGB{
		R: lerp(lo.R, hi.R, t),
		G: lerp(lo.G, hi.G, t),
		B: lerp(lo.B, hi.B, t),
	}
}

func lerp(a, b int, t float64) int {
	return int(float64(a) + t*float64(b-a))
}

// RenderTile renders tile of an imgW x imgH image of region r.
// The returned image has global coordinates (Rect == tile).
func (imp *RendererImpl) RenderTile(r mandel.Region, tile image.Rectangle, imgW, imgH int) (*image.RGBA, error) {
	if imgW <= 0 || imgH <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", mandel.ErrInvalidConfiguration, imgW, imgH)
	}
	if !tile.In(image.Rect(0, 0, imgW, imgH)) {
		return nil, fmt.Errorf("%w: tile %s outside %dx%d image", mandel.ErrInvalidConfiguration, tile, imgW, imgH)
	}
	if imp.OnTileRender != nil {
		imp.OnTileRender(tile)
	}

	img := image.NewRGBA(tile)
	for py := tile.Min.Y; py < tile.Max.Y; py++ {
		for px := tile.Min.X; px < tile.Max.X; px++ {
			x0, y0 := r.Point(px, py, imgW, imgH)
			c, _ := imp.Pixel(x0, y0)
			img.SetRGBA(px, py, c.RGBA())
		}
	}
	return img, nil
}
