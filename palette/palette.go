// Package palette builds the colour lookup table used for smooth colouring
// from a handful of anchor colours.
package palette

import (
	"fmt"
	"image/color"

	mandel "github.com/marben/smooth_mandel"
)

// Anchor is a control point of the colour ramp: a position on the ramp and
// the colour it must pass through there.
type Anchor struct {
	X       float64
	R, G, B float64
}

// DefaultAnchors is the fixed ramp: deep blue through white and orange to
// black. The outer anchors lie beyond [0, 1] so the ramp wraps smoothly at
// both ends.
var DefaultAnchors = []Anchor{
	{X: -0.1425, R: 0, G: 2, B: 0},
	{X: 0, R: 0, G: 7, B: 100},
	{X: 0.16, R: 32, G: 107, B: 203},
	{X: 0.42, R: 237, G: 255, B: 255},
	{X: 0.6425, R: 255, G: 170, B: 0},
	{X: 0.8575, R: 0, G: 2, B: 0},
	{X: 1, R: 0, G: 0, B: 0},
	{X: 1.16, R: 32, G: 107, B: 203},
}

// RGB is a colour with integer channels. Channels are truncated from the
// interpolated values and not clamped.
type RGB struct {
	R, G, B int
}

// RGBA converts c to an opaque color.RGBA, clamping each channel to [0, 255].
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: clamp8(c.R), G: clamp8(c.G), B: clamp8(c.B), A: 0xff}
}

func clamp8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	}
	return uint8(v)
}

// Table is an immutable colour lookup table, one entry per iteration bucket.
type Table []RGB

// Color returns entry i, with i clamped into the table.
func (t Table) Color(i int) RGB {
	if i < 0 {
		i = 0
	}
	if i > len(t)-1 {
		i = len(t) - 1
	}
	return t[i]
}

// Build samples the monotone cubic ramp through anchors at
// x = k/scale for k = 0..scale-1. Each channel is interpolated
// independently and truncated toward zero.
func Build(anchors []Anchor, scale int) (Table, error) {
	if scale <= 1 {
		return nil, fmt.Errorf("%w: palette scale %d must be greater than 1", mandel.ErrInvalidConfiguration, scale)
	}

	xs := make([]float64, len(anchors))
	rs := make([]float64, len(anchors))
	gs := make([]float64, len(anchors))
	bs := make([]float64, len(anchors))
	for i, a := range anchors {
		xs[i], rs[i], gs[i], bs[i] = a.X, a.R, a.G, a.B
	}

	var splines [3]*Spline
	for i, ys := range [][]float64{rs, gs, bs} {
		s, err := NewSpline(xs, ys)
		if err != nil {
			return nil, err
		}
		splines[i] = s
	}

	table := make(Table, scale)
	for k := range table {
		x := float64(k) / float64(scale)
		table[k] = RGB{
			R: int(splines[0].At(x)),
			G: int(splines[1].At(x)),
			B: int(splines[2].At(x)),
		}
	}
	return table, nil
}
