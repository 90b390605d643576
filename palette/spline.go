package palette

import (
	"fmt"
	"math"
	"sort"

	mandel "github.com/marben/smooth_mandel"
)

// boundaryTolerance is how close x must be to the last anchor to take its
// value directly instead of extrapolating the last cubic.
const boundaryTolerance = 1e-10

// Spline is a monotone cubic (Fritsch–Carlson) Hermite interpolant of one
// colour channel. On each interval i it evaluates
//
//	y(x) = ys[i] + c1[i]*d + c2[i]*d² + c3[i]*d³,  d = x - xs[i]
//
// A Spline is immutable and safe for concurrent use.
type Spline struct {
	xs, ys []float64
	c1     []float64 // tangents, one per anchor
	c2, c3 []float64 // one per interval
}

// NewSpline fits a spline through (xs[i], ys[i]).
// xs must be strictly increasing and hold at least two values.
func NewSpline(xs, ys []float64) (*Spline, error) {
	n := len(xs)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 anchors, got %d", mandel.ErrInvalidConfiguration, n)
	}
	if len(ys) != n {
		return nil, fmt.Errorf("%w: %d anchor positions but %d values", mandel.ErrInvalidConfiguration, n, len(ys))
	}

	dxs := make([]float64, n-1)
	gradients := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		dx := xs[i+1] - xs[i]
		if !(dx > 0) {
			return nil, fmt.Errorf("%w: anchor x not strictly increasing at %d (%v, %v)", mandel.ErrInvalidConfiguration, i, xs[i], xs[i+1])
		}
		dxs[i] = dx
		gradients[i] = (ys[i+1] - ys[i]) / dx
	}

	// Tangents. Interior anchors next to a local extremum (or a flat
	// interval) get a zero tangent so the curve cannot overshoot.
	c1 := make([]float64, n)
	c1[0] = gradients[0]
	for i := 0; i < len(dxs)-1; i++ {
		m, mNext := gradients[i], gradients[i+1]
		if m*mNext <= 0 {
			c1[i+1] = 0
			continue
		}
		dx, dxNext := dxs[i], dxs[i+1]
		common := dx + dxNext
		c1[i+1] = 3 * common / ((common+dxNext)/m + (common+dx)/mNext)
	}
	c1[n-1] = gradients[n-2]

	c2 := make([]float64, n-1)
	c3 := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		m := gradients[i]
		invDx := 1 / dxs[i]
		common := c1[i] + c1[i+1] - m - m
		c2[i] = (m - c1[i] - common) * invDx
		c3[i] = common * invDx * invDx
	}

	return &Spline{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
		c1: c1,
		c2: c2,
		c3: c3,
	}, nil
}

// At evaluates the spline at x. Outside the anchor range the first or last
// cubic is extrapolated.
func (s *Spline) At(x float64) float64 {
	last := len(s.xs) - 1
	if math.Abs(x-s.xs[last]) < boundaryTolerance {
		return s.ys[last]
	}

	// Largest interval i in [0, last-1] with xs[i] <= x.
	i := sort.Search(last, func(j int) bool { return s.xs[j] > x }) - 1
	if i < 0 {
		i = 0
	}
	if s.xs[i] == x {
		return s.ys[i]
	}

	diff := x - s.xs[i]
	diffSq := diff * diff
	return s.ys[i] + s.c1[i]*diff + s.c2[i]*diffSq + s.c3[i]*diff*diffSq
}
