// Package escape computes escape times of the Mandelbrot recurrence
// z ← z² + c, including a continuous ("smooth") iteration count.
package escape

import "math"

// BailoutRadius is the escape radius. It is much larger than the minimal 2
// so that the smoothed count has no visible error.
const BailoutRadius = 256

const bailoutSq = BailoutRadius * BailoutRadius

// Result of iterating one point.
type Result struct {
	// Iteration is the number of iterations run, in [0, maxIteration].
	// It equals maxIteration for points presumed to be in the set.
	Iteration int
	// Smoothed is the continuous iteration count used for colouring.
	// It equals Iteration exactly for points that did not escape.
	Smoothed float64
}

// Evaluate iterates c = x0 + i·y0 from z = 0 until |z| > BailoutRadius
// or maxIteration iterations have run.
func Evaluate(x0, y0 float64, maxIteration int) Result {
	var x, y, x2, y2 float64
	iteration := 0

	// The explicit float64 conversions keep the compiler from fusing
	// multiply-adds, so every platform produces the same bits.
	for x2+y2 <= bailoutSq && iteration < maxIteration {
		y = float64((x+x)*y) + y0
		x = x2 - y2 + x0
		x2 = x * x
		y2 = y * y
		iteration++
	}

	res := Result{Iteration: iteration, Smoothed: float64(iteration)}
	if iteration >= maxIteration {
		return res
	}
	res.Smoothed = smooth(iteration, x, y)
	return res
}

// smooth returns the normalized iteration count
//
//	n + 1 - log2(log2|z_n|)
//
// falling back to n if log|z_n| is not positive.
func smooth(n int, x, y float64) float64 {
	logZn := math.Log(float64(x*x)+float64(y*y)) / 2
	if !(logZn > 0) {
		return float64(n)
	}
	nu := math.Log(logZn/math.Ln2) / math.Ln2
	return float64(n) + 1 - nu
}
