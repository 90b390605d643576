package render

import "math"

// Histogram counts pixels per iteration bucket, bucket k holding the pixels
// whose smoothed count floors to k+1. It is a statistic of a finished grid
// and plays no part in colouring.
type Histogram struct {
	Counts []int
	Total  int

	cumulative []int // cumulative[k] = Counts[0] + ... + Counts[k-1]
}

// NewHistogram buckets every pixel of g. Buckets outside [0, maxIteration-1]
// are clamped into range.
func NewHistogram(g *Grid, maxIteration int) Histogram {
	h := Histogram{Counts: make([]int, max(maxIteration, 1))}
	for _, s := range g.Smoothed {
		k := int(math.Floor(s)) - 1
		k = max(0, min(k, len(h.Counts)-1))
		h.Counts[k]++
	}
	h.cumulative = make([]int, len(h.Counts)+1)
	for k, c := range h.Counts {
		h.cumulative[k+1] = h.cumulative[k] + c
		h.Total += c
	}
	return h
}

// Hue is the fraction of pixels in buckets below iteration, in [0, 1].
func (h Histogram) Hue(iteration int) float64 {
	if h.Total == 0 {
		return 0
	}
	iteration = max(0, min(iteration, len(h.Counts)))
	return float64(h.cumulative[iteration]) / float64(h.Total)
}
