package mandel

import "sort"

// Region within the complex plane, given by its top-left corner (X0, Y0)
// and its extent (W, H).
type Region struct {
	X0, Y0 float64
	W, H   float64
}

// Point maps pixel (px, py) of an imgW x imgH image into r.
// Pixel (0, 0) maps to (X0, Y0) and pixel (imgW, imgH) to (X0+W, Y0+H).
func (r Region) Point(px, py, imgW, imgH int) (x0, y0 float64) {
	x0 = float64(float64(px)/float64(imgW)*r.W) + r.X0
	y0 = float64(float64(py)/float64(imgH)*r.H) + r.Y0
	return x0, y0
}

// Classic frames the whole set: real [-2, 0.47], imag [-1.12, 1.12].
var Classic = Region{X0: -2, Y0: -1.12, W: 2.47, H: 2.24}

// Classic regions / landmarks in the Mandelbrot set
var (
	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	SeahorseValley = Region{X0: -0.8, Y0: 0.05, W: 0.1, H: 0.1}

	// Elephant Valley – large bulb with trunk-like tendrils
	ElephantValley = Region{X0: -1.85, Y0: -0.10, W: 0.1, H: 0.08}

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = Region{X0: -0.7435, Y0: 0.1310, W: 0.0015, H: 0.0015}

	// Triple Spiral – threefold symmetric spiral structure
	TripleSpiral = Region{X0: -0.7480, Y0: 0.0950, W: 0.003, H: 0.003}

	// Valley of the Dragon – deep, highly detailed spiral filaments
	ValleyOfTheDragon = Region{X0: -0.7400, Y0: 0.1800, W: 0.005, H: 0.005}

	// Minibrot in a Mini-Spiral – self-similar Mandelbrot copy inside a spiral arm
	MinibrotInMiniSpiral = Region{X0: -1.7390, Y0: -0.0235, W: 0.0015, H: 0.0015}
)

// Regions maps the names accepted by the -region flag of the commands.
var Regions = map[string]Region{
	"classic":    Classic,
	"seahorse":   SeahorseValley,
	"elephant":   ElephantValley,
	"minibrot":   SpiralMinibrot,
	"triple":     TripleSpiral,
	"dragon":     ValleyOfTheDragon,
	"minispiral": MinibrotInMiniSpiral,
}

// RegionNames returns the keys of Regions in sorted order.
func RegionNames() []string {
	names := make([]string, 0, len(Regions))
	for n := range Regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
