package mandel

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestSaveImage(t *testing.T) {
	img := testTile(image.Rect(0, 0, 17, 9))
	dir := t.TempDir()

	testCases := []struct {
		name   string
		decode func(f *os.File) (image.Image, error)
	}{
		{"output.bmp", func(f *os.File) (image.Image, error) { return bmp.Decode(f) }},
		{"OUTPUT.BMP", func(f *os.File) (image.Image, error) { return bmp.Decode(f) }},
		{"mandel.png", func(f *os.File) (image.Image, error) { return png.Decode(f) }},
	}
	for _, tc := range testCases {
		path := filepath.Join(dir, tc.name)
		if err := SaveImage(path, img); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		got, err := tc.decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if got.Bounds() != img.Bounds() {
			t.Fatalf("%s: bounds %v, want %v", tc.name, got.Bounds(), img.Bounds())
		}
		for y := 0; y < 9; y++ {
			for x := 0; x < 17; x++ {
				r1, g1, b1, _ := got.At(x, y).RGBA()
				r2, g2, b2, _ := img.At(x, y).RGBA()
				if r1 != r2 || g1 != g2 || b1 != b2 {
					t.Fatalf("%s: pixel (%d,%d) differs", tc.name, x, y)
				}
			}
		}
	}
}

func TestSaveImage_BadPath(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := SaveImage(filepath.Join(t.TempDir(), "missing", "out.png"), img); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
