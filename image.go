package mandel

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// SaveImage writes img to filename. A ".bmp" extension selects BMP,
// anything else is written as PNG.
func SaveImage(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".bmp":
		if err := bmp.Encode(f, img); err != nil {
			return fmt.Errorf("encode BMP: %w", err)
		}
	default:
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("encode PNG: %w", err)
		}
	}
	return nil
}
