package mandel

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"
)

func testTile(r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 0xff})
		}
	}
	return img
}

func TestFrameStream(t *testing.T) {
	tile := testTile(image.Rect(64, 128, 128, 150))
	var buf bytes.Buffer
	for _, f := range []Frame{
		{Kind: FrameDims, Width: 1920, Height: 1080},
		{Kind: FrameTile, Tile: tile},
		{Kind: FrameDone},
	} {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatal(err)
		}
	}

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != FrameDims || f.Width != 1920 || f.Height != 1080 {
		t.Errorf("first frame %+v", f)
	}

	f, err = ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != FrameTile || f.Tile.Rect != tile.Rect {
		t.Fatalf("second frame %s with rect %v", f.Kind, f.Tile)
	}
	if !bytes.Equal(f.Tile.Pix, tile.Pix) {
		t.Error("tile pixels differ after decoding")
	}
	if f.Tile.RGBAAt(100, 140) != tile.RGBAAt(100, 140) {
		t.Error("pixel lookup in global coordinates differs")
	}

	f, err = ReadFrame(&buf)
	if err != nil || f.Kind != FrameDone {
		t.Errorf("third frame %+v, %v", f, err)
	}

	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("after last frame: got %v, want io.EOF", err)
	}
}

func TestWriteFrame_SubImage(t *testing.T) {
	full := testTile(image.Rect(0, 0, 100, 100))
	sub := full.SubImage(image.Rect(10, 20, 30, 25)).(*image.RGBA)

	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{Kind: FrameTile, Tile: sub}); err != nil {
		t.Fatal(err)
	}
	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for y := 20; y < 25; y++ {
		for x := 10; x < 30; x++ {
			if f.Tile.RGBAAt(x, y) != full.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) differs", x, y)
			}
		}
	}
}

func TestWriteFrame_Invalid(t *testing.T) {
	for _, f := range []Frame{
		{Kind: FrameDims},
		{Kind: FrameDims, Width: 1 << 16, Height: 1 << 16},
		{Kind: FrameTile},
		{Kind: FrameTile, Tile: image.NewRGBA(image.Rect(5, 5, 5, 9))},
		{Kind: 42},
	} {
		if err := WriteFrame(io.Discard, f); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("WriteFrame(%s): got %v, want ErrMalformedFrame", f.Kind, err)
		}
	}
}

func TestReadFrame_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{"unknown kind", []byte{9, 0, 0, 0, 0}, ErrMalformedFrame},
		{"short dims", []byte{byte(FrameDims), 0, 0, 0, 2, 1, 2}, ErrMalformedFrame},
		{"done with payload", []byte{byte(FrameDone), 0, 0, 0, 1, 7}, ErrMalformedFrame},
		{"huge payload", []byte{byte(FrameTile), 0xff, 0xff, 0xff, 0xff}, ErrMalformedFrame},
		{"truncated payload", []byte{byte(FrameDims), 0, 0, 0, 8, 1}, io.ErrUnexpectedEOF},
		{"truncated header", []byte{byte(FrameDims), 0}, io.ErrUnexpectedEOF},
		{"short tile", []byte{byte(FrameTile), 0, 0, 0, 3, 1, 2, 3}, ErrMalformedFrame},
		{"zero width", []byte{byte(FrameDims), 0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 9}, ErrMalformedFrame},
		{"dims beyond int32", []byte{byte(FrameDims), 0, 0, 0, 8, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, ErrMalformedFrame},
		{"dims too many pixels", []byte{byte(FrameDims), 0, 0, 0, 8, 0, 1, 0, 0, 0, 1, 0, 0}, ErrMalformedFrame},
	}
	for _, tc := range testCases {
		if _, err := ReadFrame(bytes.NewReader(tc.data)); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestReadFrame_TilePixelCountMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{Kind: FrameTile, Tile: testTile(image.Rect(0, 0, 4, 4))}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	// Grow the advertised rectangle: max.x from 4 to 5.
	data[frameHeaderLen+11] = 5
	if _, err := ReadFrame(bytes.NewReader(data)); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("got %v, want ErrMalformedFrame", err)
	}
}
