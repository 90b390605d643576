package mandel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// FrameKind identifies the payload of a Frame on the tile stream.
type FrameKind uint8

const (
	// FrameDims announces the full image size. It is always the first frame.
	FrameDims FrameKind = iota + 1
	// FrameTile carries one finished tile in global image coordinates.
	FrameTile
	// FrameDone is sent once every tile of the image has been streamed.
	FrameDone
)

func (k FrameKind) String() string {
	switch k {
	case FrameDims:
		return "dims"
	case FrameTile:
		return "tile"
	case FrameDone:
		return "done"
	}
	return fmt.Sprintf("FrameKind(%d)", uint8(k))
}

// Frame is one message of the tile stream the server sends to viewers.
//
//	kind uint8 | payload length uint32 (big endian) | payload
//
// Dims payload: width, height as uint32.
// Tile payload: min.x, min.y, max.x, max.y as int32, then the zstd-compressed RGBA pixels.
// Done payload: empty.
type Frame struct {
	Kind   FrameKind
	Width  int         // FrameDims only
	Height int         // FrameDims only
	Tile   *image.RGBA // FrameTile only
}

const (
	frameHeaderLen  = 5
	// maxFramePayload bounds a single frame read from the network.
	maxFramePayload = 16 << 20
	// maxTilePix bounds the decompressed pixel data of one tile.
	maxTilePix      = 64 << 20
	// maxImagePix bounds the RGBA pixel data of the announced image.
	maxImagePix     = 1 << 30
)

// ErrMalformedFrame is returned for frames that cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxTilePix))
	})
)

// WriteFrame writes f to w with a single Write call, so message based
// transports such as a websocket net.Conn carry one frame per message.
func WriteFrame(w io.Writer, f Frame) error {
	payload, err := f.marshal()
	if err != nil {
		return err
	}
	buf := make([]byte, frameHeaderLen, frameHeaderLen+len(payload))
	buf[0] = byte(f.Kind)
	binary.BigEndian.PutUint32(buf[1:], uint32(len(payload)))
	buf = append(buf, payload...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Kind, err)
	}
	return nil
}

// ReadFrame reads the next frame from r.
// It returns io.EOF only if the stream ends cleanly between frames.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	if n > maxFramePayload {
		return Frame{}, fmt.Errorf("%w: payload of %d bytes", ErrMalformedFrame, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, fmt.Errorf("read frame payload: %w", err)
	}
	f := Frame{Kind: FrameKind(hdr[0])}
	if err := f.unmarshal(payload); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (f Frame) marshal() ([]byte, error) {
	switch f.Kind {
	case FrameDims:
		if f.Width <= 0 || f.Height <= 0 || f.Width > math.MaxInt32 || f.Height > math.MaxInt32 ||
			4*uint64(f.Width)*uint64(f.Height) > maxImagePix {
			return nil, fmt.Errorf("%w: dims %dx%d", ErrMalformedFrame, f.Width, f.Height)
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint32(b[0:], uint32(f.Width))
		binary.BigEndian.PutUint32(b[4:], uint32(f.Height))
		return b, nil

	case FrameTile:
		if f.Tile == nil || f.Tile.Rect.Empty() {
			return nil, fmt.Errorf("%w: empty tile", ErrMalformedFrame)
		}
		enc, err := zstdEncoder()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		r := f.Tile.Rect
		b := make([]byte, 16)
		binary.BigEndian.PutUint32(b[0:], uint32(int32(r.Min.X)))
		binary.BigEndian.PutUint32(b[4:], uint32(int32(r.Min.Y)))
		binary.BigEndian.PutUint32(b[8:], uint32(int32(r.Max.X)))
		binary.BigEndian.PutUint32(b[12:], uint32(int32(r.Max.Y)))
		return enc.EncodeAll(packedPix(f.Tile), b), nil

	case FrameDone:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedFrame, f.Kind)
}

func (f *Frame) unmarshal(payload []byte) error {
	switch f.Kind {
	case FrameDims:
		if len(payload) != 8 {
			return fmt.Errorf("%w: dims payload of %d bytes", ErrMalformedFrame, len(payload))
		}
		w := uint64(binary.BigEndian.Uint32(payload[0:]))
		h := uint64(binary.BigEndian.Uint32(payload[4:]))
		if w == 0 || h == 0 || w > math.MaxInt32 || h > math.MaxInt32 || 4*w*h > maxImagePix {
			return fmt.Errorf("%w: dims %dx%d", ErrMalformedFrame, w, h)
		}
		f.Width, f.Height = int(w), int(h)
		return nil

	case FrameTile:
		if len(payload) < 16 {
			return fmt.Errorf("%w: tile payload of %d bytes", ErrMalformedFrame, len(payload))
		}
		r := image.Rect(
			int(int32(binary.BigEndian.Uint32(payload[0:]))),
			int(int32(binary.BigEndian.Uint32(payload[4:]))),
			int(int32(binary.BigEndian.Uint32(payload[8:]))),
			int(int32(binary.BigEndian.Uint32(payload[12:]))),
		)
		if r.Empty() {
			return fmt.Errorf("%w: empty tile %s", ErrMalformedFrame, r)
		}
		dec, err := zstdDecoder()
		if err != nil {
			return fmt.Errorf("zstd decoder: %w", err)
		}
		pix, err := dec.DecodeAll(payload[16:], nil)
		if err != nil {
			return fmt.Errorf("zstd decode: %w", err)
		}
		if len(pix) != 4*r.Dx()*r.Dy() {
			return fmt.Errorf("%w: tile %s has %d pixel bytes", ErrMalformedFrame, r, len(pix))
		}
		f.Tile = &image.RGBA{Pix: pix, Stride: 4 * r.Dx(), Rect: r}
		return nil

	case FrameDone:
		if len(payload) != 0 {
			return fmt.Errorf("%w: done frame with payload", ErrMalformedFrame)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown kind %d", ErrMalformedFrame, f.Kind)
}

// packedPix returns the pixels of img without row padding.
func packedPix(img *image.RGBA) []byte {
	r := img.Rect
	rowLen := 4 * r.Dx()
	if img.Stride == rowLen {
		return img.Pix[:rowLen*r.Dy()]
	}
	pix := make([]byte, 0, rowLen*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := img.PixOffset(r.Min.X, y)
		pix = append(pix, img.Pix[off:off+rowLen]...)
	}
	return pix
}
