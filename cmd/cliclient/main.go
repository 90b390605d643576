// cliclient is a CLI client for the Mandelbrot server.
// It connects to the server's tile stream, assembles the image as tiles
// arrive and saves it once the stream is complete.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log"
	"time"

	"github.com/coder/websocket"
	mandel "github.com/marben/smooth_mandel"
)

// main is the entry point for the CLI client.
// It runs the client logic and logs any fatal errors.
func main() {
	log.Printf("Starting CLI client...")
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// run connects to the Mandelbrot server, receives the rendered image, and saves it.
// Returns an error if any step fails.
func run() error {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket url of the server's tile stream")
	filename := flag.String("out", "output.bmp", "output file (.bmp or .png)")
	timeout := flag.Duration("timeout", 10*time.Minute, "give up if the image is not complete by then")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Step 1: Connect to Mandelbrot server
	log.Printf("Connecting to Mandelbrot server at %s...", *url)
	c, _, err := websocket.Dial(ctx, *url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	conn := websocket.NetConn(ctx, c, websocket.MessageBinary)
	defer conn.Close()

	// Step 2: Receive tiles until the server reports the image as complete
	log.Printf("Receiving tiles...")
	img, err := receiveImage(conn, func(tile image.Rectangle) { log.Printf("Received tile: %s", tile) })
	if err != nil {
		return fmt.Errorf("receive image: %w", err)
	}

	// Step 3: Save the rendered image
	log.Printf("Saving rendered image to %q...", *filename)
	if err := mandel.SaveImage(*filename, img); err != nil {
		return err
	}

	log.Printf("Fully rendered image saved to %q", *filename)
	return nil
}

// receiveImage reads a tile stream from r and returns the assembled image.
// onTile, if not nil, is called for every tile received.
func receiveImage(r io.Reader, onTile func(image.Rectangle)) (*image.RGBA, error) {
	f, err := mandel.ReadFrame(r)
	if err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if f.Kind != mandel.FrameDims {
		return nil, fmt.Errorf("%w: stream starts with a %s frame", mandel.ErrMalformedFrame, f.Kind)
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))

	for {
		f, err := mandel.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("stream ended before the image was complete: %w", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, err
		}

		switch f.Kind {
		case mandel.FrameTile:
			if !f.Tile.Rect.In(img.Rect) {
				return nil, fmt.Errorf("%w: tile %s outside the %s image", mandel.ErrMalformedFrame, f.Tile.Rect, img.Rect.Size())
			}
			draw.Draw(img, f.Tile.Rect, f.Tile, f.Tile.Rect.Min, draw.Src)
			if onTile != nil {
				onTile(f.Tile.Rect)
			}
		case mandel.FrameDone:
			return img, nil
		default:
			return nil, fmt.Errorf("%w: unexpected %s frame", mandel.ErrMalformedFrame, f.Kind)
		}
	}
}
