//go:build js && wasm

// webclient.go is a WASM web client for the Mandelbrot server.
// It connects to the server's tile stream and paints tiles onto a canvas as they finish.

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"syscall/js"

	mandel "github.com/marben/smooth_mandel"
)

// main is the entry point for the WASM web client.
func main() {
	logScreenf("Starting WASM web client...")

	// Step 1: Determine server address for WebSocket connection
	loc := js.Global().Get("window").Get("location")
	host := loc.Get("host").String()
	proto := "ws"
	if loc.Get("protocol").String() == "https:" {
		proto = "wss"
	}
	websocketUrl := proto + "://" + host + "/ws"

	// Step 2: Connect to server via WebSocket
	logScreenf("Connecting to Mandelbrot server at %s...", websocketUrl)
	websocket := js.Global().Get("WebSocket").New(websocketUrl)
	websocketRC := NewWebsocketReadCloser(websocket)

	// Step 3: Paint tiles until the server reports the image as complete
	if err := tilesLoadLoop(websocketRC); err != nil {
		logFatalf("tilesLoadLoop: %v", err)
	}
	logScreenf("Image complete.")
	websocketRC.Close()

	// Step 4: Block main goroutine to keep WASM running
	select {}
}

// logScreenf appends a formatted message to the log element in the DOM,
func logScreenf(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)

	doc := js.Global().Get("document")
	logElem := doc.Call("getElementById", "log")
	logElem.Set("textContent", logElem.Get("textContent").String()+msg+"\n")
}

// logFatalf logs a fatal error to the log window and terminates the program.
func logFatalf(format string, a ...any) {
	logScreenf("FATAL: "+format, a...)
	log.Fatalf(format, a...)
}

// tilesLoadLoop reads the tile stream from r and draws every tile onto the canvas.
// It returns nil once the done frame arrives.
func tilesLoadLoop(r io.Reader) error {
	finished := 0
	for {
		f, err := mandel.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("stream closed after %d tiles: %w", finished, io.ErrUnexpectedEOF)
		}
		if err != nil {
			return err
		}

		switch f.Kind {
		case mandel.FrameDims:
			logScreenf("Dimensions: %dx%d", f.Width, f.Height)
			initCanvas(f.Width, f.Height, "#3a3a6e")
		case mandel.FrameTile:
			drawTileToCanvas(f.Tile)
			finished++
			hudSetFinishedTiles(finished)
		case mandel.FrameDone:
			return nil
		}
	}
}

// hudSetFinishedTiles updates the HUD to show the number of finished tiles.
func hudSetFinishedTiles(finished int) {
	js.Global().Get("document").Call("getElementById", "tilesDone").Set("textContent", finished)
}
