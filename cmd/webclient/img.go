//go:build js && wasm

package main

import (
	"image"
	"syscall/js"
)

func initCanvas(width, height int, color string) {
	doc := js.Global().Get("document")
	canvas := doc.Call("getElementById", "myCanvas")

	canvas.Set("width", width)
	canvas.Set("height", height)

	ctx := canvas.Call("getContext", "2d")

	ctx.Set("fillStyle", color)
	ctx.Call("fillRect", 0, 0, width, height)
}

func drawTileToCanvas(tile *image.RGBA) {
	// 1. Get the browser context
	document := js.Global().Get("document")
	canvas := document.Call("getElementById", "myCanvas")
	ctx := canvas.Call("getContext", "2d")

	// 2. Prepare the pixel data
	// Decoded tiles are packed, so Pix starts at the tile's top-left pixel
	jsData := js.Global().Get("Uint8ClampedArray").New(len(tile.Pix))
	js.CopyBytesToJS(jsData, tile.Pix)

	// 3. Create the ImageData object
	// Note: ImageData always expects width/height of the buffer provided
	width := tile.Rect.Dx()
	height := tile.Rect.Dy()
	imageData := js.Global().Get("ImageData").New(jsData, width, height)

	// 4. Draw to the canvas at the tile's original coordinates
	ctx.Call("putImageData", imageData, tile.Rect.Min.X, tile.Rect.Min.Y)
}
