//go:build js && wasm

package main

import (
	"io"
	"sync"
	"syscall/js"
)

// WebsocketReadCloser turns the messages of a browser WebSocket into a byte stream.
// The viewer only listens, so there is no Write.
type WebsocketReadCloser struct {
	ws js.Value

	mu     sync.Mutex // js callbacks run concurrently with Read
	queue  [][]byte
	closed bool
	err    error

	notify chan struct{} // signalled whenever queue, closed or err change

	// read buffer for partial reads
	buf []byte
}

func NewWebsocketReadCloser(ws js.Value) *WebsocketReadCloser {
	c := &WebsocketReadCloser{
		ws:     ws,
		notify: make(chan struct{}, 1),
	}

	ws.Set("binaryType", "arraybuffer")

	ws.Set("onerror", js.FuncOf(func(js.Value, []js.Value) any {
		c.mu.Lock()
		c.err = io.ErrUnexpectedEOF
		c.mu.Unlock()
		c.signal()
		return nil
	}))

	// Callbacks must not block the js event loop, so messages are queued
	// instead of being sent on a channel.
	ws.Set("onmessage", js.FuncOf(func(this js.Value, args []js.Value) any {
		data := args[0].Get("data")

		jsDataToBytes(data, func(b []byte) {
			c.mu.Lock()
			c.queue = append(c.queue, b)
			c.mu.Unlock()
			c.signal()
		})

		return nil
	}))

	ws.Set("onclose", js.FuncOf(func(js.Value, []js.Value) any {
		logScreenf("ws onClose received")
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.signal()
		return nil
	}))

	return c
}

func (c *WebsocketReadCloser) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *WebsocketReadCloser) Read(p []byte) (int, error) {
	// First, drain existing buffer
	for len(c.buf) == 0 {
		c.mu.Lock()
		switch {
		case len(c.queue) > 0:
			c.buf = c.queue[0]
			c.queue = c.queue[1:]
		case c.err != nil:
			err := c.err
			c.mu.Unlock()
			return 0, err
		case c.closed:
			c.mu.Unlock()
			return 0, io.EOF
		}
		c.mu.Unlock()

		if len(c.buf) == 0 {
			// No buffered data -> wait for next message
			<-c.notify
		}
	}

	n := copy(p, c.buf)
	c.buf = c.buf[n:]

	return n, nil
}

func (c *WebsocketReadCloser) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.signal()

	c.ws.Call("close")
	return nil
}

func jsDataToBytes(data js.Value, deliver func([]byte)) {
	// Uint8Array / Uint8ClampedArray
	if data.InstanceOf(js.Global().Get("Uint8Array")) ||
		data.InstanceOf(js.Global().Get("Uint8ClampedArray")) {

		b := make([]byte, data.Get("byteLength").Int())
		js.CopyBytesToGo(b, data)
		deliver(b)
		return
	}

	// ArrayBuffer
	if data.InstanceOf(js.Global().Get("ArrayBuffer")) {
		u8 := js.Global().Get("Uint8Array").New(data)
		b := make([]byte, u8.Get("byteLength").Int())
		js.CopyBytesToGo(b, u8)
		deliver(b)
		return
	}

	// Blob -> async
	if data.InstanceOf(js.Global().Get("Blob")) {
		promise := data.Call("arrayBuffer")
		then := js.FuncOf(func(this js.Value, args []js.Value) any {
			buf := args[0]
			u8 := js.Global().Get("Uint8Array").New(buf)
			b := make([]byte, u8.Get("byteLength").Int())
			js.CopyBytesToGo(b, u8)
			deliver(b)
			return nil
		})
		promise.Call("then", then)
		return
	}

	panic("unsupported JS binary type")
}
