package main

import (
	"context"
	"errors"
	"image"
	"image/png"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	mandel "github.com/marben/smooth_mandel"
)

// pollInterval is how often a tile stream checks for newly finished tiles.
const pollInterval = 250 * time.Millisecond

// webServer creates a server serving files in staticDir, the finished image
// at /image.png and the tile stream at /ws. Websocket connections are
// handed to the returned listener, see serveTileStreams. Cross-origin
// websocket requests are accepted from hosts matching origins.
func webServer(ctx context.Context, addr string, iws *imgWorkScheduler, staticDir string, origins []string) (*WebsocketListener, *http.Server) {
	l := NewWSListener(ctx, addr+"/ws")
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(l, iws, staticDir, origins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("listening on http://%s", addr)
	return l, srv
}

func newMux(l *WebsocketListener, ip mandel.ImgProvider, staticDir string, origins []string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", websocketHandler(l, origins))
	mux.HandleFunc("/image.png", imageHandler(ip))
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

// websocketHandler handles the http ws endpoint
// if websocket is succesfully initialized it is passed to WebsocketListener so it can be accepted
func websocketHandler(l *WebsocketListener, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			log.Println(err)
			return
		}

		select {
		case l.ch <- c:
		case <-l.ctx.Done():
			c.Close(websocket.StatusGoingAway, "server shutting down")
		}
	}
}

// imageHandler serves the finished image as PNG, waiting for the render to complete.
func imageHandler(ip mandel.ImgProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := ip.GetImage(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, img); err != nil {
			log.Printf("encode image: %v", err)
		}
	}
}

// serveTileStreams accepts connections from l and streams tiles of tp to each.
func serveTileStreams(l net.Listener, tp mandel.TileProvider) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close()
			if err := streamTiles(conn, tp, pollInterval); err != nil {
				log.Printf("tile stream to %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

// streamTiles writes the image dimensions, then every finished tile as it
// becomes available, then a done frame.
func streamTiles(conn net.Conn, tp mandel.TileProvider, poll time.Duration) error {
	width, height, err := tp.FullImageDimensions()
	if err != nil {
		return err
	}
	total, err := tp.TotalTilesCount()
	if err != nil {
		return err
	}
	if err := mandel.WriteFrame(conn, mandel.Frame{Kind: mandel.FrameDims, Width: width, Height: height}); err != nil {
		return err
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sent := make(map[image.Rectangle]struct{}, total)
	for {
		finished, err := tp.FinishedTiles()
		if err != nil {
			return err
		}
		for t := range finished {
			if _, ok := sent[t]; ok {
				continue
			}
			tileImg, err := tp.GetTileImg(t)
			if err != nil {
				return err
			}
			if err := mandel.WriteFrame(conn, mandel.Frame{Kind: mandel.FrameTile, Tile: tileImg}); err != nil {
				return err
			}
			sent[t] = struct{}{}
		}
		if len(sent) == total {
			return mandel.WriteFrame(conn, mandel.Frame{Kind: mandel.FrameDone})
		}
		<-ticker.C
	}
}

// WebsocketListener implements net.Listener
// it's a wrapper around websocket.Conn
type WebsocketListener struct {
	ch     chan *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	addr   wsAddr
}

func NewWSListener(ctx context.Context, addr string) *WebsocketListener {
	ctx, cancel := context.WithCancel(ctx)
	return &WebsocketListener{
		ch:     make(chan *websocket.Conn),
		ctx:    ctx,
		cancel: cancel,
		addr:   wsAddr{addr: addr},
	}
}

func (l *WebsocketListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.ch:
		return websocket.NetConn(l.ctx, c, websocket.MessageBinary), nil
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	}
}

func (l *WebsocketListener) Addr() net.Addr {
	return l.addr
}

func (l *WebsocketListener) Close() error {
	l.cancel()
	return nil
}

// wsAddrs implements net.Addr
type wsAddr struct {
	addr string
}

func (a wsAddr) Network() string {
	return "ws"
}

func (a wsAddr) String() string {
	return a.addr
}
