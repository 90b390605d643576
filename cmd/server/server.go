package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"runtime"
	"strings"
	"sync"

	mandel "github.com/marben/smooth_mandel"
	"github.com/marben/smooth_mandel/palette"
	"github.com/marben/smooth_mandel/render"
)

// main is the entry point for the Mandelbrot server.
// The server renders the image with local workers and streams finished
// tiles to viewers (web and CLI) while it does so.
func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

type config struct {
	addr      string
	scale     int
	width     int
	height    int
	maxIter   int
	region    string
	tileSize  int
	workers   int
	staticDir string
	origins   string
	out       string
	verbose   bool
}

func parseFlags() config {
	var c config
	flag.StringVar(&c.addr, "addr", ":8080", "http listen address")
	flag.IntVar(&c.scale, "scale", 4, "resolution scale: the image is 247*scale x 224*scale pixels")
	flag.IntVar(&c.width, "width", 0, "image width in pixels, overrides -scale")
	flag.IntVar(&c.height, "height", 0, "image height in pixels, overrides -scale")
	flag.IntVar(&c.maxIter, "iter", 100, "iteration cap, also the palette size")
	flag.StringVar(&c.region, "region", "classic", "region to render: "+strings.Join(mandel.RegionNames(), ", "))
	flag.IntVar(&c.tileSize, "tile", 64, "tile edge length in pixels")
	flag.IntVar(&c.workers, "workers", runtime.NumCPU(), "number of render goroutines")
	flag.StringVar(&c.staticDir, "static", "./static", "directory with the web client")
	flag.StringVar(&c.origins, "origins", "*", "comma separated origin patterns allowed to open the tile stream")
	flag.StringVar(&c.out, "out", "", "also save the finished image to this file (.bmp or .png)")
	flag.BoolVar(&c.verbose, "v", false, "log every rendered tile")
	flag.Parse()
	return c
}

// imageSize keeps the 2.47 x 2.24 aspect of the classic region unless
// -width or -height override it.
func (c config) imageSize() (w, h int) {
	w, h = 247*c.scale, 224*c.scale
	if c.width != 0 {
		w = c.width
	}
	if c.height != 0 {
		h = c.height
	}
	return w, h
}

// originPatterns splits -origins into patterns for websocket.AcceptOptions.
func (c config) originPatterns() []string {
	var patterns []string
	for _, p := range strings.Split(c.origins, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func (c config) validate() error {
	if w, h := c.imageSize(); w <= 0 || h <= 0 {
		return fmt.Errorf("%w: image size %dx%d", mandel.ErrInvalidConfiguration, w, h)
	}
	if c.tileSize <= 0 {
		return fmt.Errorf("%w: tile size %d", mandel.ErrInvalidConfiguration, c.tileSize)
	}
	if c.workers <= 0 {
		return fmt.Errorf("%w: %d workers", mandel.ErrInvalidConfiguration, c.workers)
	}
	if _, ok := mandel.Regions[c.region]; !ok {
		return fmt.Errorf("%w: unknown region %q", mandel.ErrInvalidConfiguration, c.region)
	}
	return nil
}

func run() error {
	cfg := parseFlags()
	if err := cfg.validate(); err != nil {
		return err
	}

	renderer, err := render.New(cfg.maxIter, palette.DefaultAnchors)
	if err != nil {
		return err
	}
	if cfg.verbose {
		renderer.OnTileRender = func(tile image.Rectangle) { log.Printf("rendering tile: %s", tile) }
	}

	width, height := cfg.imageSize()
	imgWorkScheduler := newImgWorkScheduler(width, height, cfg.tileSize, mandel.Regions[cfg.region])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// httpServer provides index.html, main.wasm, the finished image and the websocket endpoint
	websocketListener, httpServer := webServer(ctx, cfg.addr, imgWorkScheduler, cfg.staticDir, cfg.originPatterns())
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("httpServer: %v", err)
		}
	}()
	go func() {
		if err := serveTileStreams(websocketListener, imgWorkScheduler); err != nil {
			log.Fatalf("serveTileStreams: %v", err)
		}
	}()

	log.Printf("rendering %dx%d of region %q with %d workers, %d iterations", width, height, cfg.region, cfg.workers, cfg.maxIter)
	errCh := make(chan error, cfg.workers)
	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := imgWorkScheduler.render(renderer); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return err
	}
	log.Printf("finished: %.0f%%", 100*imgWorkScheduler.progress())

	if cfg.out != "" {
		img, err := imgWorkScheduler.GetImage(ctx)
		if err != nil {
			return err
		}
		if err := mandel.SaveImage(cfg.out, img); err != nil {
			return err
		}
		log.Printf("fully rendered image saved to %q", cfg.out)
	}

	log.Printf("mb server waiting for websocket connections")
	select {}
}
