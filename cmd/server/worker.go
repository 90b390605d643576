package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"

	mandel "github.com/marben/smooth_mandel"
)

type imgWorkScheduler struct {
	workers int
	mRegion mandel.Region
	img     *image.RGBA

	ctx       context.Context
	ctxCancel context.CancelFunc

	totalPixels    int
	finishedPixels int
	totalTiles     int

	unstarted map[image.Rectangle]struct{}
	inProcess map[image.Rectangle]struct{}
	finished  map[image.Rectangle]struct{}
	m         sync.Mutex
}

var (
	_ mandel.ImgProvider  = (*imgWorkScheduler)(nil)
	_ mandel.TileProvider = (*imgWorkScheduler)(nil)
)

func newImgWorkScheduler(w, h, tileSize int, region mandel.Region) *imgWorkScheduler {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	allTilesSlice := splitRectNoClip(img.Bounds(), tileSize, tileSize)
	allTiles := make(map[image.Rectangle]struct{}, len(allTilesSlice))
	for _, t := range allTilesSlice {
		allTiles[t] = struct{}{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &imgWorkScheduler{
		img:         img,
		mRegion:     region,
		unstarted:   allTiles,
		inProcess:   make(map[image.Rectangle]struct{}),
		finished:    make(map[image.Rectangle]struct{}, len(allTiles)),
		totalPixels: w * h,
		totalTiles:  len(allTiles),
		ctx:         ctx,
		ctxCancel:   cancel,
	}
}

// popTile hands out an unstarted tile. Workers are local goroutines that
// cannot disappear, so tiles in process are never handed out twice.
func (iws *imgWorkScheduler) popTile() (tile image.Rectangle, found bool) {
	iws.m.Lock()
	defer iws.m.Unlock()

	for tile = range iws.unstarted {
		delete(iws.unstarted, tile)
		iws.inProcess[tile] = struct{}{}
		return tile, true
	}
	return image.Rectangle{}, false
}

// done is closed once every tile is finished.
func (iws *imgWorkScheduler) done() <-chan struct{} {
	return iws.ctx.Done()
}

// GetImage implements mandel.ImgProvider. It blocks until the image is complete.
func (iws *imgWorkScheduler) GetImage(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-iws.done():
		return iws.img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (iws *imgWorkScheduler) FullImageDimensions() (int, int, error) {
	return iws.img.Rect.Dx(), iws.img.Rect.Dy(), nil
}

func (iws *imgWorkScheduler) TotalTilesCount() (int, error) {
	return iws.totalTiles, nil
}

// FinishedTiles returns a snapshot of the finished tile rectangles.
func (iws *imgWorkScheduler) FinishedTiles() (map[image.Rectangle]struct{}, error) {
	iws.m.Lock()
	defer iws.m.Unlock()

	tiles := make(map[image.Rectangle]struct{}, len(iws.finished))
	for t := range iws.finished {
		tiles[t] = struct{}{}
	}
	return tiles, nil
}

// GetTileImg returns a copy of a finished tile.
func (iws *imgWorkScheduler) GetTileImg(tile image.Rectangle) (*image.RGBA, error) {
	iws.m.Lock()
	defer iws.m.Unlock()

	if _, ok := iws.finished[tile]; !ok {
		return nil, fmt.Errorf("tile %s is not finished", tile)
	}
	tileImg := image.NewRGBA(tile)
	draw.Draw(tileImg, tile, iws.img, tile.Min, draw.Src)
	return tileImg, nil
}

func (iws *imgWorkScheduler) WorkersCount() (int, error) {
	iws.m.Lock()
	defer iws.m.Unlock()
	return iws.workers, nil
}

func (iws *imgWorkScheduler) progress() float32 {
	iws.m.Lock()
	defer iws.m.Unlock()
	return float32(iws.finishedPixels) / float32(iws.totalPixels)
}

func (iws *imgWorkScheduler) tileFinished(tileImg *image.RGBA) {
	rect := tileImg.Bounds()
	iws.m.Lock()
	defer iws.m.Unlock()

	if _, found := iws.inProcess[rect]; !found {
		return
	}
	delete(iws.inProcess, rect)

	draw.Draw(
		iws.img,
		rect,     // destination rectangle (global coords)
		tileImg,  // source image
		rect.Min, // source start
		draw.Src,
	)
	iws.finished[rect] = struct{}{}
	iws.finishedPixels += rect.Dx() * rect.Dy()

	if len(iws.unstarted) == 0 && len(iws.inProcess) == 0 {
		iws.ctxCancel()
	}
}

// requeue puts a tile that failed to render back in the unstarted set.
func (iws *imgWorkScheduler) requeue(tile image.Rectangle) {
	iws.m.Lock()
	defer iws.m.Unlock()
	delete(iws.inProcess, tile)
	iws.unstarted[tile] = struct{}{}
}

func (iws *imgWorkScheduler) incActiveWorker() {
	iws.m.Lock()
	iws.workers++
	w := iws.workers
	iws.m.Unlock()

	log.Printf("workers: %d", w)
}

func (iws *imgWorkScheduler) decActiveWorkers() {
	iws.m.Lock()
	iws.workers--
	w := iws.workers
	iws.m.Unlock()

	log.Printf("workers: %d", w)
}

// render renders unfinished tiles on the provided Renderer until none are left.
// It can be called from multiple goroutines in parallel.
func (iws *imgWorkScheduler) render(renderer mandel.Renderer) error {
	iws.incActiveWorker()
	defer iws.decActiveWorkers()

	w, h := iws.img.Rect.Dx(), iws.img.Rect.Dy()
	for {
		tile, found := iws.popTile()
		if !found {
			return nil
		}
		tileImg, err := renderer.RenderTile(iws.mRegion, tile, w, h)
		if err != nil {
			iws.requeue(tile)
			return fmt.Errorf("render of tile %s: %w", tile, err)
		}
		iws.tileFinished(tileImg)
	}
}

// splitRectNoClip splits r into tiles of size tileW × tileH.
// Tiles at the right and bottom edges are smaller if r is not divisible.
func splitRectNoClip(r image.Rectangle, tileW, tileH int) []image.Rectangle {
	if tileW <= 0 || tileH <= 0 {
		panic("tile dimensions must be positive")
	}

	w := r.Dx()
	h := r.Dy()

	var tiles []image.Rectangle

	for oy := 0; oy < h; oy += tileH {
		th := tileH
		if oy+th > h {
			th = h - oy
		}

		for ox := 0; ox < w; ox += tileW {
			tw := tileW
			if ox+tw > w {
				tw = w - ox
			}

			tile := image.Rect(
				r.Min.X+ox,
				r.Min.Y+oy,
				r.Min.X+ox+tw,
				r.Min.Y+oy+th,
			)
			tiles = append(tiles, tile)
		}
	}

	return tiles
}
