package main

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	mandel "github.com/marben/smooth_mandel"
	"github.com/marben/smooth_mandel/palette"
	"github.com/marben/smooth_mandel/render"
)

func TestSplitRectNoClip(t *testing.T) {
	testCases := []struct {
		r            image.Rectangle
		tw, th       int
		tiles        int
		lastTileSize image.Point
	}{
		{image.Rect(0, 0, 128, 128), 64, 64, 4, image.Pt(64, 64)},
		{image.Rect(0, 0, 130, 70), 64, 64, 6, image.Pt(2, 6)},
		{image.Rect(10, 10, 20, 20), 64, 64, 1, image.Pt(10, 10)},
		{image.Rect(0, 0, 1920, 1080), 64, 64, 30 * 17, image.Pt(64, 56)},
	}
	for _, tc := range testCases {
		tiles := splitRectNoClip(tc.r, tc.tw, tc.th)
		if len(tiles) != tc.tiles {
			t.Errorf("%s: %d tiles, want %d", tc.r, len(tiles), tc.tiles)
			continue
		}
		if got := tiles[len(tiles)-1].Size(); got != tc.lastTileSize {
			t.Errorf("%s: last tile size %v, want %v", tc.r, got, tc.lastTileSize)
		}
		area := 0
		for _, tile := range tiles {
			if !tile.In(tc.r) {
				t.Errorf("%s: tile %s outside", tc.r, tile)
			}
			area += tile.Dx() * tile.Dy()
		}
		if area != tc.r.Dx()*tc.r.Dy() {
			t.Errorf("%s: tiles cover %d pixels, want %d", tc.r, area, tc.r.Dx()*tc.r.Dy())
		}
	}
}

func newTestRenderer(t *testing.T, maxIter int) *render.RendererImpl {
	t.Helper()
	renderer, err := render.New(maxIter, palette.DefaultAnchors)
	if err != nil {
		t.Fatal(err)
	}
	return renderer
}

func TestScheduler_RendersWholeImage(t *testing.T) {
	const w, h, maxIter = 150, 100, 80
	renderer := newTestRenderer(t, maxIter)
	iws := newImgWorkScheduler(w, h, 32, mandel.Classic)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := iws.render(renderer); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	img, err := iws.GetImage(ctx)
	if err != nil {
		t.Fatal(err)
	}

	g, err := renderer.Render(w, h, mandel.Classic)
	if err != nil {
		t.Fatal(err)
	}
	if string(img.Pix) != string(g.Image().Pix) {
		t.Error("tiled render differs from direct render")
	}

	if p := iws.progress(); p != 1 {
		t.Errorf("progress %v, want 1", p)
	}
	total, _ := iws.TotalTilesCount()
	finished, _ := iws.FinishedTiles()
	if total != 5*4 || len(finished) != total {
		t.Errorf("%d of %d tiles finished, want 20", len(finished), total)
	}
	if workers, _ := iws.WorkersCount(); workers != 0 {
		t.Errorf("%d workers still registered", workers)
	}

	tile := image.Rect(128, 96, 150, 100)
	tileImg, err := iws.GetTileImg(tile)
	if err != nil {
		t.Fatal(err)
	}
	if tileImg.Rect != tile || tileImg.RGBAAt(140, 98) != img.RGBAAt(140, 98) {
		t.Errorf("GetTileImg(%s) returned a different tile", tile)
	}
}

func TestScheduler_GetImageWaits(t *testing.T) {
	iws := newImgWorkScheduler(10, 10, 8, mandel.Classic)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := iws.GetImage(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetImage on unfinished image: got %v", err)
	}
	if _, err := iws.GetTileImg(image.Rect(0, 0, 8, 8)); err == nil {
		t.Error("GetTileImg of an unfinished tile succeeded")
	}
}

type failingRenderer struct{}

func (failingRenderer) RenderTile(mandel.Region, image.Rectangle, int, int) (*image.RGBA, error) {
	return nil, errors.New("boom")
}

func TestScheduler_RequeuesFailedTile(t *testing.T) {
	iws := newImgWorkScheduler(16, 16, 8, mandel.Classic)
	if err := iws.render(failingRenderer{}); err == nil {
		t.Fatal("expected an error")
	}
	iws.m.Lock()
	unstarted, inProcess := len(iws.unstarted), len(iws.inProcess)
	iws.m.Unlock()
	if unstarted != 4 || inProcess != 0 {
		t.Errorf("after failure: %d unstarted, %d in process", unstarted, inProcess)
	}

	if err := iws.render(newTestRenderer(t, 20)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-iws.done():
	default:
		t.Error("image not finished after retry")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := config{width: 10, height: 10, tileSize: 4, workers: 1, region: "classic"}
	if err := valid.validate(); err != nil {
		t.Fatal(err)
	}
	for _, mod := range []func(*config){
		func(c *config) { c.width = 0 },
		func(c *config) { c.height = -1 },
		func(c *config) { c.tileSize = 0 },
		func(c *config) { c.workers = 0 },
		func(c *config) { c.region = "atlantis" },
	} {
		c := valid
		mod(&c)
		if err := c.validate(); !errors.Is(err, mandel.ErrInvalidConfiguration) {
			t.Errorf("%+v: got %v", c, err)
		}
	}
}

func TestConfig_ImageSize(t *testing.T) {
	testCases := []struct {
		c    config
		w, h int
	}{
		{config{scale: 4}, 988, 896},
		{config{scale: 1}, 247, 224},
		{config{scale: 4, width: 640}, 640, 896},
		{config{scale: 2, width: 100, height: 50}, 100, 50},
	}
	for _, tc := range testCases {
		if w, h := tc.c.imageSize(); w != tc.w || h != tc.h {
			t.Errorf("%+v: got %dx%d, want %dx%d", tc.c, w, h, tc.w, tc.h)
		}
	}
}

func TestConfig_OriginPatterns(t *testing.T) {
	c := config{origins: " viewer.example, *.lan ,,"}
	got := c.originPatterns()
	if len(got) != 2 || got[0] != "viewer.example" || got[1] != "*.lan" {
		t.Errorf("got %q", got)
	}
	if got := (config{origins: "*"}).originPatterns(); len(got) != 1 || got[0] != "*" {
		t.Errorf("got %q", got)
	}
}
