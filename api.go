package mandel

import (
	"context"
	"errors"
	"image"
)

// ErrInvalidConfiguration is returned before any pixel work starts when the
// palette, image size or iteration cap cannot produce an image.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ImgProvider returns the fully rendered image.
type ImgProvider interface {
	GetImage(ctx context.Context) (*image.RGBA, error)
}

// Renderer renders one tile of an imgW x imgH image of region r.
// The returned image uses global coordinates (its Rect equals tile).
type Renderer interface {
	RenderTile(r Region, tile image.Rectangle, imgW, imgH int) (*image.RGBA, error)
}

// TileProvider exposes rendering progress to viewers.
type TileProvider interface {
	FullImageDimensions() (width, height int, err error)
	TotalTilesCount() (int, error)
	FinishedTiles() (map[image.Rectangle]struct{}, error)
	GetTileImg(tile image.Rectangle) (*image.RGBA, error)
	WorkersCount() (int, error)
}
