// Package superpixel keeps the current superpixel partition of the source
// image and answers region queries against it.
package superpixel

import (
	"context"
	"fmt"
	"image"

	"pixel-labeler/internal/segment"
)

// Index wraps the segment map produced by a segment.Provider. It is owned by
// a single goroutine and is not safe for concurrent use.
type Index struct {
	provider segment.Provider
	width    int
	height   int

	labels     []int32
	boundaries *image.NRGBA
	params     segment.Params
	built      bool
}

// New creates an empty index for a width by height image.
func New(provider segment.Provider, width, height int) *Index {
	return &Index{
		provider: provider,
		width:    width,
		height:   height,
		labels:   make([]int32, width*height),
	}
}

// Rebuild replaces the segment map with a fresh segmentation of img. On any
// error the previous map is kept.
func (ix *Index) Rebuild(ctx context.Context, img image.Image, params segment.Params) error {
	res, err := ix.provider.Segment(ctx, img, params)
	if err != nil {
		return err
	}
	if res.Width != ix.width || res.Height != ix.height || len(res.Labels) != ix.width*ix.height {
		return fmt.Errorf("superpixel: provider returned %dx%d map for %dx%d image",
			res.Width, res.Height, ix.width, ix.height)
	}
	ix.labels = res.Labels
	ix.boundaries = res.Preview
	ix.params = params
	ix.built = true
	return nil
}

// Clear resets every segment id to zero and drops the boundary preview.
func (ix *Index) Clear() {
	clear(ix.labels)
	ix.boundaries = nil
	ix.params = nil
	ix.built = false
}

// Active reports whether a segmentation is loaded.
func (ix *Index) Active() bool { return ix.built }

// Params returns the parameters of the loaded segmentation, or nil.
func (ix *Index) Params() segment.Params { return ix.params }

// Labels returns the segment map in row-major order. Callers must not modify it.
func (ix *Index) Labels() []int32 { return ix.labels }

// Boundaries returns the boundary overlay of the loaded segmentation, or nil.
func (ix *Index) Boundaries() *image.NRGBA { return ix.boundaries }

// SegmentAt returns the segment id of pixel (x, y).
func (ix *Index) SegmentAt(x, y int) (int32, bool) {
	if x < 0 || y < 0 || x >= ix.width || y >= ix.height {
		return 0, false
	}
	return ix.labels[y*ix.width+x], true
}

// SelectRegion returns a mask over the whole image that is opaque exactly
// where the segment id equals the id at (x, y). Without a loaded
// segmentation, or for a point outside the image, the mask is empty.
func (ix *Index) SelectRegion(x, y int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, ix.width, ix.height))
	if !ix.built {
		return mask
	}
	id, ok := ix.SegmentAt(x, y)
	if !ok {
		return mask
	}
	for i, l := range ix.labels {
		if l == id {
			mask.Pix[i] = 0xff
		}
	}
	return mask
}
