package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	pximage "pixel-labeler/internal/image"
	"pixel-labeler/pkg/colorutil"
)

// Result is a segmentation: one label per pixel in row-major order, labels
// consecutive from 0, and a boundary overlay for display.
type Result struct {
	Labels []int32
	Width  int
	Height int
	Count  int

	// Preview is transparent except on segment boundaries.
	Preview *image.NRGBA
}

// At returns the label of pixel (x, y).
func (r *Result) At(x, y int) int32 {
	return r.Labels[y*r.Width+x]
}

// Provider computes segmentations.
type Provider interface {
	Segment(ctx context.Context, img image.Image, params Params) (*Result, error)
}

// Segmenter is the built-in Provider.
type Segmenter struct {
	// BoundaryColor paints segment boundaries in Result.Preview.
	BoundaryColor color.RGBA
	// Workers bounds parallel stages. Zero means GOMAXPROCS.
	Workers int
}

// NewSegmenter returns a Segmenter with yellow boundaries.
func NewSegmenter() *Segmenter {
	return &Segmenter{BoundaryColor: colorutil.Yellow}
}

// Segment partitions img with the algorithm selected by params.
func (s *Segmenter) Segment(ctx context.Context, img image.Image, params Params) (*Result, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: no parameters", ErrInvalidParameter)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("segment: empty image")
	}
	w, h := b.Dx(), b.Dy()
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		labels []int32
		err    error
	)
	switch p := params.(type) {
	case FelzenszwalbParams:
		labels = felzenszwalb(Normalize(img), p)
	case SLICParams:
		labels, err = slic(ctx, Normalize(img), p, workers)
	case QuickshiftParams:
		labels, err = quickshift(ctx, Normalize(img), p, workers)
	case WatershedParams:
		labels, err = watershed(pximage.ToNRGBA(img), p)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedAlgorithm, params)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", params.Algorithm(), err)
	}

	count := relabel(labels)
	return &Result{
		Labels:  labels,
		Width:   w,
		Height:  h,
		Count:   count,
		Preview: BoundaryOverlay(labels, w, h, s.BoundaryColor),
	}, nil
}

// SegmentByName resolves an algorithm name and named values and runs p.
func SegmentByName(ctx context.Context, p Provider, img image.Image, name string, values map[string]float64) (*Result, error) {
	alg, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	params, err := BuildParams(alg, values)
	if err != nil {
		return nil, err
	}
	return p.Segment(ctx, img, params)
}

// relabel rewrites labels as consecutive integers from 0 in order of first
// appearance and returns how many distinct labels there are.
func relabel(labels []int32) int {
	ids := make(map[int32]int32)
	for i, l := range labels {
		id, ok := ids[l]
		if !ok {
			id = int32(len(ids))
			ids[l] = id
		}
		labels[i] = id
	}
	return len(ids)
}
