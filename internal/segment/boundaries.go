package segment

import (
	"image"
	"image/color"

	pximage "pixel-labeler/internal/image"
)

// FindBoundaries marks every pixel whose right or lower neighbour carries a
// different label.
func FindBoundaries(labels []int32, w, h int) []bool {
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x+1 < w && labels[i+1] != labels[i] {
				out[i] = true
			}
			if y+1 < h && labels[i+w] != labels[i] {
				out[i] = true
			}
		}
	}
	return out
}

// BoundaryOverlay returns a w by h image that is transparent except for
// boundary pixels painted in c.
func BoundaryOverlay(labels []int32, w, h int, c color.RGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, edge := range FindBoundaries(labels, w, h) {
		if edge {
			out.Pix[4*i], out.Pix[4*i+1], out.Pix[4*i+2], out.Pix[4*i+3] = c.R, c.G, c.B, 0xff
		}
	}
	return out
}

// MarkBoundaries returns img with the boundaries of r drawn over it in c at
// the given opacity in [0, 1].
func MarkBoundaries(img image.Image, r *Result, c color.RGBA, opacity float64) *image.RGBA {
	comp := pximage.NewComposite(r.Width, r.Height)
	comp.AddLayer(pximage.NewLayer(pximage.LayerSource, img))
	edges := pximage.NewLayer(pximage.LayerSuperpixels, BoundaryOverlay(r.Labels, r.Width, r.Height, c))
	edges.Opacity = opacity
	comp.AddLayer(edges)
	return comp.Render()
}
