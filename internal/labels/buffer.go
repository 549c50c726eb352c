// Package labels holds the per-pixel label mask being edited and its on-disk
// form.
package labels

import (
	"image"
	"image/color"

	"pixel-labeler/internal/brush"
)

// Buffer is an RGB label mask. It implements image.Image so it can be handed
// straight to an encoder; every pixel reports full opacity.
type Buffer struct {
	width  int
	height int
	pix    []uint8 // 3 bytes per pixel, row-major

	// dirty accumulates the region changed since the last TakeDirty.
	dirty image.Rectangle
}

// New returns a width×height buffer filled with fill.
func New(width, height int, fill color.RGBA) *Buffer {
	b := &Buffer{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*3),
	}
	for i := 0; i < len(b.pix); i += 3 {
		b.pix[i] = fill.R
		b.pix[i+1] = fill.G
		b.pix[i+2] = fill.B
	}
	b.dirty = b.Bounds()
	return b
}

// FromImage copies img verbatim into a new buffer. Alpha is dropped.
func FromImage(img image.Image) *Buffer {
	r := img.Bounds()
	b := &Buffer{
		width:  r.Dx(),
		height: r.Dy(),
		pix:    make([]uint8, r.Dx()*r.Dy()*3),
	}
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			b.pix[i] = c.R
			b.pix[i+1] = c.G
			b.pix[i+2] = c.B
			i += 3
		}
	}
	b.dirty = b.Bounds()
	return b
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color {
	return b.RGBAAt(x, y)
}

// RGBAAt returns the label color at (x, y), or transparent black outside the buffer.
func (b *Buffer) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}.In(b.Bounds())) {
		return color.RGBA{}
	}
	i := (y*b.width + x) * 3
	return color.RGBA{R: b.pix[i], G: b.pix[i+1], B: b.pix[i+2], A: 255}
}

func (b *Buffer) set(x, y int, c color.RGBA) {
	i := (y*b.width + x) * 3
	b.pix[i] = c.R
	b.pix[i+1] = c.G
	b.pix[i+2] = c.B
}

// PaintDisk writes c at every disk offset around (cx, cy). Offsets that land
// outside the buffer are clamped to the nearest edge pixel.
func (b *Buffer) PaintDisk(cx, cy, radius int, c color.RGBA) {
	if b.width == 0 || b.height == 0 {
		return
	}
	shape := brush.Disk(radius)
	if len(shape) == 0 {
		return
	}
	changed := image.Rectangle{}
	for _, off := range shape {
		x := clamp(cx+off.X, 0, b.width-1)
		y := clamp(cy+off.Y, 0, b.height-1)
		b.set(x, y, c)
		changed = changed.Union(image.Rect(x, y, x+1, y+1))
	}
	b.dirty = b.dirty.Union(changed)
}

// PaintRegion writes c wherever mask is non-zero. The mask is matched to the
// buffer by absolute coordinates; parts of it outside the buffer are ignored.
func (b *Buffer) PaintRegion(mask *image.Alpha, c color.RGBA) {
	if mask == nil {
		return
	}
	r := mask.Bounds().Intersect(b.Bounds())
	changed := image.Rectangle{}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.AlphaAt(x, y).A == 0 {
				continue
			}
			b.set(x, y, c)
			changed = changed.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	b.dirty = b.dirty.Union(changed)
}

// Snapshot returns a deep copy of the buffer.
func (b *Buffer) Snapshot() *Buffer {
	pix := make([]uint8, len(b.pix))
	copy(pix, b.pix)
	return &Buffer{width: b.width, height: b.height, pix: pix}
}

// Equal reports whether both buffers hold identical pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// TakeDirty returns the region modified since the previous call and resets it.
func (b *Buffer) TakeDirty() image.Rectangle {
	d := b.dirty
	b.dirty = image.Rectangle{}
	return d
}

// CountNotIn returns how many pixels hold a color for which keep returns false.
func (b *Buffer) CountNotIn(keep func(color.RGBA) bool) int {
	n := 0
	for i := 0; i < len(b.pix); i += 3 {
		if !keep(color.RGBA{R: b.pix[i], G: b.pix[i+1], B: b.pix[i+2], A: 255}) {
			n++
		}
	}
	return n
}

// CopyTo writes the pixels inside r into dst with the given alpha. dst must
// cover the same coordinate space as the buffer.
func (b *Buffer) CopyTo(dst *image.NRGBA, r image.Rectangle, alpha uint8) {
	r = r.Intersect(b.Bounds()).Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := (y*b.width + r.Min.X) * 3
		di := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Pix[di] = b.pix[si]
			dst.Pix[di+1] = b.pix[si+1]
			dst.Pix[di+2] = b.pix[si+2]
			dst.Pix[di+3] = alpha
			si += 3
			di += 4
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
