// Package brush rasterizes circular brush footprints and cursor bitmaps.
package brush

import (
	"image"
	"image/color"

	"pixel-labeler/pkg/colorutil"

	"golang.org/x/image/draw"
)

// Shape is a set of pixel offsets from a center. X is the column offset and Y
// the row offset.
type Shape []image.Point

// Disk returns every offset with row²+col² <= radius². A negative radius
// yields an empty shape.
func Disk(radius int) Shape {
	if radius < 0 {
		return nil
	}
	r2 := radius * radius
	shape := make(Shape, 0, (2*radius+1)*(2*radius+1))
	for row := -radius; row <= radius; row++ {
		for col := -radius; col <= radius; col++ {
			if row*row+col*col <= r2 {
				shape = append(shape, image.Point{X: col, Y: row})
			}
		}
	}
	return shape
}

// Ring returns the offsets inside outer but outside inner:
// inner² < row²+col² <= outer².
func Ring(inner, outer int) Shape {
	if outer < 0 {
		return nil
	}
	in2 := inner * inner
	if inner < 0 {
		in2 = -1
	}
	out2 := outer * outer
	var shape Shape
	for row := -outer; row <= outer; row++ {
		for col := -outer; col <= outer; col++ {
			d2 := row*row + col*col
			if d2 > in2 && d2 <= out2 {
				shape = append(shape, image.Point{X: col, Y: row})
			}
		}
	}
	return shape
}

// Radius returns the largest absolute offset in the shape.
func (s Shape) Radius() int {
	r := 0
	for _, p := range s {
		r = max(r, abs(p.X), abs(p.Y))
	}
	return r
}

// Contains reports whether the offset is part of the shape.
func (s Shape) Contains(p image.Point) bool {
	for _, q := range s {
		if q == p {
			return true
		}
	}
	return false
}

// CursorBitmap renders shape into a (2r+1)×(2r+1) bitmap centered at (r, r),
// where r is the shape's radius. Pixels in the shape get c at full opacity,
// every other pixel is transparent.
func CursorBitmap(shape Shape, c color.RGBA) *image.NRGBA {
	r := shape.Radius()
	size := 2*r + 1
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	opaque := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
	for _, p := range shape {
		img.SetNRGBA(p.X+r, p.Y+r, opaque)
	}
	return img
}

// Cursor builds the two-layer brush cursor: a disk filled with fill and a
// one-pixel ring in a contrasting color so the outline stays visible on any
// background.
func Cursor(radius int, fill color.RGBA) *image.NRGBA {
	if radius < 0 {
		radius = 0
	}
	base := CursorBitmap(Disk(radius), fill)
	if radius == 0 {
		return base
	}

	ring := Ring(radius-1, radius)
	border := image.NewNRGBA(base.Bounds())
	contrast := colorutil.Contrast(fill)
	for _, p := range ring {
		border.SetNRGBA(p.X+radius, p.Y+radius, color.NRGBA{R: contrast.R, G: contrast.G, B: contrast.B, A: 255})
	}
	draw.Draw(base, base.Bounds(), border, image.Point{}, draw.Over)
	return base
}

// HotSpot returns the pixel of a cursor bitmap that sits under the pointer.
func HotSpot(radius int) image.Point {
	return image.Point{X: radius, Y: radius}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
