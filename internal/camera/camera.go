// Package camera maps between device pointer coordinates and image pixel
// coordinates for a pannable, zoomable viewport.
//
// Device coordinates have their origin at the bottom-left of the viewport and
// grow up and to the right. Image coordinates are (column, row) with row 0 at
// the top of the image. Left/Right/Bottom/Top are the device-space edges of the
// displayed image, so Right-Left == ImageWidth*ZoomLevel at all times.
package camera

import (
	"math"

	"pixel-labeler/pkg/geometry"
)

const (
	// ZoomFactor is applied per zoom step.
	ZoomFactor = 1.2

	DefaultMinZoom = 0.2
	DefaultMaxZoom = 5.0
)

// Direction selects zoom in or zoom out.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

func (d Direction) factor() float64 {
	if d == In {
		return ZoomFactor
	}
	return 1 / ZoomFactor
}

// View is a value copy of the camera state, safe to hand to another goroutine.
type View struct {
	Left, Right, Bottom, Top float64
	ZoomLevel                float64

	ViewportWidth  float64
	ViewportHeight float64
	ImageWidth     int
	ImageHeight    int
}

// ScreenToImage maps a device coordinate to fractional image coordinates.
func (v View) ScreenToImage(x, y float64) (col, row float64) {
	col = (x - v.Left) / v.ZoomLevel
	row = float64(v.ImageHeight) - (y-v.Bottom)/v.ZoomLevel
	return
}

// ImageToScreen is the inverse of ScreenToImage.
func (v View) ImageToScreen(col, row float64) (x, y float64) {
	x = v.Left + col*v.ZoomLevel
	y = v.Bottom + (float64(v.ImageHeight)-row)*v.ZoomLevel
	return
}

// Pixel maps a device coordinate to the image pixel under it.
// ok is false when the pixel lies outside the image.
func (v View) Pixel(x, y float64) (px, py int, ok bool) {
	col, row := v.ScreenToImage(x, y)
	px, py = geometry.NewPoint2D(col, row).Floor()
	ok = px >= 0 && px < v.ImageWidth && py >= 0 && py < v.ImageHeight
	return
}

// Affine returns the image-to-device transform for drawing into a raster
// whose origin is at the top-left of the viewport.
func (v View) Affine() geometry.AffineTransform {
	return geometry.ScaleTranslate(v.ZoomLevel, v.Left, v.ViewportHeight-v.Top)
}

// Camera holds the viewport state for one displayed image.
type Camera struct {
	View

	MinZoom float64
	MaxZoom float64
}

// New creates a camera for an image of the given size. The viewport starts at
// the image size, which matches a window opened to fit the image. Zoom limits
// that are not positive fall back to the defaults.
func New(imageWidth, imageHeight int, minZoom, maxZoom float64) *Camera {
	if minZoom <= 0 {
		minZoom = DefaultMinZoom
	}
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}
	c := &Camera{
		View: View{
			ViewportWidth:  float64(imageWidth),
			ViewportHeight: float64(imageHeight),
			ImageWidth:     imageWidth,
			ImageHeight:    imageHeight,
		},
		MinZoom: minZoom,
		MaxZoom: maxZoom,
	}
	c.Reset()
	return c
}

// Reset returns to zoom 1 with the image's top-left corner at the viewport's
// top-left corner.
func (c *Camera) Reset() {
	c.ZoomLevel = 1
	c.Left = 0
	c.Right = float64(c.ImageWidth)
	c.Top = c.ViewportHeight
	c.Bottom = c.Top - float64(c.ImageHeight)
}

// SetViewport records a new viewport size, keeping the image anchored to the
// top edge of the window.
func (c *Camera) SetViewport(width, height float64) {
	dh := height - c.ViewportHeight
	c.Bottom += dh
	c.Top += dh
	c.ViewportWidth = width
	c.ViewportHeight = height
}

// Pan shifts all four bounds by (dx, dy) scaled by max(1, ZoomLevel).
func (c *Camera) Pan(dx, dy float64) {
	s := math.Max(1, c.ZoomLevel)
	c.Left += dx * s
	c.Right += dx * s
	c.Bottom += dy * s
	c.Top += dy * s
}

// Zoom scales the view by one step about the device point (px, py). The
// image point under the pointer stays under the pointer. A step that would
// leave [MinZoom, MaxZoom] is rejected and Zoom returns false.
func (c *Camera) Zoom(px, py float64, dir Direction) bool {
	f := dir.factor()
	next := c.ZoomLevel * f
	if next < c.MinZoom || next > c.MaxZoom {
		return false
	}

	width := c.Right - c.Left
	height := c.Top - c.Bottom
	u := (px - c.Left) / width
	v := (py - c.Bottom) / height

	width *= f
	height *= f

	c.Left = px - u*width
	c.Right = px + (1-u)*width
	c.Bottom = py - v*height
	c.Top = py + (1-v)*height
	c.ZoomLevel = next
	return true
}

// Snapshot returns a copy of the current view.
func (c *Camera) Snapshot() View {
	return c.View
}
