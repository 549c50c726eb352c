// Package image provides image loading, display layers, and frame compositing.
package image

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Layer is one image in the display stack.
type Layer struct {
	Name    string      // Short identifier, e.g. "source", "labels"
	Path    string      // Original file path, if loaded from disk
	Image   image.Image // Pixel data at the source image's resolution
	Visible bool        // Layer visibility
	Opacity float64     // Extra opacity multiplier (0.0 - 1.0)
}

// NewLayer creates a new visible, fully opaque layer.
func NewLayer(name string, img image.Image) *Layer {
	return &Layer{
		Name:    name,
		Image:   img,
		Visible: true,
		Opacity: 1.0,
	}
}

// Load loads an image from the specified path and returns it as an opaque
// NRGBA layer.
func Load(path string) (*Layer, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	layer := NewLayer("source", ToNRGBA(img))
	layer.Path = path
	return layer, nil
}

// Decode reads an image file. The decoder is chosen by extension; unknown
// extensions fall back to content sniffing.
func Decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()
	r := bufio.NewReader(file)

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	case ".tif", ".tiff":
		img, err = tiff.Decode(r)
	case ".bmp":
		img, err = bmp.Decode(r)
	case ".webp":
		img, err = nativewebp.Decode(r)
	case ".tga":
		img, err = tga.Decode(r)
	default:
		img, _, err = image.Decode(r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Mask returns the uniform source mask that applies Opacity when the layer
// is drawn, or nil for a fully opaque layer.
func (l *Layer) Mask() image.Image {
	if l.Opacity >= 1 {
		return nil
	}
	return image.NewUniform(color.Alpha{A: uint8(max(0, min(1, l.Opacity)) * 255)})
}

// ToNRGBA converts img to a zero-origin NRGBA copy.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}
