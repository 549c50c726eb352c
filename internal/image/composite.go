package image

import (
	"image"
	"image/color"
	"image/draw"
)

// MaxOpacity is the highest overlay opacity step.
const MaxOpacity = 9

// Layer names in presentation order.
const (
	LayerSource      = "source"
	LayerLabels      = "labels"
	LayerSuperpixels = "superpixels"
)

// OverlayAlpha converts an opacity step in [0, MaxOpacity] to an 8-bit alpha.
// Out-of-range steps are clamped.
func OverlayAlpha(opacity int) uint8 {
	opacity = max(0, min(MaxOpacity, opacity))
	return uint8(255 * opacity / MaxOpacity)
}

// LabelSource is the label mask as the compositor sees it.
type LabelSource interface {
	Bounds() image.Rectangle
	TakeDirty() image.Rectangle
	CopyTo(dst *image.NRGBA, r image.Rectangle, alpha uint8)
}

// Compositor assembles the three display layers: the source image, the label
// overlay, and the superpixel boundary overlay. Layers are kept between calls
// and only the parts that changed are rewritten.
type Compositor struct {
	source      *Layer
	labels      *Layer
	superpixels *Layer

	labelPix   *image.NRGBA
	empty      *image.NRGBA
	boundaries *image.NRGBA
	opacity    int
	primed     bool
}

// NewCompositor creates a compositor for frames of src's size.
func NewCompositor(src image.Image) *Compositor {
	nrgba, ok := src.(*image.NRGBA)
	if !ok || nrgba.Bounds().Min != (image.Point{}) {
		nrgba = ToNRGBA(src)
	}
	r := nrgba.Bounds()
	c := &Compositor{
		source:   NewLayer(LayerSource, nrgba),
		labelPix: image.NewNRGBA(r),
		empty:    image.NewNRGBA(r),
		opacity:  -1,
	}
	c.labels = NewLayer(LayerLabels, c.labelPix)
	c.superpixels = NewLayer(LayerSuperpixels, c.empty)
	return c
}

// Compose brings the layers up to date and returns them bottom to top.
// boundaries is the superpixel boundary overlay, or nil when superpixel mode
// is off. changed reports whether any layer differs from the previous call.
func (c *Compositor) Compose(labels LabelSource, opacity int, boundaries *image.NRGBA) (layers []*Layer, changed bool) {
	opacity = max(0, min(MaxOpacity, opacity))
	dirty := labels.TakeDirty()

	if !c.primed || opacity != c.opacity {
		labels.CopyTo(c.labelPix, c.labelPix.Bounds(), OverlayAlpha(opacity))
		c.opacity = opacity
		changed = true
	} else if !dirty.Empty() {
		labels.CopyTo(c.labelPix, dirty, OverlayAlpha(opacity))
		changed = true
	}

	if boundaries != c.boundaries || !c.primed {
		c.boundaries = boundaries
		if boundaries == nil {
			c.superpixels.Image = c.empty
		} else {
			c.superpixels.Image = boundaries
		}
		changed = true
	}

	c.primed = true
	return c.Layers(), changed
}

// Layers returns the current layers bottom to top without updating them.
func (c *Compositor) Layers() []*Layer {
	return []*Layer{c.source, c.labels, c.superpixels}
}

// Composite flattens layers into a single image.
type Composite struct {
	Width     int
	Height    int
	Layers    []*Layer
	BackColor color.Color
}

// NewComposite creates a new Composite with the specified dimensions.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.RGBA{A: 255},
	}
}

// AddLayer adds a layer to the top of the composite.
func (c *Composite) AddLayer(layer *Layer) {
	c.Layers = append(c.Layers, layer)
}

// Render alpha-blends the visible layers in order over the background.
func (c *Composite) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(result, result.Bounds(), &image.Uniform{C: c.BackColor}, image.Point{}, draw.Src)

	for _, l := range c.Layers {
		if l == nil || l.Image == nil || !l.Visible {
			continue
		}
		draw.DrawMask(result, result.Bounds(), l.Image, l.Image.Bounds().Min, l.Mask(), image.Point{}, draw.Over)
	}
	return result
}
