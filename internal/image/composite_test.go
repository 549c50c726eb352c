package image

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidLabels is a LabelSource of one color that records dirty regions.
type solidLabels struct {
	r     image.Rectangle
	c     color.RGBA
	dirty image.Rectangle
}

func (s *solidLabels) Bounds() image.Rectangle { return s.r }

func (s *solidLabels) TakeDirty() image.Rectangle {
	d := s.dirty
	s.dirty = image.Rectangle{}
	return d
}

func (s *solidLabels) CopyTo(dst *image.NRGBA, r image.Rectangle, alpha uint8) {
	r = r.Intersect(s.r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.SetNRGBA(x, y, color.NRGBA{R: s.c.R, G: s.c.G, B: s.c.B, A: alpha})
		}
	}
}

func TestOverlayAlpha(t *testing.T) {
	assert.Equal(t, uint8(0), OverlayAlpha(0))
	assert.Equal(t, uint8(255), OverlayAlpha(9))
	assert.Equal(t, uint8(141), OverlayAlpha(5))
	assert.Equal(t, uint8(255), OverlayAlpha(12))
	assert.Equal(t, uint8(0), OverlayAlpha(-3))
}

func TestComposeLayerOrderAndAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	c := NewCompositor(src)
	labels := &solidLabels{r: src.Bounds(), c: color.RGBA{R: 200, A: 255}}

	layers, changed := c.Compose(labels, 9, nil)
	require.True(t, changed)
	require.Len(t, layers, 3)
	assert.Equal(t, LayerSource, layers[0].Name)
	assert.Equal(t, LayerLabels, layers[1].Name)
	assert.Equal(t, LayerSuperpixels, layers[2].Name)

	lbl := layers[1].Image.(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, lbl.NRGBAAt(2, 1))

	// boundary layer is fully transparent outside superpixel mode
	sp := layers[2].Image.(*image.NRGBA)
	for i := 3; i < len(sp.Pix); i += 4 {
		require.Zero(t, sp.Pix[i])
	}
}

func TestComposeTracksChanges(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	c := NewCompositor(src)
	labels := &solidLabels{r: src.Bounds(), c: color.RGBA{G: 10, A: 255}}

	_, changed := c.Compose(labels, 5, nil)
	require.True(t, changed)
	_, changed = c.Compose(labels, 5, nil)
	assert.False(t, changed)

	// opacity change rewrites every label pixel
	layers, changed := c.Compose(labels, 0, nil)
	assert.True(t, changed)
	assert.Equal(t, uint8(0), layers[1].Image.(*image.NRGBA).NRGBAAt(3, 3).A)

	// dirty region only
	labels.c = color.RGBA{B: 99, A: 255}
	labels.dirty = image.Rect(1, 1, 2, 2)
	layers, changed = c.Compose(labels, 0, nil)
	assert.True(t, changed)
	lbl := layers[1].Image.(*image.NRGBA)
	assert.Equal(t, uint8(99), lbl.NRGBAAt(1, 1).B)
	assert.Equal(t, uint8(0), lbl.NRGBAAt(2, 2).B)

	b := image.NewNRGBA(src.Bounds())
	layers, changed = c.Compose(labels, 0, b)
	assert.True(t, changed)
	assert.Same(t, b, layers[2].Image)
	_, changed = c.Compose(labels, 0, b)
	assert.False(t, changed)
}

func TestCompositeRender(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 100, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 100, A: 255})
	over := image.NewNRGBA(src.Bounds())
	over.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	comp := NewComposite(2, 1)
	comp.AddLayer(NewLayer("a", src))
	comp.AddLayer(NewLayer("b", over))
	out := comp.Render()

	assert.Equal(t, color.RGBA{R: 100, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(1, 0))
}

func TestCompositeRenderAppliesLayerOpacity(t *testing.T) {
	over := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	over.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	over.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 255})

	comp := NewComposite(2, 1)
	top := NewLayer("overlay", over)
	top.Opacity = 0
	comp.AddLayer(top)
	assert.Equal(t, color.RGBA{A: 255}, comp.Render().RGBAAt(0, 0), "a transparent layer leaves the background")

	top.Opacity = 0.5
	px := comp.Render().RGBAAt(1, 0)
	assert.InDelta(t, 127, int(px.R), 1)
	assert.Equal(t, uint8(255), px.A)

	top.Visible = false
	assert.Equal(t, color.RGBA{A: 255}, comp.Render().RGBAAt(1, 0))
}

func TestLayerMask(t *testing.T) {
	l := NewLayer("a", image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	assert.Nil(t, l.Mask())

	l.Opacity = 0.5
	require.NotNil(t, l.Mask())
	_, _, _, a := l.Mask().At(0, 0).RGBA()
	assert.InDelta(t, 0x7f7f, int(a), 0x101)
}

func TestLoadDecodesByExtension(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(2, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	path := filepath.Join(t.TempDir(), "src.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	layer, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, layer.Width())
	assert.Equal(t, 2, layer.Height())
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, layer.Image.At(2, 1))

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
