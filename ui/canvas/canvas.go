// Package canvas provides the label display: a fyne widget that shows the
// composed layers under the camera transform and turns mouse input into
// labeler events.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"pixel-labeler/internal/brush"
	"pixel-labeler/internal/labeler"
)

// Background fills the viewport outside the image.
var Background = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xFF}

// LabelCanvas displays frames presented by the labeler. Present and
// SetCursor may be called from any goroutine.
type LabelCanvas struct {
	widget.BaseWidget

	raster *fynecanvas.Raster
	post   func(labeler.Event) bool

	mu       sync.Mutex
	frame    *image.RGBA // device pixels, top-left origin
	cursor   *image.NRGBA
	radius   int
	hover    image.Point
	hovering bool
	pxSize   image.Point // last raster size

	button   desktop.MouseButton
	dragging bool
}

var (
	_ labeler.Surface     = (*LabelCanvas)(nil)
	_ desktop.Mouseable   = (*LabelCanvas)(nil)
	_ desktop.Hoverable   = (*LabelCanvas)(nil)
	_ fyne.Draggable      = (*LabelCanvas)(nil)
	_ fyne.Scrollable     = (*LabelCanvas)(nil)
	_ fyne.WidgetRenderer = (*labelCanvasRenderer)(nil)
)

// NewLabelCanvas creates a canvas that forwards input through post.
func NewLabelCanvas(post func(labeler.Event) bool) *LabelCanvas {
	lc := &LabelCanvas{post: post}
	lc.raster = fynecanvas.NewRaster(lc.draw)
	lc.raster.ScaleMode = fynecanvas.ImageScalePixels
	lc.ExtendBaseWidget(lc)
	return lc
}

// Present renders the frame offscreen and schedules a redraw.
func (lc *LabelCanvas) Present(f labeler.Frame) {
	out := Render(f)
	lc.mu.Lock()
	lc.frame = out
	lc.mu.Unlock()
	lc.raster.Refresh()
}

// SetCursor replaces the brush cursor bitmap.
func (lc *LabelCanvas) SetCursor(cursor *image.NRGBA) {
	lc.mu.Lock()
	lc.cursor = cursor
	if cursor != nil {
		lc.radius = cursor.Bounds().Dx() / 2
	}
	lc.mu.Unlock()
	lc.raster.Refresh()
}

// Render draws the frame's layers bottom to top into a viewport-sized raster.
// A layer's Opacity scales its alpha.
func Render(f labeler.Frame) *image.RGBA {
	w, h := int(f.View.ViewportWidth+0.5), int(f.View.ViewportHeight+0.5)
	out := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.Draw(out, out.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	aff := f.View.Affine().Aff3()
	for _, layer := range f.Layers {
		if layer == nil || layer.Image == nil || !layer.Visible {
			continue
		}
		opts := &xdraw.Options{SrcMask: layer.Mask(), SrcMaskP: layer.Image.Bounds().Min}
		xdraw.NearestNeighbor.Transform(out, aff, layer.Image, layer.Image.Bounds(), xdraw.Over, opts)
	}
	return out
}

// draw is the raster generator. It runs on the render thread.
func (lc *LabelCanvas) draw(w, h int) image.Image {
	lc.mu.Lock()
	frame, cursor, radius := lc.frame, lc.cursor, lc.radius
	hover, hovering := lc.hover, lc.hovering
	resized := lc.pxSize != image.Pt(w, h)
	lc.pxSize = image.Pt(w, h)
	lc.mu.Unlock()

	if resized && lc.post != nil {
		lc.post(labeler.Event{Kind: labeler.Resize, Width: float64(w), Height: float64(h)})
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	if frame != nil {
		draw.Draw(out, out.Bounds(), frame, image.Point{}, draw.Src)
	}
	if hovering && cursor != nil {
		at := hover.Sub(brush.HotSpot(radius))
		draw.Draw(out, cursor.Bounds().Add(at), cursor, image.Point{}, draw.Over)
	}
	return out
}

func (lc *LabelCanvas) scale() float32 {
	if app := fyne.CurrentApp(); app != nil {
		if c := app.Driver().CanvasForObject(lc); c != nil {
			return c.Scale()
		}
	}
	return 1
}

// toPixels converts a widget position to raster pixels, top-left origin.
func (lc *LabelCanvas) toPixels(pos fyne.Position) image.Point {
	s := lc.scale()
	return image.Pt(int(pos.X*s), int(pos.Y*s))
}

// toDevice converts a widget position to device coordinates with the origin
// at the bottom-left, the convention of labeler events.
func (lc *LabelCanvas) toDevice(pos fyne.Position) (x, y float64) {
	s := float64(lc.scale())
	height := float64(lc.Size().Height) * s
	return float64(pos.X) * s, height - float64(pos.Y)*s
}

func (lc *LabelCanvas) send(ev labeler.Event) {
	if lc.post != nil {
		lc.post(ev)
	}
}

func (lc *LabelCanvas) setHover(pos fyne.Position, in bool) {
	lc.mu.Lock()
	lc.hover = lc.toPixels(pos)
	lc.hovering = in
	lc.mu.Unlock()
	lc.raster.Refresh()
}

// MouseDown starts a stroke with the primary button.
func (lc *LabelCanvas) MouseDown(ev *desktop.MouseEvent) {
	lc.button = ev.Button
	if ev.Button == desktop.MouseButtonPrimary {
		x, y := lc.toDevice(ev.Position)
		lc.send(labeler.Event{Kind: labeler.PointerDown, X: x, Y: y})
	}
}

// MouseUp ends the current button gesture.
func (lc *LabelCanvas) MouseUp(*desktop.MouseEvent) {
	if !lc.dragging {
		lc.button = 0
	}
}

// Dragged paints with the primary button and pans with the secondary one.
func (lc *LabelCanvas) Dragged(ev *fyne.DragEvent) {
	lc.dragging = true
	lc.setHover(ev.Position, true)
	switch lc.button {
	case desktop.MouseButtonPrimary:
		x, y := lc.toDevice(ev.Position)
		lc.send(labeler.Event{Kind: labeler.PointerDrag, X: x, Y: y})
	case desktop.MouseButtonSecondary:
		s := float64(lc.scale())
		lc.send(labeler.Event{Kind: labeler.Pan, DX: float64(ev.Dragged.DX) * s, DY: -float64(ev.Dragged.DY) * s})
	}
}

// DragEnd finishes a drag gesture.
func (lc *LabelCanvas) DragEnd() {
	lc.dragging = false
	lc.button = 0
}

// Scrolled zooms about the pointer.
func (lc *LabelCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY == 0 {
		return
	}
	x, y := lc.toDevice(ev.Position)
	lc.send(labeler.Event{Kind: labeler.Scroll, X: x, Y: y, DY: float64(ev.Scrolled.DY)})
}

// MouseIn shows the cursor.
func (lc *LabelCanvas) MouseIn(ev *desktop.MouseEvent) { lc.setHover(ev.Position, true) }

// MouseMoved moves the cursor.
func (lc *LabelCanvas) MouseMoved(ev *desktop.MouseEvent) { lc.setHover(ev.Position, true) }

// MouseOut hides the cursor.
func (lc *LabelCanvas) MouseOut() {
	lc.mu.Lock()
	lc.hovering = false
	lc.mu.Unlock()
	lc.raster.Refresh()
}

// MinSize keeps the canvas usable in small windows.
func (lc *LabelCanvas) MinSize() fyne.Size {
	return fyne.NewSize(64, 64)
}

func (lc *LabelCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &labelCanvasRenderer{canvas: lc}
}

type labelCanvasRenderer struct {
	canvas *LabelCanvas
}

func (r *labelCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *labelCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.MinSize()
}

func (r *labelCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *labelCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *labelCanvasRenderer) Destroy() {}
