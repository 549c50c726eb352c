package labeler

import (
	"fmt"
	"image"

	"pixel-labeler/internal/camera"
	pximage "pixel-labeler/internal/image"
)

// EventKind identifies an input event.
type EventKind int

const (
	// PointerDown is a primary button press at (X, Y).
	PointerDown EventKind = iota
	// PointerDrag is pointer motion at (X, Y) with the primary button held.
	PointerDrag
	// KeyPress carries Key.
	KeyPress
	// Scroll zooms at (X, Y); DY > 0 zooms in.
	Scroll
	// Pan shifts the view by (DX, DY) device pixels.
	Pan
	// Resize reports a new viewport size in Width and Height.
	Resize
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "pointer-down"
	case PointerDrag:
		return "pointer-drag"
	case KeyPress:
		return "key"
	case Scroll:
		return "scroll"
	case Pan:
		return "pan"
	case Resize:
		return "resize"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Keys understood by the controller. Digits "0" to "9" set the opacity.
const (
	KeySave      = "S"
	KeyQuit      = "Escape"
	KeyAutosave  = "Save"
	KeyZoomIn    = "+"
	KeyZoomOut   = "-"
	KeyResetView = "Home"
)

// Event is one input delivered to the controller. X and Y are device pixels
// with the origin at the bottom-left of the viewport.
type Event struct {
	Kind   EventKind
	X, Y   float64
	DX, DY float64
	Key    string
	Width  float64
	Height float64
}

// Frame is what the controller presents: the layers bottom to top at image
// resolution and the view to draw them with. The layer images are reused by
// the next tick, so a Surface must finish reading them before Present
// returns.
type Frame struct {
	Layers []*pximage.Layer
	View   camera.View
}

// Surface is the display the controller draws to.
type Surface interface {
	Present(f Frame)
	SetCursor(cursor *image.NRGBA)
}
