// Package labeler implements the labeling session: it owns the label buffer,
// the camera and the superpixel index, turns input events into paint
// operations and drives composition of the displayed frame.
//
// All methods except Post and State must be called from the goroutine that
// runs the controller.
package labeler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"pixel-labeler/internal/app"
	"pixel-labeler/internal/brush"
	"pixel-labeler/internal/camera"
	pximage "pixel-labeler/internal/image"
	"pixel-labeler/internal/labelmeta"
	"pixel-labeler/internal/labels"
	"pixel-labeler/internal/segment"
	"pixel-labeler/internal/settings"
	"pixel-labeler/internal/superpixel"
)

// ErrOutOfBounds reports a pointer event outside the image. Dispatch ignores it.
var ErrOutOfBounds = errors.New("labeler: pointer outside image")

// State is the controller life-cycle state.
type State int32

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

const (
	defaultFrameInterval = 16 * time.Millisecond
	eventQueueSize       = 256
)

// Options configures a Controller. Zero values select defaults.
type Options struct {
	OutputPath    string
	MinZoom       float64
	MaxZoom       float64
	Opacity       int
	FrameInterval time.Duration
	Provider      segment.Provider
	Bus           *app.Bus
}

// Controller is one labeling session.
type Controller struct {
	source     *image.NRGBA
	buffer     *labels.Buffer
	camera     *camera.Camera
	index      *superpixel.Index
	compositor *pximage.Compositor
	shared     *settings.Shared
	surface    Surface
	bus        *app.Bus

	output        string
	frameInterval time.Duration
	opacity       int

	// configuration observed at the last tick
	mode   settings.PaintMode
	params segment.Params

	lastView  camera.View
	presented bool

	state  atomic.Int32
	events chan Event
}

// New creates a running controller for src. buffer must match src's size.
func New(src image.Image, buffer *labels.Buffer, shared *settings.Shared, surface Surface, opts Options) (*Controller, error) {
	nrgba := pximage.ToNRGBA(src)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	if buffer.Width() != w || buffer.Height() != h {
		return nil, fmt.Errorf("label buffer is %dx%d, image is %dx%d", buffer.Width(), buffer.Height(), w, h)
	}
	if opts.OutputPath == "" {
		return nil, errors.New("no output path")
	}
	provider := opts.Provider
	if provider == nil {
		provider = segment.NewSegmenter()
	}
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = defaultFrameInterval
	}

	c := &Controller{
		source:        nrgba,
		buffer:        buffer,
		camera:        camera.New(w, h, opts.MinZoom, opts.MaxZoom),
		index:         superpixel.New(provider, w, h),
		compositor:    pximage.NewCompositor(nrgba),
		shared:        shared,
		surface:       surface,
		bus:           opts.Bus,
		output:        opts.OutputPath,
		frameInterval: interval,
		opacity:       min(max(opts.Opacity, 0), pximage.MaxOpacity),
		mode:          settings.Brush,
		events:        make(chan Event, eventQueueSize),
	}
	shared.SetOpacity(c.opacity)
	return c, nil
}

// InitialBuffer returns the label buffer a session starts from: the prior
// mask loaded verbatim, or a buffer filled with the table's first color.
func InitialBuffer(width, height int, table *labelmeta.Table, priorPath string) (*labels.Buffer, error) {
	if priorPath == "" {
		return labels.New(width, height, table.Default().Color), nil
	}
	b, err := labels.Load(priorPath)
	if err != nil {
		return nil, err
	}
	if b.Width() != width || b.Height() != height {
		return nil, fmt.Errorf("prior mask %s is %dx%d, image is %dx%d", priorPath, b.Width(), b.Height(), width, height)
	}
	if n := b.CountNotIn(table.Contains); n > 0 {
		log.Printf("labeler: %s has %s pixels whose color is not in the label table", priorPath, humanize.Comma(int64(n)))
	}
	return b, nil
}

// State returns the life-cycle state. Safe from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Opacity returns the overlay opacity step.
func (c *Controller) Opacity() int { return c.opacity }

// Buffer returns the label buffer.
func (c *Controller) Buffer() *labels.Buffer { return c.buffer }

// View returns a copy of the camera state.
func (c *Controller) View() camera.View { return c.camera.Snapshot() }

// Superpixels returns the superpixel index.
func (c *Controller) Superpixels() *superpixel.Index { return c.index }

// OutputPath returns where the mask is saved.
func (c *Controller) OutputPath() string { return c.output }

// Post queues ev for the controller goroutine. Safe from any goroutine. It
// returns false when the queue is full and the event was dropped.
func (c *Controller) Post(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		log.Printf("labeler: event queue full, dropping %s", ev.Kind)
		return false
	}
}

// Dispatch handles one event.
func (c *Controller) Dispatch(ev Event) {
	if c.State() == Stopped {
		return
	}
	switch ev.Kind {
	case PointerDown, PointerDrag:
		if err := c.paintAt(ev.X, ev.Y); err != nil && !errors.Is(err, ErrOutOfBounds) {
			log.Printf("labeler: paint failed: %v", err)
		}
	case KeyPress:
		c.handleKey(ev.Key)
	case Scroll:
		switch {
		case ev.DY > 0:
			c.camera.Zoom(ev.X, ev.Y, camera.In)
		case ev.DY < 0:
			c.camera.Zoom(ev.X, ev.Y, camera.Out)
		}
	case Pan:
		c.camera.Pan(ev.DX, ev.DY)
	case Resize:
		if ev.Width > 0 && ev.Height > 0 {
			c.camera.SetViewport(ev.Width, ev.Height)
		}
	}
}

// ZoomIn zooms one step about the viewport centre.
func (c *Controller) ZoomIn() bool {
	v := c.camera.Snapshot()
	return c.camera.Zoom(v.ViewportWidth/2, v.ViewportHeight/2, camera.In)
}

// ZoomOut zooms out one step about the viewport centre.
func (c *Controller) ZoomOut() bool {
	v := c.camera.Snapshot()
	return c.camera.Zoom(v.ViewportWidth/2, v.ViewportHeight/2, camera.Out)
}

// ResetView returns the camera to zoom 1 at the top-left.
func (c *Controller) ResetView() {
	c.camera.Reset()
}

// brushRadius converts a brush size in screen pixels to a radius in image
// pixels at the given zoom.
func brushRadius(size int, zoom float64) int {
	return max(1, int(math.Round(float64(size)/zoom)))
}

func (c *Controller) paintAt(x, y float64) error {
	view := c.camera.Snapshot()
	px, py, ok := view.Pixel(x, y)
	if !ok {
		return ErrOutOfBounds
	}
	col := c.shared.Color()
	switch c.mode {
	case settings.Superpixel:
		c.buffer.PaintRegion(c.index.SelectRegion(px, py), col)
	default:
		c.buffer.PaintDisk(px, py, brushRadius(c.shared.BrushSize(), view.ZoomLevel), col)
	}
	return nil
}

func (c *Controller) handleKey(key string) {
	switch {
	case strings.EqualFold(key, KeySave), key == KeyAutosave:
		c.Save()
	case key == KeyQuit:
		c.Quit()
	case key == KeyZoomIn:
		c.ZoomIn()
	case key == KeyZoomOut:
		c.ZoomOut()
	case key == KeyResetView:
		c.ResetView()
	case len(key) == 1 && key[0] >= '0' && key[0] <= '9':
		c.SetOpacity(int(key[0] - '0'))
	}
}

// SetOpacity sets the overlay opacity step, clamped to 0..9, and publishes it
// to the shared configuration for display.
func (c *Controller) SetOpacity(v int) {
	v = min(max(v, 0), pximage.MaxOpacity)
	if v == c.opacity {
		return
	}
	c.opacity = v
	c.shared.SetOpacity(v)
	c.bus.Emit(app.EventOpacityChanged, v)
}

// Save writes the label buffer to the output path. Failures are logged and
// published; the in-memory buffer stays valid for a retry.
func (c *Controller) Save() error {
	n, err := labels.Save(c.output, c.buffer.Snapshot())
	if err != nil {
		log.Printf("save: %v", err)
		c.bus.Emit(app.EventSaveFailed, err)
		return err
	}
	log.Printf("save: wrote %s (%s)", c.output, humanize.Bytes(uint64(n)))
	c.bus.Emit(app.EventSaved, app.SaveInfo{Path: c.output, Bytes: n})
	return nil
}

// Quit saves and stops the session. If the save fails the session keeps
// running.
func (c *Controller) Quit() error {
	if c.State() == Stopped {
		return nil
	}
	if err := c.Save(); err != nil {
		return err
	}
	c.state.Store(int32(Stopped))
	log.Printf("labeler: stopped")
	c.bus.Emit(app.EventStopped, nil)
	return nil
}

// Tick runs one render step: pick up configuration changes, refresh the
// cursor if needed and present the frame if anything changed.
func (c *Controller) Tick() {
	c.tick(context.Background())
}

func (c *Controller) tick(ctx context.Context) {
	if c.State() == Stopped {
		return
	}
	// Take the flag before copying so the copy is at least as new as the
	// change that set it.
	cursorDirty := c.shared.TakeCursorDirty()
	cfg := c.shared.Snapshot()
	c.syncSuperpixels(ctx, cfg.Mode, cfg.Params)

	if cursorDirty {
		c.surface.SetCursor(brush.Cursor(cfg.BrushSize, cfg.Color))
	}

	var boundaries *image.NRGBA
	if c.mode == settings.Superpixel {
		boundaries = c.index.Boundaries()
	}
	layers, changed := c.compositor.Compose(c.buffer, c.opacity, boundaries)
	view := c.camera.Snapshot()
	if changed || !c.presented || view != c.lastView {
		c.surface.Present(Frame{Layers: layers, View: view})
		c.lastView = view
		c.presented = true
	}
}

// syncSuperpixels rebuilds the index when superpixel mode is entered or its
// parameters change, and clears it when the mode is left. A configuration
// that fails to build is not retried until it changes.
func (c *Controller) syncSuperpixels(ctx context.Context, mode settings.PaintMode, params segment.Params) {
	prevMode, prevParams := c.mode, c.params
	c.mode, c.params = mode, params

	if mode != settings.Superpixel {
		if prevMode == settings.Superpixel {
			c.index.Clear()
			log.Printf("superpixel: cleared")
			c.bus.Emit(app.EventSuperpixelsCleared, nil)
		}
		return
	}
	if prevMode == settings.Superpixel && params == prevParams {
		return
	}

	name := "none"
	if params != nil {
		name = params.Algorithm().String()
	}
	start := time.Now()
	if err := c.index.Rebuild(ctx, c.source, params); err != nil {
		kept := "empty"
		if p := c.index.Params(); p != nil {
			kept = p.Algorithm().String()
		}
		log.Printf("superpixel: %s rebuild failed, keeping %s map: %v", name, kept, err)
		c.bus.Emit(app.EventSuperpixelsFailed, err)
		return
	}
	segments := countSegments(c.index.Labels())
	log.Printf("superpixel: %s built %d segments in %v", name, segments, time.Since(start).Round(time.Millisecond))
	c.bus.Emit(app.EventSuperpixelsRebuilt, app.RebuildInfo{Algorithm: name, Segments: segments})
}

func countSegments(labels []int32) int {
	seen := make(map[int32]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// Run drives the session until it stops or ctx is done. Posted events are
// handled between ticks; a tick runs at least once per frame interval.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.frameInterval)
	defer ticker.Stop()

	for {
		c.drain()
		if c.State() == Stopped {
			return nil
		}
		c.tick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.Dispatch(ev)
		case <-ticker.C:
		}
	}
}

func (c *Controller) drain() {
	for {
		select {
		case ev := <-c.events:
			c.Dispatch(ev)
		default:
			return
		}
	}
}
