// Package settings holds the configuration shared between the palette and
// the render loop.
//
// The palette writes fields as the user changes controls; the render loop
// reads them once per tick. Every field has its own lock, held only for the
// duration of one read or write, so a reader never sees a partially written
// value and neither side waits on the other for longer than a copy.
package settings

import (
	"fmt"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"

	"pixel-labeler/internal/segment"
)

// PaintMode selects what a pointer press paints.
type PaintMode int

const (
	// Brush paints a disk around the pointer.
	Brush PaintMode = iota
	// Superpixel fills the superpixel under the pointer.
	Superpixel
)

func (m PaintMode) String() string {
	switch m {
	case Brush:
		return "brush"
	case Superpixel:
		return "superpixel"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParsePaintMode parses "brush" or "superpixel".
func ParsePaintMode(s string) (PaintMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brush":
		return Brush, nil
	case "superpixel", "superpixels":
		return Superpixel, nil
	}
	return Brush, fmt.Errorf("unknown paint mode %q", s)
}

const (
	MinBrushSize = 1
	MaxOpacity   = 9
)

// field is a value guarded by its own lock.
type field[T comparable] struct {
	mu sync.RWMutex
	v  T
}

func (f *field[T]) load() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v
}

// store sets the value and reports whether it changed.
func (f *field[T]) store(v T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.v == v {
		return false
	}
	f.v = v
	return true
}

// Shared is the configuration record read by the render loop.
type Shared struct {
	color     field[color.RGBA]
	brushSize field[int]
	mode      field[PaintMode]
	params    field[segment.Params]
	label     field[string]
	opacity   field[int]

	cursorDirty atomic.Bool
}

// NewShared returns a record in brush mode with the given label selected and
// default Felzenszwalb parameters. The cursor starts dirty so the first tick
// builds it.
func NewShared(label string, c color.RGBA, brushSize int) *Shared {
	s := &Shared{}
	s.label.v = label
	s.color.v = c
	s.brushSize.v = max(brushSize, MinBrushSize)
	s.params.v = segment.DefaultParams(segment.Felzenszwalb)
	s.opacity.v = MaxOpacity / 2
	s.cursorDirty.Store(true)
	return s
}

// Color returns the active label color.
func (s *Shared) Color() color.RGBA { return s.color.load() }

// SetColor changes the active color, marking the cursor dirty when it differs.
func (s *Shared) SetColor(c color.RGBA) {
	if s.color.store(c) {
		s.cursorDirty.Store(true)
	}
}

// Label returns the name of the selected label.
func (s *Shared) Label() string { return s.label.load() }

// SelectLabel records the selected label and its color.
func (s *Shared) SelectLabel(name string, c color.RGBA) {
	s.label.store(name)
	s.SetColor(c)
}

// BrushSize returns the brush radius in screen pixels.
func (s *Shared) BrushSize() int { return s.brushSize.load() }

// SetBrushSize changes the brush radius, clamped to at least MinBrushSize,
// marking the cursor dirty when it differs.
func (s *Shared) SetBrushSize(n int) {
	if s.brushSize.store(max(n, MinBrushSize)) {
		s.cursorDirty.Store(true)
	}
}

// Mode returns the paint mode.
func (s *Shared) Mode() PaintMode { return s.mode.load() }

// SetMode swaps the paint mode.
func (s *Shared) SetMode(m PaintMode) { s.mode.store(m) }

// Params returns the selected segmentation algorithm and its parameters.
func (s *Shared) Params() segment.Params { return s.params.load() }

// SetParams selects a segmentation algorithm and its parameters. Callers
// validate before calling.
func (s *Shared) SetParams(p segment.Params) { s.params.store(p) }

// Opacity returns the overlay opacity last published by the controller.
func (s *Shared) Opacity() int { return s.opacity.load() }

// SetOpacity publishes the overlay opacity, clamped to 0..MaxOpacity.
func (s *Shared) SetOpacity(v int) { s.opacity.store(min(max(v, 0), MaxOpacity)) }

// CursorDirty reports whether the cursor needs rebuilding without clearing it.
func (s *Shared) CursorDirty() bool { return s.cursorDirty.Load() }

// TakeCursorDirty reports whether the cursor needs rebuilding and clears the flag.
func (s *Shared) TakeCursorDirty() bool { return s.cursorDirty.Swap(false) }

// Record is a point-in-time copy of every field.
type Record struct {
	Color       color.RGBA
	BrushSize   int
	Mode        PaintMode
	Params      segment.Params
	Label       string
	Opacity     int
	CursorDirty bool
}

// Snapshot copies every field. Fields are read one at a time, so the copy is
// consistent per field, not across fields.
func (s *Shared) Snapshot() Record {
	return Record{
		Color:       s.Color(),
		BrushSize:   s.BrushSize(),
		Mode:        s.Mode(),
		Params:      s.Params(),
		Label:       s.Label(),
		Opacity:     s.Opacity(),
		CursorDirty: s.CursorDirty(),
	}
}

// Message is what the palette sends when any control changes. Zero-valued
// fields are left untouched.
type Message struct {
	Mode      *PaintMode
	BrushSize int
	Label     string
	Color     *color.RGBA
	Params    segment.Params
}

// Apply writes every field set in m.
func (s *Shared) Apply(m Message) {
	if m.Mode != nil {
		s.SetMode(*m.Mode)
	}
	if m.BrushSize > 0 {
		s.SetBrushSize(m.BrushSize)
	}
	if m.Color != nil {
		if m.Label != "" {
			s.SelectLabel(m.Label, *m.Color)
		} else {
			s.SetColor(*m.Color)
		}
	}
	if m.Params != nil {
		s.SetParams(m.Params)
	}
}
