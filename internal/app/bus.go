// Package app provides session lifecycle pieces shared by the labeler and
// the windows: the event bus, autosave and the theme.
package app

import (
	"sync"
)

// EventType identifies different session events.
type EventType int

const (
	// EventSaved carries a SaveInfo after the mask was written.
	EventSaved EventType = iota
	// EventSaveFailed carries the error of a failed save.
	EventSaveFailed
	// EventOpacityChanged carries the new overlay opacity (int).
	EventOpacityChanged
	// EventSuperpixelsRebuilt carries a RebuildInfo.
	EventSuperpixelsRebuilt
	// EventSuperpixelsFailed carries the error of a failed rebuild.
	EventSuperpixelsFailed
	// EventSuperpixelsCleared carries nil.
	EventSuperpixelsCleared
	// EventStopped carries nil once the session has stopped.
	EventStopped
)

func (e EventType) String() string {
	switch e {
	case EventSaved:
		return "saved"
	case EventSaveFailed:
		return "save-failed"
	case EventOpacityChanged:
		return "opacity-changed"
	case EventSuperpixelsRebuilt:
		return "superpixels-rebuilt"
	case EventSuperpixelsFailed:
		return "superpixels-failed"
	case EventSuperpixelsCleared:
		return "superpixels-cleared"
	case EventStopped:
		return "stopped"
	}
	return "unknown"
}

// SaveInfo describes a completed save.
type SaveInfo struct {
	Path  string
	Bytes int64
}

// RebuildInfo describes a completed superpixel rebuild.
type RebuildInfo struct {
	Algorithm string
	Segments  int
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Bus delivers session events to registered listeners. Listeners run on the
// goroutine that emits.
type Bus struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventType][]EventListener)}
}

// On registers an event listener for the specified event type.
func (b *Bus) On(event EventType, listener EventListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type. A nil bus
// drops the event.
func (b *Bus) Emit(event EventType, data interface{}) {
	if b == nil {
		return
	}
	b.mu.RLock()
	listeners := b.listeners[event]
	b.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
