package app

import (
	"sync"
	"time"
)

// Autosaver calls a save function at a fixed interval until stopped.
// The callback runs on a background goroutine; it should only hand the
// request to the goroutine that owns the label buffer.
type Autosaver struct {
	interval time.Duration
	save     func()

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewAutosaver returns an autosaver, or nil when interval is not positive.
func NewAutosaver(interval time.Duration, save func()) *Autosaver {
	if interval <= 0 || save == nil {
		return nil
	}
	return &Autosaver{interval: interval, save: save}
}

// Interval returns the save interval.
func (a *Autosaver) Interval() time.Duration {
	return a.interval
}

// Start begins the save loop in a background goroutine. Starting a running
// autosaver does nothing.
func (a *Autosaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopCh != nil {
		return
	}
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.loop(a.stopCh, a.doneCh)
}

// Stop ends the save loop and waits for it to exit.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (a *Autosaver) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.save()
		}
	}
}
