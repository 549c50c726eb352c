package mainwindow

import (
	"errors"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixel-labeler/internal/app"
	"pixel-labeler/internal/labeler"
	"pixel-labeler/ui/canvas"
)

type recorder struct {
	events []labeler.Event
	full   bool
}

func (r *recorder) post(ev labeler.Event) bool {
	if r.full {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) keys() []string {
	var out []string
	for _, ev := range r.events {
		if ev.Kind == labeler.KeyPress {
			out = append(out, ev.Key)
		}
	}
	return out
}

func newWindow(t *testing.T) (*MainWindow, *recorder, *app.Bus) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	r := &recorder{}
	bus := app.NewBus()
	mw := New(a, "/data/scene.png", canvas.NewLabelCanvas(r.post), bus, r.post)
	return mw, r, bus
}

func TestTitle(t *testing.T) {
	mw, _, _ := newWindow(t)
	assert.Equal(t, "Pixel Labeler - scene.png", mw.Title())
}

func TestTypedKeysArePosted(t *testing.T) {
	mw, r, _ := newWindow(t)
	typed := mw.Canvas().OnTypedKey()
	require.NotNil(t, typed)

	for _, name := range []fyne.KeyName{fyne.KeyS, fyne.Key7, fyne.KeyEqual, fyne.KeyMinus, fyne.KeyHome, fyne.KeyA, fyne.KeyEscape} {
		typed(&fyne.KeyEvent{Name: name})
	}
	assert.Equal(t, []string{"S", "7", "+", "-", "Home", "Escape"}, r.keys())
}

func TestMenusPostKeys(t *testing.T) {
	mw, r, _ := newWindow(t)
	menu := mw.MainMenu()
	require.Len(t, menu.Items, 3)

	menu.Items[0].Items[0].Action()
	menu.Items[1].Items[0].Action()
	menu.Items[1].Items[2].Action()
	menu.Items[0].Items[2].Action()
	assert.Equal(t, []string{labeler.KeySave, labeler.KeyZoomIn, labeler.KeyResetView, labeler.KeyQuit}, r.keys())
}

func TestCloseRequestsQuit(t *testing.T) {
	mw, r, _ := newWindow(t)
	mw.requestQuit()
	assert.Equal(t, []string{labeler.KeyQuit}, r.keys())
}

func TestCloseAfterFailedQuitSave(t *testing.T) {
	mw, r, bus := newWindow(t)
	closed := 0
	mw.closeWindow = func() { closed++ }

	// a failed manual save does not unlock closing
	bus.Emit(app.EventSaveFailed, errors.New("read-only"))
	mw.requestQuit()
	assert.Zero(t, closed)

	bus.Emit(app.EventSaveFailed, errors.New("read-only"))
	assert.Contains(t, mw.Status(), "Close again")
	mw.requestQuit()
	assert.Equal(t, 1, closed)
	assert.Equal(t, []string{labeler.KeyQuit}, r.keys())
}

func TestSuccessfulSaveRestoresQuit(t *testing.T) {
	mw, r, bus := newWindow(t)
	closed := 0
	mw.closeWindow = func() { closed++ }

	mw.requestQuit()
	bus.Emit(app.EventSaveFailed, errors.New("read-only"))
	bus.Emit(app.EventSaved, app.SaveInfo{Path: "out.png", Bytes: 1})
	mw.requestQuit()
	assert.Zero(t, closed)
	assert.Equal(t, []string{labeler.KeyQuit, labeler.KeyQuit}, r.keys())
}

func TestDroppedKeyIsReported(t *testing.T) {
	mw, r, _ := newWindow(t)
	r.full = true
	mw.onSave()
	assert.Contains(t, mw.Status(), "dropped")
}

func TestStatusFollowsSessionEvents(t *testing.T) {
	mw, _, bus := newWindow(t)

	bus.Emit(app.EventSaved, app.SaveInfo{Path: "out.png", Bytes: 2048})
	assert.Equal(t, "Saved out.png (2.0 kB)", mw.Status())

	bus.Emit(app.EventSaveFailed, errors.New("disk full"))
	assert.Equal(t, "Save failed: disk full", mw.Status())

	bus.Emit(app.EventOpacityChanged, 3)
	assert.Equal(t, "Overlay opacity 3", mw.Status())

	bus.Emit(app.EventSuperpixelsRebuilt, app.RebuildInfo{Algorithm: "slic", Segments: 1234})
	assert.Equal(t, "Superpixels: slic, 1,234 segments", mw.Status())

	bus.Emit(app.EventSuperpixelsCleared, nil)
	assert.Equal(t, "Brush mode", mw.Status())

	bus.Emit(app.EventStopped, nil)
	assert.Equal(t, "Stopped", mw.Status())
}
