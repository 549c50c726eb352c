// Package mainwindow provides the labeling window: the image canvas, a zoom
// toolbar, menus and a status bar fed by session events.
package mainwindow

import (
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"pixel-labeler/internal/app"
	"pixel-labeler/internal/labeler"
	"pixel-labeler/internal/version"
	"pixel-labeler/ui/canvas"
)

// keyNames maps typed keys to controller keys.
var keyNames = map[fyne.KeyName]string{
	fyne.KeyS:      labeler.KeySave,
	fyne.KeyEscape: labeler.KeyQuit,
	fyne.KeyPlus:   labeler.KeyZoomIn,
	fyne.KeyEqual:  labeler.KeyZoomIn,
	fyne.KeyMinus:  labeler.KeyZoomOut,
	fyne.KeyHome:   labeler.KeyResetView,
	fyne.Key0:      "0",
	fyne.Key1:      "1",
	fyne.Key2:      "2",
	fyne.Key3:      "3",
	fyne.Key4:      "4",
	fyne.Key5:      "5",
	fyne.Key6:      "6",
	fyne.Key7:      "7",
	fyne.Key8:      "8",
	fyne.Key9:      "9",
}

// MainWindow is the labeling window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	post      func(labeler.Event) bool
	canvas    *canvas.LabelCanvas
	statusBar *widget.Label

	// closeWindow closes without waiting for the session. Tests replace it.
	closeWindow func()
	quitting    atomic.Bool
	// forceClose is set when the save for a requested quit failed.
	forceClose atomic.Bool
}

// New creates the window around lc. Input is forwarded with post; session
// events from bus are shown in the status bar.
func New(fyneApp fyne.App, imagePath string, lc *canvas.LabelCanvas, bus *app.Bus, post func(labeler.Event) bool) *MainWindow {
	win := fyneApp.NewWindow("Pixel Labeler - " + filepath.Base(imagePath))

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		post:   post,
		canvas: lc,
	}
	mw.closeWindow = win.Close

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers(bus)

	win.Canvas().SetOnTypedKey(mw.onTypedKey)
	win.SetCloseIntercept(mw.requestQuit)
	win.Resize(fyne.NewSize(1024, 768))
	return mw
}

func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Ready")

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)
	mw.SetContent(content)
}

func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("1:1", mw.onResetView),
		widget.NewSeparator(),
		widget.NewButton("Save", mw.onSave),
	)
}

func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save Mask", mw.onSave),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save and Quit", mw.requestQuit),
	)
	// fyne appends its own Quit item to the first menu unless one is marked
	fileMenu.Items[2].IsQuit = true

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Actual Size", mw.onResetView),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("Keys", mw.onKeys),
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupEventHandlers mirrors session events in the status bar. Listeners run
// on the controller goroutine.
func (mw *MainWindow) setupEventHandlers(bus *app.Bus) {
	bus.On(app.EventSaved, func(data interface{}) {
		if info, ok := data.(app.SaveInfo); ok {
			mw.updateStatus(fmt.Sprintf("Saved %s (%s)", info.Path, humanize.Bytes(uint64(info.Bytes))))
		}
		mw.forceClose.Store(false)
	})
	bus.On(app.EventSaveFailed, func(data interface{}) {
		if mw.quitting.Load() {
			mw.forceClose.Store(true)
			mw.updateStatus(fmt.Sprintf("Save failed: %v. Close again to quit without saving", data))
			return
		}
		mw.updateStatus(fmt.Sprintf("Save failed: %v", data))
	})
	bus.On(app.EventOpacityChanged, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Overlay opacity %v", data))
	})
	bus.On(app.EventSuperpixelsRebuilt, func(data interface{}) {
		if info, ok := data.(app.RebuildInfo); ok {
			mw.updateStatus(fmt.Sprintf("Superpixels: %s, %s segments", info.Algorithm, humanize.Comma(int64(info.Segments))))
		}
	})
	bus.On(app.EventSuperpixelsFailed, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Superpixels failed: %v", data))
	})
	bus.On(app.EventSuperpixelsCleared, func(interface{}) {
		mw.updateStatus("Brush mode")
	})
	bus.On(app.EventStopped, func(interface{}) {
		mw.updateStatus("Stopped")
	})
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// Status returns the status bar text.
func (mw *MainWindow) Status() string {
	return mw.statusBar.Text
}

func (mw *MainWindow) sendKey(key string) {
	if !mw.post(labeler.Event{Kind: labeler.KeyPress, Key: key}) {
		mw.updateStatus("Busy, key " + key + " dropped")
	}
}

func (mw *MainWindow) onTypedKey(ev *fyne.KeyEvent) {
	if key, ok := keyNames[ev.Name]; ok {
		mw.sendKey(key)
	}
}

// requestQuit asks the session to save and stop. The window closes once the
// session reports it has stopped. If that save failed, the next request
// closes the window without saving.
func (mw *MainWindow) requestQuit() {
	if mw.forceClose.Load() {
		log.Printf("mainwindow: closing without a successful save")
		mw.closeWindow()
		return
	}
	mw.quitting.Store(true)
	mw.sendKey(labeler.KeyQuit)
}

func (mw *MainWindow) onSave()      { mw.sendKey(labeler.KeySave) }
func (mw *MainWindow) onZoomIn()    { mw.sendKey(labeler.KeyZoomIn) }
func (mw *MainWindow) onZoomOut()   { mw.sendKey(labeler.KeyZoomOut) }
func (mw *MainWindow) onResetView() { mw.sendKey(labeler.KeyResetView) }

func (mw *MainWindow) onKeys() {
	dialog.ShowInformation("Keys",
		"Left drag: paint\n"+
			"Right drag: pan\n"+
			"Scroll: zoom at pointer\n"+
			"+ / - / Home: zoom in, out, reset\n"+
			"0-9: overlay opacity\n"+
			"S: save mask\n"+
			"Escape: save and quit",
		mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Pixel Labeler",
		fmt.Sprintf("Pixel Labeler v%s\n\n"+
			"Paint per-pixel class labels over an image.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
