package labeler

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixel-labeler/internal/app"
	"pixel-labeler/internal/labelmeta"
	"pixel-labeler/internal/labels"
	"pixel-labeler/internal/segment"
	"pixel-labeler/internal/settings"
)

var (
	bg = color.RGBA{A: 255}
	fg = color.RGBA{R: 255, A: 255}
)

type recordingSurface struct {
	frames  []Frame
	cursors []*image.NRGBA
}

func (s *recordingSurface) Present(f Frame)              { s.frames = append(s.frames, f) }
func (s *recordingSurface) SetCursor(cursor *image.NRGBA) { s.cursors = append(s.cursors, cursor) }

// fakeProvider splits the image into a left and a right region at column 3.
type fakeProvider struct {
	calls int
	err   error
}

func (p *fakeProvider) Segment(_ context.Context, img image.Image, params segment.Params) (*segment.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ids := make([]int32, w*h)
	for i := range ids {
		if i%w >= 3 {
			ids[i] = 1
		}
	}
	return &segment.Result{Labels: ids, Width: w, Height: h, Count: 2, Preview: image.NewNRGBA(image.Rect(0, 0, w, h))}, nil
}

type session struct {
	ctrl     *Controller
	shared   *settings.Shared
	surface  *recordingSurface
	provider *fakeProvider
	bus      *app.Bus
	output   string
}

func newSession(t *testing.T) *session {
	t.Helper()
	table, err := labelmeta.New(labelmeta.Entry{Name: "bg", Color: bg}, labelmeta.Entry{Name: "fg", Color: fg})
	require.NoError(t, err)

	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	buf, err := InitialBuffer(10, 10, table, "")
	require.NoError(t, err)

	s := &session{
		shared:   settings.NewShared("bg", bg, 2),
		surface:  &recordingSurface{},
		provider: &fakeProvider{},
		bus:      app.NewBus(),
		output:   filepath.Join(t.TempDir(), "mask.png"),
	}
	s.ctrl, err = New(src, buf, s.shared, s.surface, Options{
		OutputPath: s.output,
		Opacity:    5,
		Provider:   s.provider,
		Bus:        s.bus,
	})
	require.NoError(t, err)
	return s
}

// at converts an image pixel centre to a device event position.
func (s *session) at(kind EventKind, col, row int) Event {
	x, y := s.ctrl.View().ImageToScreen(float64(col)+0.5, float64(row)+0.5)
	return Event{Kind: kind, X: x, Y: y}
}

func key(k string) Event { return Event{Kind: KeyPress, Key: k} }

func TestBrushStrokeAndSave(t *testing.T) {
	s := newSession(t)
	buf := s.ctrl.Buffer()
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			require.Equal(t, bg, buf.RGBAAt(x, y))
		}
	}

	s.shared.SetColor(fg)
	s.ctrl.Dispatch(s.at(PointerDown, 5, 5))

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want := bg
			if (x-5)*(x-5)+(y-5)*(y-5) <= 4 {
				want = fg
			}
			assert.Equal(t, want, buf.RGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}

	var saved []interface{}
	s.bus.On(app.EventSaved, func(data interface{}) { saved = append(saved, data) })
	s.ctrl.Dispatch(key("S"))
	assert.Equal(t, Running, s.ctrl.State())

	loaded, err := labels.Load(s.output)
	require.NoError(t, err)
	assert.True(t, buf.Equal(loaded))
	require.Len(t, saved, 1)
	assert.Equal(t, s.output, saved[0].(app.SaveInfo).Path)
}

func TestDragPaintsLikeDown(t *testing.T) {
	s := newSession(t)
	s.shared.SetColor(fg)
	s.ctrl.Dispatch(s.at(PointerDrag, 0, 0))
	assert.Equal(t, fg, s.ctrl.Buffer().RGBAAt(0, 0))
	assert.Equal(t, fg, s.ctrl.Buffer().RGBAAt(2, 0))
	assert.Equal(t, bg, s.ctrl.Buffer().RGBAAt(3, 0))
}

func TestPointerOutsideImageIsIgnored(t *testing.T) {
	s := newSession(t)
	s.shared.SetColor(fg)
	before := s.ctrl.Buffer().Snapshot()

	s.ctrl.Dispatch(Event{Kind: PointerDown, X: -3, Y: 4})
	s.ctrl.Dispatch(Event{Kind: PointerDrag, X: 4, Y: 10.5})
	assert.True(t, before.Equal(s.ctrl.Buffer()))

	assert.ErrorIs(t, s.ctrl.paintAt(50, 50), ErrOutOfBounds)
}

func TestBrushRadiusFollowsZoom(t *testing.T) {
	assert.Equal(t, 5, brushRadius(5, 1))
	assert.Equal(t, 3, brushRadius(5, 2))
	assert.Equal(t, 1, brushRadius(1, 5))
	assert.Equal(t, 20, brushRadius(10, 0.5))
}

func TestSuperpixelModeRebuildsOnceAndClears(t *testing.T) {
	s := newSession(t)
	var rebuilt, cleared int
	s.bus.On(app.EventSuperpixelsRebuilt, func(interface{}) { rebuilt++ })
	s.bus.On(app.EventSuperpixelsCleared, func(interface{}) { cleared++ })

	s.ctrl.Tick()
	assert.Zero(t, s.provider.calls)

	s.shared.SetMode(settings.Superpixel)
	s.shared.SetParams(segment.DefaultParams(segment.Felzenszwalb))
	s.ctrl.Tick()
	s.ctrl.Tick()
	s.ctrl.Tick()
	assert.Equal(t, 1, s.provider.calls)
	assert.Equal(t, 1, rebuilt)
	assert.True(t, s.ctrl.Superpixels().Active())

	// fill the right region
	s.shared.SetColor(fg)
	s.ctrl.Dispatch(s.at(PointerDown, 7, 2))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want := bg
			if x >= 3 {
				want = fg
			}
			assert.Equal(t, want, s.ctrl.Buffer().RGBAAt(x, y))
		}
	}

	s.shared.SetMode(settings.Brush)
	s.ctrl.Tick()
	assert.Equal(t, 1, cleared)
	assert.False(t, s.ctrl.Superpixels().Active())
	for _, l := range s.ctrl.Superpixels().Labels() {
		assert.Zero(t, l)
	}
	assert.Equal(t, 1, s.provider.calls)
}

func TestParamChangeRebuildsAndFailureKeepsMap(t *testing.T) {
	s := newSession(t)
	var failures []interface{}
	s.bus.On(app.EventSuperpixelsFailed, func(data interface{}) { failures = append(failures, data) })

	s.shared.SetMode(settings.Superpixel)
	s.ctrl.Tick()
	require.Equal(t, 1, s.provider.calls)

	s.shared.SetParams(segment.SLICParams{NSegments: 10, Compactness: 5, Sigma: 0})
	s.ctrl.Tick()
	assert.Equal(t, 2, s.provider.calls)

	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	s.provider.err = errors.New("segmentation exploded")
	s.shared.SetParams(segment.DefaultParams(segment.Quickshift))
	s.ctrl.Tick()
	s.ctrl.Tick()
	assert.Contains(t, logged.String(), "quickshift rebuild failed, keeping slic map")
	assert.Equal(t, 3, s.provider.calls, "a failed configuration is not retried")
	require.Len(t, failures, 1)
	assert.True(t, s.ctrl.Superpixels().Active())
	assert.Equal(t, segment.SLICParams{NSegments: 10, Compactness: 5, Sigma: 0}, s.ctrl.Superpixels().Params())
}

func TestCursorRefreshOnlyWhenDirty(t *testing.T) {
	s := newSession(t)
	s.ctrl.Tick()
	require.Len(t, s.surface.cursors, 1)
	assert.Equal(t, 5, s.surface.cursors[0].Bounds().Dx())

	s.ctrl.Tick()
	assert.Len(t, s.surface.cursors, 1)

	s.shared.SetBrushSize(4)
	s.ctrl.Tick()
	require.Len(t, s.surface.cursors, 2)
	assert.Equal(t, 9, s.surface.cursors[1].Bounds().Dx())
}

func TestPresentOnlyOnChange(t *testing.T) {
	s := newSession(t)
	s.ctrl.Tick()
	require.Len(t, s.surface.frames, 1)
	require.Len(t, s.surface.frames[0].Layers, 3)

	s.ctrl.Tick()
	assert.Len(t, s.surface.frames, 1)

	s.ctrl.Dispatch(s.at(PointerDown, 1, 1))
	s.ctrl.Tick()
	assert.Len(t, s.surface.frames, 2)

	s.ctrl.Dispatch(Event{Kind: Scroll, X: 5, Y: 5, DY: 1})
	s.ctrl.Tick()
	require.Len(t, s.surface.frames, 3)
	assert.InDelta(t, 1.2, s.surface.frames[2].View.ZoomLevel, 1e-9)

	s.ctrl.Dispatch(Event{Kind: Pan, DX: 2, DY: 0})
	s.ctrl.Tick()
	assert.Len(t, s.surface.frames, 4)
}

func TestOpacityKeys(t *testing.T) {
	s := newSession(t)
	var got []interface{}
	s.bus.On(app.EventOpacityChanged, func(data interface{}) { got = append(got, data) })

	s.ctrl.Dispatch(key("7"))
	assert.Equal(t, 7, s.ctrl.Opacity())
	assert.Equal(t, 7, s.shared.Opacity())

	s.ctrl.Dispatch(key("0"))
	assert.Equal(t, 0, s.ctrl.Opacity())
	s.ctrl.Dispatch(key("0"))
	s.ctrl.Dispatch(key("x"))
	assert.Equal(t, []interface{}{7, 0}, got)

	s.ctrl.Tick()
	layers := s.surface.frames[len(s.surface.frames)-1].Layers
	assert.Equal(t, uint8(0), layers[1].Image.(*image.NRGBA).NRGBAAt(0, 0).A)
}

func TestViewKeys(t *testing.T) {
	s := newSession(t)

	s.ctrl.Dispatch(key(KeyZoomIn))
	assert.Greater(t, s.ctrl.View().ZoomLevel, 1.0)

	s.ctrl.Dispatch(key(KeyResetView))
	assert.Equal(t, 1.0, s.ctrl.View().ZoomLevel)

	s.ctrl.Dispatch(key(KeyZoomOut))
	assert.Less(t, s.ctrl.View().ZoomLevel, 1.0)
}

func TestQuitSavesAndStops(t *testing.T) {
	s := newSession(t)
	var stopped bool
	s.bus.On(app.EventStopped, func(interface{}) { stopped = true })

	s.ctrl.Dispatch(key(KeyQuit))
	assert.Equal(t, Stopped, s.ctrl.State())
	assert.True(t, stopped)
	_, err := os.Stat(s.output)
	assert.NoError(t, err)

	// further events are ignored
	s.shared.SetColor(fg)
	s.ctrl.Dispatch(s.at(PointerDown, 5, 5))
	assert.Equal(t, bg, s.ctrl.Buffer().RGBAAt(5, 5))
}

func TestQuitWithFailedSaveKeepsRunning(t *testing.T) {
	s := newSession(t)
	s.ctrl.output = filepath.Join(t.TempDir(), "missing", "mask.png")
	var failed []interface{}
	s.bus.On(app.EventSaveFailed, func(data interface{}) { failed = append(failed, data) })

	err := s.ctrl.Quit()
	require.Error(t, err)
	var pe *labels.PersistenceError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, Running, s.ctrl.State())
	assert.Len(t, failed, 1)
}

func TestRunHandlesPostedEvents(t *testing.T) {
	s := newSession(t)
	s.shared.SetColor(fg)
	require.True(t, s.ctrl.Post(s.at(PointerDown, 2, 2)))
	require.True(t, s.ctrl.Post(key(KeyQuit)))

	done := make(chan error, 1)
	go func() { done <- s.ctrl.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}
	loaded, err := labels.Load(s.output)
	require.NoError(t, err)
	assert.Equal(t, fg, loaded.RGBAAt(2, 2))
}

func TestRunStopsWithContext(t *testing.T) {
	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ctrl.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}
	assert.Equal(t, Running, s.ctrl.State())
}

func TestInitialBufferFromPriorMask(t *testing.T) {
	table, err := labelmeta.New(labelmeta.Entry{Name: "bg", Color: bg}, labelmeta.Entry{Name: "fg", Color: fg})
	require.NoError(t, err)

	prior := labels.New(4, 3, fg)
	prior.PaintDisk(0, 0, 0, color.RGBA{G: 9, A: 255})
	path := filepath.Join(t.TempDir(), "prior.png")
	_, err = labels.Save(path, prior)
	require.NoError(t, err)

	b, err := InitialBuffer(4, 3, table, path)
	require.NoError(t, err)
	assert.True(t, prior.Equal(b), "prior mask is loaded verbatim")

	_, err = InitialBuffer(5, 3, table, path)
	assert.Error(t, err)

	_, err = InitialBuffer(4, 3, table, filepath.Join(t.TempDir(), "none.png"))
	assert.Error(t, err)
}

func TestNewRejectsMismatchedBuffer(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	_, err := New(src, labels.New(9, 10, bg), settings.NewShared("bg", bg, 2), &recordingSurface{}, Options{OutputPath: "x.png"})
	assert.Error(t, err)
}
