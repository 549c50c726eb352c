// Package palette provides the settings window: paint mode, brush size,
// label selection and superpixel algorithm parameters.
//
// The palette only writes the shared configuration; it never touches pixel
// data.
package palette

import (
	"fmt"
	"log"
	"strings"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"pixel-labeler/internal/app"
	"pixel-labeler/internal/labelmeta"
	"pixel-labeler/internal/segment"
	"pixel-labeler/internal/settings"
	"pixel-labeler/pkg/colorutil"
	"pixel-labeler/ui/prefs"
)

const (
	modeBrush      = "Brush"
	modeSuperpixel = "Superpixel"
)

var tabTitles = map[segment.Algorithm]string{
	segment.Felzenszwalb: "Felzenszwalb",
	segment.SLIC:         "SLIC",
	segment.Quickshift:   "Quickshift",
	segment.Watershed:    "Watershed",
}

// Palette is the configuration panel.
type Palette struct {
	shared *settings.Shared
	table  *labelmeta.Table
	prefs  *prefs.Prefs

	mode      *widget.RadioGroup
	size      *widget.Slider
	sizeLabel *widget.Label
	labels    *widget.List
	tabs      *container.AppTabs
	opacity   *widget.Label
	content   fyne.CanvasObject

	entries map[segment.Algorithm]map[string]*widget.Entry
	values  map[segment.Algorithm]map[string]float64
	active  segment.Algorithm
	label   string

	loading bool
}

// New builds the palette and pushes its initial state into shared. Choices
// remembered in p are restored; p may be nil.
func New(shared *settings.Shared, table *labelmeta.Table, p *prefs.Prefs, brushMin, brushMax int) *Palette {
	pl := &Palette{
		shared:  shared,
		table:   table,
		prefs:   p,
		entries: make(map[segment.Algorithm]map[string]*widget.Entry),
		values:  make(map[segment.Algorithm]map[string]float64),
	}
	pl.loading = true
	pl.build(brushMin, brushMax)
	pl.restore()
	pl.loading = false
	pl.commitAll()
	return pl
}

func (pl *Palette) build(brushMin, brushMax int) {
	pl.mode = widget.NewRadioGroup([]string{modeBrush, modeSuperpixel}, pl.onModeChanged)
	pl.mode.Horizontal = true
	pl.mode.Required = true

	pl.sizeLabel = widget.NewLabel("")
	pl.size = widget.NewSlider(float64(brushMin), float64(brushMax))
	pl.size.Step = 1
	pl.size.OnChanged = pl.onSizeChanged

	entries := pl.table.Entries()
	pl.labels = widget.NewList(
		func() int { return len(entries) },
		func() fyne.CanvasObject {
			swatch := fynecanvas.NewRectangle(colorutil.Black)
			edge := app.ThemeSize(app.SizeNameSwatch)
			swatch.SetMinSize(fyne.NewSize(edge, edge))
			swatch.StrokeWidth = app.ThemeSize(app.SizeNameSwatchStroke)
			swatch.StrokeColor = colorutil.White
			return container.NewHBox(swatch, widget.NewLabel(""))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			row := obj.(*fyne.Container)
			swatch := row.Objects[0].(*fynecanvas.Rectangle)
			swatch.FillColor = entries[id].Color
			swatch.StrokeColor = colorutil.Contrast(entries[id].Color)
			swatch.Refresh()
			row.Objects[1].(*widget.Label).SetText(fmt.Sprintf("%s  %s", entries[id].Name, colorutil.FormatRGBTuple(entries[id].Color)))
		},
	)
	pl.labels.OnSelected = pl.onLabelSelected

	var tabs []*container.TabItem
	for _, alg := range segment.Algorithms() {
		tabs = append(tabs, container.NewTabItem(tabTitles[alg], pl.buildForm(alg)))
	}
	pl.tabs = container.NewAppTabs(tabs...)
	pl.tabs.OnSelected = func(item *container.TabItem) {
		pl.onAlgorithmSelected(segment.Algorithm(pl.tabs.SelectedIndex()))
	}

	pl.opacity = widget.NewLabel("")
	pl.SetOpacity(pl.shared.Opacity())

	top := container.NewVBox(
		widget.NewLabelWithStyle("Paint mode", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		pl.mode,
		container.NewBorder(nil, nil, widget.NewLabel("Brush"), pl.sizeLabel, pl.size),
		pl.opacity,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Superpixels", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		pl.tabs,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Labels", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	pl.content = container.NewBorder(top, nil, nil, nil, pl.labels)
}

func (pl *Palette) buildForm(alg segment.Algorithm) fyne.CanvasObject {
	pl.entries[alg] = make(map[string]*widget.Entry)
	pl.values[alg] = make(map[string]float64)

	form := widget.NewForm()
	for _, spec := range alg.Specs() {
		e := widget.NewEntry()
		e.SetPlaceHolder(segment.FormatParam(spec, spec.Default))
		e.Validator = func(text string) error {
			if strings.TrimSpace(text) == "" {
				return nil
			}
			_, err := segment.ParseParam(alg, spec.Name, text)
			return err
		}
		e.OnChanged = func(text string) { pl.onParamChanged(alg, spec, text) }
		pl.entries[alg][spec.Name] = e
		pl.values[alg][spec.Name] = spec.Default
		form.Append(spec.Label, e)
	}
	return form
}

// restore applies remembered choices without sending them.
func (pl *Palette) restore() {
	mode := modeBrush
	size := pl.shared.BrushSize()
	label := pl.table.Default().Name
	alg := segment.Felzenszwalb

	if pl.prefs != nil {
		if m, err := settings.ParsePaintMode(pl.prefs.String(prefs.KeyPaintMode)); err == nil && m == settings.Superpixel {
			mode = modeSuperpixel
		}
		size = pl.prefs.Int(prefs.KeyBrushSize, size)
		if name := pl.prefs.String(prefs.KeyLabel); name != "" {
			if _, ok := pl.table.Lookup(name); ok {
				label = name
			}
		}
		if a, err := segment.ParseAlgorithm(pl.prefs.String(prefs.KeyAlgorithm)); err == nil {
			alg = a
		}
		for _, a := range segment.Algorithms() {
			saved := pl.prefs.Params(a.String())
			if len(saved) == 0 {
				continue
			}
			if _, err := segment.BuildParams(a, saved); err != nil {
				log.Printf("palette: ignoring saved %s parameters: %v", a, err)
				continue
			}
			for name, v := range saved {
				pl.values[a][name] = v
				spec, _ := a.Spec(name)
				pl.entries[a][name].SetText(segment.FormatParam(spec, v))
			}
		}
	}

	pl.mode.SetSelected(mode)
	pl.size.SetValue(float64(size))
	pl.sizeLabel.SetText(fmt.Sprintf("%d px", int(pl.size.Value)))
	pl.active = alg
	pl.tabs.SelectIndex(int(alg))
	for i, e := range pl.table.Entries() {
		if e.Name == label {
			pl.labels.Select(i)
		}
	}
}

// commitAll sends the complete current state.
func (pl *Palette) commitAll() {
	mode := settings.Brush
	if pl.mode.Selected == modeSuperpixel {
		mode = settings.Superpixel
	}
	msg := settings.Message{Mode: &mode, BrushSize: int(pl.size.Value)}
	if c, ok := pl.table.Lookup(pl.label); ok {
		msg.Label, msg.Color = pl.label, &c
	}
	if params, err := segment.BuildParams(pl.active, pl.values[pl.active]); err == nil {
		msg.Params = params
	}
	pl.shared.Apply(msg)
}

func (pl *Palette) onModeChanged(selected string) {
	if pl.loading {
		return
	}
	mode := settings.Brush
	if selected == modeSuperpixel {
		mode = settings.Superpixel
	}
	pl.shared.Apply(settings.Message{Mode: &mode})
	if pl.prefs != nil {
		pl.prefs.SetString(prefs.KeyPaintMode, mode.String())
	}
}

func (pl *Palette) onSizeChanged(v float64) {
	if pl.sizeLabel != nil {
		pl.sizeLabel.SetText(fmt.Sprintf("%d px", int(v)))
	}
	if pl.loading {
		return
	}
	pl.shared.Apply(settings.Message{BrushSize: int(v)})
	if pl.prefs != nil {
		pl.prefs.SetInt(prefs.KeyBrushSize, int(v))
	}
}

func (pl *Palette) onLabelSelected(id widget.ListItemID) {
	entries := pl.table.Entries()
	if id < 0 || id >= len(entries) {
		return
	}
	e := entries[id]
	pl.label = e.Name
	if pl.loading {
		return
	}
	pl.shared.Apply(settings.Message{Label: e.Name, Color: &e.Color})
	if pl.prefs != nil {
		pl.prefs.SetString(prefs.KeyLabel, e.Name)
	}
}

func (pl *Palette) onAlgorithmSelected(alg segment.Algorithm) {
	if pl.loading {
		return
	}
	pl.active = alg
	if pl.prefs != nil {
		pl.prefs.SetString(prefs.KeyAlgorithm, alg.String())
	}
	pl.sendParams(alg)
}

// onParamChanged applies a valid entry, substitutes the default for a blank
// one and drops an invalid one.
func (pl *Palette) onParamChanged(alg segment.Algorithm, spec segment.ParamSpec, text string) {
	if strings.TrimSpace(text) == "" {
		pl.values[alg][spec.Name] = spec.Default
	} else {
		v, err := segment.ParseParam(alg, spec.Name, text)
		if err != nil {
			return
		}
		pl.values[alg][spec.Name] = v
	}
	if pl.loading {
		return
	}
	if pl.prefs != nil {
		pl.prefs.SetParams(alg.String(), pl.values[alg])
	}
	if alg == pl.active {
		pl.sendParams(alg)
	}
}

func (pl *Palette) sendParams(alg segment.Algorithm) {
	params, err := segment.BuildParams(alg, pl.values[alg])
	if err != nil {
		log.Printf("palette: %v", err)
		return
	}
	pl.shared.Apply(settings.Message{Params: params})
}

// SetOpacity shows the overlay opacity published by the labeler.
func (pl *Palette) SetOpacity(v int) {
	pl.opacity.SetText(fmt.Sprintf("Overlay opacity: %d (keys 0-9)", v))
}

// Content returns the palette widgets.
func (pl *Palette) Content() fyne.CanvasObject {
	return pl.content
}

// Show opens the palette in its own window.
func (pl *Palette) Show(a fyne.App) fyne.Window {
	w := a.NewWindow("Palette")
	w.SetContent(pl.Content())
	w.Resize(fyne.NewSize(360, 640))
	w.Show()
	return w
}

// SavePrefs writes remembered choices if any changed.
func (pl *Palette) SavePrefs() {
	if pl.prefs == nil || !pl.prefs.Changed() {
		return
	}
	if err := pl.prefs.Save(); err != nil {
		log.Printf("palette: failed to save preferences: %v", err)
	}
}
