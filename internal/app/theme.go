package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Labeler-specific theme sizes. Other themes do not define them, so widgets
// read them through ThemeSize.
const (
	// SizeNameSwatch is the edge length of a label color swatch.
	SizeNameSwatch fyne.ThemeSizeName = "labelerSwatch"
	// SizeNameSwatchStroke is the outline width of a swatch.
	SizeNameSwatchStroke fyne.ThemeSizeName = "labelerSwatchStroke"
)

// LabelerTheme keeps the default look with compact palette rows and larger
// label swatches.
type LabelerTheme struct{}

var _ fyne.Theme = (*LabelerTheme)(nil)

func (t *LabelerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0xF9, G: 0xA8, B: 0x25, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xF9, G: 0xA8, B: 0x25, A: 0x50}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *LabelerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *LabelerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *LabelerTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case SizeNameSwatch:
		return 20
	case SizeNameSwatchStroke:
		return 1
	case theme.SizeNameInnerPadding:
		return 6
	default:
		return theme.DefaultTheme().Size(name)
	}
}

// ThemeSize returns a size from the current app theme, falling back to
// LabelerTheme when that theme does not define it.
func ThemeSize(name fyne.ThemeSizeName) float32 {
	if a := fyne.CurrentApp(); a != nil {
		if s := a.Settings().Theme().Size(name); s > 0 {
			return s
		}
	}
	return (&LabelerTheme{}).Size(name)
}
