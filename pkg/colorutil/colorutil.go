// Package colorutil provides shared color utilities for the labeler.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Common overlay colors used throughout the application.
var (
	Black       = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow      = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Transparent = color.RGBA{}
)

// ParseRGBTuple parses a textual 3-tuple such as "(255, 0, 0)" or "255,0,0".
// Square brackets are accepted as well. Each component must be an integer in 0-255.
func ParseRGBTuple(s string) (color.RGBA, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "(")
	t = strings.TrimSuffix(t, ")")
	t = strings.TrimPrefix(t, "[")
	t = strings.TrimSuffix(t, "]")

	parts := strings.Split(t, ",")
	if len(parts) == 4 && strings.TrimSpace(parts[3]) == "" {
		// tolerate a trailing comma
		parts = parts[:3]
	}
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("rgb %q: want 3 components, got %d", s, len(parts))
	}

	var c [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return color.RGBA{}, fmt.Errorf("rgb %q: component %d: %w", s, i, err)
		}
		if v < 0 || v > 255 {
			return color.RGBA{}, fmt.Errorf("rgb %q: component %d out of range: %d", s, i, v)
		}
		c[i] = uint8(v)
	}
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}, nil
}

// FormatRGBTuple is the inverse of ParseRGBTuple.
func FormatRGBTuple(c color.RGBA) string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Luminance returns the relative luminance of c in [0, 1] (Rec. 709 weights).
func Luminance(c color.RGBA) float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255.0
}

// Contrast returns black for light colors and white for dark ones.
func Contrast(c color.RGBA) color.RGBA {
	if Luminance(c) > 0.5 {
		return Black
	}
	return White
}

// Observer = 2°, Illuminant = D65
const (
	refX = 95.047
	refY = 100.000
	refZ = 108.883
)

// RGBToLab converts sRGB components in [0, 1] to CIE L*a*b*.
func RGBToLab(r, g, b float64) (l, a, bb float64) {
	r = linearize(r)
	g = linearize(g)
	b = linearize(b)

	x := (r*0.4124 + g*0.3576 + b*0.1805) * 100 / refX
	y := (r*0.2126 + g*0.7152 + b*0.0722) * 100 / refY
	z := (r*0.0193 + g*0.1192 + b*0.9505) * 100 / refZ

	x, y, z = labF(x), labF(y), labF(z)

	return 116*y - 16, 500 * (x - y), 200 * (y - z)
}

func linearize(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

func labF(t float64) float64 {
	if t > 0.008856 {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116.0
}
