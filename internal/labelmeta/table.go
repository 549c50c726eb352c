// Package labelmeta loads the label metadata table: the ordered list of label
// names and their RGB colors that make up the painting palette.
package labelmeta

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"pixel-labeler/pkg/colorutil"
)

// ErrEmpty is returned for a table without any label rows.
var ErrEmpty = errors.New("labelmeta: table has no labels")

// Entry is one row of the table.
type Entry struct {
	Name  string
	Color color.RGBA
}

// Table is the read-only label palette. Row 0 is the default label.
type Table struct {
	entries []Entry
	byName  map[string]int
}

// Load reads a metadata table from a CSV file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("labelmeta: open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("labelmeta: %s: %w", path, err)
	}
	return t, nil
}

// Parse reads CSV with a header row containing at least the columns "label"
// and "rgb". Extra columns are ignored. The rgb column holds a textual
// 3-tuple such as "(255, 0, 0)".
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	labelCol, rgbCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "label":
			labelCol = i
		case "rgb":
			rgbCol = i
		}
	}
	if labelCol < 0 || rgbCol < 0 {
		return nil, fmt.Errorf("header %v: need columns \"label\" and \"rgb\"", header)
	}

	t := &Table{byName: make(map[string]int)}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= labelCol || len(rec) <= rgbCol {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, max(labelCol, rgbCol)+1, len(rec))
		}

		name := strings.TrimSpace(rec[labelCol])
		if name == "" {
			return nil, fmt.Errorf("line %d: empty label name", line)
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("line %d: duplicate label %q", line, name)
		}
		c, err := colorutil.ParseRGBTuple(rec[rgbCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		t.byName[name] = len(t.entries)
		t.entries = append(t.entries, Entry{Name: name, Color: c})
	}

	if len(t.entries) == 0 {
		return nil, ErrEmpty
	}
	return t, nil
}

// New builds a table from entries, mostly for tests and tools.
func New(entries ...Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	t := &Table{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		if _, dup := t.byName[e.Name]; dup {
			return nil, fmt.Errorf("labelmeta: duplicate label %q", e.Name)
		}
		e.Color.A = 255
		t.byName[e.Name] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Len returns the number of labels.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the rows in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Names returns the label names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Default returns row 0.
func (t *Table) Default() Entry {
	return t.entries[0]
}

// Lookup resolves a label name to its color.
func (t *Table) Lookup(name string) (color.RGBA, bool) {
	i, ok := t.byName[name]
	if !ok {
		return color.RGBA{}, false
	}
	return t.entries[i].Color, true
}

// Contains reports whether c is one of the palette colors.
func (t *Table) Contains(c color.RGBA) bool {
	for _, e := range t.entries {
		if e.Color.R == c.R && e.Color.G == c.G && e.Color.B == c.B {
			return true
		}
	}
	return false
}
