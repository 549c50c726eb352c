package labels

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	pximage "pixel-labeler/internal/image"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// PersistenceError reports a mask that could not be read or written.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("labels: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Format is a mask file encoding chosen from the file extension.
type Format int

const (
	FormatPNG Format = iota
	FormatWebP
	FormatTIFF
	FormatBMP
	FormatTGA
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	case FormatTIFF:
		return "tiff"
	case FormatBMP:
		return "bmp"
	case FormatTGA:
		return "tga"
	default:
		return "unknown"
	}
}

// FormatFor returns the encoding for path. Unknown extensions are an error so
// a typo never silently produces a lossy or unreadable mask.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWebP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tga":
		return FormatTGA, nil
	default:
		return 0, fmt.Errorf("unsupported mask extension %q", filepath.Ext(path))
	}
}

// Encode writes img to w in format f. Every supported format is lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTGA:
		return tga.Encode(w, img)
	default:
		return fmt.Errorf("unknown format %d", f)
	}
}

// Load reads a mask file verbatim.
func Load(path string) (*Buffer, error) {
	img, err := pximage.Decode(path)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	return FromImage(img), nil
}

// Save writes b to path atomically: the data goes to a temporary file in the
// same directory which is synced and then renamed over path. It returns the
// number of bytes written.
func Save(path string, b *Buffer) (int64, error) {
	format, err := FormatFor(path)
	if err != nil {
		return 0, &PersistenceError{Op: "save", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return 0, &PersistenceError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	cw := &countingWriter{w: tmp}
	bw := bufio.NewWriter(cw)
	if err := Encode(bw, b, format); err != nil {
		return 0, &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("encode %s: %w", format, err)}
	}
	if err := bw.Flush(); err != nil {
		return 0, &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return 0, &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		committed = true
		return 0, &PersistenceError{Op: "save", Path: path, Err: err}
	}
	committed = true
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
