// Command segtest runs one superpixel algorithm on an image and writes the
// image with segment boundaries marked.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	pximage "pixel-labeler/internal/image"
	"pixel-labeler/internal/labels"
	"pixel-labeler/internal/segment"
	"pixel-labeler/pkg/colorutil"
)

// paramList collects repeated -param name=value flags.
type paramList map[string]float64

func (p paramList) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, fmt.Sprintf("%s=%g", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (p paramList) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", name, err)
	}
	p[strings.TrimSpace(name)] = v
	return nil
}

func main() {
	imagePath := flag.String("image", "", "Path to the input image")
	algorithm := flag.String("algorithm", "felzenszwalb", "Algorithm: felzenszwalb, slic, quickshift or watershed")
	outPath := flag.String("out", "segments.png", "Path of the boundary preview (png, webp, tif, bmp, tga)")
	workers := flag.Int("workers", 0, "Parallel workers (default: GOMAXPROCS)")
	alpha := flag.Float64("alpha", 1, "Boundary opacity in the preview, 0-1")
	params := paramList{}
	flag.Var(params, "param", "Algorithm parameter as name=value (repeatable)")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: segtest -image <path> [-algorithm slic] [-out preview.png] [-param name=value ...]")
		os.Exit(1)
	}

	format, err := labels.FormatFor(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad output path: %v\n", err)
		os.Exit(1)
	}

	layer, err := pximage.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %s: %dx%d pixels\n", *imagePath, layer.Width(), layer.Height())

	if alg, err := segment.ParseAlgorithm(*algorithm); err == nil {
		fmt.Printf("\n%s parameters:\n", alg)
		for _, spec := range alg.Specs() {
			v, ok := params[spec.Name]
			if !ok {
				v = spec.Default
			}
			fmt.Printf("  %-12s %s\n", spec.Name, segment.FormatParam(spec, v))
		}
	}

	seg := segment.NewSegmenter()
	seg.Workers = *workers

	start := time.Now()
	result, err := segment.SegmentByName(context.Background(), seg, layer.Image, *algorithm, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Segmentation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n%s segments in %v\n", humanize.Comma(int64(result.Count)), time.Since(start).Round(time.Millisecond))

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	preview := segment.MarkBoundaries(layer.Image, result, colorutil.Yellow, *alpha)
	if err := labels.Encode(out, preview, format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write preview: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *outPath)
}
