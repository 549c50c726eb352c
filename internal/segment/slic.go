package segment

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

const slicIterations = 10

type slicCenter struct {
	l, a, b float64
	x, y    float64
}

// slic clusters pixels in combined Lab and image space starting from a
// regular grid of seeds, then enforces that every label is connected.
func slic(ctx context.Context, p Planes, prm SLICParams, workers int) ([]int32, error) {
	w, h := p.Dims()
	n := w * h
	lab := p.Smooth(prm.Sigma).Lab()
	L, A, B := lab[0].RawMatrix().Data, lab[1].RawMatrix().Data, lab[2].RawMatrix().Data

	step := math.Sqrt(float64(n) / float64(prm.NSegments))
	if step < 1 {
		step = 1
	}
	var centers []slicCenter
	for cy := step / 2; cy < float64(h); cy += step {
		for cx := step / 2; cx < float64(w); cx += step {
			i := int(cy)*w + int(cx)
			centers = append(centers, slicCenter{l: L[i], a: A[i], b: B[i], x: cx, y: cy})
		}
	}

	labels := make([]int32, n)
	dist := make([]float64, n)
	spatial := (prm.Compactness / step) * (prm.Compactness / step)
	win := int(math.Ceil(step))
	bands := bandsOf(h, workers)

	for iter := 0; iter < slicIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range dist {
			dist[i] = math.Inf(1)
			labels[i] = -1
		}

		g, _ := errgroup.WithContext(ctx)
		for _, band := range bands {
			g.Go(func() error {
				for k, c := range centers {
					y0 := max(int(c.y)-win, band[0])
					y1 := min(int(c.y)+win+1, band[1])
					x0 := max(int(c.x)-win, 0)
					x1 := min(int(c.x)+win+1, w)
					for y := y0; y < y1; y++ {
						dy := float64(y) - c.y
						for x := x0; x < x1; x++ {
							i := y*w + x
							dl, da, db := L[i]-c.l, A[i]-c.a, B[i]-c.b
							dx := float64(x) - c.x
							d := dl*dl + da*da + db*db + (dx*dx+dy*dy)*spatial
							if d < dist[i] {
								dist[i] = d
								labels[i] = int32(k)
							}
						}
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		sums := make([]slicCenter, len(centers))
		counts := make([]int, len(centers))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				k := labels[i]
				if k < 0 {
					continue
				}
				s := &sums[k]
				s.l += L[i]
				s.a += A[i]
				s.b += B[i]
				s.x += float64(x)
				s.y += float64(y)
				counts[k]++
			}
		}
		for k := range centers {
			if counts[k] == 0 {
				continue
			}
			c := float64(counts[k])
			centers[k] = slicCenter{l: sums[k].l / c, a: sums[k].a / c, b: sums[k].b / c, x: sums[k].x / c, y: sums[k].y / c}
		}
	}

	// pixels outside every window join their left or upper neighbour
	for i, k := range labels {
		if k >= 0 {
			continue
		}
		switch {
		case i%w > 0:
			labels[i] = labels[i-1]
		case i >= w:
			labels[i] = labels[i-w]
		default:
			labels[i] = 0
		}
	}

	minSize := n / max(len(centers), 1) / 4
	return enforceConnectivity(labels, w, h, minSize), nil
}

// enforceConnectivity relabels labels so that every label is one 4-connected
// component. Components of at most minSize pixels are absorbed by an
// adjacent, already relabeled component.
func enforceConnectivity(labels []int32, w, h, minSize int) []int32 {
	out := make([]int32, len(labels))
	for i := range out {
		out[i] = -1
	}
	var (
		next  int32
		queue []int
	)
	dx := [4]int{-1, 1, 0, 0}
	dy := [4]int{0, 0, -1, 1}

	for start := range labels {
		if out[start] >= 0 {
			continue
		}
		sx, sy := start%w, start/w
		adjacent := int32(-1)
		for d := 0; d < 4; d++ {
			nx, ny := sx+dx[d], sy+dy[d]
			if nx >= 0 && nx < w && ny >= 0 && ny < h && out[ny*w+nx] >= 0 {
				adjacent = out[ny*w+nx]
			}
		}

		queue = append(queue[:0], start)
		out[start] = next
		for q := 0; q < len(queue); q++ {
			i := queue[q]
			x, y := i%w, i/w
			for d := 0; d < 4; d++ {
				nx, ny := x+dx[d], y+dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if out[j] < 0 && labels[j] == labels[start] {
					out[j] = next
					queue = append(queue, j)
				}
			}
		}

		if len(queue) <= minSize && adjacent >= 0 {
			for _, i := range queue {
				out[i] = adjacent
			}
			continue
		}
		next++
	}
	return out
}

// bandsOf splits h rows into at most n contiguous half-open bands.
func bandsOf(h, n int) [][2]int {
	if n < 1 {
		n = 1
	}
	if n > h {
		n = h
	}
	bands := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		bands = append(bands, [2]int{i * h / n, (i + 1) * h / n})
	}
	return bands
}
