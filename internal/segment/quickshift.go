package segment

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// quickshift links every pixel to its nearest neighbour of higher density in
// the joint (ratio * Lab, row, col) space. Links longer than MaxDist are cut
// and each resulting tree becomes a segment.
func quickshift(ctx context.Context, p Planes, prm QuickshiftParams, workers int) ([]int32, error) {
	w, h := p.Dims()
	n := w * h
	lab := p.Lab().Scale(prm.Ratio)
	L, A, B := lab[0].RawMatrix().Data, lab[1].RawMatrix().Data, lab[2].RawMatrix().Data

	sq := func(i, j, dr, dc int) float64 {
		dl, da, db := L[i]-L[j], A[i]-A[j], B[i]-B[j]
		return dl*dl + da*da + db*db + float64(dr*dr+dc*dc)
	}

	win := int(math.Ceil(3 * prm.KernelSize))
	inv := 1 / (2 * prm.KernelSize * prm.KernelSize)
	density := make([]float64, n)
	bands := bandsOf(h, workers)

	g, gctx := errgroup.WithContext(ctx)
	for _, band := range bands {
		g.Go(func() error {
			for y := band[0]; y < band[1]; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for x := 0; x < w; x++ {
					i := y*w + x
					var d float64
					for yy := max(y-win, 0); yy < min(y+win+1, h); yy++ {
						for xx := max(x-win, 0); xx < min(x+win+1, w); xx++ {
							d += math.Exp(-sq(i, yy*w+xx, yy-y, xx-x) * inv)
						}
					}
					density[i] = d
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parent := make([]int32, n)
	g, gctx = errgroup.WithContext(ctx)
	for _, band := range bands {
		g.Go(func() error {
			for y := band[0]; y < band[1]; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for x := 0; x < w; x++ {
					i := y*w + x
					best := math.Inf(1)
					parent[i] = int32(i)
					for yy := max(y-win, 0); yy < min(y+win+1, h); yy++ {
						for xx := max(x-win, 0); xx < min(x+win+1, w); xx++ {
							j := yy*w + xx
							if density[j] <= density[i] {
								continue
							}
							if d := sq(i, j, yy-y, xx-x); d < best {
								best = d
								parent[i] = int32(j)
							}
						}
					}
					if math.Sqrt(best) > prm.MaxDist {
						parent[i] = int32(i)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// density strictly increases along links, so every chain ends at a root
	labels := make([]int32, n)
	for i := range labels {
		r := int32(i)
		for parent[r] != r {
			r = parent[r]
		}
		labels[i] = r
	}
	return labels, nil
}
