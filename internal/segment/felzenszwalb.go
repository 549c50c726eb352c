package segment

import (
	"cmp"
	"math"
	"slices"
)

type graphEdge struct {
	a, b int32
	w    float64
}

// forest is a disjoint-set forest carrying the segment size and the largest
// internal edge weight of each component.
type forest struct {
	parent   []int32
	size     []int32
	internal []float64
}

func newForest(n int) *forest {
	f := &forest{
		parent:   make([]int32, n),
		size:     make([]int32, n),
		internal: make([]float64, n),
	}
	for i := range f.parent {
		f.parent[i] = int32(i)
		f.size[i] = 1
	}
	return f
}

func (f *forest) find(x int32) int32 {
	for f.parent[x] != x {
		f.parent[x] = f.parent[f.parent[x]]
		x = f.parent[x]
	}
	return x
}

// join merges the components rooted at a and b and returns the new root.
func (f *forest) join(a, b int32, w float64) int32 {
	if f.size[a] < f.size[b] {
		a, b = b, a
	}
	f.parent[b] = a
	f.size[a] += f.size[b]
	f.internal[a] = w
	return a
}

// felzenszwalb implements efficient graph-based segmentation on an
// 8-connected pixel grid.
func felzenszwalb(p Planes, prm FelzenszwalbParams) []int32 {
	w, h := p.Dims()
	smooth := p.Smooth(prm.Sigma)
	var ch [3][]float64
	for c := range smooth {
		ch[c] = smooth[c].RawMatrix().Data
	}
	dist := func(i, j int) float64 {
		var s float64
		for c := range ch {
			d := ch[c][i] - ch[c][j]
			s += d * d
		}
		return math.Sqrt(s)
	}

	edges := make([]graphEdge, 0, 4*w*h)
	add := func(i, j int) {
		edges = append(edges, graphEdge{a: int32(i), b: int32(j), w: dist(i, j)})
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x+1 < w {
				add(i, i+1)
			}
			if y+1 < h {
				add(i, i+w)
				if x+1 < w {
					add(i, i+w+1)
				}
				if x > 0 {
					add(i, i+w-1)
				}
			}
		}
	}
	slices.SortStableFunc(edges, func(a, b graphEdge) int { return cmp.Compare(a.w, b.w) })

	k := prm.Scale / 255
	f := newForest(w * h)
	for _, e := range edges {
		ra, rb := f.find(e.a), f.find(e.b)
		if ra == rb {
			continue
		}
		ta := f.internal[ra] + k/float64(f.size[ra])
		tb := f.internal[rb] + k/float64(f.size[rb])
		if e.w <= min(ta, tb) {
			f.join(ra, rb, e.w)
		}
	}

	if prm.MinSize > 1 {
		minSize := int32(prm.MinSize)
		for _, e := range edges {
			ra, rb := f.find(e.a), f.find(e.b)
			if ra != rb && (f.size[ra] < minSize || f.size[rb] < minSize) {
				f.join(ra, rb, max(f.internal[ra], f.internal[rb]))
			}
		}
	}

	labels := make([]int32, w*h)
	for i := range labels {
		labels[i] = f.find(int32(i))
	}
	return labels
}
