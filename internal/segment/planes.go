package segment

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"pixel-labeler/pkg/colorutil"
)

// Planes holds three float channels of an image, one matrix per channel,
// rows by columns. Values from Normalize are in [0, 1].
type Planes [3]*mat.Dense

// Normalize converts img to RGB float planes. Alpha is ignored.
func Normalize(img image.Image) Planes {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var p Planes
	for c := range p {
		p[c] = mat.NewDense(h, w, nil)
	}
	r, g, bl := p[0].RawMatrix(), p[1].RawMatrix(), p[2].RawMatrix()

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			off := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < w; x++ {
				px := nrgba.Pix[off+4*x : off+4*x+3]
				r.Data[y*r.Stride+x] = float64(px[0]) / 255
				g.Data[y*g.Stride+x] = float64(px[1]) / 255
				bl.Data[y*bl.Stride+x] = float64(px[2]) / 255
			}
		}
		return p
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb, ca := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if ca > 0 && ca < 0xffff {
				// un-premultiply
				cr, cg, cb = cr*0xffff/ca, cg*0xffff/ca, cb*0xffff/ca
			}
			r.Data[y*r.Stride+x] = float64(cr) / 0xffff
			g.Data[y*g.Stride+x] = float64(cg) / 0xffff
			bl.Data[y*bl.Stride+x] = float64(cb) / 0xffff
		}
	}
	return p
}

// Dims returns the plane width and height.
func (p Planes) Dims() (w, h int) {
	rows, cols := p[0].Dims()
	return cols, rows
}

// Smooth applies a gaussian blur of the given sigma to every channel.
func (p Planes) Smooth(sigma float64) Planes {
	var out Planes
	for c := range p {
		out[c] = Gaussian(p[c], sigma)
	}
	return out
}

// Lab converts RGB planes into CIE L*a*b* planes.
func (p Planes) Lab() Planes {
	w, h := p.Dims()
	var out Planes
	for c := range out {
		out[c] = mat.NewDense(h, w, nil)
	}
	src := [3]mat.RawMatrixer{p[0], p[1], p[2]}
	var in [3][]float64
	var dst [3][]float64
	stride := 0
	for c := range src {
		raw := src[c].RawMatrix()
		in[c] = raw.Data
		stride = raw.Stride
		dst[c] = out[c].RawMatrix().Data
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x
			l, a, b := colorutil.RGBToLab(in[0][i], in[1][i], in[2][i])
			j := y*w + x
			dst[0][j], dst[1][j], dst[2][j] = l, a, b
		}
	}
	return out
}

// Scale multiplies every channel by f.
func (p Planes) Scale(f float64) Planes {
	var out Planes
	for c := range p {
		out[c] = mat.NewDense(p[c].RawMatrix().Rows, p[c].RawMatrix().Cols, nil)
		out[c].Scale(f, p[c])
	}
	return out
}

// Gaussian returns m blurred by a separable gaussian kernel. Borders repeat
// the nearest edge value. A non-positive sigma returns a copy.
func Gaussian(m *mat.Dense, sigma float64) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	if sigma <= 0 {
		out.Copy(m)
		return out
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	src := m.RawMatrix()
	tmp := make([]float64, rows*cols)

	for y := 0; y < rows; y++ {
		row := src.Data[y*src.Stride : y*src.Stride+cols]
		for x := 0; x < cols; x++ {
			var acc float64
			for k, wt := range kernel {
				acc += wt * row[clampInt(x+k-radius, 0, cols-1)]
			}
			tmp[y*cols+x] = acc
		}
	}

	dst := out.RawMatrix()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var acc float64
			for k, wt := range kernel {
				acc += wt * tmp[clampInt(y+k-radius, 0, rows-1)*cols+x]
			}
			dst.Data[y*dst.Stride+x] = acc
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
