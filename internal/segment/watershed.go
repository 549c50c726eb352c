package segment

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// watershed floods the Sobel gradient of the image from a regular grid of
// markers using OpenCV.
func watershed(img *image.NRGBA, prm WatershedParams) ([]int32, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	bgr := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			px := img.Pix[off+4*x : off+4*x+3]
			bgr = append(bgr, px[2], px[1], px[0])
		}
	}
	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return nil, fmt.Errorf("failed to create image matrix: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	// a stronger smoothing pulls the basins towards regular shapes
	if prm.Compactness > 0 {
		ksize := 2*int(math.Min(3, 1+prm.Compactness*100)) + 1
		gocv.GaussianBlur(gray, &gray, image.Pt(ksize, ksize), 0, 0, gocv.BorderDefault)
	}

	gradX, gradY := gocv.NewMat(), gocv.NewMat()
	defer gradX.Close()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)
	absX, absY := gocv.NewMat(), gocv.NewMat()
	defer absX.Close()
	defer absY.Close()
	gocv.ConvertScaleAbs(gradX, &absX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absY, 1, 0)

	grad := gocv.NewMat()
	defer grad.Close()
	gocv.AddWeighted(absX, 0.5, absY, 0.5, 0, &grad)
	gradBGR := gocv.NewMat()
	defer gradBGR.Close()
	gocv.CvtColor(grad, &gradBGR, gocv.ColorGrayToBGR)

	markers := gocv.Zeros(h, w, gocv.MatTypeCV32S)
	defer markers.Close()
	step := math.Sqrt(float64(w*h) / float64(prm.Markers))
	if step < 1 {
		step = 1
	}
	var id int32 = 1
	for cy := step / 2; cy < float64(h); cy += step {
		for cx := step / 2; cx < float64(w); cx += step {
			markers.SetIntAt(int(cy), int(cx), id)
			id++
		}
	}

	gocv.Watershed(gradBGR, &markers)

	labels := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			labels[y*w+x] = markers.GetIntAt(y, x)
		}
	}
	fillRidges(labels, w, h)
	return labels, nil
}

// fillRidges replaces the ridge (-1) and unreached (0) labels that watershed
// leaves between basins with the label of a neighbouring basin.
func fillRidges(labels []int32, w, h int) {
	for pass := 0; pass < w+h; pass++ {
		remaining := false
		for i, l := range labels {
			if l > 0 {
				continue
			}
			x, y := i%w, i/w
			switch {
			case x > 0 && labels[i-1] > 0:
				labels[i] = labels[i-1]
			case x+1 < w && labels[i+1] > 0:
				labels[i] = labels[i+1]
			case y > 0 && labels[i-w] > 0:
				labels[i] = labels[i-w]
			case y+1 < h && labels[i+w] > 0:
				labels[i] = labels[i+w]
			default:
				remaining = true
			}
		}
		if !remaining {
			return
		}
	}
	for i, l := range labels {
		if l <= 0 {
			labels[i] = 1
		}
	}
}
