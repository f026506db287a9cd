package cv

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/segment"
)

// OtsuLevel computes the global threshold that maximizes between-class
// variance of the grayscale histogram.
func OtsuLevel(src *image.Gray) uint8 {
	var hist [256]int
	b := src.Bounds()
	total := b.Dx() * b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
		}
	}
	if total == 0 {
		return 128
	}

	sumAll := 0.0
	for i, c := range hist {
		sumAll += float64(i) * float64(c)
	}

	var (
		sumBack    float64
		weightBack int
		bestVar    float64
		bestLevel  uint8
	)
	for t := 0; t < 256; t++ {
		weightBack += hist[t]
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / float64(weightBack)
		meanFore := (sumAll - sumBack) / float64(weightFore)
		diff := meanBack - meanFore
		between := float64(weightBack) * float64(weightFore) * diff * diff
		if between > bestVar {
			bestVar = between
			bestLevel = uint8(t)
		}
	}
	return bestLevel
}

// OtsuThreshold binarizes a grayscale image at the Otsu level using
// bild/segment: pixels above the level become 255.
func OtsuThreshold(src *image.Gray) *image.Gray {
	return segment.Threshold(src, OtsuLevel(src))
}

// AdaptiveThreshold binarizes a grayscale image against the local mean of a
// blockSize x blockSize neighborhood: a pixel becomes 255 when it exceeds
// its local mean minus c. The local mean is computed with an integral image,
// so the cost is independent of block size. blockSize must be odd and >= 3.
func AdaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray {
	if blockSize < 3 {
		blockSize = 3
	}
	if blockSize%2 == 0 {
		blockSize++
	}
	g := grayToFloat(src)
	w, h := g.W, g.H

	// Integral image with a one-pixel zero border.
	integral := make([]float64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0.0
		for x := 0; x < w; x++ {
			rowSum += g.At(x, y)
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	half := blockSize / 2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y1 := clampInt(y-half, 0, h-1)
		y2 := clampInt(y+half, 0, h-1)
		for x := 0; x < w; x++ {
			x1 := clampInt(x-half, 0, w-1)
			x2 := clampInt(x+half, 0, w-1)
			area := float64((x2 - x1 + 1) * (y2 - y1 + 1))
			sum := integral[(y2+1)*(w+1)+x2+1] - integral[y1*(w+1)+x2+1] -
				integral[(y2+1)*(w+1)+x1] + integral[y1*(w+1)+x1]
			if g.At(x, y) > sum/area-c {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
