package cv

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
)

// Canny performs Canny edge detection on a grayscale image and returns a
// binary mask with edge pixels set to 255.
//
// Pipeline:
//
//  1. Gaussian blur (bild/blur) to suppress noise
//  2. Sobel gradients: magnitude and direction
//  3. Non-maximum suppression to thin edges to single-pixel width
//  4. Hysteresis thresholding: pixels above thresholdHigh are strong edges,
//     pixels between the thresholds are kept only when adjacent to a strong
//     edge
//
// Thresholds are on the 0-255 gradient scale. Lower values detect more edges
// at the cost of noise; 50/150 is a reasonable default for document photos.
func Canny(src *image.Gray, thresholdLow, thresholdHigh int) *image.Gray {
	blurred := rgbaToGray(blur.Gaussian(src, 1.4))
	g := grayToFloat(blurred)
	w, h := g.W, g.H

	magnitude := NewFloatMap(w, h)
	direction := NewFloatMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := g.At(clampInt(x+kx, 0, w-1), clampInt(y+ky, 0, h-1))
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude.Set(x, y, math.Sqrt(gx*gx+gy*gy))
			direction.Set(x, y, math.Atan2(gy, gx))
		}
	}

	suppressed := nonMaxSuppress(magnitude, direction)

	out := image.NewGray(image.Rect(0, 0, w, h))
	low := float64(thresholdLow)
	high := float64(thresholdHigh)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := suppressed.At(x, y)
			switch {
			case v >= high:
				out.SetGray(x, y, color.Gray{Y: 255})
			case v >= low:
				if hasStrongNeighbor(suppressed, x, y, high) {
					out.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
	}
	return out
}

// nonMaxSuppress keeps only pixels that are local maxima along their
// gradient direction. Border pixels are zeroed.
func nonMaxSuppress(magnitude, direction FloatMap) FloatMap {
	w, h := magnitude.W, magnitude.H
	out := NewFloatMap(w, h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			angle := direction.At(x, y)
			mag := magnitude.At(x, y)

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude.At(x-1, y)
				n2 = magnitude.At(x+1, y)
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude.At(x+1, y-1)
				n2 = magnitude.At(x-1, y+1)
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude.At(x, y-1)
				n2 = magnitude.At(x, y+1)
			default:
				n1 = magnitude.At(x-1, y-1)
				n2 = magnitude.At(x+1, y+1)
			}

			if mag >= n1 && mag >= n2 {
				out.Set(x, y, mag)
			}
		}
	}
	return out
}

func hasStrongNeighbor(m FloatMap, x, y int, high float64) bool {
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			px := clampInt(x+kx, 0, m.W-1)
			py := clampInt(y+ky, 0, m.H-1)
			if m.At(px, py) >= high {
				return true
			}
		}
	}
	return false
}
