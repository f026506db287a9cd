package cv

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// FloatMap is a dense per-pixel float field, row-major.
type FloatMap struct {
	W, H int
	Pix  []float64
}

// NewFloatMap allocates a zeroed w x h map.
func NewFloatMap(w, h int) FloatMap {
	return FloatMap{W: w, H: h, Pix: make([]float64, w*h)}
}

// At returns the value at (x, y) without bounds checking.
func (m FloatMap) At(x, y int) float64 { return m.Pix[y*m.W+x] }

// Set stores v at (x, y) without bounds checking.
func (m FloatMap) Set(x, y int, v float64) { m.Pix[y*m.W+x] = v }

// grayToFloat copies a grayscale image into a FloatMap with values in [0, 255].
func grayToFloat(src *image.Gray) FloatMap {
	b := src.Bounds()
	m := NewFloatMap(b.Dx(), b.Dy())
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			m.Set(x, y, float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
		}
	}
	return m
}

// SobelMagnitude computes the gradient magnitude of a grayscale image using
// 3x3 Sobel operators with clamped borders.
func SobelMagnitude(src *image.Gray) FloatMap {
	g := grayToFloat(src)
	out := NewFloatMap(g.W, g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := g.At(clampInt(x+kx, 0, g.W-1), clampInt(y+ky, 0, g.H-1))
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			out.Set(x, y, math.Sqrt(gx*gx+gy*gy))
		}
	}
	return out
}

// Percentile returns the p-th percentile (0-100) of the values, by sorting a
// copy. Returns 0 for an empty slice.
func Percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	idx := int(p / 100 * float64(len(sorted)-1))
	return sorted[clampInt(idx, 0, len(sorted)-1)]
}

// ThresholdAbove builds a binary mask with 255 where the map value exceeds t.
func ThresholdAbove(m FloatMap, t float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.At(x, y) > t {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// LaplacianVariance computes the variance of the 4-neighbor Laplacian
// response, a standard focus/blur measure: sharp images score high, blurred
// images score low.
func LaplacianVariance(src *image.Gray) float64 {
	g := grayToFloat(src)
	if g.W < 3 || g.H < 3 {
		return 0
	}
	n := 0
	sum, sumSq := 0.0, 0.0
	for y := 1; y < g.H-1; y++ {
		for x := 1; x < g.W-1; x++ {
			lap := g.At(x+1, y) + g.At(x-1, y) + g.At(x, y+1) + g.At(x, y-1) - 4*g.At(x, y)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// MeanLuminance returns the average pixel value of a grayscale image.
func MeanLuminance(src *image.Gray) float64 {
	b := src.Bounds()
	total := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			total += float64(src.GrayAt(x, y).Y)
		}
	}
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// RowProfileVariance sums pixel intensities per row and returns the variance
// of that profile. Text rows aligned with the image axis produce a strongly
// banded profile and therefore a high variance.
func RowProfileVariance(src *image.Gray) float64 {
	b := src.Bounds()
	h := b.Dy()
	if h == 0 {
		return 0
	}
	sums := make([]float64, h)
	for y := 0; y < h; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sums[y] += float64(src.GrayAt(x, b.Min.Y+y).Y)
		}
	}
	mean := 0.0
	for _, s := range sums {
		mean += s
	}
	mean /= float64(h)
	variance := 0.0
	for _, s := range sums {
		d := s - mean
		variance += d * d
	}
	return variance / float64(h)
}

// StretchContrast linearly remaps intensities so that the lowP and highP
// percentiles land on 0 and 255. Degenerate inputs are returned unchanged.
func StretchContrast(src *image.Gray, lowP, highP float64) *image.Gray {
	g := grayToFloat(src)
	lo := Percentile(g.Pix, lowP)
	hi := Percentile(g.Pix, highP)
	if hi-lo < 1 {
		return CloneGray(src)
	}
	out := image.NewGray(image.Rect(0, 0, g.W, g.H))
	scale := 255 / (hi - lo)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			v := (g.At(x, y) - lo) * scale
			out.SetGray(x, y, color.Gray{Y: uint8(clampFloat(v, 0, 255))})
		}
	}
	return out
}

// FitLineDirection fits a line through a point set by principal component
// analysis and returns the unit direction vector (vx, vy) of the dominant
// axis. Returns (1, 0) for degenerate inputs.
func FitLineDirection(pts []image.Point) (vx, vy float64) {
	if len(pts) < 2 {
		return 1, 0
	}
	var mx, my float64
	for _, p := range pts {
		mx += float64(p.X)
		my += float64(p.Y)
	}
	mx /= float64(len(pts))
	my /= float64(len(pts))

	var sxx, sxy, syy float64
	for _, p := range pts {
		dx := float64(p.X) - mx
		dy := float64(p.Y) - my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	// Dominant eigenvector of the 2x2 covariance matrix.
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	return math.Cos(theta), math.Sin(theta)
}

var sobelX = [3][3]float64{
	{-1, 0, 1},
	{-2, 0, 2},
	{-1, 0, 1},
}

var sobelY = [3][3]float64{
	{-1, -2, -1},
	{0, 0, 0},
	{1, 2, 1},
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

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
