package cv

import (
	"image"
	"image/color"
	"math"
)

// Pointf is a 2D point with float64 coordinates, used for sub-pixel
// geometry such as warp corners.
type Pointf struct {
	X, Y float64
}

// WarpPerspective resamples the quadrilateral region quad of src into an
// axis-aligned dstW x dstH rectangle. quad must be ordered top-left,
// top-right, bottom-right, bottom-left. Sampling is bilinear; destination
// pixels that map outside the source are filled with white, the document
// background color. Returns nil for degenerate inputs.
func WarpPerspective(src image.Image, quad [4]Pointf, dstW, dstH int) *image.NRGBA {
	if dstW <= 0 || dstH <= 0 {
		return nil
	}

	dst := [4]Pointf{
		{X: 0, Y: 0},
		{X: float64(dstW - 1), Y: 0},
		{X: float64(dstW - 1), Y: float64(dstH - 1)},
		{X: 0, Y: float64(dstH - 1)},
	}
	h, ok := computeHomography(dst, quad)
	if !ok {
		return nil
	}

	sb := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			sx, sy := applyHomography(h, float64(x), float64(y))
			out.SetNRGBA(x, y, bilinearSample(src, sx+float64(sb.Min.X), sy+float64(sb.Min.Y)))
		}
	}
	return out
}

// computeHomography solves for the 3x3 projective transform H mapping
// p[i] -> q[i] with h22 fixed to 1, via an 8x8 linear system.
func computeHomography(p, q [4]Pointf) ([9]float64, bool) {
	var a [8][8]float64
	var b [8]float64
	for i := 0; i < 4; i++ {
		sx, sy := p[i].X, p[i].Y
		dx, dy := q[i].X, q[i].Y
		r := 2 * i
		a[r] = [8]float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx}
		b[r] = dx
		a[r+1] = [8]float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy}
		b[r+1] = dy
	}
	h, ok := solveLinear8(a, b)
	if !ok {
		return [9]float64{}, false
	}
	return [9]float64{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, true
}

// solveLinear8 solves an 8x8 system by Gauss-Jordan elimination with
// partial pivoting.
func solveLinear8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	for col := 0; col < 8; col++ {
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > maxAbs {
				maxAbs = math.Abs(a[r][col])
				pivot = r
			}
		}
		if maxAbs == 0 {
			return [8]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := 0; r < 8; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			factor := a[r][col]
			for c := col; c < 8; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}
	return b, true
}

func applyHomography(h [9]float64, x, y float64) (float64, float64) {
	denom := h[6]*x + h[7]*y + h[8]
	if denom == 0 {
		return math.Inf(-1), math.Inf(-1)
	}
	return (h[0]*x + h[1]*y + h[2]) / denom, (h[3]*x + h[4]*y + h[5]) / denom
}

func bilinearSample(src image.Image, x, y float64) color.NRGBA {
	b := src.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) || x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := toFloatRGBA(src.At(x0, y0))
	c10 := toFloatRGBA(src.At(x1, y0))
	c01 := toFloatRGBA(src.At(x0, y1))
	c11 := toFloatRGBA(src.At(x1, y1))
	return color.NRGBA{
		R: uint8(lerp2(c00[0], c10[0], c01[0], c11[0], fx, fy) + 0.5),
		G: uint8(lerp2(c00[1], c10[1], c01[1], c11[1], fx, fy) + 0.5),
		B: uint8(lerp2(c00[2], c10[2], c01[2], c11[2], fx, fy) + 0.5),
		A: uint8(lerp2(c00[3], c10[3], c01[3], c11[3], fx, fy) + 0.5),
	}
}

func toFloatRGBA(c color.Color) [4]float64 {
	r, g, b, a := c.RGBA()
	return [4]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8), float64(a >> 8)}
}

func lerp2(v00, v10, v01, v11, fx, fy float64) float64 {
	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}
