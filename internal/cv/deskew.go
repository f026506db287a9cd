package cv

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// EstimateSkewAngle measures the skew of document content by maximizing the
// variance of the horizontal projection profile over trial rotations. It is
// the single-shot estimation primitive used by the delegated deskew backend:
// a coarse 1 degree sweep over +/-15 degrees followed by a 0.1 degree
// refinement around the best coarse angle.
//
// The returned angle is positive when the content is tilted counter-
// clockwise; rotating the image by the negated angle aligns it.
func EstimateSkewAngle(src *image.Gray) float64 {
	if src.Bounds().Dx() == 0 || src.Bounds().Dy() == 0 {
		return 0
	}
	coarse := bestProfileAngle(src, -15, 15, 1)
	return bestProfileAngle(src, coarse-1, coarse+1, 0.1)
}

// bestProfileAngle tries candidate angles in [lo, hi] at the given step and
// returns the one whose corrective rotation yields the sharpest row profile.
func bestProfileAngle(src *image.Gray, lo, hi, step float64) float64 {
	best := 0.0
	bestVar := -1.0
	for a := lo; a <= hi+1e-9; a += step {
		rotated := imaging.Rotate(src, -a, color.White)
		v := RowProfileVariance(ToGray(rotated))
		if v > bestVar {
			bestVar = v
			best = a
		}
	}
	return best
}
