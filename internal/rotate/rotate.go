// Package rotate corrects residual document skew by rotating the image
// about its center with canvas expansion, so no content is ever clipped.
package rotate

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// DefaultNegligibleAngle is the skew magnitude, in degrees, below which
// correction is skipped: rotating an already-straight image only introduces
// resampling artifacts.
const DefaultNegligibleAngle = 0.1

// Corrector rotates images to undo measured skew.
type Corrector struct {
	// NegligibleAngle is the threshold below which Correct returns an
	// unmodified copy. Zero means DefaultNegligibleAngle.
	NegligibleAngle float64

	// Background fills canvas area exposed by the rotation. Nil means white.
	Background color.Color
}

// NewCorrector returns a Corrector with the default threshold and a white
// background fill.
func NewCorrector() *Corrector {
	return &Corrector{NegligibleAngle: DefaultNegligibleAngle, Background: color.White}
}

// Correct rotates img to undo a measured skew of angle degrees (positive =
// content tilted counter-clockwise), i.e. it applies a rotation by the
// negated angle about the image center. The output canvas expands to the
// minimal bounding box of the rotated content:
//
//	newW = h*|sin| + w*|cos|
//	newH = h*|cos| + w*|sin|
//
// so output dimensions generally exceed input dimensions. Angles smaller in
// magnitude than the negligible threshold return an unmodified copy.
func (c *Corrector) Correct(img image.Image, angle float64) *image.NRGBA {
	threshold := c.NegligibleAngle
	if threshold == 0 {
		threshold = DefaultNegligibleAngle
	}
	if angle < threshold && angle > -threshold {
		return imaging.Clone(img)
	}
	bg := c.Background
	if bg == nil {
		bg = color.White
	}
	return imaging.Rotate(img, -angle, bg)
}
