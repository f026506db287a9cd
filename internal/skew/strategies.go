package skew

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/docsquare/docsquare/internal/cv"
	"github.com/docsquare/docsquare/internal/geometry"
	"github.com/docsquare/docsquare/internal/trace"
)

// lineAngle measures skew from straight line segments: document edges, table
// rules, and underlines. Segments shorter than a tenth of the smaller image
// dimension are ignored, the remaining angles folded into [-45, 45], gated,
// and reduced by median.
func (m *MultiStrategy) lineAngle(gray *image.Gray) (float64, bool) {
	b := gray.Bounds()
	minDim := b.Dx()
	if b.Dy() < minDim {
		minDim = b.Dy()
	}
	edges := cv.Canny(gray, 50, 150)

	votes := minDim * 3 / 10
	if votes < 30 {
		votes = 30
	}
	segments := cv.DetectSegments(edges, votes, minDim/5, 10)
	if len(segments) == 0 {
		return 0, false
	}

	minLength := float64(minDim) / 10
	var angles []float64
	for _, s := range segments {
		if s.Length() <= minLength {
			continue
		}
		dy := float64(s.Y2 - s.Y1)
		dx := float64(s.X2 - s.X1)
		a := geometry.FoldAngle(-math.Atan2(dy, dx) * 180 / math.Pi)
		if a > m.cfg.MaxLineAngle || a < -m.cfg.MaxLineAngle {
			continue
		}
		angles = append(angles, a)
	}
	if len(angles) == 0 {
		return 0, false
	}
	return median(angles), true
}

// textRowAngle measures skew from the orientation of text rows. Dark
// foreground is binarized, glyphs are merged into row blobs with a wide
// horizontal closing, and a line is fit through each blob's boundary points.
func (m *MultiStrategy) textRowAngle(gray *image.Gray) (float64, bool) {
	mask := cv.Invert(cv.OtsuThreshold(gray))
	merged := cv.CloseHorizontal(mask, m.cfg.TextRowCloseWidth)

	var angles []float64
	for _, c := range cv.FindContours(merged) {
		if c.Area() < m.cfg.MinTextRowArea {
			continue
		}
		vx, vy := cv.FitLineDirection(c.Points)
		if vx == 0 && vy == 0 {
			continue
		}
		a := geometry.FoldAngle(-math.Atan2(vy, vx) * 180 / math.Pi)
		if a > m.cfg.MaxTextAngle || a < -m.cfg.MaxTextAngle {
			continue
		}
		angles = append(angles, a)
	}
	if len(angles) == 0 {
		return 0, false
	}
	return median(angles), true
}

// projectionAngle sweeps trial corrections over [-SweepLimit, SweepLimit]
// and picks the angle whose correction maximizes the variance of the
// horizontal projection profile. A straight document has sharply alternating
// text and gap rows, so the correct angle peaks the variance.
func (m *MultiStrategy) projectionAngle(gray *image.Gray) (float64, bool) {
	if m.cfg.SweepStep <= 0 {
		return 0, false
	}
	best := 0.0
	bestVar := -1.0
	for a := -m.cfg.SweepLimit; a <= m.cfg.SweepLimit+1e-9; a += m.cfg.SweepStep {
		rotated := imaging.Rotate(gray, -a, color.White)
		v := cv.RowProfileVariance(cv.ToGray(rotated))
		if v > bestVar {
			bestVar = v
			best = a
		}
	}
	if bestVar <= 0 {
		m.sink.Emit(trace.StrategySkipped{Strategy: "projection", Reason: "flat profile"})
		return 0, false
	}
	return best, true
}
