package detect

import (
	"image"

	"github.com/docsquare/docsquare/internal/cv"
	"github.com/docsquare/docsquare/internal/geometry"
	"github.com/docsquare/docsquare/internal/trace"
)

// QuadDetector finds an explicit four-corner document outline. Unlike the
// region Detector it has no fallback: when no contour simplifies to a
// quadrilateral that passes the shape gates, detection reports failure and
// the caller decides what to do with the whole image.
type QuadDetector struct {
	cfg  QuadConfig
	sink trace.Sink
}

// NewQuadDetector builds a quadrilateral detector. A nil sink disables
// tracing.
func NewQuadDetector(cfg QuadConfig, sink trace.Sink) *QuadDetector {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &QuadDetector{cfg: cfg, sink: sink}
}

// Detect searches several edge maps for the best-scoring quadrilateral and
// returns it in TL, TR, BR, BL order. The second return value is false when
// no acceptable quadrilateral exists.
func (d *QuadDetector) Detect(img image.Image) (geometry.Quad, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return geometry.Quad{}, false
	}
	gray := cv.ToGray(img)

	// Two Canny sensitivities on the raw grayscale catch strong and weak
	// document borders; a third pass on the adaptively thresholded image
	// recovers borders that only exist as local contrast.
	maps := []*image.Gray{
		cv.Close(cv.Canny(gray, 50, 150), 2, 2),
		cv.Close(cv.Canny(gray, 75, 225), 2, 2),
		cv.Close(cv.Canny(cv.AdaptiveThreshold(gray, 11, 2), 50, 150), 2, 2),
	}

	var (
		best      [4]image.Point
		bestScore float64
		found     bool
	)
	for _, edges := range maps {
		contours := cv.FindContours(edges)
		sortByArea(contours)
		if len(contours) > d.cfg.TopContours {
			contours = contours[:d.cfg.TopContours]
		}
		for _, c := range contours {
			poly, ok := d.approxQuad(c)
			if !ok {
				continue
			}
			score, ok := d.scoreQuad(poly, c, w, h)
			if ok && score > bestScore {
				best = poly
				bestScore = score
				found = true
			}
		}
	}
	if !found {
		return geometry.Quad{}, false
	}

	quad := orderedQuad(best)
	d.sink.Emit(trace.CandidateScored{
		Strategy: "quad",
		Score:    bestScore,
		X:        boundsOf(best).Min.X,
		Y:        boundsOf(best).Min.Y,
		Width:    boundsOf(best).Dx(),
		Height:   boundsOf(best).Dy(),
	})
	return quad, true
}

// approxQuad walks the epsilon ladder until the contour simplifies to
// exactly four vertices. Coarser tolerances are only tried when finer ones
// leave too many vertices; a contour that collapses below four corners at
// some tolerance can never recover at a coarser one.
func (d *QuadDetector) approxQuad(c cv.Contour) ([4]image.Point, bool) {
	perimeter := c.Perimeter()
	if perimeter == 0 {
		return [4]image.Point{}, false
	}
	for _, eps := range d.cfg.EpsilonLadder {
		poly := cv.ApproxPolygon(c.Points, eps*perimeter)
		if len(poly) == 4 {
			return [4]image.Point{poly[0], poly[1], poly[2], poly[3]}, true
		}
		if len(poly) < 4 {
			break
		}
	}
	return [4]image.Point{}, false
}

// scoreQuad combines coverage, rectangularity, bounding-box filling, and
// aspect ratio, each individually gated, and penalizes quads hugging the
// image border since those usually outline the photo rather than the
// document.
//
// All area terms measure the source contour, not the simplified polygon:
// rectangularity is contour area over convex-hull area, a raggedness
// measure that a ragged outline must fail even when it simplifies to a
// clean quadrilateral.
func (d *QuadDetector) scoreQuad(poly [4]image.Point, c cv.Contour, w, h int) (float64, bool) {
	area := c.Area()
	imageArea := float64(w) * float64(h)

	areaRatio := area / imageArea
	if areaRatio <= d.cfg.MinAreaRatio {
		return 0, false
	}

	hullArea := cv.PolygonArea(cv.ConvexHull(c.Points))
	if hullArea <= 0 {
		return 0, false
	}
	rectangularity := area / hullArea
	if rectangularity <= d.cfg.MinRectangularity {
		return 0, false
	}

	bbox := boundsOf(poly)
	bw, bh := float64(bbox.Dx()), float64(bbox.Dy())
	if bw <= 0 || bh <= 0 {
		return 0, false
	}
	filling := area / (bw * bh)
	if filling <= d.cfg.MinFillingRatio {
		return 0, false
	}

	aspect := bw / bh
	if aspect > 1 {
		aspect = bh / bw
	}
	if aspect <= d.cfg.MinAspect {
		return 0, false
	}

	score := areaRatio * rectangularity * filling * aspect
	borderDistance := bbox.Min.X
	for _, dist := range []int{bbox.Min.Y, w - bbox.Max.X, h - bbox.Max.Y} {
		if dist < borderDistance {
			borderDistance = dist
		}
	}
	if borderDistance <= d.cfg.BorderMargin {
		score *= d.cfg.BorderPenalty
	}
	return score, true
}

func orderedQuad(poly [4]image.Point) geometry.Quad {
	var pts [4]geometry.Point
	for i, p := range poly {
		pts[i] = geometry.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return geometry.OrderPoints(pts)
}

func boundsOf(poly [4]image.Point) image.Rectangle {
	return cv.BoundingRect(poly[:])
}
