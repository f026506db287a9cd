// Package geometry provides point ordering and four-point perspective
// rectification for detected document outlines.
package geometry

import (
	"image"
	"math"

	"github.com/docsquare/docsquare/internal/cv"
)

// Point is a 2D coordinate in pixel space with sub-pixel precision.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is a document outline as four corners ordered top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]Point

// OrderPoints arranges four arbitrary corners into TL, TR, BR, BL order:
// the top-left corner has the minimum x+y sum, the bottom-right the maximum
// sum, the top-right the minimum x-y difference, and the bottom-left the
// maximum difference. Collinear inputs yield a degenerate but well-defined
// ordering rather than an error; downstream area checks reject them.
func OrderPoints(pts [4]Point) Quad {
	var q Quad
	minSum, maxSum := math.MaxFloat64, -math.MaxFloat64
	minDiff, maxDiff := math.MaxFloat64, -math.MaxFloat64
	for _, p := range pts {
		sum := p.X + p.Y
		diff := p.X - p.Y
		if sum < minSum {
			minSum = sum
			q[0] = p
		}
		if sum > maxSum {
			maxSum = sum
			q[2] = p
		}
		if diff < minDiff {
			minDiff = diff
			q[3] = p
		}
		if diff > maxDiff {
			maxDiff = diff
			q[1] = p
		}
	}
	return q
}

// Rectify maps the quadrilateral region of src onto an axis-aligned
// rectangle, removing perspective distortion and the quadrilateral's own
// tilt in one step. The destination width is the longer of the top and
// bottom edges, the height the longer of the left and right edges. pts may
// be in any order. Returns nil when the quadrilateral is degenerate.
func Rectify(src image.Image, pts [4]Point) *image.NRGBA {
	q := OrderPoints(pts)
	tl, tr, br, bl := q[0], q[1], q[2], q[3]

	widthTop := distance(tl, tr)
	widthBottom := distance(bl, br)
	heightLeft := distance(tl, bl)
	heightRight := distance(tr, br)

	dstW := int(math.Max(widthTop, widthBottom))
	dstH := int(math.Max(heightLeft, heightRight))
	if dstW < 1 || dstH < 1 {
		return nil
	}

	quad := [4]cv.Pointf{
		{X: tl.X, Y: tl.Y},
		{X: tr.X, Y: tr.Y},
		{X: br.X, Y: br.Y},
		{X: bl.X, Y: bl.Y},
	}
	return cv.WarpPerspective(src, quad, dstW, dstH)
}

// FoldAngle normalizes an angle in degrees into [-45, 45] by repeated
// 90 degree shifts, collapsing the ambiguity between a document's long and
// short axes.
func FoldAngle(deg float64) float64 {
	for deg > 45 {
		deg -= 90
	}
	for deg < -45 {
		deg += 90
	}
	return deg
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
