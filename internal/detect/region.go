// Package detect locates the document within a photographed or scanned
// image.
//
// Two detectors are provided. Detector runs an ordered chain of region
// strategies (contour, edge, color, statistical) and always produces an
// axis-aligned crop region, falling back to a fixed border inset when every
// strategy fails. QuadDetector searches for an explicit four-corner document
// outline suitable for perspective rectification and reports failure rather
// than guessing.
package detect

import (
	"image"
)

// Region is an axis-aligned crop rectangle in image coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RegionFromRect converts a standard rectangle to a Region.
func RegionFromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the Region as a standard rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// AreaRatio returns the fraction of a w x h image the region covers.
func (r Region) AreaRatio(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	return float64(r.Width) * float64(r.Height) / (float64(w) * float64(h))
}

// Clamp restricts the region to the bounds of a w x h image. A region
// entirely outside the image collapses to an empty region at the nearest
// corner.
func (r Region) Clamp(w, h int) Region {
	clamped := r.Rect().Intersect(image.Rect(0, 0, w, h))
	return RegionFromRect(clamped)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Candidate is a region proposed by one strategy together with its
// strategy-local confidence score. Scores are comparable only between
// candidates of the same strategy.
type Candidate struct {
	Region   Region
	Score    float64
	Strategy string
}
