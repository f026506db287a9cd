package detect

// Config collects the region detection thresholds.
type Config struct {
	// MinAreaRatio and MaxAreaRatio bound acceptable contour-strategy
	// candidates as a fraction of image area.
	MinAreaRatio float64
	MaxAreaRatio float64

	// MinScore is the minimum combined contour-strategy score.
	MinScore float64

	// EdgeMinAreaRatio and EdgeMaxAreaRatio bound edge-strategy candidates.
	EdgeMinAreaRatio float64
	EdgeMaxAreaRatio float64

	// ColorMinAreaRatio is the minimum coverage of a color-mask candidate.
	ColorMinAreaRatio float64

	// StatMinAreaRatio and StatMaxAreaRatio bound statistical-strategy
	// candidates.
	StatMinAreaRatio float64
	StatMaxAreaRatio float64

	// FallbackBorderFraction is the per-side inset of the fallback crop.
	FallbackBorderFraction float64

	// AspectFullCredit is the min/max side ratio at or above which a
	// candidate receives full aspect credit; below it credit halves.
	AspectFullCredit float64
}

// DefaultConfig returns the tuned region detection parameters.
func DefaultConfig() Config {
	return Config{
		MinAreaRatio:           0.15,
		MaxAreaRatio:           0.9,
		MinScore:               0.05,
		EdgeMinAreaRatio:       0.1,
		EdgeMaxAreaRatio:       0.85,
		ColorMinAreaRatio:      0.1,
		StatMinAreaRatio:       0.1,
		StatMaxAreaRatio:       0.9,
		FallbackBorderFraction: 0.05,
		AspectFullCredit:       0.5,
	}
}

// QuadConfig collects the quadrilateral detection thresholds.
type QuadConfig struct {
	// MinAreaRatio is the minimum contour coverage of the image area.
	MinAreaRatio float64

	// MinRectangularity is the minimum ratio of contour area to its
	// convex-hull area, 1.0 for a perfect convex outline.
	MinRectangularity float64

	// MinFillingRatio is the minimum ratio of contour area to the
	// quad's axis-aligned bounding box.
	MinFillingRatio float64

	// MinAspect is the minimum short/long side ratio of the quad's
	// bounding box.
	MinAspect float64

	// BorderMargin is the distance from the image border, in pixels,
	// within which the quad's bounding box incurs the border penalty.
	BorderMargin int

	// BorderPenalty multiplies the score of quads touching the border
	// margin.
	BorderPenalty float64

	// EpsilonLadder lists the polygon approximation tolerances, as
	// fractions of contour perimeter, tried in order until a
	// quadrilateral emerges.
	EpsilonLadder []float64

	// TopContours is the number of largest contours examined per edge map.
	TopContours int
}

// DefaultQuadConfig returns the tuned quadrilateral detection parameters.
func DefaultQuadConfig() QuadConfig {
	return QuadConfig{
		MinAreaRatio:      0.15,
		MinRectangularity: 0.75,
		MinFillingRatio:   0.7,
		MinAspect:         0.3,
		BorderMargin:      20,
		BorderPenalty:     0.5,
		EpsilonLadder:     []float64{0.01, 0.015, 0.02, 0.025, 0.03, 0.04},
		TopContours:       8,
	}
}
