package detect

import (
	"image"

	"github.com/docsquare/docsquare/internal/cv"
	"github.com/docsquare/docsquare/internal/trace"
)

// Detector runs the region strategy chain in fixed order and returns the
// first acceptable candidate. Detection never fails outright: when every
// strategy comes up empty the fallback border crop applies.
type Detector struct {
	cfg        Config
	sink       trace.Sink
	strategies []Strategy
}

// NewDetector builds the standard strategy chain: contour, edge, color,
// statistical. A nil sink disables tracing.
func NewDetector(cfg Config, sink trace.Sink) *Detector {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &Detector{
		cfg:  cfg,
		sink: sink,
		strategies: []Strategy{
			contourStrategy{cfg: cfg},
			edgeStrategy{cfg: cfg},
			colorStrategy{cfg: cfg},
			statStrategy{cfg: cfg},
		},
	}
}

// Detect locates the document and returns its crop region, clamped to the
// image bounds and never empty for images with positive area.
func (d *Detector) Detect(img image.Image) Region {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Region{}
	}
	gray := cv.ToGray(img)

	for _, s := range d.strategies {
		cand, ok := s.TryDetect(img, gray)
		if !ok || cand.Region.Empty() {
			d.sink.Emit(trace.StrategySkipped{Strategy: s.Name(), Reason: "no candidate"})
			continue
		}
		d.sink.Emit(trace.CandidateScored{
			Strategy: cand.Strategy,
			Score:    cand.Score,
			X:        cand.Region.X,
			Y:        cand.Region.Y,
			Width:    cand.Region.Width,
			Height:   cand.Region.Height,
		})
		return cand.Region
	}

	d.sink.Emit(trace.FallbackUsed{Component: "detect", Fallback: "border-crop"})
	return d.fallbackRegion(w, h)
}

// fallbackRegion insets the image by a fixed fraction per side, dropping
// the margins where clutter concentrates while keeping nearly all content.
func (d *Detector) fallbackRegion(w, h int) Region {
	insetX := int(float64(w) * d.cfg.FallbackBorderFraction)
	insetY := int(float64(h) * d.cfg.FallbackBorderFraction)
	r := Region{X: insetX, Y: insetY, Width: w - 2*insetX, Height: h - 2*insetY}
	if r.Empty() {
		return Region{Width: w, Height: h}
	}
	return r
}
