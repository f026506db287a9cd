// Package skew estimates the rotational skew of a document image and
// corrects it.
//
// Two backends implement the Deskewer capability set. The multi-strategy
// backend (the default) runs three independent estimators - Hough line
// analysis, text-row blob fitting, and a projection-profile sweep - rejects
// outliers against their median, and fuses the survivors by weighted
// average. The delegated backend hands the whole measurement to the single
// projection-profile primitive in the cv package and performs no fusion; it
// is a simpler, lower-fidelity substitute selectable by configuration.
//
// All angles are in degrees, positive meaning the content is tilted
// counter-clockwise; correction therefore rotates by the negated angle.
package skew

import (
	"image"

	"github.com/docsquare/docsquare/internal/cv"
	"github.com/docsquare/docsquare/internal/rotate"
	"github.com/docsquare/docsquare/internal/trace"
)

// Deskewer is the capability set shared by both backends: measure a skew
// angle and apply its correction.
type Deskewer interface {
	// EstimateAngle returns the measured skew in degrees. It always
	// returns a value; total estimation failure yields 0.
	EstimateAngle(img image.Image) float64

	// CorrectRotation undoes a measured skew, expanding the canvas so no
	// content is clipped.
	CorrectRotation(img image.Image, angle float64) image.Image
}

// Config collects the estimation thresholds in one tunable structure.
type Config struct {
	// LineWeight, TextRowWeight, ProjectionWeight are the fixed
	// per-strategy reliability priors used during fusion.
	LineWeight       float64
	TextRowWeight    float64
	ProjectionWeight float64

	// MaxStrategyAngle gates each strategy's fused output: estimates with
	// larger magnitude are discarded before fusion.
	MaxStrategyAngle float64

	// MaxLineAngle and MaxTextAngle gate individual line and text-row
	// measurements inside their strategies.
	MaxLineAngle float64
	MaxTextAngle float64

	// OutlierDeviation is the maximum allowed deviation from the median
	// of surviving estimates; estimates farther out are discarded.
	OutlierDeviation float64

	// SweepLimit and SweepStep define the projection-profile search range
	// [-SweepLimit, SweepLimit] and its step, both in degrees.
	SweepLimit float64
	SweepStep  float64

	// TextRowCloseWidth is the horizontal structuring element width used
	// to merge glyphs into text-row blobs.
	TextRowCloseWidth int

	// MinTextRowArea is the minimum contour area of a text-row blob.
	MinTextRowArea float64
}

// DefaultConfig returns the tuned estimation parameters.
func DefaultConfig() Config {
	return Config{
		LineWeight:        0.6,
		TextRowWeight:     0.3,
		ProjectionWeight:  0.1,
		MaxStrategyAngle:  30,
		MaxLineAngle:      30,
		MaxTextAngle:      25,
		OutlierDeviation:  10,
		SweepLimit:        15,
		SweepStep:         3,
		TextRowCloseWidth: 20,
		MinTextRowArea:    50,
	}
}

// estimate is one strategy's measurement with its reliability prior.
type estimate struct {
	angle  float64
	weight float64
}

// MultiStrategy fuses three independent skew estimators.
type MultiStrategy struct {
	cfg       Config
	sink      trace.Sink
	corrector *rotate.Corrector
}

// NewMultiStrategy builds the default deskew backend. A nil sink disables
// tracing.
func NewMultiStrategy(cfg Config, sink trace.Sink) *MultiStrategy {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &MultiStrategy{cfg: cfg, sink: sink, corrector: rotate.NewCorrector()}
}

// EstimateAngle runs all strategies, filters outliers against the median of
// the surviving estimates, and returns their weighted average. Returns 0
// when no strategy produces an in-range estimate.
func (m *MultiStrategy) EstimateAngle(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0
	}
	gray := cv.ToGray(img)

	var estimates []estimate
	add := func(name string, angle float64, ok bool, weight float64) {
		if !ok {
			m.sink.Emit(trace.StrategySkipped{Strategy: name, Reason: "no measurement"})
			return
		}
		if angle > m.cfg.MaxStrategyAngle || angle < -m.cfg.MaxStrategyAngle {
			m.sink.Emit(trace.StrategySkipped{Strategy: name, Reason: "out of range"})
			return
		}
		estimates = append(estimates, estimate{angle: angle, weight: weight})
	}

	lineAngle, lineOK := m.lineAngle(gray)
	add("line", lineAngle, lineOK, m.cfg.LineWeight)

	textAngle, textOK := m.textRowAngle(gray)
	add("text-row", textAngle, textOK, m.cfg.TextRowWeight)

	projAngle, projOK := m.projectionAngle(gray)
	add("projection", projAngle, projOK, m.cfg.ProjectionWeight)

	if len(estimates) == 0 {
		m.sink.Emit(trace.FallbackUsed{Component: "skew", Fallback: "zero-angle"})
		return 0
	}

	if len(estimates) > 1 {
		angles := make([]float64, len(estimates))
		for i, e := range estimates {
			angles[i] = e.angle
		}
		med := median(angles)
		kept := estimates[:0]
		for _, e := range estimates {
			if e.angle-med <= m.cfg.OutlierDeviation && med-e.angle <= m.cfg.OutlierDeviation {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			estimates = kept
		}
	}

	totalWeight := 0.0
	for _, e := range estimates {
		totalWeight += e.weight
	}
	fused := 0.0
	for _, e := range estimates {
		fused += e.angle * (e.weight / totalWeight)
	}
	m.sink.Emit(trace.AngleEstimated{AngleDegrees: fused, Strategies: len(estimates)})
	return fused
}

// CorrectRotation applies the angle-aware rotation correction.
func (m *MultiStrategy) CorrectRotation(img image.Image, angle float64) image.Image {
	return m.corrector.Correct(img, angle)
}

// Delegated hands angle measurement to the single projection-profile
// primitive and performs no fusion.
type Delegated struct {
	sink      trace.Sink
	corrector *rotate.Corrector
}

// NewDelegated builds the simplified deskew backend.
func NewDelegated(sink trace.Sink) *Delegated {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &Delegated{sink: sink, corrector: rotate.NewCorrector()}
}

// EstimateAngle delegates to the sealed estimation primitive.
func (d *Delegated) EstimateAngle(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0
	}
	angle := cv.EstimateSkewAngle(cv.ToGray(img))
	d.sink.Emit(trace.AngleEstimated{AngleDegrees: angle, Strategies: 1})
	return angle
}

// CorrectRotation applies the angle-aware rotation correction.
func (d *Delegated) CorrectRotation(img image.Image, angle float64) image.Image {
	return d.corrector.Correct(img, angle)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
