// Package pipeline assembles detection, rectification, skew estimation, and
// rotation correction into the end-to-end document processing flow.
//
// A Processor runs one image through a fixed stage sequence: quality gate,
// preprocess, detect and crop, estimate skew, correct rotation, finalize.
// Images rejected by the quality gate take a minimal path that pads the
// original and reports a zero angle instead of failing the request.
package pipeline

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/docsquare/docsquare/internal/cv"
	"github.com/docsquare/docsquare/internal/detect"
	"github.com/docsquare/docsquare/internal/geometry"
	"github.com/docsquare/docsquare/internal/skew"
	"github.com/docsquare/docsquare/internal/trace"
)

// ErrInvalidInput reports a nil or zero-area input image.
var ErrInvalidInput = errors.New("pipeline: invalid input image")

// Mode selects how the document is located and cropped.
type Mode string

const (
	// ModeRegion uses the axis-aligned region strategy chain with its
	// border-crop fallback. The default.
	ModeRegion Mode = "region"

	// ModeQuad uses strict quadrilateral detection with perspective
	// rectification, processing the whole image when no quad is found.
	ModeQuad Mode = "quad"
)

// Backend selects the skew estimation implementation.
type Backend string

const (
	// BackendMulti fuses the line, text-row, and projection strategies.
	// The default.
	BackendMulti Backend = "multi"

	// BackendDelegated uses the single projection-profile primitive.
	BackendDelegated Backend = "delegated"
)

// Config collects the pipeline-level thresholds and the nested component
// configurations.
type Config struct {
	// MinDimension is the smallest acceptable input width and height.
	MinDimension int

	// BlurVarianceFloor is the minimum Laplacian variance; blurrier
	// images take the minimal path.
	BlurVarianceFloor float64

	// MinBrightness and MaxBrightness bound the acceptable mean luminance.
	MinBrightness float64
	MaxBrightness float64

	// DetectMode selects region or quadrilateral detection.
	DetectMode Mode

	// DeskewBackend selects the skew estimator.
	DeskewBackend Backend

	// FinalBorder is the white border, in pixels, added around fully
	// processed output.
	FinalBorder int

	// MinimalBorder is the white border added on the minimal path.
	MinimalBorder int

	// MinOutputDimension is the smallest allowed output dimension; smaller
	// results are upscaled preserving aspect ratio.
	MinOutputDimension int

	Detect detect.Config
	Quad   detect.QuadConfig
	Skew   skew.Config
}

// DefaultConfig returns the tuned pipeline parameters.
func DefaultConfig() Config {
	return Config{
		MinDimension:       100,
		BlurVarianceFloor:  50,
		MinBrightness:      20,
		MaxBrightness:      240,
		DetectMode:         ModeRegion,
		DeskewBackend:      BackendMulti,
		FinalBorder:        30,
		MinimalBorder:      40,
		MinOutputDimension: 600,
		Detect:             detect.DefaultConfig(),
		Quad:               detect.DefaultQuadConfig(),
		Skew:               skew.DefaultConfig(),
	}
}

// Result is the outcome of processing one image.
type Result struct {
	// Image is the processed output.
	Image image.Image

	// RotationAngle is the skew that was corrected, in degrees. Zero on
	// the minimal path and when no correction was needed.
	RotationAngle float64
}

// Processor runs images through the document processing stages. A Processor
// is not safe for concurrent use; create one per worker.
type Processor struct {
	cfg      Config
	sink     trace.Sink
	detector *detect.Detector
	quads    *detect.QuadDetector
	deskewer skew.Deskewer
}

// NewProcessor builds a Processor from the configuration. A nil sink
// disables tracing.
func NewProcessor(cfg Config, sink trace.Sink) *Processor {
	if sink == nil {
		sink = trace.NopSink{}
	}
	var deskewer skew.Deskewer
	if cfg.DeskewBackend == BackendDelegated {
		deskewer = skew.NewDelegated(sink)
	} else {
		deskewer = skew.NewMultiStrategy(cfg.Skew, sink)
	}
	return &Processor{
		cfg:      cfg,
		sink:     sink,
		detector: detect.NewDetector(cfg.Detect, sink),
		quads:    detect.NewQuadDetector(cfg.Quad, sink),
		deskewer: deskewer,
	}
}

// Process runs img through the full pipeline.
func (p *Processor) Process(img image.Image) (*Result, error) {
	if img == nil {
		return nil, ErrInvalidInput
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrInvalidInput
	}

	if reason, blurVar, brightness, ok := p.qualityGate(img); !ok {
		p.sink.Emit(trace.QualityRejected{Reason: reason, Blur: blurVar, Brightness: brightness})
		return p.minimalProcess(img), nil
	}

	detectInput := p.stagePreprocess(img)
	cropped := p.stageDetectCrop(img, detectInput)
	angle := p.stageEstimate(cropped)
	corrected := p.stageCorrect(cropped, angle)
	final := p.stageFinalize(corrected)

	return &Result{Image: final, RotationAngle: angle}, nil
}

// qualityGate rejects images too small, too blurred, or too dark or bright
// for the content-driven stages to work with.
func (p *Processor) qualityGate(img image.Image) (reason string, blurVar, brightness float64, ok bool) {
	b := img.Bounds()
	if b.Dx() < p.cfg.MinDimension || b.Dy() < p.cfg.MinDimension {
		return "too-small", 0, 0, false
	}
	gray := cv.ToGray(img)
	blurVar = cv.LaplacianVariance(gray)
	brightness = cv.MeanLuminance(gray)
	if blurVar < p.cfg.BlurVarianceFloor {
		return "blurred", blurVar, brightness, false
	}
	if brightness < p.cfg.MinBrightness {
		return "too-dark", blurVar, brightness, false
	}
	if brightness > p.cfg.MaxBrightness {
		return "too-bright", blurVar, brightness, false
	}
	return "", blurVar, brightness, true
}

// minimalProcess pads the unmodified image with a white border and reports
// no rotation.
func (p *Processor) minimalProcess(img image.Image) *Result {
	return &Result{Image: addBorder(img, p.cfg.MinimalBorder), RotationAngle: 0}
}

// stagePreprocess denoises the image for detection. The original pixels are
// retained for cropping; only the detectors see the filtered copy.
func (p *Processor) stagePreprocess(img image.Image) image.Image {
	start := time.Now()
	out := effect.Median(img, 3)
	p.stageDone("preprocess", start)
	return out
}

// stageDetectCrop locates the document on the preprocessed image and cuts
// it out of the original.
func (p *Processor) stageDetectCrop(img, detectInput image.Image) image.Image {
	start := time.Now()
	defer func() { p.stageDone("detect-crop", start) }()

	if p.cfg.DetectMode == ModeQuad {
		quad, ok := p.quads.Detect(detectInput)
		if ok {
			min := img.Bounds().Min
			shifted := [4]geometry.Point{}
			for i, q := range quad {
				shifted[i] = geometry.Point{X: q.X + float64(min.X), Y: q.Y + float64(min.Y)}
			}
			if rectified := geometry.Rectify(img, shifted); rectified != nil {
				return rectified
			}
		}
		p.sink.Emit(trace.FallbackUsed{Component: "detect", Fallback: "whole-image"})
		return imaging.Clone(img)
	}

	region := p.detector.Detect(detectInput)
	if region.Empty() {
		p.sink.Emit(trace.FallbackUsed{Component: "detect", Fallback: "whole-image"})
		return imaging.Clone(img)
	}
	return imaging.Crop(img, region.Rect().Add(img.Bounds().Min))
}

// stageEstimate measures residual skew on a contrast-stretched view of the
// cropped document.
func (p *Processor) stageEstimate(cropped image.Image) float64 {
	start := time.Now()
	stretched := cv.StretchContrast(cv.ToGray(cropped), 2, 98)
	angle := p.deskewer.EstimateAngle(stretched)
	p.stageDone("estimate-skew", start)
	return angle
}

func (p *Processor) stageCorrect(img image.Image, angle float64) image.Image {
	start := time.Now()
	out := p.deskewer.CorrectRotation(img, angle)
	p.stageDone("correct-rotation", start)
	return out
}

// stageFinalize upscales small results, lightly smooths resampling noise,
// and frames the output in a white border.
func (p *Processor) stageFinalize(img image.Image) image.Image {
	start := time.Now()
	defer func() { p.stageDone("finalize", start) }()

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < p.cfg.MinOutputDimension || h < p.cfg.MinOutputDimension {
		if w <= h {
			img = imaging.Resize(img, p.cfg.MinOutputDimension, 0, imaging.CatmullRom)
		} else {
			img = imaging.Resize(img, 0, p.cfg.MinOutputDimension, imaging.CatmullRom)
		}
	}
	smoothed := blur.Gaussian(img, 0.5)
	return addBorder(smoothed, p.cfg.FinalBorder)
}

func (p *Processor) stageDone(stage string, start time.Time) {
	p.sink.Emit(trace.StageCompleted{
		Stage:          stage,
		DurationMillis: float64(time.Since(start).Microseconds()) / 1000,
	})
}

// addBorder draws img centered on a white canvas extended by px on every
// side.
func addBorder(img image.Image, px int) *image.NRGBA {
	if px < 0 {
		px = 0
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx()+2*px, b.Dy()+2*px))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(px, px, px+b.Dx(), px+b.Dy()), img, b.Min, draw.Src)
	return out
}
