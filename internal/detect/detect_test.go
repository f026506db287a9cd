package detect

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/docsquare/docsquare/internal/cv"
)

// sceneImage creates a dark background with a white document sheet
func sceneImage(width, height int, doc image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{R: 40, G: 40, B: 40, A: 255}
			if image.Pt(x, y).In(doc) {
				c = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func uniformImage(width, height int, v uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestDetectorFindsDocument(t *testing.T) {
	doc := image.Rect(80, 80, 320, 320)
	img := sceneImage(400, 400, doc)

	region := NewDetector(DefaultConfig(), nil).Detect(img)
	if region.Empty() {
		t.Fatalf("no region detected")
	}

	r := region.Rect()
	if !r.In(image.Rect(0, 0, 400, 400)) {
		t.Errorf("region %v exceeds image bounds", r)
	}
	if !image.Pt(200, 200).In(r) {
		t.Errorf("region %v does not contain the document center", r)
	}
	if ratio := region.AreaRatio(400, 400); ratio < 0.15 || ratio > 0.7 {
		t.Errorf("region covers %.2f of the image, expected near 0.36", ratio)
	}
}

func TestDetectorFallbackOnUniformImage(t *testing.T) {
	region := NewDetector(DefaultConfig(), nil).Detect(uniformImage(400, 400, 128))

	want := Region{X: 20, Y: 20, Width: 360, Height: 360}
	if region != want {
		t.Errorf("fallback region = %+v, want %+v", region, want)
	}
}

func TestQuadDetectorFindsSquare(t *testing.T) {
	doc := image.Rect(80, 80, 320, 320)
	img := sceneImage(400, 400, doc)

	quad, ok := NewQuadDetector(DefaultQuadConfig(), nil).Detect(img)
	if !ok {
		t.Fatalf("no quadrilateral detected")
	}

	want := [4][2]float64{
		{80, 80}, {320, 80}, {320, 320}, {80, 320},
	}
	for i, corner := range quad {
		dx := corner.X - want[i][0]
		dy := corner.Y - want[i][1]
		if math.Hypot(dx, dy) > 8 {
			t.Errorf("corner %d = (%.0f, %.0f), want near (%.0f, %.0f)",
				i, corner.X, corner.Y, want[i][0], want[i][1])
		}
	}
}

func TestQuadDetectorRejectsUniformImage(t *testing.T) {
	if _, ok := NewQuadDetector(DefaultQuadConfig(), nil).Detect(uniformImage(300, 300, 128)); ok {
		t.Errorf("detected a quadrilateral in a featureless image")
	}
}

func TestContourStrategyRejectsThinDiagonal(t *testing.T) {
	// A thin dark stroke spans a huge bounding box but encloses almost no
	// area; it must fail the coverage gate instead of winning a crop.
	img := uniformImage(400, 400, 230)
	for x := 0; x < 280; x++ {
		for dy := -4; dy <= 4; dy++ {
			if x+dy >= 0 && x+dy < 400 {
				img.SetNRGBA(x, x+dy, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
			}
		}
	}

	s := contourStrategy{cfg: DefaultConfig()}
	if cand, ok := s.TryDetect(img, cv.ToGray(img)); ok {
		t.Errorf("accepted diagonal stroke: region %+v score %.3f", cand.Region, cand.Score)
	}
}

func TestScoreQuadRejectsRaggedContour(t *testing.T) {
	d := NewQuadDetector(DefaultQuadConfig(), nil)
	poly := [4]image.Point{{80, 80}, {320, 80}, {320, 320}, {80, 320}}

	clean := cv.Contour{Points: []image.Point{{80, 80}, {320, 80}, {320, 320}, {80, 320}}}
	if score, ok := d.scoreQuad(poly, clean, 400, 400); !ok || score <= 0 {
		t.Fatalf("clean square rejected: score %.3f ok %v", score, ok)
	}

	// A square with a deep bite out of its top edge simplifies to the same
	// four corners, but the ragged outline covers only 2/3 of its hull.
	ragged := cv.Contour{Points: []image.Point{
		{80, 80}, {140, 80}, {140, 240}, {260, 240}, {260, 80}, {320, 80},
		{320, 320}, {80, 320},
	}}
	if score, ok := d.scoreQuad(poly, ragged, 400, 400); ok {
		t.Errorf("accepted ragged contour behind a clean quad: score %.3f", score)
	}
}

func TestColorStrategySkipsGrayscale(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range gray.Pix {
		gray.Pix[i] = 240
	}
	s := colorStrategy{cfg: DefaultConfig()}
	if _, ok := s.TryDetect(gray, gray); ok {
		t.Errorf("color strategy produced a candidate from single-channel input")
	}
}

func TestRedAccentBand(t *testing.T) {
	var red documentColorMask
	for _, m := range documentColorMasks {
		if m.name == "red" {
			red = m
		}
	}
	if red.match == nil {
		t.Fatalf("red mask missing")
	}
	if !red.match(15, 0.8, 0.8) {
		t.Errorf("hue 15 should be inside the red band")
	}
	if red.match(30, 0.8, 0.8) {
		t.Errorf("hue 30 should be outside the red band")
	}
}

func TestRegionClamp(t *testing.T) {
	r := Region{X: -10, Y: -10, Width: 500, Height: 500}.Clamp(400, 400)
	if r != (Region{X: 0, Y: 0, Width: 400, Height: 400}) {
		t.Errorf("clamped region = %+v", r)
	}

	if out := (Region{X: 500, Y: 500, Width: 10, Height: 10}).Clamp(400, 400); !out.Empty() {
		t.Errorf("region outside the image should clamp to empty, got %+v", out)
	}
}

func TestRegionAreaRatio(t *testing.T) {
	r := Region{X: 0, Y: 0, Width: 100, Height: 50}
	if ratio := r.AreaRatio(200, 100); math.Abs(ratio-0.25) > 1e-9 {
		t.Errorf("area ratio = %v, want 0.25", ratio)
	}
	if ratio := r.AreaRatio(0, 0); ratio != 0 {
		t.Errorf("area ratio of empty image = %v", ratio)
	}
}
