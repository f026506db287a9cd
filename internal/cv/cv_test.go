package cv

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
)

// grayImage creates a solid grayscale test image
func grayImage(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// fillRect paints a filled rectangle onto a grayscale image
func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// stripeImage creates a white image with black horizontal bars, a stand-in
// for document text rows
func stripeImage(width, height int) *image.Gray {
	img := grayImage(width, height, 255)
	for y := 30; y < height-30; y += 20 {
		fillRect(img, image.Rect(40, y, width-40, y+5), 0)
	}
	return img
}

func countForeground(mask *image.Gray) int {
	n := 0
	for _, v := range mask.Pix {
		if v >= 128 {
			n++
		}
	}
	return n
}

func TestToGrayNormalizesOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 7, 25, 27))
	g := ToGray(src)
	if g.Bounds() != image.Rect(0, 0, 20, 20) {
		t.Errorf("expected origin-normalized bounds, got %v", g.Bounds())
	}
}

func TestInvertRoundTrip(t *testing.T) {
	img := grayImage(10, 10, 200)
	img.SetGray(3, 4, color.Gray{Y: 17})
	back := Invert(Invert(img))
	if back.GrayAt(3, 4).Y != 17 || back.GrayAt(0, 0).Y != 200 {
		t.Errorf("double inversion changed pixel values")
	}
}

func TestCannyVerticalEdge(t *testing.T) {
	img := grayImage(64, 64, 0)
	fillRect(img, image.Rect(32, 0, 64, 64), 255)

	edges := Canny(img, 50, 150)

	near, far := 0, 0
	b := edges.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if edges.GrayAt(x, y).Y < 128 {
				continue
			}
			if x >= 28 && x <= 36 {
				near++
			} else if x < 20 || x > 44 {
				far++
			}
		}
	}
	if near == 0 {
		t.Errorf("no edge pixels found near the intensity step")
	}
	if far > 0 {
		t.Errorf("found %d edge pixels far from the only edge", far)
	}
}

func TestOtsuLevelBimodal(t *testing.T) {
	img := grayImage(40, 40, 40)
	fillRect(img, image.Rect(0, 20, 40, 40), 200)

	level := OtsuLevel(img)
	if level < 40 || level >= 200 {
		t.Errorf("Otsu level %d outside the bimodal gap", level)
	}

	mask := OtsuThreshold(img)
	fg := countForeground(mask)
	if fg < 700 || fg > 900 {
		t.Errorf("expected roughly half the pixels as foreground, got %d", fg)
	}
}

func TestAdaptiveThresholdUniform(t *testing.T) {
	img := grayImage(30, 30, 128)
	mask := AdaptiveThreshold(img, 11, 2)
	if countForeground(mask) != 30*30 {
		t.Errorf("uniform image above mean-c must be fully foreground")
	}
}

func TestDilateGrowsAndErodeShrinks(t *testing.T) {
	img := grayImage(50, 50, 0)
	fillRect(img, image.Rect(20, 20, 30, 30), 255)
	base := countForeground(img)

	if grown := countForeground(Dilate(img, 2)); grown <= base {
		t.Errorf("dilation did not grow foreground: %d <= %d", grown, base)
	}
	if shrunk := countForeground(Erode(img, 2)); shrunk >= base {
		t.Errorf("erosion did not shrink foreground: %d >= %d", shrunk, base)
	}
}

func TestCloseHorizontalMergesGlyphs(t *testing.T) {
	img := grayImage(60, 20, 0)
	// Two "glyphs" on one row, 6px apart.
	fillRect(img, image.Rect(10, 8, 20, 12), 255)
	fillRect(img, image.Rect(26, 8, 36, 12), 255)

	merged := CloseHorizontal(img, 15)
	if len(FindContours(merged)) != 1 {
		t.Errorf("expected glyphs to merge into one blob")
	}
}

func TestFindContoursRectangle(t *testing.T) {
	img := grayImage(100, 100, 0)
	fillRect(img, image.Rect(20, 30, 70, 80), 255)

	contours := FindContours(img)
	if len(contours) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(contours))
	}
	c := contours[0]
	if c.Pixels != 50*50 {
		t.Errorf("expected 2500 component pixels, got %d", c.Pixels)
	}
	if got := c.BoundingRect(); got != image.Rect(20, 30, 70, 80) {
		t.Errorf("bounding rect = %v", got)
	}
	if area := c.Area(); area < 2300 || area > 2500 {
		t.Errorf("contour area = %.0f, expected close to 2401", area)
	}
}

func TestConvexHullSquare(t *testing.T) {
	pts := []image.Point{
		{0, 0}, {10, 0}, {10, 10}, {0, 10},
		{5, 5}, {3, 7}, {8, 2},
	}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Errorf("expected 4 hull points, got %d: %v", len(hull), hull)
	}
}

func TestMinAreaRectAxisAligned(t *testing.T) {
	pts := []image.Point{{0, 0}, {10, 0}, {10, 6}, {0, 6}, {5, 3}}
	w, h := MinAreaRect(pts)
	long, short := math.Max(w, h), math.Min(w, h)
	if math.Abs(long-10) > 0.01 || math.Abs(short-6) > 0.01 {
		t.Errorf("MinAreaRect = %.2f x %.2f, expected 10 x 6", w, h)
	}
}

func TestApproxPolygonSquare(t *testing.T) {
	img := grayImage(100, 100, 0)
	fillRect(img, image.Rect(20, 30, 70, 80), 255)
	contours := FindContours(img)
	if len(contours) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(contours))
	}

	c := contours[0]
	poly := ApproxPolygon(c.Points, 0.02*c.Perimeter())
	if len(poly) != 4 {
		t.Errorf("expected square to simplify to 4 vertices, got %d", len(poly))
	}
}

func TestDetectSegmentsHorizontalLine(t *testing.T) {
	mask := grayImage(200, 100, 0)
	fillRect(mask, image.Rect(20, 50, 181, 51), 255)

	segments := DetectSegments(mask, 100, 100, 5)
	if len(segments) == 0 {
		t.Fatalf("no segments detected on a 161px line")
	}

	found := false
	for _, s := range segments {
		if s.Length() < 140 {
			continue
		}
		angle := math.Abs(math.Atan2(float64(s.Y2-s.Y1), float64(s.X2-s.X1)) * 180 / math.Pi)
		if angle <= 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no long near-horizontal segment among %v", segments)
	}
}

func TestLaplacianVariance(t *testing.T) {
	flat := grayImage(50, 50, 128)
	if v := LaplacianVariance(flat); v != 0 {
		t.Errorf("flat image variance = %f, expected 0", v)
	}

	checker := grayImage(50, 50, 0)
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			if (x+y)%2 == 0 {
				checker.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	if v := LaplacianVariance(checker); v < 1000 {
		t.Errorf("checkerboard variance = %f, expected large", v)
	}
}

func TestStretchContrast(t *testing.T) {
	img := grayImage(20, 20, 50)
	fillRect(img, image.Rect(0, 10, 20, 20), 150)

	out := StretchContrast(img, 0, 100)
	if out.GrayAt(0, 0).Y > 5 {
		t.Errorf("low percentile pixel = %d, expected near 0", out.GrayAt(0, 0).Y)
	}
	if out.GrayAt(0, 15).Y < 250 {
		t.Errorf("high percentile pixel = %d, expected near 255", out.GrayAt(0, 15).Y)
	}
}

func TestFitLineDirection(t *testing.T) {
	var pts []image.Point
	for i := 0; i < 40; i++ {
		pts = append(pts, image.Pt(i, i/2))
	}
	vx, vy := FitLineDirection(pts)
	if vx == 0 {
		t.Fatalf("degenerate direction")
	}
	slope := vy / vx
	if math.Abs(slope-0.5) > 0.05 {
		t.Errorf("fitted slope = %f, expected 0.5", slope)
	}
}

func TestWarpPerspectiveIdentity(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(x * 5)})
		}
	}
	quad := [4]Pointf{{0, 0}, {49, 0}, {49, 49}, {0, 49}}
	out := WarpPerspective(src, quad, 50, 50)
	if out == nil {
		t.Fatalf("identity warp returned nil")
	}
	got := ToGray(out).GrayAt(10, 10).Y
	want := src.GrayAt(10, 10).Y
	if int(got)-int(want) > 2 || int(want)-int(got) > 2 {
		t.Errorf("warped pixel = %d, expected %d", got, want)
	}
}

func TestEstimateSkewAngle(t *testing.T) {
	img := stripeImage(300, 200)

	if a := EstimateSkewAngle(img); math.Abs(a) > 0.5 {
		t.Errorf("straight stripes estimated at %.2f degrees", a)
	}

	rotated := ToGray(imaging.Rotate(img, 5, color.White))
	if a := EstimateSkewAngle(rotated); math.Abs(a-5) > 1 {
		t.Errorf("stripes rotated by 5 degrees estimated at %.2f", a)
	}
}

func TestRowProfileVariance(t *testing.T) {
	if flat, striped := RowProfileVariance(grayImage(100, 100, 128)), RowProfileVariance(stripeImage(100, 100)); striped <= flat {
		t.Errorf("striped variance %f not above flat variance %f", striped, flat)
	}
}
