package detect

import (
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/docsquare/docsquare/internal/cv"
)

// Strategy proposes a crop region from one view of the image. Strategies
// never return errors; an unusable image simply yields no candidate.
type Strategy interface {
	Name() string
	TryDetect(img image.Image, gray *image.Gray) (Candidate, bool)
}

// contourStrategy binarizes the image several ways, extracts contours from
// each mask, and scores the candidates on coverage, rectangularity, and
// aspect ratio. It is the primary strategy: most documents present as a
// large near-rectangular blob under at least one binarization.
type contourStrategy struct {
	cfg Config
}

func (contourStrategy) Name() string { return "contour" }

// binarizationLadder pairs adaptive block sizes with their offsets, from
// fine local detail to broad regional contrast.
var binarizationLadder = [4]struct {
	block int
	c     float64
}{
	{11, 2}, {15, 5}, {21, 8}, {31, 12},
}

func (s contourStrategy) TryDetect(img image.Image, gray *image.Gray) (Candidate, bool) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()

	masks := make([]*image.Gray, 0, len(binarizationLadder)+2)
	for _, step := range binarizationLadder {
		masks = append(masks, cv.AdaptiveThreshold(gray, step.block, step.c))
	}
	masks = append(masks, cv.OtsuThreshold(gray))
	masks = append(masks, cv.Close(cv.Canny(gray, 30, 100), 2, 2))

	best := Candidate{Strategy: s.Name()}
	found := false
	for _, mask := range masks {
		// Documents are lighter than their surroundings; the thresholded
		// foreground is the background, so trace the inverse.
		contours := cv.FindContours(cv.Invert(mask))
		sortByArea(contours)
		if len(contours) > 5 {
			contours = contours[:5]
		}
		for _, c := range contours {
			cand, ok := s.score(c, w, h)
			if ok && (!found || cand.Score > best.Score) {
				best = cand
				found = true
			}
		}
	}
	return best, found
}

// score combines coverage, rectangularity, and aspect credit, then applies
// the area and score gates. Coverage is the contour's own area, not its
// bounding box: a thin diagonal stroke spans a large box but encloses
// almost nothing and must not pass the gate. The box is only the crop shape
// handed back to the caller.
func (s contourStrategy) score(c cv.Contour, w, h int) (Candidate, bool) {
	ratio := c.Area() / (float64(w) * float64(h))
	if ratio < s.cfg.MinAreaRatio || ratio > s.cfg.MaxAreaRatio {
		return Candidate{}, false
	}

	hullArea := cv.PolygonArea(cv.ConvexHull(c.Points))
	rectangularity := 0.0
	if hullArea > 0 {
		rectangularity = c.Area() / hullArea
	}

	rw, rh := cv.MinAreaRect(c.Points)
	long, short := rw, rh
	if short > long {
		long, short = short, long
	}
	aspectCredit := 0.5
	if long > 0 && short/long >= s.cfg.AspectFullCredit {
		aspectCredit = 1.0
	}

	score := ratio * rectangularity * aspectCredit
	if score <= s.cfg.MinScore {
		return Candidate{}, false
	}
	region := RegionFromRect(c.BoundingRect()).Clamp(w, h)
	return Candidate{Region: region, Score: score, Strategy: s.Name()}, true
}

// edgeStrategy finds the largest closed edge structure. It recovers
// documents whose interior matches the background but whose outline still
// produces strong gradients.
type edgeStrategy struct {
	cfg Config
}

func (edgeStrategy) Name() string { return "edge" }

func (s edgeStrategy) TryDetect(img image.Image, gray *image.Gray) (Candidate, bool) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()

	edges := cv.Close(cv.Canny(gray, 50, 150), 3, 3)
	contours := cv.FindContours(edges)
	if len(contours) == 0 {
		return Candidate{}, false
	}
	sortByArea(contours)
	largest := contours[0]

	ratio := largest.Area() / (float64(w) * float64(h))
	if ratio < s.cfg.EdgeMinAreaRatio || ratio > s.cfg.EdgeMaxAreaRatio {
		return Candidate{}, false
	}
	region := RegionFromRect(largest.BoundingRect()).Clamp(w, h)
	return Candidate{Region: region, Score: ratio, Strategy: s.Name()}, true
}

// colorStrategy masks pixels matching common document colors (plain light
// paper, red and blue forms) in HSV space and takes the largest surviving
// blob. It handles documents whose edges are invisible to gradient methods
// but whose color separates cleanly from the background.
type colorStrategy struct {
	cfg Config
}

func (colorStrategy) Name() string { return "color" }

// documentColorMask holds one HSV predicate for a document color family.
type documentColorMask struct {
	name  string
	match func(h, s, v float64) bool
}

var documentColorMasks = []documentColorMask{
	{"light", func(h, s, v float64) bool {
		return s <= 80.0/255 && v >= 180.0/255
	}},
	{"red", func(h, s, v float64) bool {
		return (h <= 20 || h >= 340) && s >= 50.0/255 && v >= 50.0/255
	}},
	{"blue", func(h, s, v float64) bool {
		return h >= 200 && h <= 260 && s >= 50.0/255 && v >= 50.0/255
	}},
}

func (s colorStrategy) TryDetect(img image.Image, gray *image.Gray) (Candidate, bool) {
	// Hue masks are meaningless on single-channel input.
	if _, ok := img.(*image.Gray); ok {
		return Candidate{}, false
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	best := Candidate{Strategy: s.Name()}
	found := false
	for _, dc := range documentColorMasks {
		mask := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				col, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
				if !ok {
					continue
				}
				hue, sat, val := col.Hsv()
				if dc.match(hue, sat, val) {
					mask.Pix[y*mask.Stride+x] = 255
				}
			}
		}
		cleaned := cv.Open(cv.Close(mask, 2, 2), 2, 1)
		contours := cv.FindContours(cleaned)
		if len(contours) == 0 {
			continue
		}
		sortByArea(contours)
		ratio := contours[0].Area() / (float64(w) * float64(h))
		if ratio <= s.cfg.ColorMinAreaRatio {
			continue
		}
		if !found || ratio > best.Score {
			region := RegionFromRect(contours[0].BoundingRect()).Clamp(w, h)
			best = Candidate{Region: region, Score: ratio, Strategy: s.Name()}
			found = true
		}
	}
	return best, found
}

// statStrategy thresholds the gradient magnitude at its 75th percentile and
// takes the bounding box of everything that survives. It is the last
// content-driven resort: any visual activity at all yields a region.
type statStrategy struct {
	cfg Config
}

func (statStrategy) Name() string { return "statistical" }

func (s statStrategy) TryDetect(img image.Image, gray *image.Gray) (Candidate, bool) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()

	magnitude := cv.SobelMagnitude(gray)
	mask := cv.Close(cv.ThresholdAbove(magnitude, cv.Percentile(magnitude.Pix, 75)), 2, 1)

	mb := mask.Bounds()
	var pts []image.Point
	for y := mb.Min.Y; y < mb.Max.Y; y++ {
		for x := mb.Min.X; x < mb.Max.X; x++ {
			if mask.GrayAt(x, y).Y >= 128 {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	if len(pts) == 0 {
		return Candidate{}, false
	}

	region := RegionFromRect(cv.BoundingRect(pts)).Clamp(w, h)
	ratio := region.AreaRatio(w, h)
	if ratio < s.cfg.StatMinAreaRatio || ratio > s.cfg.StatMaxAreaRatio {
		return Candidate{}, false
	}
	return Candidate{Region: region, Score: ratio, Strategy: s.Name()}, true
}

func sortByArea(contours []cv.Contour) {
	sort.Slice(contours, func(i, j int) bool {
		return contours[i].Area() > contours[j].Area()
	})
}
