package cv

import (
	"image"
	"math"
	"sort"
)

// Segment is a detected line segment in image coordinates.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(float64(s.X2-s.X1), float64(s.Y2-s.Y1))
}

// DetectSegments finds line segments in a binary edge mask using a Hough
// transform followed by gap-aware endpoint extraction.
//
// Parameters:
//   - mask: binary edge image (foreground >= 128)
//   - votes: minimum accumulator votes for a line to be considered
//   - minLength: minimum segment length in pixels
//   - maxGap: maximum gap in pixels between edge points merged into one segment
//
// Edge points vote for (rho, theta) cells at 1 degree resolution. Peaks that
// are local maxima in a 5x5 accumulator window are traced back to their
// supporting points, which are sorted along the line direction and split
// wherever consecutive points are farther apart than maxGap. At most 50
// peaks are examined, strongest first.
func DetectSegments(mask *image.Gray, votes, minLength, maxGap int) []Segment {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	var edges []image.Point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= 128 {
				edges = append(edges, image.Pt(x, y))
			}
		}
	}
	if len(edges) == 0 {
		return nil
	}

	maxDist := int(math.Hypot(float64(w), float64(h))) + 1
	numAngles := 180
	acc := make([][]int, 2*maxDist)
	for i := range acc {
		acc[i] = make([]int, numAngles)
	}

	sinTab := make([]float64, numAngles)
	cosTab := make([]float64, numAngles)
	for t := 0; t < numAngles; t++ {
		rad := float64(t) * math.Pi / 180
		sinTab[t] = math.Sin(rad)
		cosTab[t] = math.Cos(rad)
	}

	for _, p := range edges {
		for t := 0; t < numAngles; t++ {
			rho := float64(p.X)*cosTab[t] + float64(p.Y)*sinTab[t]
			idx := int(rho) + maxDist
			if idx >= 0 && idx < 2*maxDist {
				acc[idx][t]++
			}
		}
	}

	type peak struct {
		rho   int
		theta int
		votes int
	}
	var peaks []peak
	for r := 0; r < 2*maxDist; r++ {
		for t := 0; t < numAngles; t++ {
			v := acc[r][t]
			if v < votes {
				continue
			}
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr := r + dr
					nt := (t + dt + numAngles) % numAngles
					if nr >= 0 && nr < 2*maxDist && acc[nr][nt] > v {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{rho: r - maxDist, theta: t, votes: v})
			}
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].votes > peaks[j].votes })
	if len(peaks) > 50 {
		peaks = peaks[:50]
	}

	var segments []Segment
	for _, pk := range peaks {
		cosA := cosTab[pk.theta]
		sinA := sinTab[pk.theta]
		rho := float64(pk.rho)

		// Supporting points within 2px of the line, with their position
		// along the line direction.
		type linePoint struct {
			p image.Point
			d float64
		}
		var onLine []linePoint
		for _, p := range edges {
			dist := math.Abs(float64(p.X)*cosA + float64(p.Y)*sinA - rho)
			if dist < 2 {
				// Direction along the line is (-sin, cos).
				d := -float64(p.X)*sinA + float64(p.Y)*cosA
				onLine = append(onLine, linePoint{p: p, d: d})
			}
		}
		if len(onLine) < 2 {
			continue
		}
		sort.Slice(onLine, func(i, j int) bool { return onLine[i].d < onLine[j].d })

		runStart := 0
		flush := func(endIdx int) {
			a := onLine[runStart].p
			bp := onLine[endIdx].p
			seg := Segment{X1: a.X, Y1: a.Y, X2: bp.X, Y2: bp.Y}
			if seg.Length() >= float64(minLength) {
				segments = append(segments, seg)
			}
		}
		for i := 1; i < len(onLine); i++ {
			if onLine[i].d-onLine[i-1].d > float64(maxGap) {
				flush(i - 1)
				runStart = i
			}
		}
		flush(len(onLine) - 1)
	}
	return segments
}
