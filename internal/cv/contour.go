package cv

import (
	"image"
	"math"
)

// Contour is the traced outer boundary of a connected foreground component,
// ordered clockwise in image coordinates, plus the component's pixel count.
type Contour struct {
	Points []image.Point
	Pixels int
}

// FindContours extracts the external contours of all 8-connected foreground
// components of a binary mask (foreground >= 128). Components smaller than
// 10 pixels are discarded as noise. Each returned contour is the ordered
// outer boundary of its component.
func FindContours(mask *image.Gray) []Contour {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)
	isSet := func(x, y int) bool {
		if x < 0 || x >= w || y < 0 || y >= h {
			return false
		}
		return mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= 128
	}

	var contours []Contour
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || !isSet(x, y) {
				continue
			}
			component := floodFill(isSet, visited, x, y, w, h)
			if len(component) < 10 {
				continue
			}
			// The scan order guarantees (x, y) is the topmost-leftmost
			// pixel of the component, the canonical trace start.
			inComponent := makeMembership(component)
			boundary := traceBoundary(inComponent, image.Pt(x, y))
			contours = append(contours, Contour{Points: boundary, Pixels: len(component)})
		}
	}
	return contours
}

// floodFill collects an 8-connected component iteratively, marking visited.
func floodFill(isSet func(x, y int) bool, visited []bool, startX, startY, w, h int) []image.Point {
	stack := []image.Point{{X: startX, Y: startY}}
	var component []image.Point
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		if visited[p.Y*w+p.X] || !isSet(p.X, p.Y) {
			continue
		}
		visited[p.Y*w+p.X] = true
		component = append(component, p)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Pt(p.X+dx, p.Y+dy))
			}
		}
	}
	return component
}

func makeMembership(component []image.Point) func(image.Point) bool {
	set := make(map[image.Point]struct{}, len(component))
	for _, p := range component {
		set[p] = struct{}{}
	}
	return func(p image.Point) bool {
		_, ok := set[p]
		return ok
	}
}

// moore is the 8-neighborhood in clockwise order starting East.
var moore = [8]image.Point{
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
}

// traceBoundary follows the outer boundary of a component clockwise using
// Moore-neighbor tracing, starting at the component's topmost-leftmost
// pixel. The trace stops upon returning to the start pixel.
func traceBoundary(inComponent func(image.Point) bool, start image.Point) []image.Point {
	boundary := []image.Point{start}
	cur := start
	// The pixel west of the start is background, so begin the clockwise
	// sweep just past it.
	backtrack := 4
	limit := 0
	for {
		next := -1
		for i := 0; i < 8; i++ {
			d := (backtrack + 1 + i) % 8
			p := cur.Add(moore[d])
			if inComponent(p) {
				next = d
				cur = p
				break
			}
		}
		if next < 0 {
			// Isolated pixel.
			return boundary
		}
		if cur == start {
			return boundary
		}
		boundary = append(boundary, cur)
		backtrack = (next + 4) % 8
		limit++
		if limit > 8*len(boundary)+100000 {
			return boundary
		}
	}
}

// Area returns the area enclosed by the contour polygon (shoelace formula).
func (c Contour) Area() float64 {
	return PolygonArea(c.Points)
}

// Perimeter returns the closed-polygon perimeter of the contour.
func (c Contour) Perimeter() float64 {
	n := len(c.Points)
	if n < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		a := c.Points[i]
		b := c.Points[(i+1)%n]
		total += math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	}
	return total
}

// BoundingRect returns the axis-aligned bounding rectangle of the contour.
func (c Contour) BoundingRect() image.Rectangle {
	return BoundingRect(c.Points)
}

// BoundingRect returns the axis-aligned bounding rectangle of a point set.
// The rectangle is inclusive of the rightmost and bottommost pixels
// (Max = max coordinate + 1).
func BoundingRect(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// PolygonArea returns the absolute area of a closed polygon.
func PolygonArea(pts []image.Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		a := pts[i]
		b := pts[(i+1)%n]
		sum += float64(a.X)*float64(b.Y) - float64(b.X)*float64(a.Y)
	}
	return math.Abs(sum) / 2
}

// ConvexHull computes the convex hull of a point set using the monotone
// chain algorithm. The hull is returned in counter-clockwise order (in
// image coordinates) without the closing point.
func ConvexHull(pts []image.Point) []image.Point {
	n := len(pts)
	if n < 3 {
		out := make([]image.Point, n)
		copy(out, pts)
		return out
	}
	sorted := make([]image.Point, n)
	copy(sorted, pts)
	sortPoints(sorted)

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*n)
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func sortPoints(pts []image.Point) {
	// Lexicographic by X then Y; small slices, insertion sort keeps it simple.
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0; j-- {
			if pts[j].X < pts[j-1].X || (pts[j].X == pts[j-1].X && pts[j].Y < pts[j-1].Y) {
				pts[j], pts[j-1] = pts[j-1], pts[j]
			} else {
				break
			}
		}
	}
}

// MinAreaRect computes the side lengths of the minimum-area rotated
// rectangle enclosing a point set, via rotating calipers over the convex
// hull. Returns (0, 0) for fewer than 2 points.
func MinAreaRect(pts []image.Point) (width, height float64) {
	hull := ConvexHull(pts)
	if len(hull) < 2 {
		return 0, 0
	}
	if len(hull) == 2 {
		return math.Hypot(float64(hull[1].X-hull[0].X), float64(hull[1].Y-hull[0].Y)), 0
	}

	bestArea := math.MaxFloat64
	for i := 0; i < len(hull); i++ {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		ex := float64(b.X - a.X)
		ey := float64(b.Y - a.Y)
		length := math.Hypot(ex, ey)
		if length == 0 {
			continue
		}
		ex /= length
		ey /= length

		minU, maxU := math.MaxFloat64, -math.MaxFloat64
		minV, maxV := math.MaxFloat64, -math.MaxFloat64
		for _, p := range hull {
			u := float64(p.X)*ex + float64(p.Y)*ey
			v := -float64(p.X)*ey + float64(p.Y)*ex
			minU = math.Min(minU, u)
			maxU = math.Max(maxU, u)
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
		w := maxU - minU
		h := maxV - minV
		if w*h < bestArea {
			bestArea = w * h
			width, height = w, h
		}
	}
	return width, height
}

// ApproxPolygon simplifies a closed contour with the Douglas-Peucker
// algorithm using the given absolute distance tolerance. The contour is
// split at its two mutually farthest anchor points and each open chain is
// simplified independently.
func ApproxPolygon(pts []image.Point, epsilon float64) []image.Point {
	n := len(pts)
	if n < 3 {
		out := make([]image.Point, n)
		copy(out, pts)
		return out
	}

	// Anchor 0 and the point farthest from it.
	far := 0
	maxD := -1.0
	for i := 1; i < n; i++ {
		d := math.Hypot(float64(pts[i].X-pts[0].X), float64(pts[i].Y-pts[0].Y))
		if d > maxD {
			maxD = d
			far = i
		}
	}

	first := douglasPeucker(pts[:far+1], epsilon)
	second := append(append([]image.Point{}, pts[far:]...), pts[0])
	secondSimplified := douglasPeucker(second, epsilon)

	out := append([]image.Point{}, first...)
	// Skip the shared endpoints at both seams.
	if len(secondSimplified) > 2 {
		out = append(out, secondSimplified[1:len(secondSimplified)-1]...)
	}
	return out
}

func douglasPeucker(pts []image.Point, epsilon float64) []image.Point {
	if len(pts) < 3 {
		out := make([]image.Point, len(pts))
		copy(out, pts)
		return out
	}
	maxD := 0.0
	idx := 0
	a := pts[0]
	b := pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		d := pointSegmentDistance(pts[i], a, b)
		if d > maxD {
			maxD = d
			idx = i
		}
	}
	if maxD <= epsilon {
		return []image.Point{a, b}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

func pointSegmentDistance(p, a, b image.Point) float64 {
	ax, ay := float64(a.X), float64(a.Y)
	bx, by := float64(b.X), float64(b.Y)
	px, py := float64(p.X), float64(p.Y)
	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := clampFloat(((px-ax)*dx+(py-ay)*dy)/lenSq, 0, 1)
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}
