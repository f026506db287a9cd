package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestOrderPointsPermutations(t *testing.T) {
	tl := Point{X: 10, Y: 10}
	tr := Point{X: 90, Y: 12}
	br := Point{X: 88, Y: 70}
	bl := Point{X: 12, Y: 68}
	want := Quad{tl, tr, br, bl}

	inputs := [][4]Point{
		{tl, tr, br, bl},
		{tr, br, bl, tl},
		{br, bl, tl, tr},
		{bl, tl, tr, br},
		{br, tr, bl, tl},
	}
	for i, in := range inputs {
		if got := OrderPoints(in); got != want {
			t.Errorf("input %d: OrderPoints = %v, want %v", i, got, want)
		}
	}
}

func TestOrderPointsIdempotent(t *testing.T) {
	pts := [4]Point{{50, 5}, {95, 60}, {40, 90}, {5, 45}}
	once := OrderPoints(pts)
	if twice := OrderPoints([4]Point(once)); twice != once {
		t.Errorf("ordering is not idempotent: %v vs %v", once, twice)
	}
}

func TestFoldAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{10, 10},
		{-30, -30},
		{50, -40},
		{-50, 40},
		{90, 0},
		{-90, 0},
		{135, 45},
	}
	for _, c := range cases {
		if got := FoldAngle(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("FoldAngle(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRectifyAxisAligned(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(x*2 + y)})
		}
	}

	// Corners deliberately out of order.
	pts := [4]Point{{60, 40}, {10, 10}, {10, 40}, {60, 10}}
	out := Rectify(src, pts)
	if out == nil {
		t.Fatalf("Rectify returned nil for a valid quad")
	}
	b := out.Bounds()
	if b.Dx() != 50 || b.Dy() != 30 {
		t.Errorf("rectified size = %dx%d, want 50x30", b.Dx(), b.Dy())
	}

	got := out.NRGBAAt(0, 0).R
	want := src.GrayAt(10, 10).Y
	if int(got)-int(want) > 3 || int(want)-int(got) > 3 {
		t.Errorf("top-left pixel = %d, want about %d", got, want)
	}
}

func TestRectifyDegenerate(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 50, 50))
	pts := [4]Point{{10, 10}, {20, 10}, {30, 10}, {40, 10}}
	if out := Rectify(src, pts); out != nil {
		t.Errorf("expected nil for collinear corners")
	}
}
