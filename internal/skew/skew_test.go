package skew

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
)

// documentImage creates a white page with black text-row bars and one long
// horizontal rule, the structures the estimators key on
func documentImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 40; y < height-40; y += 24 {
		for yy := y; yy < y+6; yy++ {
			for x := 50; x < width-50; x++ {
				img.SetGray(x, yy, color.Gray{Y: 0})
			}
		}
	}
	return img
}

func TestMultiStrategyStraightDocument(t *testing.T) {
	m := NewMultiStrategy(DefaultConfig(), nil)
	if a := m.EstimateAngle(documentImage(400, 300)); math.Abs(a) > 1.5 {
		t.Errorf("straight document estimated at %.2f degrees", a)
	}
}

func TestMultiStrategyRotatedDocument(t *testing.T) {
	m := NewMultiStrategy(DefaultConfig(), nil)
	img := documentImage(400, 300)

	for _, want := range []float64{8, -6} {
		rotated := imaging.Rotate(img, want, color.White)
		got := m.EstimateAngle(rotated)
		if math.Abs(got-want) > 2 {
			t.Errorf("document rotated by %.0f estimated at %.2f", want, got)
		}
	}
}

func TestCorrectRotationReducesSkew(t *testing.T) {
	m := NewMultiStrategy(DefaultConfig(), nil)
	skewed := imaging.Rotate(documentImage(400, 300), 7, color.White)

	angle := m.EstimateAngle(skewed)
	corrected := m.CorrectRotation(skewed, angle)
	if residual := m.EstimateAngle(corrected); math.Abs(residual) > 1.5 {
		t.Errorf("residual skew after correction = %.2f degrees", residual)
	}
}

func TestEstimateAngleDegenerateInputs(t *testing.T) {
	m := NewMultiStrategy(DefaultConfig(), nil)
	if a := m.EstimateAngle(nil); a != 0 {
		t.Errorf("nil image estimated at %.2f", a)
	}
	if a := m.EstimateAngle(image.NewGray(image.Rect(0, 0, 0, 0))); a != 0 {
		t.Errorf("empty image estimated at %.2f", a)
	}
}

func TestDelegatedBackend(t *testing.T) {
	d := NewDelegated(nil)
	img := documentImage(300, 200)

	if a := d.EstimateAngle(img); math.Abs(a) > 0.5 {
		t.Errorf("straight document estimated at %.2f degrees", a)
	}

	rotated := imaging.Rotate(img, 4, color.White)
	if a := d.EstimateAngle(rotated); math.Abs(a-4) > 1 {
		t.Errorf("document rotated by 4 estimated at %.2f", a)
	}
}

func TestMedian(t *testing.T) {
	if m := median([]float64{3, 1, 2}); m != 2 {
		t.Errorf("median of odd set = %v", m)
	}
	if m := median([]float64{4, 1, 3, 2}); m != 2.5 {
		t.Errorf("median of even set = %v", m)
	}
	if m := median(nil); m != 0 {
		t.Errorf("median of empty set = %v", m)
	}
}
