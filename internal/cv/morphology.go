package cv

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
)

// Dilate grows the foreground of a mask with a disk structuring element of
// the given radius, via bild/effect.
func Dilate(mask *image.Gray, radius float64) *image.Gray {
	return rgbaToGray(effect.Dilate(mask, radius))
}

// Erode shrinks the foreground of a mask with a disk structuring element of
// the given radius, via bild/effect.
func Erode(mask *image.Gray, radius float64) *image.Gray {
	return rgbaToGray(effect.Erode(mask, radius))
}

// Close bridges gaps in the foreground: iterations of dilation followed by
// the same number of erosions.
func Close(mask *image.Gray, radius float64, iterations int) *image.Gray {
	out := mask
	for i := 0; i < iterations; i++ {
		out = Dilate(out, radius)
	}
	for i := 0; i < iterations; i++ {
		out = Erode(out, radius)
	}
	return out
}

// Open removes small foreground specks: iterations of erosion followed by
// the same number of dilations.
func Open(mask *image.Gray, radius float64, iterations int) *image.Gray {
	out := mask
	for i := 0; i < iterations; i++ {
		out = Erode(out, radius)
	}
	for i := 0; i < iterations; i++ {
		out = Dilate(out, radius)
	}
	return out
}

// CloseHorizontal performs a grayscale morphological closing with a 1 x width
// horizontal structuring element: a running maximum along each row followed
// by a running minimum. This merges horizontally adjacent dark glyphs into
// continuous text-row blobs without joining neighboring rows vertically.
// bild's structuring elements are isotropic disks, so the anisotropic kernel
// is applied directly here.
func CloseHorizontal(src *image.Gray, width int) *image.Gray {
	if width < 2 {
		return CloneGray(src)
	}
	half := width / 2
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dilated := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			maxV := uint8(0)
			for k := -half; k <= half; k++ {
				v := src.GrayAt(b.Min.X+clampInt(x+k, 0, w-1), b.Min.Y+y).Y
				if v > maxV {
					maxV = v
				}
			}
			dilated.SetGray(x, y, color.Gray{Y: maxV})
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			minV := uint8(255)
			for k := -half; k <= half; k++ {
				v := dilated.GrayAt(clampInt(x+k, 0, w-1), y).Y
				if v < minV {
					minV = v
				}
			}
			out.SetGray(x, y, color.Gray{Y: minV})
		}
	}
	return out
}
