package cv

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ToGray converts any image to 8-bit grayscale using the ITU-R BT.601
// luminance weights applied by the imaging package. The result always has
// its origin at (0, 0). If the input is already *image.Gray it is returned
// unchanged.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == image.Pt(0, 0) {
		return g
	}
	src := imaging.Grayscale(img)
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetGray(x, y, color.Gray{Y: src.NRGBAAt(b.Min.X+x, b.Min.Y+y).R})
		}
	}
	return out
}

// rgbaToGray extracts the red channel of an RGBA image produced by a bild
// filter applied to grayscale input, where R=G=B.
func rgbaToGray(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetGray(x, y, color.Gray{Y: src.RGBAAt(b.Min.X+x, b.Min.Y+y).R})
		}
	}
	return out
}

// Invert flips a binary mask or grayscale image: each pixel becomes 255-v.
func Invert(src *image.Gray) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetGray(x, y, color.Gray{Y: 255 - src.GrayAt(b.Min.X+x, b.Min.Y+y).Y})
		}
	}
	return out
}

// CloneGray returns a copy of src with origin (0, 0).
func CloneGray(src *image.Gray) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetGray(x, y, src.GrayAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
