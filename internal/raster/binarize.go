package raster

import (
	"image"
	"image/draw"
)

// LuminosityThreshold is the (r+g+b)/3 value a pixel must exceed to become
// white in a normalized mask.
const LuminosityThreshold = 10

// Binarize returns a copy of img in which every pixel is opaque white when
// its average channel value exceeds LuminosityThreshold and opaque black
// otherwise. Channels are read non-premultiplied.
func Binarize(img image.Image) *image.NRGBA {
	src, ok := img.(*image.NRGBA)
	if !ok {
		src = image.NewNRGBA(img.Bounds())
		draw.Draw(src, src.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := out.PixOffset(0, y)
		for x := 0; x < b.Dx(); x++ {
			p := src.Pix[si : si+4 : si+4]
			var v uint8
			if int(p[0])+int(p[1])+int(p[2]) > 3*LuminosityThreshold {
				v = 255
			}
			q := out.Pix[di : di+4 : di+4]
			q[0], q[1], q[2], q[3] = v, v, v, 255
			si += 4
			di += 4
		}
	}
	return out
}

// IsBinary reports whether every pixel of img is opaque pure black or white.
func IsBinary(img *image.NRGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			p := img.Pix[i : i+4 : i+4]
			if p[3] != 255 || p[0] != p[1] || p[1] != p[2] || (p[0] != 0 && p[0] != 255) {
				return false
			}
			i += 4
		}
	}
	return true
}
