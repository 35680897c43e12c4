// Package compositor merges a source photo with a binary mask, keeping the
// photo where the mask is bright and painting everything else opaque black.
package compositor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/inamate/maskstudio/internal/raster"
)

// SelectThreshold is the luminance a mask pixel must exceed to keep the
// source pixel. Exactly 127 is not selected; 128 is.
const SelectThreshold = 127

var (
	ErrDecodeImage = errors.New("decode image")
	ErrDecodeMask  = errors.New("decode mask")
)

// Composite returns an image the size of img in which pixel i is img's RGB
// with alpha 255 when the mask luminance at i exceeds SelectThreshold, and
// opaque black otherwise. Mismatched sizes are tolerated: the mask buffer is
// indexed by the image's pixel positions and pixels beyond its end count as
// unselected.
func Composite(img, mask image.Image) *image.NRGBA {
	src := toNRGBA(img)
	lum := luminance(mask)

	ib, mb := src.Bounds(), mask.Bounds()
	if ib.Dx() != mb.Dx() || ib.Dy() != mb.Dy() {
		slog.Warn("mask dimensions differ from image",
			"imageWidth", ib.Dx(), "imageHeight", ib.Dy(),
			"maskWidth", mb.Dx(), "maskHeight", mb.Dy(),
		)
	}

	out := image.NewNRGBA(image.Rect(0, 0, ib.Dx(), ib.Dy()))
	n := ib.Dx() * ib.Dy()
	for i := 0; i < n; i++ {
		o := out.Pix[i*4 : i*4+4 : i*4+4]
		if i < len(lum) && lum[i] > SelectThreshold {
			s := src.Pix[i*4 : i*4+4 : i*4+4]
			o[0], o[1], o[2] = s[0], s[1], s[2]
		}
		o[3] = 255
	}
	return out
}

// CompositePNG decodes both inputs, composites them and encodes the result
// as PNG.
func CompositePNG(imageData, maskData []byte) ([]byte, error) {
	img, err := Decode(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}
	mask, err := Decode(maskData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeMask, err)
	}
	return raster.EncodePNG(Composite(img, mask))
}

// Decode reads PNG, JPEG or GIF data, falling back to WebP.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, nil
	}
	return nil, err
}

// toNRGBA returns a zero-origin, tightly packed NRGBA copy of img.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// luminance returns one Rec.601 luma byte per mask pixel in row-major order.
func luminance(mask image.Image) []uint8 {
	gray := imaging.Grayscale(mask)
	lum := make([]uint8, len(gray.Pix)/4)
	for i := range lum {
		lum[i] = gray.Pix[i*4]
	}
	return lum
}
