package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/inamate/maskstudio/internal/document"
	"github.com/inamate/maskstudio/internal/engine"
)

// RenderMask rasterizes shapes at natural resolution onto a transparent
// canvas, scaling scene coordinates by multiplier.
func RenderMask(shapes []document.Shape, width, height int, multiplier float64) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	Rasterize(dst, shapes, engine.Scale(multiplier, multiplier))
	return dst
}

// RenderView draws what the editor canvas shows: the background photo scaled
// into scene space, then the shapes, both under the viewport transform.
// bg may be nil.
func RenderView(bg image.Image, doc document.Background, shapes []document.Shape, vp engine.Viewport) *image.NRGBA {
	w, h := doc.CanvasSize()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.NRGBA{A: 255}), image.Point{}, draw.Src)

	view := vp.Matrix()
	if bg != nil {
		sb := bg.Bounds()
		fit := float64(w) / float64(max(sb.Dx(), 1))
		m := view.Multiply(engine.Scale(fit, fit)).Multiply(engine.Translate(float64(-sb.Min.X), float64(-sb.Min.Y)))
		xdraw.ApproxBiLinear.Transform(dst, f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}, bg, sb, xdraw.Over, nil)
	}

	Rasterize(dst, shapes, view)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
