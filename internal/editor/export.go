package editor

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/inamate/maskstudio/internal/engine"
	"github.com/inamate/maskstudio/internal/raster"
)

// MaskExport is a normalized mask: every pixel opaque black or opaque white,
// at the background's natural resolution.
type MaskExport struct {
	Image *image.NRGBA
	PNG   []byte
}

// Export rasterizes the drawn shapes at natural resolution, independent of
// the current zoom and pan, and binarizes the result. Tool input is rejected
// while it runs and the viewport and background are restored on every path.
func (s *Session) Export() (*MaskExport, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.busy = true
	defer func() { s.busy = false }()

	raw := s.rasterizeDetached()

	mask := raster.Binarize(raw)
	data, err := raster.EncodePNG(mask)
	if err != nil {
		return nil, err
	}
	return &MaskExport{Image: mask, PNG: data}, nil
}

func (s *Session) rasterizeDetached() *image.NRGBA {
	savedView := s.viewport
	savedAttached := s.bgAttached
	defer func() {
		s.viewport = savedView
		s.bgAttached = savedAttached
	}()

	s.viewport = engine.NewViewport()
	s.bgAttached = false

	return raster.RenderMask(
		s.scene.Objects(),
		s.bg.NaturalWidth,
		s.bg.NaturalHeight,
		s.bg.ExportMultiplier(),
	)
}

// Save exports the mask and hands it to the save callback. On success the
// session is closed; on failure it stays open with the scene untouched.
func (s *Session) Save() (*MaskExport, error) {
	out, err := s.Export()
	if err != nil {
		return nil, err
	}
	if s.onSave != nil {
		s.busy = true
		err = s.onSave(out.PNG)
		s.busy = false
		if err != nil {
			slog.Warn("save mask failed", "url", s.bg.URL, "error", err)
			return nil, fmt.Errorf("save mask: %w", err)
		}
	}
	s.Close()
	return out, nil
}

// Preview renders the current view, background included when attached, as
// PNG. bg is the decoded background photo and may be nil.
func (s *Session) Preview(bg image.Image) ([]byte, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if !s.bgAttached {
		bg = nil
	}
	img := raster.RenderView(bg, s.bg, s.scene.Objects(), s.viewport)
	return raster.EncodePNG(img)
}
