package compositor

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var (
	red   = color.NRGBA{255, 0, 0, 255}
	black = color.NRGBA{0, 0, 0, 255}
)

func TestCompositeWhiteMaskKeepsSource(t *testing.T) {
	out := Composite(uniform(2, 2, red), uniform(2, 2, color.White))

	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, red, out.NRGBAAt(x, y))
		}
	}
}

func TestCompositeBlackMaskBlanks(t *testing.T) {
	out := Composite(uniform(2, 2, red), uniform(2, 2, color.Black))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, black, out.NRGBAAt(x, y))
		}
	}
}

func TestCompositeThresholdBoundary(t *testing.T) {
	src := uniform(3, 1, color.NRGBA{10, 20, 30, 40})
	mask := image.NewGray(image.Rect(0, 0, 3, 1))
	mask.SetGray(0, 0, color.Gray{127})
	mask.SetGray(1, 0, color.Gray{128})
	mask.SetGray(2, 0, color.Gray{255})

	out := Composite(src, mask)

	assert.Equal(t, black, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, out.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, out.NRGBAAt(2, 0))
}

func TestCompositeUsesLuminance(t *testing.T) {
	src := uniform(2, 1, red)
	mask := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	mask.SetNRGBA(0, 0, color.NRGBA{0, 0, 255, 255}) // luma 29
	mask.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255}) // luma 150

	out := Composite(src, mask)

	assert.Equal(t, black, out.NRGBAAt(0, 0))
	assert.Equal(t, red, out.NRGBAAt(1, 0))
}

func TestCompositeDimensionMismatch(t *testing.T) {
	// A 2x1 mask against a 2x2 image covers only the first row.
	out := Composite(uniform(2, 2, red), uniform(2, 1, color.White))

	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, red, out.NRGBAAt(0, 0))
	assert.Equal(t, red, out.NRGBAAt(1, 0))
	assert.Equal(t, black, out.NRGBAAt(0, 1))
	assert.Equal(t, black, out.NRGBAAt(1, 1))
}

func TestCompositeOffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.SetNRGBA(5, 5, red)
	src.SetNRGBA(6, 5, red)
	mask := image.NewGray(image.Rect(10, 10, 12, 11))
	mask.SetGray(11, 10, color.Gray{255})

	out := Composite(src, mask)

	assert.Equal(t, black, out.NRGBAAt(0, 0))
	assert.Equal(t, red, out.NRGBAAt(1, 0))
}

func TestCompositePNG(t *testing.T) {
	data, err := CompositePNG(encode(t, uniform(2, 2, red)), encode(t, uniform(2, 2, color.White)))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	r, g, b, a := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})

	_, err = CompositePNG([]byte("nope"), encode(t, uniform(1, 1, color.White)))
	assert.ErrorIs(t, err, ErrDecodeImage)
	_, err = CompositePNG(encode(t, uniform(1, 1, red)), []byte("nope"))
	assert.ErrorIs(t, err, ErrDecodeMask)
}

func multipartRequest(t *testing.T, fields map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range fields {
		fw, err := mw.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/mask/composite", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlerComposite(t *testing.T) {
	h := NewHandler(0)
	rec := httptest.NewRecorder()

	h.Composite(rec, multipartRequest(t, map[string][]byte{
		"image": encode(t, uniform(2, 2, red)),
		"mask":  encode(t, uniform(2, 2, color.Black)),
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0, 0xffff}, []uint32{r, g, b, a})
}

func TestHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string][]byte
		status int
	}{
		{"missing mask", map[string][]byte{"image": encode(t, uniform(1, 1, red))}, http.StatusBadRequest},
		{"missing image", map[string][]byte{"mask": encode(t, uniform(1, 1, red))}, http.StatusBadRequest},
		{"bad image", map[string][]byte{"image": []byte("x"), "mask": encode(t, uniform(1, 1, red))}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(0).Composite(rec, multipartRequest(t, tt.fields))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mask/composite", bytes.NewReader([]byte("plain")))
	NewHandler(0).Composite(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
