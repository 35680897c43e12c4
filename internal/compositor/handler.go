package compositor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
)

const defaultMaxUploadSize = 20 << 20 // 20MB

type Handler struct {
	maxUploadSize int64
}

func NewHandler(maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{maxUploadSize: maxUploadSize}
}

// Composite handles POST /api/mask/composite (multipart form with "image"
// and "mask" fields) and responds with the masked image as PNG.
func (h *Handler) Composite(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	imageData, err := readField(r, "image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	maskData, err := readField(r, "mask")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	out, err := CompositePNG(imageData, maskData)
	if err != nil {
		if errors.Is(err, ErrDecodeImage) || errors.Is(err, ErrDecodeMask) {
			slog.Error("composite decode failed", "error", err)
		} else {
			slog.Error("composite failed", "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to apply mask"})
		return
	}

	slog.Info("mask applied", "imageBytes", len(imageData), "maskBytes", len(maskData), "outputBytes", len(out))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

var errMissingField = errors.New("missing field")

func readField(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("%w: %s", errMissingField, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer file.Close()
	return readAll(file)
}

func readAll(f multipart.File) ([]byte, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errMissingField
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
