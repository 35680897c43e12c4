package asset

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/maskstudio/internal/compositor"
	"github.com/inamate/maskstudio/internal/typeid"
)

const defaultMaxUploadSize = 20 << 20 // 20MB

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	store         *Store
	maxUploadSize int64
}

func NewHandler(store *Store, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{store: store, maxUploadSize: maxUploadSize}
}

var allowedTypes = []string{"image/png", "image/jpeg", "image/webp"}

// Upload handles POST /assets/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large or not multipart"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !hasAllowedType(contentType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only PNG, JPEG and WebP images are supported"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read file"})
		return
	}

	// Decode to get dimensions and to re-encode everything as PNG.
	img, err := compositor.Decode(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image"})
		return
	}

	id, err := h.store.SaveImage(typeid.PrefixAsset, img)
	if err != nil {
		slog.Error("save asset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}

	bounds := img.Bounds()
	writeJSON(w, http.StatusOK, UploadResponse{
		ID:     id,
		URL:    URL(id),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "png",
		Name:   header.Filename,
	})
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.store.Dir()))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete handles DELETE /api/assets/{assetId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["assetId"]
	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		slog.Error("delete asset", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func hasAllowedType(contentType string) bool {
	for _, t := range allowedTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
