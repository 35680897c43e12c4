package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/inamate/maskstudio/internal/typeid"
)

var ErrNotFound = errors.New("asset not found")

// Store keeps uploaded photos, exported masks and composited previews as PNG
// files in one directory. IDs are typeids whose prefix tells the kind.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// URL is the public path an asset is served under.
func URL(id string) string {
	return "/assets/" + id + ".png"
}

// IDFromURL extracts the asset ID from a URL produced by URL.
func IDFromURL(u string) (string, bool) {
	const prefix = "/assets/"
	if len(u) <= len(prefix)+len(".png") || u[:len(prefix)] != prefix || filepath.Ext(u) != ".png" {
		return "", false
	}
	id := u[len(prefix) : len(u)-len(".png")]
	if err := typeid.ValidateAny(id, typeid.PrefixAsset, typeid.PrefixMask, typeid.PrefixPreview); err != nil {
		return "", false
	}
	return id, true
}

// SaveImage encodes img as PNG under a new ID with the given prefix.
func (s *Store) SaveImage(prefix string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return s.savePNG(prefix, buf.Bytes())
}

// SavePNG stores already-encoded PNG data.
func (s *Store) SavePNG(prefix string, data []byte) (string, error) {
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("not a png: %w", err)
	}
	return s.savePNG(prefix, data)
}

func (s *Store) savePNG(prefix string, data []byte) (string, error) {
	id := typeid.New(prefix)
	path := s.path(id)
	if err := os.WriteFile(path, data, 0644); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write asset: %w", err)
	}
	slog.Debug("asset saved", "id", id, "bytes", len(data))
	return id, nil
}

// Open decodes a stored image.
func (s *Store) Open(id string) (image.Image, error) {
	if err := s.validate(id); err != nil {
		return nil, err
	}
	img, err := imaging.Open(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return img, err
}

// Delete removes an asset file from disk.
func (s *Store) Delete(id string) error {
	if err := s.validate(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".png")
}

func (s *Store) validate(id string) error {
	if err := typeid.ValidateAny(id, typeid.PrefixAsset, typeid.PrefixMask, typeid.PrefixPreview); err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return nil
}
