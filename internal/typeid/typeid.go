package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixStroke  = "stroke"
	PrefixPolygon = "poly"
	PrefixSession = "sess"
	PrefixAsset   = "asset"
	PrefixMask    = "mask"
	PrefixPreview = "prev"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewStrokeID() string  { return New(PrefixStroke) }
func NewPolygonID() string { return New(PrefixPolygon) }
func NewSessionID() string { return New(PrefixSession) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

// ValidateAny checks that id parses and carries one of the given prefixes.
func ValidateAny(id string, prefixes ...string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	for _, p := range prefixes {
		if parsed.Prefix() == p {
			return nil
		}
	}
	return fmt.Errorf("unexpected prefix %q in id %q", parsed.Prefix(), id)
}
