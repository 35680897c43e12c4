package editor

import (
	"github.com/inamate/maskstudio/internal/document"
	"github.com/inamate/maskstudio/internal/engine"
)

// Scene owns the ordered list of drawn shapes. Index order is paint order.
// The background photo is held by the Session, never here.
type Scene struct {
	objects []document.Shape
}

func NewScene() *Scene {
	return &Scene{}
}

// Objects returns a copy of the shape list in z-order.
func (s *Scene) Objects() []document.Shape {
	out := make([]document.Shape, len(s.objects))
	copy(out, s.objects)
	return out
}

func (s *Scene) Len() int { return len(s.objects) }

func (s *Scene) Add(shape document.Shape) {
	s.objects = append(s.objects, shape)
}

// EraseAt removes every shape whose geometry contains p and returns the
// removed IDs, topmost first.
func (s *Scene) EraseAt(p document.Point) []string {
	hits := engine.HitTestAll(s.objects, p)
	if len(hits) == 0 {
		return nil
	}
	gone := make(map[string]bool, len(hits))
	for _, id := range hits {
		gone[id] = true
	}
	kept := s.objects[:0]
	for _, o := range s.objects {
		if !gone[o.ShapeID()] {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(s.objects); i++ {
		s.objects[i] = nil
	}
	s.objects = kept
	return hits
}

// Replace swaps in a restored shape list.
func (s *Scene) Replace(shapes []document.Shape) {
	s.objects = shapes
}

func (s *Scene) Clear() {
	s.objects = nil
}

// Snapshot serializes the current shapes.
func (s *Scene) Snapshot() ([]byte, error) {
	return document.MarshalShapes(s.objects)
}

// Restore replaces the shapes with a snapshot's content.
func (s *Scene) Restore(snapshot []byte) error {
	shapes, err := document.UnmarshalShapes(snapshot)
	if err != nil {
		return err
	}
	s.objects = shapes
	return nil
}
