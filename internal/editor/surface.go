package editor

import "github.com/inamate/maskstudio/internal/document"

type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
)

func (e EventType) String() string {
	switch e {
	case PointerDown:
		return "pointer.down"
	case PointerMove:
		return "pointer.move"
	case PointerUp:
		return "pointer.up"
	}
	return "unknown"
}

// PrimaryButton is the buttons bit for the main pointer button.
const PrimaryButton = 1

// PointerEvent carries a pointer position in both screen and scene space.
type PointerEvent struct {
	X, Y    float64 // screen
	Scene   document.Point
	Buttons int
}

func (e PointerEvent) Primary() bool { return e.Buttons&PrimaryButton != 0 }

type Handler func(PointerEvent)

type BindingID int

type binding struct {
	id      BindingID
	handler Handler
}

// Surface is the event target tools attach their pointer handlers to.
type Surface struct {
	handlers map[EventType][]binding
	nextID   BindingID
}

func NewSurface() *Surface {
	return &Surface{handlers: make(map[EventType][]binding)}
}

// On installs h for events of type t.
func (s *Surface) On(t EventType, h Handler) BindingID {
	s.nextID++
	s.handlers[t] = append(s.handlers[t], binding{id: s.nextID, handler: h})
	return s.nextID
}

// Off removes a binding. Unknown IDs are ignored.
func (s *Surface) Off(id BindingID) {
	for t, bs := range s.handlers {
		for i, b := range bs {
			if b.id == id {
				s.handlers[t] = append(bs[:i:i], bs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch calls every handler bound to t and returns how many ran.
func (s *Surface) Dispatch(t EventType, e PointerEvent) int {
	bs := s.handlers[t]
	for _, b := range bs {
		b.handler(e)
	}
	return len(bs)
}

// BindingCount returns the number of installed handlers.
func (s *Surface) BindingCount() int {
	n := 0
	for _, bs := range s.handlers {
		n += len(bs)
	}
	return n
}

// bindings tracks the handlers one tool installed.
type bindings []BindingID

func (b *bindings) on(s *Surface, t EventType, h Handler) {
	*b = append(*b, s.On(t, h))
}

func (b *bindings) release(s *Surface) {
	for _, id := range *b {
		s.Off(id)
	}
	*b = nil
}
