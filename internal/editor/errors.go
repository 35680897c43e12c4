package editor

import "errors"

var (
	ErrPolygonTooFewPoints = errors.New("polygon needs at least 3 points")
	ErrNoPolygonDraft      = errors.New("polygon tool is not active")
	ErrWidthLocked         = errors.New("brush width cannot be changed while polygon or pan is active")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrBusy                = errors.New("export in progress")
	ErrClosed              = errors.New("editor session is closed")
	ErrInvalidImage        = errors.New("background image must have positive dimensions")
	ErrImageTooLarge       = errors.New("background image is too large")
)

// IsValidation reports whether err is a user-facing validation failure that
// left the scene unchanged.
func IsValidation(err error) bool {
	return errors.Is(err, ErrPolygonTooFewPoints) ||
		errors.Is(err, ErrNoPolygonDraft) ||
		errors.Is(err, ErrWidthLocked) ||
		errors.Is(err, ErrUnknownTool) ||
		errors.Is(err, ErrInvalidImage) ||
		errors.Is(err, ErrImageTooLarge)
}
