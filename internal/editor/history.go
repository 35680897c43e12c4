package editor

// DefaultHistoryLimit bounds the number of snapshots kept per session.
const DefaultHistoryLimit = 100

// History is an append/pop list of serialized object snapshots. There is no
// redo: a popped snapshot is gone. When the limit is exceeded the oldest
// snapshot is dropped.
type History struct {
	snapshots [][]byte
	limit     int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

func (h *History) Push(snapshot []byte) {
	h.snapshots = append(h.snapshots, snapshot)
	if over := len(h.snapshots) - h.limit; over > 0 {
		h.snapshots = append(h.snapshots[:0:0], h.snapshots[over:]...)
	}
}

// Pop removes the most recent snapshot. It reports false when empty.
func (h *History) Pop() bool {
	if len(h.snapshots) == 0 {
		return false
	}
	h.snapshots[len(h.snapshots)-1] = nil
	h.snapshots = h.snapshots[:len(h.snapshots)-1]
	return true
}

// Top returns the most recent snapshot.
func (h *History) Top() ([]byte, bool) {
	if len(h.snapshots) == 0 {
		return nil, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

func (h *History) Len() int { return len(h.snapshots) }

func (h *History) Limit() int { return h.limit }
