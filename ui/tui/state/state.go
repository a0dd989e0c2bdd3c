package state

import (
	"time"

	"flipview/internal/viewer"
)

type Mode int

const (
	ModeLoading Mode = iota
	ModeReady
	ModeFailed
)

func (m Mode) String() string {
	switch m {
	case ModeReady:
		return "ready"
	case ModeFailed:
		return "failed"
	default:
		return "loading"
	}
}

// AppState holds what the views need from the current session.
type AppState struct {
	Mode       Mode
	Source     string
	Err        error
	Snapshot   viewer.Snapshot
	Slots      []viewer.SlotView
	LastEvent  string
	Notice     string
	Reloads    int
	LastUpdate time.Time
}

// Slot returns the slot of page, or a placeholder when page is out of range.
func (s AppState) Slot(page int) viewer.SlotView {
	if page < 0 || page >= len(s.Slots) {
		return viewer.SlotView{Page: page}
	}
	return s.Slots[page]
}
