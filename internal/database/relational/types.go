package relational

import "time"

// EventKind mirrors the viewer event names stored in reading_events.kind.
type EventKind string

const (
	KindDocumentLoaded    EventKind = "document_loaded"
	KindDocumentReloaded  EventKind = "document_reloaded"
	KindPageTurned        EventKind = "page_turned"
	KindWindowChanged     EventKind = "window_changed"
	KindZoomChanged       EventKind = "zoom_changed"
	KindScaleChanged      EventKind = "scale_changed"
	KindFullscreenChanged EventKind = "fullscreen_changed"
	KindSurfaceFailed     EventKind = "surface_failed"
)

// Document is one row of the documents table, keyed by content fingerprint.
type Document struct {
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	TotalPages int       `json:"total_pages"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	LastOpened time.Time `json:"last_opened"`
}

// EventRecord is one row of reading_events.
type EventRecord struct {
	EventID    int64     `json:"event_id"`
	SessionID  string    `json:"session_id"`
	DocumentID string    `json:"document_id"`
	Kind       EventKind `json:"kind"`
	PageIndex  int       `json:"page_index"`
	WindowLow  int       `json:"window_low"`
	WindowHigh int       `json:"window_high"`
	Zoom       float64   `json:"zoom"`
	Fullscreen bool      `json:"fullscreen"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Position is the last page read in a document.
type Position struct {
	DocumentID string    `json:"document_id"`
	PageIndex  int       `json:"page_index"`
	Zoom       float64   `json:"zoom"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PageDwell summarizes how often a page was landed on.
type PageDwell struct {
	PageIndex int `json:"page_index"`
	Turns     int `json:"turns"`
}
