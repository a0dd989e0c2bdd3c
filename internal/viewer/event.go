package viewer

// EventKind identifies what changed in a session.
type EventKind int

const (
	EventDocumentLoaded EventKind = iota
	EventDocumentReloaded
	EventPageTurned
	EventWindowChanged
	EventZoomChanged
	EventScaleChanged
	EventFullscreenChanged
	EventSurfaceFailed
)

var eventNames = map[EventKind]string{
	EventDocumentLoaded:    "document_loaded",
	EventDocumentReloaded:  "document_reloaded",
	EventPageTurned:        "page_turned",
	EventWindowChanged:     "window_changed",
	EventZoomChanged:       "zoom_changed",
	EventScaleChanged:      "scale_changed",
	EventFullscreenChanged: "fullscreen_changed",
	EventSurfaceFailed:     "surface_failed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is delivered to observers after the session state is consistent.
type Event struct {
	Kind        EventKind
	Page        int
	State       ViewerState
	Window      Window
	RenderScale float64
	Fullscreen  bool
	Err         error
}
