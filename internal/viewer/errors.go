package viewer

import (
	"errors"
	"fmt"
)

var (
	// ErrMetadataUnavailable means no document metadata could be loaded.
	// Every windowing operation is a no-op until a load succeeds.
	ErrMetadataUnavailable = errors.New("document metadata unavailable")

	// ErrSessionNotReady is returned by operations that need a loaded document.
	ErrSessionNotReady = errors.New("session has no document")
)

// SurfaceError reports a failed surface request for a single page. It never
// affects other pages or the render window.
type SurfaceError struct {
	Page int
	Err  error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("page %d: surface request failed: %v", e.Page, e.Err)
}

func (e *SurfaceError) Unwrap() error {
	return e.Err
}
