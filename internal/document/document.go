// Package document loads the metadata a viewer session needs: page count and
// the intrinsic size of the first page.
package document

import (
	"context"
	"fmt"
)

// Metadata is immutable once loaded.
type Metadata struct {
	TotalPages int     `json:"total_pages"`
	Width      float64 `json:"width"`  // intrinsic page width, document units
	Height     float64 `json:"height"` // intrinsic page height, document units

	Source      string `json:"source"`
	Title       string `json:"title,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Validate checks the invariants a session relies on.
func (m Metadata) Validate() error {
	if m.TotalPages < 1 {
		return fmt.Errorf("%w: %d", ErrNoPages, m.TotalPages)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrInvalidPageSize, m.Width, m.Height)
	}
	return nil
}

// Loader resolves a source (path or URL) into document metadata.
type Loader interface {
	Load(ctx context.Context, source string) (Metadata, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, source string) (Metadata, error)

func (f LoaderFunc) Load(ctx context.Context, source string) (Metadata, error) {
	return f(ctx, source)
}
