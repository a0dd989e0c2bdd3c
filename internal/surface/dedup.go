package surface

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/singleflight"

	"flipview/internal/viewer"
)

// Dedup collapses concurrent requests for the same page, height and density
// into one call to the wrapped provider.
type Dedup struct {
	next  viewer.PageSurfaceProvider
	group singleflight.Group
}

// NewDedup wraps next.
func NewDedup(next viewer.PageSurfaceProvider) *Dedup {
	return &Dedup{next: next}
}

// RequestSurface joins an in-flight request for the same key or starts one.
// The shared request runs detached from any single caller's cancellation;
// a caller whose ctx ends stops waiting without failing the others.
func (d *Dedup) RequestSurface(ctx context.Context, page int, targetHeightPx, density float64) (viewer.Surface, error) {
	key := fmt.Sprintf("%d/%g/%g", page, targetHeightPx, density)
	ch := d.group.DoChan(key, func() (interface{}, error) {
		return d.next.RequestSurface(context.WithoutCancel(ctx), page, targetHeightPx, density)
	})
	select {
	case <-ctx.Done():
		return viewer.Surface{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return viewer.Surface{}, res.Err
		}
		return res.Val.(viewer.Surface), nil
	}
}

// Close closes the wrapped provider if it holds resources.
func (d *Dedup) Close() error {
	if c, ok := d.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
