package viewer

import "context"

// Surface is a rendered page as produced by a PageSurfaceProvider.
type Surface struct {
	Page     int     `json:"page"`
	WidthPx  float64 `json:"width_px"`
	HeightPx float64 `json:"height_px"`
	Density  float64 `json:"density"`

	// Page geometry in document units, after rotation.
	PageSize Size `json:"page_size"`
	Rotate   int  `json:"rotate"`

	// ContentBytes is the decoded size of the page content, if known.
	ContentBytes int64 `json:"content_bytes"`
}

// PageSurfaceProvider renders pages on demand. Implementations must tolerate
// redundant requests for the same page.
type PageSurfaceProvider interface {
	RequestSurface(ctx context.Context, page int, targetHeightPx, density float64) (Surface, error)
}

// PageSurfaceProviderFunc adapts a function to PageSurfaceProvider.
type PageSurfaceProviderFunc func(ctx context.Context, page int, targetHeightPx, density float64) (Surface, error)

func (f PageSurfaceProviderFunc) RequestSurface(ctx context.Context, page int, targetHeightPx, density float64) (Surface, error) {
	return f(ctx, page, targetHeightPx, density)
}
