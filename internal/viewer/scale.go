package viewer

import "math"

// Size is a width/height pair in pixels or document units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// ZoomMode is the viewer's zoom state.
type ZoomMode int

const (
	Fitted ZoomMode = iota
	Zoomed
)

func (m ZoomMode) String() string {
	if m == Zoomed {
		return "zoomed"
	}
	return "fitted"
}

// ViewportScaleController derives the uniform render scale from the
// container and page sizes, and keeps the zoom level within bounds.
type ViewportScaleController struct {
	cfg         Config
	renderScale float64
	zoom        float64
}

// NewViewportScaleController returns a controller at the minimum zoom.
func NewViewportScaleController(cfg Config) *ViewportScaleController {
	return &ViewportScaleController{cfg: cfg, zoom: cfg.MinZoom}
}

// RenderScale returns the last computed scale; 0 before the first computation.
func (v *ViewportScaleController) RenderScale() float64 {
	return v.renderScale
}

// Zoom returns the current zoom level.
func (v *ViewportScaleController) Zoom() float64 {
	return v.zoom
}

// Mode returns Fitted at the minimum zoom and Zoomed above it.
func (v *ViewportScaleController) Mode() ZoomMode {
	if v.zoom > v.cfg.MinZoom {
		return Zoomed
	}
	return Fitted
}

// RecomputeScale fits two pages side by side into the configured share of
// the container and stores the result.
func (v *ViewportScaleController) RecomputeScale(container, intrinsic Size) float64 {
	v.renderScale = FitScale(container, intrinsic, v.cfg.FitFraction)
	return v.renderScale
}

// FitScale is the scale at which a two-page spread of intrinsic pages fits
// within fraction of the container, preserving aspect ratio.
func FitScale(container, intrinsic Size, fraction float64) float64 {
	if !container.Valid() || !intrinsic.Valid() {
		return 0
	}
	return math.Min(
		container.Width*fraction/(2*intrinsic.Width),
		container.Height*fraction/intrinsic.Height,
	)
}

// OnZoomChanged clamps scale into the zoom bounds and stores it.
func (v *ViewportScaleController) OnZoomChanged(scale float64) float64 {
	if math.IsNaN(scale) {
		scale = v.cfg.MinZoom
	}
	v.zoom = math.Min(math.Max(scale, v.cfg.MinZoom), v.cfg.MaxZoom)
	return v.zoom
}

// ZoomIn raises the zoom by one step.
func (v *ViewportScaleController) ZoomIn() float64 {
	return v.OnZoomChanged(v.zoom + v.cfg.ZoomStep)
}

// ZoomOut lowers the zoom by one step.
func (v *ViewportScaleController) ZoomOut() float64 {
	return v.OnZoomChanged(v.zoom - v.cfg.ZoomStep)
}

// ResetZoom returns to the fitted view.
func (v *ViewportScaleController) ResetZoom() float64 {
	return v.OnZoomChanged(v.cfg.MinZoom)
}

// Density returns the render density for a page. Only the visible pair is
// rasterized sharper when zoomed in, and never beyond the density cap.
func (v *ViewportScaleController) Density(active bool, devicePixelRatio float64) float64 {
	return RenderDensity(v.zoom, active, devicePixelRatio, v.cfg)
}

// RenderDensity is the density policy shared by controllers and tools.
// Below the zoom threshold every page renders at the device pixel ratio.
func RenderDensity(zoom float64, active bool, devicePixelRatio float64, cfg Config) float64 {
	if !active || zoom <= cfg.DensityZoomThreshold {
		return devicePixelRatio
	}
	return math.Min(zoom*devicePixelRatio, cfg.DensityCap)
}
