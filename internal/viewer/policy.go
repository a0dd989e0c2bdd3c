package viewer

// InputPolicy decides which pointer interactions may turn pages.
// Keyboard and programmatic turns are never gated.
type InputPolicy struct {
	ClickTurnMinWidthPx float64
	MinZoom             float64
}

// NewInputPolicy returns the policy configured by cfg.
func NewInputPolicy(cfg Config) InputPolicy {
	return InputPolicy{
		ClickTurnMinWidthPx: cfg.ClickTurnMinWidthPx,
		MinZoom:             cfg.MinZoom,
	}
}

// ClickTurnEnabled reports whether a click on a page turns it. Narrow,
// touch-first layouts rely on swipes instead.
func (p InputPolicy) ClickTurnEnabled(viewportWidthPx float64) bool {
	return viewportWidthPx >= p.ClickTurnMinWidthPx
}

// PointerTurnEnabled reports whether pointer gestures may turn pages at all.
// Under zoom, drags pan the page.
func (p InputPolicy) PointerTurnEnabled(zoom float64) bool {
	return zoom <= p.MinZoom
}

// AllowsClickTurn combines both rules for a click at the given viewport width and zoom.
func (p InputPolicy) AllowsClickTurn(viewportWidthPx, zoom float64) bool {
	return p.PointerTurnEnabled(zoom) && p.ClickTurnEnabled(viewportWidthPx)
}
