package viewer

import (
	"fmt"
	"time"
)

// Config holds the windowing, animation and zoom constants of a session.
type Config struct {
	// Render window margins
	InitialLookahead int // Pages mounted ahead of the start page (default: 4)
	TurnMargin       int // Pages added in the direction of travel on a turn (default: 4)
	FullscreenMargin int // Pages kept on each side after a fullscreen toggle (default: 2)

	// Page turning
	FlipDuration        time.Duration // Flip animation length; 0 settles immediately (default: 700ms)
	ClickTurnMinWidthPx float64       // Click-to-turn is disabled below this viewport width (default: 768)
	ShowCover           bool          // First page is shown alone as a cover (default: true)

	// Zoom and density
	MinZoom              float64 // default: 1
	MaxZoom              float64 // default: 5
	ZoomStep             float64 // Keyboard zoom increment (default: 0.5)
	DensityZoomThreshold float64 // Active pages render sharper above this zoom (default: 1.5)
	DensityCap           float64 // Hard cap on render density (default: 3)
	DevicePixelRatio     float64 // Baseline render density (default: 1)

	// Layout
	FitFraction float64 // Share of the container a two-page spread may use (default: 0.8)
}

// DefaultConfig returns a Config with the reference constants.
func DefaultConfig() Config {
	return Config{
		InitialLookahead: 4,
		TurnMargin:       4,
		FullscreenMargin: 2,

		FlipDuration:        700 * time.Millisecond,
		ClickTurnMinWidthPx: 768,
		ShowCover:           true,

		MinZoom:              1,
		MaxZoom:              5,
		ZoomStep:             0.5,
		DensityZoomThreshold: 1.5,
		DensityCap:           3,
		DevicePixelRatio:     1,

		FitFraction: 0.8,
	}
}

// Validate reports the first inconsistent field.
func (c Config) Validate() error {
	switch {
	case c.InitialLookahead < 0:
		return fmt.Errorf("InitialLookahead must not be negative")
	case c.TurnMargin < 0:
		return fmt.Errorf("TurnMargin must not be negative")
	case c.FullscreenMargin < 0:
		return fmt.Errorf("FullscreenMargin must not be negative")
	case c.FlipDuration < 0:
		return fmt.Errorf("FlipDuration must not be negative")
	case c.MinZoom <= 0:
		return fmt.Errorf("MinZoom must be positive")
	case c.MaxZoom < c.MinZoom:
		return fmt.Errorf("MaxZoom must be at least MinZoom")
	case c.ZoomStep <= 0:
		return fmt.Errorf("ZoomStep must be positive")
	case c.DensityCap <= 0:
		return fmt.Errorf("DensityCap must be positive")
	case c.DevicePixelRatio <= 0:
		return fmt.Errorf("DevicePixelRatio must be positive")
	case c.FitFraction <= 0 || c.FitFraction > 1:
		return fmt.Errorf("FitFraction must be in (0, 1]")
	}
	return nil
}
