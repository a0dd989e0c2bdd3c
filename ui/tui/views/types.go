package views

import (
	"flipview/ui/tui/state"
)

// ViewProps contains UI-specific properties provided by the Controller.
type ViewProps struct {
	Width, Height int

	// Terminal cell size in pixels, for laying out page surfaces.
	CellWidthPx, CellHeightPx float64

	// Component States
	SpinnerView string
	ChartView   string

	// Flip animation
	FlipProgress  float64
	FlipDirection int
	AnimPage      float64

	ClickTurn bool
	ShowCover bool
}

// View defines the contract for any renderable page in the TUI.
type View interface {
	Render(s state.AppState, props ViewProps) string
}
