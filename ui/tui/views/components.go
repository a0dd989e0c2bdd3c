package views

import (
	"flipview/ui/tui/state"
)

func RenderLoading(s state.AppState, width, height int, spinnerView string) string {
	v := LoadingView{}
	return v.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		SpinnerView: spinnerView,
	})
}

func RenderError(s state.AppState, width, height int) string {
	v := ErrorView{}
	return v.Render(s, ViewProps{
		Width:  width,
		Height: height,
	})
}

func RenderReader(s state.AppState, props ViewProps) string {
	v := ReaderView{}
	return v.Render(s, props)
}
