package views

// ChartRows is the plot height of the window chart, in cells.
const ChartRows = 6

const (
	readerChrome = 5 // header, strip, status, help and spacing
	chartChrome  = ChartRows + 3
	minChartRows = 30
)

// Layout returns the cell area available to the two-page spread and whether
// the window chart fits below it.
func Layout(width, height int, fullscreen bool) (spreadW, spreadH int, showChart bool) {
	chrome := readerChrome
	if fullscreen {
		chrome = 2
	}
	showChart = !fullscreen && height >= minChartRows
	if showChart {
		chrome += chartChrome
	}
	spreadW = max(width-4, 0)
	spreadH = max(height-chrome, 0)
	return spreadW, spreadH, showChart
}
