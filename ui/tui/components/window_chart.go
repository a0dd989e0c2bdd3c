package components

import (
	"flipview/internal/viewer"
	"flipview/ui/tui/styles"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const chartHistory = 31

// WindowChart plots the render window bounds and the current page over the
// most recent turns.
type WindowChart struct {
	Chart   linechart.Model
	Lows    []float64
	Highs   []float64
	Current []float64
	Total   int
	Width   int
	Height  int
}

func NewWindowChart(width, height int) *WindowChart {
	return &WindowChart{
		Chart:  linechart.New(width, height, 0, chartHistory-1, 0, 1),
		Width:  width,
		Height: height,
	}
}

func (c *WindowChart) Init() tea.Cmd {
	return nil
}

func (c *WindowChart) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

// Reset clears the history and rescales the Y axis to a document of total
// pages.
func (c *WindowChart) Reset(total int) {
	c.Total = total
	c.Lows, c.Highs, c.Current = nil, nil, nil
	c.Chart = linechart.New(c.Width, c.Height, 0, chartHistory-1, 0, float64(max(total-1, 1)))
}

// Push records one observation of the window and current page.
func (c *WindowChart) Push(w viewer.Window, current int) {
	c.Lows = appendCapped(c.Lows, float64(w.Low))
	c.Highs = appendCapped(c.Highs, float64(w.High))
	c.Current = appendCapped(c.Current, float64(current))
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > chartHistory {
		xs = xs[1:]
	}
	return xs
}

func (c *WindowChart) Resize(w, h int) {
	c.Width = w
	c.Height = h
	c.Chart.Resize(w, h)
}

func (c *WindowChart) View() string {
	c.Chart.Clear()
	for _, series := range [][]float64{c.Lows, c.Highs, c.Current} {
		for i := 0; i < len(series)-1; i++ {
			c.Chart.DrawBrailleLine(
				canvas.Float64Point{X: float64(i), Y: series[i]},
				canvas.Float64Point{X: float64(i + 1), Y: series[i+1]},
			)
		}
	}
	c.Chart.DrawXYAxisAndLabel()

	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Render window"),
			c.Chart.View(),
		),
	)
}

var _ Component = (*WindowChart)(nil)
