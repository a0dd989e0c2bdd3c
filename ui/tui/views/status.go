package views

import (
	"fmt"

	"flipview/ui/tui/state"
	"flipview/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type LoadingView struct{}

func (v LoadingView) Render(s state.AppState, props ViewProps) string {
	msg := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("Opening "+s.Source),
	)
	return lipgloss.Place(props.Width, props.Height, lipgloss.Center, lipgloss.Center, msg)
}

type ErrorView struct{}

func (v ErrorView) Render(s state.AppState, props ViewProps) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(styles.FailColor).Render("Could not open document"),
		"",
		lipgloss.NewStyle().Width(max(props.Width-10, 20)).Render(fmt.Sprintf("%v", s.Err)),
		"",
		styles.HelpStyle.Render("[r] Retry • [q] Quit"),
	)
	return lipgloss.Place(props.Width, props.Height, lipgloss.Center, lipgloss.Center,
		styles.CardStyle.BorderForeground(styles.FailColor).Render(body))
}
