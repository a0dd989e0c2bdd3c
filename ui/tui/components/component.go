package components

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Component is a self-contained widget the reader screen embeds. Widgets
// receive data through their own setters; Update exists so they can still be
// driven like any tea.Model.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}
