package views

import (
	"fmt"

	"flipview/internal/viewer"
	"flipview/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func ColorForSlot(st viewer.SlotState) lipgloss.Style {
	sStyle := styles.StatusStyle
	switch st {
	case viewer.SlotPending:
		return sStyle.Foreground(styles.WaitColor)
	case viewer.SlotFailed:
		return sStyle.Foreground(styles.FailColor)
	case viewer.SlotReady:
		return sStyle.Foreground(lipgloss.Color("46"))
	}
	return sStyle.Foreground(styles.BaseColor)
}

// GlyphForSlot is the one-cell marker used in the page strip.
func GlyphForSlot(st viewer.SlotState) string {
	switch st {
	case viewer.SlotPending:
		return "▒"
	case viewer.SlotReady:
		return "█"
	case viewer.SlotFailed:
		return "x"
	}
	return "·"
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
