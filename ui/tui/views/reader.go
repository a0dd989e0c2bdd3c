package views

import (
	"fmt"
	"math"
	"strings"

	"flipview/internal/viewer"
	"flipview/ui/tui/state"
	"flipview/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const (
	ZoneLeftPage  = "page_left"
	ZoneRightPage = "page_right"
)

type ReaderView struct{}

func (v ReaderView) Render(s state.AppState, props ViewProps) string {
	snap := s.Snapshot
	spreadW, spreadH, showChart := Layout(props.Width, props.Height, snap.Fullscreen)

	var rows []string
	if !snap.Fullscreen {
		title := snap.Metadata.Title
		if title == "" {
			title = snap.Metadata.Source
		}
		rows = append(rows, styles.HeaderStyle.Width(props.Width).Render("FLIPVIEW // "+title))
	}

	rows = append(rows,
		lipgloss.PlaceHorizontal(props.Width, lipgloss.Center, v.spread(s, props, spreadW, spreadH)),
		v.strip(s, props.Width),
		v.status(s, props),
	)
	if !snap.Fullscreen {
		help := "[←/→] Turn • [Home/End] First/Last • [+/-/0] Zoom • [f] Fullscreen • [q] Quit"
		if props.ClickTurn {
			help += " • Click a page to turn"
		}
		rows = append(rows, styles.HelpStyle.PaddingLeft(1).Render(help))
	}
	if showChart && props.ChartView != "" {
		rows = append(rows, props.ChartView)
	}
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (v ReaderView) spread(s state.AppState, props ViewProps, spreadW, spreadH int) string {
	snap := s.Snapshot
	cur := snap.State.CurrentPageIndex

	pageW, pageH := pageCells(snap, props, spreadW/2, spreadH)

	leftW, rightW := pageW, pageW
	if props.FlipDirection != 0 {
		// The turning leaf narrows to its edge and opens again.
		f := math.Max(math.Abs(1-2*props.FlipProgress), 0.05)
		turning := int(math.Round(float64(pageW) * f))
		if props.FlipDirection > 0 {
			rightW = max(turning, 1)
		} else {
			leftW = max(turning, 1)
		}
	}

	left := v.page(s.Slot(cur), leftW, pageH)
	if props.ClickTurn {
		left = zone.Mark(ZoneLeftPage, left)
	}
	if !pairShown(s, props) {
		return left
	}
	right := v.page(s.Slot(cur+1), rightW, pageH)
	if props.ClickTurn {
		right = zone.Mark(ZoneRightPage, right)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// pageCells converts the page size at the current render scale and zoom into
// terminal cells, clamped to the space available.
func pageCells(snap viewer.Snapshot, props ViewProps, maxW, maxH int) (int, int) {
	if props.CellWidthPx <= 0 || props.CellHeightPx <= 0 {
		return max(maxW-2, 1), max(maxH-2, 1)
	}
	scale := snap.RenderScale * snap.State.ZoomScale
	w := int(snap.Metadata.Width * scale / props.CellWidthPx)
	h := int(snap.Metadata.Height * scale / props.CellHeightPx)
	w = min(max(w, 8), max(maxW-2, 1))
	h = min(max(h, 3), max(maxH-2, 1))
	return w, h
}

func (v ReaderView) page(slot viewer.SlotView, w, h int) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("p. %d", slot.Page+1))
	switch slot.State {
	case viewer.SlotReady:
		lines = append(lines, ColorForSlot(slot.State).Render(fmt.Sprintf("%.1fx", slot.Surface.Density)))
		lines = append(lines, fmt.Sprintf("%.0f×%.0f pt", slot.Surface.PageSize.Width, slot.Surface.PageSize.Height))
		if slot.Surface.Rotate != 0 {
			lines = append(lines, fmt.Sprintf("rotated %d°", slot.Surface.Rotate))
		}
		if slot.Surface.ContentBytes > 0 {
			lines = append(lines, formatBytes(slot.Surface.ContentBytes))
		}
	case viewer.SlotPending:
		lines = append(lines, ColorForSlot(slot.State).Render("rendering…"))
	case viewer.SlotFailed:
		lines = append(lines, ColorForSlot(slot.State).Render("✗ "+errText(slot.Err)))
	default:
		lines = append(lines, ColorForSlot(slot.State).Render("·"))
	}

	border := styles.BaseColor
	if slot.State == viewer.SlotFailed {
		border = styles.FailColor
	}
	return styles.PageStyle.
		BorderForeground(border).
		Width(w).
		Height(h).
		MaxWidth(w + 2).
		MaxHeight(h + 2).
		Render(strings.Join(lines, "\n"))
}

// pairShown reports whether the page after the current one is drawn beside
// it. A cover is drawn alone.
func pairShown(s state.AppState, props ViewProps) bool {
	cur := s.Snapshot.State.CurrentPageIndex
	if props.ShowCover && cur == 0 {
		return false
	}
	return cur+1 < s.Snapshot.Metadata.TotalPages
}

func errText(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}

// strip draws one cell per page around the current page, marking slot state
// and the render window.
func (v ReaderView) strip(s state.AppState, width int) string {
	snap := s.Snapshot
	total := snap.Metadata.TotalPages
	n := min(total, max(width-4, 0))
	if n == 0 {
		return ""
	}
	cur := snap.State.CurrentPageIndex
	start := min(max(cur-n/2, 0), total-n)

	inWindow := lipgloss.NewStyle().Foreground(styles.Special)
	outside := lipgloss.NewStyle().Foreground(styles.BaseColor)
	active := lipgloss.NewStyle().Bold(true).Foreground(styles.BrandColor)

	var b strings.Builder
	for page := start; page < start+n; page++ {
		glyph := GlyphForSlot(s.Slot(page).State)
		switch {
		case page == cur || page == cur+1:
			b.WriteString(active.Render(glyph))
		case snap.Window.Contains(page):
			b.WriteString(inWindow.Render(glyph))
		default:
			b.WriteString(outside.Render(glyph))
		}
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(b.String())
}

func (v ReaderView) status(s state.AppState, props ViewProps) string {
	snap := s.Snapshot
	cur := snap.State.CurrentPageIndex
	total := snap.Metadata.TotalPages

	pages := fmt.Sprintf("p. %d", cur+1)
	if pairShown(s, props) {
		pages = fmt.Sprintf("pp. %d–%d", cur+1, cur+2)
	}
	parts := []string{
		styles.StatusStyle.Render(fmt.Sprintf("%s / %d", pages, total)),
		fmt.Sprintf("zoom %.1fx (%s)", snap.State.ZoomScale, snap.Mode),
		fmt.Sprintf("scale %.2f", snap.RenderScale),
		fmt.Sprintf("window [%d,%d]", snap.Window.Low+1, snap.Window.High+1),
		fmt.Sprintf("mounted %d", snap.Mounted),
	}
	if snap.Animating {
		parts = append(parts, fmt.Sprintf("→ p. %d", snap.Target+1))
	}
	if s.Notice != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.WaitColor).Render(s.Notice))
	}
	line := strings.Join(parts, "  ")

	// Position marker eased toward the current page.
	if total > 1 && props.Width > 20 {
		barW := min(props.Width/4, 30)
		pos := int(math.Round(props.AnimPage / float64(total-1) * float64(barW-1)))
		pos = min(max(pos, 0), barW-1)
		bar := strings.Repeat("─", pos) + "●" + strings.Repeat("─", barW-1-pos)
		line += "  " + lipgloss.NewStyle().Foreground(styles.Highlight).Render(bar)
	}
	return lipgloss.NewStyle().PaddingLeft(1).Render(line)
}
