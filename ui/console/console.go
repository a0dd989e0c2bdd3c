package console

import (
	"fmt"
	"io"
	"strings"

	"flipview/internal/database/relational"
	"flipview/internal/viewer"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Report is everything known about one document: the freshly opened session
// and what the reading log remembers.
type Report struct {
	Snapshot viewer.Snapshot
	Position *relational.Position
	TopPages []relational.PageDwell
	Events   []relational.EventRecord
}

// Print renders the report to the writer in a compact format.
func Print(w io.Writer, r Report) {
	snap := r.Snapshot
	meta := snap.Metadata
	fmt.Fprintf(w, "%s%s %s%s\n", colorCyan, "■", "FLIPVIEW REPORT", colorReset)

	section(w, "Document")
	row(w, "Title", meta.Title, "")
	row(w, "Source", meta.Source, "")
	row(w, "Pages", fmt.Sprintf("%d", meta.TotalPages), "")
	row(w, "Page size", fmt.Sprintf("%.0f×%.0f pt", meta.Width, meta.Height), "")
	row(w, "Fingerprint", meta.Fingerprint, "")

	section(w, "Session")
	row(w, "Current page", fmt.Sprintf("%d", snap.State.CurrentPageIndex+1), "")
	row(w, "Render window", fmt.Sprintf("[%d,%d]", snap.Window.Low+1, snap.Window.High+1), "")
	row(w, "Zoom", fmt.Sprintf("%.1fx %s", snap.State.ZoomScale, snap.Mode), "")
	if r.Position != nil {
		row(w, "Resume at", fmt.Sprintf("%d", r.Position.PageIndex+1), r.Position.UpdatedAt.Format("2006-01-02 15:04"))
	} else {
		row(w, "Resume at", "never read", "")
	}

	if len(r.TopPages) > 0 {
		section(w, "Most read pages")
		for _, p := range r.TopPages {
			row(w, fmt.Sprintf("Page %d", p.PageIndex+1), fmt.Sprintf("%d turns", p.Turns), "")
		}
	}

	if len(r.Events) > 0 {
		section(w, "Recent events")
		for _, ev := range r.Events {
			value := fmt.Sprintf("p.%d [%d,%d]", ev.PageIndex+1, ev.WindowLow+1, ev.WindowHigh+1)
			fmt.Fprintf(w, "  %s %s%s%s %s\n",
				ev.CreatedAt.Format("15:04:05"), colorFor(ev.Kind), string(ev.Kind), colorReset, value)
			if ev.Error != "" {
				fmt.Fprintf(w, "    %s%s%s\n", colorRed, truncate(ev.Error, 60), colorReset)
			}
		}
	}

	failed := 0
	for _, ev := range r.Events {
		if ev.Kind == relational.KindSurfaceFailed {
			failed++
		}
	}
	fmt.Fprintf(w, "%s─ Summary%s: %d events | %d failed surfaces\n\n", colorCyan, colorReset, len(r.Events), failed)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "%s%s%s\n", colorCyan, "─ "+title, colorReset)
}

// row prints "  Label............... value note" with the label capped at 20 chars.
func row(w io.Writer, label, value, note string) {
	label = truncate(label, 20)
	dots := strings.Repeat("·", 22-len([]rune(label)))
	if note != "" {
		note = " " + colorYellow + note + colorReset
	}
	fmt.Fprintf(w, "  %s%s %s%s\n", label, colorCyan+dots+colorReset, value, note)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func colorFor(kind relational.EventKind) string {
	switch kind {
	case relational.KindSurfaceFailed:
		return colorRed
	case relational.KindZoomChanged, relational.KindScaleChanged, relational.KindFullscreenChanged:
		return colorYellow
	default:
		return colorGreen
	}
}
