package viewer

// Window is the inclusive range of page indices eligible for mounting.
type Window struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Width returns the number of pages in the window.
func (w Window) Width() int {
	if w.High < w.Low {
		return 0
	}
	return w.High - w.Low + 1
}

// Contains reports whether index lies in the window.
func (w Window) Contains(index int) bool {
	return index >= w.Low && index <= w.High
}

// RenderWindowController owns the sliding window of pages that may request
// a surface. The window only grows in the direction of travel; it narrows
// solely on a fullscreen transition or a reset.
//
// All operations are no-ops until Reset has been called with a positive
// page count.
type RenderWindowController struct {
	cfg     Config
	total   int
	current int
	window  Window
}

// NewRenderWindowController returns a controller with no document attached.
func NewRenderWindowController(cfg Config) *RenderWindowController {
	return &RenderWindowController{cfg: cfg}
}

// Reset attaches a document of total pages and opens the window at start.
func (c *RenderWindowController) Reset(total, start int) {
	if total <= 0 {
		c.total = 0
		c.current = 0
		c.window = Window{}
		return
	}
	c.total = total
	c.current = clamp(start, 0, total-1)
	c.window = Window{
		Low:  c.current,
		High: min(c.current+c.cfg.InitialLookahead, total-1),
	}
}

// Ready reports whether a document is attached.
func (c *RenderWindowController) Ready() bool {
	return c.total > 0
}

// Window returns the current window.
func (c *RenderWindowController) Window() Window {
	return c.window
}

// Current returns the page the window was last recomputed for.
func (c *RenderWindowController) Current() int {
	return c.current
}

// IsEligibleForMount reports whether the page may request a surface.
func (c *RenderWindowController) IsEligibleForMount(index int) bool {
	if c.total == 0 {
		return false
	}
	return c.window.Contains(index)
}

// IsActivePair reports whether the page is one of the two visible pages.
func (c *RenderWindowController) IsActivePair(index int) bool {
	if c.total == 0 {
		return false
	}
	return index == c.current || index == c.current+1
}

// OnPageTurn recomputes the window for a settled turn to newIndex and
// reports whether the bounds changed.
func (c *RenderWindowController) OnPageTurn(newIndex int) bool {
	if c.total == 0 {
		return false
	}
	newIndex = clamp(newIndex, 0, c.total-1)
	prev := c.window

	switch {
	case newIndex > c.current:
		c.window.High = max(min(newIndex+c.cfg.TurnMargin, c.total-1), c.window.High)
	case newIndex < c.current:
		c.window.Low = min(max(newIndex-c.cfg.TurnMargin, 0), c.window.Low)
	}
	c.current = newIndex

	return c.window != prev
}

// OnFullscreenTransition narrows the window around the current page.
func (c *RenderWindowController) OnFullscreenTransition() bool {
	if c.total == 0 {
		return false
	}
	prev := c.window
	c.window = Window{
		Low:  max(c.current-c.cfg.FullscreenMargin, 0),
		High: min(c.current+c.cfg.FullscreenMargin, c.total-1),
	}
	return c.window != prev
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
