package viewer

import (
	"time"

	"github.com/charmbracelet/harmonica"
)

// PageTurnController owns the current-page cursor and the flip animation.
// A settled index is reported through onTurn exactly once; turning to the
// page that is already settled (or already the flip target) does nothing.
type PageTurnController struct {
	cfg    Config
	total  int
	onTurn func(int)

	settled  int
	reported int

	animating bool
	from      int
	target    int
	startedAt time.Time

	spring   harmonica.Spring
	progress float64
	velocity float64
}

// NewPageTurnController returns a controller that reports settled pages to onTurn.
func NewPageTurnController(cfg Config, onTurn func(int)) *PageTurnController {
	return &PageTurnController{
		cfg:    cfg,
		onTurn: onTurn,
		// Critically damped so the flip never overshoots the page edge.
		spring:   harmonica.NewSpring(harmonica.FPS(60), 7.0, 1.0),
		reported: -1,
	}
}

// Reset attaches a document of total pages, settled at start.
func (p *PageTurnController) Reset(total, start int) {
	p.total = max(total, 0)
	p.animating = false
	p.progress, p.velocity = 0, 0
	if p.total == 0 {
		p.settled, p.reported = 0, -1
		return
	}
	p.settled = clamp(start, 0, p.total-1)
	p.reported = p.settled
}

// CurrentIndex returns the last settled page.
func (p *PageTurnController) CurrentIndex() int {
	return p.settled
}

// Target returns the page being flipped to, or the settled page when idle.
func (p *PageTurnController) Target() int {
	if p.animating {
		return p.target
	}
	return p.settled
}

// Animating reports whether a flip is in progress.
func (p *PageTurnController) Animating() bool {
	return p.animating
}

// Progress returns the eased flip progress in [0, 1]; 0 when idle.
func (p *PageTurnController) Progress() float64 {
	if !p.animating {
		return 0
	}
	return min(max(p.progress, 0), 1)
}

// Direction returns +1 for a forward flip, -1 for a backward flip, 0 when idle.
func (p *PageTurnController) Direction() int {
	switch {
	case !p.animating:
		return 0
	case p.target > p.from:
		return 1
	default:
		return -1
	}
}

// TurnTo clamps index into the document and starts a flip towards it.
// It reports whether a turn was started (or settled immediately).
func (p *PageTurnController) TurnTo(index int, now time.Time) bool {
	if p.total == 0 {
		return false
	}
	index = clamp(index, 0, p.total-1)

	if p.animating {
		if index == p.target {
			return false
		}
		p.settle()
	}
	if index == p.settled {
		return false
	}

	p.from = p.settled
	p.target = index
	if p.cfg.FlipDuration <= 0 {
		p.animating = true
		p.settle()
		return true
	}

	p.animating = true
	p.startedAt = now
	p.progress, p.velocity = 0, 0
	return true
}

// Tick advances the animation by one frame and reports whether the flip
// settled during this call.
func (p *PageTurnController) Tick(now time.Time) bool {
	if !p.animating {
		return false
	}
	p.progress, p.velocity = p.spring.Update(p.progress, p.velocity, 1.0)
	if now.Sub(p.startedAt) < p.cfg.FlipDuration {
		return false
	}
	p.settle()
	return true
}

// Finish settles an in-flight flip immediately.
func (p *PageTurnController) Finish() bool {
	if !p.animating {
		return false
	}
	p.settle()
	return true
}

// NextSpread turns to the first page of the following spread.
func (p *PageTurnController) NextSpread(now time.Time) bool {
	if p.total == 0 {
		return false
	}
	left := p.spreadLeft(p.Target())
	next := left + 2
	if p.cfg.ShowCover && left == 0 {
		next = 1
	}
	if next > p.total-1 {
		return false
	}
	return p.TurnTo(next, now)
}

// PreviousSpread turns to the first page of the preceding spread.
func (p *PageTurnController) PreviousSpread(now time.Time) bool {
	if p.total == 0 {
		return false
	}
	left := p.spreadLeft(p.Target())
	prev := left - 2
	if p.cfg.ShowCover && left <= 1 {
		prev = 0
	}
	return p.TurnTo(max(prev, 0), now)
}

// spreadLeft returns the first page of the spread containing index.
func (p *PageTurnController) spreadLeft(index int) int {
	if !p.cfg.ShowCover {
		return index - index%2
	}
	if index == 0 || index%2 == 1 {
		return index
	}
	return index - 1
}

func (p *PageTurnController) settle() {
	p.animating = false
	p.settled = p.target
	p.progress, p.velocity = 0, 0
	if p.settled == p.reported {
		return
	}
	p.reported = p.settled
	if p.onTurn != nil {
		p.onTurn(p.settled)
	}
}
