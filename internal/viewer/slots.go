package viewer

import "math"

// SlotState is the render state of a single page slot.
type SlotState int

const (
	SlotPlaceholder SlotState = iota // outside the window, nothing requested
	SlotPending                      // request in flight
	SlotReady                        // surface applied
	SlotFailed                       // last request failed
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotReady:
		return "ready"
	case SlotFailed:
		return "failed"
	default:
		return "placeholder"
	}
}

// PagePlan is the render decision for one page.
type PagePlan struct {
	Page     int     `json:"page"`
	Eligible bool    `json:"eligible"`
	Active   bool    `json:"active"`
	HeightPx float64 `json:"height_px"`
	Density  float64 `json:"density"`
}

// Ticket identifies one surface request. Only the latest ticket of a slot
// may resolve it.
type Ticket struct {
	Page       int
	Generation uint64
	HeightPx   float64
	Density    float64
}

// SlotView is a read-only copy of a slot.
type SlotView struct {
	Page    int
	State   SlotState
	Surface *Surface
	Err     error
}

type slot struct {
	state    SlotState
	surface  *Surface
	err      error
	gen      uint64
	heightPx float64
	density  float64
}

// PageSlots tracks one slot per page and guards against stale responses.
type PageSlots struct {
	slots []slot
	gen   uint64
}

// NewPageSlots returns n placeholder slots.
func NewPageSlots(n int) *PageSlots {
	s := &PageSlots{}
	s.Reset(n)
	return s
}

// Reset discards every slot; in-flight tickets become stale.
func (s *PageSlots) Reset(n int) {
	s.gen++
	s.slots = make([]slot, max(n, 0))
	for i := range s.slots {
		s.slots[i].gen = s.gen
	}
}

// Len returns the number of slots.
func (s *PageSlots) Len() int {
	return len(s.slots)
}

// Sync applies a render plan: pages leaving the window drop back to
// placeholders and eligible pages whose surface does not match the plan get
// a new ticket. Failed slots are not retried for an unchanged plan.
func (s *PageSlots) Sync(plans []PagePlan) []Ticket {
	var tickets []Ticket
	for _, p := range plans {
		if p.Page < 0 || p.Page >= len(s.slots) {
			continue
		}
		sl := &s.slots[p.Page]

		if !p.Eligible {
			if sl.state != SlotPlaceholder {
				s.gen++
				*sl = slot{gen: s.gen}
			}
			continue
		}
		if p.HeightPx <= 0 {
			continue
		}
		if sl.state != SlotPlaceholder && sameSpec(sl.heightPx, p.HeightPx) && sameSpec(sl.density, p.Density) {
			continue
		}

		s.gen++
		sl.gen = s.gen
		sl.state = SlotPending
		sl.err = nil
		sl.heightPx = p.HeightPx
		sl.density = p.Density
		tickets = append(tickets, Ticket{
			Page:       p.Page,
			Generation: s.gen,
			HeightPx:   p.HeightPx,
			Density:    p.Density,
		})
	}
	return tickets
}

// Current reports whether t is still the latest ticket of its slot.
func (s *PageSlots) Current(t Ticket) bool {
	if t.Page < 0 || t.Page >= len(s.slots) {
		return false
	}
	sl := s.slots[t.Page]
	return sl.state == SlotPending && sl.gen == t.Generation
}

// Resolve applies a finished request and reports whether it was applied.
// Results for superseded tickets or unmounted pages are dropped.
func (s *PageSlots) Resolve(t Ticket, surface Surface, err error) bool {
	if !s.Current(t) {
		return false
	}
	sl := &s.slots[t.Page]
	if err != nil {
		sl.state = SlotFailed
		sl.err = err
		return true
	}
	sl.state = SlotReady
	sl.err = nil
	sl.surface = &surface
	return true
}

// Abandon returns the slot of a cancelled request to Placeholder so the next
// Sync issues a fresh ticket. Any previous surface is kept for display.
func (s *PageSlots) Abandon(t Ticket) bool {
	if !s.Current(t) {
		return false
	}
	s.gen++
	sl := &s.slots[t.Page]
	sl.gen = s.gen
	sl.state = SlotPlaceholder
	sl.err = nil
	sl.heightPx, sl.density = 0, 0
	return true
}

// Slot returns a copy of the slot for page.
func (s *PageSlots) Slot(page int) SlotView {
	if page < 0 || page >= len(s.slots) {
		return SlotView{Page: page}
	}
	sl := s.slots[page]
	return SlotView{Page: page, State: sl.state, Surface: sl.surface, Err: sl.err}
}

// Mounted returns the number of slots that are not placeholders.
func (s *PageSlots) Mounted() int {
	n := 0
	for _, sl := range s.slots {
		if sl.state != SlotPlaceholder {
			n++
		}
	}
	return n
}

func sameSpec(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
