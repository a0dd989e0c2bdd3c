package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"flipview/internal/document"
)

// ViewerState is the state shared by all controllers of a session.
type ViewerState struct {
	CurrentPageIndex int     `json:"current_page_index"`
	ZoomScale        float64 `json:"zoom_scale"`
}

// Hooks connect a session to the screen embedding it. OnReady and OnFailure
// fire at most once, for the first load attempt only.
type Hooks struct {
	OnReady   func(document.Metadata)
	OnFailure func(error)

	// StartPage picks the page a freshly loaded document opens at.
	StartPage func(document.Metadata) int
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Ready       bool              `json:"ready"`
	Metadata    document.Metadata `json:"metadata"`
	State       ViewerState       `json:"state"`
	Target      int               `json:"target"`
	Animating   bool              `json:"animating"`
	Window      Window            `json:"window"`
	Mode        string            `json:"mode"`
	RenderScale float64           `json:"render_scale"`
	Container   Size              `json:"container"`
	Fullscreen  bool              `json:"fullscreen"`
	Mounted     int               `json:"mounted"`
}

type observer struct {
	id int
	fn func(Event)
}

// Session is the composition root of a viewer: it owns the document
// metadata, the viewer state and the three controllers, and notifies
// observers after every mutation.
//
// A Session has a single logical writer and is not safe for concurrent use.
type Session struct {
	cfg    Config
	log    *slog.Logger
	hooks  Hooks
	policy InputPolicy

	meta      document.Metadata
	ready     bool
	attempted bool

	window *RenderWindowController
	turns  *PageTurnController
	scale  *ViewportScaleController
	slots  *PageSlots

	container  Size
	fullscreen bool

	observers []observer
	nextID    int
	pending   []Ticket
}

// NewSession returns a session with no document.
func NewSession(cfg Config, logger *slog.Logger, hooks Hooks) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:    cfg,
		log:    logger,
		hooks:  hooks,
		policy: NewInputPolicy(cfg),
		window: NewRenderWindowController(cfg),
		scale:  NewViewportScaleController(cfg),
		slots:  NewPageSlots(0),
	}
	s.turns = NewPageTurnController(cfg, s.onSettled)
	return s
}

// Open loads metadata from source and attaches it. It is the blocking
// counterpart of calling Complete with the result of loader.Load.
func (s *Session) Open(ctx context.Context, loader document.Loader, source string) error {
	meta, err := loader.Load(ctx, source)
	return s.Complete(meta, err)
}

// Complete finishes a load attempt. The first call fires OnReady or
// OnFailure; later successful calls attach the document silently.
func (s *Session) Complete(meta document.Metadata, err error) error {
	if err == nil {
		err = meta.Validate()
	}
	first := !s.attempted
	s.attempted = true

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
		s.log.Error("document load failed", "error", err)
		if first && s.hooks.OnFailure != nil {
			s.hooks.OnFailure(err)
		}
		return err
	}

	start := 0
	if s.hooks.StartPage != nil {
		start = s.hooks.StartPage(meta)
	}
	s.attach(meta, start)
	s.log.Info("document loaded",
		"source", meta.Source,
		"pages", meta.TotalPages,
		"width", meta.Width,
		"height", meta.Height,
		"start", s.turns.CurrentIndex(),
	)
	if first && s.hooks.OnReady != nil {
		s.hooks.OnReady(meta)
	}
	s.emit(Event{Kind: EventDocumentLoaded})
	return nil
}

// Reload swaps in new metadata for the same document, keeping the current
// page (clamped) and narrowing the window around it.
func (s *Session) Reload(meta document.Metadata) error {
	if !s.ready {
		return s.Complete(meta, nil)
	}
	if err := meta.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
		s.log.Warn("document reload rejected", "error", err)
		return err
	}
	current := s.turns.CurrentIndex()
	s.attach(meta, current)
	s.window.OnFullscreenTransition()
	s.sync()
	s.log.Info("document reloaded", "pages", meta.TotalPages, "current", s.turns.CurrentIndex())
	s.emit(Event{Kind: EventDocumentReloaded})
	return nil
}

func (s *Session) attach(meta document.Metadata, start int) {
	s.meta = meta
	s.ready = true
	s.turns.Reset(meta.TotalPages, start)
	s.window.Reset(meta.TotalPages, s.turns.CurrentIndex())
	s.slots.Reset(meta.TotalPages)
	s.pending = nil
	s.scale.RecomputeScale(s.container, s.intrinsic())
	s.sync()
}

// Ready reports whether a document is attached.
func (s *Session) Ready() bool {
	return s.ready
}

// Metadata returns the attached document's metadata.
func (s *Session) Metadata() document.Metadata {
	return s.meta
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Policy returns the pointer input policy.
func (s *Session) Policy() InputPolicy {
	return s.policy
}

// State returns the shared viewer state.
func (s *Session) State() ViewerState {
	return ViewerState{
		CurrentPageIndex: s.turns.CurrentIndex(),
		ZoomScale:        s.scale.Zoom(),
	}
}

// Window returns the current render window.
func (s *Session) Window() Window {
	return s.window.Window()
}

// Turns exposes the page-turn controller for animation rendering.
func (s *Session) Turns() *PageTurnController {
	return s.turns
}

// RenderScale returns the uniform scale applied to every page.
func (s *Session) RenderScale() float64 {
	return s.scale.RenderScale()
}

// Fullscreen reports whether the viewer is in fullscreen mode.
func (s *Session) Fullscreen() bool {
	return s.fullscreen
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// TurnTo starts a turn to index; out-of-range indices are clamped.
func (s *Session) TurnTo(index int, now time.Time) bool {
	if !s.ready {
		return false
	}
	return s.turns.TurnTo(index, now)
}

// NextSpread turns forward by one spread.
func (s *Session) NextSpread(now time.Time) bool {
	if !s.ready {
		return false
	}
	return s.turns.NextSpread(now)
}

// PreviousSpread turns back by one spread.
func (s *Session) PreviousSpread(now time.Time) bool {
	if !s.ready {
		return false
	}
	return s.turns.PreviousSpread(now)
}

// Tick advances the flip animation and reports whether a turn settled.
func (s *Session) Tick(now time.Time) bool {
	return s.turns.Tick(now)
}

// FinishTurn settles an in-flight flip immediately.
func (s *Session) FinishTurn() bool {
	return s.turns.Finish()
}

// onSettled recomputes the window synchronously with the turn, before any
// observer can query eligibility.
func (s *Session) onSettled(index int) {
	changed := s.window.OnPageTurn(index)
	s.sync()
	s.log.Debug("page turned", "page", index, "window_low", s.window.Window().Low, "window_high", s.window.Window().High)
	s.emit(Event{Kind: EventPageTurned})
	if changed {
		s.emit(Event{Kind: EventWindowChanged})
	}
}

// SetZoom clamps and applies a zoom level. It changes render density of the
// visible pair but never the window bounds.
func (s *Session) SetZoom(scale float64) float64 {
	prev := s.scale.Zoom()
	z := s.scale.OnZoomChanged(scale)
	if z != prev {
		s.sync()
		s.emit(Event{Kind: EventZoomChanged})
	}
	return z
}

// ZoomIn raises the zoom by one step.
func (s *Session) ZoomIn() float64 {
	return s.SetZoom(s.scale.Zoom() + s.cfg.ZoomStep)
}

// ZoomOut lowers the zoom by one step.
func (s *Session) ZoomOut() float64 {
	return s.SetZoom(s.scale.Zoom() - s.cfg.ZoomStep)
}

// ResetZoom returns to the fitted view.
func (s *Session) ResetZoom() float64 {
	return s.SetZoom(s.cfg.MinZoom)
}

// Resize records the container size and recomputes the render scale.
func (s *Session) Resize(container Size) float64 {
	s.container = container
	prev := s.scale.RenderScale()
	scale := s.scale.RecomputeScale(container, s.intrinsic())
	if scale != prev {
		s.sync()
		s.emit(Event{Kind: EventScaleChanged})
	}
	return scale
}

// SetFullscreen enters or leaves fullscreen. Either transition narrows the
// render window; the caller follows up with Resize for the new layout.
func (s *Session) SetFullscreen(on bool) {
	if on == s.fullscreen {
		return
	}
	s.fullscreen = on
	changed := s.window.OnFullscreenTransition()
	s.sync()
	s.emit(Event{Kind: EventFullscreenChanged})
	if changed {
		s.emit(Event{Kind: EventWindowChanged})
	}
}

// ToggleFullscreen flips the fullscreen mode.
func (s *Session) ToggleFullscreen() bool {
	s.SetFullscreen(!s.fullscreen)
	return s.fullscreen
}

// IsEligibleForMount reports whether page may request a surface.
func (s *Session) IsEligibleForMount(page int) bool {
	return s.window.IsEligibleForMount(page)
}

// IsActivePair reports whether page is currently visible.
func (s *Session) IsActivePair(page int) bool {
	return s.window.IsActivePair(page)
}

// PlanPage returns the render decision for one page.
func (s *Session) PlanPage(page int) PagePlan {
	active := s.window.IsActivePair(page)
	return PagePlan{
		Page:     page,
		Eligible: s.window.IsEligibleForMount(page),
		Active:   active,
		HeightPx: s.meta.Height * s.scale.RenderScale(),
		Density:  s.scale.Density(active, s.cfg.DevicePixelRatio),
	}
}

// Plan returns the render decision for every page.
func (s *Session) Plan() []PagePlan {
	if !s.ready {
		return nil
	}
	plans := make([]PagePlan, s.meta.TotalPages)
	for i := range plans {
		plans[i] = s.PlanPage(i)
	}
	return plans
}

// Slot returns the render state of page.
func (s *Session) Slot(page int) SlotView {
	return s.slots.Slot(page)
}

// TakeRequests returns the surface requests to issue and clears the queue.
// Tickets superseded since they were queued are omitted.
func (s *Session) TakeRequests() []Ticket {
	var out []Ticket
	for _, t := range s.pending {
		if s.slots.Current(t) {
			out = append(out, t)
		}
	}
	s.pending = nil
	return out
}

// ResolveSurface applies a finished request. Stale results are dropped and
// failures stay local to their page. A request that was cancelled is
// abandoned silently and queued again.
func (s *Session) ResolveSurface(t Ticket, surface Surface, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if s.slots.Abandon(t) {
			s.log.Debug("surface request abandoned", "page", t.Page, "error", err)
			s.sync()
		}
		return false
	}
	if err != nil {
		err = &SurfaceError{Page: t.Page, Err: err}
	}
	if !s.slots.Resolve(t, surface, err) {
		s.log.Debug("dropped stale surface", "page", t.Page, "generation", t.Generation)
		return false
	}
	if err != nil {
		s.log.Warn("surface request failed", "page", t.Page, "error", err)
		s.emit(Event{Kind: EventSurfaceFailed, Page: t.Page, Err: err})
	}
	return true
}

// Fulfill issues every queued request against provider with at most limit
// requests in flight, then applies the results. Results are applied on the
// caller's goroutine, so the single-writer rule holds.
func (s *Session) Fulfill(ctx context.Context, provider PageSurfaceProvider, limit int) int {
	tickets := s.TakeRequests()
	if len(tickets) == 0 {
		return 0
	}
	type result struct {
		surface Surface
		err     error
	}
	results := make([]result, len(tickets))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, t := range tickets {
		g.Go(func() error {
			surf, err := provider.RequestSurface(gctx, t.Page, t.HeightPx, t.Density)
			results[i] = result{surface: surf, err: err}
			return nil
		})
	}
	_ = g.Wait()

	applied := 0
	for i, t := range tickets {
		if s.ResolveSurface(t, results[i].surface, results[i].err) {
			applied++
		}
	}
	return applied
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Ready:       s.ready,
		Metadata:    s.meta,
		State:       s.State(),
		Target:      s.turns.Target(),
		Animating:   s.turns.Animating(),
		Window:      s.window.Window(),
		Mode:        s.scale.Mode().String(),
		RenderScale: s.scale.RenderScale(),
		Container:   s.container,
		Fullscreen:  s.fullscreen,
		Mounted:     s.slots.Mounted(),
	}
}

func (s *Session) intrinsic() Size {
	return Size{Width: s.meta.Width, Height: s.meta.Height}
}

func (s *Session) sync() {
	if !s.ready {
		return
	}
	s.pending = append(s.pending, s.slots.Sync(s.Plan())...)
}

func (s *Session) emit(ev Event) {
	snap := s.Snapshot()
	ev.State = snap.State
	ev.Window = snap.Window
	ev.RenderScale = snap.RenderScale
	ev.Fullscreen = snap.Fullscreen
	if ev.Kind != EventSurfaceFailed {
		ev.Page = snap.State.CurrentPageIndex
	}
	for _, o := range append([]observer(nil), s.observers...) {
		o.fn(ev)
	}
}
