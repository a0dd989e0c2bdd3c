package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"flipview/internal/config"
	"flipview/internal/document"
	"flipview/internal/surface"
	"flipview/internal/viewer"
	"flipview/ui/tui/components"
	"flipview/ui/tui/state"
	"flipview/ui/tui/views"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"golang.org/x/sync/errgroup"
)

// Surface requests in flight at once.
const fulfillLimit = 4

// Options wires a MainModel to its document.
type Options struct {
	Source  string
	Open    surface.OpenFunc
	Watcher *document.Watcher // optional; reloads the document on change
	Logger  *slog.Logger
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	cfg         config.Config
	session     *viewer.Session
	open        surface.OpenFunc
	provider    viewer.PageSurfaceProvider
	watcher     *document.Watcher
	log         *slog.Logger
	unsubscribe func()

	state    state.AppState
	spinner  spinner.Model
	chart    *components.WindowChart
	animPage float64
	velocity float64 // Physics velocity
	spring   harmonica.Spring
	quitting bool
	width    int
	height   int
}

// Messages
type AnimateMsg time.Time

type DocumentLoadedMsg struct {
	Meta     document.Metadata
	Provider viewer.PageSurfaceProvider
	Err      error
	Reload   bool
}

type SurfaceResult struct {
	Ticket  viewer.Ticket
	Surface viewer.Surface
	Err     error
}

type SurfacesMsg struct {
	Results []SurfaceResult
}

type DocumentChangedMsg struct{}

func InitialModel(cfg config.Config, session *viewer.Session, opts Options) *MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &MainModel{
		cfg:     cfg,
		session: session,
		open:    opts.Open,
		watcher: opts.Watcher,
		log:     logger,
		spinner: s,
		chart:   components.NewWindowChart(60, views.ChartRows),
		// Same feel as the flip itself: quick, without overshoot.
		spring: harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9),
		state: state.AppState{
			Mode:   state.ModeLoading,
			Source: opts.Source,
		},
	}
	m.unsubscribe = session.Subscribe(m.handleEvent)
	return m
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		animateCmd(),
		m.openCmd(false),
		waitForChangeCmd(m.watcher),
	)
}

// Commands
func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func (m *MainModel) openCmd(reload bool) tea.Cmd {
	open, source, timeout := m.open, m.state.Source, m.cfg.FetchTimeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		meta, p, err := open(ctx, source)
		return DocumentLoadedMsg{Meta: meta, Provider: p, Err: err, Reload: reload}
	}
}

func waitForChangeCmd(w *document.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-w.Changes(); !ok {
			return nil
		}
		return DocumentChangedMsg{}
	}
}

// fulfillCmd issues the session's queued surface requests off the update
// loop; results come back as a SurfacesMsg and are applied in Update.
func (m *MainModel) fulfillCmd() tea.Cmd {
	if m.provider == nil {
		return nil
	}
	tickets := m.session.TakeRequests()
	if len(tickets) == 0 {
		return nil
	}
	provider := m.provider
	return func() tea.Msg {
		results := make([]SurfaceResult, len(tickets))
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(fulfillLimit)
		for i, t := range tickets {
			g.Go(func() error {
				surf, err := provider.RequestSurface(ctx, t.Page, t.HeightPx, t.Density)
				results[i] = SurfaceResult{Ticket: t, Surface: surf, Err: err}
				return nil
			})
		}
		_ = g.Wait()
		return SurfacesMsg{Results: results}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case DocumentLoadedMsg:
		return m.handleDocumentLoadedMsg(msg)

	case SurfacesMsg:
		return m.handleSurfacesMsg(msg)

	case DocumentChangedMsg:
		return m.handleDocumentChangedMsg(msg)

	case spinner.TickMsg:
		if m.state.Mode != state.ModeLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state.Mode {
	case state.ModeFailed:
		if msg.String() == "r" {
			m.state.Mode = state.ModeLoading
			m.state.Err = nil
			return m, tea.Batch(m.spinner.Tick, m.openCmd(false))
		}
		return m, nil
	case state.ModeLoading:
		return m, nil
	}

	now := time.Now()
	switch msg.String() {
	case "right", "l", "pgdown", " ":
		m.session.NextSpread(now)
	case "left", "h", "pgup":
		m.session.PreviousSpread(now)
	case "home", "g":
		m.session.TurnTo(0, now)
	case "end", "G":
		m.session.TurnTo(m.session.Metadata().TotalPages-1, now)
	case "+", "=":
		m.session.ZoomIn()
	case "-":
		m.session.ZoomOut()
	case "0":
		m.session.ResetZoom()
	case "f":
		m.session.ToggleFullscreen()
		m.resize()
	case "esc":
		if m.session.Fullscreen() {
			m.session.SetFullscreen(false)
			m.resize()
		}
	default:
		return m, nil
	}
	return m, m.refresh()
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	settled := m.session.Tick(time.Time(msg))

	target := float64(m.session.Turns().Target())
	m.animPage, m.velocity = m.spring.Update(m.animPage, m.velocity, target)

	if settled || m.session.Turns().Animating() {
		return m, tea.Batch(m.refresh(), animateCmd())
	}
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	newW := msg.Width - 8
	if newW > 10 {
		m.chart.Resize(newW, views.ChartRows)
	}
	m.resize()
	return m, m.refresh()
}

// resize hands the session the pixel size of the spread area for the
// current layout.
func (m *MainModel) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	w, h, _ := views.Layout(m.width, m.height, m.session.Fullscreen())
	m.session.Resize(viewer.Size{
		Width:  float64(w) * m.cfg.CellWidthPx,
		Height: float64(h) * m.cfg.CellHeightPx,
	})
}

func (m *MainModel) handleDocumentLoadedMsg(msg DocumentLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Reload {
		if msg.Err != nil {
			m.log.Warn("document reload failed", "source", m.state.Source, "error", msg.Err)
			m.state.Notice = "reload failed"
			return m, nil
		}
		if err := m.session.Reload(msg.Meta); err != nil {
			closeProvider(msg.Provider)
			m.state.Notice = "reload rejected"
			return m, nil
		}
		m.swapProvider(msg.Provider)
		m.state.Reloads++
		m.state.Notice = "reloaded"
		m.resize()
		return m, m.refresh()
	}

	if err := m.session.Complete(msg.Meta, msg.Err); err != nil {
		closeProvider(msg.Provider)
		m.state.Mode = state.ModeFailed
		m.state.Err = err
		return m, nil
	}
	m.swapProvider(msg.Provider)
	m.state.Mode = state.ModeReady
	m.state.Notice = ""
	m.animPage = float64(m.session.State().CurrentPageIndex)
	m.resize()
	return m, m.refresh()
}

func (m *MainModel) handleSurfacesMsg(msg SurfacesMsg) (tea.Model, tea.Cmd) {
	for _, r := range msg.Results {
		m.session.ResolveSurface(r.Ticket, r.Surface, r.Err)
	}
	return m, m.refresh()
}

func (m *MainModel) handleDocumentChangedMsg(msg DocumentChangedMsg) (tea.Model, tea.Cmd) {
	if m.state.Mode != state.ModeReady {
		return m, waitForChangeCmd(m.watcher)
	}
	return m, tea.Batch(m.openCmd(true), waitForChangeCmd(m.watcher))
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || m.state.Mode != state.ModeReady || !m.clickTurn() {
		return m, nil
	}
	now := time.Now()
	switch {
	case zone.Get(views.ZoneRightPage).InBounds(msg):
		m.session.NextSpread(now)
	case zone.Get(views.ZoneLeftPage).InBounds(msg):
		if m.session.State().CurrentPageIndex == 0 {
			m.session.NextSpread(now)
		} else {
			m.session.PreviousSpread(now)
		}
	default:
		return m, nil
	}
	return m, m.refresh()
}

func (m *MainModel) clickTurn() bool {
	widthPx := float64(m.width) * m.cfg.CellWidthPx
	return m.session.Policy().AllowsClickTurn(widthPx, m.session.State().ZoomScale)
}

// handleEvent runs synchronously inside Update, whenever the session changes.
func (m *MainModel) handleEvent(ev viewer.Event) {
	m.state.LastEvent = ev.Kind.String()
	switch ev.Kind {
	case viewer.EventDocumentLoaded, viewer.EventDocumentReloaded:
		m.chart.Reset(m.session.Metadata().TotalPages)
		m.chart.Push(ev.Window, ev.Page)
	case viewer.EventPageTurned, viewer.EventFullscreenChanged:
		m.chart.Push(ev.Window, ev.Page)
	case viewer.EventSurfaceFailed:
		m.state.Notice = fmt.Sprintf("page %d failed", ev.Page+1)
	}
}

// refresh copies the session into the view state and issues any surface
// requests the last change queued.
func (m *MainModel) refresh() tea.Cmd {
	snap := m.session.Snapshot()
	m.state.Snapshot = snap
	m.state.LastUpdate = time.Now()
	if n := snap.Metadata.TotalPages; len(m.state.Slots) != n {
		m.state.Slots = make([]viewer.SlotView, n)
	}
	for i := range m.state.Slots {
		m.state.Slots[i] = m.session.Slot(i)
	}
	return m.fulfillCmd()
}

func (m *MainModel) swapProvider(p viewer.PageSurfaceProvider) {
	closeProvider(m.provider)
	m.provider = p
}

func closeProvider(p viewer.PageSurfaceProvider) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}

// Close detaches the model from its session and releases the document.
func (m *MainModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.swapProvider(nil)
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.Mode {
	case state.ModeLoading:
		return views.RenderLoading(m.state, m.width, m.height, m.spinner.View())
	case state.ModeFailed:
		return views.RenderError(m.state, m.width, m.height)
	}

	_, _, showChart := views.Layout(m.width, m.height, m.state.Snapshot.Fullscreen)
	chartView := ""
	if showChart {
		chartView = m.chart.View()
	}
	turns := m.session.Turns()
	return views.RenderReader(m.state, views.ViewProps{
		Width:         m.width,
		Height:        m.height,
		CellWidthPx:   m.cfg.CellWidthPx,
		CellHeightPx:  m.cfg.CellHeightPx,
		ChartView:     chartView,
		FlipProgress:  turns.Progress(),
		FlipDirection: turns.Direction(),
		AnimPage:      m.animPage,
		ClickTurn:     m.clickTurn(),
		ShowCover:     m.cfg.Viewer.ShowCover,
	})
}

func Start(cfg config.Config, session *viewer.Session, opts Options) error {
	m := InitialModel(cfg, session, opts)
	defer m.Close()
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
