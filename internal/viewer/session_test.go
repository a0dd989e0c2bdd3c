package viewer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipview/internal/document"
)

// MockLoader returns fixed metadata or an error.
type MockLoader struct {
	Meta document.Metadata
	Err  error
}

func (m MockLoader) Load(ctx context.Context, source string) (document.Metadata, error) {
	if m.Err != nil {
		return document.Metadata{}, m.Err
	}
	meta := m.Meta
	meta.Source = source
	return meta, nil
}

func testMeta(pages int) document.Metadata {
	return document.Metadata{TotalPages: pages, Width: 800, Height: 1000, Fingerprint: "abc"}
}

func immediateConfig() Config {
	cfg := DefaultConfig()
	cfg.FlipDuration = 0
	return cfg
}

func openSession(t *testing.T, pages int) *Session {
	t.Helper()
	s := NewSession(immediateConfig(), nil, Hooks{})
	s.Resize(Size{Width: 1000, Height: 800})
	require.NoError(t, s.Open(context.Background(), MockLoader{Meta: testMeta(pages)}, "paper.pdf"))
	return s
}

func TestSession_OpenFiresReadyOnce(t *testing.T) {
	var ready, failed int
	s := NewSession(immediateConfig(), nil, Hooks{
		OnReady:   func(document.Metadata) { ready++ },
		OnFailure: func(error) { failed++ },
	})

	require.NoError(t, s.Open(context.Background(), MockLoader{Meta: testMeta(12)}, "a.pdf"))
	require.NoError(t, s.Open(context.Background(), MockLoader{Meta: testMeta(12)}, "a.pdf"))
	assert.Equal(t, 1, ready)
	assert.Equal(t, 0, failed)
	assert.Equal(t, "a.pdf", s.Metadata().Source)
}

func TestSession_OpenFailureIsSessionFatal(t *testing.T) {
	var ready, failed int
	var reason error
	s := NewSession(immediateConfig(), nil, Hooks{
		OnReady:   func(document.Metadata) { ready++ },
		OnFailure: func(err error) { failed++; reason = err },
	})

	err := s.Open(context.Background(), MockLoader{Err: document.ErrNotPDF}, "notes.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	assert.ErrorIs(t, err, document.ErrNotPDF)
	assert.ErrorIs(t, reason, ErrMetadataUnavailable)
	assert.Equal(t, 1, failed)

	assert.False(t, s.Ready())
	assert.False(t, s.TurnTo(3, time.Now()))
	assert.False(t, s.IsEligibleForMount(0))
	assert.Nil(t, s.Plan())
	assert.Empty(t, s.TakeRequests())

	require.NoError(t, s.Open(context.Background(), MockLoader{Meta: testMeta(4)}, "retry.pdf"))
	assert.Equal(t, 0, ready, "a retry after the first attempt does not fire OnReady")
	assert.True(t, s.Ready())
}

func TestSession_InvalidMetadataRejected(t *testing.T) {
	s := NewSession(immediateConfig(), nil, Hooks{})
	err := s.Complete(document.Metadata{TotalPages: 0, Width: 1, Height: 1}, nil)
	assert.ErrorIs(t, err, document.ErrNoPages)
	err = s.Complete(document.Metadata{TotalPages: 3, Width: 0, Height: 1}, nil)
	assert.ErrorIs(t, err, document.ErrInvalidPageSize)
	assert.False(t, s.Ready())
}

func TestSession_Scenario20Pages(t *testing.T) {
	s := openSession(t, 20)
	now := time.Now()
	assert.Equal(t, Window{0, 4}, s.Window())

	s.TurnTo(10, now)
	assert.Equal(t, Window{0, 14}, s.Window())
	s.TurnTo(2, now)
	assert.Equal(t, Window{0, 14}, s.Window())
	s.TurnTo(18, now)
	assert.Equal(t, Window{0, 19}, s.Window())
	assert.Equal(t, 18, s.State().CurrentPageIndex)
}

func TestSession_WindowRecomputedBeforeObserversRun(t *testing.T) {
	s := openSession(t, 20)
	var eligibleAtTurn bool
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventPageTurned {
			eligibleAtTurn = s.IsEligibleForMount(ev.Page + 1)
		}
	})

	s.TurnTo(12, time.Now())
	assert.True(t, eligibleAtTurn)
}

func TestSession_EventsAndUnsubscribe(t *testing.T) {
	s := openSession(t, 20)
	var kinds []EventKind
	unsubscribe := s.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	s.TurnTo(8, time.Now())
	s.TurnTo(8, time.Now())
	assert.Equal(t, []EventKind{EventPageTurned, EventWindowChanged}, kinds)

	unsubscribe()
	s.TurnTo(1, time.Now())
	assert.Len(t, kinds, 2)
}

func TestSession_ZoomChangesDensityNotWindow(t *testing.T) {
	s := openSession(t, 20)
	s.TakeRequests()
	before := s.Window()

	assert.Equal(t, 2.0, s.SetZoom(2))
	assert.Equal(t, before, s.Window())

	tickets := s.TakeRequests()
	require.Len(t, tickets, 2, "only the visible pair is re-requested")
	for _, tk := range tickets {
		assert.True(t, s.IsActivePair(tk.Page))
		assert.Equal(t, 2.0, tk.Density)
	}
	assert.False(t, s.Policy().PointerTurnEnabled(s.State().ZoomScale))

	assert.Equal(t, 5.0, s.SetZoom(9))
	assert.Equal(t, 1.0, s.ResetZoom())
}

func TestSession_FullscreenNarrowsWindow(t *testing.T) {
	s := openSession(t, 30)
	now := time.Now()
	s.TurnTo(10, now)
	s.TurnTo(20, now)
	require.Equal(t, Window{0, 24}, s.Window())

	assert.True(t, s.ToggleFullscreen())
	assert.Equal(t, Window{18, 22}, s.Window())
	assert.Equal(t, SlotPlaceholder, s.Slot(5).State)

	assert.False(t, s.ToggleFullscreen())
	assert.Equal(t, Window{18, 22}, s.Window())
}

func TestSession_ResizeRecomputesScaleAndHeights(t *testing.T) {
	s := openSession(t, 6)
	assert.InDelta(t, 0.5, s.RenderScale(), 1e-9)
	assert.InDelta(t, 500, s.PlanPage(0).HeightPx, 1e-9)

	s.TakeRequests()
	s.Resize(Size{Width: 2000, Height: 1600})
	assert.InDelta(t, 1.0, s.RenderScale(), 1e-9)
	tickets := s.TakeRequests()
	require.Len(t, tickets, 5)
	assert.InDelta(t, 1000, tickets[0].HeightPx, 1e-9)
}

func TestSession_FulfillAppliesSurfacesAndIsolatesFailures(t *testing.T) {
	s := openSession(t, 10)
	var calls atomic.Int32
	provider := PageSurfaceProviderFunc(func(ctx context.Context, page int, h, d float64) (Surface, error) {
		calls.Add(1)
		if page == 2 {
			return Surface{}, errors.New("decode error")
		}
		return Surface{Page: page, HeightPx: h, Density: d}, nil
	})
	var failures []int
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventSurfaceFailed {
			failures = append(failures, ev.Page)
			var se *SurfaceError
			assert.ErrorAs(t, ev.Err, &se)
		}
	})

	applied := s.Fulfill(context.Background(), provider, 2)
	assert.Equal(t, 5, applied)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, []int{2}, failures)

	assert.Equal(t, SlotReady, s.Slot(0).State)
	assert.Equal(t, SlotFailed, s.Slot(2).State)
	assert.Equal(t, SlotPlaceholder, s.Slot(7).State)
	assert.Equal(t, Window{0, 4}, s.Window())
}

func TestSession_CancelledFulfillIsRetried(t *testing.T) {
	s := openSession(t, 10)
	var failures int
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventSurfaceFailed {
			failures++
		}
	})
	provider := PageSurfaceProviderFunc(func(ctx context.Context, page int, h, d float64) (Surface, error) {
		if err := ctx.Err(); err != nil {
			return Surface{}, err
		}
		return Surface{Page: page, HeightPx: h, Density: d}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 0, s.Fulfill(ctx, provider, 2))
	assert.Equal(t, 0, failures)
	for page := 0; page <= 4; page++ {
		assert.Equal(t, SlotPending, s.Slot(page).State, "page %d", page)
		assert.NoError(t, s.Slot(page).Err)
	}

	// The abandoned pages are already queued again; the next turn adds page 5.
	s.TurnTo(1, time.Now())
	assert.Equal(t, 6, s.Fulfill(context.Background(), provider, 2))
	for page := 0; page <= 5; page++ {
		assert.Equal(t, SlotReady, s.Slot(page).State, "page %d", page)
	}
	assert.Equal(t, 0, failures)
}

func TestSession_DeadlineExceededIsNotAFailure(t *testing.T) {
	s := openSession(t, 10)
	tickets := s.TakeRequests()
	require.NotEmpty(t, tickets)

	assert.False(t, s.ResolveSurface(tickets[0], Surface{}, &SurfaceError{Page: 0, Err: context.DeadlineExceeded}))
	assert.Equal(t, SlotPending, s.Slot(0).State)

	retry := s.TakeRequests()
	require.Len(t, retry, 1)
	assert.Equal(t, 0, retry[0].Page)
	assert.Greater(t, retry[0].Generation, tickets[0].Generation)
	assert.False(t, s.ResolveSurface(tickets[0], Surface{Page: 0}, nil), "superseded ticket")
	assert.True(t, s.ResolveSurface(retry[0], Surface{Page: 0}, nil))
	assert.Equal(t, SlotReady, s.Slot(0).State)
}

func TestSession_StaleSurfaceAfterFullscreen(t *testing.T) {
	s := openSession(t, 30)
	s.TurnTo(20, time.Now())
	tickets := s.TakeRequests()
	var far Ticket
	for _, tk := range tickets {
		if tk.Page == 24 {
			far = tk
		}
	}
	require.Equal(t, 24, far.Page)

	s.SetFullscreen(true)
	assert.False(t, s.ResolveSurface(far, Surface{Page: 24}, nil))
	assert.Equal(t, SlotPlaceholder, s.Slot(24).State)
}

func TestSession_StartPageHookAndReload(t *testing.T) {
	s := NewSession(immediateConfig(), nil, Hooks{
		StartPage: func(document.Metadata) int { return 12 },
	})
	s.Resize(Size{Width: 1000, Height: 800})
	require.NoError(t, s.Open(context.Background(), MockLoader{Meta: testMeta(20)}, "a.pdf"))
	assert.Equal(t, 12, s.State().CurrentPageIndex)
	assert.Equal(t, Window{12, 16}, s.Window())

	var reloaded bool
	s.Subscribe(func(ev Event) { reloaded = reloaded || ev.Kind == EventDocumentReloaded })
	require.NoError(t, s.Reload(testMeta(10)))
	assert.True(t, reloaded)
	assert.Equal(t, 9, s.State().CurrentPageIndex)
	assert.Equal(t, Window{7, 9}, s.Window())
}

func TestSession_AnimatedTurnReportsOnSettle(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSession(cfg, nil, Hooks{})
	s.Resize(Size{Width: 1000, Height: 800})
	require.NoError(t, s.Open(context.Background(), MockLoader{Meta: testMeta(20)}, "a.pdf"))

	start := time.Now()
	require.True(t, s.TurnTo(9, start))
	assert.Equal(t, 0, s.State().CurrentPageIndex)
	assert.Equal(t, Window{0, 4}, s.Window())

	assert.False(t, s.Tick(start.Add(100*time.Millisecond)))
	assert.True(t, s.Tick(start.Add(cfg.FlipDuration)))
	assert.Equal(t, 9, s.State().CurrentPageIndex)
	assert.Equal(t, Window{0, 13}, s.Window())
}
