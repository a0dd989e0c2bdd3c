package mcpserver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"flipview/internal/database/relational"
	"flipview/internal/document"
	"flipview/internal/viewer"
)

// MockProvider renders every page except those listed in Fail.
type MockProvider struct {
	Fail   map[int]bool
	Closed bool

	mu    sync.Mutex
	calls int
}

func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) RequestSurface(ctx context.Context, page int, h, d float64) (viewer.Surface, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Fail[page] {
		return viewer.Surface{}, errors.New("decode error")
	}
	return viewer.Surface{Page: page, HeightPx: h, WidthPx: h * 0.8, Density: d}, nil
}

func (m *MockProvider) Close() error {
	m.Closed = true
	return nil
}

// MockRepo implements relational.ReadingRepository for testing
type MockRepo struct {
	Events   []relational.EventRecord
	Err      error
	GotDocID string
	GotLimit int
}

func (m *MockRepo) Migrate(ctx context.Context) error { return nil }

func (m *MockRepo) UpsertDocument(ctx context.Context, d relational.Document) error { return nil }

func (m *MockRepo) InsertEvents(ctx context.Context, e []relational.EventRecord) (int, error) {
	return len(e), nil
}

func (m *MockRepo) SavePosition(ctx context.Context, p relational.Position) error { return nil }

func (m *MockRepo) LastPosition(ctx context.Context, id string) (relational.Position, error) {
	return relational.Position{}, relational.ErrNoPosition
}

func (m *MockRepo) Close() error { return nil }

func (m *MockRepo) RecentEvents(ctx context.Context, id string, limit int) ([]relational.EventRecord, error) {
	m.GotDocID, m.GotLimit = id, limit
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Events, nil
}

func testOpener(pages int, provider *MockProvider) func(context.Context, string) (document.Metadata, viewer.PageSurfaceProvider, error) {
	return func(ctx context.Context, source string) (document.Metadata, viewer.PageSurfaceProvider, error) {
		if source == "missing.pdf" {
			return document.Metadata{}, nil, errors.New("no such file")
		}
		meta := document.Metadata{TotalPages: pages, Width: 800, Height: 1000, Source: source, Fingerprint: "doc-" + source}
		return meta, provider, nil
	}
}

func newTestServer(t *testing.T, pages int, provider *MockProvider, repo relational.ReadingRepository) *Server {
	t.Helper()
	cfg := viewer.DefaultConfig()
	session := viewer.NewSession(cfg, nil, viewer.Hooks{})
	session.Resize(viewer.Size{Width: 1000, Height: 800})

	s := NewServer(Config{ServerName: "flipview", ServerVersion: "test"}, session, testOpener(pages, provider), repo, nil)
	if _, _, err := s.handleOpenDocument(context.Background(), nil, OpenDocumentArgs{Source: "paper.pdf"}); err != nil {
		t.Fatalf("open_document failed: %v", err)
	}
	return s
}

func TestHandleOpenDocument(t *testing.T) {
	provider := &MockProvider{}
	s := newTestServer(t, 20, provider, nil)

	_, result, err := s.handleViewerState(context.Background(), nil, EmptyArgs{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.Snapshot.Ready {
		t.Fatal("Expected ready session")
	}
	if result.Snapshot.Window != (viewer.Window{Low: 0, High: 4}) {
		t.Errorf("Expected window [0,4], got %+v", result.Snapshot.Window)
	}
	if provider.Calls() != 5 {
		t.Errorf("Expected 5 initial surface requests, got %d", provider.Calls())
	}
}

func TestHandleOpenDocument_Errors(t *testing.T) {
	s := newTestServer(t, 20, &MockProvider{}, nil)

	if _, _, err := s.handleOpenDocument(context.Background(), nil, OpenDocumentArgs{}); err == nil {
		t.Error("Expected error for empty source")
	}
	_, _, err := s.handleOpenDocument(context.Background(), nil, OpenDocumentArgs{Source: "missing.pdf"})
	if !errors.Is(err, viewer.ErrMetadataUnavailable) {
		t.Errorf("Expected ErrMetadataUnavailable, got %v", err)
	}
}

func TestHandleOpenDocument_ReplacesProvider(t *testing.T) {
	first := &MockProvider{}
	s := newTestServer(t, 20, first, nil)

	second := &MockProvider{}
	s.open = testOpener(8, second)
	_, result, err := s.handleOpenDocument(context.Background(), nil, OpenDocumentArgs{Source: "other.pdf"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !first.Closed {
		t.Error("Expected previous provider to be closed")
	}
	if result.Snapshot.Metadata.TotalPages != 8 {
		t.Errorf("Expected 8 pages, got %d", result.Snapshot.Metadata.TotalPages)
	}
}

func TestHandleTurnTo_GrowsWindow(t *testing.T) {
	s := newTestServer(t, 20, &MockProvider{}, nil)
	ctx := context.Background()

	steps := []struct {
		page int
		want viewer.Window
	}{
		{10, viewer.Window{Low: 0, High: 14}},
		{2, viewer.Window{Low: 0, High: 14}},
		{18, viewer.Window{Low: 0, High: 19}},
	}
	for _, step := range steps {
		_, result, err := s.handleTurnTo(ctx, nil, TurnToArgs{Page: step.page})
		if err != nil {
			t.Fatalf("turn_to %d failed: %v", step.page, err)
		}
		if result.Snapshot.State.CurrentPageIndex != step.page {
			t.Errorf("Expected page %d, got %d", step.page, result.Snapshot.State.CurrentPageIndex)
		}
		if result.Snapshot.Window != step.want {
			t.Errorf("After turn to %d expected window %+v, got %+v", step.page, step.want, result.Snapshot.Window)
		}
		if result.Snapshot.Animating {
			t.Error("Expected flip to be settled after tool call")
		}
	}
}

func TestHandleSpreads(t *testing.T) {
	s := newTestServer(t, 20, &MockProvider{}, nil)
	ctx := context.Background()

	_, result, err := s.handleNextSpread(ctx, nil, EmptyArgs{})
	if err != nil {
		t.Fatalf("next_spread failed: %v", err)
	}
	if result.Snapshot.State.CurrentPageIndex != 1 {
		t.Errorf("Expected page 1 after cover, got %d", result.Snapshot.State.CurrentPageIndex)
	}

	_, result, _ = s.handleNextSpread(ctx, nil, EmptyArgs{})
	if result.Snapshot.State.CurrentPageIndex != 3 {
		t.Errorf("Expected page 3, got %d", result.Snapshot.State.CurrentPageIndex)
	}

	_, result, _ = s.handlePreviousSpread(ctx, nil, EmptyArgs{})
	if result.Snapshot.State.CurrentPageIndex != 1 {
		t.Errorf("Expected page 1, got %d", result.Snapshot.State.CurrentPageIndex)
	}
}

func TestHandleSetZoom_RerendersVisiblePair(t *testing.T) {
	provider := &MockProvider{}
	s := newTestServer(t, 20, provider, nil)
	before := provider.Calls()

	_, result, err := s.handleSetZoom(context.Background(), nil, SetZoomArgs{Zoom: 2})
	if err != nil {
		t.Fatalf("set_zoom failed: %v", err)
	}
	if result.Snapshot.State.ZoomScale != 2 {
		t.Errorf("Expected zoom 2, got %v", result.Snapshot.State.ZoomScale)
	}
	if result.Snapshot.Window != (viewer.Window{Low: 0, High: 4}) {
		t.Errorf("Zoom must not change window, got %+v", result.Snapshot.Window)
	}
	if got := provider.Calls() - before; got != 2 {
		t.Errorf("Expected 2 re-rendered pages, got %d", got)
	}

	_, result, _ = s.handleSetZoom(context.Background(), nil, SetZoomArgs{Zoom: 50})
	if result.Snapshot.State.ZoomScale != 5 {
		t.Errorf("Expected zoom clamped to 5, got %v", result.Snapshot.State.ZoomScale)
	}
}

func TestHandleToggleFullscreen(t *testing.T) {
	s := newTestServer(t, 30, &MockProvider{}, nil)
	ctx := context.Background()
	s.handleTurnTo(ctx, nil, TurnToArgs{Page: 10})
	s.handleTurnTo(ctx, nil, TurnToArgs{Page: 20})

	_, result, err := s.handleToggleFullscreen(ctx, nil, EmptyArgs{})
	if err != nil {
		t.Fatalf("toggle_fullscreen failed: %v", err)
	}
	if !result.Snapshot.Fullscreen {
		t.Error("Expected fullscreen on")
	}
	if result.Snapshot.Window != (viewer.Window{Low: 18, High: 22}) {
		t.Errorf("Expected window [18,22], got %+v", result.Snapshot.Window)
	}

	_, status, err := s.handlePageStatus(ctx, nil, PageStatusArgs{Page: 5})
	if err != nil {
		t.Fatalf("page_status failed: %v", err)
	}
	if status.Eligible || status.State != "placeholder" {
		t.Errorf("Expected page 5 unmounted, got %+v", status)
	}
}

func TestHandleResize(t *testing.T) {
	s := newTestServer(t, 6, &MockProvider{}, nil)

	_, result, err := s.handleResize(context.Background(), nil, ResizeArgs{Width: 2000, Height: 1600})
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	if result.Snapshot.RenderScale != 1 {
		t.Errorf("Expected render scale 1, got %v", result.Snapshot.RenderScale)
	}
	if result.Rendered != 5 {
		t.Errorf("Expected 5 pages re-rendered at the new height, got %d", result.Rendered)
	}

	if _, _, err := s.handleResize(context.Background(), nil, ResizeArgs{Width: 0, Height: 10}); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestHandlePageStatus(t *testing.T) {
	s := newTestServer(t, 20, &MockProvider{Fail: map[int]bool{2: true}}, nil)
	ctx := context.Background()

	_, ready, err := s.handlePageStatus(ctx, nil, PageStatusArgs{Page: 0})
	if err != nil {
		t.Fatalf("page_status failed: %v", err)
	}
	if ready.State != "ready" || !ready.Active || ready.Surface == nil {
		t.Errorf("Expected page 0 ready and active, got %+v", ready)
	}

	_, failed, _ := s.handlePageStatus(ctx, nil, PageStatusArgs{Page: 2})
	if failed.State != "failed" || failed.Error == "" {
		t.Errorf("Expected page 2 failed with error, got %+v", failed)
	}

	if _, _, err := s.handlePageStatus(ctx, nil, PageStatusArgs{Page: 20}); err == nil {
		t.Error("Expected error for out of range page")
	}
}

func TestTools_RequireDocument(t *testing.T) {
	session := viewer.NewSession(viewer.DefaultConfig(), nil, viewer.Hooks{})
	s := NewServer(Config{}, session, nil, nil, nil)
	ctx := context.Background()

	if _, _, err := s.handleTurnTo(ctx, nil, TurnToArgs{Page: 3}); !errors.Is(err, viewer.ErrSessionNotReady) {
		t.Errorf("Expected ErrSessionNotReady, got %v", err)
	}
	if _, _, err := s.handlePageStatus(ctx, nil, PageStatusArgs{Page: 0}); !errors.Is(err, viewer.ErrSessionNotReady) {
		t.Errorf("Expected ErrSessionNotReady, got %v", err)
	}
	if _, _, err := s.handleOpenDocument(ctx, nil, OpenDocumentArgs{Source: "a.pdf"}); err == nil {
		t.Error("Expected error without an opener")
	}
	_, state, err := s.handleViewerState(ctx, nil, EmptyArgs{})
	if err != nil || state.Snapshot.Ready {
		t.Errorf("Expected not-ready snapshot, got %+v, %v", state.Snapshot, err)
	}
}

func TestHandleReadingHistory(t *testing.T) {
	repo := &MockRepo{Events: []relational.EventRecord{
		{Kind: relational.KindPageTurned, PageIndex: 10},
	}}
	s := newTestServer(t, 20, &MockProvider{}, repo)

	_, result, err := s.handleReadingHistory(context.Background(), nil, ReadingHistoryArgs{Limit: 1000})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Events) != 1 {
		t.Errorf("Expected 1 event, got %d", len(result.Events))
	}
	if repo.GotDocID != "doc-paper.pdf" {
		t.Errorf("Expected open document id, got %q", repo.GotDocID)
	}
	if repo.GotLimit != 200 {
		t.Errorf("Expected limit capped at 200, got %d", repo.GotLimit)
	}

	repo.Err = errors.New("database locked")
	if _, _, err := s.handleReadingHistory(context.Background(), nil, ReadingHistoryArgs{DocumentID: "x"}); err == nil {
		t.Error("Expected error from repository")
	}

	noRepo := newTestServer(t, 20, &MockProvider{}, nil)
	if _, _, err := noRepo.handleReadingHistory(context.Background(), nil, ReadingHistoryArgs{}); err == nil {
		t.Error("Expected error without a reading log")
	}
}

func TestServer_Close(t *testing.T) {
	provider := &MockProvider{}
	s := newTestServer(t, 4, provider, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !provider.Closed {
		t.Error("Expected provider closed")
	}
}
