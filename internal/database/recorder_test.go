package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipview/internal/database"
	"flipview/internal/database/relational"
	"flipview/internal/document"
	"flipview/internal/viewer"
)

// MockRepo records calls in memory and can be told to fail.
type MockRepo struct {
	mu        sync.Mutex
	docs      []relational.Document
	events    []relational.EventRecord
	positions map[string]relational.Position
	failNext  error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{positions: make(map[string]relational.Position)}
}

func (m *MockRepo) Migrate(ctx context.Context) error { return nil }
func (m *MockRepo) Close() error                      { return nil }

func (m *MockRepo) UpsertDocument(ctx context.Context, d relational.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, d)
	return nil
}

func (m *MockRepo) InsertEvents(ctx context.Context, events []relational.EventRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return 0, err
	}
	m.events = append(m.events, events...)
	return len(events), nil
}

func (m *MockRepo) SavePosition(ctx context.Context, p relational.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.DocumentID] = p
	return nil
}

func (m *MockRepo) LastPosition(ctx context.Context, id string) (relational.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return relational.Position{}, relational.ErrNoPosition
	}
	return p, nil
}

func (m *MockRepo) RecentEvents(ctx context.Context, id string, limit int) ([]relational.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]relational.EventRecord(nil), m.events...), nil
}

func (m *MockRepo) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type fixedLoader struct{ meta document.Metadata }

func (l fixedLoader) Load(ctx context.Context, source string) (document.Metadata, error) {
	meta := l.meta
	meta.Source = source
	return meta, nil
}

func newSession(t *testing.T, hooks viewer.Hooks) *viewer.Session {
	t.Helper()
	cfg := viewer.DefaultConfig()
	cfg.FlipDuration = 0
	s := viewer.NewSession(cfg, nil, hooks)
	s.Resize(viewer.Size{Width: 1000, Height: 800})
	return s
}

var paper = document.Metadata{TotalPages: 20, Width: 800, Height: 1000, Fingerprint: "f00d", Title: "paper"}

func TestRecorder_RecordsSessionEvents(t *testing.T) {
	repo := NewMockRepo()
	rec, err := database.NewRecorder(repo, nil, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.SessionID())

	s := newSession(t, viewer.Hooks{})
	rec.Attach(s)
	require.NoError(t, s.Open(context.Background(), fixedLoader{paper}, "paper.pdf"))
	s.TurnTo(10, time.Now())
	s.SetZoom(2)
	assert.Equal(t, 4, rec.Pending(), "loaded, turned, window changed, zoom")

	require.NoError(t, rec.Flush(context.Background()))
	assert.Zero(t, rec.Pending())
	require.Len(t, repo.docs, 1)
	assert.Equal(t, "paper.pdf", repo.docs[0].Source)

	require.Equal(t, 4, repo.eventCount())
	turned := repo.events[1]
	assert.Equal(t, relational.KindPageTurned, turned.Kind)
	assert.Equal(t, 10, turned.PageIndex)
	assert.Equal(t, 14, turned.WindowHigh)
	assert.Equal(t, rec.SessionID(), turned.SessionID)

	pos, err := repo.LastPosition(context.Background(), "f00d")
	require.NoError(t, err)
	assert.Equal(t, 10, pos.PageIndex)
	assert.Equal(t, 2.0, pos.Zoom)
}

func TestRecorder_RequeuesOnFailure(t *testing.T) {
	repo := NewMockRepo()
	rec, err := database.NewRecorder(repo, nil, time.Hour)
	require.NoError(t, err)

	rec.SetDocument(paper)
	rec.Observe(viewer.Event{Kind: viewer.EventPageTurned, Page: 3})
	rec.Observe(viewer.Event{Kind: viewer.EventSurfaceFailed, Page: 4, Err: errors.New("decode error")})

	repo.failNext = errors.New("disk full")
	assert.Error(t, rec.Flush(context.Background()))
	assert.Equal(t, 2, rec.Pending())

	require.NoError(t, rec.Flush(context.Background()))
	require.Equal(t, 2, repo.eventCount())
	assert.Equal(t, "decode error", repo.events[1].Error)
}

func TestRecorder_DropsEventsWithoutDocument(t *testing.T) {
	rec, err := database.NewRecorder(NewMockRepo(), nil, time.Hour)
	require.NoError(t, err)
	rec.Observe(viewer.Event{Kind: viewer.EventPageTurned})
	assert.Zero(t, rec.Pending())

	_, err = database.NewRecorder(nil, nil, 0)
	assert.Error(t, err)
}

func TestRecorder_StartStopFlushes(t *testing.T) {
	repo := NewMockRepo()
	rec, err := database.NewRecorder(repo, nil, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, rec.Start(context.Background()))
	assert.Error(t, rec.Start(context.Background()), "second start is rejected")

	rec.SetDocument(paper)
	rec.Observe(viewer.Event{Kind: viewer.EventPageTurned, Page: 1})
	assert.Eventually(t, func() bool { return repo.eventCount() == 1 }, time.Second, 5*time.Millisecond)

	rec.Observe(viewer.Event{Kind: viewer.EventPageTurned, Page: 2})
	rec.Stop()
	assert.Equal(t, 2, repo.eventCount())
}

func TestResumePage_DuckDB(t *testing.T) {
	ctx := context.Background()
	client, err := relational.Open(ctx, "")
	require.NoError(t, err)
	defer client.Close()

	repo := relational.NewRepo(client.DB())
	require.NoError(t, repo.Migrate(ctx))

	// First visit: reader leaves the document at page 12.
	rec, err := database.NewRecorder(repo, nil, time.Hour)
	require.NoError(t, err)
	first := newSession(t, viewer.Hooks{StartPage: database.ResumePage(repo, nil)})
	rec.Attach(first)
	require.NoError(t, first.Open(ctx, fixedLoader{paper}, "paper.pdf"))
	assert.Equal(t, 0, first.State().CurrentPageIndex)
	first.TurnTo(12, time.Now())
	rec.Stop()

	events, err := repo.RecentEvents(ctx, "f00d", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	// Second visit resumes there with the window anchored at the page.
	second := newSession(t, viewer.Hooks{StartPage: database.ResumePage(repo, nil)})
	require.NoError(t, second.Open(ctx, fixedLoader{paper}, "paper.pdf"))
	assert.Equal(t, 12, second.State().CurrentPageIndex)
	assert.Equal(t, viewer.Window{Low: 12, High: 16}, second.Window())
}
