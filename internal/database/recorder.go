// Package database records viewer sessions into the reading log.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"flipview/internal/database/relational"
	"flipview/internal/document"
	"flipview/internal/viewer"
)

const defaultFlushInterval = 5 * time.Second

// Recorder buffers viewer events and flushes them to the reading log on a
// ticker. Observe runs on the session goroutine; flushing runs on the
// recorder's own goroutine.
type Recorder struct {
	repo      relational.ReadingRepository
	log       *slog.Logger
	interval  time.Duration
	sessionID string

	mu       sync.Mutex
	doc      *relational.Document
	docID    string
	buf      []relational.EventRecord
	position *relational.Position

	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewRecorder creates a recorder with a fresh session ID.
func NewRecorder(repo relational.ReadingRepository, logger *slog.Logger, interval time.Duration) (*Recorder, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Recorder{
		repo:      repo,
		log:       logger,
		interval:  interval,
		sessionID: uuid.NewString(),
	}, nil
}

// SessionID identifies this reading session in the log.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Attach subscribes the recorder to s and returns the unsubscribe func.
func (r *Recorder) Attach(s *viewer.Session) func() {
	return s.Subscribe(func(ev viewer.Event) {
		if ev.Kind == viewer.EventDocumentLoaded || ev.Kind == viewer.EventDocumentReloaded {
			r.SetDocument(s.Metadata())
		}
		r.Observe(ev)
	})
}

// SetDocument makes meta the document later events are attributed to.
func (r *Recorder) SetDocument(meta document.Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docID = meta.Fingerprint
	r.doc = &relational.Document{
		DocumentID: meta.Fingerprint,
		Source:     meta.Source,
		Title:      meta.Title,
		TotalPages: meta.TotalPages,
		Width:      meta.Width,
		Height:     meta.Height,
		LastOpened: time.Now(),
	}
}

// Observe buffers one event. Events before a document is set are dropped.
func (r *Recorder) Observe(ev viewer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.docID == "" {
		return
	}

	rec := relational.EventRecord{
		SessionID:  r.sessionID,
		DocumentID: r.docID,
		Kind:       relational.EventKind(ev.Kind.String()),
		PageIndex:  ev.Page,
		WindowLow:  ev.Window.Low,
		WindowHigh: ev.Window.High,
		Zoom:       ev.State.ZoomScale,
		Fullscreen: ev.Fullscreen,
		CreatedAt:  time.Now(),
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	r.buf = append(r.buf, rec)

	switch ev.Kind {
	case viewer.EventPageTurned, viewer.EventZoomChanged, viewer.EventDocumentLoaded, viewer.EventDocumentReloaded:
		r.position = &relational.Position{
			DocumentID: r.docID,
			PageIndex:  ev.State.CurrentPageIndex,
			Zoom:       ev.State.ZoomScale,
			UpdatedAt:  rec.CreatedAt,
		}
	}
}

// Pending returns the number of buffered events.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Start begins the periodic flush loop.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("recorder already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go r.loop(ctx)
	return nil
}

// Stop ends the flush loop and writes whatever is still buffered.
func (r *Recorder) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Flush(ctx); err != nil {
		r.log.Error("final flush failed", "error", err)
	}
}

func (r *Recorder) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.log.Warn("reading log flush failed", "error", err)
			}
		}
	}
}

// Flush writes buffered state to the repository. On failure the events are
// put back so the next flush retries them.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	doc := r.doc
	events := r.buf
	pos := r.position
	r.doc, r.buf, r.position = nil, nil, nil
	r.mu.Unlock()

	if doc != nil {
		if err := r.repo.UpsertDocument(ctx, *doc); err != nil {
			r.requeue(doc, events, pos)
			return fmt.Errorf("record document: %w", err)
		}
	}
	if _, err := r.repo.InsertEvents(ctx, events); err != nil {
		r.requeue(nil, events, pos)
		return fmt.Errorf("record events: %w", err)
	}
	if pos != nil {
		if err := r.repo.SavePosition(ctx, *pos); err != nil {
			r.requeue(nil, nil, pos)
			return fmt.Errorf("record position: %w", err)
		}
	}
	if len(events) > 0 {
		r.log.Debug("reading log flushed", "events", len(events), "session", r.sessionID)
	}
	return nil
}

func (r *Recorder) requeue(doc *relational.Document, events []relational.EventRecord, pos *relational.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc != nil && r.doc == nil {
		r.doc = doc
	}
	r.buf = append(events, r.buf...)
	if pos != nil && r.position == nil {
		r.position = pos
	}
}

// ResumePage returns a StartPage hook that opens documents at their saved
// position. Lookup failures fall back to the first page.
func ResumePage(repo relational.ReadingRepository, logger *slog.Logger) func(document.Metadata) int {
	if logger == nil {
		logger = slog.Default()
	}
	return func(meta document.Metadata) int {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p, err := repo.LastPosition(ctx, meta.Fingerprint)
		if err != nil {
			if !errors.Is(err, relational.ErrNoPosition) {
				logger.Warn("resume lookup failed", "error", err)
			}
			return 0
		}
		return p.PageIndex
	}
}
