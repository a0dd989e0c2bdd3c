package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
  document_id  VARCHAR PRIMARY KEY,
  source       VARCHAR NOT NULL,
  title        VARCHAR,
  total_pages  INTEGER NOT NULL,
  width        DOUBLE,
  height       DOUBLE,
  last_opened  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reading_events (
  event_id     BIGINT PRIMARY KEY,
  session_id   VARCHAR NOT NULL,
  document_id  VARCHAR NOT NULL,
  kind         VARCHAR NOT NULL,
  page_index   INTEGER NOT NULL,
  window_low   INTEGER,
  window_high  INTEGER,
  zoom         DOUBLE,
  fullscreen   BOOLEAN,
  error        VARCHAR,
  created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reading_events_doc ON reading_events(document_id, created_at);

CREATE TABLE IF NOT EXISTS reading_positions (
  document_id  VARCHAR PRIMARY KEY,
  page_index   INTEGER NOT NULL,
  zoom         DOUBLE,
  updated_at   TIMESTAMP NOT NULL
);
`

// ErrNoPosition is returned when a document has never been read.
var ErrNoPosition = errors.New("no saved position")

// Repo is the DuckDB implementation of ReadingRepository.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, SchemaSQL)
	return err
}

var lastID atomic.Int64

// NewID generates a unique, increasing, time-based ID.
func NewID() int64 {
	for {
		now := time.Now().UnixNano()
		prev := lastID.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastID.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// UpsertDocument records that a document was opened.
func (r *Repo) UpsertDocument(ctx context.Context, d Document) error {
	if d.DocumentID == "" {
		return errors.New("document id required")
	}
	if d.LastOpened.IsZero() {
		d.LastOpened = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents(document_id, source, title, total_pages, width, height, last_opened)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET
		  source = excluded.source,
		  title = excluded.title,
		  total_pages = excluded.total_pages,
		  width = excluded.width,
		  height = excluded.height,
		  last_opened = excluded.last_opened
	`, d.DocumentID, d.Source, nullEmpty(d.Title), d.TotalPages, d.Width, d.Height, d.LastOpened)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// InsertEvents appends a batch of events in one transaction. Events without
// an ID or timestamp get one.
func (r *Repo) InsertEvents(ctx context.Context, events []EventRecord) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reading_events(
		  event_id, session_id, document_id, kind, page_index,
		  window_low, window_high, zoom, fullscreen, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if e.EventID == 0 {
			e.EventID = NewID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			e.EventID, e.SessionID, e.DocumentID, string(e.Kind), e.PageIndex,
			e.WindowLow, e.WindowHigh, e.Zoom, e.Fullscreen, nullEmpty(e.Error), e.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert event %s: %w", e.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit events: %w", err)
	}
	return len(events), nil
}

// SavePosition stores the page a document was left at.
func (r *Repo) SavePosition(ctx context.Context, p Position) error {
	if p.DocumentID == "" {
		return errors.New("document id required")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reading_positions(document_id, page_index, zoom, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET
		  page_index = excluded.page_index,
		  zoom = excluded.zoom,
		  updated_at = excluded.updated_at
	`, p.DocumentID, p.PageIndex, p.Zoom, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

func nullEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
