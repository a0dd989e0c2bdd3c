package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LastPosition returns where documentID was left, or ErrNoPosition.
func (r *Repo) LastPosition(ctx context.Context, documentID string) (Position, error) {
	p := Position{DocumentID: documentID}
	var zoom sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT page_index, zoom, updated_at
		FROM reading_positions
		WHERE document_id = ?
	`, documentID).Scan(&p.PageIndex, &zoom, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, ErrNoPosition
	}
	if err != nil {
		return Position{}, fmt.Errorf("query position failed: %w", err)
	}
	if zoom.Valid {
		p.Zoom = zoom.Float64
	}
	return p, nil
}

// RecentEvents returns the newest events, optionally for one document.
func (r *Repo) RecentEvents(ctx context.Context, documentID string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500 // Safety limit
	}

	query := `
		SELECT
			event_id, session_id, document_id, kind, page_index,
			COALESCE(window_low, 0), COALESCE(window_high, 0),
			COALESCE(zoom, 0), COALESCE(fullscreen, false),
			error, created_at
		FROM reading_events
		WHERE 1=1
	`
	args := []any{}
	if documentID != "" {
		query += " AND document_id = ?"
		args = append(args, documentID)
	}
	query += " ORDER BY created_at DESC, event_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events failed: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var e EventRecord
		var kind string
		var errText sql.NullString
		if err := rows.Scan(
			&e.EventID, &e.SessionID, &e.DocumentID, &kind, &e.PageIndex,
			&e.WindowLow, &e.WindowHigh, &e.Zoom, &e.Fullscreen,
			&errText, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event failed: %w", err)
		}
		e.Kind = EventKind(kind)
		if errText.Valid {
			e.Error = errText.String
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

// TopPages returns the pages most often turned to in documentID.
func (r *Repo) TopPages(ctx context.Context, documentID string, limit int) ([]PageDwell, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT page_index, COUNT(*) AS turns
		FROM reading_events
		WHERE document_id = ? AND kind = ?
		GROUP BY page_index
		ORDER BY turns DESC, page_index ASC
		LIMIT ?
	`, documentID, string(KindPageTurned), limit)
	if err != nil {
		return nil, fmt.Errorf("query top pages failed: %w", err)
	}
	defer rows.Close()

	pages := []PageDwell{}
	for rows.Next() {
		var p PageDwell
		if err := rows.Scan(&p.PageIndex, &p.Turns); err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetDocument returns the stored row for documentID.
func (r *Repo) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	var d Document
	var title sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT document_id, source, title, total_pages, width, height, last_opened
		FROM documents WHERE document_id = ?
	`, documentID).Scan(&d.DocumentID, &d.Source, &title, &d.TotalPages, &d.Width, &d.Height, &d.LastOpened)
	if err != nil {
		return nil, fmt.Errorf("query document failed: %w", err)
	}
	d.Title = title.String
	return &d, nil
}
