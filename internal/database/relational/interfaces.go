package relational

import "context"

// ReadingRepository persists the reading log.
type ReadingRepository interface {
	// Migrate creates or updates the database schema.
	Migrate(ctx context.Context) error
	// UpsertDocument records that a document was opened.
	UpsertDocument(ctx context.Context, d Document) error
	// InsertEvents appends a batch of viewer events.
	InsertEvents(ctx context.Context, events []EventRecord) (int, error)
	// SavePosition stores the page a document was left at.
	SavePosition(ctx context.Context, p Position) error
	// LastPosition returns the saved position or ErrNoPosition.
	LastPosition(ctx context.Context, documentID string) (Position, error)
	// RecentEvents returns the newest events, optionally for one document.
	RecentEvents(ctx context.Context, documentID string, limit int) ([]EventRecord, error)
	// Close releases database resources.
	Close() error
}

var _ ReadingRepository = (*Repo)(nil)
