package document

import "errors"

var (
	ErrNotPDF           = errors.New("not a PDF document")
	ErrNoPages          = errors.New("document has no pages")
	ErrInvalidPageSize  = errors.New("invalid page size")
	ErrEmptySource      = errors.New("empty document source")
	ErrDocumentTooLarge = errors.New("document too large")
)

// FetchError reports a non-success HTTP response.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return "fetch " + e.URL + ": " + e.Status
}
