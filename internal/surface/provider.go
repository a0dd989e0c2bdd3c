// Package surface produces page surfaces for the viewer from PDF files.
package surface

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"flipview/internal/document"
	"flipview/internal/viewer"
)

var (
	ErrPageOutOfRange = errors.New("page out of range")
	ErrInvalidTarget  = errors.New("invalid target height or density")
	ErrClosed         = errors.New("provider closed")
)

// PDFProvider serves surfaces for one open PDF. The underlying reader is
// not safe for concurrent use, so requests are serialized.
type PDFProvider struct {
	mu     sync.Mutex
	r      *pdf.Reader
	pages  int
	source string
	log    *slog.Logger
}

// Open reads source (a path or URL) once and returns both its metadata and
// a provider serving its pages.
func Open(ctx context.Context, client *http.Client, source string, logger *slog.Logger) (document.Metadata, *PDFProvider, error) {
	data, err := document.ReadSource(ctx, client, source)
	if err != nil {
		return document.Metadata{}, nil, err
	}
	meta, err := document.ParseMetadata(data)
	if err != nil {
		return document.Metadata{}, nil, fmt.Errorf("%s: %w", source, err)
	}
	meta.Source = source
	meta.Title = document.TitleFromSource(source)

	p, err := NewPDFProvider(data, logger)
	if err != nil {
		return document.Metadata{}, nil, fmt.Errorf("%s: %w", source, err)
	}
	p.source = source
	return meta, p, nil
}

// NewPDFProvider opens an in-memory PDF.
func NewPDFProvider(data []byte, logger *slog.Logger) (*PDFProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := document.Sniff(data); err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n, err := pagetree.NumPages(r)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("page count: %w", err)
	}
	return &PDFProvider{r: r, pages: n, log: logger}, nil
}

// Source returns the path or URL the provider was opened from, if any.
func (p *PDFProvider) Source() string {
	return p.source
}

// Pages returns the page count of the open document.
func (p *PDFProvider) Pages() int {
	return p.pages
}

// RequestSurface lays out page at targetHeightPx, keeping the page's aspect
// ratio, and measures its decoded content stream.
func (p *PDFProvider) RequestSurface(ctx context.Context, page int, targetHeightPx, density float64) (viewer.Surface, error) {
	if err := ctx.Err(); err != nil {
		return viewer.Surface{}, err
	}
	if page < 0 || page >= p.pages {
		return viewer.Surface{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, p.pages)
	}
	if targetHeightPx <= 0 || density <= 0 {
		return viewer.Surface{}, ErrInvalidTarget
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.r == nil {
		return viewer.Surface{}, ErrClosed
	}

	size, rotate, err := document.PageGeometry(p.r, page)
	if err != nil {
		return viewer.Surface{}, err
	}
	n, err := p.contentBytes(page)
	if err != nil {
		// Pages with unreadable content still get a surface of the right size.
		p.log.Warn("page content unreadable", "page", page, "error", err)
	}

	surf := viewer.Surface{
		Page:         page,
		HeightPx:     targetHeightPx,
		WidthPx:      targetHeightPx * size[0] / size[1],
		Density:      density,
		PageSize:     viewer.Size{Width: size[0], Height: size[1]},
		Rotate:       rotate,
		ContentBytes: n,
	}
	p.log.Debug("surface rendered", "page", page, "height_px", targetHeightPx, "density", density)
	return surf, nil
}

func (p *PDFProvider) contentBytes(page int) (int64, error) {
	_, dict, err := pagetree.GetPage(p.r, page)
	if err != nil {
		return 0, err
	}
	contents, err := pdf.Resolve(p.r, dict["Contents"])
	if err != nil {
		return 0, err
	}

	var refs []pdf.Object
	switch c := contents.(type) {
	case nil:
		return 0, nil
	case *pdf.Stream:
		refs = []pdf.Object{c}
	case pdf.Array:
		refs = c
	default:
		return 0, fmt.Errorf("unexpected type %T for page contents", contents)
	}

	var total int64
	for _, ref := range refs {
		stm, err := pdf.GetStream(p.r, ref)
		if err != nil {
			return total, err
		}
		if stm == nil {
			continue
		}
		rc, err := pdf.GetStreamReader(p.r, stm)
		if err != nil {
			return total, err
		}
		n, err := io.Copy(io.Discard, rc)
		rc.Close()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close releases the reader. Later requests fail with ErrClosed.
func (p *PDFProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.r == nil {
		return nil
	}
	err := p.r.Close()
	p.r = nil
	return err
}

// OpenFunc opens a document and returns a provider for its pages.
type OpenFunc func(ctx context.Context, source string) (document.Metadata, viewer.PageSurfaceProvider, error)

// NewOpener returns an OpenFunc that fetches with client and collapses
// duplicate surface requests.
func NewOpener(client *http.Client, logger *slog.Logger) OpenFunc {
	return func(ctx context.Context, source string) (document.Metadata, viewer.PageSurfaceProvider, error) {
		meta, p, err := Open(ctx, client, source, logger)
		if err != nil {
			return document.Metadata{}, nil, err
		}
		return meta, NewDedup(p), nil
	}
}
