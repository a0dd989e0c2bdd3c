package document

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// PDFLoader reads metadata from local or remote PDF files.
type PDFLoader struct {
	Client *http.Client
}

// NewPDFLoader returns a loader that fetches remote documents with client.
func NewPDFLoader(client *http.Client) *PDFLoader {
	return &PDFLoader{Client: client}
}

// Load reads source and extracts its page count and first-page size.
func (l *PDFLoader) Load(ctx context.Context, source string) (Metadata, error) {
	data, err := ReadSource(ctx, l.Client, source)
	if err != nil {
		return Metadata{}, err
	}
	meta, err := ParseMetadata(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", source, err)
	}
	meta.Source = source
	meta.Title = TitleFromSource(source)
	return meta, nil
}

// ParseMetadata extracts metadata from an in-memory PDF.
func ParseMetadata(data []byte) (Metadata, error) {
	if err := Sniff(data); err != nil {
		return Metadata{}, err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("open pdf: %w", err)
	}
	defer r.Close()

	n, err := pagetree.NumPages(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("page count: %w", err)
	}
	if n < 1 {
		return Metadata{}, ErrNoPages
	}

	size, _, err := PageGeometry(r, 0)
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{
		TotalPages:  n,
		Width:       size[0],
		Height:      size[1],
		Fingerprint: Fingerprint(data),
	}
	return meta, meta.Validate()
}

// PageGeometry returns the displayed width and height of a page (MediaBox
// with /Rotate applied) and the normalized rotation in degrees.
func PageGeometry(r pdf.Getter, page int) ([2]float64, int, error) {
	_, dict, err := pagetree.GetPage(r, page)
	if err != nil {
		return [2]float64{}, 0, fmt.Errorf("page %d: %w", page, err)
	}
	box, err := pdf.GetRectangle(r, dict["MediaBox"])
	if err != nil {
		return [2]float64{}, 0, fmt.Errorf("page %d media box: %w", page, err)
	}
	if box == nil {
		return [2]float64{}, 0, fmt.Errorf("page %d: %w: missing media box", page, ErrInvalidPageSize)
	}

	rotate, _ := pdf.GetInteger(r, dict["Rotate"])
	deg := ((int(rotate) % 360) + 360) % 360

	w, h := box.URx-box.LLx, box.URy-box.LLy
	if deg == 90 || deg == 270 {
		w, h = h, w
	}
	if w <= 0 || h <= 0 {
		return [2]float64{}, 0, fmt.Errorf("page %d: %w", page, ErrInvalidPageSize)
	}
	return [2]float64{w, h}, deg, nil
}

func TitleFromSource(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 && IsRemote(source) {
		source = source[:i]
	}
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
