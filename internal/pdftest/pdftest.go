// Package pdftest builds small well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
)

// Options describe the generated document. All pages share one inherited
// MediaBox.
type Options struct {
	Pages   int
	Width   float64
	Height  float64
	Rotate  int
	Content string // uncompressed content stream for every page, if set
}

// Build returns the bytes of a PDF described by opts.
func Build(opts Options) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) int {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
		return len(offsets)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	// Page objects follow the page tree root; content streams follow the pages.
	firstPage := 3
	firstContent := firstPage + opts.Pages

	kids := ""
	for i := 0; i < opts.Pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", firstPage+i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %g %g] >>",
		kids, opts.Pages, opts.Width, opts.Height))

	for i := 0; i < opts.Pages; i++ {
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Rotate %d", opts.Rotate)
		if opts.Content != "" {
			page += fmt.Sprintf(" /Contents %d 0 R", firstContent+i)
		}
		obj(page + " >>")
	}
	if opts.Content != "" {
		for i := 0; i < opts.Pages; i++ {
			obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(opts.Content), opts.Content))
		}
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Simple is Build with no content streams.
func Simple(pages int, width, height float64, rotate int) []byte {
	return Build(Options{Pages: pages, Width: width, Height: height, Rotate: rotate})
}
