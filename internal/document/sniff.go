package document

import (
	"github.com/h2non/filetype"
)

// sniffLen is enough for every magic number filetype knows.
const sniffLen = 262

// Sniff rejects data that is not a PDF before it reaches the parser.
func Sniff(data []byte) error {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if !filetype.Is(head, "pdf") {
		return ErrNotPDF
	}
	return nil
}
