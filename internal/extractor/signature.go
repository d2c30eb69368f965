package extractor

import "bytes"

// PDF readers accept junk before the header as long as it appears early.
const pdfHeaderWindow = 1024

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
)

// matchesSignature reports whether data starts the way files of format do.
func matchesSignature(format Format, data []byte) bool {
	switch format {
	case FormatPDF:
		head := data
		if len(head) > pdfHeaderWindow {
			head = head[:pdfHeaderWindow]
		}
		return bytes.Contains(head, pdfMagic)
	case FormatDOCX:
		return bytes.HasPrefix(data, zipMagic)
	default:
		return false
	}
}
