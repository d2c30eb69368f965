package extractor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format is the document type inferred from a filename extension.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatUnknown Format = "unknown"
)

// Document is an uploaded file. It lives for one extraction call.
type Document struct {
	Name   string
	Data   []byte
	Format Format
}

// NewDocument infers the format of data from the extension of name.
func NewDocument(name string, data []byte) *Document {
	return &Document{
		Name:   name,
		Data:   data,
		Format: FormatFromName(name),
	}
}

// FormatFromName maps a filename to a Format. The comparison is case insensitive.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnknown
	}
}

// ReadDocument reads r fully and seeks it back to where reading started,
// so the caller can read the same upload again.
func ReadDocument(r io.ReadSeeker, name string) (*Document, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", name, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %s: %w", name, err)
	}

	return NewDocument(name, data), nil
}

// Accepts rejects filenames whose extension no strategy handles, before any
// bytes are read.
func Accepts(name string) error {
	if FormatFromName(name) == FormatUnknown {
		return &Failure{
			Filename: name,
			Reason:   ErrUnsupportedFormat.Error(),
			Err:      ErrUnsupportedFormat,
		}
	}
	return nil
}
