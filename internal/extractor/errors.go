package extractor

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyFile         = errors.New("empty file")
	ErrTooLarge          = errors.New("file too large")
	ErrSignatureMismatch = errors.New("content does not match extension")
	ErrNoText            = errors.New("no text could be extracted")

	errBlankOutput = errors.New("strategy returned no text")
)

// Failure is returned when no text could be read from a document.
// It is never fatal: callers warn and let the user paste text instead.
type Failure struct {
	Filename string
	Reason   string
	Attempts []Attempt
	Err      error
}

func newFailure(doc *Document, err error, attempts []Attempt) *Failure {
	return &Failure{
		Filename: doc.Name,
		Reason:   err.Error(),
		Attempts: attempts,
		Err:      err,
	}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("could not read %s: %s", f.Filename, f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
