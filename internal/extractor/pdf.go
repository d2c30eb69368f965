package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	StrategyPlain  = "plain"
	StrategyPages  = "pages"
	StrategyRows   = "rows"
	StrategyGemini = "gemini"
)

func openPDF(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return r, nil
}

// plainTextPDF reads the whole document in one pass. It is the fastest
// strategy but gives up on the first page it cannot decode.
type plainTextPDF struct{ toggle }

func newPlainTextPDF() Strategy { return &plainTextPDF{} }

func (s *plainTextPDF) Name() string { return StrategyPlain }

func (s *plainTextPDF) Format() Format { return FormatPDF }

func (s *plainTextPDF) Extract(_ context.Context, data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// pagesPDF decodes page by page and skips pages that fail.
type pagesPDF struct{ toggle }

func newPagesPDF() Strategy { return &pagesPDF{} }

func (s *pagesPDF) Name() string { return StrategyPages }

func (s *pagesPDF) Format() Format { return FormatPDF }

func (s *pagesPDF) Extract(ctx context.Context, data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	fonts := make(map[string]*pdf.Font)
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := pageText(page, fonts)
		if err != nil {
			continue
		}

		builder.WriteString(text)
		builder.WriteString("\n\n")
	}

	return builder.String(), nil
}

func pageText(page pdf.Page, fonts map[string]*pdf.Font) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page decode: %v", r)
		}
	}()

	for _, name := range page.Fonts() {
		if _, ok := fonts[name]; !ok {
			f := page.Font(name)
			fonts[name] = &f
		}
	}

	return page.GetPlainText(fonts)
}

// rowsPDF rebuilds lines from positioned text runs. It tolerates content
// streams the plain text walkers reject, at the price of spacing accuracy.
type rowsPDF struct{ toggle }

func newRowsPDF() Strategy { return &rowsPDF{} }

func (s *rowsPDF) Name() string { return StrategyRows }

func (s *rowsPDF) Format() Format { return FormatPDF }

func (s *rowsPDF) Extract(ctx context.Context, data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	var lastErr error

	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			lastErr = err
			continue
		}

		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					words = append(words, s)
				}
			}
			if len(words) == 0 {
				continue
			}
			builder.WriteString(strings.Join(words, " "))
			builder.WriteString("\n")
		}
	}

	if builder.Len() == 0 && lastErr != nil {
		return "", errors.Join(errBlankOutput, lastErr)
	}

	return builder.String(), nil
}
