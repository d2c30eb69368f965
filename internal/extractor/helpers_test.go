package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// buildPDF writes a single-page PDF showing each line with a Tj operator.
func buildPDF(t *testing.T, lines ...string) []byte {
	t.Helper()

	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n72 720 Td\n14 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", line)
	}
	content.WriteString("ET\n")
	stream := content.String()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

// buildDOCX packs body into a minimal word/document.xml.
func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("[Content_Types].xml")
	if err != nil {
		t.Fatalf("create content types: %v", err)
	}
	if _, err := w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`)); err != nil {
		t.Fatalf("write content types: %v", err)
	}

	w, err = zw.Create(docxBodyPart)
	if err != nil {
		t.Fatalf("create document part: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + wordMLSpace + `"><w:body>` + body + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write document part: %v", err)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	return buf.Bytes()
}

func paragraph(runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, run := range runs {
		b.WriteString("<w:r><w:t xml:space=\"preserve\">" + run + "</w:t></w:r>")
	}
	b.WriteString("</w:p>")
	return b.String()
}

// fakeStrategy returns a fixed answer and counts calls.
type fakeStrategy struct {
	toggle
	name   string
	format Format
	text   string
	err    error
	panics bool
	delay  time.Duration
	calls  atomic.Int32
	seen   []byte
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Format() Format {
	if f.format == "" {
		return FormatPDF
	}
	return f.format
}

func (f *fakeStrategy) Extract(ctx context.Context, data []byte) (string, error) {
	f.calls.Add(1)
	f.seen = data

	if f.panics {
		panic("boom")
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return f.text, f.err
}
