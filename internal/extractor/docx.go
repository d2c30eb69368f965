package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	StrategyParagraphs = "paragraphs"

	docxBodyPart = "word/document.xml"
	wordMLSpace  = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// paragraphsDOCX joins the text of every w:p element with a newline.
type paragraphsDOCX struct{ toggle }

func newParagraphsDOCX() Strategy { return &paragraphsDOCX{} }

func (s *paragraphsDOCX) Name() string { return StrategyParagraphs }

func (s *paragraphsDOCX) Format() Format { return FormatDOCX }

func (s *paragraphsDOCX) Extract(_ context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX container: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", docxBodyPart, err)
		}
		defer rc.Close()

		paragraphs, err := readParagraphs(rc)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", docxBodyPart, err)
		}

		return strings.Join(paragraphs, "\n"), nil
	}

	return "", errors.New("no document.xml found in docx")
}

func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
		runs       int
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordMLSpace {
				continue
			}
			switch t.Name.Local {
			case "p":
				// paragraphs inside text boxes are nested in the outer one
				if depth == 0 {
					current.Reset()
				} else {
					current.WriteByte('\n')
				}
				depth++
			case "r":
				runs++
			case "t":
				inText = true
			case "tab":
				// w:tab also defines tab stops inside w:pPr, only a run holds a real tab
				if runs > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if runs > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordMLSpace {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth > 0 {
					depth--
				}
				if depth == 0 {
					paragraphs = append(paragraphs, current.String())
				}
			case "r":
				if runs > 0 {
					runs--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
