package extractor

import (
	"context"
	"errors"

	"github.com/spigell/fitcheck/internal/ai"
)

const pdfMimeType = "application/pdf"

// transcribePDF asks a language model to read the document. It is the most
// permissive and the most expensive strategy, so it goes last.
type transcribePDF struct {
	toggle
	transcriber ai.Transcriber
}

func newTranscribePDF(transcriber ai.Transcriber) Strategy {
	s := &transcribePDF{transcriber: transcriber}
	if transcriber == nil {
		s.Disable("ai transcription is not configured")
	}
	return s
}

func (s *transcribePDF) Name() string { return StrategyGemini }

func (s *transcribePDF) Format() Format { return FormatPDF }

func (s *transcribePDF) Extract(ctx context.Context, data []byte) (string, error) {
	if s.transcriber == nil {
		return "", errors.New("ai transcriber is required")
	}
	return s.transcriber.Transcribe(ctx, data, pdfMimeType)
}

func (s *transcribePDF) Status() Status {
	st := Status{
		Name:    s.Name(),
		Format:  s.Format(),
		Enabled: s.IsEnabled(),
		Reason:  s.reason,
	}
	if s.transcriber != nil && st.Enabled {
		st.Reason = "model " + s.transcriber.Model()
	}
	return st
}
