// Package extractor reads plain text out of uploaded resume files.
//
// Each supported format owns an ordered list of strategies. Strategies run one
// after another until one returns non-blank text; a strategy that errors,
// panics, times out or returns only whitespace is skipped.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/fitcheck/internal/ai"
	"go.uber.org/zap"
)

const (
	defaultStrategyTimeout = 20 * time.Second
	defaultMaxFileSize     = 10 << 20
)

// DefaultPDFStrategies is the cheapest-first order used when none is configured.
var DefaultPDFStrategies = []string{StrategyPlain, StrategyPages, StrategyRows, StrategyGemini}

// Config controls strategy order and limits.
type Config struct {
	PDFStrategies   []string
	StrategyTimeout time.Duration
	MaxFileSize     int64
}

// Result is a successful extraction.
type Result struct {
	Text     string
	Strategy string
	Attempts []Attempt
}

type Extractor struct {
	logger      *zap.Logger
	timeout     time.Duration
	maxFileSize int64
	strategies  map[Format][]Strategy
}

// New builds an Extractor. transcriber may be nil, in which case the gemini
// strategy stays in the list but is disabled.
func New(cfg *Config, transcriber ai.Transcriber, logger *zap.Logger) (*Extractor, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	names := cfg.PDFStrategies
	if len(names) == 0 {
		names = DefaultPDFStrategies
	}

	pdfSteps := make([]Strategy, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			return nil, fmt.Errorf("pdf strategy %q listed twice", name)
		}
		seen[name] = true

		step, err := pdfStrategy(name, transcriber)
		if err != nil {
			return nil, err
		}
		pdfSteps = append(pdfSteps, step)
	}

	timeout := cfg.StrategyTimeout
	if timeout <= 0 {
		timeout = defaultStrategyTimeout
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	return &Extractor{
		logger:      logger,
		timeout:     timeout,
		maxFileSize: maxSize,
		strategies: map[Format][]Strategy{
			FormatPDF:  pdfSteps,
			FormatDOCX: {newParagraphsDOCX()},
		},
	}, nil
}

func pdfStrategy(name string, transcriber ai.Transcriber) (Strategy, error) {
	switch name {
	case StrategyPlain:
		return newPlainTextPDF(), nil
	case StrategyPages:
		return newPagesPDF(), nil
	case StrategyRows:
		return newRowsPDF(), nil
	case StrategyGemini:
		return newTranscribePDF(transcriber), nil
	default:
		return nil, fmt.Errorf("unknown pdf strategy: %s", name)
	}
}

// Extract returns the text of doc or a *Failure. The caller's bytes are
// never handed to a strategy directly.
func (e *Extractor) Extract(ctx context.Context, doc *Document) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}

	logger := e.logger.With(zap.String("filename", doc.Name), zap.String("format", string(doc.Format)))

	steps, ok := e.strategies[doc.Format]
	if !ok {
		return nil, newFailure(doc, ErrUnsupportedFormat, nil)
	}

	switch {
	case len(bytes.TrimSpace(doc.Data)) == 0:
		return nil, newFailure(doc, ErrEmptyFile, nil)
	case int64(len(doc.Data)) > e.maxFileSize:
		return nil, newFailure(doc, ErrTooLarge, nil)
	case !matchesSignature(doc.Format, doc.Data):
		return nil, newFailure(doc, ErrSignatureMismatch, nil)
	}

	data := bytes.Clone(doc.Data)

	text, strategy, attempts := run(ctx, logger, e.timeout, data, steps)
	if strategy == "" {
		logger.Debug("all strategies failed", zap.Int("attempts", len(attempts)))
		return nil, newFailure(doc, ErrNoText, attempts)
	}

	logger.Debug("text extracted", zap.String("strategy", strategy), zap.Int("chars", len(text)))

	return &Result{
		Text:     text,
		Strategy: strategy,
		Attempts: attempts,
	}, nil
}

// Strategies returns the configured strategies for format, in order.
func (e *Extractor) Strategies(format Format) []Strategy {
	return e.strategies[format]
}

// Describe reports every configured strategy across formats.
func (e *Extractor) Describe() []Status {
	statuses := Describe(e.strategies[FormatPDF])
	return append(statuses, Describe(e.strategies[FormatDOCX])...)
}
