package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/fitcheck/internal/logger"
	"github.com/spigell/fitcheck/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel        = "gemini-2.5-flash"
	defaultMaxLogLength = 200
	noTextAnswer        = "NO_TEXT"
)

// ErrNoText is returned when the model reports the document has no readable text.
var ErrNoText = errors.New("gemini found no readable text")

//go:embed prompt.md
var transcribePrompt string

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Transcriber sends documents to Gemini and asks for a verbatim transcription.
type Transcriber struct {
	models    contentGenerator
	model     string
	logger    *zap.Logger
	maxLogLen int
}

// NewTranscriber creates a Transcriber configured for the Gemini API backend.
func NewTranscriber(ctx context.Context, apiKey, model string, maxLogLength int, log *zap.Logger) (*Transcriber, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newTranscriber(client.Models, model, maxLogLength, log), nil
}

func newTranscriber(models contentGenerator, model string, maxLogLength int, log *zap.Logger) *Transcriber {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Transcriber{
		models:    models,
		model:     model,
		logger:    logger.WithCommonFields(log, "gemini", model),
		maxLogLen: maxLogLength,
	}
}

// Transcribe returns the text Gemini reads from data.
func (t *Transcriber) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if t == nil || t.models == nil {
		return "", errors.New("gemini transcriber is not initialized")
	}

	if len(data) == 0 {
		return "", errors.New("document must not be empty")
	}

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(strings.TrimSpace(transcribePrompt)),
		genai.NewPartFromBytes(data, mimeType),
	}, genai.RoleUser)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	t.logger.Debug("gemini transcription request",
		zap.String("mime_type", mimeType),
		zap.Int("document_bytes", len(data)),
	)

	resp, err := t.models.GenerateContent(ctx, t.model, []*genai.Content{content}, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := collectText(resp)

	t.logger.Debug("gemini transcription response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, t.maxLogLen)),
	)

	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	if output == noTextAnswer {
		return "", ErrNoText
	}

	return output, nil
}

func (t *Transcriber) Model() string {
	if t == nil {
		return ""
	}
	return t.model
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return stripFences(builder.String())
}

// stripFences removes a Markdown code fence the model sometimes adds despite the prompt.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw, "\n"); idx != -1 {
			raw = raw[idx+1:]
		} else {
			raw = strings.TrimPrefix(raw, "```")
		}
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
