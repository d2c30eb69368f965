package ai

import (
	"context"
)

// Transcriber turns a binary document into plain text with a language model.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
	Model() string
}
