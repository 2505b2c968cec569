package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response")

// Client is a single-shot text completion backend.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}
