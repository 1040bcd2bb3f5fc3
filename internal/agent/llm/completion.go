// Package llm wraps the language-model backends behind a single text
// completion capability.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Completion sends a prompt to a model and returns its raw text answer.
// Calls may take minutes; implementations must honour ctx cancellation.
type Completion interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompletionFunc adapts a function to Completion.
type CompletionFunc func(ctx context.Context, prompt string) (string, error)

func (f CompletionFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options are the generation settings shared by every provider.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}
