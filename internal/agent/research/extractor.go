package research

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/feichai0017/paper-extractor/internal/agent/llm"
	"github.com/feichai0017/paper-extractor/pkg/logger"
)

// Extractor asks the model for one TSV record per page.
type Extractor struct {
	model  llm.Completion
	logger logger.Logger
}

func NewExtractor(model llm.Completion, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{model: model, logger: log.Named("extractor")}
}

// Extract makes exactly one model call and returns the raw answer, noise
// included. titleHint may be empty.
func (e *Extractor) Extract(ctx context.Context, pageText, titleHint string) (string, error) {
	clean := CollapseWhitespace(pageText)
	prompt, err := BuildExtractionPrompt(clean, titleHint)
	if err != nil {
		return "", fmt.Errorf("failed to build extraction prompt: %w", err)
	}

	start := time.Now()
	resp, err := e.model.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to complete extraction: %w", err)
	}

	logger.FromContext(ctx, e.logger).Debug("Extraction response received",
		logger.Int("promptChars", utf8.RuneCountInString(prompt)),
		logger.Int("responseChars", utf8.RuneCountInString(resp)),
		logger.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
