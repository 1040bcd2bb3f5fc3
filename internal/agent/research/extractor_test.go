package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/paper-extractor/internal/agent/llm"
)

func TestExtractor_Extract(t *testing.T) {
	var got string
	model := llm.CompletionFunc(func(_ context.Context, prompt string) (string, error) {
		got = prompt
		return "  raw answer\n", nil
	})

	out, err := NewExtractor(model, nil).Extract(context.Background(), "Abstract:\n\n  We   study\tX.", "Known")
	require.NoError(t, err)
	assert.Equal(t, "  raw answer\n", out)
	assert.True(t, strings.HasSuffix(got, "Abstract: We study X.\n"))
	assert.Contains(t, got, `Use exactly "Known"`)
}

func TestExtractor_ModelError(t *testing.T) {
	boom := errors.New("connection refused")
	model := llm.CompletionFunc(func(context.Context, string) (string, error) { return "", boom })

	_, err := NewExtractor(model, nil).Extract(context.Background(), "text", "")
	assert.ErrorIs(t, err, boom)
}
