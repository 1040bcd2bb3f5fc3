package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_CreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "extractor.log")
	l, err := NewLogger(WithOutputPaths([]string{path}), WithEncoding("console"))
	require.NoError(t, err)
	l.Info("hello", String("k", "v"))
	assert.DirExists(t, filepath.Dir(path))
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(WithLevel("loud"), WithOutputPaths([]string{"stdout"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't parse log level")
}

func TestTestLogger_ChildrenShareEntries(t *testing.T) {
	l := NewTestLogger()
	child := l.Named("pipeline").With(String("document", "a.pdf"))
	child.Warn("page skipped", Int("page", 2))
	l.Info("done")

	entries := l.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "pipeline", entries[0].Logger)
	assert.Len(t, entries[0].Fields, 2)
	assert.Equal(t, 1, l.Count("WARN", "page skipped"))

	l.Clear()
	assert.Empty(t, l.GetEntries())
}

func TestFromContext(t *testing.T) {
	l := NewTestLogger()
	ctx := WithDocument(WithTaskID(context.Background(), "t-1"), "paper.pdf")
	FromContext(ctx, l).Info("x")

	entries := l.GetEntries()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Fields, 2)

	assert.Same(t, l, FromContext(context.Background(), l))
}
