package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/internal/pipeline"
	"github.com/feichai0017/paper-extractor/pkg/converters"
	"github.com/feichai0017/paper-extractor/pkg/logger"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["info"])
}

func TestRunCommand_Flags(t *testing.T) {
	flag := runCmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "paper.tsv", flag.DefValue)

	for _, name := range []string{"input", "json-dir", "concurrency", "append", "validate"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "missing --%s", name)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestCollectPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	paths, err := collectPDFs(dir, []string{"extra.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.PDF"),
		filepath.Join(dir, "b.pdf"),
		"extra.pdf",
	}, paths)

	_, err = collectPDFs(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}

func TestSink_WritesOnlyRecords(t *testing.T) {
	log = logger.NewTestLogger()
	dir := t.TempDir()
	jsonDir := filepath.Join(dir, "json")
	require.NoError(t, os.MkdirAll(jsonDir, 0o755))

	out, err := converters.CreateTSVFile(filepath.Join(dir, "paper.tsv"))
	require.NoError(t, err)

	rec := models.EmptyRecord()
	rec.Title = "A Study of Things"
	sink := newSink(out, jsonDir)

	require.NoError(t, sink(context.Background(), &pipeline.Result{
		Path:   "/papers/one.pdf",
		Record: &rec,
		State:  &pipeline.DocumentState{PageCount: 1, Records: []models.Record{rec}},
	}))
	require.NoError(t, sink(context.Background(), &pipeline.Result{
		Path:  "/papers/two.pdf",
		State: &pipeline.DocumentState{PageCount: 3},
	}))
	require.NoError(t, out.Close())

	data, err := os.ReadFile(filepath.Join(dir, "paper.tsv"))
	require.NoError(t, err)
	assert.Equal(t, models.HeaderTSV()+"\n"+converters.FormatRow(rec)+"\n", string(data))

	raw, err := os.ReadFile(filepath.Join(jsonDir, "two.json"))
	require.NoError(t, err)
	var doc converters.ProcessedDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "empty", doc.Status)
	assert.FileExists(t, filepath.Join(jsonDir, "one.json"))
}
