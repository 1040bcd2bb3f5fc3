package converters

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/internal/pipeline"
)

func TestTSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewTSVWriter(&buf)
	require.NoError(t, err)

	rec := models.EmptyRecord()
	rec.Title = `The "Great" Study`
	rec.Results = "line one\r\nline two\tcol"
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, models.HeaderTSV(), lines[0])

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, models.FieldCount)
	assert.Equal(t, "The Great Study", fields[0])
	assert.Equal(t, "line one line two col", fields[6])
	assert.Equal(t, models.NotFound, fields[7])
}

func TestTSVWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewTSVWriter(&buf)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Write(models.EmptyRecord()))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 21)
	for _, l := range lines[1:] {
		assert.Equal(t, 7, strings.Count(l, "\t"))
	}
}

func TestAppendTSVFile_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.tsv")

	for i := 0; i < 2; i++ {
		w, err := AppendTSVFile(path)
		require.NoError(t, err)
		require.NoError(t, w.Write(models.EmptyRecord()))
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), models.HeaderTSV()))
	assert.Equal(t, 3, strings.Count(string(data), "\n"))

	w, err := CreateTSVFile(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, models.HeaderTSV()+"\n", string(data))
}

func TestJSONConverter(t *testing.T) {
	rec := models.EmptyRecord()
	rec.Title = "T"
	state := &pipeline.DocumentState{
		Path:       "/in/paper.pdf",
		PageCount:  3,
		Records:    []models.Record{rec},
		KnownTitle: "T",
		Pages: []pipeline.PageOutcome{
			{Index: 0, Relevant: true, Accepted: true, Attempts: 1},
			{Index: 1},
			{Index: 2, Relevant: true, Attempts: 3},
		},
	}

	doc, err := NewJSONConverter().Convert("task-1", &pipeline.Result{Path: "/in/paper.pdf", Record: &rec, State: state}, 1500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, "paper.pdf", doc.Metadata.FileName)
	assert.Equal(t, 2, doc.Metadata.RelevantPages)
	assert.Equal(t, 1, doc.Metadata.RecordsCollected)
	assert.EqualValues(t, 1500, doc.Metadata.ProcessingMs)

	empty, err := NewJSONConverter().Convert("", &pipeline.Result{Path: "x.pdf", State: &pipeline.DocumentState{}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "empty", empty.Status)
	assert.Nil(t, empty.Record)

	_, err = NewJSONConverter().Convert("", nil, 0)
	assert.Error(t, err)
}
