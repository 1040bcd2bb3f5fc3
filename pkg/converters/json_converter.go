package converters

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/internal/pipeline"
)

// ProcessedDocument is the JSON view of one finished document.
type ProcessedDocument struct {
	TaskID      string                 `json:"taskId,omitempty"`
	Status      string                 `json:"status"`
	Record      *models.Record         `json:"record"`
	Pages       []pipeline.PageOutcome `json:"pages"`
	Metadata    DocumentMetadata       `json:"metadata"`
	ProcessedAt time.Time              `json:"processedAt"`
}

type DocumentMetadata struct {
	FileName         string `json:"fileName"`
	FileSize         int64  `json:"fileSize,omitempty"`
	PageCount        int    `json:"pageCount"`
	RelevantPages    int    `json:"relevantPages"`
	RecordsCollected int    `json:"recordsCollected"`
	KnownTitle       string `json:"knownTitle,omitempty"`
	ProcessingMs     int64  `json:"processingMs"`
}

// JSONConverter turns pipeline results into ProcessedDocuments.
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

// Convert builds the document view. Status is "completed" when a record was
// produced and "empty" when no page yielded one.
func (c *JSONConverter) Convert(taskID string, result *pipeline.Result, elapsed time.Duration) (*ProcessedDocument, error) {
	if result == nil || result.State == nil {
		return nil, fmt.Errorf("no result to convert")
	}

	state := result.State
	doc := &ProcessedDocument{
		TaskID:      taskID,
		Status:      string(models.StatusCompleted),
		Record:      result.Record,
		Pages:       state.Pages,
		ProcessedAt: time.Now(),
		Metadata: DocumentMetadata{
			FileName:         filepath.Base(result.Path),
			PageCount:        state.PageCount,
			RecordsCollected: len(state.Records),
			KnownTitle:       state.KnownTitle,
			ProcessingMs:     elapsed.Milliseconds(),
		},
	}
	if result.Empty() {
		doc.Status = string(models.StatusEmpty)
	}
	for _, p := range state.Pages {
		if p.Relevant {
			doc.Metadata.RelevantPages++
		}
	}
	return doc, nil
}
