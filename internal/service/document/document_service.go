package document

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/internal/pipeline"
	"github.com/feichai0017/paper-extractor/internal/utils/validator"
	"github.com/feichai0017/paper-extractor/pkg/converters"
	"github.com/feichai0017/paper-extractor/pkg/queue"
)

var (
	// ErrNotReady is returned when results are requested before the task finished.
	ErrNotReady = errors.New("task is not finished")

	ErrInvalidTask = errors.New("invalid task: missing required data")
)

// ValidationError carries the validator findings for a rejected upload.
type ValidationError struct {
	Result *validator.ValidationResult
}

func (e *ValidationError) Error() string {
	if e.Result == nil || len(e.Result.Errors) == 0 {
		return "document failed validation"
	}
	return fmt.Sprintf("document failed validation: %s", e.Result.Errors[0].Message)
}

type DocumentProcessor interface {
	ProcessFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.ProcessingTask, error)
	ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error)
	GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	HandleDocument(ctx context.Context, task *queue.Task) error
	GetProcessedDocument(ctx context.Context, taskID string) (*converters.ProcessedDocument, error)
	// GetResultTSV returns the header plus the record line, or only the
	// header when the document produced no record.
	GetResultTSV(ctx context.Context, taskID string) ([]byte, error)
	CancelTask(ctx context.Context, taskID string) error
	CleanupTasks(ctx context.Context) error
}

// Extractor runs the extraction pipeline on a local PDF.
type Extractor interface {
	Process(ctx context.Context, path string) (*pipeline.Result, error)
}

// FileValidator vets uploads before they are stored.
type FileValidator interface {
	ValidateFile(file *multipart.FileHeader) (*validator.ValidationResult, error)
}
