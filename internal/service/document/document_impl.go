package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cfg "github.com/feichai0017/paper-extractor/config"
	"github.com/feichai0017/paper-extractor/internal/agent"
	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/internal/utils/validator"
	"github.com/feichai0017/paper-extractor/pkg/converters"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/queue"
	"github.com/feichai0017/paper-extractor/pkg/storage"
)

type DocumentService struct {
	extractor Extractor
	validator FileValidator
	queue     queue.Queue
	storage   storage.Storage
	logger    logger.Logger
	config    *ServiceConfig
	closer    io.Closer
}

type ServiceConfig struct {
	QueuePriority   int
	MaxConcurrent   int
	RetentionPeriod time.Duration
	// TempDir holds downloaded PDFs while they are processed.
	TempDir string
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		QueuePriority:   2,
		MaxConcurrent:   5,
		RetentionPeriod: 24 * time.Hour,
	}
}

func NewService(
	extractor Extractor,
	fileValidator FileValidator,
	q queue.Queue,
	store storage.Storage,
	log logger.Logger,
	config *ServiceConfig,
) *DocumentService {
	if config == nil {
		config = DefaultServiceConfig()
	}
	return &DocumentService{
		extractor: extractor,
		validator: fileValidator,
		queue:     q,
		storage:   store,
		logger:    log.Named("document"),
		config:    config,
	}
}

// GetService wires the service from the environment.
func GetService(ctx context.Context, log logger.Logger) (*DocumentService, error) {
	store, err := storage.NewStorage(storage.StorageType(cfg.GetStorageType()), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	pipelineCfg, err := cfg.LoadPipelineConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	factory, err := agent.NewProcessorFactory(log, pipelineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processor factory: %w", err)
	}
	extraction, err := factory.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction pipeline: %w", err)
	}

	svc := NewService(
		extraction.Pipeline,
		validator.NewDocumentValidator(log, nil),
		q,
		store,
		log,
		DefaultServiceConfig(),
	)
	svc.closer = closerFunc(func() error {
		return errors.Join(extraction.Close(), q.Close())
	})
	return svc, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Close releases the model backend and queue connections.
func (s *DocumentService) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ProcessFile validates and stores one upload, then queues it for extraction.
func (s *DocumentService) ProcessFile(
	ctx context.Context,
	file multipart.File,
	header *multipart.FileHeader,
) (*models.ProcessingTask, error) {
	s.logger.Info("Starting file processing",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	if s.validator != nil {
		result, err := s.validator.ValidateFile(header)
		if err != nil {
			return nil, fmt.Errorf("failed to validate file: %w", err)
		}
		if !result.IsValid {
			s.logger.Warn("File validation failed",
				logger.String("filename", header.Filename),
				logger.Any("errors", result.Errors),
			)
			return nil, &ValidationError{Result: result}
		}
	}

	taskID := uuid.New().String()
	now := time.Now()
	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeDocumentExtract,
		Priority:  s.config.QueuePriority,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: map[string]string{
			"filename": header.Filename,
			"size":     strconv.FormatInt(header.Size, 10),
		},
	}

	fileID, err := s.storage.Store(ctx, file, storage.UploadKey(taskID, header.Filename))
	if err != nil {
		s.logger.Error("Failed to store file",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	queueTask := &queue.Task{
		ID:       taskID,
		Type:     task.Type,
		Priority: task.Priority,
		Payload: map[string]interface{}{
			"fileId":   fileID,
			"filename": header.Filename,
			"size":     header.Size,
		},
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
	}

	// Pending must be recorded before the task can reach a worker.
	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:    taskID,
		Status:    string(models.StatusPending),
		StartedAt: now,
	}); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		_ = s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
			TaskID:     taskID,
			Status:     string(models.StatusFailed),
			Error:      err.Error(),
			StartedAt:  now,
			FinishedAt: time.Now(),
		})
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.Info("File processing task created",
		logger.String("taskId", taskID),
		logger.String("filename", header.Filename),
	)
	return task, nil
}

// ProcessBatch queues several uploads. Tasks created before a failure are
// returned alongside the error.
func (s *DocumentService) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error) {
	tasks := make([]*models.ProcessingTask, 0, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if s.config.MaxConcurrent > 0 {
		g.SetLimit(s.config.MaxConcurrent)
	}

	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.ProcessFile(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to process file %s: %w", header.Filename, err)
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tasks, err
	}
	return tasks, nil
}

// HandleDocument runs the pipeline for a queued task and stores its JSON and
// TSV results.
func (s *DocumentService) HandleDocument(ctx context.Context, task *queue.Task) error {
	if task == nil || task.PayloadString("fileId") == "" {
		return ErrInvalidTask
	}

	ctx = logger.WithTaskID(ctx, task.ID)
	log := logger.FromContext(ctx, s.logger)
	filename := task.PayloadString("filename")
	log.Info("Processing document", logger.String("filename", filename))

	started := time.Now()
	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:    task.ID,
		Status:    string(models.StatusRunning),
		StartedAt: started,
	})

	path, err := s.download(ctx, task.PayloadString("fileId"))
	if err != nil {
		return s.fail(ctx, task, started, err)
	}
	defer os.Remove(path)

	result, err := s.extractor.Process(ctx, path)
	if err != nil {
		return s.fail(ctx, task, started, fmt.Errorf("failed to process document: %w", err))
	}

	doc, err := converters.NewJSONConverter().Convert(task.ID, result, time.Since(started))
	if err != nil {
		return s.fail(ctx, task, started, fmt.Errorf("failed to convert document: %w", err))
	}
	if filename != "" {
		doc.Metadata.FileName = filename
	}
	if size, err := strconv.ParseInt(task.Metadata["size"], 10, 64); err == nil {
		doc.Metadata.FileSize = size
	}

	if err := s.storeResults(ctx, task.ID, doc); err != nil {
		return s.fail(ctx, task, started, err)
	}

	log.Info("Document processing completed",
		logger.String("status", doc.Status),
		logger.Int("pages", doc.Metadata.PageCount),
		logger.Int("records", doc.Metadata.RecordsCollected),
	)

	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     doc.Status,
		Progress:   1.0,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	return nil
}

func (s *DocumentService) download(ctx context.Context, fileID string) (string, error) {
	reader, err := s.storage.Get(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("failed to get file: %w", err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp(s.config.TempDir, "paper-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return tmp.Name(), nil
}

func (s *DocumentService) storeResults(ctx context.Context, taskID string, doc *converters.ProcessedDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if _, err := s.storage.Store(ctx, bytes.NewReader(data), storage.ResultKey(taskID, "json")); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	var buf bytes.Buffer
	w, err := converters.NewTSVWriter(&buf)
	if err != nil {
		return err
	}
	if doc.Record != nil {
		if err := w.Write(*doc.Record); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to render tsv: %w", err)
	}
	if _, err := s.storage.Store(ctx, &buf, storage.ResultKey(taskID, "tsv")); err != nil {
		return fmt.Errorf("failed to store tsv result: %w", err)
	}
	return nil
}

func (s *DocumentService) fail(ctx context.Context, task *queue.Task, started time.Time, err error) error {
	logger.FromContext(ctx, s.logger).Error("Document processing failed", logger.Error(err))
	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     string(models.StatusFailed),
		Error:      err.Error(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	return err
}

func (s *DocumentService) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := s.queue.SaveFinalStatus(ctx, status); err != nil {
		s.logger.Error("Failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.String("status", status.Status),
			logger.Error(err),
		)
	}
}

func (s *DocumentService) GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	return &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    models.ParseStatus(status.Status),
		Type:      queue.TaskTypeDocumentExtract,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

func (s *DocumentService) finished(ctx context.Context, taskID string) error {
	status, err := s.GetProcessingStatus(ctx, taskID)
	if err != nil {
		return err
	}
	switch status.Status {
	case models.StatusCompleted, models.StatusEmpty:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrNotReady, status.Status)
	}
}

func (s *DocumentService) GetProcessedDocument(ctx context.Context, taskID string) (*converters.ProcessedDocument, error) {
	if err := s.finished(ctx, taskID); err != nil {
		return nil, err
	}

	reader, err := s.storage.Get(ctx, storage.ResultKey(taskID, "json"))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer reader.Close()

	var result converters.ProcessedDocument
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

func (s *DocumentService) GetResultTSV(ctx context.Context, taskID string) ([]byte, error) {
	if err := s.finished(ctx, taskID); err != nil {
		return nil, err
	}

	reader, err := s.storage.Get(ctx, storage.ResultKey(taskID, "tsv"))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	return data, nil
}

func (s *DocumentService) CancelTask(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	s.logger.Info("Task cancelled", logger.String("taskId", taskID))
	return nil
}

// CleanupTasks removes uploads and results older than the retention period.
func (s *DocumentService) CleanupTasks(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed tasks cleanup", logger.Time("threshold", threshold))
	return nil
}
