package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/paper-extractor/internal/pipeline"
	"github.com/feichai0017/paper-extractor/internal/service/document"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/queue"
)

// Handler is the part of the document service the worker drives.
type Handler interface {
	HandleDocument(ctx context.Context, task *queue.Task) error
	CleanupTasks(ctx context.Context) error
}

type DocumentWorker struct {
	BaseWorker
	handler Handler
	config  *Config
}

func NewDocumentWorker(cfg *Config, handler Handler, log logger.Logger) (*DocumentWorker, error) {
	if handler == nil {
		return nil, fmt.Errorf("document handler is required")
	}
	log = log.Named("worker")

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Minute
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * retryDelay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("Task failed",
					logger.String("type", task.Type()),
					logger.Error(err),
				)
			}),
		},
	)

	w := &DocumentWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		handler: handler,
		config:  cfg,
	}

	w.registerHandlers()
	return w, nil
}

func (w *DocumentWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeDocumentExtract, w.handleDocumentExtract)
}

// handleDocumentExtract runs one queued document. Failures that a retry
// cannot fix skip the remaining asynq retries.
func (w *DocumentWorker) handleDocumentExtract(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
	}

	w.logger.Info("Processing document task",
		logger.String("taskId", task.ID),
		logger.String("filename", task.PayloadString("filename")),
	)

	w.writeResult(t, `{"status":"running","progress":0}`)

	err := w.handler.HandleDocument(ctx, &task)
	if err != nil {
		w.writeResult(t, fmt.Sprintf(`{"status":"failed","error":%q}`, err.Error()))
		if errors.Is(err, pipeline.ErrDocumentUnreadable) || errors.Is(err, document.ErrInvalidTask) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	w.writeResult(t, `{"status":"finished","progress":1}`)
	return nil
}

func (w *DocumentWorker) writeResult(t *asynq.Task, body string) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	if _, err := rw.Write([]byte(body)); err != nil {
		w.logger.Error("Failed to write task result", logger.Error(err))
	}
}

func (w *DocumentWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	if w.config.CleanupInterval > 0 {
		go w.cleanupLoop(ctx, w.config.CleanupInterval)
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}

func (w *DocumentWorker) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.handler.CleanupTasks(ctx); err != nil {
				w.logger.Error("Cleanup failed", logger.Error(err))
			}
		}
	}
}
