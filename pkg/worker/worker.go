package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/paper-extractor/config"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/queue"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr   string
	RedisDB     int
	Concurrency int
	Queues      map[string]int
	RetryDelay  time.Duration
	// CleanupInterval is how often expired uploads and results are removed.
	// Zero disables cleanup.
	CleanupInterval time.Duration
}

// ConfigFromQueue derives worker settings from the queue configuration.
func ConfigFromQueue(qc *config.QueueConfig) *Config {
	return &Config{
		RedisAddr:       qc.RedisAddr,
		RedisDB:         qc.RedisDB,
		Concurrency:     qc.Concurrency,
		Queues:          queue.Queues(),
		RetryDelay:      qc.RetryDelay,
		CleanupInterval: time.Hour,
	}
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopChan chan struct{}
}

func (w *BaseWorker) Stop() error {
	select {
	case <-w.stopChan:
		return nil
	default:
	}
	close(w.stopChan)
	w.server.Shutdown()
	return nil
}
