package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/paper-extractor/config"
	"github.com/feichai0017/paper-extractor/internal/service/document"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docService, err := document.GetService(ctx, log)
	if err != nil {
		log.Error("Failed to create document service", logger.Error(err))
		os.Exit(1)
	}
	defer docService.Close()

	workerCfg := worker.ConfigFromQueue(config.GetQueueConfig())

	documentWorker, err := worker.NewDocumentWorker(workerCfg, docService, log)
	if err != nil {
		log.Error("Failed to create document worker", logger.Error(err))
		os.Exit(1)
	}

	if err := documentWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Worker started", logger.Int("concurrency", workerCfg.Concurrency))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	documentWorker.Stop()
	log.Info("Worker stopped")
}
