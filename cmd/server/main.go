package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/paper-extractor/api/handlers"
	"github.com/feichai0017/paper-extractor/api/middleware"
	"github.com/feichai0017/paper-extractor/api/routes"
	"github.com/feichai0017/paper-extractor/config"
	"github.com/feichai0017/paper-extractor/internal/service/document"
	"github.com/feichai0017/paper-extractor/pkg/logger"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	serverCfg := config.GetServerConfig()

	docService, err := document.GetService(context.Background(), log)
	if err != nil {
		log.Fatal("Failed to get document service", logger.Error(err))
	}
	defer docService.Close()

	h := handlers.NewHandlers(docService, log)
	r := gin.New()
	r.MaxMultipartMemory = serverCfg.MaxUploadBytes
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.SetupRoutes(r, h, serverCfg.AllowOrigins)

	srv := &http.Server{
		Addr:    ":" + serverCfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("port", serverCfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
