package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/paper-extractor/api/handlers"
	"github.com/feichai0017/paper-extractor/api/middleware"
)

// SetupRoutes registers every route on r.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, origins []string) {
	r.Use(middleware.CORS(origins))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handlers.HealthCheck)

	docs := v1.Group("/documents")
	{
		docs.POST("/extract", h.Document.ProcessDocument)
		docs.POST("/batch", h.Document.ProcessBatch)
		docs.GET("/status/:taskId", h.Document.GetStatus)
		docs.GET("/download/:taskId", h.Document.DownloadResult)
		docs.GET("/download/:taskId/tsv", h.Document.DownloadTSV)
		docs.DELETE("/task/:taskId", h.Document.CancelTask)
	}
}
