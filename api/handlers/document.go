package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/paper-extractor/internal/service/document"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/queue"
)

type DocumentHandler struct {
	service document.DocumentProcessor
	logger  logger.Logger
}

type ProcessResponse struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"fileSize"`
	CreatedAt string `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func NewDocumentHandler(service document.DocumentProcessor, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  log.Named("handler"),
	}
}

// ProcessDocument queues one uploaded PDF for extraction.
func (h *DocumentHandler) ProcessDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	task, err := h.service.ProcessFile(c.Request.Context(), file, header)
	if err != nil {
		h.handleServiceError(c, "Failed to process file", err)
		return
	}

	c.JSON(http.StatusAccepted, ProcessResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Filename:  header.Filename,
		FileSize:  header.Size,
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
	})
}

// ProcessBatch queues every PDF in the "files" form field.
func (h *DocumentHandler) ProcessBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	tasks, err := h.service.ProcessBatch(c.Request.Context(), files)
	if err != nil && len(tasks) == 0 {
		h.handleServiceError(c, "Failed to process files", err)
		return
	}

	responses := make([]ProcessResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = ProcessResponse{
			TaskID:    task.ID,
			Status:    string(task.Status),
			Filename:  task.Metadata["filename"],
			CreatedAt: task.CreatedAt.Format(time.RFC3339),
		}
	}

	body := gin.H{
		"message": fmt.Sprintf("Queued %d of %d documents", len(tasks), len(files)),
		"tasks":   responses,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusAccepted, body)
}

func (h *DocumentHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")

	task, err := h.service.GetProcessingStatus(c.Request.Context(), taskID)
	if err != nil {
		h.handleServiceError(c, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"createdAt": task.CreatedAt.Format(time.RFC3339),
		"updatedAt": task.UpdatedAt.Format(time.RFC3339),
	})
}

// DownloadResult returns the JSON view of a finished document.
func (h *DocumentHandler) DownloadResult(c *gin.Context) {
	taskID := c.Param("taskId")

	result, err := h.service.GetProcessedDocument(c.Request.Context(), taskID)
	if err != nil {
		h.handleServiceError(c, "Failed to get result", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=result_%s.json", filepath.Base(taskID)))
	c.JSON(http.StatusOK, result)
}

// DownloadTSV returns the header and record line of a finished document.
func (h *DocumentHandler) DownloadTSV(c *gin.Context) {
	taskID := c.Param("taskId")

	data, err := h.service.GetResultTSV(c.Request.Context(), taskID)
	if err != nil {
		h.handleServiceError(c, "Failed to get result", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=paper_%s.tsv", filepath.Base(taskID)))
	c.Data(http.StatusOK, "text/tab-separated-values; charset=utf-8", data)
}

func (h *DocumentHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")

	if err := h.service.CancelTask(c.Request.Context(), taskID); err != nil {
		h.handleServiceError(c, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

func (h *DocumentHandler) handleServiceError(c *gin.Context, message string, err error) {
	var verr *document.ValidationError
	switch {
	case errors.As(err, &verr):
		h.logger.Warn(message, logger.String("path", c.Request.URL.Path), logger.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   err.Error(),
			Message: "Document rejected",
			Details: verr.Result,
		})
	case errors.Is(err, queue.ErrTaskNotFound):
		h.handleError(c, http.StatusNotFound, "Task not found", err)
	case errors.Is(err, document.ErrNotReady):
		h.handleError(c, http.StatusConflict, "Task is not finished", err)
	default:
		h.handleError(c, http.StatusInternalServerError, message, err)
	}
}

func (h *DocumentHandler) handleError(c *gin.Context, status int, message string, err error) {
	fields := []logger.Field{logger.String("path", c.Request.URL.Path)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, fields...)
	} else {
		h.logger.Warn(message, fields...)
	}

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}
