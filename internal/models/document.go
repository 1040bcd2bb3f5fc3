package models

import (
	"time"
)

// FileType is the kind of uploaded document.
type FileType string

const (
	PDF FileType = "pdf"
)

// DocumentMetadata describes an uploaded paper before extraction.
type DocumentMetadata struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Author    string                 `json:"author"`
	FileType  FileType               `json:"fileType"`
	FileSize  int64                  `json:"fileSize"`
	MimeType  string                 `json:"mimeType"`
	Pages     int                    `json:"pages"`
	CreatedAt time.Time              `json:"createdAt"`
	Hash      string                 `json:"hash"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Page text acquisition methods.
const (
	MethodNative = "native"
	MethodOCR    = "ocr"
	MethodNone   = "none"
)

// Page is the text acquired for one zero-based page of a document. It only
// lives while that document is being processed.
type Page struct {
	Index  int    `json:"index"`
	Text   string `json:"-"`
	Method string `json:"method"`
	// Fault is the acquisition error that degraded this page, if any.
	Fault error `json:"-"`
}

type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	// StatusEmpty marks a document where no page produced a valid record.
	StatusEmpty     ProcessingStatus = "empty"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)

// ParseStatus maps a stored status string back onto ProcessingStatus.
func ParseStatus(s string) ProcessingStatus {
	switch ProcessingStatus(s) {
	case StatusPending, StatusRunning, StatusCompleted, StatusEmpty, StatusFailed, StatusCancelled:
		return ProcessingStatus(s)
	case "active":
		return StatusRunning
	default:
		return StatusPending
	}
}
