package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"time"

	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/storage/minio"
	"github.com/feichai0017/paper-extractor/pkg/storage/s3"
)

type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage keeps uploaded PDFs and extraction results under string keys.
type Storage interface {
	// Store writes reader under key and returns the key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// CleanupBefore deletes every object last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

func NewStorage(storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(log)
	case StorageTypeMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// UploadKey is where the PDF of a task is stored.
func UploadKey(taskID, filename string) string {
	return path.Join("uploads", taskID, filepath.Base(filename))
}

// ResultKey is where a task result with the given extension is stored.
func ResultKey(taskID, ext string) string {
	return path.Join("results", taskID+"."+ext)
}

// ContentType guesses a MIME type from the key extension.
func ContentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
