package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/feichai0017/paper-extractor/pkg/logger"
)

const (
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeEmptyFile       = "EMPTY_FILE"
	CodeInvalidType     = "INVALID_FILE_TYPE"
	CodeInvalidMimeType = "INVALID_MIME_TYPE"
	CodeMalformedPDF    = "MALFORMED_PDF"
	CodeTooManyPages    = "TOO_MANY_PAGES"
)

// DocumentValidator checks uploaded papers before they are queued.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	MaxFileSize  int64
	AllowedTypes map[string][]string // extension -> accepted MIME types
	MaxPageCount int
	// StrictPDF rejects files that only pass relaxed pdfcpu validation.
	StrictPDF bool
}

type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
	PageCount int    `json:"pageCount,omitempty"`
}

func DefaultValidatorConfig() *ValidatorConfig {
	return &ValidatorConfig{
		MaxFileSize: 50 * 1024 * 1024,
		AllowedTypes: map[string][]string{
			".pdf": {"application/pdf"},
		},
		MaxPageCount: 500,
	}
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = DefaultValidatorConfig()
	}
	return &DocumentValidator{
		logger: log.Named("validator"),
		config: config,
	}
}

type readSeeker interface {
	io.Reader
	io.Seeker
}

// ValidateFile validates an uploaded multipart file.
func (v *DocumentValidator) ValidateFile(file *multipart.FileHeader) (*ValidationResult, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return v.validate(f, file.Filename, file.Size)
}

// ValidatePath validates a file on local disk.
func (v *DocumentValidator) ValidatePath(path string) (*ValidationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return v.validate(f, filepath.Base(path), info.Size())
}

func (v *DocumentValidator) validate(f readSeeker, filename string, size int64) (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  filename,
			Size:      size,
			Extension: strings.ToLower(filepath.Ext(filename)),
		},
	}

	hash, err := calculateHash(f)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}
	result.FileInfo.Hash = hash

	mimeType, err := detectMimeType(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	result.FileInfo.MimeType = mimeType

	result.add(v.basicErrors(result.FileInfo)...)
	result.add(v.mimeErrors(result.FileInfo)...)
	if !result.IsValid {
		return result, nil
	}

	pages, errs := v.pdfErrors(f)
	result.FileInfo.PageCount = pages
	result.add(errs...)

	if !result.IsValid {
		v.logger.Info("Document rejected",
			logger.String("filename", filename),
			logger.Any("errors", result.Errors),
		)
	}
	return result, nil
}

func (r *ValidationResult) add(errs ...ValidationError) {
	if len(errs) == 0 {
		return
	}
	r.IsValid = false
	r.Errors = append(r.Errors, errs...)
}

func (v *DocumentValidator) basicErrors(info FileInfo) []ValidationError {
	var errs []ValidationError

	if info.Size == 0 {
		errs = append(errs, ValidationError{
			Code:    CodeEmptyFile,
			Message: "File is empty",
			Field:   "size",
		})
	}
	if info.Size > v.config.MaxFileSize {
		errs = append(errs, ValidationError{
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}
	if _, ok := v.config.AllowedTypes[info.Extension]; !ok {
		errs = append(errs, ValidationError{
			Code:    CodeInvalidType,
			Message: fmt.Sprintf("File type %s is not allowed", info.Extension),
			Field:   "extension",
		})
	}
	return errs
}

func (v *DocumentValidator) mimeErrors(info FileInfo) []ValidationError {
	allowed, ok := v.config.AllowedTypes[info.Extension]
	if !ok {
		return nil
	}
	for _, m := range allowed {
		if m == info.MimeType {
			return nil
		}
	}
	return []ValidationError{{
		Code:    CodeInvalidMimeType,
		Message: fmt.Sprintf("Invalid MIME type %s for extension %s", info.MimeType, info.Extension),
		Field:   "mimeType",
	}}
}

func (v *DocumentValidator) pdfErrors(f readSeeker) (int, []ValidationError) {
	conf := model.NewDefaultConfiguration()
	if !v.config.StrictPDF {
		conf.ValidationMode = model.ValidationRelaxed
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, []ValidationError{{Code: CodeMalformedPDF, Message: err.Error()}}
	}
	if err := api.Validate(f, conf); err != nil {
		return 0, []ValidationError{{
			Code:    CodeMalformedPDF,
			Message: fmt.Sprintf("PDF failed validation: %v", err),
		}}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, []ValidationError{{Code: CodeMalformedPDF, Message: err.Error()}}
	}
	pages, err := api.PageCount(f, conf)
	if err != nil {
		return 0, []ValidationError{{
			Code:    CodeMalformedPDF,
			Message: fmt.Sprintf("failed to count pages: %v", err),
		}}
	}
	if v.config.MaxPageCount > 0 && pages > v.config.MaxPageCount {
		return pages, []ValidationError{{
			Code:    CodeTooManyPages,
			Message: fmt.Sprintf("Document has %d pages, limit is %d", pages, v.config.MaxPageCount),
			Field:   "pageCount",
		}}
	}
	return pages, nil
}

func detectMimeType(f readSeeker) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	buffer := make([]byte, 512)
	n, err := f.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buffer[:n]), nil
}

func calculateHash(f readSeeker) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
