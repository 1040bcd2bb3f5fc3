package pdf

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/paper-extractor/internal/agent/document"
	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/pkg/logger"
)

// Processor opens PDFs through ledongthuc/pdf.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Processor{logger: log.Named("pdf")}
}

// Open implements document.Opener.
func (p *Processor) Open(path string) (src document.Source, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to open pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	return &Document{path: path, file: f, reader: reader, logger: p.logger}, nil
}

// Document is an open PDF file.
type Document struct {
	path   string
	file   *os.File
	reader *pdf.Reader
	logger logger.Logger
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// PageText returns the plain text of a zero-based page.
func (d *Document) PageText(index int) (text string, err error) {
	if index < 0 || index >= d.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range (%d pages)", index+1, d.reader.NumPage())
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to decode page %d: %v", index+1, r)
		}
	}()

	page := d.reader.Page(index + 1)
	if page.V.IsNull() {
		return "", nil
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to get text from page %d: %w", index+1, err)
	}
	return text, nil
}

func (d *Document) Close() error {
	return d.file.Close()
}

// ExtractMetadata reads the page count and the Info dictionary of the PDF at
// path. Title and Author are left blank when the file carries none.
func (p *Processor) ExtractMetadata(path string) (meta models.DocumentMetadata, err error) {
	f, err := os.Open(path)
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("failed to hash pdf: %w", err)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse pdf %s: %v", path, r)
		}
	}()

	reader, err := pdf.NewReader(f, size)
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("failed to parse pdf %s: %w", path, err)
	}

	meta = models.DocumentMetadata{
		ID:        hash[:8],
		FileType:  models.PDF,
		FileSize:  size,
		MimeType:  "application/pdf",
		Pages:     reader.NumPage(),
		CreatedAt: time.Now(),
		Hash:      hash,
	}

	if info := reader.Trailer().Key("Info"); !info.IsNull() {
		meta.Title = info.Key("Title").Text()
		meta.Author = info.Key("Author").Text()
	}
	return meta, nil
}
