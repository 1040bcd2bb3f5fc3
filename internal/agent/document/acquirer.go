package document

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/pkg/logger"
)

const (
	DefaultSparseThreshold = 200
	DefaultDPI             = 300
)

// Acquirer produces the text of a page, falling back to OCR when the native
// text layer is too sparse to be a digitally typeset page.
type Acquirer struct {
	renderer        Renderer
	recognizer      Recognizer
	logger          logger.Logger
	sparseThreshold int
	dpi             int
}

type AcquirerOption func(*Acquirer)

// WithSparseThreshold sets the native text length, in runes, below which OCR runs.
func WithSparseThreshold(n int) AcquirerOption {
	return func(a *Acquirer) {
		if n > 0 {
			a.sparseThreshold = n
		}
	}
}

// WithDPI sets the render resolution used for OCR.
func WithDPI(dpi int) AcquirerOption {
	return func(a *Acquirer) {
		if dpi > 0 {
			a.dpi = dpi
		}
	}
}

// NewAcquirer builds an acquirer. A nil renderer or recognizer disables OCR.
func NewAcquirer(renderer Renderer, recognizer Recognizer, log logger.Logger, opts ...AcquirerOption) *Acquirer {
	if log == nil {
		log = logger.NewNop()
	}
	a := &Acquirer{
		renderer:        renderer,
		recognizer:      recognizer,
		logger:          log.Named("acquirer"),
		sparseThreshold: DefaultSparseThreshold,
		dpi:             DefaultDPI,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AcquireText never fails: extraction and OCR faults are recorded on the
// returned page and the best text found so far is kept.
func (a *Acquirer) AcquireText(ctx context.Context, src Source, index int) models.Page {
	log := logger.FromContext(ctx, a.logger).With(logger.Int("page", index+1))

	raw, err := src.PageText(index)
	if err != nil {
		log.Warn("Failed to extract native text", logger.Error(err))
		return models.Page{Index: index, Method: models.MethodNone, Fault: err}
	}

	native := strings.TrimSpace(raw)
	page := models.Page{Index: index, Text: native, Method: models.MethodNative}
	if native == "" {
		page.Method = models.MethodNone
	}

	nativeLen := utf8.RuneCountInString(native)
	if nativeLen >= a.sparseThreshold {
		log.Debug("Native text detected", logger.Int("length", nativeLen))
		return page
	}
	if a.renderer == nil || a.recognizer == nil {
		return page
	}

	log.Info("Native text is sparse, running OCR", logger.Int("length", nativeLen))

	img, err := a.renderer.RenderPage(ctx, src.Path(), index, a.dpi)
	if err != nil {
		log.Warn("Failed to render page", logger.Error(err))
		page.Fault = err
		return page
	}

	start := time.Now()
	recognized, err := a.recognizer.Recognize(ctx, img)
	if err != nil {
		log.Warn("OCR failed", logger.Error(err))
		page.Fault = err
		return page
	}
	recognized = strings.TrimSpace(recognized)

	ocrLen := utf8.RuneCountInString(recognized)
	log.Info("OCR finished",
		logger.Int("length", ocrLen),
		logger.Duration("duration", time.Since(start)),
	)

	if ocrLen > nativeLen {
		page.Text = recognized
		page.Method = models.MethodOCR
	}
	return page
}
