package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/paper-extractor/pkg/logger"
)

// Processor recognises page images with Tesseract.
type Processor struct {
	logger        logger.Logger
	preprocessors []ImagePreprocessor
	config        *ProcessOptions
}

// ImagePreprocessor transforms an image before recognition.
type ImagePreprocessor interface {
	Process(img image.Image) (image.Image, error)
}

type ProcessOptions struct {
	Language    []string
	PageSegMode gosseract.PageSegMode
	// Preprocess runs the preprocessor chain before recognition.
	Preprocess       bool
	PreprocessConfig *PreprocessConfig
}

type PreprocessConfig struct {
	ContrastAmount  float64
	SharpenStrength float64
	DenoiseStrength float64
}

func DefaultProcessOptions() *ProcessOptions {
	return &ProcessOptions{
		Language:    []string{"eng"},
		PageSegMode: gosseract.PSM_AUTO,
		Preprocess:  true,
		PreprocessConfig: &PreprocessConfig{
			ContrastAmount:  20,
			SharpenStrength: 0.5,
		},
	}
}

func NewProcessor(log logger.Logger, opts *ProcessOptions) (*Processor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts == nil {
		opts = DefaultProcessOptions()
	}
	if opts.PreprocessConfig == nil {
		opts.PreprocessConfig = DefaultProcessOptions().PreprocessConfig
	}

	var preprocessors []ImagePreprocessor
	if opts.Preprocess {
		preprocessors = BuildPipeline(opts.PreprocessConfig)
	}

	return &Processor{
		logger:        log.Named("tesseract"),
		preprocessors: preprocessors,
		config:        opts,
	}, nil
}

// Recognize implements document.Recognizer. A fresh Tesseract client is used
// per call since clients are not safe for concurrent use.
func (p *Processor) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(p.config.Language...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(p.config.PageSegMode); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	processed, err := Preprocess(img, p.preprocessors)
	if err != nil {
		return "", fmt.Errorf("failed to preprocess image: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, processed); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	start := time.Now()
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}

	p.logger.Debug("Tesseract finished",
		logger.Int("chars", len(text)),
		logger.Duration("duration", time.Since(start)),
	)
	return text, nil
}
