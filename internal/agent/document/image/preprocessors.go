package image

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// BuildPipeline returns the preprocessing passes for cfg, in order.
func BuildPipeline(cfg *PreprocessConfig) []ImagePreprocessor {
	pipeline := []ImagePreprocessor{NewGrayscaleProcessor()}
	if cfg.DenoiseStrength > 0 {
		pipeline = append(pipeline, NewDenoiseProcessor(cfg.DenoiseStrength))
	}
	if cfg.ContrastAmount != 0 {
		pipeline = append(pipeline, NewContrastProcessor(cfg.ContrastAmount))
	}
	if cfg.SharpenStrength > 0 {
		pipeline = append(pipeline, NewSharpenProcessor(cfg.SharpenStrength))
	}
	return pipeline
}

// Preprocess runs img through every preprocessor.
func Preprocess(img image.Image, preprocessors []ImagePreprocessor) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	var err error
	result := img
	for _, processor := range preprocessors {
		result, err = processor.Process(result)
		if err != nil {
			return nil, fmt.Errorf("preprocessing failed: %w", err)
		}
		if result == nil {
			return nil, fmt.Errorf("preprocessor returned nil image")
		}
	}
	return result, nil
}

type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// DenoiseProcessor applies a light gaussian blur.
type DenoiseProcessor struct {
	strength float64
}

func NewDenoiseProcessor(strength float64) *DenoiseProcessor {
	return &DenoiseProcessor{strength: strength}
}

func (p *DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Blur(img, p.strength), nil
}

type ContrastProcessor struct {
	amount float64
}

// NewContrastProcessor takes a percentage in [-100, 100].
func NewContrastProcessor(amount float64) *ContrastProcessor {
	return &ContrastProcessor{amount: amount}
}

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.amount), nil
}

type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}
