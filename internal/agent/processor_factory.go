// Package agent assembles the extraction pipeline from configuration.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	cfg "github.com/feichai0017/paper-extractor/config"
	"github.com/feichai0017/paper-extractor/internal/agent/document"
	"github.com/feichai0017/paper-extractor/internal/agent/document/image"
	"github.com/feichai0017/paper-extractor/internal/agent/document/pdf"
	"github.com/feichai0017/paper-extractor/internal/agent/llm"
	"github.com/feichai0017/paper-extractor/internal/agent/research"
	"github.com/feichai0017/paper-extractor/internal/pipeline"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/retry"
)

const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderVertex    = "vertex"

	EngineTesseract = "tesseract"
	EngineTextract  = "textract"
	EngineNone      = "none"
)

// ProcessorFactory builds pipeline components from configuration.
type ProcessorFactory struct {
	logger   logger.Logger
	pipeline *cfg.PipelineConfig
	llm      *cfg.LLMConfig
	ocr      *cfg.OCRConfig
	textract *cfg.TextractConfig
}

type FactoryOption func(*ProcessorFactory)

func WithLLMConfig(c *cfg.LLMConfig) FactoryOption {
	return func(f *ProcessorFactory) { f.llm = c }
}

func WithOCRConfig(c *cfg.OCRConfig) FactoryOption {
	return func(f *ProcessorFactory) { f.ocr = c }
}

func WithTextractConfig(c *cfg.TextractConfig) FactoryOption {
	return func(f *ProcessorFactory) { f.textract = c }
}

// NewProcessorFactory reads backend settings from the environment unless
// overridden by options. A nil pipeline config means defaults.
func NewProcessorFactory(log logger.Logger, pipelineCfg *cfg.PipelineConfig, opts ...FactoryOption) (*ProcessorFactory, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if pipelineCfg == nil {
		pipelineCfg = cfg.DefaultPipelineConfig()
	}
	if err := pipelineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	f := &ProcessorFactory{
		logger:   log,
		pipeline: pipelineCfg,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.llm == nil {
		f.llm = cfg.GetLLMConfig()
	}
	if f.ocr == nil {
		f.ocr = cfg.GetOCRConfig()
	}
	if f.textract == nil {
		f.textract = cfg.GetTextractConfig()
	}
	return f, nil
}

// RetryPolicy returns the per-page attempt schedule.
func (f *ProcessorFactory) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: f.pipeline.MaxAttempts,
		Delays:      f.pipeline.BackoffSchedule(),
	}
}

// NewRecognizer returns the configured OCR engine, or nil when OCR is off.
func (f *ProcessorFactory) NewRecognizer(ctx context.Context) (document.Recognizer, error) {
	switch strings.ToLower(f.ocr.Engine) {
	case EngineTesseract, "":
		opts := image.DefaultProcessOptions()
		opts.Language = strings.Split(f.ocr.Language, "+")
		opts.Preprocess = f.ocr.Preprocess
		p, err := image.NewProcessor(f.logger, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create tesseract processor: %w", err)
		}
		return p, nil
	case EngineTextract:
		p, err := image.NewTextractProcessor(ctx, &image.TextractConfig{
			Region:        f.textract.Region,
			AccessKey:     f.textract.AccessKey,
			SecretKey:     f.textract.SecretKey,
			MinConfidence: float32(f.textract.MinConfidence),
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create textract processor: %w", err)
		}
		return p, nil
	case EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported ocr engine: %s", f.ocr.Engine)
	}
}

// NewCompletion returns the configured model backend and a closer for it.
func (f *ProcessorFactory) NewCompletion(ctx context.Context) (llm.Completion, io.Closer, error) {
	opts := llm.Options{
		Model:       f.llm.Model,
		MaxTokens:   f.llm.MaxTokens,
		Temperature: f.llm.Temperature,
	}

	switch strings.ToLower(f.llm.Provider) {
	case ProviderOllama, "":
		ollamaCfg := llm.DefaultOllamaConfig()
		ollamaCfg.Endpoint = f.llm.Endpoint
		if opts.Model != "" {
			ollamaCfg.Model = opts.Model
		}
		if opts.MaxTokens > 0 {
			ollamaCfg.MaxTokens = opts.MaxTokens
		}
		ollamaCfg.Temperature = opts.Temperature
		if f.llm.Timeout > 0 {
			ollamaCfg.Timeout = f.llm.Timeout
		}
		if f.llm.PoolSize > 0 {
			ollamaCfg.MaxPoolSize = f.llm.PoolSize
		}
		pool := llm.NewOllamaClientPool(ollamaCfg, f.logger)
		return pool, pool, nil
	case ProviderAnthropic:
		if f.llm.APIKey == "" {
			return nil, nil, errors.New("anthropic provider requires ANTHROPIC_API_KEY")
		}
		return llm.NewAnthropicClient(f.llm.APIKey, opts), nil, nil
	case ProviderVertex:
		if f.llm.ProjectID == "" {
			return nil, nil, errors.New("vertex provider requires GCP_PROJECT_ID")
		}
		client, err := llm.NewVertexClient(ctx, f.llm.ProjectID, f.llm.Region, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %s", f.llm.Provider)
	}
}

// NewAggregator returns the configured aggregation strategy.
func (f *ProcessorFactory) NewAggregator(model llm.Completion) research.Aggregator {
	if f.pipeline.Aggregation == "model" {
		return research.NewModelAggregator(model, f.RetryPolicy(), f.logger).
			WithCallTimeout(f.pipeline.CallTimeout.Std())
	}
	return research.NewMergeAggregator()
}

// Extraction is a ready pipeline plus the resources it holds.
type Extraction struct {
	Pipeline *pipeline.Pipeline
	PDF      *pdf.Processor
	closer   io.Closer
}

func (e *Extraction) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

// Build wires a full pipeline: pdf text layer, rendering and OCR fallback,
// page extraction with retries and aggregation.
func (f *ProcessorFactory) Build(ctx context.Context) (*Extraction, error) {
	recognizer, err := f.NewRecognizer(ctx)
	if err != nil {
		return nil, err
	}
	model, closer, err := f.NewCompletion(ctx)
	if err != nil {
		return nil, err
	}
	return f.BuildWith(recognizer, model, closer), nil
}

// BuildWith wires a pipeline around an existing recognizer and model.
func (f *ProcessorFactory) BuildWith(recognizer document.Recognizer, model llm.Completion, closer io.Closer) *Extraction {
	pdfProcessor := pdf.NewProcessor(f.logger)

	var renderer document.Renderer
	if recognizer != nil {
		renderer = pdf.NewRenderer(f.ocr.PdftoppmPath, f.logger)
	}
	acquirer := document.NewAcquirer(renderer, recognizer, f.logger,
		document.WithSparseThreshold(f.pipeline.SparseThreshold),
		document.WithDPI(f.ocr.DPI),
	)

	p := pipeline.New(
		pdfProcessor,
		acquirer,
		research.NewExtractor(model, f.logger),
		f.NewAggregator(model),
		pipeline.WithRetryPolicy(f.RetryPolicy()),
		pipeline.WithCallTimeout(f.pipeline.CallTimeout.Std()),
		pipeline.WithMinRelevantLength(f.pipeline.MinRelevantLength),
		pipeline.WithLogger(f.logger),
	)

	f.logger.Info("Extraction pipeline ready",
		logger.String("provider", f.llm.Provider),
		logger.String("model", f.llm.Model),
		logger.String("ocrEngine", f.ocr.Engine),
		logger.String("aggregation", f.pipeline.Aggregation),
		logger.Int("maxAttempts", f.pipeline.MaxAttempts),
	)

	return &Extraction{Pipeline: p, PDF: pdfProcessor, closer: closer}
}
