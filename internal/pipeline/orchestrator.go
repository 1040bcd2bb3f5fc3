package pipeline

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/feichai0017/paper-extractor/internal/agent/document"
	"github.com/feichai0017/paper-extractor/internal/agent/research"
	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/retry"
)

// PageAcquirer returns the best available text of a page.
type PageAcquirer interface {
	AcquireText(ctx context.Context, src document.Source, index int) models.Page
}

// PageExtractor asks the model for one raw record response.
type PageExtractor interface {
	Extract(ctx context.Context, pageText, titleHint string) (string, error)
}

const (
	DefaultCallTimeout = 5 * time.Minute
	responseSampleLen  = 200
)

// Pipeline drives one PDF at a time from pages to an aggregated record.
// A Pipeline holds no per-document state and may be shared between
// goroutines processing different documents.
type Pipeline struct {
	opener      document.Opener
	acquirer    PageAcquirer
	extractor   PageExtractor
	aggregator  research.Aggregator
	policy      retry.Policy
	callTimeout time.Duration
	minRelevant int
	logger      logger.Logger
}

type Option func(*Pipeline)

// WithRetryPolicy sets the per-page extraction retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithCallTimeout bounds each model call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.callTimeout = d
	}
}

// WithMinRelevantLength sets the classifier length floor.
func WithMinRelevantLength(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.minRelevant = n
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.logger = log
		}
	}
}

func New(opener document.Opener, acquirer PageAcquirer, extractor PageExtractor, aggregator research.Aggregator, opts ...Option) *Pipeline {
	p := &Pipeline{
		opener:      opener,
		acquirer:    acquirer,
		extractor:   extractor,
		aggregator:  aggregator,
		policy:      retry.Default(),
		callTimeout: DefaultCallTimeout,
		minRelevant: research.MinRelevantLength,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pipeline")
	return p
}

// Process extracts the aggregated record of the PDF at path. Page level
// failures never fail the document; only an unopenable file, a failed
// aggregation or a cancelled context return an error.
func (p *Pipeline) Process(ctx context.Context, path string) (*Result, error) {
	ctx = logger.WithDocument(ctx, path)
	log := logger.FromContext(ctx, p.logger)

	src, err := p.opener.Open(path)
	if err != nil {
		log.Error("Failed to open document", logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}
	defer src.Close()

	state := &DocumentState{
		Path:      path,
		PageCount: src.NumPages(),
		Pages:     make([]PageOutcome, 0, src.NumPages()),
	}
	log.Info("Processing document", logger.Int("pages", state.PageCount))

	for index := 0; index < state.PageCount; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		state.Stage = StageScanning
		page := p.acquirer.AcquireText(ctx, src, index)
		outcome := PageOutcome{
			Index:  index,
			Method: page.Method,
			Chars:  utf8.RuneCountInString(page.Text),
		}
		if page.Fault != nil {
			outcome.Fault = page.Fault.Error()
		}

		state.Stage = StageClassifying
		if !research.IsRelevantWithMin(page.Text, p.minRelevant) {
			state.Stage = StageSkipping
			log.Debug("Skipping page", logger.Int("page", index+1), logger.Int("chars", outcome.Chars))
			state.Pages = append(state.Pages, outcome)
			continue
		}
		outcome.Relevant = true

		state.Stage = StageExtracting
		rec, attempts, err := p.extractPage(ctx, state, page)
		outcome.Attempts = attempts
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("Page extraction failed, skipping page",
				logger.Int("page", index+1),
				logger.Int("attempts", attempts),
				logger.Error(err),
			)
			state.Pages = append(state.Pages, outcome)
			continue
		}

		outcome.Accepted = true
		state.accept(rec)
		state.Pages = append(state.Pages, outcome)
		log.Info("Page record accepted", logger.Int("page", index+1), logger.Int("attempts", attempts))
	}

	if len(state.Records) == 0 {
		state.Stage = StageDone
		log.Info("No page yielded a record")
		return &Result{Path: path, State: state}, nil
	}

	state.Stage = StageAggregating
	final, err := p.aggregator.Aggregate(ctx, state.Records, state.KnownTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", path, err)
	}
	state.Stage = StageDone

	log.Info("Document aggregated",
		logger.Int("records", len(state.Records)),
		logger.String("title", final.Title),
	)
	return &Result{Path: path, Record: &final, State: state}, nil
}

// extractPage runs the extraction retry loop for one relevant page.
func (p *Pipeline) extractPage(ctx context.Context, state *DocumentState, page models.Page) (models.Record, int, error) {
	log := logger.FromContext(ctx, p.logger).With(logger.Int("page", page.Index+1))

	var (
		rec      models.Record
		attempts int
	)
	policy := p.policy.WithOnRetry(func(attempt int, err error) {
		log.Warn("Extraction attempt failed",
			logger.Int("attempt", attempt),
			logger.Duration("backoff", p.policy.Delay(attempt)),
			logger.Error(err),
		)
	})

	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt

		callCtx, cancel := p.callContext(ctx)
		defer cancel()

		resp, err := p.extractor.Extract(callCtx, page.Text, state.KnownTitle)
		if err != nil {
			return err
		}
		parsed, err := research.ParseResponse(resp)
		if err != nil {
			return fmt.Errorf("%w (sample: %q)", err, research.Sample(resp, responseSampleLen))
		}
		rec = parsed
		return nil
	})
	return rec, attempts, err
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.callTimeout)
}
