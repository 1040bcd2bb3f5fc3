package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feichai0017/paper-extractor/internal/agent/llm"
	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/retry"
)

// Aggregator merges the per-page records of one document into one record.
type Aggregator interface {
	Aggregate(ctx context.Context, records []models.Record, titleHint string) (models.Record, error)
}

// MergeAggregator is the deterministic string merge: per field, the union of
// non-sentinel values in first-seen order.
type MergeAggregator struct{}

func NewMergeAggregator() MergeAggregator {
	return MergeAggregator{}
}

func (MergeAggregator) Aggregate(_ context.Context, records []models.Record, titleHint string) (models.Record, error) {
	return Merge(records, titleHint), nil
}

// Merge is the pure form of MergeAggregator.Aggregate.
func Merge(records []models.Record, titleHint string) models.Record {
	merged := make([]string, models.FieldCount)
	merged[0] = resolveTitle(records, titleHint)

	for col := 1; col < models.FieldCount; col++ {
		seen := make(map[string]struct{})
		var values []string
		for _, rec := range records {
			values = appendValues(values, seen, rec.Fields()[col])
		}
		merged[col] = joinValues(values)
	}

	rec, _ := models.RecordFromFields(merged)
	return rec
}

func resolveTitle(records []models.Record, titleHint string) string {
	if hint := usableHint(titleHint); hint != "" {
		return hint
	}
	for _, rec := range records {
		if rec.HasTitle() {
			return strings.TrimSpace(rec.Title)
		}
	}
	return models.NotFound
}

func usableHint(titleHint string) string {
	if models.IsSentinel(titleHint) {
		return ""
	}
	return strings.TrimSpace(titleHint)
}

// ModelAggregator asks the model to merge the rows, which copes with
// paraphrases the string merge keeps apart. When every attempt fails it
// falls back to Fallback.
type ModelAggregator struct {
	model       llm.Completion
	policy      retry.Policy
	callTimeout time.Duration
	fallback    Aggregator
	logger      logger.Logger
}

func NewModelAggregator(model llm.Completion, policy retry.Policy, log logger.Logger) *ModelAggregator {
	if log == nil {
		log = logger.NewNop()
	}
	return &ModelAggregator{
		model:    model,
		policy:   policy,
		fallback: MergeAggregator{},
		logger:   log.Named("aggregator"),
	}
}

// WithCallTimeout bounds each model call. Zero leaves calls unbounded.
func (a *ModelAggregator) WithCallTimeout(d time.Duration) *ModelAggregator {
	a.callTimeout = d
	return a
}

func (a *ModelAggregator) complete(ctx context.Context, prompt string) (string, error) {
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}
	return a.model.Complete(ctx, prompt)
}

func (a *ModelAggregator) Aggregate(ctx context.Context, records []models.Record, titleHint string) (models.Record, error) {
	log := logger.FromContext(ctx, a.logger)

	rows := make([]string, 0, len(records))
	for _, rec := range records {
		row, err := rec.MarshalTSV()
		if err != nil {
			return models.Record{}, fmt.Errorf("failed to encode record: %w", err)
		}
		rows = append(rows, row)
	}

	prompt, err := BuildAggregationPrompt(rows, titleHint)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to build aggregation prompt: %w", err)
	}

	var merged models.Record
	policy := a.policy.WithOnRetry(func(attempt int, err error) {
		log.Warn("Aggregation attempt failed", logger.Int("attempt", attempt), logger.Error(err))
	})
	err = policy.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := a.complete(ctx, prompt)
		if err != nil {
			return err
		}
		rec, err := ParseResponse(resp)
		if err != nil {
			return fmt.Errorf("%w (sample: %q)", err, Sample(resp, 200))
		}
		merged = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return models.Record{}, err
		}
		log.Warn("Model aggregation exhausted, using string merge", logger.Error(err))
		return a.fallback.Aggregate(ctx, records, titleHint)
	}

	switch {
	case usableHint(titleHint) != "":
		merged.Title = usableHint(titleHint)
	case !merged.HasTitle():
		merged.Title = resolveTitle(records, "")
	}
	return merged, nil
}
