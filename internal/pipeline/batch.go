package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/paper-extractor/pkg/logger"
)

// Sink receives every finished document, including empty ones. It may be
// called from several goroutines at once.
type Sink func(ctx context.Context, result *Result) error

// BatchStats counts the outcomes of a batch run.
type BatchStats struct {
	Extracted  int
	Empty      int
	Unreadable int
	Failed     int
}

// RunBatch processes paths with at most concurrency documents in flight.
// Document failures are logged and counted; only a sink error or a
// cancelled context stops the batch.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, concurrency int, sink Sink) (BatchStats, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	type outcome int
	const (
		pending outcome = iota
		extracted
		empty
		unreadable
		failed
	)

	outcomes := make([]outcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			result, err := p.Process(gctx, path)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, ErrDocumentUnreadable):
				outcomes[i] = unreadable
				return nil
			case err != nil:
				p.logger.Error("Document failed", logger.String("document", path), logger.Error(err))
				outcomes[i] = failed
				return nil
			case result.Empty():
				outcomes[i] = empty
			default:
				outcomes[i] = extracted
			}
			if sink != nil {
				if err := sink(gctx, result); err != nil {
					return fmt.Errorf("failed to write result for %s: %w", path, err)
				}
			}
			return nil
		})
	}

	err := g.Wait()

	var stats BatchStats
	for _, o := range outcomes {
		switch o {
		case extracted:
			stats.Extracted++
		case empty:
			stats.Empty++
		case unreadable:
			stats.Unreadable++
		case failed:
			stats.Failed++
		}
	}
	return stats, err
}
