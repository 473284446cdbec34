package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParseBatch parses inputs concurrently with at most workers goroutines
// (runtime.NumCPU when workers <= 0). Results keep input order. When ctx is
// cancelled, inputs not yet started get a failure result and the context
// error is returned alongside the partial results.
func (p *Pipeline) ParseBatch(ctx context.Context, inputs []any, workers int) ([]*ParseResult, error) {
	results := make([]*ParseResult, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkerCount(workers, len(inputs)))

	for i, in := range inputs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = p.ParseValue(in)
			return nil
		})
	}

	err := g.Wait()
	for i, r := range results {
		if r == nil {
			results[i] = failedResult(fmt.Sprint(inputs[i]), fmt.Errorf("%w: %w", ErrPipelineFault, ctx.Err()))
		}
	}
	return results, err
}

// ParseAll is ParseBatch for plain strings.
func (p *Pipeline) ParseAll(ctx context.Context, texts []string, workers int) ([]*ParseResult, error) {
	inputs := make([]any, len(texts))
	for i, t := range texts {
		inputs[i] = t
	}
	return p.ParseBatch(ctx, inputs, workers)
}

func batchWorkerCount(workers, n int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return max(min(workers, n), 1)
}
