package classifier

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called after each input completes with the number done so
// far. Calls are serialised and done increases by one each time.
type ProgressFunc func(done, total int)

// ClassifyAll labels every input with bounded concurrency. Results keep the
// input order. The first context error aborts the batch.
func (p *Pipeline) ClassifyAll(ctx context.Context, inputs []Input, progress ProgressFunc) ([]Result, error) {
	results := make([]Result, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var (
		mu   sync.Mutex
		done int
	)

	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			res, err := p.Classify(gctx, inputs[i])
			if err != nil {
				return err
			}
			results[i] = res

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(inputs))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
