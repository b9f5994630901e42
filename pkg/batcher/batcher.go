// Package batcher aggregates the output of all configured source adapters
// for one sync invocation into per-source insert batches.
package batcher

import (
	"context"

	"github.com/google/uuid"
	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/internal/types"
	"github.com/xhad/sophie/pkg/cursor"
)

type Batcher struct {
	adapters []types.SourceAdapter
}

func New(adapters ...types.SourceAdapter) *Batcher {
	return &Batcher{adapters: adapters}
}

// Result is the outcome of one sync run. Partial success is the steady
// state: each failed adapter contributes a Failure, each successful adapter
// with new documents contributes exactly one Batch.
type Result struct {
	Batches  []models.Batch
	Failures []models.Failure
}

// Run executes every adapter sequentially. Document order within a batch is
// the adapter's output order; no ordering holds across adapters. Cursors in
// state are replaced only for adapters that succeed, so a failed source
// retries from its previous position on the next sync. A cancelled context
// stops scheduling further adapters.
func (b *Batcher) Run(ctx context.Context, state *cursor.State) Result {
	var res Result

	for _, adapter := range b.adapters {
		if ctx.Err() != nil {
			break
		}

		docs, next, err := adapter.Fetch(ctx, state.Get(adapter.Name()))
		if err != nil {
			res.Failures = append(res.Failures, models.Failure{
				Source: adapter.Name(),
				Err:    err,
			})
			continue
		}

		state.Set(adapter.Name(), next)

		// An adapter yielding nothing contributes no batch.
		if len(docs) == 0 {
			continue
		}

		res.Batches = append(res.Batches, models.Batch{
			ID:        uuid.NewString(),
			Source:    adapter.Name(),
			Documents: docs,
		})
	}

	return res
}
