// Package indexer drives the indexing side of the pipeline: documents at
// rest are pulled one at a time, embedded, and upserted into the index.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/internal/types"
	"github.com/xhad/sophie/pkg/llm"
)

type Config struct {
	// MaxAttempts bounds embedding attempts per document. Only transient
	// failures are retried; permanent ones fail the document immediately.
	MaxAttempts int

	// RetryDelay is the initial backoff, doubled after each attempt.
	RetryDelay time.Duration
}

type Indexer struct {
	config   Config
	embedder types.Embedder
	index    types.Index
}

func NewWithConfig(config Config, embedder types.Embedder, index types.Index) *Indexer {
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}

	return &Indexer{
		config:   config,
		embedder: embedder,
		index:    index,
	}
}

// IndexDocument embeds one document's content and upserts the result.
// Precondition: Ensure has completed for the target index in this process.
func (ix *Indexer) IndexDocument(ctx context.Context, doc models.Document) error {
	embedding, err := ix.embedWithRetry(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	embedded := models.EmbeddedDocument{
		Document:         doc,
		ContentEmbedding: embedding,
	}
	return ix.index.Upsert(ctx, embedded)
}

// IndexBatch indexes a batch one document at a time. A failed document is
// reported and its siblings continue; a cancelled context stops scheduling
// further documents.
func (ix *Indexer) IndexBatch(ctx context.Context, batch models.Batch) []models.Failure {
	var failures []models.Failure

	for _, doc := range batch.Documents {
		if ctx.Err() != nil {
			break
		}
		if err := ix.IndexDocument(ctx, doc); err != nil {
			failures = append(failures, models.Failure{
				Source:     batch.Source,
				DocumentID: doc.ID,
				Err:        err,
			})
		}
	}

	return failures
}

func (ix *Indexer) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	delay := ix.config.RetryDelay

	for attempt := 1; ; attempt++ {
		embedding, err := ix.embedder.Embed(ctx, text)
		if err == nil {
			return embedding, nil
		}
		if !llm.IsTransient(err) || attempt >= ix.config.MaxAttempts {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
