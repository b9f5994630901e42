package types

import (
	"context"

	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/pkg/cursor"
)

// Core interfaces

// SourceAdapter fetches new or changed content from one external source.
// Fetch takes the cursor persisted after the previous sync and returns the
// normalized documents plus the cursor to persist if (and only if) the fetch
// succeeded. A failed fetch returns the input cursor unchanged.
type SourceAdapter interface {
	// Name identifies the source instance, e.g. the feed URL. Used as the
	// cursor key and in failure reports.
	Name() string

	// Type returns the source kind tag stamped on produced documents.
	Type() models.SourceType

	Fetch(ctx context.Context, cur cursor.Source) ([]models.Document, cursor.Source, error)
}

// Embedder converts document text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Index is the write-path surface of the search index.
type Index interface {
	// Ensure provisions the index (create if absent). Idempotent; at most
	// one mutating round-trip per process lifetime.
	Ensure(ctx context.Context) error

	// Upsert writes one embedded document keyed by id: insert on first
	// write, full replace on subsequent writes with the same id.
	Upsert(ctx context.Context, doc models.EmbeddedDocument) error

	// Get reads back one document by id.
	Get(ctx context.Context, id string) (models.EmbeddedDocument, error)

	// Ping verifies connectivity before a run.
	Ping(ctx context.Context) error
}
