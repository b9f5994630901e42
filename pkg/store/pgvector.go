// Package store is the write path of the search index: a Postgres table with
// a pgvector column, provisioned once per process and written by idempotent
// upsert-by-id. The index itself is an external, independently-concurrent
// system; safety under concurrent writers comes from the upsert key, not
// from any lock held here.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/sophie/internal/models"
)

// ErrNotFound is returned by Get for an unknown document id.
var ErrNotFound = errors.New("store: document not found")

// ErrDimensionMismatch rejects a write whose embedding length does not match
// the declared vector column. The document is never truncated or padded.
var ErrDimensionMismatch = errors.New("store: embedding dimension mismatch")

type VectorStoreConfig struct {
	ConnString   string
	TableName    string
	VectorDim    int
	QueryTimeout time.Duration
}

type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool

	mu      sync.Mutex
	ensured bool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.QueryTimeout == 0 {
		config.QueryTimeout = 10 * time.Second
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &VectorStore{
		config: config,
		pool:   pool,
	}, nil
}

// opCtx bounds every round-trip to the database so a stalled server cannot
// hang a sync indefinitely.
func (vs *VectorStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, vs.config.QueryTimeout)
}

// Ping verifies connectivity. A failing ping is fatal for a run: nothing
// can be indexed without the sink.
func (vs *VectorStore) Ping(ctx context.Context) error {
	ctx, cancel := vs.opCtx(ctx)
	defer cancel()

	if err := vs.pool.Ping(ctx); err != nil {
		return fmt.Errorf("could not reach index: %w", err)
	}
	return nil
}

// Ensure provisions the index if absent: the vector extension, the documents
// table, a full-text index over content and a cosine ivfflat index over the
// embedding column. Idempotent, and guarded so repeat calls within one
// process perform no round-trip at all. An existing table is never diffed or
// altered; a shape mismatch surfaces as a write error later.
func (vs *VectorStore) Ensure(ctx context.Context) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.ensured {
		return nil
	}

	for _, stmt := range vs.provisionStatements() {
		if err := vs.exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to provision index %s: %w", vs.config.TableName, err)
		}
	}

	vs.ensured = true
	return nil
}

func (vs *VectorStore) provisionStatements() []string {
	table := vs.config.TableName
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			source_type TEXT NOT NULL,
			retrieved_at TIMESTAMPTZ NOT NULL,
			content TEXT NOT NULL,
			content_embedding vector(%d) NOT NULL
		)`, table, vs.config.VectorDim),
		fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_content_fts_idx
		ON %s
		USING gin (to_tsvector('english', content))`, table, table),
		fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (content_embedding vector_cosine_ops)
		WITH (lists = 100)`, table, table),
	}
}

// Upsert writes one embedded document keyed by id: insert on first write,
// full replace of all non-key fields on any later write with the same id.
func (vs *VectorStore) Upsert(ctx context.Context, doc models.EmbeddedDocument) error {
	if err := validateEmbedding(vs.config.VectorDim, doc.ContentEmbedding); err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source_url, source_type, retrieved_at, content, content_embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			source_type = EXCLUDED.source_type,
			retrieved_at = EXCLUDED.retrieved_at,
			content = EXCLUDED.content,
			content_embedding = EXCLUDED.content_embedding`,
		vs.config.TableName)

	err := vs.exec(ctx, stmt,
		doc.ID,
		doc.SourceURL,
		string(doc.SourceType),
		doc.RetrievedAt,
		doc.Content,
		pgvector.NewVector(doc.ContentEmbedding),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	return nil
}

func (vs *VectorStore) exec(ctx context.Context, stmt string, args ...any) error {
	ctx, cancel := vs.opCtx(ctx)
	defer cancel()

	_, err := vs.pool.Exec(ctx, stmt, args...)
	return err
}

// Get reads back one document by id, embedding included.
func (vs *VectorStore) Get(ctx context.Context, id string) (models.EmbeddedDocument, error) {
	query := fmt.Sprintf(`
		SELECT id, source_url, source_type, retrieved_at, content, content_embedding
		FROM %s
		WHERE id = $1`,
		vs.config.TableName)

	var doc models.EmbeddedDocument
	var sourceType string
	var embedding pgvector.Vector

	ctx, cancel := vs.opCtx(ctx)
	defer cancel()

	err := vs.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.SourceURL,
		&sourceType,
		&doc.RetrievedAt,
		&doc.Content,
		&embedding,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.EmbeddedDocument{}, ErrNotFound
	}
	if err != nil {
		return models.EmbeddedDocument{}, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	doc.SourceType = models.SourceType(sourceType)
	doc.ContentEmbedding = embedding.Slice()
	return doc, nil
}

// Search returns the documents nearest to the query embedding by cosine
// distance.
func (vs *VectorStore) Search(ctx context.Context, embedding []float32, limit int) ([]models.Document, error) {
	if err := validateEmbedding(vs.config.VectorDim, embedding); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, source_url, source_type, retrieved_at, content
		FROM %s
		ORDER BY content_embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	ctx, cancel := vs.opCtx(ctx)
	defer cancel()

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SearchKeyword returns documents matching the query by full-text rank.
func (vs *VectorStore) SearchKeyword(ctx context.Context, keywords string, limit int) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, source_url, source_type, retrieved_at, content
		FROM %s
		WHERE to_tsvector('english', content) @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)) DESC
		LIMIT $2`,
		vs.config.TableName)

	ctx, cancel := vs.opCtx(ctx)
	defer cancel()

	rows, err := vs.pool.Query(ctx, query, keywords, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var sourceType string
		if err := rows.Scan(&doc.ID, &doc.SourceURL, &sourceType, &doc.RetrievedAt, &doc.Content); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		doc.SourceType = models.SourceType(sourceType)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func validateEmbedding(want int, embedding []float32) error {
	if len(embedding) != want {
		return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, want, len(embedding))
	}
	return nil
}
