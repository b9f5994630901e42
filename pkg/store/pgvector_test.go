package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sophie/internal/models"
)

func TestValidateEmbedding(t *testing.T) {
	assert.NoError(t, validateEmbedding(3, []float32{1, 2, 3}))
	assert.ErrorIs(t, validateEmbedding(3, []float32{1, 2}), ErrDimensionMismatch)
	assert.ErrorIs(t, validateEmbedding(3, nil), ErrDimensionMismatch)
}

func TestEnsureSecondCallIsFree(t *testing.T) {
	// pool is nil: any round-trip would panic, so passing proves the
	// ensured guard short-circuits before touching the database.
	vs := &VectorStore{config: VectorStoreConfig{TableName: "documents", VectorDim: 768}}
	vs.ensured = true

	assert.NoError(t, vs.Ensure(context.Background()))
}

func TestUpsertRejectsWrongDimensionBeforeIO(t *testing.T) {
	vs := &VectorStore{config: VectorStoreConfig{TableName: "documents", VectorDim: 768}}

	doc := models.EmbeddedDocument{
		Document:         models.Document{ID: "doc-1"},
		ContentEmbedding: make([]float32, 384),
	}
	err := vs.Upsert(context.Background(), doc)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.ErrorContains(t, err, "doc-1")
}

// The tests below need a live Postgres with the pgvector extension.
func getTestStore(t *testing.T) *VectorStore {
	t.Helper()
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set; skipping live store tests")
	}

	vs, err := NewWithConfig(VectorStoreConfig{
		ConnString: connString,
		TableName:  "test_documents",
		VectorDim:  768,
	})
	require.NoError(t, err)
	t.Cleanup(vs.Close)

	require.NoError(t, vs.Ping(context.Background()))
	require.NoError(t, vs.Ensure(context.Background()))
	return vs
}

func testEmbedding(fill float32) []float32 {
	v := make([]float32, 768)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestUpsertIsIdempotent(t *testing.T) {
	vs := getTestStore(t)
	ctx := context.Background()

	doc := models.EmbeddedDocument{
		Document: models.Document{
			ID:          "idempotency-check",
			SourceURL:   "http://example.com/minutes.pdf",
			SourceType:  models.SourceTypePDFMinutes,
			RetrievedAt: time.Now().UTC().Truncate(time.Microsecond),
			Content:     "first version",
		},
		ContentEmbedding: testEmbedding(0.1),
	}
	require.NoError(t, vs.Upsert(ctx, doc))

	doc.Content = "second version"
	doc.ContentEmbedding = testEmbedding(0.2)
	require.NoError(t, vs.Upsert(ctx, doc))

	stored, err := vs.Get(ctx, "idempotency-check")
	require.NoError(t, err)
	assert.Equal(t, "second version", stored.Content, "same id overwrites, never duplicates")
	assert.Len(t, stored.ContentEmbedding, 768)
	assert.InDelta(t, 0.2, stored.ContentEmbedding[0], 1e-6)
}

func TestGetUnknownID(t *testing.T) {
	vs := getTestStore(t)

	_, err := vs.Get(context.Background(), "no-such-document")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchKeyword(t *testing.T) {
	vs := getTestStore(t)
	ctx := context.Background()

	doc := models.EmbeddedDocument{
		Document: models.Document{
			ID:          "fts-check",
			SourceURL:   "http://example.com/a",
			SourceType:  models.SourceTypeNewsArticle,
			RetrievedAt: time.Now().UTC(),
			Content:     "the zoning committee approved the waterfront proposal",
		},
		ContentEmbedding: testEmbedding(0.3),
	}
	require.NoError(t, vs.Upsert(ctx, doc))

	docs, err := vs.SearchKeyword(ctx, "zoning waterfront", 5)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "fts-check", docs[0].ID)
}
