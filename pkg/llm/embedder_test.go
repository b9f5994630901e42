package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	lastInput []string
	vectors   [][]float32
	err       error
}

func (f *fakeClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.lastInput = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func makeVector(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(i) * 0.01
	}
	return v
}

func testEmbedder(client embeddingClient) *Embedder {
	return &Embedder{
		config: EmbedderConfig{
			Model:     "nomic-embed-text:latest",
			Dimension: 768,
			Task:      TaskRetrievalDocument,
		},
		client: client,
	}
}

func TestEmbed(t *testing.T) {
	client := &fakeClient{vectors: [][]float32{makeVector(768)}}
	e := testEmbedder(client)

	vec, err := e.Embed(context.Background(), "city council meeting notes")
	require.NoError(t, err)
	assert.Len(t, vec, 768)

	require.Len(t, client.lastInput, 1)
	assert.Equal(t, "search_document: city council meeting notes", client.lastInput[0],
		"ingestion embeddings always carry the retrieval-document task prefix")
}

func TestEmbedRejectsEmptyContent(t *testing.T) {
	e := testEmbedder(&fakeClient{vectors: [][]float32{makeVector(768)}})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := e.Embed(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyContent)
	}
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	e := testEmbedder(&fakeClient{vectors: [][]float32{makeVector(384)}})

	_, err := e.Embed(context.Background(), "some content")
	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 768, dimErr.Want)
	assert.Equal(t, 384, dimErr.Got)
	assert.False(t, IsTransient(err), "a dimension mismatch must not be retried")
}

func TestEmbedWrapsServiceErrorsAsTransient(t *testing.T) {
	e := testEmbedder(&fakeClient{err: fmt.Errorf("connection refused")})

	_, err := e.Embed(context.Background(), "some content")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestNewWithConfigDefaults(t *testing.T) {
	e, err := NewWithConfig(EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())
	assert.Equal(t, "nomic-embed-text:latest", e.config.Model)
	assert.Equal(t, TaskRetrievalDocument, e.config.Task)
}
