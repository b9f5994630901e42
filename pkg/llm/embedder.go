package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
)

// TaskRetrievalDocument is the task mode applied to every ingestion
// embedding. nomic-embed-text selects the task by a prefix on the input
// text; ingestion and query-time embeddings must not mix task modes or the
// similarity semantics of the index break.
const TaskRetrievalDocument = "search_document"

// ErrEmptyContent rejects embedding of empty text. An empty-content vector
// is not meaningfully comparable to real content and would pollute
// similarity search.
var ErrEmptyContent = errors.New("llm: cannot embed empty content")

// DimensionError reports a model response whose vector length does not match
// the configured dimension. The vector is never truncated or padded.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("llm: embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// TransientError wraps a transport-level failure of the embedding service.
// Callers may retry; the embedder itself never does.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "llm: transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// EmbedderConfig represents the configuration for the embedding generator.
type EmbedderConfig struct {
	Model     string
	BaseURL   string // Ollama server URL
	Dimension int
	Task      string
	Timeout   time.Duration
}

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder converts document text into a fixed-dimension vector using an
// Ollama-served embedding model.
type Embedder struct {
	config EmbedderConfig
	client embeddingClient
}

func NewWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dimension == 0 {
		config.Dimension = 768
	}
	if config.Task == "" {
		config.Task = TaskRetrievalDocument
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &Embedder{
		config: config,
		client: client,
	}, nil
}

// Dimension returns the contract vector length.
func (e *Embedder) Dimension() int { return e.config.Dimension }

// Embed produces the vector for one document's content. Empty content and
// wrong-length model output are permanent failures; service errors come back
// wrapped as TransientError for the caller to retry with backoff.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	input := []string{e.config.Task + ": " + text}
	vectors, err := e.client.CreateEmbedding(ctx, input)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("llm: expected 1 embedding, got %d", len(vectors))
	}
	if len(vectors[0]) != e.config.Dimension {
		return nil, &DimensionError{Want: e.config.Dimension, Got: len(vectors[0])}
	}
	return vectors[0], nil
}
