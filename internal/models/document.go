package models

import "time"

// SourceType tags the origin kind of a document.
type SourceType string

const (
	SourceTypePDFMinutes  SourceType = "PDF_Minutes"
	SourceTypeNewsArticle SourceType = "News_Article"
)

// Document is the unit of ingestion: one normalized record produced by a
// source adapter. The ID is stable across re-syncs of the same logical
// document (source URL for PDFs, feed entry id for articles) and is the sole
// deduplication key in the index.
type Document struct {
	ID          string
	SourceURL   string
	SourceType  SourceType
	RetrievedAt time.Time
	Content     string
}

// EmbeddedDocument is a Document after the embedding step. ContentEmbedding
// always has exactly the dimension declared by the index schema.
type EmbeddedDocument struct {
	Document
	ContentEmbedding []float32
}

// Batch is an ordered, non-empty set of documents from a single adapter run.
// Document order within a batch is the order the adapter produced them.
type Batch struct {
	ID        string
	Source    string
	Documents []Document
}

// Failure records one adapter-level or document-level error without aborting
// sibling work. DocumentID is empty for adapter-level failures.
type Failure struct {
	Source     string
	DocumentID string
	Err        error
}

func (f Failure) Error() string {
	if f.DocumentID != "" {
		return f.Source + ": document " + f.DocumentID + ": " + f.Err.Error()
	}
	return f.Source + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error { return f.Err }
