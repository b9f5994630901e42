package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/pkg/cursor"
)

func TestPDFFetchPreservesPageOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"rev-1"`)
		w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer server.Close()

	a := NewPDFAdapter(PDFConfig{URL: server.URL})
	a.extract = func(data []byte) ([]string, error) {
		return []string{"A", "B", "C"}, nil
	}

	docs, next, err := a.Fetch(context.Background(), cursor.Source{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, server.URL, docs[0].ID)
	assert.Equal(t, server.URL, docs[0].SourceURL)
	assert.Equal(t, models.SourceTypePDFMinutes, docs[0].SourceType)
	assert.Equal(t, "ABC", docs[0].Content)
	assert.False(t, docs[0].RetrievedAt.IsZero())

	assert.Equal(t, `"rev-1"`, next.ETag)
	assert.False(t, next.LastSync.IsZero())
}

func TestPDFFetchNotModified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"rev-1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer server.Close()

	a := NewPDFAdapter(PDFConfig{URL: server.URL})
	a.extract = func(data []byte) ([]string, error) {
		t.Fatal("extract must not run on a 304 response")
		return nil, nil
	}

	docs, next, err := a.Fetch(context.Background(), cursor.Source{ETag: `"rev-1"`})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, `"rev-1"`, next.ETag, "validators survive an unchanged fetch")
}

func TestPDFFetchFailuresLeaveCursorAlone(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		extract func([]byte) ([]string, error)
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			extract: func([]byte) ([]string, error) { return []string{"x"}, nil },
		},
		{
			name: "malformed pdf",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not a pdf"))
			},
			extract: func([]byte) ([]string, error) { return nil, fmt.Errorf("pdfcpu read: broken") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			a := NewPDFAdapter(PDFConfig{URL: server.URL})
			a.extract = tt.extract

			prior := cursor.Source{ETag: `"old"`}
			docs, next, err := a.Fetch(context.Background(), prior)
			assert.Error(t, err)
			assert.Empty(t, docs)
			assert.Equal(t, prior, next)
		})
	}
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n(Hello) Tj\n[(Wo) -20 (rld)] TJ\nT*\n(Next line) Tj\nET")
	assert.Equal(t, "HelloWorld\nNext line", textFromContentStream(stream))
}

func TestUnescapePDF(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`paren \( and \)`, "paren ( and )"},
		{`tab\there`, "tab\there"},
		{`\110i`, "Hi"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, unescapePDF([]byte(tt.in)))
		})
	}
}
