package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/pkg/cursor"
	"github.com/xhad/sophie/pkg/source"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Civic News</title>
    <item>
      <guid>entry-1</guid>
      <title>Budget approved</title>
      <link>https://news.example.com/budget</link>
      <description><![CDATA[<p>The city &amp; county budget passed.</p>]]></description>
      <pubDate>Fri, 17 Oct 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <guid>entry-2</guid>
      <title>Road closures</title>
      <link>https://news.example.com/roads</link>
      <description>Main street closed next week.</description>
      <pubDate>Sat, 18 Oct 2025 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Civic News</title></channel></rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
}

func TestRSSFetch(t *testing.T) {
	server := serveFeed(t, testFeed)
	defer server.Close()

	a := source.NewRSSAdapter(source.RSSConfig{URL: server.URL})
	docs, next, err := a.Fetch(context.Background(), cursor.Source{})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	first := docs[0]
	assert.Equal(t, "entry-1", first.ID)
	assert.Equal(t, "https://news.example.com/budget", first.SourceURL)
	assert.Equal(t, models.SourceTypeNewsArticle, first.SourceType)
	assert.Equal(t, "Budget approved\n\nThe city & county budget passed.", first.Content)

	assert.Equal(t, "entry-2", docs[1].ID)
	assert.Equal(t, "Road closures\n\nMain street closed next week.", docs[1].Content)

	wantNewest := time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)
	assert.True(t, next.LastPublished.Equal(wantNewest), "cursor advances to the newest entry")
}

func TestRSSFetchIncremental(t *testing.T) {
	server := serveFeed(t, testFeed)
	defer server.Close()

	a := source.NewRSSAdapter(source.RSSConfig{URL: server.URL})
	cur := cursor.Source{LastPublished: time.Date(2025, 10, 17, 10, 0, 0, 0, time.UTC)}

	docs, next, err := a.Fetch(context.Background(), cur)
	require.NoError(t, err)
	require.Len(t, docs, 1, "entries at or before the watermark are filtered")
	assert.Equal(t, "entry-2", docs[0].ID)
	assert.True(t, next.LastPublished.After(cur.LastPublished))
}

func TestRSSFetchEmptyFeed(t *testing.T) {
	server := serveFeed(t, emptyFeed)
	defer server.Close()

	a := source.NewRSSAdapter(source.RSSConfig{URL: server.URL})
	docs, next, err := a.Fetch(context.Background(), cursor.Source{})

	require.NoError(t, err, "an empty feed is a valid outcome")
	assert.Empty(t, docs)
	assert.False(t, next.LastSync.IsZero())
}

func TestRSSFetchMalformed(t *testing.T) {
	server := serveFeed(t, "this is not a feed")
	defer server.Close()

	a := source.NewRSSAdapter(source.RSSConfig{URL: server.URL})
	prior := cursor.Source{ETag: `"old"`}

	docs, next, err := a.Fetch(context.Background(), prior)
	assert.Error(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, prior, next)
}
