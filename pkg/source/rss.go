package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/pkg/cursor"
	"github.com/xhad/sophie/pkg/processor"
)

// RSSConfig configures one news feed source.
type RSSConfig struct {
	URL     string
	Fetcher FetcherConfig
}

// RSSAdapter fetches a feed and yields one normalized record per entry newer
// than the cursor's published-time watermark. An empty feed is a valid
// zero-document outcome, not an error.
type RSSAdapter struct {
	config RSSConfig
	fetch  *fetcher
	parser *gofeed.Parser
	clean  processor.Processor
}

func NewRSSAdapter(config RSSConfig) *RSSAdapter {
	return &RSSAdapter{
		config: config,
		fetch:  newFetcher(config.Fetcher),
		parser: gofeed.NewParser(),
		clean:  processor.NewWithConfig(processor.Config{}),
	}
}

func (a *RSSAdapter) Name() string { return a.config.URL }

func (a *RSSAdapter) Type() models.SourceType { return models.SourceTypeNewsArticle }

func (a *RSSAdapter) Fetch(ctx context.Context, cur cursor.Source) ([]models.Document, cursor.Source, error) {
	res, err := a.fetch.get(ctx, a.config.URL, cur.ETag, cur.LastModified)
	if err != nil {
		return nil, cur, fmt.Errorf("fetch %s: %w", a.config.URL, err)
	}

	now := time.Now().UTC()

	if res.NotModified {
		cur.LastSync = now
		return nil, cur, nil
	}

	feed, err := a.parser.ParseString(string(res.Body))
	if err != nil {
		return nil, cur, fmt.Errorf("parse %s: %w", a.config.URL, err)
	}

	var docs []models.Document
	newest := cur.LastPublished

	for _, item := range feed.Items {
		published := publishedTime(item)

		// Incremental sync: entries at or before the watermark were
		// ingested on a previous run. Entries without a timestamp are
		// always taken; upsert-by-id makes the re-ingest harmless.
		if published != nil && !cur.LastPublished.IsZero() && !published.After(cur.LastPublished) {
			continue
		}

		id := strings.TrimSpace(item.GUID)
		if id == "" {
			id = strings.TrimSpace(item.Link)
		}
		if id == "" {
			// Nothing stable to key the record on.
			continue
		}

		sourceURL := item.Link
		if sourceURL == "" {
			sourceURL = a.config.URL
		}

		docs = append(docs, models.Document{
			ID:          id,
			SourceURL:   sourceURL,
			SourceType:  models.SourceTypeNewsArticle,
			RetrievedAt: now,
			Content:     a.entryContent(item),
		})

		if published != nil && published.After(newest) {
			newest = *published
		}
	}

	next := cursor.Source{
		LastSync:      now,
		LastPublished: newest,
		ETag:          res.ETag,
		LastModified:  res.LastModified,
	}
	return docs, next, nil
}

// entryContent joins title and summary, title first with a blank-line
// separator. The ordering keeps the indexed text readable and is relied on
// by keyword search over the content field.
func (a *RSSAdapter) entryContent(item *gofeed.Item) string {
	title := a.clean.Clean(item.Title)

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	summary = a.clean.Clean(stripHTML(summary))

	switch {
	case title == "":
		return summary
	case summary == "":
		return title
	default:
		return title + "\n\n" + summary
	}
}

// stripHTML reduces feed summary markup to its text, decoding entities.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

func publishedTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}
