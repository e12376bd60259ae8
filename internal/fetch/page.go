package fetch

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

// PageMetadata is the title/description/canonical triple of one page.
type PageMetadata struct {
	Title       string
	Description string
	Canonical   string
}

// PageFetcher extracts a single item from an HTML page's metadata.
type PageFetcher struct {
	opts Options
}

// NewPageFetcher creates a single-page fetcher.
func NewPageFetcher(opts Options) *PageFetcher {
	return &PageFetcher{opts: opts.withDefaults()}
}

// Extract downloads pageURL and reads its metadata.
func (p *PageFetcher) Extract(ctx context.Context, pageURL string) (PageMetadata, error) {
	body, final, err := get(ctx, p.opts, pageURL)
	if err != nil {
		return PageMetadata{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PageMetadata{}, errs.Wrap(errs.ErrParse, "parse page", pageURL, err)
	}
	return readMetadata(doc, final), nil
}

// readMetadata prefers Open Graph tags, then the title element and the
// description meta tag. The canonical link wins over the fetched URL.
func readMetadata(doc *goquery.Document, fetchedURL string) PageMetadata {
	meta := PageMetadata{
		Title: firstNonEmpty(
			metaContent(doc, `meta[property="og:title"]`),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			metaContent(doc, `meta[property="og:description"]`),
			metaContent(doc, `meta[name="description"]`),
		),
	}
	meta.Title = strings.Join(strings.Fields(meta.Title), " ")

	meta.Canonical = fetchedURL
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		if canonical, err := CanonicalURL(href, fetchedURL); err == nil {
			meta.Canonical = canonical
		}
	}
	if canonical, err := CanonicalURL(meta.Canonical, ""); err == nil {
		meta.Canonical = canonical
	}
	return meta
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// Fetch returns one entry for a single-page source when a title is found.
func (p *PageFetcher) Fetch(ctx context.Context, src models.Source) ([]Entry, error) {
	meta, err := p.Extract(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	if meta.Title == "" {
		log.Debug().Int64("source_id", src.ID).Str("url", src.URL).Msg("Page has no title, nothing to accept")
		return nil, nil
	}
	return []Entry{{
		URL:     meta.Canonical,
		Title:   meta.Title,
		Excerpt: excerpt(meta.Description),
	}}, nil
}
