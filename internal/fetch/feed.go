package fetch

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

// FeedFetcher reads syndication feeds. The body is downloaded once and parsing
// degrades in three stages: gofeed over the raw body, gofeed again with stray
// markup escaped, then a regex extractor over the raw text. No stage filters
// entries by date; undated entries keep a nil PublishedAt.
type FeedFetcher struct {
	opts Options
}

// NewFeedFetcher creates a feed fetcher.
func NewFeedFetcher(opts Options) *FeedFetcher {
	return &FeedFetcher{opts: opts.withDefaults()}
}

// Fetch returns the normalized entries of a feed source. Entries without a
// usable URL or title are dropped individually.
func (f *FeedFetcher) Fetch(ctx context.Context, src models.Source) ([]Entry, error) {
	logger := log.With().Int64("source_id", src.ID).Str("url", src.URL).Logger()

	body, _, err := get(ctx, f.opts, src.URL)
	if err != nil {
		return nil, err
	}

	entries, err := parseFeed(body)
	if err == nil {
		return normalizeEntries(entries, src.URL), nil
	}
	logger.Debug().Err(err).Msg("Strict feed parse failed, retrying leniently")

	entries, err = parseLenient(body)
	if err == nil {
		return normalizeEntries(entries, src.URL), nil
	}
	logger.Debug().Err(err).Msg("Lenient feed parse failed, extracting entries from raw text")

	entries = extractEntries(string(body))
	if len(entries) == 0 {
		return nil, errs.Wrap(errs.ErrParse, "parse feed", src.URL, err)
	}
	logger.Info().Int("entries", len(entries)).Msg("Recovered feed entries with regex extractor")
	return normalizeEntries(entries, src.URL), nil
}

// parseFeed parses body as RSS, Atom or JSON Feed.
func parseFeed(body []byte) ([]Entry, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feedEntries(feed), nil
}

// feedEntries converts every item of feed. Dates gofeed could not parse get a
// second chance with parseTime and are left nil otherwise.
func feedEntries(feed *gofeed.Feed) []Entry {
	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		e := Entry{
			URL:     item.Link,
			Title:   html.UnescapeString(item.Title),
			Excerpt: item.Description,
			RawBody: firstNonEmpty(item.Content, item.Description),
		}
		if e.URL == "" && len(item.Links) > 0 {
			e.URL = item.Links[0]
		}
		switch {
		case item.PublishedParsed != nil:
			t := item.PublishedParsed.UTC()
			e.PublishedAt = &t
		case item.UpdatedParsed != nil:
			t := item.UpdatedParsed.UTC()
			e.PublishedAt = &t
		default:
			e.PublishedAt = parseTime(firstNonEmpty(item.Published, item.Updated))
		}
		entries = append(entries, e)
	}
	return entries
}

func normalizeEntries(entries []Entry, base string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		canonical, err := CanonicalURL(e.URL, base)
		if err != nil {
			log.Debug().Err(err).Str("base", base).Msg("Dropping feed entry with invalid URL")
			continue
		}
		e.URL = canonical
		e.Title = stripHTML(e.Title)
		if e.Title == "" {
			log.Debug().Str("url", canonical).Msg("Dropping feed entry without title")
			continue
		}
		if e.Excerpt == "" {
			e.Excerpt = excerpt(e.RawBody)
		} else {
			e.Excerpt = excerpt(e.Excerpt)
		}
		out = append(out, e)
	}
	return out
}
