// Package fetch retrieves candidate items from feeds, single pages and
// operator-submitted URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

const (
	DefaultUserAgent = "newsdesk/1.0 (+https://github.com/reddot-watch/newsdesk)"
	DefaultTimeout   = 8 * time.Second
	DefaultMaxAge    = 48 * time.Hour

	maxBodyBytes     = 5 << 20
	maxExcerptLength = 300
)

// Options configures outbound requests.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// MaxAge is the recency window of the feed health check.
	MaxAge time.Duration
	Client *http.Client
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	return o
}

// Entry is a normalized candidate item extracted from a source.
type Entry struct {
	URL         string
	Title       string
	PublishedAt *time.Time
	Excerpt     string
	RawBody     string
}

// SourceFetcher produces entries for one registered source.
type SourceFetcher interface {
	Fetch(ctx context.Context, src models.Source) ([]Entry, error)
}

// get performs a bounded GET and returns the body and the final URL after redirects.
func get(ctx context.Context, opts Options, target string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrFetch, "fetch", "invalid request", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/html;q=0.9, */*;q=0.8")

	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrFetch, "fetch", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", errs.Wrap(errs.ErrFetch, "fetch", fmt.Sprintf("%s: http %d", target, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrFetch, "fetch", "read body", err)
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return body, final, nil
}

var tagRe = regexp.MustCompile(`(?s)<[^>]*>`)

// stripHTML removes markup and collapses whitespace.
func stripHTML(value string) string {
	if value == "" {
		return ""
	}
	text := tagRe.ReplaceAllString(value, " ")
	return strings.Join(strings.Fields(text), " ")
}

// excerpt returns a plain-text prefix of value of at most maxExcerptLength runes.
func excerpt(value string) string {
	text := stripHTML(value)
	if utf8.RuneCountInString(text) <= maxExcerptLength {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxExcerptLength])
	if i := strings.LastIndex(cut, " "); i > maxExcerptLength/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the date formats seen in syndication feeds. It returns nil
// when nothing matches.
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t := parsed.UTC()
			return &t
		}
	}
	return nil
}
