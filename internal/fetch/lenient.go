package fetch

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

// escapeStrayMarkup escapes '&' that does not start an entity and '<' that
// cannot start a tag. CDATA sections are copied unchanged.
func escapeStrayMarkup(body string) string {
	var b strings.Builder
	b.Grow(len(body) + 64)

	for i := 0; i < len(body); {
		if strings.HasPrefix(body[i:], "<![CDATA[") {
			end := strings.Index(body[i:], "]]>")
			if end < 0 {
				b.WriteString(body[i:])
				break
			}
			b.WriteString(body[i : i+end+3])
			i += end + 3
			continue
		}

		c := body[i]
		switch {
		case c == '&' && !entityAt(body[i:]):
			b.WriteString("&amp;")
		case c == '<' && strayLessThan(body[i+1:]):
			b.WriteString("&lt;")
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String()
}

var entityRe = regexp.MustCompile(`^&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)

func entityAt(s string) bool {
	return entityRe.MatchString(s)
}

func strayLessThan(rest string) bool {
	if rest == "" {
		return true
	}
	switch c := rest[0]; {
	case c == ' ', c == '\t', c == '\n', c == '\r', c == '=', c == '<':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	return false
}

// parseLenient escapes stray markup and parses the result with gofeed.
func parseLenient(body []byte) ([]Entry, error) {
	feed, err := gofeed.NewParser().ParseString(escapeStrayMarkup(string(body)))
	if err != nil {
		return nil, fmt.Errorf("lenient parse: %w", err)
	}
	return feedEntries(feed), nil
}

var (
	entryBlockRe = regexp.MustCompile(`(?is)<(?:item|entry)\b[^>]*>(.*?)</(?:item|entry)>`)
	linkHrefRe   = regexp.MustCompile(`(?is)<link\b[^>]*\bhref\s*=\s*["']([^"']+)["']`)
	cdataRe      = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	titleTags       = []string{"title"}
	linkTags        = []string{"link", "guid"}
	dateTags        = []string{"pubDate", "published", "updated", "dc:date"}
	descriptionTags = []string{"description", "summary", "content:encoded", "content"}

	tagPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, group := range [][]string{titleTags, linkTags, dateTags, descriptionTags} {
		for _, tag := range group {
			quoted := regexp.QuoteMeta(tag)
			tagPatterns[tag] = regexp.MustCompile(`(?is)<` + quoted + `(?:\s[^>]*)?>(.*?)</` + quoted + `\s*>`)
		}
	}
}

// extractEntries recovers title/link/date/description tuples from raw feed
// text without an XML parser.
func extractEntries(raw string) []Entry {
	var entries []Entry
	for _, block := range entryBlockRe.FindAllStringSubmatch(raw, -1) {
		body := block[1]

		e := Entry{Title: cleanText(firstTag(body, titleTags))}
		if m := linkHrefRe.FindStringSubmatch(body); m != nil {
			e.URL = html.UnescapeString(strings.TrimSpace(m[1]))
		}
		if e.URL == "" {
			e.URL = cleanText(firstTag(body, linkTags))
		}
		e.PublishedAt = parseTime(cleanText(firstTag(body, dateTags)))
		desc := unwrapCDATA(firstTag(body, descriptionTags))
		e.RawBody = html.UnescapeString(desc)
		e.Excerpt = e.RawBody

		if e.Title == "" || e.URL == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func firstTag(body string, tags []string) string {
	for _, tag := range tags {
		if m := tagPatterns[tag].FindStringSubmatch(body); m != nil && strings.TrimSpace(m[1]) != "" {
			return m[1]
		}
	}
	return ""
}

func unwrapCDATA(value string) string {
	return cdataRe.ReplaceAllString(value, "$1")
}

func cleanText(value string) string {
	return html.UnescapeString(stripHTML(unwrapCDATA(value)))
}
