package generate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/llm"
	"reddot-watch/newsdesk/internal/models"
)

// articlePayload is the article document after field-by-field validation.
// Missing or mistyped fields are left empty.
type articlePayload struct {
	Parsed   bool
	Title    string
	Excerpt  string
	Content  string
	Category string
	ImageURL string
	Sources  models.SourceRefs
}

func parseArticlePayload(raw string) articlePayload {
	var doc map[string]any
	if err := llm.DecodeJSON(raw, &doc); err != nil || doc == nil {
		if err != nil {
			log.Debug().Err(err).Msg("Article payload is not structured, using fallbacks")
		}
		return articlePayload{}
	}

	p := articlePayload{Parsed: true}
	p.Title = stringField(doc, "title", "headline")
	p.Excerpt = stringField(doc, "excerpt", "summary", "chapo")
	p.Content = stringField(doc, "content", "body", "text")
	p.Category = strings.ToLower(stringField(doc, "category"))
	p.ImageURL = stringField(doc, "image_url", "image")
	p.Sources = sourcesField(doc["sources"])
	return p
}

func stringField(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := doc[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// sourcesField accepts a list of {name,url,date} objects or bare URL strings.
// Entries without a URL are dropped.
func sourcesField(value any) models.SourceRefs {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	refs := make(models.SourceRefs, 0, len(list))
	for _, entry := range list {
		switch v := entry.(type) {
		case string:
			if url := strings.TrimSpace(v); url != "" {
				refs = append(refs, models.SourceRef{Name: url, URL: url})
			}
		case map[string]any:
			ref := models.SourceRef{
				Name: stringField(v, "name", "source"),
				URL:  stringField(v, "url", "link"),
				Date: stringField(v, "date"),
			}
			if ref.URL == "" {
				continue
			}
			if ref.Name == "" {
				ref.Name = ref.URL
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

var sourcesHeadingRe = regexp.MustCompile(`(?im)^\s*(?:#{1,6}\s*|\*\*)?sources\s*(?:\*\*)?\s*:?\s*(?:\*\*)?\s*$`)

// ensureSourcesSection appends a Sources section listing refs unless the body
// already has one.
func ensureSourcesSection(body string, refs models.SourceRefs) string {
	if sourcesHeadingRe.MatchString(body) {
		return body
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n## Sources\n")
	for _, ref := range refs {
		line := fmt.Sprintf("- [%s](%s)", ref.Name, ref.URL)
		if ref.Date != "" {
			line += " (" + ref.Date + ")"
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
