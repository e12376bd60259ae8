package textutil

import "strings"

// DefaultSlugLength bounds generated slugs.
const DefaultSlugLength = 80

// Slugify lower-cases, strips diacritics and collapses every run of characters
// outside [a-z0-9] into a single hyphen. The result is truncated to maxLen bytes
// (DefaultSlugLength when maxLen <= 0). Returns "article" when nothing remains.
func Slugify(value string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSlugLength
	}
	folded := Fold(value)

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	slug := b.String()
	if len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "article"
	}
	return slug
}
