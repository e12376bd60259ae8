// Package topic decides whether a discovered title belongs to the site's subject.
package topic

import (
	"strings"

	"reddot-watch/newsdesk/internal/textutil"
)

// DefaultKeywords match Paris Saint-Germain coverage.
var DefaultKeywords = []string{
	"psg",
	"paris sg",
	"paris saint-germain",
	"paris saint germain",
	"parc des princes",
}

// IsOnTopic reports whether title contains at least one keyword. The check is
// case-insensitive and ignores diacritics.
func IsOnTopic(title string, keywords []string) bool {
	folded := textutil.Fold(title)
	if strings.TrimSpace(folded) == "" {
		return false
	}
	for _, kw := range keywords {
		kw = strings.TrimSpace(textutil.Fold(kw))
		if kw != "" && strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// DefaultAliases map alternative club names to one token for title comparison.
var DefaultAliases = map[string]string{
	"paris saint-germain": "psg",
	"paris saint germain": "psg",
	"paris sg":            "psg",
}
