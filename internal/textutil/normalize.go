package textutil

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks ("à" becomes "a"). Characters that do
// not decompose are kept as they are.
func StripDiacritics(value string) string {
	if value == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Fold lower-cases and strips diacritics.
func Fold(value string) string {
	return StripDiacritics(strings.ToLower(value))
}

// Tokenize folds text and splits it on every non letter/digit rune.
func Tokenize(value string) []string {
	return strings.FieldsFunc(Fold(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

type aliasPair struct {
	phrase    string
	canonical string
}

// Aliases rewrites multi-word entity names to a single canonical token before
// titles are compared ("paris saint germain" becomes "psg").
type Aliases struct {
	pairs []aliasPair
}

// NewAliases builds an alias table from phrase -> canonical pairs. Both sides are
// tokenized, so "Paris Saint-Germain" and "paris saint germain" are equivalent.
func NewAliases(table map[string]string) *Aliases {
	pairs := make([]aliasPair, 0, len(table))
	for phrase, canonical := range table {
		p := strings.Join(Tokenize(phrase), " ")
		c := strings.Join(Tokenize(canonical), " ")
		if p == "" || c == "" || p == c {
			continue
		}
		pairs = append(pairs, aliasPair{phrase: p, canonical: c})
	}
	// Longest phrase first so "paris saint germain" wins over "paris".
	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].phrase) != len(pairs[j].phrase) {
			return len(pairs[i].phrase) > len(pairs[j].phrase)
		}
		return pairs[i].phrase < pairs[j].phrase
	})
	return &Aliases{pairs: pairs}
}

// Apply rewrites aliases inside an already tokenized, space-joined string.
func (a *Aliases) Apply(joined string) string {
	if a == nil || len(a.pairs) == 0 || joined == "" {
		return joined
	}
	padded := " " + joined + " "
	for _, pair := range a.pairs {
		padded = strings.ReplaceAll(padded, " "+pair.phrase+" ", " "+pair.canonical+" ")
	}
	return strings.TrimSpace(padded)
}

// TitleTokens returns the canonical token list used for similarity scoring.
func TitleTokens(title string, aliases *Aliases) []string {
	joined := strings.Join(Tokenize(title), " ")
	return strings.Fields(aliases.Apply(joined))
}
