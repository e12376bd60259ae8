package textutil

import (
	"math"
	"sort"
	"strings"
)

// TitleSimilarity scores two titles on a 0-100 scale after canonicalisation.
func TitleSimilarity(a, b string, aliases *Aliases) int {
	return TokenSetRatio(TitleTokens(a, aliases), TitleTokens(b, aliases))
}

// MinSharedTokens is the number of common tokens needed before the shared
// tokens alone are compared with each title. Below it a short title whose
// tokens all appear in a longer one ("Mercato PSG") does not score 100.
const MinSharedTokens = 3

// TokenSetRatio compares two token lists as sets. Returns 0 when either side is
// empty. Titles sharing fewer than MinSharedTokens tokens are only compared
// as sorted wholes.
func TokenSetRatio(a, b []string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var shared, onlyA, onlyB []string
	for token := range setA {
		if _, ok := setB[token]; ok {
			shared = append(shared, token)
		} else {
			onlyA = append(onlyA, token)
		}
	}
	for token := range setB {
		if _, ok := setA[token]; !ok {
			onlyB = append(onlyB, token)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := Ratio(combinedA, combinedB)
	if len(shared) < MinSharedTokens {
		return best
	}
	if r := Ratio(sect, combinedA); r > best {
		best = r
	}
	if r := Ratio(sect, combinedB); r > best {
		best = r
	}
	return best
}

// Ratio is the indel similarity of two strings: 2*LCS / (len(a)+len(b)),
// scaled to 0-100 and rounded.
func Ratio(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := longestCommonSubsequence(ra, rb)
	return int(math.Round(100 * float64(2*lcs) / float64(total)))
}

func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}
