// Package textutil provides text normalisation shared by the topic filter, the
// clusterer and the content generator.
//
// The primary use cases are:
//   - Folding titles to lower-case ASCII-friendly text without diacritics
//   - Canonicalising known entity aliases before comparison
//   - Scoring near-duplicate titles on a 0-100 scale
//   - Building URL slugs
//
// Similarity follows the token-set ratio: both titles are reduced to sorted
// token sets and the best indel ratio between the shared tokens and each side's
// remainder wins, so a short headline fully contained in a longer one still
// scores high.
package textutil
