package dedupe

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Similarity weights. URL equality dominates because the normalized URL is
// the identity anchor; title and description tolerate rewording.
const (
	urlWeight   = 0.5
	titleWeight = 0.3
	descWeight  = 0.2
)

// Similarity scores how likely two records describe the same content,
// in [0,1]. Each text component blends a token-set (Jaccard) score with a
// normalized edit-distance score, so both word reordering and minor
// character-level edits are tolerated. Symmetric in its arguments.
func Similarity(aURL, aTitle, aDesc, bURL, bTitle, bDesc string) float64 {
	var urlScore float64
	if aURL != "" && aURL == bURL {
		urlScore = 1.0
	}

	return urlWeight*urlScore +
		titleWeight*textSimilarity(aTitle, bTitle) +
		descWeight*textSimilarity(aDesc, bDesc)
}

// textSimilarity averages Jaccard token overlap and Levenshtein similarity
// over canonicalized text.
func textSimilarity(a, b string) float64 {
	a = canonicalText(a)
	b = canonicalText(b)
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}

	jaccard := tokenJaccard(a, b)
	edit := levenshtein.Similarity(a, b, nil)
	return (jaccard + edit) / 2
}

// canonicalText applies NFKC normalization, lowercases, strips punctuation,
// and collapses whitespace.
func canonicalText(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenJaccard computes |A∩B| / |A∪B| over whitespace-separated tokens.
func tokenJaccard(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 && len(bTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range aTokens {
		if bTokens[tok] {
			intersection++
		}
	}
	union := len(aTokens) + len(bTokens) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
