// Package similarity provides the content hashing and token-overlap
// primitives shared by the response history store and the regeneration
// cascade.
package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Hash returns the hex SHA-256 digest of text, used for exact-duplicate
// detection.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Tokens normalizes text into a set of lowercase tokens. Punctuation is
// stripped and whitespace collapsed before splitting; duplicates collapse
// into the set.
func Tokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenList(text) {
		set[tok] = struct{}{}
	}
	return set
}

// TokenCount returns how many tokens text normalizes to, duplicates
// included. Callers use it to skip overlap analysis on very short texts.
func TokenCount(text string) int {
	return len(tokenList(text))
}

// tokenList is the ordered variant of Tokens, used by the phrase detector.
func tokenList(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation is dropped entirely.
	}
	return strings.Fields(b.String())
}

// Jaccard returns |A∩B| / |A∪B| over the normalized token sets of a and b.
// Returns 0.0 when either set is empty. Symmetric, and 1.0 for identical
// non-empty inputs.
func Jaccard(a, b string) float64 {
	sa := Tokens(a)
	sb := Tokens(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range sa {
		if _, ok := sb[tok]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

const (
	minTokensForAnalysis = 3
	maxPhraseFindings    = 3
)

// InternalRepetition flags repetition patterns within a single text: words
// longer than three characters appearing twice or more, and repeated two- or
// three-word phrases longer than six characters. Findings are advisory
// strings; an empty result means no repetition was detected. Texts shorter
// than three tokens are skipped.
func InternalRepetition(text string) []string {
	words := tokenList(text)
	if len(words) < minTokensForAnalysis {
		return nil
	}

	var findings []string

	wordCount := make(map[string]int)
	order := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 3 {
			continue
		}
		if wordCount[w] == 0 {
			order = append(order, w)
		}
		wordCount[w]++
	}
	var repeated []string
	for _, w := range order {
		if wordCount[w] >= 2 {
			repeated = append(repeated, w)
		}
	}
	if len(repeated) > 0 {
		findings = append(findings, fmt.Sprintf("repeated words: %s", strings.Join(repeated, ", ")))
	}

	for _, phraseLen := range []int{2, 3} {
		if len(words) < phraseLen*2 {
			continue
		}
		phraseCount := make(map[string]int)
		phraseOrder := make([]string, 0, len(words))
		for i := 0; i+phraseLen <= len(words); i++ {
			phrase := strings.Join(words[i:i+phraseLen], " ")
			if len(phrase) <= 6 {
				continue
			}
			if phraseCount[phrase] == 0 {
				phraseOrder = append(phraseOrder, phrase)
			}
			phraseCount[phrase]++
		}
		count := 0
		for _, p := range phraseOrder {
			if phraseCount[p] >= 2 {
				findings = append(findings, fmt.Sprintf("repeated %d-word phrase: %q", phraseLen, p))
				count++
				if count >= maxPhraseFindings {
					break
				}
			}
		}
	}

	return findings
}
