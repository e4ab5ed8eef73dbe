package engine

import (
	"strings"
)

// Deterministic text transforms used by the regeneration cascade when
// rephrasing via the model fails. All are pure functions of their input.

type transform struct {
	name  string
	apply func(string) string
}

var transforms = []transform{
	{name: "synonym-swap", apply: synonymSwap},
	{name: "sentence-rotate", apply: sentenceRotate},
	{name: "expand-contractions", apply: expandContractions},
	{name: "replace-opener", apply: replaceOpener},
}

// synonyms pairs common words with substitutes of similar register.
var synonyms = [][2]string{
	{"great", "excellent"},
	{"good", "solid"},
	{"bad", "poor"},
	{"big", "large"},
	{"small", "modest"},
	{"really", "genuinely"},
	{"very", "quite"},
	{"sure", "certain"},
	{"happy", "glad"},
	{"interesting", "intriguing"},
	{"important", "significant"},
	{"also", "additionally"},
	{"but", "though"},
	{"maybe", "perhaps"},
}

func replaceWord(text, from, to string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		stripped := strings.Trim(f, ".,!?;:")
		if strings.EqualFold(stripped, from) {
			replacement := to
			if len(stripped) > 0 && stripped[0] >= 'A' && stripped[0] <= 'Z' {
				replacement = strings.ToUpper(to[:1]) + to[1:]
			}
			fields[i] = strings.Replace(f, stripped, replacement, 1)
		}
	}
	return strings.Join(fields, " ")
}

func synonymSwap(text string) string {
	for _, pair := range synonyms {
		text = replaceWord(text, pair[0], pair[1])
	}
	return text
}

// sentenceRotate moves the first sentence to the end. Single-sentence text
// is returned unchanged.
func sentenceRotate(text string) string {
	sentences := splitSentences(text)
	if len(sentences) < 2 {
		return text
	}
	rotated := append(sentences[1:], sentences[0])
	return strings.Join(rotated, " ")
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			end := i + 1
			for end < len(text) && (text[end] == '.' || text[end] == '!' || text[end] == '?') {
				end++
			}
			s := strings.TrimSpace(text[start:end])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = end
			i = end - 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

var contractions = [][2]string{
	{"don't", "do not"},
	{"doesn't", "does not"},
	{"didn't", "did not"},
	{"can't", "cannot"},
	{"won't", "will not"},
	{"isn't", "is not"},
	{"aren't", "are not"},
	{"it's", "it is"},
	{"that's", "that is"},
	{"there's", "there is"},
	{"I'm", "I am"},
	{"I'll", "I will"},
	{"I've", "I have"},
	{"you're", "you are"},
	{"you'll", "you will"},
	{"we're", "we are"},
	{"they're", "they are"},
}

func expandContractions(text string) string {
	for _, pair := range contractions {
		text = strings.ReplaceAll(text, pair[0], pair[1])
		// Capitalized variants at sentence starts.
		capFrom := strings.ToUpper(pair[0][:1]) + pair[0][1:]
		capTo := strings.ToUpper(pair[1][:1]) + pair[1][1:]
		text = strings.ReplaceAll(text, capFrom, capTo)
	}
	return text
}

// openers are phrases that commonly start replies; swapping them shifts
// the reply's fingerprint without touching its substance.
var openers = [][2]string{
	{"I think ", "My take is "},
	{"Well, ", "So, "},
	{"Sure, ", "Of course, "},
	{"Honestly, ", "Frankly, "},
	{"Yes, ", "Indeed, "},
	{"No, ", "Not really, "},
}

func replaceOpener(text string) string {
	for _, pair := range openers {
		if strings.HasPrefix(text, pair[0]) {
			return pair[1] + text[len(pair[0]):]
		}
	}
	return "Put differently: " + text
}
