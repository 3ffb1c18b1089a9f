package signals

import (
	"regexp"
	"strings"
)

// wordRegex matches runs of letters, keeping apostrophes inside contractions
var wordRegex = regexp.MustCompile(`[A-Za-z']+`)

// Tokenize lowercases text and returns its words in order, dropping
// stopwords and anything shorter than three characters
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < 3 {
			continue
		}
		if IsStopword(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// TokenSet returns the distinct tokens of text
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range Tokenize(text) {
		set[token] = struct{}{}
	}
	return set
}

// ExtractTerms returns the top N tokens of text by frequency, ties by first appearance
func ExtractTerms(text string, maxTerms int) []string {
	counts := NewCounter()
	for _, token := range Tokenize(text) {
		counts.Add(token, 1)
	}

	var result []string
	for _, tc := range counts.MostCommon(maxTerms) {
		result = append(result, tc.Key)
	}
	return result
}
