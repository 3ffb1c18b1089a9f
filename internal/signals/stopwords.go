package signals

// Stopwords is a set of common words to exclude from tokenization
var Stopwords = map[string]bool{
	// Articles and conjunctions
	"the": true, "a": true, "an": true, "and": true, "but": true, "so": true, "or": true, "if": true,

	// Prepositions
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"at": true, "by": true, "from": true, "as": true,

	// Pronouns
	"it": true, "this": true, "that": true,
	"we": true, "i": true, "me": true, "my": true, "you": true, "your": true,

	// Be verbs
	"is": true, "was": true, "were": true, "am": true, "are": true, "be": true,
}

// IsStopword checks if a word is a stopword
func IsStopword(word string) bool {
	return Stopwords[word]
}
