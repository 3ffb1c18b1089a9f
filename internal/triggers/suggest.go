package triggers

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

// Definition limits
const (
	MinNameLength = 2
	MaxNameLength = 60
	MaxWords      = 10
	MaxWordLength = 30

	DefaultSuggestLimit = 5
)

// ErrInvalidTrigger wraps every definition validation failure
var ErrInvalidTrigger = errors.New("invalid trigger")

// Suggestion is a candidate trigger word and the number of entries using it
type Suggestion struct {
	Word    string `json:"word"`
	Entries int    `json:"entries"`
}

// Suggest ranks tokens by how many entries contain them. Each token counts
// once per entry; ties keep first appearance.
func Suggest(entries []models.JournalEntry, limit int) []Suggestion {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	counts := signals.NewCounter()
	for _, entry := range entries {
		seen := make(map[string]bool)
		for _, token := range signals.Tokenize(entry.Text) {
			if seen[token] {
				continue
			}
			seen[token] = true
			counts.Add(token, 1)
		}
	}

	rows := counts.MostCommon(limit)
	out := make([]Suggestion, 0, len(rows))
	for _, row := range rows {
		out = append(out, Suggestion{Word: row.Key, Entries: int(row.Count)})
	}
	return out
}

// MatchName returns the name of the first trigger whose words appear in text
func MatchName(text string, triggers []models.Trigger) (string, bool) {
	tokens := signals.TokenSet(text)
	for _, trigger := range triggers {
		if intersects(tokens, normalizeWords(trigger.Words)) {
			return trigger.Name, true
		}
	}
	return "", false
}

// Normalize validates a trigger definition and returns it with a trimmed
// name and lowercased, de-duplicated words
func Normalize(owner, name string, words []string) (models.Trigger, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return models.Trigger{}, fmt.Errorf("%w: name must be %d-%d characters", ErrInvalidTrigger, MinNameLength, MaxNameLength)
	}
	if len(words) == 0 || len(words) > MaxWords {
		return models.Trigger{}, fmt.Errorf("%w: between 1 and %d words required", ErrInvalidTrigger, MaxWords)
	}

	seen := make(map[string]bool, len(words))
	clean := make([]string, 0, len(words))
	for _, w := range words {
		word := strings.ToLower(strings.TrimSpace(w))
		if word == "" {
			return models.Trigger{}, fmt.Errorf("%w: trigger word cannot be empty", ErrInvalidTrigger)
		}
		if utf8.RuneCountInString(word) > MaxWordLength {
			return models.Trigger{}, fmt.Errorf("%w: trigger word %q exceeds %d characters", ErrInvalidTrigger, word, MaxWordLength)
		}
		if seen[word] {
			continue
		}
		seen[word] = true
		clean = append(clean, word)
	}

	return models.Trigger{UserID: owner, Name: name, Words: clean}, nil
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if word := strings.ToLower(strings.TrimSpace(w)); word != "" {
			out = append(out, word)
		}
	}
	return out
}
