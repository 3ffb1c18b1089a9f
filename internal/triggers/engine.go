package triggers

import (
	"github.com/mrwolf/echo-server/internal/analytics"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

// ComputeStats compares the dominant emotions of entries mentioning each
// trigger against the owner's overall dominant-emotion distribution.
// Deltas are percentage points rounded to one decimal. Output follows the
// order of triggers.
func ComputeStats(entries []models.JournalEntry, triggers []models.Trigger) []models.TriggerStat {
	tokens := make([]map[string]struct{}, len(entries))
	for i, entry := range entries {
		tokens[i] = signals.TokenSet(entry.Text)
	}

	baseline := baselineRates(entries)

	results := make([]models.TriggerStat, 0, len(triggers))
	for _, trigger := range triggers {
		matched := matchingEntries(entries, tokens, trigger.Words)

		correlation := make(map[string]float64)
		if len(matched) > 0 {
			counts := signals.NewCounter()
			for _, entry := range matched {
				if label, ok := signals.DominantEmotion(entry.Emotions); ok && label != "" {
					counts.Add(label, 1)
				}
			}
			for _, row := range counts.Rows() {
				rate := row.Count / float64(len(matched))
				correlation[row.Key] = analytics.Round((rate-baseline[row.Key])*100, 1)
			}
		}

		results = append(results, models.TriggerStat{
			ID:          trigger.ID,
			Name:        trigger.Name,
			Words:       trigger.Words,
			Count:       len(matched),
			Correlation: correlation,
		})
	}
	return results
}

// baselineRates is each label's share of the dominant emotions across entries.
// Entries without emotions do not count toward the baseline.
func baselineRates(entries []models.JournalEntry) map[string]float64 {
	counts := signals.NewCounter()
	for _, entry := range entries {
		if label, ok := signals.DominantEmotion(entry.Emotions); ok && label != "" {
			counts.Add(label, 1)
		}
	}

	total := counts.Total()
	if total == 0 {
		total = 1
	}
	rates := make(map[string]float64, counts.Len())
	for _, row := range counts.Rows() {
		rates[row.Key] = row.Count / total
	}
	return rates
}

func matchingEntries(entries []models.JournalEntry, tokens []map[string]struct{}, words []string) []models.JournalEntry {
	wanted := normalizeWords(words)
	if len(wanted) == 0 {
		return nil
	}

	var matched []models.JournalEntry
	for i, entry := range entries {
		if intersects(tokens[i], wanted) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func intersects(tokens map[string]struct{}, words []string) bool {
	for _, word := range words {
		if _, ok := tokens[word]; ok {
			return true
		}
	}
	return false
}
