package signals

import (
	"strings"

	"github.com/mrwolf/echo-server/internal/models"
)

// NeutralEmotion is used when an entry carries no emotion scores
const NeutralEmotion = "neutral"

// SentimentWeights maps an emotion label to its contribution in [-1, 1].
// Labels not listed weigh 0.
var SentimentWeights = map[string]float64{
	// Restorative
	"joy":      0.9,
	"love":     0.85,
	"grateful": 0.75,
	"proud":    0.7,
	"calm":     0.6,
	"hopeful":  0.55,
	"content":  0.45,
	"surprise": 0.2,

	"neutral": 0.0,

	// Taxing
	"tired":       -0.4,
	"disgust":     -0.5,
	"frustrated":  -0.55,
	"sadness":     -0.6,
	"overwhelmed": -0.6,
	"stress":      -0.6,
	"fear":        -0.65,
	"anger":       -0.7,
	"anxiety":     -0.7,
}

// NormalizeLabel lowercases and trims an emotion label
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// SentimentFromEmotions returns the score-weighted sentiment of a distribution,
// clamped to [-1, 1]. Returns 0 when the scores sum to zero or less.
func SentimentFromEmotions(emotions []models.EmotionScore) float64 {
	var weighted, total float64
	for _, e := range emotions {
		weighted += SentimentWeights[NormalizeLabel(e.Label)] * e.Score
		total += e.Score
	}
	if total <= 0 {
		return 0.0
	}
	return clamp(weighted/total, -1, 1)
}

// DominantEmotion returns the highest-scoring label of a distribution.
// Ties go to the label seen first. ok is false for an empty distribution.
func DominantEmotion(emotions []models.EmotionScore) (label string, ok bool) {
	var best float64
	for _, e := range emotions {
		if !ok || e.Score > best {
			label, best, ok = NormalizeLabel(e.Label), e.Score, true
		}
	}
	return label, ok
}

// EntryEmotion is DominantEmotion with the neutral fallback aggregators count under
func EntryEmotion(entry models.JournalEntry) string {
	if label, ok := DominantEmotion(entry.Emotions); ok && label != "" {
		return label
	}
	return NeutralEmotion
}

// ResolveSentiment returns the stored sentiment, or derives one from emotions.
// Entries with neither have no sentiment.
func ResolveSentiment(entry models.JournalEntry) (float64, bool) {
	if entry.SentimentScore != nil {
		return *entry.SentimentScore, true
	}
	if len(entry.Emotions) > 0 {
		return SentimentFromEmotions(entry.Emotions), true
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
