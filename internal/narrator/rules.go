package narrator

// Timeframe selects the wording of a narrative
type Timeframe string

const (
	Day   Timeframe = "day"
	Week  Timeframe = "week"
	Month Timeframe = "month"
)

// Energy classes for dominant emotions
const (
	Positive    = "positive"
	Challenging = "challenging"
	Steady      = "neutral"
)

// Fixed messages for inputs a narrative cannot be built from
const (
	NoReflectionsMessage = "No reflections logged yet. Capture a note so Echo can spot your patterns."
	NeedsMoreMessage     = "Echo needs a few more reflections with emotion insights to surface guidance."
)

// PositiveEmotions are labels counted as restorative
var PositiveEmotions = map[string]bool{
	"joy": true, "love": true, "surprise": true, "calm": true, "proud": true,
	"grateful": true, "gratitude": true, "content": true, "hopeful": true,
}

// ChallengingEmotions are labels counted as taxing
var ChallengingEmotions = map[string]bool{
	"sadness": true, "anger": true, "fear": true, "anxiety": true, "frustrated": true,
	"tired": true, "overwhelmed": true, "stress": true, "disgust": true,
}

// Nudges - closing action per dominant emotion. Wording is written for a
// week and rewritten for other timeframes by phraseSwaps.
var Nudges = map[string]string{
	"joy":        "Savor the bright spots by sharing one with someone who will celebrate with you this week.",
	"love":       "Let that warmth travel further with a short note of thanks to someone who helped this week.",
	"surprise":   "Write down what the curveball taught you so it can steer a future decision.",
	"sadness":    "Offer yourself a quiet pause tonight and name one gentle step for tomorrow.",
	"anger":      "Turn the spark into motion: draft a response or take a reset walk before you send anything.",
	"fear":       "List one thing you can influence today and let it be your anchor.",
	"anxiety":    "Pair a slow exhale with the reminder that half-steps still count as progress.",
	"disgust":    "Protect your energy with one boundary that keeps you grounded this week.",
	"calm":       "Keep the steady cadence going by booking a small ritual you enjoy this week.",
	"proud":      "Celebrate the progress by telling someone who roots for you.",
	"grateful":   "Note the people and moments lighting you up and plan how to nourish them over the month.",
	"frustrated": "Split what is in your control from what is noise, and spend energy on the first list today.",

	// Fallback
	"default": "Take a steady breath, jot one grounding intention, and remember that showing up to reflect is care.",
}

// timeframeLabels open the overview line
var timeframeLabels = map[Timeframe]string{
	Day:   "today",
	Week:  "this week",
	Month: "this month",
}

// timeframeActions close the celebrate highlight
var timeframeActions = map[Timeframe]string{
	Day:   "today",
	Week:  "this week",
	Month: "over the month",
}

type phraseSwap struct {
	from, to string
}

// phraseSwaps are applied to a nudge in order
var phraseSwaps = map[Timeframe][]phraseSwap{
	Day: {
		{"this week", "today"},
		{"over the month", "today"},
	},
	Month: {
		{"tonight", "this week"},
		{"today", "this week"},
		{"this week", "this month"},
	},
}

// ParseTimeframe falls back to Week for anything unrecognized
func ParseTimeframe(s string) Timeframe {
	switch tf := Timeframe(s); tf {
	case Day, Week, Month:
		return tf
	default:
		return Week
	}
}

// Classify places an emotion label in its energy class
func Classify(label string) string {
	switch {
	case PositiveEmotions[label]:
		return Positive
	case ChallengingEmotions[label]:
		return Challenging
	default:
		return Steady
	}
}

// NudgeFor returns the closing action for a dominant emotion
func NudgeFor(label string) string {
	if nudge, ok := Nudges[label]; ok {
		return nudge
	}
	return Nudges["default"]
}
