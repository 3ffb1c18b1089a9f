package narrator

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

// Reflection is an entry reduced to what a narrative reads
type Reflection struct {
	Text    string
	Label   string // dominant emotion, "" when unknown
	Created string
	Tags    []string
}

// FromEntry reduces a journal entry. The dominant label is the highest
// scoring emotion that has a label; ties keep the first.
func FromEntry(entry models.JournalEntry) Reflection {
	label, best := "", -1.0
	for _, e := range entry.Emotions {
		l := signals.NormalizeLabel(e.Label)
		if l != "" && e.Score > best {
			label, best = l, e.Score
		}
	}

	tags := make([]string, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		tags = append(tags, strings.ToLower(tag))
	}

	return Reflection{
		Text:    strings.TrimSpace(entry.Text),
		Label:   label,
		Created: entry.CreatedAt,
		Tags:    tags,
	}
}

// FromText wraps a bare note that carries no emotion data
func FromText(text string) Reflection {
	return Reflection{Text: strings.TrimSpace(text)}
}

// Build narrates journal entries for a timeframe ("day", "week" or "month")
func Build(entries []models.JournalEntry, timeframe string) string {
	items := make([]Reflection, 0, len(entries))
	for _, entry := range entries {
		items = append(items, FromEntry(entry))
	}
	return Narrate(items, timeframe)
}

// BuildFromTexts narrates plain notes
func BuildFromTexts(texts []string, timeframe string) string {
	items := make([]Reflection, 0, len(texts))
	for _, text := range texts {
		items = append(items, FromText(text))
	}
	return Narrate(items, timeframe)
}

// tally holds the counts every narrative line is built from
type tally struct {
	reflections int
	days        map[string]bool
	emotions    *signals.Counter
	classes     *signals.Counter
	tags        map[string]*signals.Counter
	byClass     map[string]*signals.Counter
}

func newTally() *tally {
	return &tally{
		days:     make(map[string]bool),
		emotions: signals.NewCounter(),
		classes:  signals.NewCounter(),
		tags: map[string]*signals.Counter{
			Positive:    signals.NewCounter(),
			Challenging: signals.NewCounter(),
		},
		byClass: map[string]*signals.Counter{
			Positive:    signals.NewCounter(),
			Challenging: signals.NewCounter(),
		},
	}
}

func (t *tally) add(r Reflection) {
	t.reflections++
	if created, err := signals.ParseTimestamp(r.Created); err == nil {
		t.days[signals.DateKey(created)] = true
	}

	if r.Label == "" {
		return
	}
	class := Classify(r.Label)
	t.emotions.Add(r.Label, 1)
	t.classes.Add(class, 1)

	if tags, ok := t.tags[class]; ok {
		for _, tag := range r.Tags {
			tags.Add(tag, 1)
		}
		t.byClass[class].Add(r.Label, 1)
	}
}

// Narrate builds the narrative lines, omitting any line whose data is absent,
// and joins them with newlines
func Narrate(items []Reflection, timeframe string) string {
	if len(items) == 0 {
		return NoReflectionsMessage
	}

	t := newTally()
	for _, item := range items {
		if item.Text == "" {
			continue
		}
		t.add(item)
	}
	if t.reflections == 0 {
		return NeedsMoreMessage
	}

	tf := ParseTimeframe(timeframe)
	title := cases.Title(language.English)

	total := t.emotions.Total()
	if total == 0 {
		total = float64(t.reflections)
	}
	dominant, dominantCount := t.emotions.Top()
	if dominant == "" {
		dominant = signals.NeutralEmotion
	}
	activeDays := max(len(t.days), 1)

	positive := t.classes.Get(Positive)
	challenging := t.classes.Get(Challenging)

	lines := []string{fmt.Sprintf(
		"Overview • %s, you captured %d %s across %d %s. %s led %d%% of the tone.",
		capitalize(timeframeLabels[tf]),
		t.reflections, plural(t.reflections, "reflection"),
		activeDays, plural(activeDays, "day"),
		title.String(dominant), percent(dominantCount, total),
	)}

	if positive > 0 || challenging > 0 {
		posPct := percent(positive, total)
		challPct := percent(challenging, total)
		lines = append(lines, fmt.Sprintf(
			"Energy mix • %d%% restorative, %d%% taxing, %d%% steady moments logged.",
			posPct, challPct, max(0, 100-posPct-challPct),
		))
	}

	if top := t.emotions.MostCommon(3); len(top) > 0 {
		parts := make([]string, 0, len(top))
		for _, row := range top {
			parts = append(parts, fmt.Sprintf("%s %d%%", title.String(row.Key), percent(row.Count, total)))
		}
		lines = append(lines, "Focus • Top emotions: "+strings.Join(parts, ", ")+".")
	}

	if line, ok := highlight(Positive, t, tf, title); ok {
		lines = append(lines, "Celebrate • "+line)
	}
	if line, ok := highlight(Challenging, t, tf, title); ok {
		lines = append(lines, "Support • "+line)
	}

	if line, ok := momentum(positive, challenging); ok {
		lines = append(lines, line)
	}

	lines = append(lines, "Next step • "+adaptNudge(NudgeFor(dominant), tf))
	return strings.Join(lines, "\n")
}

// highlight prefers the two most common tags of a class and falls back to
// its most common emotion
func highlight(class string, t *tally, tf Timeframe, title cases.Caser) (string, bool) {
	if tags := t.tags[class].MostCommon(2); len(tags) > 0 {
		names := make([]string, 0, len(tags))
		for _, row := range tags {
			names = append(names, "#"+row.Key)
		}
		readable := strings.Join(names, ", ")
		if class == Positive {
			return fmt.Sprintf("%s moments lifted you, so protect space for them %s.", readable, timeframeActions[tf]), true
		}
		return fmt.Sprintf("%s situations drained energy. Plan one boundary or recovery step before they repeat.", readable), true
	}

	emotion, count := t.byClass[class].Top()
	if count == 0 {
		return "", false
	}
	if class == Positive {
		return fmt.Sprintf("%s spikes were grounding. Repeat whatever set them in motion.", title.String(emotion)), true
	}
	return fmt.Sprintf("%s showed up often. Prep a micro-support for when it surfaces.", title.String(emotion)), true
}

func momentum(positive, challenging float64) (string, bool) {
	switch {
	case positive > 0 && challenging > 0:
		if challenging-positive > 1 {
			return "Rebalance • Taxing themes edged ahead. Schedule a buffer or recharge ritual before the next busy stretch.", true
		}
		if positive > challenging {
			return "Momentum • Restorative moments are winning. Double down on the routines that invite them.", true
		}
	case challenging > 0:
		return "Recovery • This period leaned heavy. Add one gentle checkpoint before lights-out: stretch, journal or step outside.", true
	}
	return "", false
}

func adaptNudge(nudge string, tf Timeframe) string {
	for _, swap := range phraseSwaps[tf] {
		nudge = strings.ReplaceAll(nudge, swap.from, swap.to)
	}
	return nudge
}

// percent rounds halves away from zero (1 of 8 is 13), not to even
func percent(count, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(count / total * 100))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
