package signals

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mrwolf/echo-server/internal/models"
)

// DateLayout is the calendar-date key used across records
const DateLayout = "2006-01-02"

// ErrBadTimestamp is returned when an entry's creation time cannot be parsed
var ErrBadTimestamp = errors.New("unparseable timestamp")

// Accepted creation-time layouts. Layouts without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	DateLayout,
}

// WeekdayLabels indexes weekday names from Monday=0
var WeekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ParseTimestamp parses a stored creation time and normalizes it to UTC
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrBadTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
}

// FormatTimestamp renders a time the way the store keeps it
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DateKey returns the UTC calendar date of t
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key as midnight UTC
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// TextLength counts characters after trimming surrounding whitespace
func TextLength(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// BucketTimeOfDay maps the UTC hour onto Night/Morning/Afternoon/Evening
func BucketTimeOfDay(t time.Time) string {
	hour := t.UTC().Hour()
	switch {
	case hour < 5:
		return models.BucketNight
	case hour < 12:
		return models.BucketMorning
	case hour < 17:
		return models.BucketAfternoon
	case hour < 21:
		return models.BucketEvening
	default:
		return models.BucketNight
	}
}

// WeekdayIndex returns 0 for Monday through 6 for Sunday
func WeekdayIndex(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// DayStart returns midnight UTC of the day containing t
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the week containing t, at midnight UTC
func WeekStart(t time.Time) time.Time {
	day := DayStart(t)
	return day.AddDate(0, 0, -WeekdayIndex(day))
}

// ResolveLength returns the stored entry length or the trimmed text length
func ResolveLength(entry models.JournalEntry) int {
	if entry.EntryLength != nil {
		return *entry.EntryLength
	}
	return TextLength(entry.Text)
}

// ResolveBucket returns the stored bucket or derives it from the timestamp
func ResolveBucket(entry models.JournalEntry, created time.Time) string {
	if entry.TimeOfDay != "" {
		return entry.TimeOfDay
	}
	return BucketTimeOfDay(created)
}

// ResolveWeekday returns the stored weekday or derives it from the timestamp
func ResolveWeekday(entry models.JournalEntry, created time.Time) int {
	if entry.DayOfWeek != nil && *entry.DayOfWeek >= 0 && *entry.DayOfWeek < 7 {
		return *entry.DayOfWeek
	}
	return WeekdayIndex(created)
}

// Annotate returns a copy of entry with missing derived fields filled in.
// Sentiment is only derived when the entry carries emotions.
func Annotate(entry models.JournalEntry) (models.JournalEntry, error) {
	created, err := ParseTimestamp(entry.CreatedAt)
	if err != nil {
		return entry, err
	}

	out := entry
	out.CreatedAt = FormatTimestamp(created)

	if len(entry.Emotions) > 0 {
		out.Emotions = make([]models.EmotionScore, len(entry.Emotions))
		for i, e := range entry.Emotions {
			out.Emotions[i] = models.EmotionScore{Label: NormalizeLabel(e.Label), Score: e.Score}
		}
	}
	if entry.Tags != nil {
		out.Tags = append([]string(nil), entry.Tags...)
	}

	if s, ok := ResolveSentiment(out); ok {
		out.SentimentScore = &s
	}
	length := ResolveLength(entry)
	out.EntryLength = &length
	out.TimeOfDay = ResolveBucket(entry, created)
	weekday := ResolveWeekday(entry, created)
	out.DayOfWeek = &weekday

	return out, nil
}
