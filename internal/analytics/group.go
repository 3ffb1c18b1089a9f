package analytics

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

// groupKey identifies an (owner, period) group
type groupKey struct {
	owner  string
	period string
}

// observation is one entry with every derived field resolved
type observation struct {
	entry        models.JournalEntry
	created      time.Time
	emotion      string
	sentiment    float64
	hasSentiment bool
	length       float64
	bucket       string
	weekday      int
}

// observe resolves an entry's derived fields. ok is false for entries the
// aggregators skip: no owner, or a creation time that does not parse.
func observe(entry models.JournalEntry) (observation, bool) {
	if entry.UserID == "" {
		return observation{}, false
	}
	created, err := signals.ParseTimestamp(entry.CreatedAt)
	if err != nil {
		return observation{}, false
	}

	sentiment, hasSentiment := signals.ResolveSentiment(entry)
	return observation{
		entry:        entry,
		created:      created,
		emotion:      signals.EntryEmotion(entry),
		sentiment:    sentiment,
		hasSentiment: hasSentiment,
		length:       float64(signals.ResolveLength(entry)),
		bucket:       signals.ResolveBucket(entry, created),
		weekday:      signals.ResolveWeekday(entry, created),
	}, true
}

// groupBy folds entries into insertion-ordered groups keyed by owner and the
// period returned by periodOf
func groupBy(entries []models.JournalEntry, periodOf func(time.Time) string) *orderedmap.OrderedMap[groupKey, []observation] {
	groups := orderedmap.New[groupKey, []observation]()
	for _, entry := range entries {
		obs, ok := observe(entry)
		if !ok {
			continue
		}
		key := groupKey{owner: obs.entry.UserID, period: periodOf(obs.created)}
		existing, _ := groups.Get(key)
		groups.Set(key, append(existing, obs))
	}
	return groups
}

// bucketSeries collects sentiment values per label in first-seen order
type bucketSeries struct {
	counts *signals.Counter
	values *orderedmap.OrderedMap[string, []float64]
}

func newBucketSeries() *bucketSeries {
	return &bucketSeries{
		counts: signals.NewCounter(),
		values: orderedmap.New[string, []float64](),
	}
}

func (b *bucketSeries) count(label string) {
	b.counts.Add(label, 1)
}

func (b *bucketSeries) add(label string, v float64) {
	existing, _ := b.values.Get(label)
	b.values.Set(label, append(existing, v))
}

// means returns the mean of every label that collected values
func (b *bucketSeries) means() map[string]float64 {
	out := make(map[string]float64, b.values.Len())
	for pair := b.values.Oldest(); pair != nil; pair = pair.Next() {
		if m := Mean(pair.Value); m != nil {
			out[pair.Key] = *m
		}
	}
	return out
}

// CountMalformed reports how many entries the aggregators would skip
func CountMalformed(entries []models.JournalEntry) int {
	n := 0
	for _, entry := range entries {
		if _, ok := observe(entry); !ok {
			n++
		}
	}
	return n
}
