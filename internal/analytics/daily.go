package analytics

import (
	"sort"

	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

// ComputeDailyMetrics builds one record per (owner, UTC date) in entries,
// sorted by date. Entries without an owner or with an unparseable creation
// time are skipped.
func ComputeDailyMetrics(entries []models.JournalEntry) []models.DailyMetric {
	groups := groupBy(entries, signals.DateKey)

	results := make([]models.DailyMetric, 0, groups.Len())
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		results = append(results, buildDaily(pair.Key.owner, pair.Key.period, pair.Value))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date < results[j].Date
	})
	return results
}

func buildDaily(owner, date string, observations []observation) models.DailyMetric {
	emotions := signals.NewCounter()
	buckets := newBucketSeries()
	var sentiments, lengths []float64

	for _, obs := range observations {
		emotions.Add(obs.emotion, 1)
		buckets.count(obs.bucket)
		lengths = append(lengths, obs.length)
		if obs.hasSentiment {
			sentiments = append(sentiments, obs.sentiment)
			buckets.add(obs.bucket, obs.sentiment)
		}
	}

	timeBuckets := make(map[string]models.BucketStat, buckets.counts.Len())
	for _, row := range buckets.counts.Rows() {
		values, _ := buckets.values.Get(row.Key)
		timeBuckets[row.Key] = models.BucketStat{
			MessageCount: int(row.Count),
			AvgSentiment: Mean(values),
		}
	}

	top, _ := emotions.Top()
	return models.DailyMetric{
		UserID:         owner,
		Date:           date,
		AvgSentiment:   Mean(sentiments),
		TopEmotion:     top,
		EmotionCounts:  emotions.Ints(),
		MessageCount:   len(observations),
		AvgEntryLength: Mean(lengths),
		TimeBuckets:    timeBuckets,
	}
}
