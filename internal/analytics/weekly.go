package analytics

import (
	"sort"
	"time"

	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

func weekKey(t time.Time) string {
	return signals.DateKey(signals.WeekStart(t))
}

// ComputeWeeklyMetrics builds one record per (owner, Monday-aligned week).
// daily supplies the per-day averages volatility is computed from; only days
// present there for the same owner and week count.
func ComputeWeeklyMetrics(entries []models.JournalEntry, daily []models.DailyMetric) []models.WeeklyMetric {
	lookup := make(map[groupKey]models.DailyMetric, len(daily))
	for _, d := range daily {
		if d.UserID == "" || d.Date == "" {
			continue
		}
		lookup[groupKey{owner: d.UserID, period: d.Date}] = d
	}

	groups := groupBy(entries, weekKey)

	results := make([]models.WeeklyMetric, 0, groups.Len())
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		results = append(results, buildWeekly(pair.Key.owner, pair.Key.period, pair.Value, lookup))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].WeekStart < results[j].WeekStart
	})
	return results
}

func buildWeekly(owner, weekStart string, observations []observation, lookup map[groupKey]models.DailyMetric) models.WeeklyMetric {
	start, _ := signals.ParseDate(weekStart)

	emotions := signals.NewCounter()
	buckets := newBucketSeries()
	weekdays := newBucketSeries()
	var sentiments, pairedLengths, pairedSentiments []float64

	for _, obs := range observations {
		emotions.Add(obs.emotion, 1)
		if !obs.hasSentiment {
			continue
		}
		sentiments = append(sentiments, obs.sentiment)
		pairedLengths = append(pairedLengths, obs.length)
		pairedSentiments = append(pairedSentiments, obs.sentiment)
		buckets.add(obs.bucket, obs.sentiment)
		weekdays.add(signals.WeekdayLabels[obs.weekday], obs.sentiment)
	}

	var dailyAverages []float64
	for offset := 0; offset < 7; offset++ {
		day := signals.DateKey(start.AddDate(0, 0, offset))
		if record, ok := lookup[groupKey{owner: owner, period: day}]; ok && record.AvgSentiment != nil {
			dailyAverages = append(dailyAverages, *record.AvgSentiment)
		}
	}

	top, _ := emotions.Top()
	return models.WeeklyMetric{
		UserID:        owner,
		WeekStart:     weekStart,
		WeekEnd:       signals.DateKey(start.AddDate(0, 0, 6)),
		AvgSentiment:  Mean(sentiments),
		TopEmotion:    top,
		EmotionCounts: emotions.Ints(),
		MessageCount:  len(observations),
		Volatility:    PopulationStdDev(dailyAverages),
		CorrSummary: models.CorrSummary{
			EntryLengthVsSentimentPearson: Pearson(pairedLengths, pairedSentiments),
			EntryLengthSampleSize:         len(pairedLengths),
			TimeOfDayMeanSentiment:        buckets.means(),
			WeekdayMeanSentiment:          weekdays.means(),
		},
	}
}
