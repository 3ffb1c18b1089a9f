package reporting

import (
	"math"
	"time"

	"github.com/mrwolf/echo-server/internal/analytics"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

const (
	// MaxKeywords caps the keyword statistics in a report
	MaxKeywords = 20

	// SpikeThreshold is the |z| at or above which a day counts as a spike
	SpikeThreshold = 1.5
)

// Input is everything a weekly report is built from
type Input struct {
	Owner     string
	WeekStart time.Time
	WeekEnd   time.Time
	Weekly    models.WeeklyMetric
	Previous  *models.WeeklyMetric
	Entries   []models.JournalEntry
	Daily     []models.DailyMetric
}

// BuildWeeklyReport assembles the structured weekly report. Only entries of
// in.Owner created within [WeekStart, WeekEnd] feed the keyword statistics.
func BuildWeeklyReport(in Input) models.WeeklyReportPayload {
	start := signals.DateKey(in.WeekStart)
	end := signals.DateKey(in.WeekEnd)

	var avg float64
	if in.Weekly.AvgSentiment != nil {
		avg = *in.Weekly.AvgSentiment
	}

	var delta *float64
	if in.Previous != nil && in.Previous.AvgSentiment != nil {
		d := avg - *in.Previous.AvgSentiment
		delta = &d
	}

	counts := in.Weekly.EmotionCounts
	if counts == nil {
		counts = map[string]int{}
	}

	corr := in.Weekly.CorrSummary
	return models.WeeklyReportPayload{
		WeekRange:       models.WeekRange{Start: start, End: end},
		AvgSentiment:    avg,
		DeltaVsPrevWeek: delta,
		EmotionCounts:   counts,
		MessageCount:    in.Weekly.MessageCount,
		TopEmotion:      topEmotion(in.Weekly),
		Volatility:      in.Weekly.Volatility,
		TimeOfDayMeans:  nonNil(corr.TimeOfDayMeanSentiment),
		WeekdayMeans:    nonNil(corr.WeekdayMeanSentiment),
		Correlations: models.CorrelationStat{
			Pearson:    corr.EntryLengthVsSentimentPearson,
			SampleSize: corr.EntryLengthSampleSize,
		},
		TopKeywords:   KeywordStats(filterEntries(in.Entries, in.Owner, start, end), MaxKeywords),
		NotableSpikes: NotableSpikes(in.Daily, in.Owner, start, end),
	}
}

// topEmotion prefers the label recorded at aggregation time. Records loaded
// back from a store may only carry counts; the alphabetically first of the
// highest counts is used then.
func topEmotion(w models.WeeklyMetric) string {
	if w.TopEmotion != "" {
		return w.TopEmotion
	}
	best, bestCount := "", -1
	for label, count := range w.EmotionCounts {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}
	return best
}

func filterEntries(entries []models.JournalEntry, owner, start, end string) []models.JournalEntry {
	var out []models.JournalEntry
	for _, entry := range entries {
		if entry.UserID != owner {
			continue
		}
		created, err := signals.ParseTimestamp(entry.CreatedAt)
		if err != nil {
			continue
		}
		if day := signals.DateKey(created); day >= start && day <= end {
			out = append(out, entry)
		}
	}
	return out
}

// KeywordStats ranks tokens by frequency and reports the mean sentiment of
// the entries they came from. Entries without a sentiment count as 0.
func KeywordStats(entries []models.JournalEntry, limit int) []models.KeywordStat {
	counts := signals.NewCounter()
	sentimentTotals := make(map[string]float64)

	for _, entry := range entries {
		sentiment, _ := signals.ResolveSentiment(entry)
		for _, word := range signals.Tokenize(entry.Text) {
			counts.Add(word, 1)
			sentimentTotals[word] += sentiment
		}
	}

	rows := counts.MostCommon(limit)
	stats := make([]models.KeywordStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.KeywordStat{
			Term:         row.Key,
			Count:        int(row.Count),
			AvgSentiment: sentimentTotals[row.Key] / row.Count,
		})
	}
	return stats
}

// NotableSpikes returns days in [start, end] whose average sentiment sits at
// least SpikeThreshold population standard deviations from the week's mean
func NotableSpikes(daily []models.DailyMetric, owner, start, end string) []models.Spike {
	type dayValue struct {
		date  string
		value float64
	}

	var days []dayValue
	var values []float64
	for _, record := range daily {
		if record.Date == "" || record.AvgSentiment == nil {
			continue
		}
		if owner != "" && record.UserID != "" && record.UserID != owner {
			continue
		}
		if record.Date < start || record.Date > end {
			continue
		}
		days = append(days, dayValue{date: record.Date, value: *record.AvgSentiment})
		values = append(values, *record.AvgSentiment)
	}

	spikes := []models.Spike{}
	std := analytics.PopulationStdDev(values)
	if len(values) < 2 || std == 0 {
		return spikes
	}

	mean := *analytics.Mean(values)
	for _, d := range days {
		z := (d.value - mean) / std
		if math.Abs(z) >= SpikeThreshold {
			spikes = append(spikes, models.Spike{Date: d.date, AvgSentiment: d.value, ZScore: z})
		}
	}
	return spikes
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
