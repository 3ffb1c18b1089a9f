package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrwolf/echo-server/internal/analytics"
	"github.com/mrwolf/echo-server/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

var (
	weekStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	weekEnd   = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
)

func TestBuildWeeklyReport(t *testing.T) {
	entries := []models.JournalEntry{
		{UserID: "alice", Text: "Deadline stress at work", CreatedAt: "2024-03-04T09:00:00Z", Emotions: []models.EmotionScore{{Label: "fear", Score: 1}}},
		{UserID: "alice", Text: "Deadline met, celebrated", CreatedAt: "2024-03-05T19:00:00Z", Emotions: []models.EmotionScore{{Label: "joy", Score: 1}}},
		{UserID: "alice", Text: "Deadline from last week", CreatedAt: "2024-02-28T09:00:00Z", Emotions: []models.EmotionScore{{Label: "anger", Score: 1}}},
		{UserID: "bob", Text: "Deadline for bob", CreatedAt: "2024-03-05T09:00:00Z", Emotions: []models.EmotionScore{{Label: "joy", Score: 1}}},
	}
	daily := analytics.ComputeDailyMetrics(entries)
	weekly := analytics.ComputeWeeklyMetrics(entries, daily)

	var current, previous models.WeeklyMetric
	for _, w := range weekly {
		if w.UserID != "alice" {
			continue
		}
		if w.WeekStart == "2024-03-04" {
			current = w
		} else {
			previous = w
		}
	}

	report := BuildWeeklyReport(Input{
		Owner:     "alice",
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Weekly:    current,
		Previous:  &previous,
		Entries:   entries,
		Daily:     daily,
	})

	assert.Equal(t, models.WeekRange{Start: "2024-03-04", End: "2024-03-10"}, report.WeekRange)
	assert.Equal(t, 2, report.MessageCount)
	assert.InDelta(t, 0.125, report.AvgSentiment, 1e-9)
	require.NotNil(t, report.DeltaVsPrevWeek)
	assert.InDelta(t, 0.825, *report.DeltaVsPrevWeek, 1e-9)
	assert.Equal(t, "fear", report.TopEmotion)
	assert.Equal(t, map[string]int{"fear": 1, "joy": 1}, report.EmotionCounts)
	assert.Equal(t, 2, report.Correlations.SampleSize)

	require.NotEmpty(t, report.TopKeywords)
	assert.Equal(t, "deadline", report.TopKeywords[0].Term)
	assert.Equal(t, 2, report.TopKeywords[0].Count, "only alice's entries inside the week count")
	assert.InDelta(t, 0.125, report.TopKeywords[0].AvgSentiment, 1e-9)

	assert.NotNil(t, report.NotableSpikes)
}

func TestBuildWeeklyReportEmptyWeek(t *testing.T) {
	report := BuildWeeklyReport(Input{Owner: "alice", WeekStart: weekStart, WeekEnd: weekEnd})

	assert.Zero(t, report.AvgSentiment)
	assert.Nil(t, report.DeltaVsPrevWeek)
	assert.Empty(t, report.TopEmotion)
	assert.NotNil(t, report.EmotionCounts)
	assert.NotNil(t, report.TimeOfDayMeans)
	assert.NotNil(t, report.WeekdayMeans)
	assert.NotNil(t, report.TopKeywords)
	assert.NotNil(t, report.NotableSpikes)
}

func TestTopEmotionFallback(t *testing.T) {
	w := models.WeeklyMetric{EmotionCounts: map[string]int{"sadness": 2, "joy": 2, "calm": 1}}
	assert.Equal(t, "joy", topEmotion(w))

	w.TopEmotion = "sadness"
	assert.Equal(t, "sadness", topEmotion(w))
}

func TestKeywordStats(t *testing.T) {
	entries := []models.JournalEntry{
		{Text: "gym gym session", SentimentScore: floatPtr(0.5)},
		{Text: "gym skipped", Emotions: []models.EmotionScore{{Label: "tired", Score: 1}}},
		{Text: "skipped lunch"},
	}

	stats := KeywordStats(entries, 2)
	require.Len(t, stats, 2)
	assert.Equal(t, models.KeywordStat{Term: "gym", Count: 3, AvgSentiment: (0.5 + 0.5 - 0.4) / 3}, stats[0])
	assert.Equal(t, "skipped", stats[1].Term)
	assert.InDelta(t, -0.2, stats[1].AvgSentiment, 1e-9)
}

func TestNotableSpikes(t *testing.T) {
	var daily []models.DailyMetric
	for i, v := range []float64{0, 0, 0, 0, 0, 0, 1} {
		daily = append(daily, models.DailyMetric{
			UserID:       "alice",
			Date:         weekStart.AddDate(0, 0, i).Format("2006-01-02"),
			AvgSentiment: floatPtr(v),
		})
	}
	daily = append(daily,
		models.DailyMetric{UserID: "bob", Date: "2024-03-05", AvgSentiment: floatPtr(-1)},
		models.DailyMetric{UserID: "alice", Date: "2024-03-11", AvgSentiment: floatPtr(-1)},
		models.DailyMetric{UserID: "alice", Date: "2024-03-06"},
	)

	spikes := NotableSpikes(daily, "alice", "2024-03-04", "2024-03-10")
	require.Len(t, spikes, 1)
	assert.Equal(t, "2024-03-10", spikes[0].Date)
	assert.InDelta(t, 2.449, spikes[0].ZScore, 1e-3)

	flat := NotableSpikes(daily[:1], "alice", "2024-03-04", "2024-03-10")
	assert.NotNil(t, flat)
	assert.Empty(t, flat)
}
