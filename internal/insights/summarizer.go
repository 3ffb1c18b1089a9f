package insights

import (
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/mrwolf/echo-server/internal/analytics"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

// MaxKeywords caps the keyword list
const MaxKeywords = 20

// tagWeight is what each tag adds to its keyword count
const tagWeight = 0.5

// Summarize builds the dashboard view for entries over any range of days.
// Entries whose creation time does not parse are left out.
func Summarize(entries []models.JournalEntry) models.Insights {
	result := models.Insights{
		TopEmotions: []models.EmotionShare{},
		Trend:       []models.TrendPoint{},
		Keywords:    []models.KeywordCount{},
		Heatmap:     []models.HeatmapCell{},
	}

	totals := signals.NewCounter()
	days := orderedmap.New[string, *signals.Counter]()
	keywords := signals.NewCounter()

	for _, entry := range entries {
		created, err := signals.ParseTimestamp(entry.CreatedAt)
		if err != nil {
			continue
		}
		day := signals.DateKey(created)
		label := signals.EntryEmotion(entry)

		totals.Add(label, 1)
		counter, ok := days.Get(day)
		if !ok {
			counter = signals.NewCounter()
			days.Set(day, counter)
		}
		counter.Add(label, 1)

		for _, token := range signals.Tokenize(entry.Text) {
			keywords.Add(token, 1)
		}
		for _, tag := range entry.Tags {
			keywords.Add(strings.ToLower(tag), tagWeight)
		}
	}

	if totals.Len() == 0 {
		return result
	}

	for _, row := range totals.MostCommon(0) {
		result.TopEmotions = append(result.TopEmotions, models.EmotionShare{
			Label: row.Key,
			Pct:   analytics.Round(row.Count/totals.Total()*100, 1),
		})
	}

	dates := make([]string, 0, days.Len())
	for pair := days.Oldest(); pair != nil; pair = pair.Next() {
		dates = append(dates, pair.Key)
	}
	sort.Strings(dates)

	for _, date := range dates {
		counter, _ := days.Get(date)
		shares := make(map[string]float64, counter.Len())
		for _, row := range counter.Rows() {
			shares[row.Key] = analytics.Round(row.Count/counter.Total(), 3)
		}
		result.Trend = append(result.Trend, models.TrendPoint{Date: date, Shares: shares})

		top, _ := counter.Top()
		result.Heatmap = append(result.Heatmap, models.HeatmapCell{Date: date, DominantLabel: top})
	}

	for _, row := range keywords.MostCommon(MaxKeywords) {
		result.Keywords = append(result.Keywords, models.KeywordCount{Word: row.Key, Count: int(row.Count)})
	}

	return result
}
