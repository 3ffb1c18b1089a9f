package models

// EmotionScore is one label of a classifier's score distribution
type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// JournalEntry is a single reflection as supplied by the store.
// CreatedAt is kept in its wire form; parsing happens per entry so that one
// corrupt timestamp only drops that entry from an aggregation.
type JournalEntry struct {
	ID             string         `json:"id,omitempty"`
	UserID         string         `json:"user_id"`
	Text           string         `json:"text"`
	CreatedAt      string         `json:"created_at"`
	Emotions       []EmotionScore `json:"emotions,omitempty"`
	SentimentScore *float64       `json:"sentiment_score,omitempty"`
	EntryLength    *int           `json:"entry_length,omitempty"`
	TimeOfDay      string         `json:"time_of_day,omitempty"` // "Morning", "Afternoon", "Evening", "Night"
	DayOfWeek      *int           `json:"day_of_week,omitempty"` // 0=Mon .. 6=Sun
	Tags           []string       `json:"tags,omitempty"`
}

// BucketStat is the per time-of-day slice of a daily record
type BucketStat struct {
	MessageCount int      `json:"message_count"`
	AvgSentiment *float64 `json:"avg_sentiment"`
}

// DailyMetric aggregates one owner's entries for one UTC calendar date
type DailyMetric struct {
	UserID         string                `json:"user_id"`
	Date           string                `json:"date"` // YYYY-MM-DD
	AvgSentiment   *float64              `json:"avg_sentiment"`
	TopEmotion     string                `json:"top_emotion"`
	EmotionCounts  map[string]int        `json:"emotion_counts"`
	MessageCount   int                   `json:"message_count"`
	AvgEntryLength *float64              `json:"avg_entry_length"`
	TimeBuckets    map[string]BucketStat `json:"time_buckets"`
}

// CorrSummary is the correlation bundle attached to a weekly record
type CorrSummary struct {
	EntryLengthVsSentimentPearson *float64           `json:"entry_length_vs_sentiment_pearson"`
	EntryLengthSampleSize         int                `json:"entry_length_sample_size"`
	TimeOfDayMeanSentiment        map[string]float64 `json:"time_of_day_mean_sentiment"`
	WeekdayMeanSentiment          map[string]float64 `json:"weekday_mean_sentiment"`
}

// WeeklyMetric aggregates one owner's entries for one Monday-aligned week
type WeeklyMetric struct {
	UserID        string         `json:"user_id"`
	WeekStart     string         `json:"week_start"`
	WeekEnd       string         `json:"week_end"`
	AvgSentiment  *float64       `json:"avg_sentiment"`
	TopEmotion    string         `json:"top_emotion"`
	EmotionCounts map[string]int `json:"emotion_counts"`
	MessageCount  int            `json:"message_count"`
	Volatility    float64        `json:"volatility"`
	CorrSummary   CorrSummary    `json:"corr_summary"`
}

// Trigger is a user-defined set of words to watch for
type Trigger struct {
	ID     string   `json:"id,omitempty"`
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Words  []string `json:"words"`
}

// TriggerStat reports how entries mentioning a trigger differ from the owner's baseline
type TriggerStat struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Words       []string           `json:"words"`
	Count       int                `json:"count"`
	Correlation map[string]float64 `json:"correlation"`
}

// EmotionShare is one row of the top-emotions breakdown
type EmotionShare struct {
	Label string  `json:"label"`
	Pct   float64 `json:"pct"`
}

// TrendPoint holds each emotion's share of a day's entries
type TrendPoint struct {
	Date   string             `json:"date"`
	Shares map[string]float64 `json:"shares"`
}

// HeatmapCell is the dominant label for a day
type HeatmapCell struct {
	Date          string `json:"date"`
	DominantLabel string `json:"dominant_label"`
}

// KeywordCount is a ranked keyword in the insights view
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Insights is the short-horizon dashboard view
type Insights struct {
	TopEmotions []EmotionShare `json:"top_emotions"`
	Trend       []TrendPoint   `json:"trend"`
	Keywords    []KeywordCount `json:"keywords"`
	Heatmap     []HeatmapCell  `json:"heatmap"`
}

// WeekRange bounds a report
type WeekRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CorrelationStat is the entry-length/sentiment correlation in a report
type CorrelationStat struct {
	Pearson    *float64 `json:"entry_length_vs_sentiment_pearson"`
	SampleSize int      `json:"entry_length_sample_size"`
}

// KeywordStat is a top keyword with the mean sentiment of the entries using it
type KeywordStat struct {
	Term         string  `json:"term"`
	Count        int     `json:"count"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// Spike is a day whose average sentiment stands out from its week
type Spike struct {
	Date         string  `json:"date"`
	AvgSentiment float64 `json:"avg_sentiment"`
	ZScore       float64 `json:"zscore"`
}

// WeeklyReportPayload is the structured weekly report
type WeeklyReportPayload struct {
	WeekRange       WeekRange          `json:"week_range"`
	AvgSentiment    float64            `json:"avg_sentiment"`
	DeltaVsPrevWeek *float64           `json:"delta_vs_prev_week"`
	EmotionCounts   map[string]int     `json:"emotion_counts"`
	MessageCount    int                `json:"message_count"`
	TopEmotion      string             `json:"top_emotion,omitempty"`
	Volatility      float64            `json:"volatility"`
	TimeOfDayMeans  map[string]float64 `json:"time_of_day_means"`
	WeekdayMeans    map[string]float64 `json:"weekday_means"`
	Correlations    CorrelationStat    `json:"correlations"`
	TopKeywords     []KeywordStat      `json:"top_keywords"`
	NotableSpikes   []Spike            `json:"notable_spikes"`
}

// SummaryRecord is a stored narrative summary
type SummaryRecord struct {
	UserID      string `json:"user_id"`
	Period      string `json:"period"` // "day", "week", "month"
	PeriodStart string `json:"period_start"`
	Text        string `json:"text"`
	CreatedAt   string `json:"created_at"`
}

// SummaryResponse is returned by the summary endpoint
type SummaryResponse struct {
	Period  string `json:"period"`
	Summary string `json:"summary"`
	Entries int    `json:"entries"`
}

// RecomputeResponse reports how many records a recompute wrote
type RecomputeResponse struct {
	Scope   string `json:"scope"`
	Daily   int    `json:"daily"`
	Weekly  int    `json:"weekly"`
	Skipped int    `json:"skipped"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	DB      string `json:"db"`
	Version string `json:"version"`
}

// SchedulerRun tracks a scheduled job execution
type SchedulerRun struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	JobType     string `json:"job_type"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Scheduler run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Time-of-day buckets
const (
	BucketNight     = "Night"
	BucketMorning   = "Morning"
	BucketAfternoon = "Afternoon"
	BucketEvening   = "Evening"
)
