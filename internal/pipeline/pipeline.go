package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/echo-server/internal/analytics"
	"github.com/mrwolf/echo-server/internal/insights"
	"github.com/mrwolf/echo-server/internal/logging"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/narrator"
	"github.com/mrwolf/echo-server/internal/reporting"
	"github.com/mrwolf/echo-server/internal/signals"
	"github.com/mrwolf/echo-server/internal/triggers"
)

// Recompute scopes
const (
	ScopeDaily  = "daily"
	ScopeWeekly = "weekly"
	ScopeAll    = "all"
)

// Insight day range
const (
	DefaultInsightDays = 7
	MaxInsightDays     = 365
)

var (
	ErrInvalidScope  = errors.New("invalid recompute scope")
	ErrInvalidPeriod = errors.New("invalid summary period")
)

// Store is what the pipeline needs from persistence
type Store interface {
	FetchEntries(owner string, start, end time.Time) ([]models.JournalEntry, error)
	UpsertDailyMetrics(records []models.DailyMetric) error
	DailyMetrics(owner, startDate, endDate string) ([]models.DailyMetric, error)
	UpsertWeeklyMetrics(records []models.WeeklyMetric) error
	WeeklyMetrics(owner, startDate, endDate string) ([]models.WeeklyMetric, error)
	Triggers(owner string) ([]models.Trigger, error)
	UpsertSummary(record models.SummaryRecord) error
}

// Config holds lookback windows in days
type Config struct {
	DailyLookbackDays   int
	WeeklyLookbackDays  int
	TriggerLookbackDays int
}

// DefaultConfig returns the standard lookback windows
func DefaultConfig() Config {
	return Config{
		DailyLookbackDays:   30,
		WeeklyLookbackDays:  90,
		TriggerLookbackDays: 180,
	}
}

// Pipeline fetches entries, runs the pure aggregators and writes results back
type Pipeline struct {
	store Store
	clock clockwork.Clock
	cfg   Config
}

// New creates a pipeline. A nil clock uses the real clock.
func New(store Store, clock clockwork.Clock, cfg Config) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultConfig()
	if cfg.DailyLookbackDays <= 0 {
		cfg.DailyLookbackDays = def.DailyLookbackDays
	}
	if cfg.WeeklyLookbackDays <= 0 {
		cfg.WeeklyLookbackDays = def.WeeklyLookbackDays
	}
	if cfg.TriggerLookbackDays <= 0 {
		cfg.TriggerLookbackDays = def.TriggerLookbackDays
	}
	return &Pipeline{store: store, clock: clock, cfg: cfg}
}

// Now returns the pipeline clock's current UTC time
func (p *Pipeline) Now() time.Time {
	return p.clock.Now().UTC()
}

func (p *Pipeline) fetch(owner string, start, end time.Time) ([]models.JournalEntry, error) {
	entries, _, err := p.fetchCounted(owner, start, end)
	return entries, err
}

// fetchCounted also returns how many entries the aggregators will skip
func (p *Pipeline) fetchCounted(owner string, start, end time.Time) ([]models.JournalEntry, int, error) {
	entries, err := p.store.FetchEntries(owner, start, end)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching entries: %w", err)
	}
	skipped := analytics.CountMalformed(entries)
	if skipped > 0 {
		logging.Warn("skipping malformed entries", "owner", owner, "skipped", skipped, "total", len(entries))
	}
	return entries, skipped, nil
}

// RecomputeDaily widens [start, end] to whole UTC days, then rebuilds and
// overwrites the daily records for that range
func (p *Pipeline) RecomputeDaily(owner string, start, end time.Time) ([]models.DailyMetric, error) {
	daily, _, err := p.recomputeDaily(owner, start, end)
	return daily, err
}

func (p *Pipeline) recomputeDaily(owner string, start, end time.Time) ([]models.DailyMetric, int, error) {
	// A partial first or last day would overwrite a complete stored record
	start = signals.DayStart(start)
	end = signals.DayStart(end).AddDate(0, 0, 1).Add(-time.Nanosecond)

	entries, skipped, err := p.fetchCounted(owner, start, end)
	if err != nil {
		return nil, 0, err
	}

	daily := analytics.ComputeDailyMetrics(entries)
	if err := p.store.UpsertDailyMetrics(daily); err != nil {
		return nil, 0, fmt.Errorf("storing daily metrics: %w", err)
	}
	return daily, skipped, nil
}

// RecomputeWeekly widens [start, end] to whole weeks, then rebuilds the daily
// and weekly records for that range
func (p *Pipeline) RecomputeWeekly(owner string, start, end time.Time) ([]models.DailyMetric, []models.WeeklyMetric, error) {
	daily, weekly, _, err := p.recomputeWeekly(owner, start, end)
	return daily, weekly, err
}

func (p *Pipeline) recomputeWeekly(owner string, start, end time.Time) ([]models.DailyMetric, []models.WeeklyMetric, int, error) {
	start = signals.WeekStart(start)
	end = signals.WeekStart(end).AddDate(0, 0, 7).Add(-time.Nanosecond)

	entries, skipped, err := p.fetchCounted(owner, start, end)
	if err != nil {
		return nil, nil, 0, err
	}

	daily := analytics.ComputeDailyMetrics(entries)
	if err := p.store.UpsertDailyMetrics(daily); err != nil {
		return nil, nil, 0, fmt.Errorf("storing daily metrics: %w", err)
	}

	weekly := analytics.ComputeWeeklyMetrics(entries, daily)
	if err := p.store.UpsertWeeklyMetrics(weekly); err != nil {
		return nil, nil, 0, fmt.Errorf("storing weekly metrics: %w", err)
	}
	return daily, weekly, skipped, nil
}

// Recompute runs a scope over its trailing lookback window
func (p *Pipeline) Recompute(owner, scope string) (models.RecomputeResponse, error) {
	now := p.Now()
	resp := models.RecomputeResponse{Scope: scope}

	switch scope {
	case ScopeDaily:
		daily, skipped, err := p.recomputeDaily(owner, now.AddDate(0, 0, -p.cfg.DailyLookbackDays), now)
		if err != nil {
			return resp, err
		}
		resp.Daily = len(daily)
		resp.Skipped = skipped
	case ScopeWeekly, ScopeAll:
		lookback := p.cfg.WeeklyLookbackDays
		if scope == ScopeAll && p.cfg.DailyLookbackDays > lookback {
			lookback = p.cfg.DailyLookbackDays
		}
		daily, weekly, skipped, err := p.recomputeWeekly(owner, now.AddDate(0, 0, -lookback), now)
		if err != nil {
			return resp, err
		}
		resp.Daily = len(daily)
		resp.Weekly = len(weekly)
		resp.Skipped = skipped
	default:
		return resp, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return resp, nil
}

// WeeklyReport builds the report for the week starting at weekStart's Monday.
// The week and the one before it are recomputed so the report never reads
// stale records.
func (p *Pipeline) WeeklyReport(owner string, weekStart time.Time) (models.WeeklyReportPayload, error) {
	start := signals.WeekStart(weekStart)
	end := start.AddDate(0, 0, 6)
	prevStart := start.AddDate(0, 0, -7)

	daily, weekly, err := p.RecomputeWeekly(owner, prevStart, start)
	if err != nil {
		return models.WeeklyReportPayload{}, err
	}

	current := models.WeeklyMetric{UserID: owner, WeekStart: signals.DateKey(start), WeekEnd: signals.DateKey(end)}
	var previous *models.WeeklyMetric
	for i := range weekly {
		switch weekly[i].WeekStart {
		case current.WeekStart:
			current = weekly[i]
		case signals.DateKey(prevStart):
			previous = &weekly[i]
		}
	}

	entries, err := p.fetch(owner, start, end.AddDate(0, 0, 1).Add(-time.Nanosecond))
	if err != nil {
		return models.WeeklyReportPayload{}, err
	}

	return reporting.BuildWeeklyReport(reporting.Input{
		Owner:     owner,
		WeekStart: start,
		WeekEnd:   end,
		Weekly:    current,
		Previous:  previous,
		Entries:   entries,
		Daily:     daily,
	}), nil
}

// periodDays maps a summary period onto its lookback
var periodDays = map[string]int{
	string(narrator.Day):   1,
	string(narrator.Week):  7,
	string(narrator.Month): 30,
}

// Summary narrates the trailing period. Week summaries are also stored,
// keyed by the current week's Monday.
func (p *Pipeline) Summary(owner, period string) (models.SummaryResponse, error) {
	days, ok := periodDays[period]
	if !ok {
		return models.SummaryResponse{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	now := p.Now()
	entries, err := p.fetch(owner, now.AddDate(0, 0, -days), now)
	if err != nil {
		return models.SummaryResponse{}, err
	}

	text := narrator.Build(entries, period)

	if period == string(narrator.Week) {
		record := models.SummaryRecord{
			UserID:      owner,
			Period:      period,
			PeriodStart: signals.DateKey(signals.WeekStart(now)),
			Text:        text,
			CreatedAt:   signals.FormatTimestamp(now),
		}
		if err := p.store.UpsertSummary(record); err != nil {
			return models.SummaryResponse{}, fmt.Errorf("storing summary: %w", err)
		}
	}

	return models.SummaryResponse{Period: period, Summary: text, Entries: len(entries)}, nil
}

// Insights summarizes the trailing days, clamped to 1..MaxInsightDays
func (p *Pipeline) Insights(owner string, days int) (models.Insights, error) {
	if days <= 0 {
		days = DefaultInsightDays
	}
	if days > MaxInsightDays {
		days = MaxInsightDays
	}

	now := p.Now()
	entries, err := p.fetch(owner, now.AddDate(0, 0, -days), now)
	if err != nil {
		return models.Insights{}, err
	}
	return insights.Summarize(entries), nil
}

// TriggerStats correlates the owner's triggers over the trigger lookback
func (p *Pipeline) TriggerStats(owner string) ([]models.TriggerStat, error) {
	defs, err := p.store.Triggers(owner)
	if err != nil {
		return nil, fmt.Errorf("loading triggers: %w", err)
	}

	now := p.Now()
	entries, err := p.fetch(owner, now.AddDate(0, 0, -p.cfg.TriggerLookbackDays), now)
	if err != nil {
		return nil, err
	}
	return triggers.ComputeStats(entries, defs), nil
}

// SuggestTriggers proposes trigger words from the trigger lookback
func (p *Pipeline) SuggestTriggers(owner string, limit int) ([]triggers.Suggestion, error) {
	now := p.Now()
	entries, err := p.fetch(owner, now.AddDate(0, 0, -p.cfg.TriggerLookbackDays), now)
	if err != nil {
		return nil, err
	}
	return triggers.Suggest(entries, limit), nil
}

// Daily returns stored daily records for [startDate, endDate]
func (p *Pipeline) Daily(owner, startDate, endDate string) ([]models.DailyMetric, error) {
	records, err := p.store.DailyMetrics(owner, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("loading daily metrics: %w", err)
	}
	return records, nil
}

// Weekly returns stored weekly records whose week starts in [startDate, endDate]
func (p *Pipeline) Weekly(owner, startDate, endDate string) ([]models.WeeklyMetric, error) {
	records, err := p.store.WeeklyMetrics(owner, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("loading weekly metrics: %w", err)
	}
	return records, nil
}
