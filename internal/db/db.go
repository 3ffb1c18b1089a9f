package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/signals"
)

const schema = `
-- Journal entries with classifier output and derived fields
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at TEXT NOT NULL,       -- fixed-width UTC, sortable as text
    emotion_json TEXT NOT NULL DEFAULT '[]',
    sentiment_score REAL,
    entry_length INTEGER,
    time_of_day TEXT,
    day_of_week INTEGER,
    tags TEXT NOT NULL DEFAULT '[]'
);

-- Trigger word lists per owner
CREATE TABLE IF NOT EXISTS triggers (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    words TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(user_id, name)
);

-- Daily aggregates, replaced wholesale on recompute
CREATE TABLE IF NOT EXISTS daily_metrics (
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,
    avg_sentiment REAL,
    top_emotion TEXT,
    emotion_counts TEXT NOT NULL,
    message_count INTEGER NOT NULL,
    avg_entry_length REAL,
    time_buckets TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, date)
);

-- Weekly aggregates, replaced wholesale on recompute
CREATE TABLE IF NOT EXISTS weekly_metrics (
    user_id TEXT NOT NULL,
    week_start TEXT NOT NULL,
    week_end TEXT NOT NULL,
    avg_sentiment REAL,
    top_emotion TEXT,
    emotion_counts TEXT NOT NULL,
    message_count INTEGER NOT NULL,
    volatility REAL NOT NULL,
    corr_summary TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, week_start)
);

-- Narrative summaries
CREATE TABLE IF NOT EXISTS summaries (
    user_id TEXT NOT NULL,
    period TEXT NOT NULL,
    period_start TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (user_id, period, period_start)
);

-- Scheduler job tracking per owner
CREATE TABLE IF NOT EXISTS scheduler_runs (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    job_type TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_user_created ON entries(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);
CREATE INDEX IF NOT EXISTS idx_scheduler_user ON scheduler_runs(user_id, job_type);
`

// timeLayout keeps stored timestamps fixed-width so text comparison orders them
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func now() string {
	return formatTime(time.Now())
}

// InsertEntry annotates and stores an entry, assigning an ID if it has none
func (db *DB) InsertEntry(entry models.JournalEntry) (models.JournalEntry, error) {
	annotated, err := signals.Annotate(entry)
	if err != nil {
		return models.JournalEntry{}, err
	}
	if annotated.ID == "" {
		annotated.ID = uuid.NewString()
	}
	created, _ := signals.ParseTimestamp(annotated.CreatedAt)

	emotions, err := json.Marshal(nonNilEmotions(annotated.Emotions))
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("encoding emotions: %w", err)
	}
	tags, err := json.Marshal(nonNilStrings(annotated.Tags))
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("encoding tags: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO entries (id, user_id, text, created_at, emotion_json, sentiment_score, entry_length, time_of_day, day_of_week, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, annotated.ID, annotated.UserID, annotated.Text, formatTime(created), string(emotions),
		annotated.SentimentScore, annotated.EntryLength, annotated.TimeOfDay, annotated.DayOfWeek, string(tags))
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("inserting entry: %w", err)
	}
	return annotated, nil
}

// FetchEntries returns entries created in [start, end] ordered by creation
// time. An empty owner returns every owner's entries.
func (db *DB) FetchEntries(owner string, start, end time.Time) ([]models.JournalEntry, error) {
	query := `
		SELECT id, user_id, text, created_at, emotion_json, sentiment_score, entry_length, time_of_day, day_of_week, tags
		FROM entries
		WHERE created_at >= ? AND created_at <= ?`
	args := []interface{}{formatTime(start), formatTime(end)}
	if owner != "" {
		query += ` AND user_id = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var emotionJSON, tagsJSON string
		var sentiment sql.NullFloat64
		var length, weekday sql.NullInt64
		var bucket sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Text, &e.CreatedAt, &emotionJSON, &sentiment, &length, &bucket, &weekday, &tagsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(emotionJSON), &e.Emotions); err != nil {
			return nil, fmt.Errorf("decoding emotions for entry %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags for entry %s: %w", e.ID, err)
		}
		if sentiment.Valid {
			s := sentiment.Float64
			e.SentimentScore = &s
		}
		if length.Valid {
			l := int(length.Int64)
			e.EntryLength = &l
		}
		if weekday.Valid {
			w := int(weekday.Int64)
			e.DayOfWeek = &w
		}
		e.TimeOfDay = bucket.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Owners returns every owner with at least one entry
func (db *DB) Owners() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT user_id FROM entries ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// UpsertTrigger creates a trigger or replaces the words of an existing one with the same name
func (db *DB) UpsertTrigger(trigger models.Trigger) (models.Trigger, error) {
	words, err := json.Marshal(nonNilStrings(trigger.Words))
	if err != nil {
		return models.Trigger{}, fmt.Errorf("encoding words: %w", err)
	}

	ts := now()
	_, err = db.conn.Exec(`
		INSERT INTO triggers (id, user_id, name, words, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO UPDATE SET
			words = excluded.words,
			updated_at = excluded.updated_at
	`, uuid.NewString(), trigger.UserID, trigger.Name, string(words), ts, ts)
	if err != nil {
		return models.Trigger{}, fmt.Errorf("upserting trigger: %w", err)
	}

	err = db.conn.QueryRow(`SELECT id FROM triggers WHERE user_id = ? AND name = ?`,
		trigger.UserID, trigger.Name).Scan(&trigger.ID)
	if err != nil {
		return models.Trigger{}, fmt.Errorf("reading trigger id: %w", err)
	}
	return trigger, nil
}

// Triggers returns an owner's triggers in creation order
func (db *DB) Triggers(owner string) ([]models.Trigger, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, name, words
		FROM triggers
		WHERE user_id = ?
		ORDER BY created_at ASC, name ASC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Trigger
	for rows.Next() {
		var t models.Trigger
		var words string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &words); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(words), &t.Words); err != nil {
			return nil, fmt.Errorf("decoding words for trigger %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertDailyMetrics overwrites daily records by (user_id, date)
func (db *DB) UpsertDailyMetrics(records []models.DailyMetric) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_metrics (user_id, date, avg_sentiment, top_emotion, emotion_counts, message_count, avg_entry_length, time_buckets, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			avg_sentiment = excluded.avg_sentiment,
			top_emotion = excluded.top_emotion,
			emotion_counts = excluded.emotion_counts,
			message_count = excluded.message_count,
			avg_entry_length = excluded.avg_entry_length,
			time_buckets = excluded.time_buckets,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := now()
	for _, r := range records {
		counts, err := json.Marshal(r.EmotionCounts)
		if err != nil {
			return fmt.Errorf("encoding emotion counts: %w", err)
		}
		buckets, err := json.Marshal(r.TimeBuckets)
		if err != nil {
			return fmt.Errorf("encoding time buckets: %w", err)
		}
		if _, err := stmt.Exec(r.UserID, r.Date, r.AvgSentiment, r.TopEmotion, string(counts),
			r.MessageCount, r.AvgEntryLength, string(buckets), ts); err != nil {
			return fmt.Errorf("upserting daily metric %s/%s: %w", r.UserID, r.Date, err)
		}
	}
	return tx.Commit()
}

// DailyMetrics returns an owner's daily records for [startDate, endDate]
func (db *DB) DailyMetrics(owner, startDate, endDate string) ([]models.DailyMetric, error) {
	rows, err := db.conn.Query(`
		SELECT user_id, date, avg_sentiment, top_emotion, emotion_counts, message_count, avg_entry_length, time_buckets
		FROM daily_metrics
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, owner, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyMetric
	for rows.Next() {
		var r models.DailyMetric
		var avg, avgLen sql.NullFloat64
		var top sql.NullString
		var counts, buckets string
		if err := rows.Scan(&r.UserID, &r.Date, &avg, &top, &counts, &r.MessageCount, &avgLen, &buckets); err != nil {
			return nil, err
		}
		r.AvgSentiment = nullFloat(avg)
		r.AvgEntryLength = nullFloat(avgLen)
		r.TopEmotion = top.String
		if err := json.Unmarshal([]byte(counts), &r.EmotionCounts); err != nil {
			return nil, fmt.Errorf("decoding emotion counts: %w", err)
		}
		if err := json.Unmarshal([]byte(buckets), &r.TimeBuckets); err != nil {
			return nil, fmt.Errorf("decoding time buckets: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertWeeklyMetrics overwrites weekly records by (user_id, week_start)
func (db *DB) UpsertWeeklyMetrics(records []models.WeeklyMetric) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO weekly_metrics (user_id, week_start, week_end, avg_sentiment, top_emotion, emotion_counts, message_count, volatility, corr_summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, week_start) DO UPDATE SET
			week_end = excluded.week_end,
			avg_sentiment = excluded.avg_sentiment,
			top_emotion = excluded.top_emotion,
			emotion_counts = excluded.emotion_counts,
			message_count = excluded.message_count,
			volatility = excluded.volatility,
			corr_summary = excluded.corr_summary,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := now()
	for _, r := range records {
		counts, err := json.Marshal(r.EmotionCounts)
		if err != nil {
			return fmt.Errorf("encoding emotion counts: %w", err)
		}
		corr, err := json.Marshal(r.CorrSummary)
		if err != nil {
			return fmt.Errorf("encoding correlation summary: %w", err)
		}
		if _, err := stmt.Exec(r.UserID, r.WeekStart, r.WeekEnd, r.AvgSentiment, r.TopEmotion, string(counts),
			r.MessageCount, r.Volatility, string(corr), ts); err != nil {
			return fmt.Errorf("upserting weekly metric %s/%s: %w", r.UserID, r.WeekStart, err)
		}
	}
	return tx.Commit()
}

// WeeklyMetrics returns an owner's weekly records starting in [startDate, endDate]
func (db *DB) WeeklyMetrics(owner, startDate, endDate string) ([]models.WeeklyMetric, error) {
	rows, err := db.conn.Query(`
		SELECT user_id, week_start, week_end, avg_sentiment, top_emotion, emotion_counts, message_count, volatility, corr_summary
		FROM weekly_metrics
		WHERE user_id = ? AND week_start >= ? AND week_start <= ?
		ORDER BY week_start ASC
	`, owner, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WeeklyMetric
	for rows.Next() {
		var r models.WeeklyMetric
		var avg sql.NullFloat64
		var top sql.NullString
		var counts, corr string
		if err := rows.Scan(&r.UserID, &r.WeekStart, &r.WeekEnd, &avg, &top, &counts, &r.MessageCount, &r.Volatility, &corr); err != nil {
			return nil, err
		}
		r.AvgSentiment = nullFloat(avg)
		r.TopEmotion = top.String
		if err := json.Unmarshal([]byte(counts), &r.EmotionCounts); err != nil {
			return nil, fmt.Errorf("decoding emotion counts: %w", err)
		}
		if err := json.Unmarshal([]byte(corr), &r.CorrSummary); err != nil {
			return nil, fmt.Errorf("decoding correlation summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertSummary stores a narrative, replacing any for the same owner and period
func (db *DB) UpsertSummary(record models.SummaryRecord) error {
	if record.CreatedAt == "" {
		record.CreatedAt = now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO summaries (user_id, period, period_start, text, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, period, period_start) DO UPDATE SET
			text = excluded.text,
			created_at = excluded.created_at
	`, record.UserID, record.Period, record.PeriodStart, record.Text, record.CreatedAt)
	return err
}

// LatestSummary returns the newest summary of a period, or nil if none
func (db *DB) LatestSummary(owner, period string) (*models.SummaryRecord, error) {
	var r models.SummaryRecord
	err := db.conn.QueryRow(`
		SELECT user_id, period, period_start, text, created_at
		FROM summaries
		WHERE user_id = ? AND period = ?
		ORDER BY period_start DESC
		LIMIT 1
	`, owner, period).Scan(&r.UserID, &r.Period, &r.PeriodStart, &r.Text, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// StartSchedulerRun records the start of a scheduler job
func (db *DB) StartSchedulerRun(owner, jobType string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO scheduler_runs (id, user_id, job_type, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, owner, jobType, models.RunStatusRunning, now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// CompleteSchedulerRun marks a scheduler job as completed
func (db *DB) CompleteSchedulerRun(runID, errMsg string) error {
	status := models.RunStatusCompleted
	if errMsg != "" {
		status = models.RunStatusFailed
	}
	_, err := db.conn.Exec(`
		UPDATE scheduler_runs
		SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`, status, now(), errMsg, runID)
	return err
}

// LastSchedulerRun returns the last run for an owner and job type
func (db *DB) LastSchedulerRun(owner, jobType string) (*models.SchedulerRun, error) {
	var run models.SchedulerRun
	var completed, errMsg sql.NullString
	err := db.conn.QueryRow(`
		SELECT id, user_id, job_type, status, started_at, completed_at, error_message
		FROM scheduler_runs
		WHERE user_id = ? AND job_type = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, owner, jobType).Scan(&run.ID, &run.UserID, &run.JobType, &run.Status, &run.StartedAt, &completed, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.CompletedAt = completed.String
	run.Error = errMsg.String
	return &run, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nonNilEmotions(e []models.EmotionScore) []models.EmotionScore {
	if e == nil {
		return []models.EmotionScore{}
	}
	return e
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
