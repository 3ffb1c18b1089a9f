package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mrwolf/echo-server/internal/config"
	"github.com/mrwolf/echo-server/internal/db"
	"github.com/mrwolf/echo-server/internal/logging"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/pipeline"
	"github.com/mrwolf/echo-server/internal/signals"
	"github.com/mrwolf/echo-server/internal/triggers"
)

const version = "1.0.0"

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func writeInternal(w http.ResponseWriter, msg string, err error) {
	logging.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, msg, "INTERNAL")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type Handlers struct {
	cfg      *config.Config
	db       *db.DB
	pipeline *pipeline.Pipeline
}

func NewHandlers(cfg *config.Config, database *db.DB, p *pipeline.Pipeline) *Handlers {
	return &Handlers{
		cfg:      cfg,
		db:       database,
		pipeline: p,
	}
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:  "ok",
		DB:      "connected",
		Version: version,
	}
	if err := h.db.Ping(); err != nil {
		resp.Status = "degraded"
		resp.DB = "error: " + err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, resp)
}

// CreateEntryRequest is the body of POST /entries
type CreateEntryRequest struct {
	Text           string                `json:"text"`
	CreatedAt      string                `json:"created_at"`
	Emotions       []models.EmotionScore `json:"emotions"`
	SentimentScore *float64              `json:"sentiment_score,omitempty"`
	Tags           []string              `json:"tags,omitempty"`
}

// CreateEntryResponse is the stored entry plus what the server noticed in it
type CreateEntryResponse struct {
	models.JournalEntry
	Keywords []string `json:"keywords"`
	Trigger  string   `json:"trigger,omitempty"`
}

// CreateEntry handles POST /entries
func (h *Handlers) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required", "INVALID_PARAM")
		return
	}
	if req.CreatedAt == "" {
		req.CreatedAt = signals.FormatTimestamp(h.pipeline.Now())
	}

	stored, err := h.db.InsertEntry(models.JournalEntry{
		UserID:         GetOwner(r),
		Text:           req.Text,
		CreatedAt:      req.CreatedAt,
		Emotions:       req.Emotions,
		SentimentScore: req.SentimentScore,
		Tags:           req.Tags,
	})
	if errors.Is(err, signals.ErrBadTimestamp) {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAM")
		return
	}
	if err != nil {
		writeInternal(w, "failed to store entry", err)
		return
	}

	resp := CreateEntryResponse{
		JournalEntry: stored,
		Keywords:     signals.ExtractTerms(stored.Text, 5),
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}

	// Entry is stored; a trigger lookup failure only drops the hint
	defs, err := h.db.Triggers(stored.UserID)
	if err != nil {
		logging.Warn("loading triggers for new entry", "owner", stored.UserID, "err", err)
	} else if name, ok := triggers.MatchName(stored.Text, defs); ok {
		resp.Trigger = name
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ListEntries handles GET /entries?start=&end=
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.timeRange(w, r, 7)
	if !ok {
		return
	}

	entries, err := h.db.FetchEntries(GetOwner(r), start, end)
	if err != nil {
		writeInternal(w, "failed to load entries", err)
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Daily handles GET /analytics/daily?start=&end=
func (h *Handlers) Daily(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.timeRange(w, r, 30)
	if !ok {
		return
	}

	records, err := h.pipeline.Daily(GetOwner(r), signals.DateKey(start), signals.DateKey(end))
	if err != nil {
		writeInternal(w, "failed to load daily metrics", err)
		return
	}
	if records == nil {
		records = []models.DailyMetric{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Weekly handles GET /analytics/weekly?start=&end=
func (h *Handlers) Weekly(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.timeRange(w, r, 90)
	if !ok {
		return
	}

	records, err := h.pipeline.Weekly(GetOwner(r), signals.DateKey(signals.WeekStart(start)), signals.DateKey(end))
	if err != nil {
		writeInternal(w, "failed to load weekly metrics", err)
		return
	}
	if records == nil {
		records = []models.WeeklyMetric{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Recompute handles POST /analytics/recompute?scope=daily|weekly|all
func (h *Handlers) Recompute(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = pipeline.ScopeAll
	}

	resp, err := h.pipeline.Recompute(GetOwner(r), scope)
	if errors.Is(err, pipeline.ErrInvalidScope) {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAM")
		return
	}
	if err != nil {
		writeInternal(w, "recompute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Insights handles GET /insights/summary?days=N
func (h *Handlers) Insights(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", pipeline.DefaultInsightDays, 1, pipeline.MaxInsightDays)
	if !ok {
		return
	}

	result, err := h.pipeline.Insights(GetOwner(r), days)
	if err != nil {
		writeInternal(w, "failed to build insights", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListTriggers handles GET /triggers
func (h *Handlers) ListTriggers(w http.ResponseWriter, r *http.Request) {
	defs, err := h.db.Triggers(GetOwner(r))
	if err != nil {
		writeInternal(w, "failed to load triggers", err)
		return
	}
	if defs == nil {
		defs = []models.Trigger{}
	}
	writeJSON(w, http.StatusOK, defs)
}

// TriggerRequest is the body of POST /triggers
type TriggerRequest struct {
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

// UpsertTrigger handles POST /triggers
func (h *Handlers) UpsertTrigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	trigger, err := triggers.Normalize(GetOwner(r), req.Name, req.Words)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAM")
		return
	}

	stored, err := h.db.UpsertTrigger(trigger)
	if err != nil {
		writeInternal(w, "failed to store trigger", err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// TriggerStats handles GET /triggers/stats
func (h *Handlers) TriggerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipeline.TriggerStats(GetOwner(r))
	if err != nil {
		writeInternal(w, "failed to compute trigger stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// SuggestTriggers handles GET /triggers/suggest?limit=N
func (h *Handlers) SuggestTriggers(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", triggers.DefaultSuggestLimit, 1, 50)
	if !ok {
		return
	}

	suggestions, err := h.pipeline.SuggestTriggers(GetOwner(r), limit)
	if err != nil {
		writeInternal(w, "failed to suggest triggers", err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// Summary handles GET /summary?period=day|week|month
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	resp, err := h.pipeline.Summary(GetOwner(r), period)
	if errors.Is(err, pipeline.ErrInvalidPeriod) {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAM")
		return
	}
	if err != nil {
		writeInternal(w, "failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// LatestSummary handles GET /summary/latest?period=week
func (h *Handlers) LatestSummary(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	record, err := h.db.LatestSummary(GetOwner(r), period)
	if err != nil {
		writeInternal(w, "failed to load summary", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "no stored summary for period "+period, "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// LastRun handles GET /jobs/{job}/last
func (h *Handlers) LastRun(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")

	run, err := h.db.LastSchedulerRun(GetOwner(r), job)
	if err != nil {
		writeInternal(w, "failed to load job run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no runs recorded for "+job, "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// WeeklyReport handles GET /reports/weekly?week_start=YYYY-MM-DD
// Defaults to the previous full week.
func (h *Handlers) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	weekStart := signals.WeekStart(h.pipeline.Now()).AddDate(0, 0, -7)
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := signals.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD", "INVALID_PARAM")
			return
		}
		weekStart = parsed
	}

	report, err := h.pipeline.WeeklyReport(GetOwner(r), weekStart)
	if err != nil {
		writeInternal(w, "failed to build weekly report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Schema handles GET /schema/{name}
func (h *Handlers) Schema(w http.ResponseWriter, r *http.Request) {
	schema, ok := models.SchemaFor(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown schema", "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// timeRange reads start/end query params (YYYY-MM-DD or RFC 3339). end
// defaults to now and start to defaultDays before end. A date-only end covers
// the whole day.
func (h *Handlers) timeRange(w http.ResponseWriter, r *http.Request, defaultDays int) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	end := h.pipeline.Now()
	if raw := q.Get("end"); raw != "" {
		t, err := parseBound(raw, true)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end", "INVALID_PARAM")
			return time.Time{}, time.Time{}, false
		}
		end = t
	}

	start := end.AddDate(0, 0, -defaultDays)
	if raw := q.Get("start"); raw != "" {
		t, err := parseBound(raw, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start", "INVALID_PARAM")
			return time.Time{}, time.Time{}, false
		}
		start = t
	}

	if start.After(end) {
		writeError(w, http.StatusBadRequest, "start must not be after end", "INVALID_PARAM")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseBound(raw string, endOfDay bool) (time.Time, error) {
	if d, err := signals.ParseDate(raw); err == nil {
		if endOfDay {
			return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return d, nil
	}
	return signals.ParseTimestamp(raw)
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		writeError(w, http.StatusBadRequest, name+" must be between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi), "INVALID_PARAM")
		return 0, false
	}
	return n, true
}
