package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrwolf/echo-server/internal/config"
	"github.com/mrwolf/echo-server/internal/db"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/pipeline"
)

const (
	aliceToken = "test_alice_token"
	bobToken   = "test_bob_token"
)

var testNow = time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

func setupTestServer(t *testing.T) (*httptest.Server, *db.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "echo-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}

	cfg := &config.Config{
		Port:     "0",
		DBPath:   tmpDir + "/test.db",
		Tokens:   map[string]string{aliceToken: "alice", bobToken: "bob"},
		Timezone: "UTC",
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("opening database: %v", err)
	}

	p := pipeline.New(database, clockwork.NewFakeClockAt(testNow), pipeline.DefaultConfig())
	server := httptest.NewServer(NewRouter(cfg, database, p))

	cleanup := func() {
		server.Close()
		database.Close()
		os.RemoveAll(tmpDir)
	}

	return server, database, cleanup
}

func seedEntries(t *testing.T, database *db.DB) {
	t.Helper()

	entries := []models.JournalEntry{
		{
			UserID: "alice", Text: "Deadline at work again, boss was tense", CreatedAt: "2024-03-05T09:00:00Z",
			Emotions: []models.EmotionScore{{Label: "fear", Score: 0.8}, {Label: "joy", Score: 0.2}},
		},
		{
			UserID: "alice", Text: "Lovely walk in the park with family", CreatedAt: "2024-03-06T18:00:00Z",
			Emotions: []models.EmotionScore{{Label: "joy", Score: 0.9}},
			Tags:     []string{"family"},
		},
		{
			UserID: "alice", Text: "Deadline slipped, still tired", CreatedAt: "2024-03-06T22:30:00Z",
			Emotions: []models.EmotionScore{{Label: "tired", Score: 0.7}},
		},
	}
	for _, entry := range entries {
		_, err := database.InsertEntry(entry)
		require.NoError(t, err)
	}
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthEndpoint(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := doRequest(t, "GET", server.URL+"/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.HealthResponse
	decode(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "connected", body.DB)
	assert.Equal(t, "1.0.0", body.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	doRequest(t, "GET", server.URL+"/health", "", "").Body.Close()

	resp := doRequest(t, "GET", server.URL+"/metrics", "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "echo_http_requests_total")
}

func TestAuth(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"unknown token", "invalid_token", http.StatusUnauthorized},
		{"alice", aliceToken, http.StatusOK},
		{"bob", bobToken, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, "GET", server.URL+"/api/v1/entries", tc.token, "")
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestCreateEntry(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	payload := `{"text":"Slow coffee before work","created_at":"2024-03-07T07:15:00Z","emotions":[{"label":"Calm","score":1}]}`
	resp := doRequest(t, "POST", server.URL+"/api/v1/entries", aliceToken, payload)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry models.JournalEntry
	decode(t, resp, &entry)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "alice", entry.UserID)
	assert.Equal(t, models.BucketMorning, entry.TimeOfDay)
	assert.Equal(t, "calm", entry.Emotions[0].Label)
	require.NotNil(t, entry.SentimentScore)
	assert.InDelta(t, 0.6, *entry.SentimentScore, 1e-9)
	require.NotNil(t, entry.DayOfWeek)
	assert.Equal(t, 3, *entry.DayOfWeek)
}

func TestCreateEntryHints(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := doRequest(t, "POST", server.URL+"/api/v1/triggers", aliceToken, `{"name":"Work","words":["work","deadline"]}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := `{"text":"Slow coffee before work","created_at":"2024-03-07T07:15:00Z"}`
	resp = doRequest(t, "POST", server.URL+"/api/v1/entries", aliceToken, payload)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created CreateEntryResponse
	decode(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"slow", "coffee", "before", "work"}, created.Keywords)
	assert.Equal(t, "Work", created.Trigger)

	resp = doRequest(t, "POST", server.URL+"/api/v1/entries", bobToken, payload)
	var other CreateEntryResponse
	decode(t, resp, &other)
	assert.Empty(t, other.Trigger, "triggers are per owner")
}

func TestCreateEntryValidation(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name    string
		payload string
		code    string
	}{
		{"malformed body", `{"text":`, "INVALID_BODY"},
		{"missing text", `{"text":"   ","created_at":"2024-03-07T07:15:00Z"}`, "INVALID_PARAM"},
		{"bad timestamp", `{"text":"hello","created_at":"last tuesday"}`, "INVALID_PARAM"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, "POST", server.URL+"/api/v1/entries", aliceToken, tc.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body ErrorResponse
			decode(t, resp, &body)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestListEntriesIsPerOwner(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()
	seedEntries(t, database)

	var mine []models.JournalEntry
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/entries?start=2024-03-01&end=2024-03-10", aliceToken, ""), &mine)
	assert.Len(t, mine, 3)

	var theirs []models.JournalEntry
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/entries?start=2024-03-01&end=2024-03-10", bobToken, ""), &theirs)
	assert.Empty(t, theirs)

	var oneDay []models.JournalEntry
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/entries?start=2024-03-06&end=2024-03-06", aliceToken, ""), &oneDay)
	assert.Len(t, oneDay, 2)
}

func TestListEntriesRejectsBadRange(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	for _, query := range []string{"?start=nope", "?end=2024-13-01", "?start=2024-03-10&end=2024-03-01"} {
		resp := doRequest(t, "GET", server.URL+"/api/v1/entries"+query, aliceToken, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestRecomputeAndReadMetrics(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()
	seedEntries(t, database)

	resp := doRequest(t, "POST", server.URL+"/api/v1/analytics/recompute?scope=all", aliceToken, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var recompute models.RecomputeResponse
	decode(t, resp, &recompute)
	assert.Equal(t, "all", recompute.Scope)
	assert.Equal(t, 2, recompute.Daily)
	assert.Equal(t, 1, recompute.Weekly)
	assert.Zero(t, recompute.Skipped)

	var daily []models.DailyMetric
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/analytics/daily?start=2024-03-05&end=2024-03-06", aliceToken, ""), &daily)
	require.Len(t, daily, 2)
	assert.Equal(t, "2024-03-05", daily[0].Date)
	require.NotNil(t, daily[0].AvgSentiment)
	assert.InDelta(t, -0.34, *daily[0].AvgSentiment, 1e-6)
	assert.Equal(t, 2, daily[1].MessageCount)
	require.NotNil(t, daily[1].AvgSentiment)
	assert.InDelta(t, 0.25, *daily[1].AvgSentiment, 1e-6)

	var weekly []models.WeeklyMetric
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/analytics/weekly", aliceToken, ""), &weekly)
	require.Len(t, weekly, 1)
	assert.Equal(t, "2024-03-04", weekly[0].WeekStart)
	assert.Equal(t, "2024-03-10", weekly[0].WeekEnd)
	assert.Equal(t, 3, weekly[0].MessageCount)

	var bobDaily []models.DailyMetric
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/analytics/daily?start=2024-03-01&end=2024-03-10", bobToken, ""), &bobDaily)
	assert.Empty(t, bobDaily)
}

func TestRecomputeRejectsUnknownScope(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := doRequest(t, "POST", server.URL+"/api/v1/analytics/recompute?scope=hourly", aliceToken, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INVALID_PARAM", body.Code)
}

func TestInsightsEndpoint(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()
	seedEntries(t, database)

	var result models.Insights
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/insights/summary?days=7", aliceToken, ""), &result)
	require.Len(t, result.TopEmotions, 3)
	assert.Equal(t, "fear", result.TopEmotions[0].Label, "ties keep first appearance")
	assert.InDelta(t, 33.3, result.TopEmotions[0].Pct, 1e-9)
	assert.Len(t, result.Trend, 2)
	assert.Len(t, result.Heatmap, 2)
	require.NotEmpty(t, result.Keywords)
	assert.Equal(t, models.KeywordCount{Word: "deadline", Count: 2}, result.Keywords[0])

	resp := doRequest(t, "GET", server.URL+"/api/v1/insights/summary?days=0", aliceToken, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTriggersLifecycle(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()
	seedEntries(t, database)

	resp := doRequest(t, "POST", server.URL+"/api/v1/triggers", aliceToken, `{"name":"W","words":["deadline"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var rejected ErrorResponse
	decode(t, resp, &rejected)
	assert.Equal(t, "INVALID_PARAM", rejected.Code)

	resp = doRequest(t, "POST", server.URL+"/api/v1/triggers", aliceToken, `{"name":" Work ","words":["Deadline","deadline"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var created models.Trigger
	decode(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Work", created.Name)
	assert.Equal(t, []string{"deadline"}, created.Words)

	var list []models.Trigger
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/triggers", aliceToken, ""), &list)
	require.Len(t, list, 1)

	var stats []models.TriggerStat
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/triggers/stats", aliceToken, ""), &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Count)
	assert.InDelta(t, 16.7, stats[0].Correlation["fear"], 1e-9)
	assert.InDelta(t, 16.7, stats[0].Correlation["tired"], 1e-9)
	assert.NotContains(t, stats[0].Correlation, "joy")

	var suggestions []struct {
		Word    string `json:"word"`
		Entries int    `json:"entries"`
	}
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/triggers/suggest?limit=1", aliceToken, ""), &suggestions)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "deadline", suggestions[0].Word)
	assert.Equal(t, 2, suggestions[0].Entries)
}

func TestSummaryEndpoint(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()
	seedEntries(t, database)

	var summary models.SummaryResponse
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/summary?period=week", aliceToken, ""), &summary)
	assert.Equal(t, "week", summary.Period)
	assert.Equal(t, 3, summary.Entries)
	assert.Contains(t, summary.Summary, "Overview •")
	assert.Contains(t, summary.Summary, "Next step •")

	stored, err := database.LatestSummary("alice", "week")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "2024-03-11", stored.PeriodStart)
	assert.Equal(t, summary.Summary, stored.Text)

	resp := doRequest(t, "GET", server.URL+"/api/v1/summary?period=year", aliceToken, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLatestSummaryEndpoint(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()
	seedEntries(t, database)

	resp := doRequest(t, "GET", server.URL+"/api/v1/summary/latest", aliceToken, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	doRequest(t, "GET", server.URL+"/api/v1/summary?period=week", aliceToken, "").Body.Close()

	var record models.SummaryRecord
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/summary/latest?period=week", aliceToken, ""), &record)
	assert.Equal(t, "alice", record.UserID)
	assert.Equal(t, "2024-03-11", record.PeriodStart)
	assert.Contains(t, record.Text, "Overview •")
}

func TestLastRunEndpoint(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()

	resp := doRequest(t, "GET", server.URL+"/api/v1/jobs/daily-recompute/last", aliceToken, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	runID, err := database.StartSchedulerRun("alice", "daily-recompute")
	require.NoError(t, err)
	require.NoError(t, database.CompleteSchedulerRun(runID, ""))

	var run models.SchedulerRun
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/jobs/daily-recompute/last", aliceToken, ""), &run)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	resp = doRequest(t, "GET", server.URL+"/api/v1/jobs/daily-recompute/last", bobToken, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWeeklyReportEndpoint(t *testing.T) {
	server, database, cleanup := setupTestServer(t)
	defer cleanup()
	seedEntries(t, database)

	var report models.WeeklyReportPayload
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/reports/weekly?week_start=2024-03-06", aliceToken, ""), &report)
	assert.Equal(t, models.WeekRange{Start: "2024-03-04", End: "2024-03-10"}, report.WeekRange)
	assert.Equal(t, 3, report.MessageCount)
	assert.Nil(t, report.DeltaVsPrevWeek)
	assert.NotNil(t, report.NotableSpikes)
	assert.NotEmpty(t, report.TopKeywords)

	// Default is the previous full week relative to the clock.
	var previous models.WeeklyReportPayload
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/reports/weekly", aliceToken, ""), &previous)
	assert.Equal(t, "2024-03-04", previous.WeekRange.Start)

	resp := doRequest(t, "GET", server.URL+"/api/v1/reports/weekly?week_start=03/04/2024", aliceToken, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSchemaEndpoint(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	var schema map[string]interface{}
	decode(t, doRequest(t, "GET", server.URL+"/api/v1/schema/weekly-report", aliceToken, ""), &schema)
	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "week_range")
	assert.Contains(t, props, "notable_spikes")

	resp := doRequest(t, "GET", server.URL+"/api/v1/schema/unknown", aliceToken, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
