package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrwolf/echo-server/internal/models"
)

const sampleEntries = `[
  {"user_id":"alice","text":"Deadline at work again","created_at":"2024-03-04T09:00:00Z","emotions":[{"label":"fear","score":1}]},
  {"user_id":"alice","text":"Dinner with family","created_at":"2024-03-05T19:00:00Z","emotions":[{"label":"joy","score":1}],"tags":["family"]},
  {"user_id":"alice","text":"Deadline moved, relief","created_at":"2024-03-12T08:00:00Z","emotions":[{"label":"calm","score":1}]},
  {"user_id":"bob","text":"not alice","created_at":"2024-03-05T10:00:00Z","emotions":[{"label":"anger","score":1}]},
  {"user_id":"alice","text":"broken clock","created_at":"sometime"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("echo-report", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.View != ViewInsights {
		t.Fatalf("View=%q, want %q", cfg.View, ViewInsights)
	}
	if cfg.Timeframe != "week" {
		t.Fatalf("Timeframe=%q, want week", cfg.Timeframe)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("echo-report", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "a/b/entries.json",
		"-view", "report",
		"-owner", "alice",
		"-week-start", "2024-03-06",
		"-pretty",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InPath != filepath.FromSlash("a/b/entries.json") {
		t.Fatalf("InPath=%q", cfg.InPath)
	}
	if cfg.View != ViewReport || cfg.Owner != "alice" || cfg.WeekStart != "2024-03-06" || !cfg.Pretty {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown view", Config{InPath: "x", View: "hourly"}},
		{"missing input", Config{View: ViewDaily}},
		{"schema without name", Config{View: ViewSchema}},
		{"triggers without file", Config{InPath: "x", View: ViewTriggers}},
		{"report without owner", Config{InPath: "x", View: ViewReport, WeekStart: "2024-03-04"}},
		{"report with bad week", Config{InPath: "x", View: ViewReport, Owner: "alice", WeekStart: "March"}},
		{"bad timeframe", Config{InPath: "x", View: ViewNarrative, Timeframe: "year"}},
		{"negative limit", Config{InPath: "x", View: ViewSuggest, Limit: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatalf("expected error for %+v", tc.cfg)
			}
		})
	}
}

func TestRun_Daily(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "entries.json", sampleEntries)
	var out bytes.Buffer
	if err := run(Config{InPath: in, View: ViewDaily, Owner: "alice"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var daily []models.DailyMetric
	if err := json.Unmarshal(out.Bytes(), &daily); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(daily) != 3 {
		t.Fatalf("len(daily)=%d, want 3", len(daily))
	}
	if daily[0].Date != "2024-03-04" || daily[0].TopEmotion != "fear" {
		t.Fatalf("unexpected first day: %+v", daily[0])
	}
}

func TestRun_Report(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "entries.json", sampleEntries)
	var out bytes.Buffer
	cfg := Config{InPath: in, View: ViewReport, Owner: "alice", WeekStart: "2024-03-14"}
	if err := run(cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var report models.WeeklyReportPayload
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if report.WeekRange.Start != "2024-03-11" || report.WeekRange.End != "2024-03-17" {
		t.Fatalf("WeekRange=%+v", report.WeekRange)
	}
	if report.MessageCount != 1 {
		t.Fatalf("MessageCount=%d, want 1", report.MessageCount)
	}
	if report.DeltaVsPrevWeek == nil {
		t.Fatalf("expected a delta against the week of 2024-03-04")
	}
}

func TestRun_Narrative(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "entries.json", sampleEntries)
	var out bytes.Buffer
	if err := run(Config{InPath: in, View: ViewNarrative, Owner: "alice", Timeframe: "month"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Overview • This month") {
		t.Fatalf("unexpected narrative:\n%s", out.String())
	}
}

func TestRun_NarrativeFromTexts(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "texts.json", `["just a note", "another note", ""]`)
	var out bytes.Buffer
	if err := run(Config{InPath: in, View: ViewNarrative, Timeframe: "week"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Overview • This week, you captured 2 reflections") {
		t.Fatalf("unexpected narrative:\n%s", out.String())
	}
}

func TestRun_Triggers(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "entries.json", sampleEntries)
	defs := writeFile(t, "triggers.json", `[{"user_id":"alice","name":"Work","words":["Deadline"]}]`)

	var out bytes.Buffer
	if err := run(Config{InPath: in, TriggersPath: defs, View: ViewTriggers, Owner: "alice"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var stats []models.TriggerStat
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(stats) != 1 || stats[0].Count != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRun_Schema(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := run(Config{View: ViewSchema, SchemaName: "daily"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), `"time_buckets"`) {
		t.Fatalf("schema missing time_buckets: %s", out.String())
	}

	if err := run(Config{View: ViewSchema, SchemaName: "nope"}, &out); err == nil {
		t.Fatalf("expected error for unknown schema")
	}
}

func TestRun_MissingInput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(Config{InPath: filepath.Join(t.TempDir(), "missing.json"), View: ViewDaily}, &out)
	if err == nil {
		t.Fatalf("expected error for missing input file")
	}
}

func TestEmit_OutFile(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "entries.json", sampleEntries)
	outPath := filepath.Join(t.TempDir(), "reports", "daily.json")

	var stdout bytes.Buffer
	if err := emit(Config{InPath: in, View: ViewDaily, Owner: "alice", OutPath: outPath}, &stdout); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", stdout.String())
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var daily []models.DailyMetric
	if err := json.Unmarshal(raw, &daily); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(daily) != 3 {
		t.Fatalf("len(daily)=%d, want 3", len(daily))
	}
}

func TestEmit_FailureKeepsPreviousFile(t *testing.T) {
	t.Parallel()

	outPath := writeFile(t, "daily.json", "previous")
	err := emit(Config{InPath: filepath.Join(t.TempDir(), "missing.json"), View: ViewDaily, OutPath: outPath}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for missing input file")
	}

	raw, _ := os.ReadFile(outPath)
	if string(raw) != "previous" {
		t.Fatalf("output file changed to %q", raw)
	}
}
