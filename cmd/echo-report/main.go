package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrwolf/echo-server/internal/analytics"
	"github.com/mrwolf/echo-server/internal/archive"
	"github.com/mrwolf/echo-server/internal/insights"
	"github.com/mrwolf/echo-server/internal/logging"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/narrator"
	"github.com/mrwolf/echo-server/internal/reporting"
	"github.com/mrwolf/echo-server/internal/signals"
	"github.com/mrwolf/echo-server/internal/triggers"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := logging.Init("warn", "text", os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := emit(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to a JSON array of journal entries")
	fs.StringVar(&cfg.TriggersPath, "triggers", "", "Path to a JSON array of trigger definitions (view=triggers)")
	fs.StringVar(&cfg.View, "view", cfg.View, "One of: "+strings.Join(views, ", "))
	fs.StringVar(&cfg.Owner, "owner", "", "Only use entries of this owner")
	fs.StringVar(&cfg.Timeframe, "timeframe", cfg.Timeframe, "Narrative timeframe: day, week or month")
	fs.StringVar(&cfg.WeekStart, "week-start", "", "Any date in the report week, YYYY-MM-DD (view=report)")
	fs.StringVar(&cfg.SchemaName, "schema", "", "Payload schema to print: "+strings.Join(models.SchemaNames(), ", "))
	fs.IntVar(&cfg.Limit, "limit", 0, "Maximum suggestions (view=suggest, 0 for the default)")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print JSON output")
	fs.StringVar(&cfg.OutPath, "out", "", "Write output to this file instead of stdout (replaced atomically)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/echo-report -in entries.json -view weekly -pretty")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/echo-report -in entries.json -view report -owner alice -week-start 2024-03-04")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/echo-report -view schema -schema weekly-report")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/echo-report -in entries.json -view daily -out reports/daily.json")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.InPath = filepath.Clean(cfg.InPath)
	return cfg, nil
}

// emit renders to stdout, or into -out once the whole output is ready. A
// failed run leaves any previous file untouched.
func emit(cfg Config, stdout io.Writer) error {
	if cfg.OutPath == "" {
		return run(cfg, stdout)
	}

	var buf bytes.Buffer
	if err := run(cfg, &buf); err != nil {
		return err
	}
	if err := archive.WriteFileAtomic(cfg.OutPath, buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.OutPath, err)
	}
	logging.Info("report written", "path", cfg.OutPath, "bytes", buf.Len())
	return nil
}

func run(cfg Config, out io.Writer) error {
	if cfg.View == ViewSchema {
		schema, ok := models.SchemaFor(cfg.SchemaName)
		if !ok {
			return fmt.Errorf("unknown schema %q (want one of %s)", cfg.SchemaName, strings.Join(models.SchemaNames(), ", "))
		}
		return writeJSON(out, schema, cfg.Pretty)
	}

	// A narrative also accepts a plain array of reflection texts
	if cfg.View == ViewNarrative {
		if texts, ok := readTexts(cfg.InPath); ok {
			_, err := fmt.Fprintln(out, narrator.BuildFromTexts(texts, cfg.Timeframe))
			return err
		}
	}

	entries, err := readEntries(cfg.InPath, cfg.Owner)
	if err != nil {
		return err
	}
	if skipped := analytics.CountMalformed(entries); skipped > 0 {
		logging.Warn("skipping malformed entries", "skipped", skipped, "total", len(entries))
	}

	switch cfg.View {
	case ViewDaily:
		return writeJSON(out, analytics.ComputeDailyMetrics(entries), cfg.Pretty)
	case ViewWeekly:
		daily := analytics.ComputeDailyMetrics(entries)
		return writeJSON(out, analytics.ComputeWeeklyMetrics(entries, daily), cfg.Pretty)
	case ViewInsights:
		return writeJSON(out, insights.Summarize(entries), cfg.Pretty)
	case ViewNarrative:
		_, err := fmt.Fprintln(out, narrator.Build(entries, cfg.Timeframe))
		return err
	case ViewTriggers:
		defs, err := readTriggers(cfg.TriggersPath, cfg.Owner)
		if err != nil {
			return err
		}
		return writeJSON(out, triggers.ComputeStats(entries, defs), cfg.Pretty)
	case ViewSuggest:
		return writeJSON(out, triggers.Suggest(entries, cfg.Limit), cfg.Pretty)
	case ViewReport:
		return writeJSON(out, weeklyReport(entries, cfg), cfg.Pretty)
	}
	return fmt.Errorf("unknown view %q", cfg.View)
}

func weeklyReport(entries []models.JournalEntry, cfg Config) models.WeeklyReportPayload {
	day, _ := signals.ParseDate(cfg.WeekStart)
	start := signals.WeekStart(day)
	end := start.AddDate(0, 0, 6)

	daily := analytics.ComputeDailyMetrics(entries)
	weekly := analytics.ComputeWeeklyMetrics(entries, daily)

	current := models.WeeklyMetric{UserID: cfg.Owner, WeekStart: signals.DateKey(start), WeekEnd: signals.DateKey(end)}
	var previous *models.WeeklyMetric
	for i := range weekly {
		if weekly[i].UserID != cfg.Owner {
			continue
		}
		switch weekly[i].WeekStart {
		case current.WeekStart:
			current = weekly[i]
		case signals.DateKey(start.AddDate(0, 0, -7)):
			previous = &weekly[i]
		}
	}

	return reporting.BuildWeeklyReport(reporting.Input{
		Owner:     cfg.Owner,
		WeekStart: start,
		WeekEnd:   end,
		Weekly:    current,
		Previous:  previous,
		Entries:   entries,
		Daily:     daily,
	})
}

func readEntries(path, owner string) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	if err := readJSON(path, &entries); err != nil {
		return nil, err
	}
	if owner == "" {
		return entries, nil
	}

	mine := entries[:0]
	for _, entry := range entries {
		if entry.UserID == owner {
			mine = append(mine, entry)
		}
	}
	return mine, nil
}

func readTexts(path string) ([]string, bool) {
	var texts []string
	if err := readJSON(path, &texts); err != nil {
		return nil, false
	}
	return texts, true
}

func readTriggers(path, owner string) ([]models.Trigger, error) {
	var defs []models.Trigger
	if err := readJSON(path, &defs); err != nil {
		return nil, err
	}

	out := make([]models.Trigger, 0, len(defs))
	for _, def := range defs {
		if owner != "" && def.UserID != "" && def.UserID != owner {
			continue
		}
		trigger, err := triggers.Normalize(def.UserID, def.Name, def.Words)
		if err != nil {
			return nil, fmt.Errorf("trigger %q: %w", def.Name, err)
		}
		trigger.ID = def.ID
		out = append(out, trigger)
	}
	return out, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
