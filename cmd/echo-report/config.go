package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mrwolf/echo-server/internal/narrator"
	"github.com/mrwolf/echo-server/internal/signals"
)

// Views the tool can render
const (
	ViewDaily     = "daily"
	ViewWeekly    = "weekly"
	ViewInsights  = "insights"
	ViewNarrative = "narrative"
	ViewTriggers  = "triggers"
	ViewSuggest   = "suggest"
	ViewReport    = "report"
	ViewSchema    = "schema"
)

var views = []string{ViewDaily, ViewWeekly, ViewInsights, ViewNarrative, ViewTriggers, ViewSuggest, ViewReport, ViewSchema}

type Config struct {
	InPath       string
	TriggersPath string
	View         string
	Owner        string
	Timeframe    string
	WeekStart    string
	SchemaName   string
	Limit        int
	Pretty       bool
	OutPath      string // empty writes to stdout
}

func (c Config) Validate() error {
	if !validView(c.View) {
		return fmt.Errorf("unknown -view %q (want one of %s)", c.View, strings.Join(views, ", "))
	}
	if c.View == ViewSchema {
		if c.SchemaName == "" {
			return errors.New("missing -schema")
		}
		return nil
	}
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.View == ViewTriggers && c.TriggersPath == "" {
		return errors.New("missing -triggers")
	}
	if c.View == ViewReport {
		if c.Owner == "" {
			return errors.New("-view report requires -owner")
		}
		if _, err := signals.ParseDate(c.WeekStart); err != nil {
			return fmt.Errorf("-week-start must be YYYY-MM-DD: %w", err)
		}
	}
	if c.Timeframe != "" && narrator.ParseTimeframe(c.Timeframe) != narrator.Timeframe(c.Timeframe) {
		return fmt.Errorf("unknown -timeframe %q", c.Timeframe)
	}
	if c.Limit < 0 {
		return errors.New("limit must be >= 0")
	}
	return nil
}

func validView(v string) bool {
	for _, view := range views {
		if v == view {
			return true
		}
	}
	return false
}

func defaultConfig() Config {
	return Config{
		InPath:    filepath.FromSlash("data/entries.json"),
		View:      ViewInsights,
		Timeframe: string(narrator.Week),
	}
}
